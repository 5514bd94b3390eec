package face

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/require"
)

func checkerboard(w, h, cell int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x/cell+y/cell)%2 == 0 {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return img
}

func TestQualityFlatRegionIsZero(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 20, 20))
	require.Equal(t, 0.0, Quality(img, img.Bounds()))
}

func TestQualitySharpRegionIsHigh(t *testing.T) {
	img := checkerboard(20, 20, 1)
	q := Quality(img, img.Bounds())
	require.Greater(t, q, 0.9)
	require.Less(t, q, 1.0)
}

func TestQualityOrdersBySharpness(t *testing.T) {
	sharp := checkerboard(40, 40, 1)
	soft := checkerboard(40, 40, 8)
	require.Greater(t, Quality(sharp, sharp.Bounds()), Quality(soft, soft.Bounds()))
}

func TestQualityTinyOrOutsideRegion(t *testing.T) {
	img := checkerboard(20, 20, 1)
	require.Equal(t, 0.0, Quality(img, image.Rect(0, 0, 2, 2)))
	require.Equal(t, 0.0, Quality(img, image.Rect(50, 50, 80, 80)))
}

func TestRankBySize(t *testing.T) {
	faces := []Face{
		{Rect: image.Rect(0, 0, 10, 10)},
		{Rect: image.Rect(0, 0, 20, 20)},
	}
	rankBySize(faces)
	require.InDelta(t, 0.25, faces[0].Confidence, 1e-9)
	require.InDelta(t, 1.0, faces[1].Confidence, 1e-9)

	rankBySize(nil)
}
