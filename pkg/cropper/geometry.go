package cropper

import (
	"image"
	"math"

	"github.com/menta2k/smart-cropper/pkg/types"
)

// ResultBox maps a normalized bottom-left box onto a w x h image and
// returns it in pixels with a top-left origin.
func ResultBox(b types.Box, w, h int) types.BoundingBox {
	fw, fh := float64(w), float64(h)
	width := b.W * fw
	height := b.H * fh
	return types.BoundingBox{
		X:      b.X * fw,
		Y:      fh - height - b.Y*fh,
		Width:  width,
		Height: height,
	}
}

// CropRect returns the pixel rectangle covering bb, clamped to a w x h image.
// Edges are snapped to 1e-6 before rounding outwards so that float noise
// does not grow the rectangle by a pixel.
func CropRect(bb types.BoundingBox, w, h int) image.Rectangle {
	r := image.Rect(
		int(math.Floor(snap(bb.X))),
		int(math.Floor(snap(bb.Y))),
		int(math.Ceil(snap(bb.X+bb.Width))),
		int(math.Ceil(snap(bb.Y+bb.Height))),
	)
	return r.Intersect(image.Rect(0, 0, w, h))
}

func snap(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
