package detection

import (
	"context"
	"errors"
	"image"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/menta2k/smart-cropper/internal/testutil"
	"github.com/menta2k/smart-cropper/pkg/errs"
	"github.com/menta2k/smart-cropper/pkg/face"
	"github.com/menta2k/smart-cropper/pkg/types"
	"github.com/menta2k/smart-cropper/pkg/vision"
)

type fakeFaces struct {
	faces       []face.Face
	err         error
	unavailable error
	seen        image.Rectangle
}

func (f *fakeFaces) Available() error { return f.unavailable }

func (f *fakeFaces) Detect(ctx context.Context, img image.Image) ([]face.Face, error) {
	f.seen = img.Bounds()
	return f.faces, f.err
}

func requireNormalized(t *testing.T, b types.Box) {
	t.Helper()
	require.GreaterOrEqual(t, b.X, 0.0)
	require.GreaterOrEqual(t, b.Y, 0.0)
	require.Greater(t, b.W, 0.0)
	require.Greater(t, b.H, 0.0)
	require.LessOrEqual(t, b.X+b.W, 1+1e-9)
	require.LessOrEqual(t, b.Y+b.H, 1+1e-9)
}

func TestEngineAvailable(t *testing.T) {
	ctx := context.Background()

	e := NewEngine(DefaultEngineConfig())
	require.NoError(t, e.Available(ctx, types.CropAttention))
	require.NoError(t, e.Available(ctx, types.CropObjectness))
	require.ErrorIs(t, e.Available(ctx, types.CropFace), errs.ErrUnsupported)
	require.ErrorIs(t, e.Available(ctx, types.CropType(9)), errs.ErrUnsupported)

	e = NewEngine(DefaultEngineConfig(), WithFaceDetector(&fakeFaces{}))
	require.NoError(t, e.Available(ctx, types.CropFace))
}

func TestEngineAttention(t *testing.T) {
	config := DefaultEngineConfig()
	config.AspectRatios = []vision.AspectRatio{vision.Square, vision.Widescreen}
	e := NewEngine(config)

	proposals, err := e.Detect(context.Background(), Input{
		Image:       testutil.CreateTestImage(400, 200),
		Orientation: types.OrientationUp,
		Mode:        types.CropAttention,
	})
	require.NoError(t, err)
	require.Len(t, proposals, 2)

	square := proposals[0]
	requireNormalized(t, square.Box)
	require.InDelta(t, 0.5, square.Box.W, 0.02)
	require.InDelta(t, 1.0, square.Box.H, 0.02)
	require.GreaterOrEqual(t, square.Confidence, 0.0)
	require.LessOrEqual(t, square.Confidence, 1.0)
	require.Nil(t, square.FaceCaptureQuality)

	require.NotEqual(t, proposals[0].ID, proposals[1].ID)
	requireNormalized(t, proposals[1].Box)
}

func TestEngineObjectness(t *testing.T) {
	e := NewEngine(DefaultEngineConfig())

	proposals, err := e.Detect(context.Background(), Input{
		Image: testutil.CreateTestImage(400, 300),
		Mode:  types.CropObjectness,
	})
	require.NoError(t, err)
	require.NotEmpty(t, proposals)
	require.InDelta(t, 1.0, proposals[0].Confidence, 1e-9)

	for _, p := range proposals {
		requireNormalized(t, p.Box)
		require.LessOrEqual(t, p.Confidence, 1.0)
		require.Nil(t, p.FaceCaptureQuality)
	}
}

func TestEngineFaces(t *testing.T) {
	faces := &fakeFaces{faces: []face.Face{
		{Rect: image.Rect(10, 20, 50, 70), Confidence: 0.9, Quality: 0.8},
		{Rect: image.Rect(60, 0, 100, 30), Confidence: 0.4, Quality: 1.7},
	}}
	e := NewEngine(DefaultEngineConfig(), WithFaceDetector(faces))

	proposals, err := e.Detect(context.Background(), Input{
		Image: testutil.CreateTestImage(100, 100),
		Mode:  types.CropFace,
	})
	require.NoError(t, err)
	require.Len(t, proposals, 2)

	requireBox(t, types.Box{X: 0.1, Y: 0.3, W: 0.4, H: 0.5}, proposals[0].Box)
	require.InDelta(t, 0.9, proposals[0].Confidence, 1e-9)
	require.NotNil(t, proposals[0].FaceCaptureQuality)
	require.InDelta(t, 0.8, *proposals[0].FaceCaptureQuality, 1e-9)
	require.InDelta(t, 1.0, *proposals[1].FaceCaptureQuality, 1e-9)
}

func TestEngineFaceError(t *testing.T) {
	boom := errors.New("cascade exploded")
	e := NewEngine(DefaultEngineConfig(), WithFaceDetector(&fakeFaces{err: boom}))

	_, err := e.Detect(context.Background(), Input{Image: testutil.CreateTestImage(10, 10), Mode: types.CropFace})
	require.ErrorIs(t, err, boom)
}

func TestEngineAppliesForwardedOrientation(t *testing.T) {
	tests := []struct {
		orientation types.Orientation
		w, h        int
	}{
		{types.OrientationUp, 40, 20},
		{types.OrientationUpMirrored, 40, 20},
		{types.OrientationDown, 40, 20},
		{types.OrientationDownMirrored, 40, 20},
		{types.OrientationLeft, 20, 40},
		{types.OrientationLeftMirrored, 20, 40},
		{types.OrientationRight, 20, 40},
		{types.OrientationRightMirrored, 20, 40},
	}

	for _, tt := range tests {
		faces := &fakeFaces{}
		e := NewEngine(DefaultEngineConfig(), WithFaceDetector(faces))

		_, err := e.Detect(context.Background(), Input{
			Image:       testutil.CreateTestImage(40, 20),
			Orientation: tt.orientation,
			Mode:        types.CropFace,
		})
		require.NoError(t, err)
		require.Equal(t, tt.w, faces.seen.Dx(), "orientation %s", tt.orientation)
		require.Equal(t, tt.h, faces.seen.Dy(), "orientation %s", tt.orientation)
	}
}

func TestEngineAnalysisSize(t *testing.T) {
	faces := &fakeFaces{}
	e := NewEngine(DefaultEngineConfig(), WithFaceDetector(faces))
	img := testutil.CreateTestImage(2000, 1000)

	_, err := e.Detect(context.Background(), Input{Image: img, Mode: types.CropFace})
	require.NoError(t, err)
	require.Equal(t, 1024, faces.seen.Dx())

	_, err = e.Detect(context.Background(), Input{
		Image: img,
		Mode:  types.CropFace,
		Hints: Hints{PreferBackgroundProcessing: true},
	})
	require.NoError(t, err)
	require.Equal(t, 512, faces.seen.Dx())
	require.Equal(t, 256, faces.seen.Dy())
}

func TestEngineRejects(t *testing.T) {
	e := NewEngine(DefaultEngineConfig())

	_, err := e.Detect(context.Background(), Input{Mode: types.CropAttention})
	require.Error(t, err)

	_, err = e.Detect(context.Background(), Input{Image: testutil.CreateTestImage(10, 10), Mode: types.CropType(0)})
	require.ErrorIs(t, err, errs.ErrUnsupported)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.Detect(ctx, Input{Image: testutil.CreateTestImage(10, 10), Mode: types.CropAttention})
	require.ErrorIs(t, err, context.Canceled)
}
