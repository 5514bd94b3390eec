package detection

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image/jpeg"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/menta2k/smart-cropper/internal/testutil"
	"github.com/menta2k/smart-cropper/pkg/errs"
	"github.com/menta2k/smart-cropper/pkg/types"
)

type fakeClient struct {
	pingErr  error
	err      error
	analysis *types.RegionAnalysis
	query    types.RegionQuery
}

func (f *fakeClient) Ping(ctx context.Context) error { return f.pingErr }

func (f *fakeClient) SimpleQuery(ctx context.Context, model, prompt, imgB64 string) (string, error) {
	return "a test pattern", nil
}

func (f *fakeClient) DetectRegions(ctx context.Context, query types.RegionQuery) (*types.RegionAnalysis, error) {
	f.query = query
	if f.err != nil {
		return nil, f.err
	}
	return f.analysis, nil
}

func ptr(v float64) *float64 { return &v }

func sampleAnalysis() *types.RegionAnalysis {
	return &types.RegionAnalysis{Regions: []types.Region{
		{Label: "cat", Confidence: 0.9, Box: types.Box{X: 0.1, Y: 0.2, W: 0.3, H: 0.4}, Quality: ptr(0.6)},
		{Label: "None", Confidence: 0.5, Box: types.Box{X: 0.25, Y: 0.25, W: 0.5, H: 0.5}},
		{Label: "flat", Confidence: 0.5, Box: types.Box{X: 0.25, Y: 0.25, W: 0, H: 0.5}},
		{Label: "dog", Confidence: 1.4, Box: types.Box{X: 0.5, Y: 0.5, W: 0.8, H: 0.2}},
	}}
}

func TestRemoteAvailable(t *testing.T) {
	ctx := context.Background()

	r := NewRemote(&fakeClient{}, DefaultRemoteConfig())
	require.NoError(t, r.Available(ctx, types.CropFace))
	require.ErrorIs(t, r.Available(ctx, types.CropType(0)), errs.ErrUnsupported)

	r = NewRemote(&fakeClient{pingErr: errors.New("connection refused")}, DefaultRemoteConfig())
	err := r.Available(ctx, types.CropAttention)
	require.ErrorIs(t, err, errs.ErrUnsupported)
	require.Contains(t, err.Error(), "connection refused")
}

func TestRemoteDetect(t *testing.T) {
	c := &fakeClient{analysis: sampleAnalysis()}
	r := NewRemote(c, RemoteConfig{Model: "llava", MaxSide: 200})

	proposals, err := r.Detect(context.Background(), Input{
		Image: testutil.CreateTestImage(400, 100),
		Mode:  types.CropObjectness,
		Hints: Hints{UsesCPUOnly: true},
	})
	require.NoError(t, err)
	require.Len(t, proposals, 2)

	requireBox(t, types.Box{X: 0.1, Y: 0.4, W: 0.3, H: 0.4}, proposals[0].Box)
	require.InDelta(t, 0.9, proposals[0].Confidence, 1e-9)
	require.Nil(t, proposals[0].FaceCaptureQuality)

	requireBox(t, types.Box{X: 0.5, Y: 0.3, W: 0.5, H: 0.2}, proposals[1].Box)
	require.InDelta(t, 1.0, proposals[1].Confidence, 1e-9)

	require.Equal(t, "llava", c.query.Model)
	require.Equal(t, RegionPrompt(types.CropObjectness), c.query.Prompt)
	require.True(t, c.query.UsesCPUOnly)
	require.False(t, c.query.PreferBackgroundProcessing)

	raw, err := base64.StdEncoding.DecodeString(c.query.ImageB64)
	require.NoError(t, err)
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(raw))
	require.NoError(t, err)
	require.Equal(t, 200, cfg.Width)
	require.Equal(t, 50, cfg.Height)
}

func TestRemoteFaceQuality(t *testing.T) {
	c := &fakeClient{analysis: sampleAnalysis()}
	r := NewRemote(c, DefaultRemoteConfig())

	proposals, err := r.Detect(context.Background(), Input{
		Image: testutil.CreateTestImage(64, 64),
		Mode:  types.CropFace,
		Hints: Hints{PreferBackgroundProcessing: true},
	})
	require.NoError(t, err)
	require.Len(t, proposals, 2)
	require.NotNil(t, proposals[0].FaceCaptureQuality)
	require.InDelta(t, 0.6, *proposals[0].FaceCaptureQuality, 1e-9)
	require.Nil(t, proposals[1].FaceCaptureQuality)
	require.True(t, c.query.PreferBackgroundProcessing)
}

func TestRemoteDetectErrors(t *testing.T) {
	boom := errors.New("model crashed")
	r := NewRemote(&fakeClient{err: boom}, DefaultRemoteConfig())

	_, err := r.Detect(context.Background(), Input{Image: testutil.CreateTestImage(8, 8), Mode: types.CropAttention})
	require.ErrorIs(t, err, boom)

	_, err = r.Detect(context.Background(), Input{Image: testutil.CreateTestImage(8, 8), Mode: types.CropType(7)})
	require.ErrorIs(t, err, errs.ErrUnsupported)

	_, err = r.Detect(context.Background(), Input{Mode: types.CropAttention})
	require.Error(t, err)
}

func TestRemoteTestVision(t *testing.T) {
	r := NewRemote(&fakeClient{}, DefaultRemoteConfig())
	text, err := r.TestVision(context.Background(), "aW1n")
	require.NoError(t, err)
	require.Equal(t, "a test pattern", text)
}
