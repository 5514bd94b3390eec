//go:build !gocv
// +build !gocv

package face

import (
	"context"
	"image"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/menta2k/smart-cropper/pkg/errs"
)

func TestStubIsUnsupported(t *testing.T) {
	d := NewCascadeDetector(DefaultConfig())
	require.ErrorIs(t, d.Available(), errs.ErrUnsupported)

	_, err := d.Detect(context.Background(), image.NewGray(image.Rect(0, 0, 4, 4)))
	require.ErrorIs(t, err, errs.ErrUnsupported)
	require.NoError(t, d.Close())
}
