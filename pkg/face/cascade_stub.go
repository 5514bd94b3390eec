//go:build !gocv
// +build !gocv

package face

import (
	"context"
	"fmt"
	"image"

	"github.com/menta2k/smart-cropper/pkg/errs"
)

// CascadeDetector is a placeholder used when built without OpenCV
type CascadeDetector struct {
	config Config
}

// NewCascadeDetector creates a detector that is never available (no OpenCV)
func NewCascadeDetector(config Config) *CascadeDetector {
	return &CascadeDetector{config: config}
}

// Available returns errs.ErrUnsupported, the gocv build tag is not enabled
func (d *CascadeDetector) Available() error {
	return fmt.Errorf("%w: gocv build tag is not enabled", errs.ErrUnsupported)
}

// Detect returns the same error as Available
func (d *CascadeDetector) Detect(ctx context.Context, img image.Image) ([]Face, error) {
	_ = ctx
	_ = img
	return nil, d.Available()
}

// Close is a no-op
func (d *CascadeDetector) Close() error {
	return nil
}
