// Package detection turns an image into normalized region proposals.
//
// Proposal boxes are normalized to [0,1] with a bottom-left origin, the
// convention the crop pipeline expects from every backend.
package detection

import (
	"context"
	"fmt"
	"image"

	"github.com/google/uuid"

	"github.com/menta2k/smart-cropper/pkg/errs"
	"github.com/menta2k/smart-cropper/pkg/types"
)

// Hints are advisory settings forwarded from the request
type Hints struct {
	UsesCPUOnly                bool
	PreferBackgroundProcessing bool
}

// Input is one detection call
type Input struct {
	// Image is the pixel buffer as normalized by the caller
	Image image.Image
	// Orientation is the caller supplied orientation tag
	Orientation types.Orientation
	Mode        types.CropType
	Hints       Hints
}

// Detector is the detection capability used by the crop pipeline
type Detector interface {
	// Available returns an error wrapping errs.ErrUnsupported when mode cannot run here
	Available(ctx context.Context, mode types.CropType) error
	// Detect returns proposals in the order the backend produced them
	Detect(ctx context.Context, in Input) ([]types.Proposal, error)
}

func unsupportedMode(mode types.CropType) error {
	return fmt.Errorf("%w: crop type %s", errs.ErrUnsupported, mode)
}

// NewID returns a fresh proposal identity token
func NewID() string {
	return uuid.NewString()
}

// PixelRectToBox converts a top-left pixel rectangle inside a w x h image to a
// normalized bottom-left box
func PixelRectToBox(r image.Rectangle, w, h int) types.Box {
	if w <= 0 || h <= 0 {
		return types.Box{}
	}
	fw, fh := float64(w), float64(h)
	return types.Box{
		X: clamp(float64(r.Min.X)/fw, 0, 1),
		Y: clamp((fh-float64(r.Max.Y))/fh, 0, 1),
		W: clamp(float64(r.Dx())/fw, 0, 1),
		H: clamp(float64(r.Dy())/fh, 0, 1),
	}
}

// FlipY converts a normalized top-left box to a bottom-left one and back
func FlipY(b types.Box) types.Box {
	return types.Box{X: b.X, Y: 1 - b.Y - b.H, W: b.W, H: b.H}
}

// normalizeBox ensures box coordinates are within [0,1] bounds
func normalizeBox(b types.Box) types.Box {
	x := clamp(b.X, 0, 1)
	y := clamp(b.Y, 0, 1)
	return types.Box{
		X: x,
		Y: y,
		W: clamp(b.W, 0, 1-x),
		H: clamp(b.H, 0, 1-y),
	}
}

// clamp ensures a value is within the given bounds
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
