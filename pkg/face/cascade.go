//go:build gocv
// +build gocv

package face

import (
	"context"
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"

	"github.com/menta2k/smart-cropper/pkg/errs"
)

// CascadeDetector finds faces with an OpenCV Haar cascade
type CascadeDetector struct {
	config     Config
	mu         sync.Mutex
	classifier gocv.CascadeClassifier
	loadErr    error
}

// NewCascadeDetector loads the cascade named in config.
// A missing or unreadable cascade makes the detector unavailable.
func NewCascadeDetector(config Config) *CascadeDetector {
	d := &CascadeDetector{config: config, classifier: gocv.NewCascadeClassifier()}
	if config.CascadePath == "" {
		d.loadErr = fmt.Errorf("%w: no face cascade configured", errs.ErrUnsupported)
		return d
	}
	if !d.classifier.Load(config.CascadePath) {
		d.loadErr = fmt.Errorf("%w: cannot load face cascade %s", errs.ErrUnsupported, config.CascadePath)
	}
	return d
}

// Available reports whether the cascade loaded
func (d *CascadeDetector) Available() error {
	return d.loadErr
}

// Detect returns the faces found in img
func (d *CascadeDetector) Detect(ctx context.Context, img image.Image) ([]Face, error) {
	if d.loadErr != nil {
		return nil, d.loadErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("failed to convert image: %w", err)
	}
	defer mat.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(mat, &gray, gocv.ColorBGRToGray)
	gocv.EqualizeHist(gray, &gray)

	minSize := image.Pt(d.config.MinSize, d.config.MinSize)

	d.mu.Lock()
	rects := d.classifier.DetectMultiScaleWithParams(gray, d.config.ScaleFactor, d.config.MinNeighbors, 0, minSize, image.Point{})
	d.mu.Unlock()

	offset := img.Bounds().Min
	faces := make([]Face, 0, len(rects))
	for _, r := range rects {
		r = r.Add(offset)
		faces = append(faces, Face{Rect: r, Quality: Quality(img, r)})
	}
	rankBySize(faces)

	return faces, nil
}

// Close releases the cascade
func (d *CascadeDetector) Close() error {
	return d.classifier.Close()
}
