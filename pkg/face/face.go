// Package face finds faces and scores how well each one was captured.
package face

import (
	"context"
	"image"
	"image/color"

	"gonum.org/v1/gonum/stat"
)

// QualityScale is the Laplacian variance that maps to a quality of 0.5
const QualityScale = 100.0

// Face is a detected face in pixel coordinates, origin top-left
type Face struct {
	Rect       image.Rectangle
	Confidence float64
	Quality    float64
}

// Detector finds faces in an upright image
type Detector interface {
	// Available reports errs.ErrUnsupported when the backend cannot run here
	Available() error
	Detect(ctx context.Context, img image.Image) ([]Face, error)
}

// Config holds cascade detection settings
type Config struct {
	CascadePath  string  `json:"cascade_path" yaml:"cascade_path"`
	ScaleFactor  float64 `json:"scale_factor" yaml:"scale_factor"`
	MinNeighbors int     `json:"min_neighbors" yaml:"min_neighbors"`
	MinSize      int     `json:"min_size" yaml:"min_size"`
}

// DefaultConfig returns the cascade defaults
func DefaultConfig() Config {
	return Config{
		ScaleFactor:  1.1,
		MinNeighbors: 4,
		MinSize:      24,
	}
}

// Quality scores the sharpness of r inside img as a value in [0, 1).
// It is the variance of a 4-neighbour Laplacian over luminance, squashed
// with v/(v+QualityScale). Regions smaller than 3x3 score 0.
func Quality(img image.Image, r image.Rectangle) float64 {
	r = r.Intersect(img.Bounds())
	w, h := r.Dx(), r.Dy()
	if w < 3 || h < 3 {
		return 0
	}

	lum := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			g := color.GrayModel.Convert(img.At(r.Min.X+x, r.Min.Y+y)).(color.Gray)
			lum[y*w+x] = float64(g.Y)
		}
	}

	lap := make([]float64, 0, (w-2)*(h-2))
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			c := lum[y*w+x]
			v := lum[(y-1)*w+x] + lum[(y+1)*w+x] + lum[y*w+x-1] + lum[y*w+x+1] - 4*c
			lap = append(lap, v)
		}
	}

	if len(lap) < 2 {
		return 0
	}

	variance := stat.Variance(lap, nil)
	return variance / (variance + QualityScale)
}

// rankBySize assigns each face a confidence relative to the largest face
func rankBySize(faces []Face) {
	largest := 0
	for _, f := range faces {
		if a := f.Rect.Dx() * f.Rect.Dy(); a > largest {
			largest = a
		}
	}
	if largest == 0 {
		return
	}
	for i := range faces {
		faces[i].Confidence = float64(faces[i].Rect.Dx()*faces[i].Rect.Dy()) / float64(largest)
	}
}
