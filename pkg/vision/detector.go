package vision

import (
	"image"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// SubjectDetector finds salient, object-like regions with an edge and contrast saliency map
type SubjectDetector struct {
	config DetectionConfig
}

// DetectionConfig holds configuration for subject detection
type DetectionConfig struct {
	EdgeThreshold   float64
	ContrastWeight  float64
	ColorWeight     float64
	MinSubjectRatio float64
	NMSThreshold    float64
	MaxRegions      int
}

// DefaultConfig returns the detector defaults
func DefaultConfig() DetectionConfig {
	return DetectionConfig{
		EdgeThreshold:   0.01, // More sensitive
		ContrastWeight:  0.3,
		ColorWeight:     0.2,
		MinSubjectRatio: 0.05,
		NMSThreshold:    0.3,
		MaxRegions:      10,
	}
}

// New creates a new SubjectDetector with default configuration
func New() *SubjectDetector {
	return &SubjectDetector{config: DefaultConfig()}
}

// NewWithConfig creates a new SubjectDetector with custom configuration
func NewWithConfig(config DetectionConfig) *SubjectDetector {
	if config.MaxRegions <= 0 {
		config.MaxRegions = 10
	}
	return &SubjectDetector{config: config}
}

// Region represents a rectangular region of interest in pixels, origin top-left
type Region struct {
	X      int
	Y      int
	Width  int
	Height int
	Score  float64
}

// Center returns the center point of the region
func (r Region) Center() (int, int) {
	return r.X + r.Width/2, r.Y + r.Height/2
}

// Area returns the area of the region
func (r Region) Area() int {
	return r.Width * r.Height
}

// Rect returns the region as an image.Rectangle
func (r Region) Rect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// IoU computes the intersection over union of two regions
func (r Region) IoU(o Region) float64 {
	inter := r.Rect().Intersect(o.Rect())
	if inter.Empty() {
		return 0
	}
	i := float64(inter.Dx() * inter.Dy())
	return i / (float64(r.Area()+o.Area()) - i)
}

// DetectSubjects analyzes an image and returns regions of interest, best first
func (d *SubjectDetector) DetectSubjects(img image.Image) ([]Region, error) {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	saliencyMap := d.SaliencyMap(img)
	regions := d.findImportantRegions(saliencyMap, width, height)
	filtered := d.filterAndScoreRegions(regions, width, height)
	kept := nms(filtered, d.config.NMSThreshold)

	if len(kept) > d.config.MaxRegions {
		kept = kept[:d.config.MaxRegions]
	}

	return kept, nil
}

// SaliencyMap returns a per-pixel saliency score, indexed [y][x]
func (d *SubjectDetector) SaliencyMap(img image.Image) [][]float64 {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	saliencyMap := make([][]float64, height)
	for i := range saliencyMap {
		saliencyMap[i] = make([]float64, width)
	}

	neighbors := [][]int{{-1, -1}, {-1, 0}, {-1, 1}, {0, -1}, {0, 1}, {1, -1}, {1, 0}, {1, 1}}

	// Simple saliency calculation based on edge detection and contrast
	for y := 1; y < height-1; y++ {
		for x := 1; x < width-1; x++ {
			r1, g1, b1, _ := img.At(x+bounds.Min.X, y+bounds.Min.Y).RGBA()

			var edgeStrength float64
			for _, offset := range neighbors {
				nx, ny := x+offset[0], y+offset[1]
				r2, g2, b2, _ := img.At(nx+bounds.Min.X, ny+bounds.Min.Y).RGBA()

				dr := float64(r1) - float64(r2)
				dg := float64(g1) - float64(g2)
				db := float64(b1) - float64(b2)
				edgeStrength += math.Sqrt(dr*dr + dg*dg + db*db)
			}

			// 8 neighbors, max color value 65535
			edgeStrength /= (8.0 * 65535.0)

			brightness := (float64(r1) + float64(g1) + float64(b1)) / (3.0 * 65535.0)

			saliencyMap[y][x] = d.config.ContrastWeight*edgeStrength + d.config.ColorWeight*brightness
		}
	}

	return saliencyMap
}

// MassFraction returns the share of total saliency that falls inside rect.
// An all-zero map yields 0.
func MassFraction(saliencyMap [][]float64, rect image.Rectangle) float64 {
	var total, inside float64
	for y, row := range saliencyMap {
		rowSum := floats.Sum(row)
		total += rowSum
		if y < rect.Min.Y || y >= rect.Max.Y || len(row) == 0 {
			continue
		}
		x0 := clampInt(rect.Min.X, 0, len(row))
		x1 := clampInt(rect.Max.X, 0, len(row))
		if x1 > x0 {
			inside += floats.Sum(row[x0:x1])
		}
	}
	if total <= 0 {
		return 0
	}
	return inside / total
}

func (d *SubjectDetector) findImportantRegions(saliencyMap [][]float64, width, height int) []Region {
	var regions []Region

	// Use sliding window approach to find high-saliency regions
	windowSizes := []int{width / 20, width / 16, width / 12, width / 8, width / 4}
	minArea := int(float64(width*height) * d.config.MinSubjectRatio)

	for _, windowSize := range windowSizes {
		if windowSize < 10 {
			continue // Skip very small windows
		}
		if windowSize*windowSize < minArea {
			continue // Would be filtered out anyway
		}
		windowHeight := windowSize
		step := windowSize / 8

		for y := 0; y <= height-windowHeight; y += step {
			for x := 0; x <= width-windowSize; x += step {
				score := d.calculateRegionScore(saliencyMap, x, y, windowSize, windowHeight)

				if score > d.config.EdgeThreshold {
					regions = append(regions, Region{
						X:      x,
						Y:      y,
						Width:  windowSize,
						Height: windowHeight,
						Score:  score,
					})
				}
			}
		}
	}

	return regions
}

func (d *SubjectDetector) calculateRegionScore(saliencyMap [][]float64, x, y, width, height int) float64 {
	var totalScore float64
	count := 0

	for ry := y; ry < y+height && ry < len(saliencyMap); ry++ {
		row := saliencyMap[ry]
		x1 := clampInt(x+width, 0, len(row))
		if x1 > x {
			totalScore += floats.Sum(row[x:x1])
			count += x1 - x
		}
	}

	if count == 0 {
		return 0
	}

	return totalScore / float64(count)
}

func (d *SubjectDetector) filterAndScoreRegions(regions []Region, imageWidth, imageHeight int) []Region {
	var filtered []Region

	imageArea := imageWidth * imageHeight
	minArea := int(float64(imageArea) * d.config.MinSubjectRatio)

	for _, region := range regions {
		if region.Area() >= minArea {
			filtered = append(filtered, region)
		}
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Score > filtered[j].Score
	})

	return filtered
}

// nms drops regions overlapping a better scored region by more than thresh.
// Input must be sorted by descending score.
func nms(regions []Region, thresh float64) []Region {
	if thresh <= 0 {
		return regions
	}

	keep := make([]Region, 0, len(regions))
	used := make([]bool, len(regions))

	for i := range regions {
		if used[i] {
			continue
		}
		keep = append(keep, regions[i])

		for j := i + 1; j < len(regions); j++ {
			if !used[j] && regions[i].IoU(regions[j]) > thresh {
				used[j] = true
			}
		}
	}

	return keep
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
