package vision

// AspectRatio represents common aspect ratios
type AspectRatio struct {
	Width  int    `json:"width" yaml:"width"`
	Height int    `json:"height" yaml:"height"`
	Name   string `json:"name" yaml:"name"`
}

// Ratio returns width divided by height
func (a AspectRatio) Ratio() float64 {
	return float64(a.Width) / float64(a.Height)
}

// Common aspect ratios
var (
	Square     = AspectRatio{1, 1, "square"}
	Portrait   = AspectRatio{3, 4, "portrait"}
	Landscape  = AspectRatio{4, 3, "landscape"}
	Widescreen = AspectRatio{16, 9, "widescreen"}
	Instagram  = AspectRatio{4, 5, "instagram"}
	Story      = AspectRatio{9, 16, "story"}
)

// CommonAspectRatios returns a list of commonly used aspect ratios
func CommonAspectRatios() []AspectRatio {
	return []AspectRatio{Square, Portrait, Landscape, Widescreen, Instagram, Story}
}

// CropSize returns the largest width and height with ratio a that fit inside w x h
func (a AspectRatio) CropSize(w, h int) (int, int) {
	target := a.Ratio()
	if float64(w)/float64(h) > target {
		cw := int(float64(h) * target)
		if cw < 1 {
			cw = 1
		}
		return cw, h
	}
	ch := int(float64(w) / target)
	if ch < 1 {
		ch = 1
	}
	return w, ch
}
