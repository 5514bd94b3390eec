package types

import "fmt"

// CropType selects which kind of region the detector proposes
type CropType int

const (
	CropAttention  CropType = 1
	CropObjectness CropType = 2
	CropFace       CropType = 3
)

// Valid reports whether t is one of the known crop types
func (t CropType) Valid() bool {
	return t >= CropAttention && t <= CropFace
}

func (t CropType) String() string {
	switch t {
	case CropAttention:
		return "attention"
	case CropObjectness:
		return "objectness"
	case CropFace:
		return "face"
	}
	return fmt.Sprintf("CropType(%d)", int(t))
}

// ImageFormat is the encoding used for cropped output files
type ImageFormat int

const (
	FormatJPEG ImageFormat = 1
	FormatPNG  ImageFormat = 2
)

// Valid reports whether f is one of the known output formats
func (f ImageFormat) Valid() bool {
	return f == FormatJPEG || f == FormatPNG
}

// Extension returns the file extension without the dot
func (f ImageFormat) Extension() string {
	if f == FormatPNG {
		return "png"
	}
	return "jpg"
}

func (f ImageFormat) String() string {
	switch f {
	case FormatJPEG:
		return "jpeg"
	case FormatPNG:
		return "png"
	}
	return fmt.Sprintf("ImageFormat(%d)", int(f))
}

// Orientation describes how stored pixels relate to the upright image.
// The numeric values are the ones accepted on the request boundary and
// follow EXIF orientation tag numbering (5 is transpose, 6 a 90° clockwise
// turn, 7 transverse, 8 a 90° counter-clockwise turn).
type Orientation int

const (
	OrientationUp            Orientation = 1
	OrientationUpMirrored    Orientation = 2
	OrientationDown          Orientation = 3
	OrientationDownMirrored  Orientation = 4
	OrientationLeft          Orientation = 5
	OrientationLeftMirrored  Orientation = 6
	OrientationRight         Orientation = 7
	OrientationRightMirrored Orientation = 8
)

var orientationNames = map[Orientation]string{
	OrientationUp:            "up",
	OrientationUpMirrored:    "up-mirrored",
	OrientationDown:          "down",
	OrientationDownMirrored:  "down-mirrored",
	OrientationLeft:          "left",
	OrientationLeftMirrored:  "left-mirrored",
	OrientationRight:         "right",
	OrientationRightMirrored: "right-mirrored",
}

// Valid reports whether o is one of the eight orientations
func (o Orientation) Valid() bool {
	_, ok := orientationNames[o]
	return ok
}

func (o Orientation) String() string {
	if name, ok := orientationNames[o]; ok {
		return name
	}
	return fmt.Sprintf("Orientation(%d)", int(o))
}

// Box represents a normalized bounding box with coordinates in [0,1] range.
// Proposals use a bottom-left origin.
type Box struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Proposal is a single region reported by a detector
type Proposal struct {
	ID                 string
	Box                Box
	Confidence         float64
	FaceCaptureQuality *float64
}

// BoundingBox is a rectangle in pixels of the oriented image, origin top-left, y down
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// CropResult describes one cropped region written to disk
type CropResult struct {
	Path               string      `json:"path"`
	Confidence         float64     `json:"confidence"`
	FaceCaptureQuality *float64    `json:"faceCaptureQuality,omitempty"`
	BoundingBox        BoundingBox `json:"boundingBox"`
}

// Region is one region reported by a vision model, normalized with a top-left origin
type Region struct {
	Label      string   `json:"label"`
	Confidence float64  `json:"confidence"`
	Box        Box      `json:"box"`
	Quality    *float64 `json:"quality,omitempty"`
}

// RegionAnalysis is the JSON document a vision model is asked to return
type RegionAnalysis struct {
	Regions []Region `json:"regions"`
}

// RegionQuery contains everything a vision client needs for one detection call
type RegionQuery struct {
	Model                      string
	Prompt                     string
	ImageB64                   string
	UsesCPUOnly                bool
	PreferBackgroundProcessing bool
}
