// Package orientation maps image orientations to EXIF transform codes and
// applies those transforms to pixel data.
package orientation

import (
	"fmt"
	"image"
	"io"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"

	"github.com/menta2k/smart-cropper/pkg/types"
)

// Code is an EXIF/TIFF orientation tag value
type Code int

const (
	Identity   Code = 1 // stored upright
	FlipH      Code = 2
	Rotate180  Code = 3
	FlipV      Code = 4
	Transpose  Code = 5
	Rotate90CW Code = 6
	Transverse Code = 7
	Rotate90CC Code = 8
)

// Valid reports whether c is one of the eight EXIF codes
func (c Code) Valid() bool {
	return c >= Identity && c <= Rotate90CC
}

// FromOrientation returns the EXIF code for o. Request orientations carry
// EXIF numbering, so wire value N is code N. Unknown values map to Identity.
func FromOrientation(o types.Orientation) Code {
	c := Code(o)
	if !c.Valid() {
		return Identity
	}
	return c
}

// ToOrientation is the inverse of FromOrientation
func ToOrientation(c Code) types.Orientation {
	if !c.Valid() {
		return types.OrientationUp
	}
	return types.Orientation(c)
}

// Apply returns a copy of img transformed so that an image stored with
// orientation c becomes upright.
func Apply(img image.Image, c Code) *image.NRGBA {
	switch c {
	case FlipH:
		return imaging.FlipH(img)
	case Rotate180:
		return imaging.Rotate180(img)
	case FlipV:
		return imaging.FlipV(img)
	case Transpose:
		return imaging.Transpose(img)
	case Rotate90CW:
		// imaging rotates counter-clockwise
		return imaging.Rotate270(img)
	case Transverse:
		return imaging.Transverse(img)
	case Rotate90CC:
		return imaging.Rotate90(img)
	}
	return imaging.Clone(img)
}

// SwapsAxes reports whether applying c exchanges width and height
func SwapsAxes(c Code) bool {
	return c >= Transpose && c <= Rotate90CC
}

// ReadEXIF reads the stored orientation tag. Images without EXIF data or
// without the tag are reported as Identity.
func ReadEXIF(r io.Reader) (Code, error) {
	x, err := exif.Decode(r)
	if err != nil && (x == nil || exif.IsCriticalError(err)) {
		// PNG, GIF and most WebP files carry no EXIF block at all
		return Identity, nil
	}

	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return Identity, nil
	}

	v, err := tag.Int(0)
	if err != nil {
		return Identity, fmt.Errorf("invalid orientation tag: %w", err)
	}

	c := Code(v)
	if !c.Valid() {
		return Identity, nil
	}
	return c, nil
}
