package processing

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/png"
	"math"
	"os"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/menta2k/smart-cropper/pkg/errs"
	"github.com/menta2k/smart-cropper/pkg/orientation"
	"github.com/menta2k/smart-cropper/pkg/types"
)

// Processor handles image processing operations
type Processor struct{}

// NewProcessor creates a new image processor
func NewProcessor() *Processor {
	return &Processor{}
}

// SourceImage is a decoded image together with the orientation stored in its metadata
type SourceImage struct {
	Image             image.Image
	Width             int
	Height            int
	StoredOrientation types.Orientation
}

// Decode reads the image at path. The pixels are returned as stored; use
// Orient to bring them upright.
func (p *Processor) Decode(path string) (*SourceImage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	img, err := p.decodeImageFromBytes(data, path)
	if err != nil {
		return nil, err
	}

	code, err := orientation.ReadEXIF(bytes.NewReader(data))
	if err != nil {
		code = orientation.Identity
	}

	b := img.Bounds()
	return &SourceImage{
		Image:             img,
		Width:             b.Dx(),
		Height:            b.Dy(),
		StoredOrientation: orientation.ToOrientation(code),
	}, nil
}

// Orient applies the stored orientation so the returned image is upright.
// The result always reports OrientationUp.
func (p *Processor) Orient(src *SourceImage) *SourceImage {
	upright := orientation.Apply(src.Image, orientation.FromOrientation(src.StoredOrientation))
	b := upright.Bounds()
	return &SourceImage{
		Image:             upright,
		Width:             b.Dx(),
		Height:            b.Dy(),
		StoredOrientation: types.OrientationUp,
	}
}

// decodeImageFromBytes decodes an image from byte data with WebP support
func (p *Processor) decodeImageFromBytes(data []byte, name string) (image.Image, error) {
	// Orientation is handled by the caller, so auto orientation stays off here
	if img, err := imaging.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}

	if img, err := webp.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}

	return nil, fmt.Errorf("image: unknown or unsupported format for %s", name)
}

// Crop extracts rect from img after clamping it to the image bounds
func (p *Processor) Crop(img image.Image, rect image.Rectangle) (image.Image, error) {
	rect = rect.Intersect(img.Bounds())
	if rect.Empty() {
		return nil, errs.ErrEmptyCrop
	}
	return imaging.Crop(img, rect), nil
}

// Encode produces the file bytes of img. PNG is lossless and ignores quality.
func (p *Processor) Encode(img image.Image, format types.ImageFormat, quality float64) ([]byte, error) {
	var buf bytes.Buffer
	switch format {
	case types.FormatPNG:
		if err := imaging.Encode(&buf, img, imaging.PNG, imaging.PNGCompressionLevel(png.DefaultCompression)); err != nil {
			return nil, err
		}
	case types.FormatJPEG:
		if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(JPEGQuality(quality))); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
	return buf.Bytes(), nil
}

// JPEGQuality maps a compression quality in [0,1] to the encoder's 1..100 scale
func JPEGQuality(q float64) int {
	v := int(math.Round(clamp(q, 0, 1) * 100))
	if v < 1 {
		v = 1
	}
	return v
}

// PrepareImageForModel converts an image to base64 for sending to vision models
func (p *Processor) PrepareImageForModel(img image.Image, format string, maxDim int, quality int) (string, error) {
	if maxDim > 0 {
		img = FitForAnalysis(img, maxDim)
	}

	var buf bytes.Buffer
	switch strings.ToLower(format) {
	case "png":
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		if err := enc.Encode(&buf, img); err != nil {
			return "", err
		}
	default: // jpg
		if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
			return "", err
		}
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// FitForAnalysis downsizes img so that its long side is at most maxDim.
// Smaller images are returned unchanged.
func FitForAnalysis(img image.Image, maxDim int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxDim <= 0 || (w <= maxDim && h <= maxDim) {
		return img
	}
	if w >= h {
		return imaging.Resize(img, maxDim, 0, imaging.Lanczos)
	}
	return imaging.Resize(img, 0, maxDim, imaging.Lanczos)
}

// SaveImage writes img to path, picking the encoder from the format
func (p *Processor) SaveImage(img image.Image, path string, format types.ImageFormat, quality float64) error {
	data, err := p.Encode(img, format, quality)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// CreateDebugOverlay draws the pixel bounding boxes of results onto a copy of img
func (p *Processor) CreateDebugOverlay(img image.Image, boxes []types.BoundingBox) image.Image {
	nrgba := imaging.Clone(img)
	w := nrgba.Bounds().Dx()
	h := nrgba.Bounds().Dy()

	palette := []color.NRGBA{
		{0, 255, 0, 255},   // green
		{255, 204, 0, 255}, // gold
		{255, 0, 0, 255},   // red
		{0, 170, 255, 255}, // blue
	}
	stroke := int(math.Max(2, 0.004*float64(minInt(w, h)))) // ~0.4% of min side
	cross := int(math.Max(4, 0.01*float64(minInt(w, h))))   // ~1% of min side

	for i, bb := range boxes {
		c := palette[i%len(palette)]
		x0, y0, x1, y1 := boxToPixels(bb, w, h)
		drawBox(nrgba, x0, y0, x1, y1, c, stroke)

		// centre marker
		px, py := (x0+x1)/2, (y0+y1)/2
		drawHLine(nrgba, py, px-cross, px+cross, c)
		drawVLine(nrgba, px, py-cross, py+cross, c)
	}

	return nrgba
}

// Helper functions
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func boxToPixels(bb types.BoundingBox, w, h int) (int, int, int, int) {
	x0 := int(clamp(bb.X, 0, float64(w)) + 0.5)
	y0 := int(clamp(bb.Y, 0, float64(h)) + 0.5)
	x1 := int(clamp(bb.X+bb.Width, 0, float64(w)) + 0.5)
	y1 := int(clamp(bb.Y+bb.Height, 0, float64(h)) + 0.5)
	if x1 <= x0 {
		x1 = x0 + 1
	}
	if y1 <= y0 {
		y1 = y0 + 1
	}
	return x0, y0, x1, y1
}

func drawBox(img *image.NRGBA, x0, y0, x1, y1 int, color color.NRGBA, stroke int) {
	for s := 0; s < stroke; s++ {
		drawHLine(img, y0+s, x0, x1, color)
		drawHLine(img, y1-1-s, x0, x1, color)
		drawVLine(img, x0+s, y0, y1, color)
		drawVLine(img, x1-1-s, y0, y1, color)
	}
}

func drawHLine(img *image.NRGBA, y, x0, x1 int, c color.NRGBA) {
	if y < 0 || y >= img.Bounds().Dy() {
		return
	}
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	if x1 <= 0 || x0 >= img.Bounds().Dx() {
		return
	}
	if x0 < 0 {
		x0 = 0
	}
	if x1 > img.Bounds().Dx() {
		x1 = img.Bounds().Dx()
	}
	i := y*img.Stride + x0*4
	for x := x0; x < x1; x++ {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
		i += 4
	}
}

func drawVLine(img *image.NRGBA, x, y0, y1 int, c color.NRGBA) {
	if x < 0 || x >= img.Bounds().Dx() {
		return
	}
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	if y1 <= 0 || y0 >= img.Bounds().Dy() {
		return
	}
	if y0 < 0 {
		y0 = 0
	}
	if y1 > img.Bounds().Dy() {
		y1 = img.Bounds().Dy()
	}
	i := y0*img.Stride + x*4
	for y := y0; y < y1; y++ {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
		i += img.Stride
	}
}
