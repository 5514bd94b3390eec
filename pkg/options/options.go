// Package options turns caller supplied crop options into a validated Request.
package options

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/menta2k/smart-cropper/pkg/errs"
	"github.com/menta2k/smart-cropper/pkg/types"
)

// Defaults applied to omitted fields
const (
	DefaultCropType    = types.CropAttention
	DefaultSaveFormat  = types.FormatJPEG
	DefaultQuality     = 1.0
	DefaultOrientation = types.OrientationUp
)

// Options is the request payload as it crosses the call boundary.
// Nil fields are treated as omitted.
type Options struct {
	Path                       string   `json:"path"`
	CropType                   *int     `json:"cropType,omitempty"`
	SaveFormat                 *int     `json:"saveFormat,omitempty"`
	Quality                    *float64 `json:"quality,omitempty"`
	PreferBackgroundProcessing *bool    `json:"preferBackgroundProcessing,omitempty"`
	UsesCPUOnly                *bool    `json:"usesCPUOnly,omitempty"`
	Orientation                *int     `json:"orientation,omitempty"`
}

// Request is a fully populated, validated crop request
type Request struct {
	Path                       string
	CropType                   types.CropType
	SaveFormat                 types.ImageFormat
	Quality                    float64
	PreferBackgroundProcessing bool
	UsesCPUOnly                bool
	Orientation                types.Orientation
}

// Normalize applies defaults and validates every field. It performs no I/O.
func Normalize(o Options) (Request, error) {
	req := Request{
		Path:        o.Path,
		CropType:    DefaultCropType,
		SaveFormat:  DefaultSaveFormat,
		Quality:     DefaultQuality,
		Orientation: DefaultOrientation,
	}

	if o.Path == "" {
		return Request{}, errs.Validation("path", "is required")
	}

	if o.Quality != nil {
		q := *o.Quality
		if math.IsNaN(q) || q < 0 || q > 1 {
			return Request{}, errs.Validation("quality", "must be within [0,1], got %v", q)
		}
		req.Quality = q
	}

	if o.CropType != nil {
		ct := types.CropType(*o.CropType)
		if !ct.Valid() {
			return Request{}, errs.Validation("cropType", "unrecognized value %d", *o.CropType)
		}
		req.CropType = ct
	}

	if o.SaveFormat != nil {
		f := types.ImageFormat(*o.SaveFormat)
		if !f.Valid() {
			return Request{}, errs.Validation("saveFormat", "unrecognized value %d", *o.SaveFormat)
		}
		req.SaveFormat = f
	}

	if o.Orientation != nil {
		or := types.Orientation(*o.Orientation)
		if !or.Valid() {
			return Request{}, errs.Validation("orientation", "unrecognized value %d", *o.Orientation)
		}
		req.Orientation = or
	}

	if o.PreferBackgroundProcessing != nil {
		req.PreferBackgroundProcessing = *o.PreferBackgroundProcessing
	}
	if o.UsesCPUOnly != nil {
		req.UsesCPUOnly = *o.UsesCPUOnly
	}

	return req, nil
}

// Parse decodes a JSON request payload and normalizes it
func Parse(data []byte) (Request, error) {
	var o Options
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&o); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return Request{}, errs.Validation(typeErr.Field, "expected %s, got %s", typeErr.Type, typeErr.Value)
		}
		return Request{}, &errs.Error{Kind: errs.KindValidation, Msg: "malformed request payload", Err: err}
	}
	return Normalize(o)
}

// Options converts a normalized request back into its boundary form
func (r Request) Options() Options {
	ct, sf, or := int(r.CropType), int(r.SaveFormat), int(r.Orientation)
	q, bg, cpu := r.Quality, r.PreferBackgroundProcessing, r.UsesCPUOnly
	return Options{
		Path:                       r.Path,
		CropType:                   &ct,
		SaveFormat:                 &sf,
		Quality:                    &q,
		PreferBackgroundProcessing: &bg,
		UsesCPUOnly:                &cpu,
		Orientation:                &or,
	}
}

func (r Request) String() string {
	return fmt.Sprintf("%s mode=%s format=%s quality=%.2f orientation=%s",
		r.Path, r.CropType, r.SaveFormat, r.Quality, r.Orientation)
}

// Int returns a pointer to v, for building Options literals
func Int(v int) *int { return &v }

// Float returns a pointer to v
func Float(v float64) *float64 { return &v }

// Bool returns a pointer to v
func Bool(v bool) *bool { return &v }
