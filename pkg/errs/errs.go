// Package errs defines the error kinds a crop request can fail with.
//
// Every failure of a request is terminal: callers receive either the complete
// result list or a single *Error whose Kind can be checked with KindOf.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a request failure
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindLoad
	KindDetection
	KindEncode
	KindWrite
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindLoad:
		return "load"
	case KindDetection:
		return "detection"
	case KindEncode:
		return "encode"
	case KindWrite:
		return "write"
	}
	return "unknown"
}

var (
	// ErrUnsupported is returned when the host cannot provide the requested detection
	ErrUnsupported = errors.New("unsupported")

	// ErrEmptyCrop is returned when a region lies completely outside the image
	ErrEmptyCrop = errors.New("empty crop rectangle")
)

// Error is the typed failure returned at the request boundary
type Error struct {
	Kind       Kind
	Field      string
	Path       string
	ProposalID string
	Msg        string
	Err        error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	b.WriteString(" error")
	switch {
	case e.Field != "":
		fmt.Fprintf(&b, " (%s)", e.Field)
	case e.ProposalID != "":
		fmt.Fprintf(&b, " (proposal %s)", e.ProposalID)
	case e.Path != "":
		fmt.Fprintf(&b, " (%s)", e.Path)
	}
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of the first *Error in err's chain
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Validation reports a bad option value
func Validation(field, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Field: field, Msg: fmt.Sprintf(format, args...)}
}

// Load reports an unreadable source image
func Load(path string, err error) *Error {
	return &Error{Kind: KindLoad, Path: path, Msg: "failed to load image", Err: err}
}

// Detection reports a failure of the detection capability
func Detection(err error) *Error {
	var e *Error
	if errors.As(err, &e) && e.Kind == KindDetection {
		return e
	}
	return &Error{Kind: KindDetection, Msg: "detection failed", Err: err}
}

// Encode reports a failure to produce the bytes of one crop
func Encode(proposalID string, err error) *Error {
	return &Error{Kind: KindEncode, ProposalID: proposalID, Msg: "failed to encode crop", Err: err}
}

// Write reports a failure to persist one crop
func Write(proposalID, path string, err error) *Error {
	return &Error{Kind: KindWrite, ProposalID: proposalID, Path: path, Msg: "failed to write crop", Err: err}
}
