// Package detectiontest provides a deterministic detection.Detector for tests.
package detectiontest

import (
	"context"
	"sync"

	"github.com/menta2k/smart-cropper/pkg/detection"
	"github.com/menta2k/smart-cropper/pkg/types"
)

// Static returns fixed proposals
type Static struct {
	Proposals []types.Proposal
	// Err is returned from Detect when set
	Err error
	// Unavailable is returned from Available when set
	Unavailable error

	mu    sync.Mutex
	calls int
	last  detection.Input
}

var _ detection.Detector = (*Static)(nil)

// Available returns s.Unavailable
func (s *Static) Available(ctx context.Context, mode types.CropType) error {
	return s.Unavailable
}

// Detect records in and returns a copy of s.Proposals, or s.Err
func (s *Static) Detect(ctx context.Context, in detection.Input) ([]types.Proposal, error) {
	s.mu.Lock()
	s.calls++
	s.last = in
	s.mu.Unlock()

	if s.Err != nil {
		return nil, s.Err
	}
	out := make([]types.Proposal, len(s.Proposals))
	copy(out, s.Proposals)
	return out, nil
}

// Calls returns how many times Detect ran
func (s *Static) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// LastInput returns the input of the latest Detect call
func (s *Static) LastInput() detection.Input {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Proposal builds a proposal with a fixed id
func Proposal(id string, x, y, w, h, confidence float64) types.Proposal {
	return types.Proposal{
		ID:         id,
		Box:        types.Box{X: x, Y: y, W: w, H: h},
		Confidence: confidence,
	}
}

// FaceProposal builds a face proposal carrying a capture quality
func FaceProposal(id string, x, y, w, h, confidence, quality float64) types.Proposal {
	p := Proposal(id, x, y, w, h, confidence)
	p.FaceCaptureQuality = &quality
	return p
}
