package detection

import (
	"go.uber.org/zap"

	"github.com/menta2k/smart-cropper/pkg/face"
)

// Option configures an Engine or a Remote
type Option func(*settings)

type settings struct {
	logger *zap.Logger
	faces  face.Detector
}

func newSettings(opts []Option) settings {
	s := settings{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// WithLogger sets the logger used for detection diagnostics
func WithLogger(logger *zap.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithFaceDetector replaces the engine's face backend
func WithFaceDetector(d face.Detector) Option {
	return func(s *settings) {
		s.faces = d
	}
}
