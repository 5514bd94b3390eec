package detection

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/menta2k/smart-cropper/pkg/client"
	"github.com/menta2k/smart-cropper/pkg/errs"
	"github.com/menta2k/smart-cropper/pkg/orientation"
	"github.com/menta2k/smart-cropper/pkg/processing"
	"github.com/menta2k/smart-cropper/pkg/types"
)

// RemoteConfig holds configuration for model backed detection
type RemoteConfig struct {
	Model string
	// MaxSide is the long side of the image sent to the model
	MaxSide int
	// JPEGQuality is the 1..100 quality of the image sent to the model
	JPEGQuality int
}

// DefaultRemoteConfig returns the remote defaults
func DefaultRemoteConfig() RemoteConfig {
	return RemoteConfig{
		Model:       "llava",
		MaxSide:     1024,
		JPEGQuality: 85,
	}
}

// Remote handles region detection using vision models
type Remote struct {
	client    client.VisionClient
	config    RemoteConfig
	processor *processing.Processor
	logger    *zap.Logger
}

var _ Detector = (*Remote)(nil)

// NewRemote creates a detector backed by a vision model client
func NewRemote(c client.VisionClient, config RemoteConfig, opts ...Option) *Remote {
	s := newSettings(opts)
	if config.MaxSide <= 0 {
		config.MaxSide = DefaultRemoteConfig().MaxSide
	}
	if config.JPEGQuality <= 0 {
		config.JPEGQuality = DefaultRemoteConfig().JPEGQuality
	}
	return &Remote{
		client:    c,
		config:    config,
		processor: processing.NewProcessor(),
		logger:    s.logger,
	}
}

// Available pings the model server
func (r *Remote) Available(ctx context.Context, mode types.CropType) error {
	if !mode.Valid() {
		return unsupportedMode(mode)
	}
	if err := r.client.Ping(ctx); err != nil {
		return fmt.Errorf("%w: vision server unreachable: %v", errs.ErrUnsupported, err)
	}
	return nil
}

// Detect sends the image to the model and converts its regions to proposals
func (r *Remote) Detect(ctx context.Context, in Input) ([]types.Proposal, error) {
	if in.Image == nil {
		return nil, errors.New("no image to analyze")
	}
	prompt := RegionPrompt(in.Mode)
	if prompt == "" {
		return nil, unsupportedMode(in.Mode)
	}

	img := orientation.Apply(in.Image, orientation.FromOrientation(in.Orientation))

	maxSide := r.config.MaxSide
	if in.Hints.PreferBackgroundProcessing {
		maxSide /= 2
	}

	imgB64, err := r.processor.PrepareImageForModel(img, "jpg", maxSide, r.config.JPEGQuality)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare image: %w", err)
	}

	analysis, err := r.client.DetectRegions(ctx, types.RegionQuery{
		Model:                      r.config.Model,
		Prompt:                     prompt,
		ImageB64:                   imgB64,
		UsesCPUOnly:                in.Hints.UsesCPUOnly,
		PreferBackgroundProcessing: in.Hints.PreferBackgroundProcessing,
	})
	if err != nil {
		return nil, err
	}

	proposals := r.toProposals(analysis, in.Mode)

	r.logger.Debug("model detection finished",
		zap.String("model", r.config.Model),
		zap.Stringer("mode", in.Mode),
		zap.Int("regions", len(analysis.Regions)),
		zap.Int("proposals", len(proposals)),
	)

	return proposals, nil
}

// TestVision tests if the model can actually see the image with a simple prompt
func (r *Remote) TestVision(ctx context.Context, imageB64 string) (string, error) {
	return r.client.SimpleQuery(ctx, r.config.Model, SimpleTestPrompt, imageB64)
}

// toProposals keeps usable regions, in model order, as bottom-left proposals
func (r *Remote) toProposals(analysis *types.RegionAnalysis, mode types.CropType) []types.Proposal {
	proposals := make([]types.Proposal, 0, len(analysis.Regions))
	for _, region := range analysis.Regions {
		if strings.EqualFold(strings.TrimSpace(region.Label), "none") {
			continue
		}

		box := normalizeBox(region.Box)
		if box.W <= 0 || box.H <= 0 {
			continue
		}

		p := types.Proposal{
			ID:         NewID(),
			Box:        FlipY(box),
			Confidence: clamp(region.Confidence, 0, 1),
		}
		if mode == types.CropFace && region.Quality != nil {
			q := clamp(*region.Quality, 0, 1)
			p.FaceCaptureQuality = &q
		}
		proposals = append(proposals, p)
	}
	return proposals
}
