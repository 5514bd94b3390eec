package detection

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/muesli/smartcrop"
	"github.com/muesli/smartcrop/nfnt"
	"go.uber.org/zap"

	"github.com/menta2k/smart-cropper/pkg/face"
	"github.com/menta2k/smart-cropper/pkg/orientation"
	"github.com/menta2k/smart-cropper/pkg/processing"
	"github.com/menta2k/smart-cropper/pkg/types"
	"github.com/menta2k/smart-cropper/pkg/vision"
)

// EngineConfig holds configuration for the local detection engine
type EngineConfig struct {
	// AnalysisMaxSide is the long side images are shrunk to before analysis
	AnalysisMaxSide int
	// BackgroundMaxSide replaces AnalysisMaxSide when background processing is preferred
	BackgroundMaxSide int
	// AspectRatios yields one attention proposal per entry
	AspectRatios []vision.AspectRatio
	Subjects     vision.DetectionConfig
}

// DefaultEngineConfig returns the engine defaults
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		AnalysisMaxSide:   1024,
		BackgroundMaxSide: 512,
		AspectRatios:      []vision.AspectRatio{vision.Square},
		Subjects:          vision.DefaultConfig(),
	}
}

// Engine runs detection in process. Attention uses content-aware crop
// search, objectness the saliency region detector, faces the face backend.
type Engine struct {
	config    EngineConfig
	attention smartcrop.Analyzer
	subjects  *vision.SubjectDetector
	faces     face.Detector
	logger    *zap.Logger
}

var _ Detector = (*Engine)(nil)

// NewEngine creates a local engine. Without WithFaceDetector the OpenCV
// cascade backend is used, which is unavailable unless built with gocv.
func NewEngine(config EngineConfig, opts ...Option) *Engine {
	s := newSettings(opts)
	if s.faces == nil {
		s.faces = face.NewCascadeDetector(face.DefaultConfig())
	}
	if len(config.AspectRatios) == 0 {
		config.AspectRatios = []vision.AspectRatio{vision.Square}
	}

	return &Engine{
		config:    config,
		attention: smartcrop.NewAnalyzer(nfnt.NewDefaultResizer()),
		subjects:  vision.NewWithConfig(config.Subjects),
		faces:     s.faces,
		logger:    s.logger,
	}
}

// Available reports whether mode can run
func (e *Engine) Available(ctx context.Context, mode types.CropType) error {
	switch mode {
	case types.CropAttention, types.CropObjectness:
		return nil
	case types.CropFace:
		return e.faces.Available()
	}
	return unsupportedMode(mode)
}

// Detect analyzes in.Image under in.Orientation and returns proposals
func (e *Engine) Detect(ctx context.Context, in Input) ([]types.Proposal, error) {
	if in.Image == nil {
		return nil, errors.New("no image to analyze")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img := orientation.Apply(in.Image, orientation.FromOrientation(in.Orientation))

	maxSide := e.config.AnalysisMaxSide
	if in.Hints.PreferBackgroundProcessing && e.config.BackgroundMaxSide > 0 {
		maxSide = e.config.BackgroundMaxSide
	}
	analysis := processing.FitForAnalysis(img, maxSide)

	var (
		proposals []types.Proposal
		err       error
	)
	switch in.Mode {
	case types.CropAttention:
		proposals, err = e.detectAttention(analysis)
	case types.CropObjectness:
		proposals, err = e.detectObjects(analysis)
	case types.CropFace:
		proposals, err = e.detectFaces(ctx, analysis)
	default:
		return nil, unsupportedMode(in.Mode)
	}
	if err != nil {
		return nil, err
	}

	e.logger.Debug("detection finished",
		zap.Stringer("mode", in.Mode),
		zap.Stringer("orientation", in.Orientation),
		zap.Int("analysis_width", analysis.Bounds().Dx()),
		zap.Int("analysis_height", analysis.Bounds().Dy()),
		zap.Bool("cpu_only", in.Hints.UsesCPUOnly),
		zap.Int("proposals", len(proposals)),
	)

	return proposals, nil
}

func (e *Engine) detectAttention(img image.Image) ([]types.Proposal, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	saliency := e.subjects.SaliencyMap(img)

	proposals := make([]types.Proposal, 0, len(e.config.AspectRatios))
	for _, ratio := range e.config.AspectRatios {
		cw, ch := ratio.CropSize(w, h)

		crop, err := e.attention.FindBestCrop(img, cw, ch)
		if err != nil {
			return nil, fmt.Errorf("attention crop %s: %w", ratio.Name, err)
		}
		crop = crop.Sub(b.Min).Intersect(image.Rect(0, 0, w, h))

		proposals = append(proposals, types.Proposal{
			ID:         NewID(),
			Box:        PixelRectToBox(crop, w, h),
			Confidence: vision.MassFraction(saliency, crop),
		})
	}

	return proposals, nil
}

func (e *Engine) detectObjects(img image.Image) ([]types.Proposal, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	regions, err := e.subjects.DetectSubjects(img)
	if err != nil {
		return nil, err
	}

	proposals := make([]types.Proposal, 0, len(regions))
	if len(regions) == 0 {
		return proposals, nil
	}

	top := regions[0].Score
	for _, r := range regions {
		confidence := 1.0
		if top > 0 {
			confidence = r.Score / top
		}
		proposals = append(proposals, types.Proposal{
			ID:         NewID(),
			Box:        PixelRectToBox(r.Rect(), w, h),
			Confidence: clamp(confidence, 0, 1),
		})
	}

	return proposals, nil
}

func (e *Engine) detectFaces(ctx context.Context, img image.Image) ([]types.Proposal, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	faces, err := e.faces.Detect(ctx, img)
	if err != nil {
		return nil, err
	}

	proposals := make([]types.Proposal, 0, len(faces))
	for _, f := range faces {
		quality := clamp(f.Quality, 0, 1)
		proposals = append(proposals, types.Proposal{
			ID:                 NewID(),
			Box:                PixelRectToBox(f.Rect.Sub(b.Min), w, h),
			Confidence:         clamp(f.Confidence, 0, 1),
			FaceCaptureQuality: &quality,
		})
	}

	return proposals, nil
}
