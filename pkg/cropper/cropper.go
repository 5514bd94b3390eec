// Package cropper runs a crop request: load, orient, detect, then cut,
// encode and write one file per region proposal.
package cropper

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/menta2k/smart-cropper/internal/metrics"
	"github.com/menta2k/smart-cropper/internal/utils"
	"github.com/menta2k/smart-cropper/pkg/detection"
	"github.com/menta2k/smart-cropper/pkg/errs"
	"github.com/menta2k/smart-cropper/pkg/options"
	"github.com/menta2k/smart-cropper/pkg/processing"
	"github.com/menta2k/smart-cropper/pkg/types"
)

// SmartCropper turns region proposals into cropped image files.
// It holds no per-request state and may serve concurrent requests.
type SmartCropper struct {
	detector    detection.Detector
	processor   *processing.Processor
	logger      *zap.Logger
	metrics     *metrics.Metrics
	outputDir   string
	concurrency int
}

// Option configures a SmartCropper
type Option func(*SmartCropper)

// WithLogger sets the request logger
func WithLogger(logger *zap.Logger) Option {
	return func(c *SmartCropper) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics records every request on m
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *SmartCropper) {
		c.metrics = m
	}
}

// WithOutputDir sets the scratch directory crops are written to
func WithOutputDir(dir string) Option {
	return func(c *SmartCropper) {
		c.outputDir = dir
	}
}

// WithConcurrency bounds how many proposals are cropped at once
func WithConcurrency(n int) Option {
	return func(c *SmartCropper) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// New creates a SmartCropper over detector. Crops go to os.TempDir()
// unless WithOutputDir is given.
func New(detector detection.Detector, opts ...Option) (*SmartCropper, error) {
	if detector == nil {
		return nil, errors.New("detector is required")
	}

	c := &SmartCropper{
		detector:    detector,
		processor:   processing.NewProcessor(),
		logger:      zap.NewNop(),
		outputDir:   os.TempDir(),
		concurrency: runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(c)
	}

	dir, err := filepath.Abs(c.outputDir)
	if err != nil {
		return nil, fmt.Errorf("invalid output directory: %w", err)
	}
	c.outputDir = dir

	return c, nil
}

// OutputDir returns the absolute scratch directory
func (c *SmartCropper) OutputDir() string {
	return c.outputDir
}

// Run serves one validated request. It returns one result per proposal, in
// detector order, or an *errs.Error and no files at all.
func (c *SmartCropper) Run(ctx context.Context, req options.Request) ([]types.CropResult, error) {
	start := time.Now()
	logger := c.logger.With(
		zap.String("path", req.Path),
		zap.Stringer("crop_type", req.CropType),
		zap.Stringer("save_format", req.SaveFormat),
	)

	results, err := c.run(ctx, req, logger)
	elapsed := time.Since(start)
	c.metrics.Observe(req.CropType, err, len(results), elapsed)

	if err != nil {
		logger.Warn("crop request failed", zap.Error(err), zap.Duration("elapsed", elapsed))
		return nil, err
	}

	logger.Info("crop request finished", zap.Int("results", len(results)), zap.Duration("elapsed", elapsed))
	return results, nil
}

func (c *SmartCropper) run(ctx context.Context, req options.Request, logger *zap.Logger) ([]types.CropResult, error) {
	if err := c.detector.Available(ctx, req.CropType); err != nil {
		return nil, detectionError(ctx, err)
	}

	src, err := c.processor.Decode(req.Path)
	if err != nil {
		return nil, errs.Load(req.Path, err)
	}
	if src.Width == 0 || src.Height == 0 {
		return nil, errs.Load(req.Path, errors.New("image has no pixels"))
	}

	// Pixels are normalized with the orientation stored in the file. The
	// request orientation only travels to the detector.
	upright := c.processor.Orient(src)
	logger.Debug("image loaded",
		zap.Int("width", upright.Width),
		zap.Int("height", upright.Height),
		zap.Stringer("stored_orientation", src.StoredOrientation),
		zap.Stringer("request_orientation", req.Orientation),
	)

	proposals, err := c.detector.Detect(ctx, detection.Input{
		Image:       upright.Image,
		Orientation: req.Orientation,
		Mode:        req.CropType,
		Hints: detection.Hints{
			UsesCPUOnly:                req.UsesCPUOnly,
			PreferBackgroundProcessing: req.PreferBackgroundProcessing,
		},
	})
	if err != nil {
		return nil, detectionError(ctx, err)
	}

	results := make([]types.CropResult, len(proposals))
	if len(proposals) == 0 {
		return results, nil
	}

	if err := utils.EnsureDir(c.outputDir); err != nil {
		return nil, errs.Write("", c.outputDir, err)
	}

	written := make([]string, len(proposals))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	for i, p := range proposals {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := c.cropOne(upright, p, req)
			if err != nil {
				return err
			}
			written[i] = res.Path
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if rmErr := utils.RemoveFiles(written); rmErr != nil {
			logger.Error("failed to remove crops of aborted request", zap.Error(rmErr))
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}

	return results, nil
}

// detectionError classifies a detector failure. Cancellation of the request
// is reported as the plain context error, like at every other stage.
func detectionError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return errs.Detection(err)
}

func (c *SmartCropper) cropOne(src *processing.SourceImage, p types.Proposal, req options.Request) (types.CropResult, error) {
	id := p.ID
	if id == "" {
		id = detection.NewID()
	}

	bb := ResultBox(p.Box, src.Width, src.Height)
	rect := CropRect(bb, src.Width, src.Height)

	sub, err := c.processor.Crop(src.Image, rect)
	if err != nil {
		return types.CropResult{}, errs.Encode(id, err)
	}

	data, err := c.processor.Encode(sub, req.SaveFormat, req.Quality)
	if err != nil {
		return types.CropResult{}, errs.Encode(id, err)
	}

	path := utils.CropFilename(c.outputDir, id, req.SaveFormat.Extension())
	if err := utils.WriteNewFile(path, data); err != nil {
		return types.CropResult{}, errs.Write(id, path, err)
	}

	res := types.CropResult{
		Path:        path,
		Confidence:  p.Confidence,
		BoundingBox: bb,
	}
	if req.CropType == types.CropFace && p.FaceCaptureQuality != nil {
		q := *p.FaceCaptureQuality
		res.FaceCaptureQuality = &q
	}
	return res, nil
}
