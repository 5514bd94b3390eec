package main

import (
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/menta2k/smart-cropper/internal/metrics"
	"github.com/menta2k/smart-cropper/internal/utils"
	"github.com/menta2k/smart-cropper/pkg/types"
)

// cropSize returns the human readable size of a written crop
func cropSize(path string) string {
	info, err := os.Stat(path)
	if err != nil {
		return "unknown"
	}
	return utils.FormatFileSize(info.Size())
}

func logCrops(logger *zap.Logger, results []types.CropResult) {
	for _, r := range results {
		logger.Info("wrote crop",
			zap.String("path", r.Path),
			zap.String("size", cropSize(r.Path)),
			zap.Float64("confidence", r.Confidence),
		)
	}
}

// logMetrics prints the run's request metrics once all inputs are done
func logMetrics(logger *zap.Logger, g prometheus.Gatherer) {
	samples, err := metrics.Summarize(g)
	if err != nil {
		logger.Warn("failed to gather metrics", zap.Error(err))
		return
	}
	for _, s := range samples {
		fields := []zap.Field{zap.String("metric", s.Name), zap.Any("labels", s.Labels), zap.Float64("value", s.Value)}
		if s.Count > 0 {
			fields = append(fields, zap.Uint64("count", s.Count))
		}
		logger.Info("metrics", fields...)
	}
}
