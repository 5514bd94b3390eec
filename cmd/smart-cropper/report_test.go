package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/menta2k/smart-cropper/internal/metrics"
	"github.com/menta2k/smart-cropper/pkg/types"
)

func TestLogCrops(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crop.png")
	require.NoError(t, os.WriteFile(path, make([]byte, 2048), 0o644))

	core, logs := observer.New(zap.InfoLevel)
	logCrops(zap.New(core), []types.CropResult{
		{Path: path, Confidence: 0.5},
		{Path: filepath.Join(t.TempDir(), "gone.png")},
	})

	entries := logs.All()
	require.Len(t, entries, 2)
	require.Equal(t, "2.0 KB", entries[0].ContextMap()["size"])
	require.Equal(t, "unknown", entries[1].ContextMap()["size"])
}

func TestLogMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	require.NoError(t, err)
	m.Observe(types.CropAttention, nil, 2, time.Millisecond)

	core, logs := observer.New(zap.InfoLevel)
	logMetrics(zap.New(core), reg)

	var names []string
	for _, e := range logs.FilterMessage("metrics").All() {
		names = append(names, e.ContextMap()["metric"].(string))
	}
	require.Contains(t, names, "smartcrop_requests_total")
	require.Contains(t, names, "smartcrop_proposals")
}
