package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/smart-cropper/pkg/errs"
	"github.com/menta2k/smart-cropper/pkg/types"
)

func TestObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)

	m.Observe(types.CropFace, nil, 3, 20*time.Millisecond)
	m.Observe(types.CropFace, errs.Detection(errs.ErrUnsupported), 0, time.Millisecond)
	m.Observe(types.CropAttention, nil, 0, time.Millisecond)

	require.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("face", "ok")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("face", "detection")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("attention", "ok")))
	require.Equal(t, 2, testutil.CollectAndCount(m.duration))
}

func TestNewRejectsDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)

	_, err = New(reg)
	require.Error(t, err)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.Observe(types.CropObjectness, nil, 1, time.Second)
}

func TestOutcome(t *testing.T) {
	require.Equal(t, "ok", Outcome(nil))
	require.Equal(t, "validation", Outcome(errs.Validation("quality", "out of range")))
	require.Equal(t, "unknown", Outcome(errors.New("plain")))
}

func TestSummarize(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)

	m.Observe(types.CropFace, nil, 3, 20*time.Millisecond)
	m.Observe(types.CropFace, nil, 1, 10*time.Millisecond)
	m.Observe(types.CropObjectness, errs.Load("x.jpg", errors.New("gone")), 0, time.Millisecond)

	samples, err := Summarize(reg)
	require.NoError(t, err)

	find := func(name string, labels map[string]string) Sample {
		t.Helper()
		for _, s := range samples {
			if s.Name == name && (labels == nil || equalLabels(s.Labels, labels)) {
				return s
			}
		}
		t.Fatalf("no sample %s %v", name, labels)
		return Sample{}
	}

	require.Equal(t, 2.0, find("smartcrop_requests_total", map[string]string{"crop_type": "face", "outcome": "ok"}).Value)
	require.Equal(t, 1.0, find("smartcrop_requests_total", map[string]string{"crop_type": "objectness", "outcome": "load"}).Value)

	proposals := find("smartcrop_proposals", nil)
	require.Equal(t, uint64(2), proposals.Count)
	require.Equal(t, 4.0, proposals.Value)

	require.Equal(t, uint64(2), find("smartcrop_request_duration_seconds", map[string]string{"crop_type": "face"}).Count)
}

func TestSummarizeEmptyRegistry(t *testing.T) {
	samples, err := Summarize(prometheus.NewRegistry())
	require.NoError(t, err)
	require.Empty(t, samples)
}

func equalLabels(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range b {
		if a[k] != v {
			return false
		}
	}
	return true
}
