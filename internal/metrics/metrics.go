// Package metrics exposes Prometheus instrumentation for crop requests.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/menta2k/smart-cropper/pkg/errs"
	"github.com/menta2k/smart-cropper/pkg/types"
)

const namespace = "smartcrop"

// Metrics records request outcomes. A nil *Metrics records nothing.
type Metrics struct {
	requests  *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	proposals prometheus.Histogram
}

// New creates the collectors and registers them on reg
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Crop requests by crop type and outcome.",
		}, []string{"crop_type", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Time spent serving a crop request.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"crop_type"}),
		proposals: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "proposals",
			Help:      "Region proposals returned per successful request.",
			Buckets:   []float64{0, 1, 2, 4, 8, 16, 32},
		}),
	}

	for _, c := range []prometheus.Collector{m.requests, m.duration, m.proposals} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Outcome returns the label for a request that ended with err
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return errs.KindOf(err).String()
}

// Observe records one finished request
func (m *Metrics) Observe(cropType types.CropType, err error, proposals int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(cropType.String(), Outcome(err)).Inc()
	m.duration.WithLabelValues(cropType.String()).Observe(elapsed.Seconds())
	if err == nil {
		m.proposals.Observe(float64(proposals))
	}
}

// Sample is one gathered series
type Sample struct {
	Name   string
	Labels map[string]string
	// Value is the counter or gauge value, or the sum of observations for histograms
	Value float64
	// Count is the number of histogram observations
	Count uint64
}

// Summarize gathers every series from g, ordered by family name
func Summarize(g prometheus.Gatherer) ([]Sample, error) {
	families, err := g.Gather()
	if err != nil {
		return nil, err
	}

	var out []Sample
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			s := Sample{Name: mf.GetName(), Labels: make(map[string]string, len(m.GetLabel()))}
			for _, lp := range m.GetLabel() {
				s.Labels[lp.GetName()] = lp.GetValue()
			}
			switch {
			case m.GetCounter() != nil:
				s.Value = m.GetCounter().GetValue()
			case m.GetHistogram() != nil:
				s.Value = m.GetHistogram().GetSampleSum()
				s.Count = m.GetHistogram().GetSampleCount()
			case m.GetGauge() != nil:
				s.Value = m.GetGauge().GetValue()
			}
			out = append(out, s)
		}
	}
	return out, nil
}
