package colorpages

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Render outcomes used as the "outcome" label.
const (
	outcomeOK       = "ok"
	outcomeNotFound = "not_found"
	outcomeError    = "error"
)

// Metrics holds the Prometheus collectors of a Handler. A nil *Metrics records nothing.
type Metrics struct {
	// Renders counts render passes by route pattern and outcome.
	Renders *prometheus.CounterVec

	// RenderDuration tracks the time spent rendering a page or a live update.
	RenderDuration *prometheus.HistogramVec

	// LiveSessions tracks open live navigation connections.
	LiveSessions prometheus.Gauge

	// Navigations counts navigation messages received over live connections.
	Navigations prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Renders: f.NewCounterVec(prometheus.CounterOpts{
			Name: "colorpages_renders_total",
			Help: "Total render passes by route and outcome",
		}, []string{"route", "outcome"}),
		RenderDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "colorpages_render_duration_seconds",
			Help:    "Render duration in seconds",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}, []string{"mode"}),
		LiveSessions: f.NewGauge(prometheus.GaugeOpts{
			Name: "colorpages_live_sessions",
			Help: "Current live navigation connections",
		}),
		Navigations: f.NewCounter(prometheus.CounterOpts{
			Name: "colorpages_navigations_total",
			Help: "Total navigation messages received over live connections",
		}),
	}
}

func (m *Metrics) observeRender(pattern, outcome, mode string, start time.Time) {
	if m == nil {
		return
	}
	if pattern == "" {
		pattern = "none"
	}
	m.Renders.WithLabelValues(pattern, outcome).Inc()
	m.RenderDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
}

func (m *Metrics) sessionStarted() {
	if m == nil {
		return
	}
	m.LiveSessions.Inc()
}

func (m *Metrics) sessionEnded() {
	if m == nil {
		return
	}
	m.LiveSessions.Dec()
}

func (m *Metrics) navigated() {
	if m == nil {
		return
	}
	m.Navigations.Inc()
}
