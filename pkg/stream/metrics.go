package stream

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Tick results recorded in facecam_ticks_total.
const (
	ResultPublished = "published"
	ResultPaused    = "paused"
	ResultReadError = "read_error"
	ResultError     = "error"
)

// Metrics exposes scheduler counters. A nil *Metrics records nothing.
type Metrics struct {
	Ticks        *prometheus.CounterVec
	TickDuration prometheus.Histogram
	Faces        prometheus.Gauge
	Snapshots    *prometheus.CounterVec
	State        prometheus.Gauge
}

// NewMetrics creates the scheduler metrics and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Ticks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "facecam_ticks_total",
			Help: "Scheduler ticks by result.",
		}, []string{"result"}),
		TickDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "facecam_tick_duration_seconds",
			Help:    "Time spent processing one running tick.",
			Buckets: []float64{.001, .0025, .005, .01, .02, .033, .05, .1, .25},
		}),
		Faces: f.NewGauge(prometheus.GaugeOpts{
			Name: "facecam_faces_detected",
			Help: "Regions returned by the detector on the last tick.",
		}),
		Snapshots: f.NewCounterVec(prometheus.CounterOpts{
			Name: "facecam_snapshots_total",
			Help: "Snapshot attempts by result.",
		}, []string{"result"}),
		State: f.NewGauge(prometheus.GaugeOpts{
			Name: "facecam_stream_state",
			Help: "Stream state (0 stopped, 1 running, 2 paused).",
		}),
	}
}

func (m *Metrics) tick(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.Ticks.WithLabelValues(result).Inc()
	if result == ResultPublished {
		m.TickDuration.Observe(d.Seconds())
	}
}

func (m *Metrics) faces(n int) {
	if m == nil {
		return
	}
	m.Faces.Set(float64(n))
}

func (m *Metrics) snapshot(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Snapshots.WithLabelValues(result).Inc()
}

func (m *Metrics) state(s State) {
	if m == nil {
		return
	}
	m.State.Set(float64(s))
}
