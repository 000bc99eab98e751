package arbiter

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	acquisitions *prometheus.CounterVec
	timeouts     *prometheus.CounterVec
	wait         *prometheus.HistogramVec
	held         *prometheus.GaugeVec
}

// newMetrics builds the collectors; a nil reg leaves them unregistered.
func newMetrics(reg prometheus.Registerer) *metrics {
	f := promauto.With(reg)
	return &metrics{
		acquisitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ftsq",
			Subsystem: "arbiter",
			Name:      "acquisitions_total",
			Help:      "Writer leases granted",
		}, []string{"index"}),
		timeouts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ftsq",
			Subsystem: "arbiter",
			Name:      "timeouts_total",
			Help:      "Writer acquisitions that timed out",
		}, []string{"index"}),
		wait: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ftsq",
			Subsystem: "arbiter",
			Name:      "wait_seconds",
			Help:      "Time spent waiting for a writer lease",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"index"}),
		held: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "ftsq",
			Subsystem: "arbiter",
			Name:      "held",
			Help:      "Writer leases currently held (0 or 1 per index)",
		}, []string{"index"}),
	}
}

func (m *metrics) acquired(name string, waited time.Duration) {
	m.acquisitions.WithLabelValues(name).Inc()
	m.wait.WithLabelValues(name).Observe(waited.Seconds())
	m.held.WithLabelValues(name).Set(1)
}

func (m *metrics) released(name string) {
	m.held.WithLabelValues(name).Set(0)
}

func (m *metrics) timedOut(name string) {
	m.timeouts.WithLabelValues(name).Inc()
}
