package ratelimit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the limiter's Prometheus collectors.
type Metrics struct {
	requestsTotal  *prometheus.CounterVec
	activeKeys     prometheus.Gauge
	evictionsTotal *prometheus.CounterVec
}

// NewMetrics registers the collectors with reg, or the default registerer
// when reg is nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		requestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ratelimit_requests_total",
			Help: "Rate limit checks by result (allowed, denied)",
		}, []string{"result"}),
		activeKeys: f.NewGauge(prometheus.GaugeOpts{
			Name: "ratelimit_active_keys",
			Help: "Keys currently tracked by the limiter",
		}),
		evictionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ratelimit_evictions_total",
			Help: "Keys dropped by reason (idle, capacity)",
		}, []string{"reason"}),
	}
}

func (m *Metrics) recordDecision(allowed bool) {
	if m == nil {
		return
	}
	if allowed {
		m.requestsTotal.WithLabelValues("allowed").Inc()
	} else {
		m.requestsTotal.WithLabelValues("denied").Inc()
	}
}

func (m *Metrics) setActiveKeys(n int) {
	if m != nil {
		m.activeKeys.Set(float64(n))
	}
}

func (m *Metrics) recordEvictions(reason string, n int) {
	if m != nil && n > 0 {
		m.evictionsTotal.WithLabelValues(reason).Add(float64(n))
	}
}
