package metrics

import "github.com/prometheus/client_golang/prometheus"

// PortalMetrics exposes counters, histograms and gauges for the session
// manager and the portal views.
type PortalMetrics struct {
	authTotal      *prometheus.CounterVec
	authLatency    *prometheus.HistogramVec
	profileFetches *prometheus.CounterVec
	viewFetches    *prometheus.CounterVec
	activeSessions prometheus.Gauge
}

func NewPortalMetrics(reg prometheus.Registerer) *PortalMetrics {
	m := &PortalMetrics{
		authTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portal",
			Subsystem: "session",
			Name:      "auth_operations_total",
			Help:      "Signup, login and logout attempts by outcome",
		}, []string{"operation", "outcome"}),
		authLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "portal",
			Subsystem: "session",
			Name:      "auth_operation_seconds",
			Help:      "Latency of identity provider operations",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		profileFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portal",
			Subsystem: "session",
			Name:      "profile_fetch_total",
			Help:      "Profile lookups during session resolution by outcome",
		}, []string{"outcome"}),
		viewFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portal",
			Subsystem: "views",
			Name:      "fetch_total",
			Help:      "View queries by source (store, sample, error)",
		}, []string{"view", "source"}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "portal",
			Subsystem: "session",
			Name:      "active",
			Help:      "Session managers currently running",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.authTotal, m.authLatency, m.profileFetches, m.viewFetches, m.activeSessions)
	return m
}

func (m *PortalMetrics) ObserveAuth(operation string, err error, seconds float64) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.authTotal.WithLabelValues(operation, outcome).Inc()
	m.authLatency.WithLabelValues(operation).Observe(seconds)
}

// ObserveProfileFetch records outcome as one of found, missing, error.
func (m *PortalMetrics) ObserveProfileFetch(outcome string) {
	if m == nil {
		return
	}
	m.profileFetches.WithLabelValues(outcome).Inc()
}

func (m *PortalMetrics) ObserveView(view, source string) {
	if m == nil {
		return
	}
	m.viewFetches.WithLabelValues(view, source).Inc()
}

func (m *PortalMetrics) SessionStarted() {
	if m == nil {
		return
	}
	m.activeSessions.Inc()
}

func (m *PortalMetrics) SessionEnded() {
	if m == nil {
		return
	}
	m.activeSessions.Dec()
}
