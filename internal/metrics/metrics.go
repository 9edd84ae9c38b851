// Package metrics exposes Prometheus counters for order form sessions.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sony/gobreaker/v2"
)

const namespace = "codform"

// Submission outcomes.
const (
	OutcomeCreated  = "created"
	OutcomeInvalid  = "invalid"
	OutcomeFailed   = "failed"
	OutcomeRejected = "rejected"
)

// Metrics holds the collectors of one server. All methods are no-ops on a
// nil *Metrics.
type Metrics struct {
	registry *prometheus.Registry

	SessionsTotal      *prometheus.CounterVec
	ActiveSessions     prometheus.Gauge
	FormsOpened        *prometheus.CounterVec
	Submissions        *prometheus.CounterVec
	ValidationErrors   *prometheus.CounterVec
	ConfigFetches      *prometheus.CounterVec
	StorefrontDuration *prometheus.HistogramVec
	BreakerState       *prometheus.GaugeVec
}

// New registers all collectors on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		SessionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "SSH sessions opened, by shop.",
		}, []string{"shop"}),
		ActiveSessions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "SSH sessions currently connected.",
		}),
		FormsOpened: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forms_opened_total",
			Help:      "Order forms opened, by mode (product or cart).",
		}, []string{"mode"}),
		Submissions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Order submissions, by outcome.",
		}, []string{"outcome"}),
		ValidationErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validation_errors_total",
			Help:      "Validation failures, by field.",
		}, []string{"field"}),
		ConfigFetches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "config_fetches_total",
			Help:      "Merchant configuration fetches, by result.",
		}, []string{"result"}),
		StorefrontDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "storefront_request_duration_seconds",
			Help:      "Storefront API request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		BreakerState: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open).",
		}, []string{"name"}),
	}
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// SessionStarted counts a new SSH session and returns a func that marks it
// finished.
func (m *Metrics) SessionStarted(shop string) func() {
	if m == nil {
		return func() {}
	}
	m.SessionsTotal.WithLabelValues(shop).Inc()
	m.ActiveSessions.Inc()
	return m.ActiveSessions.Dec
}

// FormOpened counts an opened order form.
func (m *Metrics) FormOpened(mode string) {
	if m == nil {
		return
	}
	m.FormsOpened.WithLabelValues(mode).Inc()
}

// Submission counts a submission attempt by outcome.
func (m *Metrics) Submission(outcome string) {
	if m == nil {
		return
	}
	m.Submissions.WithLabelValues(outcome).Inc()
}

// Invalid counts a rejected submission and each failing field.
func (m *Metrics) Invalid(fields []string) {
	if m == nil {
		return
	}
	m.Submissions.WithLabelValues(OutcomeInvalid).Inc()
	for _, f := range fields {
		m.ValidationErrors.WithLabelValues(f).Inc()
	}
}

// ConfigFetched counts a configuration lookup result.
func (m *Metrics) ConfigFetched(result string) {
	if m == nil {
		return
	}
	m.ConfigFetches.WithLabelValues(result).Inc()
}

// ObserveRequest records the latency of a storefront call started at start.
func (m *Metrics) ObserveRequest(endpoint string, start time.Time) {
	if m == nil {
		return
	}
	m.StorefrontDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}

// BreakerChanged records a circuit breaker transition.
func (m *Metrics) BreakerChanged(name string, to gobreaker.State) {
	if m == nil {
		return
	}
	m.BreakerState.WithLabelValues(name).Set(breakerValue(to))
}

func breakerValue(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	}
	return -1
}
