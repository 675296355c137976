package observability

import (
	"context"
	"net/http"
	"strconv"

	"github.com/aretw0/parley/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "parley"

// Metrics holds the collectors fed by the engine hooks.
type Metrics struct {
	registry *prometheus.Registry

	SessionsOpened prometheus.Counter
	SessionsClosed *prometheus.CounterVec
	SessionsActive prometheus.Gauge
	NodeVisits     *prometheus.CounterVec
	IntentMatches  *prometheus.CounterVec
	IntentScore    prometheus.Histogram
	Fallbacks      *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them, together with the
// Go runtime and process collectors, on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		SessionsOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_opened_total",
			Help:      "Total number of sessions opened",
		}),
		SessionsClosed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_closed_total",
			Help:      "Total number of sessions closed, by the phase they ended in",
		}, []string{"phase"}),
		SessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of sessions currently open on this instance",
		}),
		NodeVisits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "node_visits_total",
			Help:      "Total number of dialogue node visits",
		}, []string{"node_id"}),
		IntentMatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "intent_matches_total",
			Help:      "Total number of free-text replies, by confidence",
		}, []string{"low_confidence"}),
		IntentScore: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "intent_score",
			Help:      "Score of the selected intent entry",
			Buckets:   []float64{0, 10, 25, 50, 75, 100},
		}),
		Fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallbacks_total",
			Help:      "Total number of scripted turns answered with the fallback message",
		}, []string{"node_id"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.SessionsOpened,
		m.SessionsClosed,
		m.SessionsActive,
		m.NodeVisits,
		m.IntentMatches,
		m.IntentScore,
		m.Fallbacks,
	)
	return m
}

// Registry returns the registry the collectors live in.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Hooks returns lifecycle hooks that record into the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnSessionOpen: func(_ context.Context, _ *domain.SessionEvent) {
			m.SessionsOpened.Inc()
			m.SessionsActive.Inc()
		},
		OnSessionClose: func(_ context.Context, e *domain.SessionEvent) {
			m.SessionsClosed.WithLabelValues(string(e.Phase)).Inc()
			m.SessionsActive.Dec()
		},
		OnNodeEnter: func(_ context.Context, e *domain.NodeEvent) {
			m.NodeVisits.WithLabelValues(e.NodeID).Inc()
		},
		OnIntentMatch: func(_ context.Context, e *domain.IntentEvent) {
			m.IntentMatches.WithLabelValues(strconv.FormatBool(e.LowConfidence)).Inc()
			m.IntentScore.Observe(float64(e.Score))
		},
		OnFallback: func(_ context.Context, e *domain.FallbackEvent) {
			m.Fallbacks.WithLabelValues(e.NodeID).Inc()
		},
	}
}
