package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service. A nil
// *Metrics is valid and records nothing, so tests can skip registration.
type Metrics struct {
	ContextRequests      *prometheus.CounterVec
	Compactions          *prometheus.CounterVec
	TurnsSaved           prometheus.Counter
	ContextLatency       prometheus.Histogram
	ChatLatency          prometheus.Histogram
	BackgroundQueueDepth prometheus.Gauge
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		ContextRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "context_requests_total",
			Help:      "Memory context requests by retrieval mode.",
		}, []string{"mode"}),
		Compactions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "compactions_total",
			Help:      "Summary compactions by outcome.",
		}, []string{"outcome"}),
		TurnsSaved: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_saved_total",
			Help:      "Conversation turns persisted.",
		}),
		ContextLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "context_latency_ms",
			Help:      "Latency of memory context retrieval in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000},
		}),
		ChatLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chat_latency_ms",
			Help:      "End-to-end chat response latency in milliseconds.",
			Buckets:   []float64{250, 500, 1000, 2000, 4000, 8000, 16000},
		}),
		BackgroundQueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "background_queue_depth",
			Help:      "Jobs waiting in the background worker pool.",
		}),
	}
}

func (m *Metrics) ObserveContextRequest(mode string) {
	if m == nil {
		return
	}
	m.ContextRequests.WithLabelValues(mode).Inc()
}

func (m *Metrics) ObserveCompaction(outcome string) {
	if m == nil {
		return
	}
	m.Compactions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveTurnSaved() {
	if m == nil {
		return
	}
	m.TurnsSaved.Inc()
}

func (m *Metrics) ObserveContextLatency(d time.Duration) {
	if m == nil {
		return
	}
	m.ContextLatency.Observe(float64(d.Milliseconds()))
}

func (m *Metrics) ObserveChatLatency(d time.Duration) {
	if m == nil {
		return
	}
	m.ChatLatency.Observe(float64(d.Milliseconds()))
}

func (m *Metrics) SetBackgroundQueueDepth(depth int) {
	if m == nil {
		return
	}
	m.BackgroundQueueDepth.Set(float64(depth))
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
