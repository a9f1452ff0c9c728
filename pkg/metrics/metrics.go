package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	rateLimitWaits   *prometheus.CounterVec
	providerRetries  *prometheus.CounterVec
	providerFailures *prometheus.CounterVec
	queryOutcomes    *prometheus.CounterVec
	queryLatency     *prometheus.HistogramVec
	indexedChunks    prometheus.Counter
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		rateLimitWaits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rag",
			Name:      "rate_limit_waits_total",
			Help:      "Times a provider call blocked on its rate budget.",
		}, []string{"provider", "model", "reason"}),
		providerRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rag",
			Name:      "provider_retries_total",
			Help:      "Retries after a throttling response.",
		}, []string{"provider", "model"}),
		providerFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rag",
			Name:      "provider_failures_total",
			Help:      "Provider calls that failed after the retry policy.",
		}, []string{"provider", "model", "kind"}),
		queryOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rag",
			Name:      "query_outcomes_total",
			Help:      "Processed queries by outcome and language.",
		}, []string{"outcome", "language"}),
		queryLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "rag",
			Name:      "query_duration_seconds",
			Help:      "End to end query processing time.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		indexedChunks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rag",
			Name:      "indexed_chunks_total",
			Help:      "Chunks written to the vector store.",
		}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.rateLimitWaits,
		m.providerRetries,
		m.providerFailures,
		m.queryOutcomes,
		m.queryLatency,
		m.indexedChunks,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) RateLimitWait(provider, model, reason string) {
	if m == nil {
		return
	}
	m.rateLimitWaits.WithLabelValues(provider, model, reason).Inc()
}

func (m *Metrics) ProviderRetry(provider, model string) {
	if m == nil {
		return
	}
	m.providerRetries.WithLabelValues(provider, model).Inc()
}

func (m *Metrics) ProviderFailure(provider, model, kind string) {
	if m == nil {
		return
	}
	m.providerFailures.WithLabelValues(provider, model, kind).Inc()
}

func (m *Metrics) QueryProcessed(outcome, language string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.queryOutcomes.WithLabelValues(outcome, language).Inc()
	m.queryLatency.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

func (m *Metrics) ChunksIndexed(n int) {
	if m == nil {
		return
	}
	m.indexedChunks.Add(float64(n))
}
