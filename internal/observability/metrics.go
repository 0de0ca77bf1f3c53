// Package observability exposes the prometheus counters that make degraded
// operation distinguishable from legitimately sparse data.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	ingestMessages     *prometheus.CounterVec
	extractionFallback *prometheus.CounterVec
	mailDegraded       *prometheus.CounterVec
	comparisonCache    *prometheus.CounterVec
	scoringCalls       *prometheus.CounterVec
}

// Ingest outcome labels.
const (
	OutcomeProcessed    = "processed"
	OutcomeDuplicate    = "duplicate"
	OutcomeUncorrelated = "uncorrelated"
)

// Comparison cache event labels.
const (
	CacheHit         = "hit"
	CacheMiss        = "miss"
	CacheInvalidated = "invalidated"
)

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ingestMessages: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ingest_messages_total",
			Help: "Inbound messages by ingestion outcome.",
		}, []string{"outcome"}),
		extractionFallback: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "extraction_fallback_total",
			Help: "Extraction calls answered by the deterministic fallback, by cause.",
		}, []string{"cause"}),
		mailDegraded: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mail_degraded_total",
			Help: "Mail transport operations that degraded to the fixture result.",
		}, []string{"op"}),
		comparisonCache: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "comparison_cache_total",
			Help: "Comparison cache transitions.",
		}, []string{"event"}),
		scoringCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "scoring_calls_total",
			Help: "Scoring capability invocations by mode.",
		}, []string{"mode"}),
	}
}

func (m *Metrics) IngestOutcome(outcome string) {
	if m == nil {
		return
	}
	m.ingestMessages.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ExtractionFallback(cause string) {
	if m == nil {
		return
	}
	m.extractionFallback.WithLabelValues(cause).Inc()
}

func (m *Metrics) MailDegraded(op string) {
	if m == nil {
		return
	}
	m.mailDegraded.WithLabelValues(op).Inc()
}

func (m *Metrics) CacheEvent(event string) {
	if m == nil {
		return
	}
	m.comparisonCache.WithLabelValues(event).Inc()
}

func (m *Metrics) ScoringCall(mode string) {
	if m == nil {
		return
	}
	m.scoringCalls.WithLabelValues(mode).Inc()
}
