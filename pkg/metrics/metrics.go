// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// QueryDuration tracks end-to-end query pipeline duration.
	QueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "query_pipeline_duration_seconds",
			Help:    "End-to-end query pipeline duration",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 20, 30, 60},
		},
		[]string{"org_id", "status"},
	)

	// RetrievalCacheHits tracks similarity-result cache hits.
	RetrievalCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "retrieval_cache_hits_total",
			Help: "Total retrieval cache hits",
		},
	)

	// RetrievalCacheMisses tracks similarity-result cache misses.
	RetrievalCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "retrieval_cache_misses_total",
			Help: "Total retrieval cache misses",
		},
	)

	// RetrievalDuration tracks similarity search latency.
	RetrievalDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "retrieval_duration_seconds",
			Help:    "Similarity search duration",
			Buckets: []float64{.05, .1, .25, .5, 1, 2, 5},
		},
		[]string{"status"},
	)

	// LLMCallDuration tracks generation and review call duration.
	LLMCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llm_call_duration_seconds",
			Help:    "LLM call duration",
			Buckets: []float64{1, 2, 5, 10, 20, 30, 45, 60, 90, 120},
		},
		[]string{"stage", "model", "status"},
	)

	// LLMTokensTotal tracks total LLM tokens processed.
	LLMTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_tokens_total",
			Help: "Total LLM tokens processed",
		},
		[]string{"model", "direction"},
	)

	// ConversationsTotal tracks total conversations created.
	ConversationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conversations_total",
			Help: "Total conversations created",
		},
		[]string{"kb_id"},
	)

	// MessagesTotal tracks total messages persisted.
	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messages_total",
			Help: "Total messages persisted",
		},
		[]string{"kb_id", "sender"},
	)

	// EscalationsTotal tracks escalation transitions.
	EscalationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "escalations_total",
			Help: "Total conversation escalation transitions",
		},
		[]string{"transition"},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordQuery records metrics for one pass through the query pipeline.
func RecordQuery(orgID, status string, duration float64) {
	QueryDuration.WithLabelValues(orgID, status).Observe(duration)
}

// RecordLLMCall records metrics for a single LLM invocation.
func RecordLLMCall(stage, model, status string, duration float64, tokensIn, tokensOut int) {
	LLMCallDuration.WithLabelValues(stage, model, status).Observe(duration)
	LLMTokensTotal.WithLabelValues(model, "in").Add(float64(tokensIn))
	LLMTokensTotal.WithLabelValues(model, "out").Add(float64(tokensOut))
}
