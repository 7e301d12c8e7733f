package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all custom Prometheus metrics for the application
type Metrics struct {
	// Upstream LLM calls by operation (translate, breakdown, chat,
	// screenshot) and outcome ("ok" or the HTTP status)
	LLMRequests *prometheus.CounterVec
	LLMLatency  prometheus.Histogram

	// Text-to-speech calls and cache hits
	TTSRequests  *prometheus.CounterVec
	TTSCacheHits prometheus.Counter

	// KV store operations by op (get/set) and outcome
	StoreOps *prometheus.CounterVec
}

var globalMetrics *Metrics

// InitMetrics initializes the Prometheus metrics. Calling it again returns
// the existing instance; promauto registration is once per process.
func InitMetrics() *Metrics {
	if globalMetrics != nil {
		return globalMetrics
	}

	metrics := &Metrics{
		LLMRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "grammarbuddy_llm_requests_total",
			Help: "Total number of language model requests by operation and outcome",
		}, []string{"operation", "outcome"}),

		LLMLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "grammarbuddy_llm_request_duration_seconds",
			Help:    "Language model request latency in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
		}),

		TTSRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "grammarbuddy_tts_requests_total",
			Help: "Total number of text-to-speech requests by outcome",
		}, []string{"outcome"}),

		TTSCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "grammarbuddy_tts_cache_hits_total",
			Help: "Total number of text-to-speech requests served from cache",
		}),

		StoreOps: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "grammarbuddy_store_operations_total",
			Help: "Total number of KV store operations by op and outcome",
		}, []string{"op", "outcome"}),
	}

	globalMetrics = metrics
	return metrics
}

// GetMetrics returns the global metrics instance (nil before InitMetrics).
func GetMetrics() *Metrics {
	return globalMetrics
}

func countStoreOp(op string, err error) {
	if globalMetrics == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	globalMetrics.StoreOps.WithLabelValues(op, outcome).Inc()
}
