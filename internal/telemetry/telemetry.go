// Package telemetry exposes prometheus instrumentation for the chat
// pipeline. Metrics are registered on the default registry and served
// from /metrics.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Telemetry bundles the service's metric collectors.
type Telemetry struct {
	ChatRequests     *prometheus.CounterVec
	StageFallbacks   *prometheus.CounterVec
	SearchResults    *prometheus.CounterVec
	PipelineDuration prometheus.Histogram
}

// New registers and returns the service metrics. Call once per process.
func New() *Telemetry {
	t := &Telemetry{
		ChatRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "turbotalk_chat_requests_total",
			Help: "Chat requests by outcome.",
		}, []string{"outcome"}),
		StageFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "turbotalk_stage_fallbacks_total",
			Help: "Pipeline stages that returned the degraded fallback text.",
		}, []string{"stage"}),
		SearchResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "turbotalk_search_results_total",
			Help: "Web results gathered, by query source.",
		}, []string{"source"}),
		PipelineDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "turbotalk_pipeline_duration_seconds",
			Help:    "End-to-end reasoning pipeline duration.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
	}
	prometheus.MustRegister(t.ChatRequests, t.StageFallbacks, t.SearchResults, t.PipelineDuration)
	return t
}

// CountRequest records a chat request outcome ("ok", "bad_request",
// "error").
func (t *Telemetry) CountRequest(outcome string) {
	if t == nil {
		return
	}
	t.ChatRequests.WithLabelValues(outcome).Inc()
}

// CountFallback records a stage that fed degraded text forward.
func (t *Telemetry) CountFallback(stage string) {
	if t == nil {
		return
	}
	t.StageFallbacks.WithLabelValues(stage).Inc()
}

// CountResults records web results gathered for the prompt query or a
// topic query.
func (t *Telemetry) CountResults(source string, n int) {
	if t == nil {
		return
	}
	t.SearchResults.WithLabelValues(source).Add(float64(n))
}

// ObservePipeline records one pipeline run.
func (t *Telemetry) ObservePipeline(start time.Time) {
	if t == nil {
		return
	}
	t.PipelineDuration.Observe(time.Since(start).Seconds())
}
