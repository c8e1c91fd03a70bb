// Package observability provides application-level Prometheus metrics.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PipelineRunsTotal counts scheduled and manual generation pipeline runs by outcome.
	PipelineRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mindposter_pipeline_runs_total",
		Help: "Total generation pipeline runs by outcome",
	}, []string{"outcome"})

	// PostTransitionsTotal counts applied post state transitions.
	PostTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mindposter_post_transitions_total",
		Help: "Total post status transitions by from/to state",
	}, []string{"from", "to"})

	// PublishAttemptsTotal counts publish protocol runs by outcome. Failed
	// attempts carry the protocol stage that broke.
	PublishAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mindposter_publish_attempts_total",
		Help: "Total Instagram publish protocol runs by outcome and failure stage",
	}, []string{"outcome", "stage"})

	// EmailDeliveriesTotal counts approval email sends by outcome.
	EmailDeliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mindposter_email_deliveries_total",
		Help: "Total approval email deliveries by outcome",
	}, []string{"outcome"})

	// GenerationTokensTotal counts tokens consumed by the draft producer.
	GenerationTokensTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mindposter_generation_tokens_total",
		Help: "Total Claude tokens consumed by direction (input/output)",
	}, []string{"direction"})
)

// RecordTransition records a post status transition.
func RecordTransition(from, to string) {
	PostTransitionsTotal.WithLabelValues(from, to).Inc()
}
