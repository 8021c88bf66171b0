// Package prometheus provides Prometheus metrics for the triage runtime.
package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "triagekit"

var (
	// triageTurnsTotal counts processed triage turns by outcome.
	triageTurnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "triage_turns_total",
			Help:      "Total number of triage flow turns processed",
		},
		[]string{"outcome"}, // outcome: generated, fallback, error
	)

	// providerFailuresTotal counts failed provider calls.
	providerFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_failures_total",
			Help:      "Total number of failed provider calls",
		},
		[]string{"provider", "operation"},
	)

	// voiceStageDuration is a histogram of voice pipeline stage duration.
	voiceStageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "voice_stage_duration_seconds",
			Help:      "Duration of voice pipeline stages in seconds",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"stage"}, // stage: transcription, response-generation, speech-synthesis
	)

	// voiceTurnsTotal counts completed voice pipeline turns by status.
	voiceTurnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "voice_turns_total",
			Help:      "Total number of voice pipeline turns",
		},
		[]string{"status"}, // status: success, or the failing stage name
	)

	// sessionsSweptTotal counts sessions removed by expiry sweeps.
	sessionsSweptTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_swept_total",
			Help:      "Total number of expired sessions removed by sweeps",
		},
	)

	// allMetrics is a list of all metrics for registration.
	allMetrics = []prometheus.Collector{
		triageTurnsTotal,
		providerFailuresTotal,
		voiceStageDuration,
		voiceTurnsTotal,
		sessionsSweptTotal,
	}
)

// RecordTriageTurn records a processed triage turn with its outcome.
func RecordTriageTurn(outcome string) {
	triageTurnsTotal.WithLabelValues(outcome).Inc()
}

// RecordProviderFailure records a failed provider call.
func RecordProviderFailure(provider, operation string) {
	providerFailuresTotal.WithLabelValues(provider, operation).Inc()
}

// RecordVoiceStage records the duration of a voice pipeline stage.
func RecordVoiceStage(stage string, durationSeconds float64) {
	voiceStageDuration.WithLabelValues(stage).Observe(durationSeconds)
}

// RecordVoiceTurn records a completed voice pipeline turn.
// Status is "success" or the name of the failing stage.
func RecordVoiceTurn(status string) {
	voiceTurnsTotal.WithLabelValues(status).Inc()
}

// RecordSessionsSwept records sessions removed by an expiry sweep.
func RecordSessionsSwept(count int) {
	sessionsSweptTotal.Add(float64(count))
}
