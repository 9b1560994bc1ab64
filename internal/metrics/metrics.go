package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Ingestion run outcomes.
	SyncRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auramail_sync_runs_total",
			Help: "Total number of ingestion runs",
		},
		[]string{"status"}, // status: completed, rejected, failed
	)

	// Per-message outcomes within ingestion runs.
	MessagesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auramail_messages_processed_total",
			Help: "Total number of messages processed during ingestion",
		},
		[]string{"status"}, // status: saved, skipped, error
	)

	// LLM extraction call latency.
	LLMRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "auramail_llm_request_duration_seconds",
			Help:    "LLM extraction call duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~100s
		},
		[]string{"provider", "status"},
	)

	// Anomaly detector verdicts.
	AnomaliesDetected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auramail_anomalies_detected_total",
			Help: "Total number of messages flagged by the anomaly detector",
		},
		[]string{"severity"},
	)
)

// RecordSyncRun records the outcome of one ingestion run.
func RecordSyncRun(status string) {
	SyncRuns.WithLabelValues(status).Inc()
}

// RecordMessage records the outcome of one processed message.
func RecordMessage(status string) {
	MessagesProcessed.WithLabelValues(status).Inc()
}

// RecordLLMRequest records one LLM extraction call.
func RecordLLMRequest(provider, status string, duration time.Duration) {
	LLMRequestDuration.WithLabelValues(provider, status).Observe(duration.Seconds())
}

// RecordAnomaly records one anomalous message by severity.
func RecordAnomaly(severity string) {
	AnomaliesDetected.WithLabelValues(severity).Inc()
}
