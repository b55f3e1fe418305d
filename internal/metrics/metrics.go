package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	seatClaims = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seat_claims_total",
			Help: "Seat claim attempts by outcome",
		},
		[]string{"outcome"},
	)

	claimRetriesExhausted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "seat_claim_retries_exhausted_total",
			Help: "Claims that ran out of conflict retries",
		},
	)

	bookingOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_operations_total",
			Help: "Booking lifecycle operations",
		},
		[]string{"operation", "status"},
	)

	compensations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_compensations_total",
			Help: "Seat change compensations by result",
		},
		[]string{"result"},
	)

	ledgerDivergence = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ledger_divergence_total",
			Help: "Seat ledger and booking records left out of sync",
		},
	)

	artifactJobs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "invoice_artifact_jobs_total",
			Help: "Invoice generation jobs by result",
		},
		[]string{"result"},
	)

	artifactDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "invoice_artifact_generation_seconds",
			Help:    "Duration of invoice generation jobs",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		},
	)

	eventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lifecycle_events_total",
			Help: "Lifecycle events by delivery result",
		},
		[]string{"result"},
	)

	artifactQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "invoice_artifact_queue_depth",
			Help: "Invoice jobs waiting for a worker",
		},
	)
)

func RecordClaim(outcome string) {
	seatClaims.WithLabelValues(outcome).Inc()
}

func RecordRetriesExhausted() {
	claimRetriesExhausted.Inc()
}

func RecordBookingOperation(operation, status string) {
	bookingOperations.WithLabelValues(operation, status).Inc()
}

func RecordCompensation(result string) {
	compensations.WithLabelValues(result).Inc()
}

func RecordLedgerDivergence() {
	ledgerDivergence.Inc()
}

func RecordArtifactJob(result string, seconds float64) {
	artifactJobs.WithLabelValues(result).Inc()
	if seconds > 0 {
		artifactDuration.Observe(seconds)
	}
}

// RecordEvent counts lifecycle events as published, failed or dropped.
func RecordEvent(result string) {
	eventsPublished.WithLabelValues(result).Inc()
}

func SetArtifactQueueDepth(n int) {
	artifactQueueDepth.Set(float64(n))
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
