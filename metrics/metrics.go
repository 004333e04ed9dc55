package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var connectorBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

// --- Attestations ---

var AttestationsCreated = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "attest_attestations_created_total",
	Help: "Attestations created, by type",
}, []string{"type"})

var AttestationCreateFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "attest_attestation_create_failures_total",
	Help: "Rejected create calls, by type and stage",
}, []string{"type", "stage"})

var AttestationsSettled = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "attest_attestations_settled_total",
	Help: "Verify outcomes, by resulting status",
}, []string{"status"})

var AttestationsStored = prometheus.NewGauge(prometheus.GaugeOpts{
	Name: "attest_attestations_stored",
	Help: "Attestations held in memory",
})

// --- Data sources ---

var ConnectorVerifyTime = prometheus.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "attest_connector_verify_seconds",
	Help:    "Time taken by data source verification",
	Buckets: connectorBuckets,
}, []string{"connector"})

// --- Sessions ---

var SessionsIssued = prometheus.NewCounter(prometheus.CounterOpts{
	Name: "attest_sessions_issued_total",
	Help: "Wallet sessions issued",
})

// Registry holds every collector above.
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(
		AttestationsCreated,
		AttestationCreateFailures,
		AttestationsSettled,
		AttestationsStored,
		ConnectorVerifyTime,
		SessionsIssued,
	)
}
