package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce       sync.Once
	apiRequestsTotal   *prometheus.CounterVec
	apiLatencySeconds  *prometheus.HistogramVec
	apiErrorsTotal     *prometheus.CounterVec
	marksTotal         *prometheus.CounterVec
	proofsIssuedTotal  *prometheus.CounterVec
	proofFailuresTotal *prometheus.CounterVec
	faceOutcomesTotal  *prometheus.CounterVec
	feedConnections    prometheus.Counter
	feedEventsTotal    prometheus.Counter
)

// RegisterMetrics initialises the Prometheus collectors used by the service.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "api_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "api_errors_total",
			Help: "Total number of error responses returned by API endpoints.",
		}, []string{"method", "route", "status"})

		marksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "attendance_marks_total",
			Help: "Attendance records written, labelled by marking method.",
		}, []string{"method"})

		proofsIssuedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "attendance_proofs_issued_total",
			Help: "Attendance proofs issued, labelled by proof kind.",
		}, []string{"kind"})

		proofFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "attendance_proof_failures_total",
			Help: "Proof verification failures, labelled by reason.",
		}, []string{"reason"})

		faceOutcomesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "face_identifications_total",
			Help: "Face identification attempts, labelled by outcome.",
		}, []string{"outcome"})

		feedConnections = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feed_connections_total",
			Help: "Websocket connections accepted on the live attendance feed.",
		})

		feedEventsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feed_events_total",
			Help: "Marking events broadcast over the live attendance feed.",
		})

		prometheus.MustRegister(
			apiRequestsTotal, apiLatencySeconds, apiErrorsTotal,
			marksTotal, proofsIssuedTotal, proofFailuresTotal,
			faceOutcomesTotal, feedConnections, feedEventsTotal,
		)
	})
}

// APIRequests exposes the counter for API requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for API requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for API error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// AttendanceMarks exposes the counter for written attendance records.
func AttendanceMarks() *prometheus.CounterVec {
	RegisterMetrics()
	return marksTotal
}

// ProofsIssued exposes the counter for issued attendance proofs.
func ProofsIssued() *prometheus.CounterVec {
	RegisterMetrics()
	return proofsIssuedTotal
}

// ProofFailures exposes the counter for proof verification failures.
func ProofFailures() *prometheus.CounterVec {
	RegisterMetrics()
	return proofFailuresTotal
}

// FaceIdentifications exposes the counter for face identification attempts.
func FaceIdentifications() *prometheus.CounterVec {
	RegisterMetrics()
	return faceOutcomesTotal
}

// FeedConnections exposes the counter for live feed connections.
func FeedConnections() prometheus.Counter {
	RegisterMetrics()
	return feedConnections
}

// FeedEvents exposes the counter for broadcast feed events.
func FeedEvents() prometheus.Counter {
	RegisterMetrics()
	return feedEventsTotal
}
