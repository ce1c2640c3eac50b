package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce        sync.Once
	apiRequestsTotal    *prometheus.CounterVec
	apiLatencySeconds   *prometheus.HistogramVec
	apiErrorsTotal      *prometheus.CounterVec
	evaluationsTotal    *prometheus.CounterVec
	submissionCharsHist *prometheus.HistogramVec
)

// RegisterMetrics initialises the Prometheus collectors used by the evaluator service.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rubric_api_requests_total",
			Help: "Total number of rubric API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rubric_api_latency_seconds",
			Help:    "Latency distribution for rubric API requests.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rubric_api_errors_total",
			Help: "Total number of error responses returned by rubric endpoints.",
		}, []string{"method", "route", "status"})

		evaluationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rubric_evaluations_total",
			Help: "Evaluations by rubric and outcome (pass, fail, neutral, raw_text, rejected, error).",
		}, []string{"rubric", "outcome"})

		submissionCharsHist = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rubric_submission_characters",
			Help:    "Size of evaluated submissions in characters.",
			Buckets: prometheus.ExponentialBuckets(250, 2, 8),
		}, []string{"rubric"})

		prometheus.MustRegister(apiRequestsTotal, apiLatencySeconds, apiErrorsTotal, evaluationsTotal, submissionCharsHist)
	})
}

// APIRequests exposes the counter for rubric API requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for rubric API requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for rubric API error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// Evaluations exposes the evaluation outcome counter.
func Evaluations() *prometheus.CounterVec {
	RegisterMetrics()
	return evaluationsTotal
}

// SubmissionCharacters exposes the submission size histogram.
func SubmissionCharacters() *prometheus.HistogramVec {
	RegisterMetrics()
	return submissionCharsHist
}
