// Package metrics exposes Prometheus instrumentation for the pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Fetch outcomes.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

var (
	fetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reputation_fetches_total",
		Help: "Source fetches by platform and outcome.",
	}, []string{"platform", "outcome"})

	fetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "reputation_fetch_duration_seconds",
		Help:    "Source fetch latency by platform.",
		Buckets: prometheus.DefBuckets,
	}, []string{"platform"})

	recordsRetrieved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reputation_records_retrieved_total",
		Help: "Normalized records retrieved by platform.",
	}, []string{"platform"})

	reportsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reputation_reports_total",
		Help: "Reports generated by outcome.",
	}, []string{"outcome"})

	analysisCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reputation_analysis_calls_total",
		Help: "AI analysis calls by kind and outcome.",
	}, []string{"kind", "outcome"})
)

// ObserveFetch records one source fetch.
func ObserveFetch(platform, outcome string, seconds float64, records int) {
	fetchesTotal.WithLabelValues(platform, outcome).Inc()
	fetchDuration.WithLabelValues(platform).Observe(seconds)
	if records > 0 {
		recordsRetrieved.WithLabelValues(platform).Add(float64(records))
	}
}

// ObserveReport records one report generation.
func ObserveReport(outcome string) {
	reportsTotal.WithLabelValues(outcome).Inc()
}

// ObserveAnalysis records one AI analysis call.
func ObserveAnalysis(kind, outcome string) {
	analysisCalls.WithLabelValues(kind, outcome).Inc()
}
