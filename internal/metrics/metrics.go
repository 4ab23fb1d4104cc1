// Package metrics exposes Prometheus instrumentation for the cleaning
// workflow and the HTTP layer.
//
// All recording methods are safe on a nil *Metrics, so callers that run
// without instrumentation (the CLI, most tests) pass nil.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JonMunkholm/smartclean/internal/core"
)

const namespace = "smartclean"

// Metrics holds the registered collectors.
type Metrics struct {
	registry *prometheus.Registry

	uploads           *prometheus.CounterVec
	issues            *prometheus.CounterVec
	qualityScore      *prometheus.HistogramVec
	cleaningRuns      *prometheus.CounterVec
	cleaningDuration  prometheus.Histogram
	operationsApplied *prometheus.CounterVec
	rowsRemoved       prometheus.Counter
	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
}

// New creates the collectors and registers them, together with the Go and
// process collectors, on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "Uploaded datasets by file format and outcome.",
		}, []string{"format", "status"}),
		issues: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "issues_detected_total",
			Help:      "Detected data-quality issues by type and severity.",
		}, []string{"issue_type", "severity"}),
		qualityScore: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "quality_score",
			Help:      "Overall quality score of datasets before and after cleaning.",
			Buckets:   prometheus.LinearBuckets(0, 10, 11),
		}, []string{"stage"}),
		cleaningRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cleaning_runs_total",
			Help:      "Cleaning runs by actor.",
		}, []string{"applied_by"}),
		cleaningDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cleaning_duration_seconds",
			Help:      "Time spent applying cleaning operations.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
		operationsApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_applied_total",
			Help:      "Applied cleaning operations by kind.",
		}, []string{"operation_type"}),
		rowsRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_removed_total",
			Help:      "Rows dropped by cleaning operations.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route pattern and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.uploads, m.issues, m.qualityScore, m.cleaningRuns, m.cleaningDuration,
		m.operationsApplied, m.rowsRemoved, m.httpRequests, m.httpDuration,
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RegisterGauge exposes fn as a gauge, e.g. the job limiter's active count.
func (m *Metrics) RegisterGauge(name, help string, fn func() float64) {
	if m == nil {
		return
	}
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
	}, fn))
}

// ObserveUpload records an upload attempt. issues and score are ignored for
// failed uploads.
func (m *Metrics) ObserveUpload(format string, err error, issues []core.Issue, score core.QualityScore) {
	if m == nil {
		return
	}
	if err != nil {
		m.uploads.WithLabelValues(format, "error").Inc()
		return
	}
	m.uploads.WithLabelValues(format, "ok").Inc()
	for _, issue := range issues {
		m.issues.WithLabelValues(string(issue.IssueType), string(issue.Severity)).Inc()
	}
	m.qualityScore.WithLabelValues("before").Observe(score.Overall)
}

// ObserveCleaning records a completed cleaning run.
func (m *Metrics) ObserveCleaning(actor core.Actor, elapsed time.Duration, log []core.OperationRecord, after core.QualityScore) {
	if m == nil {
		return
	}
	m.cleaningRuns.WithLabelValues(string(actor)).Inc()
	m.cleaningDuration.Observe(elapsed.Seconds())
	removed := 0
	for _, rec := range log {
		m.operationsApplied.WithLabelValues(string(rec.OperationType)).Inc()
		removed += rec.RowsAffected
	}
	m.rowsRemoved.Add(float64(removed))
	m.qualityScore.WithLabelValues("after").Observe(after.Overall)
}

// ObserveRequest records one HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
