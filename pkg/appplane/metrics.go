package appplane

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsCollector records client activity as Prometheus metrics. A nil
// collector records nothing. It is safe for concurrent use.
type MetricsCollector struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestsInFlight *prometheus.GaugeVec
	retriesTotal     *prometheus.CounterVec
	problemsTotal    *prometheus.CounterVec
	cacheHits        *prometheus.CounterVec
	cacheMisses      *prometheus.CounterVec
}

// NewMetricsCollector creates a metrics collector on the default registerer.
func NewMetricsCollector() *MetricsCollector {
	return NewMetricsCollectorWithRegistry(prometheus.DefaultRegisterer)
}

// NewMetricsCollectorWithRegistry creates a collector using supplied registerer.
func NewMetricsCollectorWithRegistry(registry prometheus.Registerer) *MetricsCollector {
	factory := promauto.With(registry)

	return &MetricsCollector{
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "appplane_client_requests_total",
				Help: "Total number of gateway calls by final status",
			},
			[]string{"method", "status_code"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "appplane_client_request_duration_seconds",
				Help:    "Duration of gateway calls in seconds, retries included",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "status_code"},
		),
		requestsInFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "appplane_client_requests_in_flight",
				Help: "Number of gateway calls currently in flight",
			},
			[]string{"method"},
		),
		retriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "appplane_client_retries_total",
				Help: "Total number of retry attempts",
			},
			[]string{"method"},
		),
		problemsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "appplane_client_problems_total",
				Help: "Total number of problems returned to callers",
			},
			[]string{"kind", "code"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "appplane_client_cache_hits_total",
				Help: "Total number of response cache hits",
			},
			[]string{"method"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "appplane_client_cache_misses_total",
				Help: "Total number of response cache misses",
			},
			[]string{"method"},
		),
	}
}

// RecordRequest records a finished call. Calls that never got a response
// are recorded with status code 0.
func (mc *MetricsCollector) RecordRequest(method string, statusCode int, duration time.Duration) {
	if mc == nil {
		return
	}

	status := strconv.Itoa(statusCode)
	mc.requestsTotal.WithLabelValues(method, status).Inc()
	mc.requestDuration.WithLabelValues(method, status).Observe(duration.Seconds())
}

// RecordRequestStart increments in-flight gauge.
func (mc *MetricsCollector) RecordRequestStart(method string) {
	if mc == nil {
		return
	}

	mc.requestsInFlight.WithLabelValues(method).Inc()
}

// RecordRequestEnd decrements in-flight gauge.
func (mc *MetricsCollector) RecordRequestEnd(method string) {
	if mc == nil {
		return
	}

	mc.requestsInFlight.WithLabelValues(method).Dec()
}

// RecordRetry counts one retry attempt.
func (mc *MetricsCollector) RecordRetry(method string) {
	if mc == nil {
		return
	}

	mc.retriesTotal.WithLabelValues(method).Inc()
}

// RecordProblem counts a problem by kind and code.
func (mc *MetricsCollector) RecordProblem(problem *Problem) {
	if mc == nil || problem == nil {
		return
	}

	mc.problemsTotal.WithLabelValues(string(problem.Kind), problem.Code).Inc()
}

// RecordCacheHit counts a cache hit.
func (mc *MetricsCollector) RecordCacheHit(method string) {
	if mc == nil {
		return
	}

	mc.cacheHits.WithLabelValues(method).Inc()
}

// RecordCacheMiss counts a cache miss.
func (mc *MetricsCollector) RecordCacheMiss(method string) {
	if mc == nil {
		return
	}

	mc.cacheMisses.WithLabelValues(method).Inc()
}
