package observability

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the service's Prometheus metrics on a private registry.
type Collector struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	httpInflight prometheus.Gauge

	builds          *prometheus.CounterVec
	buildDuration   *prometheus.HistogramVec
	integrityFaults *prometheus.CounterVec

	storeQueries       *prometheus.CounterVec
	storeQueryDuration *prometheus.HistogramVec

	jobRuns *prometheus.CounterVec
}

// NewCollector prefixes every metric with namespace; characters Prometheus rejects become '_'.
func NewCollector(namespace string) *Collector {
	namespace = metricNamespace(namespace)
	c := &Collector{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		httpInflight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_requests_in_flight",
				Help:      "HTTP requests currently being served",
			},
		),
		builds: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "progress_builds_total",
				Help:      "Learner progress builds by outcome",
			},
			[]string{"outcome"},
		),
		buildDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "progress_build_duration_seconds",
				Help:      "Learner progress build duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
		integrityFaults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "course_integrity_faults_total",
				Help:      "Courses dropped because of inconsistent lesson data, by kind",
			},
			[]string{"kind"},
		),
		storeQueries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "graph_store_queries_total",
				Help:      "Graph store queries by name and outcome",
			},
			[]string{"query", "outcome"},
		),
		storeQueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "graph_store_query_duration_seconds",
				Help:      "Graph store query duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"query"},
		),
		jobRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "job_runs_total",
				Help:      "Background job runs by type and final status",
			},
			[]string{"job_type", "status"},
		),
	}
	c.registry.MustRegister(
		c.httpRequests,
		c.httpDuration,
		c.httpInflight,
		c.builds,
		c.buildDuration,
		c.integrityFaults,
		c.storeQueries,
		c.storeQueryDuration,
		c.jobRuns,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

func metricNamespace(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "coursegraph"
	}
	b := []byte(raw)
	for i, ch := range b {
		ok := ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (i > 0 && ch >= '0' && ch <= '9')
		if !ok {
			b[i] = '_'
		}
	}
	return string(b)
}

func (c *Collector) Registry() *prometheus.Registry { return c.registry }

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) HTTPStarted() { c.httpInflight.Inc() }

func (c *Collector) ObserveHTTP(method, route string, status int, dur time.Duration) {
	c.httpInflight.Dec()
	if route == "" {
		route = "unmatched"
	}
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpDuration.WithLabelValues(method, route).Observe(dur.Seconds())
}

func (c *Collector) ObserveBuild(outcome string, dur time.Duration) {
	c.builds.WithLabelValues(outcome).Inc()
	c.buildDuration.WithLabelValues(outcome).Observe(dur.Seconds())
}

func (c *Collector) IncIntegrityFault(kind string) {
	c.integrityFaults.WithLabelValues(kind).Inc()
}

func (c *Collector) ObserveStoreQuery(query, outcome string, dur time.Duration) {
	c.storeQueries.WithLabelValues(query, outcome).Inc()
	c.storeQueryDuration.WithLabelValues(query).Observe(dur.Seconds())
}

func (c *Collector) IncJobRun(jobType, status string) {
	c.jobRuns.WithLabelValues(jobType, status).Inc()
}
