// Package metrics exposes Prometheus instrumentation for view builds, the
// pipeline and the HTTP surface.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "socialpulse"

// Collector owns a private registry so tests and multiple servers in one
// process do not collide. A nil Collector records nothing.
type Collector struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	viewBuildDuration   *prometheus.HistogramVec
	pipelineSteps       *prometheus.CounterVec
	postsCollected      *prometheus.CounterVec
	snapshotsCached     prometheus.Counter
}

// NewCollector creates and registers every metric.
func NewCollector() *Collector {
	c := &Collector{registry: prometheus.NewRegistry()}

	c.httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)
	c.httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	c.viewBuildDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "view_build_duration_seconds",
			Help:      "Time to read inputs and build a dashboard view",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~2s
		},
		[]string{"view"},
	)
	c.pipelineSteps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_steps_total",
			Help:      "Pipeline step executions",
		},
		[]string{"step", "status"},
	)
	c.postsCollected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "posts_collected_total",
			Help:      "New posts stored by the feed collector",
		},
		[]string{"platform"},
	)
	c.snapshotsCached = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_cached_total",
			Help:      "Weekly snapshot rows written back to the store on read",
		},
	)

	c.registry.MustRegister(
		c.httpRequestsTotal,
		c.httpRequestDuration,
		c.viewBuildDuration,
		c.pipelineSteps,
		c.postsCollected,
		c.snapshotsCached,
		collectors.NewGoCollector(),
	)
	return c
}

// ObserveView records how long building a view took.
func (c *Collector) ObserveView(view string, d time.Duration) {
	if c == nil {
		return
	}
	c.viewBuildDuration.WithLabelValues(view).Observe(d.Seconds())
}

// StepDone counts a pipeline step outcome.
func (c *Collector) StepDone(step string, err error) {
	if c == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.pipelineSteps.WithLabelValues(step, status).Inc()
}

// PostsCollected adds n newly stored posts for platform.
func (c *Collector) PostsCollected(platform string, n int) {
	if c == nil {
		return
	}
	c.postsCollected.WithLabelValues(platform).Add(float64(n))
}

// SnapshotsCached adds n snapshot rows written back on read.
func (c *Collector) SnapshotsCached(n int) {
	if c == nil {
		return
	}
	c.snapshotsCached.Add(float64(n))
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware counts and times requests under a fixed route label.
func (c *Collector) Middleware(route string, next http.HandlerFunc) http.HandlerFunc {
	if c == nil {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)
		c.httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		c.httpRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	}
}
