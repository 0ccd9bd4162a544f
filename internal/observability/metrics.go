package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// unmatchedRoute labels requests that hit no route, keeping path cardinality bounded
const unmatchedRoute = "unmatched"

// Metrics holds all Prometheus metrics
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Aggregation metrics
	AggregationDuration *prometheus.HistogramVec
	AggregationFailures *prometheus.CounterVec

	// Cache metrics
	CacheHitsTotal   prometheus.Counter
	CacheMissesTotal prometheus.Counter

	// Export metrics
	ExportsTotal *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: registry,
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "glance_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "glance_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		AggregationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "glance_analytics_aggregation_duration_seconds",
				Help:    "Time spent computing an analytics report",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"period"},
		),
		AggregationFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "glance_analytics_aggregation_failures_total",
				Help: "Total number of failed analytics aggregations",
			},
			[]string{"stage"},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "glance_analytics_cache_hits_total",
				Help: "Total number of report cache hits",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "glance_analytics_cache_misses_total",
				Help: "Total number of report cache misses",
			},
		),
		ExportsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "glance_analytics_exports_total",
				Help: "Total number of report exports",
			},
			[]string{"status"},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.AggregationDuration,
		m.AggregationFailures,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.ExportsTotal,
	)

	return m
}

// ObserveAggregation records how long a report took for a period
func (m *Metrics) ObserveAggregation(period string, d time.Duration) {
	m.AggregationDuration.WithLabelValues(period).Observe(d.Seconds())
}

// IncAggregationFailure counts a failed aggregation at the given stage
func (m *Metrics) IncAggregationFailure(stage string) {
	m.AggregationFailures.WithLabelValues(stage).Inc()
}

// IncCacheHit counts a report served from cache
func (m *Metrics) IncCacheHit() {
	m.CacheHitsTotal.Inc()
}

// IncCacheMiss counts a report not found in cache
func (m *Metrics) IncCacheMiss() {
	m.CacheMissesTotal.Inc()
}

// IncExport counts an export attempt by outcome ("success" or "error")
func (m *Metrics) IncExport(status string) {
	m.ExportsTotal.WithLabelValues(status).Inc()
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records request count and latency keyed by the chi route pattern
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		path := unmatchedRoute
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}
