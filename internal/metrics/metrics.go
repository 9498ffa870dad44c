// internal/metrics/metrics.go
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "support_server"

// Collector owns every Prometheus series exported by the server. Each
// Collector registers into its own registry so tests can build as many as
// they need.
type Collector struct {
	registry *prometheus.Registry

	idsMinted        prometheus.Counter
	clockRegressions *prometheus.CounterVec

	reportsCreated    *prometheus.CounterVec
	transitions       *prometheus.CounterVec
	transitionFailure *prometheus.CounterVec
	searchDuration    *prometheus.HistogramVec
	searchPageSize    prometheus.Histogram

	categoryReloads *prometheus.CounterVec
	categoryEntries prometheus.Gauge

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,

		idsMinted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ids_minted_total",
			Help:      "Identifiers handed out by the snowflake generator",
		}),
		clockRegressions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "clock_regressions_total",
			Help:      "Wall clock regressions seen by the id generator, by outcome",
		}, []string{"outcome"}),

		reportsCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_created_total",
			Help:      "Reports accepted, by reference type",
		}, []string{"reference_type"}),
		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "report_transitions_total",
			Help:      "Report history entries appended, by action and status change",
		}, []string{"action", "from", "to"}),
		transitionFailure: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "report_transition_failures_total",
			Help:      "Rejected report operations, by reason",
		}, []string{"reason"}),
		searchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "report_search_duration_seconds",
			Help:      "Keyset search latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"sort", "direction", "cursor"}),
		searchPageSize: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "report_search_page_items",
			Help:      "Items returned per keyset page",
			Buckets:   []float64{0, 1, 5, 10, 20, 50, 100},
		}),

		categoryReloads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "category_cache_reloads_total",
			Help:      "Category cache reload attempts, by result",
		}, []string{"result"}),
		categoryEntries: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "category_cache_entries",
			Help:      "Categories held by the validation cache",
		}),

		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served",
		}, []string{"method", "route", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// Registry exposes the underlying registry, mostly for tests.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) IDMinted() {
	c.idsMinted.Inc()
}

// ClockRegression matches the idgen OnClockRegression hook.
func (c *Collector) ClockRegression(_ time.Duration, recovered bool) {
	outcome := "failed"
	if recovered {
		outcome = "recovered"
	}
	c.clockRegressions.WithLabelValues(outcome).Inc()
}

func (c *Collector) ReportCreated(referenceType string) {
	c.reportsCreated.WithLabelValues(referenceType).Inc()
}

func (c *Collector) Transition(action, from, to string) {
	c.transitions.WithLabelValues(action, from, to).Inc()
}

func (c *Collector) TransitionRejected(reason string) {
	c.transitionFailure.WithLabelValues(reason).Inc()
}

func (c *Collector) Search(sort, direction string, withCursor bool, items int, elapsed time.Duration) {
	c.searchDuration.WithLabelValues(sort, direction, strconv.FormatBool(withCursor)).Observe(elapsed.Seconds())
	c.searchPageSize.Observe(float64(items))
}

func (c *Collector) CategoryReload(ok bool, entries int) {
	if !ok {
		c.categoryReloads.WithLabelValues("error").Inc()
		return
	}
	c.categoryReloads.WithLabelValues("ok").Inc()
	c.categoryEntries.Set(float64(entries))
}

// Middleware records request counts and latency keyed by the matched route
// template, so path parameters do not explode label cardinality.
func (c *Collector) Middleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()

		route := ctx.FullPath()
		if route == "" {
			route = "unmatched"
		}
		c.httpRequests.WithLabelValues(ctx.Request.Method, route, strconv.Itoa(ctx.Writer.Status())).Inc()
		c.httpDuration.WithLabelValues(ctx.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{}))
}
