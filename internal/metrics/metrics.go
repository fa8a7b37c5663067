// Package metrics provides Prometheus instrumentation for the scanner gateway.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mintguard",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, path pattern, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration observes request latency by method and path.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mintguard",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// UpstreamRequestsTotal counts provider calls by source and outcome status.
	UpstreamRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mintguard",
			Name:      "upstream_requests_total",
			Help:      "Total upstream provider calls by source and outcome status.",
		},
		[]string{"source", "status"},
	)

	// UpstreamRequestDuration observes provider call latency by source.
	UpstreamRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mintguard",
			Name:      "upstream_request_duration_seconds",
			Help:      "Upstream provider call duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	// ScansTotal counts completed scans by decision.
	ScansTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mintguard",
			Name:      "scans_total",
			Help:      "Total completed token scans by decision.",
		},
		[]string{"decision"},
	)

	// ScansDegradedTotal counts scans that completed with partial data.
	ScansDegradedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "mintguard",
			Name:      "scans_degraded_total",
			Help:      "Total scans completed in degraded mode.",
		},
	)

	// ScanDuration observes end-to-end scan pipeline latency.
	ScanDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "mintguard",
			Name:      "scan_duration_seconds",
			Help:      "End-to-end scan pipeline duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// ActiveFeedClients tracks connected scan-feed WebSocket clients.
	ActiveFeedClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "mintguard",
			Name:      "active_feed_clients",
			Help:      "Number of currently connected scan-feed WebSocket clients.",
		},
	)

	// RateLimitRejectionsTotal counts requests rejected by the inbound gate.
	RateLimitRejectionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "mintguard",
			Name:      "ratelimit_rejections_total",
			Help:      "Total requests rejected by the inbound rate limiter.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		UpstreamRequestsTotal,
		UpstreamRequestDuration,
		ScansTotal,
		ScansDegradedTotal,
		ScanDuration,
		ActiveFeedClients,
		RateLimitRejectionsTotal,
	)
}

// Handler returns the /metrics HTTP handler.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// GinMiddleware records request counts and latency per route pattern.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := c.Request.Method
		status := strconv.Itoa(c.Writer.Status())

		HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
		HTTPRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}
