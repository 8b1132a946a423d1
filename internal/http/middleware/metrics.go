// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file exposes Prometheus instrumentation for the wishlist API: HTTP
// traffic from the Metrics middleware, plus login attempts and idempotent
// replays recorded by the handlers through the Record* helpers. Vote and
// catalog counters live in internal/observability, next to the services.
//
// HTTP labels:
//
//   - method: HTTP method verb
//   - route:  the registered Gin route (e.g. /api/v1/features/:id/votes), or
//     "unmatched" when no route matched
//   - status: numeric status code as a string
//
// Raw URL paths never become label values; a scanner probing random paths
// would otherwise create one series per probe.
package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricsNamespace = "wishlist"

	routeUnmatched = "unmatched"
)

var (
	httpReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		},
		[]string{"method", "route", "status"},
	)

	httpLat = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   []float64{.002, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"method", "route"},
	)

	httpInflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "http_requests_inflight",
			Help:      "HTTP requests currently being served.",
		},
	)

	// Feature lists are the largest payloads; 100 features is roughly 40KiB.
	httpRespSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "http_response_size_bytes",
			Help:      "HTTP response size by method and route.",
			Buckets:   prometheus.ExponentialBuckets(128, 4, 7), // 128B..512KiB
		},
		[]string{"method", "route"},
	)

	loginsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "logins_total",
			Help:      "Login attempts by result (ok, rejected).",
		},
		[]string{"result"},
	)

	idempotentReplays = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "idempotent_replays_total",
			Help:      "Requests answered from a stored Idempotency-Key result, by route.",
		},
		[]string{"route"},
	)
)

func init() {
	prometheus.MustRegister(
		httpReqs, httpLat, httpInflight, httpRespSize,
		loginsTotal, idempotentReplays,
	)
}

// Metrics returns a Gin middleware that records the HTTP collectors above.
// Mount /metrics with promhttp.Handler() next to it.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		httpInflight.Inc()
		defer httpInflight.Dec()

		c.Next()

		route := routeLabel(c)
		method := c.Request.Method

		httpReqs.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpLat.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
		// Size is -1 when nothing was written (204, 304).
		if size := c.Writer.Size(); size >= 0 {
			httpRespSize.WithLabelValues(method, route).Observe(float64(size))
		}
	}
}

func routeLabel(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return routeUnmatched
}

// RecordLogin counts a login attempt.
func RecordLogin(ok bool) {
	result := "rejected"
	if ok {
		result = "ok"
	}
	loginsTotal.WithLabelValues(result).Inc()
}

// RecordReplay counts a response served from a stored idempotency record.
func RecordReplay(c *gin.Context) {
	idempotentReplays.WithLabelValues(routeLabel(c)).Inc()
}
