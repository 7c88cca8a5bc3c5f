package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// unmatchedRoute labels requests that matched no registered route, so probes
// against random URLs cannot grow label cardinality.
const unmatchedRoute = "unmatched"

// Collectors are registered on the default registry, which /metrics serves.
var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "HTTP requests by method, route and status code.",
	}, []string{"method", "route", "status"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency by method, route and status class.",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"method", "route", "class"})

	httpInflight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "http_requests_inflight",
		Help: "Requests currently being served.",
	})

	httpResponseBytes = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "http_response_size_bytes",
		Help: "Response body size by route. Post payloads are small JSON documents.",
		// 128B .. 128KiB
		Buckets: prometheus.ExponentialBuckets(128, 4, 6),
	}, []string{"route"})

	// httpErrors is fed by ErrorHandler, once per error envelope written.
	httpErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_errors_total",
		Help: "Error envelopes by status code and error class.",
	}, []string{"status", "class"})
)

// Metrics instruments every request passing through it. Install it outside
// ErrorHandler so the status of error envelopes is the one recorded.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		httpInflight.Inc()
		start := time.Now()

		c.Next()

		httpInflight.Dec()
		route := routeLabel(c)
		status := c.Writer.Status()

		httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		httpDuration.WithLabelValues(c.Request.Method, route, statusClass(status)).
			Observe(time.Since(start).Seconds())
		// Size is -1 when nothing was written (204, HEAD).
		if n := c.Writer.Size(); n >= 0 {
			httpResponseBytes.WithLabelValues(route).Observe(float64(n))
		}
	}
}

func observeError(status int, class string) {
	httpErrors.WithLabelValues(strconv.Itoa(status), class).Inc()
}

func routeLabel(c *gin.Context) string {
	if r := c.FullPath(); r != "" {
		return r
	}
	return unmatchedRoute
}

// statusClass folds a status code into "2xx", "4xx" and so on.
func statusClass(status int) string {
	if status < 100 || status > 599 {
		return "other"
	}
	return strconv.Itoa(status/100) + "xx"
}
