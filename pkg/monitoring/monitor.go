package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	SessionTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attempt_session_transitions_total",
			Help: "Attempt session state transitions",
		},
		[]string{"from", "to"},
	)

	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "attempt_sessions_active",
			Help: "Attempt sessions held by this process",
		},
	)

	SubmissionCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attempt_submissions_total",
			Help: "Outbound attempt submissions by trigger and outcome",
		},
		[]string{"trigger", "outcome"},
	)

	SubmitRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "attempt_submit_retries_total",
			Help: "Submission retries after a retryable failure",
		},
	)

	ExpiryCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "attempt_timer_expiries_total",
			Help: "Attempt countdown expiries that triggered an auto submit",
		},
	)

	StatusChecks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attempt_status_checks_total",
			Help: "Attempt status queries by outcome",
		},
		[]string{"outcome"},
	)

	GatewayDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "assessment_gateway_request_duration_seconds",
			Help:    "Duration of calls to the assessment service",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10},
		},
		[]string{"op", "outcome"},
	)

	ClockSkew = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "attempt_clock_skew_seconds",
			Help:    "Absolute difference between client and server elapsed time at submission",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 300},
		},
	)

	WSConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "attempt_ws_connections",
			Help: "Open session event websocket connections",
		},
	)
)

func Init() {
	prometheus.MustRegister(RequestCounter)
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(SessionTransitions)
	prometheus.MustRegister(ActiveSessions)
	prometheus.MustRegister(SubmissionCounter)
	prometheus.MustRegister(SubmitRetries)
	prometheus.MustRegister(ExpiryCounter)
	prometheus.MustRegister(StatusChecks)
	prometheus.MustRegister(GatewayDuration)
	prometheus.MustRegister(ClockSkew)
	prometheus.MustRegister(WSConnections)
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		RequestCounter.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
