package handler

import (
	"errors"
	"strconv"
	"time"

	"github.com/carbonledger/carbonledger/internal/ledger"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	clRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cl_requests_total",
		Help: "Total HTTP requests by method, path, and response status.",
	}, []string{"method", "path", "status"})

	clRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cl_request_duration_seconds",
		Help:    "Request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	clOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cl_ledger_operations_total",
		Help: "Ledger operations by name and outcome.",
	}, []string{"op", "outcome"})

	clWebhookDeliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cl_webhook_deliveries_total",
		Help: "Webhook event deliveries by success status.",
	}, []string{"status"})
)

// PrometheusMiddleware returns a Gin middleware recording per-request
// metrics.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		clRequestsTotal.WithLabelValues(method, path, status).Inc()
		clRequestDuration.WithLabelValues(method, path).Observe(duration)
	}
}

// MetricsHandler returns a Gin handler serving Prometheus metrics.
func MetricsHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// RecordOperation records one ledger operation outcome. The outcome
// label is the API error code, or "ok".
func RecordOperation(op string, err error) {
	clOperationsTotal.WithLabelValues(op, outcomeLabel(err)).Inc()
}

// RecordWebhookDelivery records a webhook delivery attempt. Wired into
// the webhook emitter's MetricsRecorder callback.
func RecordWebhookDelivery(success bool) {
	if success {
		clWebhookDeliveriesTotal.WithLabelValues("success").Inc()
	} else {
		clWebhookDeliveriesTotal.WithLabelValues("failure").Inc()
	}
}

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ledger.ErrPaused):
		return CodePaused
	case errors.Is(err, ledger.ErrNotRegistered):
		return CodeNotRegistered
	case errors.Is(err, ledger.ErrUnauthorized):
		return CodeUnauthorized
	case errors.Is(err, ledger.ErrInvalidInput):
		return CodeInvalidInput
	case errors.Is(err, ledger.ErrAlreadyLogged):
		return CodeAlreadyLogged
	case errors.Is(err, ledger.ErrInvalidVersion):
		return CodeInvalidVersion
	default:
		return "error"
	}
}
