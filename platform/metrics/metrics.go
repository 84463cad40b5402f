// Package metrics exposes Prometheus collectors for the HTTP layer and the
// lead write paths.
// This is part of the platform layer and contains no business logic.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	webhookOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_contacts_total",
			Help: "Inbound webhook contacts by outcome and match key",
		},
		[]string{"outcome", "matched_by"},
	)

	leadTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lead_transitions_total",
			Help: "Pipeline transition attempts by from, to and result",
		},
		[]string{"from", "to", "result"},
	)

	syncDispatchFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lead_sync_dispatch_failures_total",
			Help: "Outbound sync notifications that could not be handed off",
		},
		[]string{"stage"},
	)

	syncPushes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lead_sync_pushes_total",
			Help: "Outbound sync deliveries by sink and result",
		},
		[]string{"sink", "result"},
	)
)

// Middleware records request count and latency per matched route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())

		httpRequestsTotal.WithLabelValues(c.Request.Method, route, status).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

func RecordWebhookOutcome(outcome, matchedBy string) {
	webhookOutcomes.WithLabelValues(outcome, matchedBy).Inc()
}

func RecordTransition(from, to, result string) {
	leadTransitions.WithLabelValues(from, to, result).Inc()
}

func RecordSyncDispatchFailure(stage string) {
	syncDispatchFailures.WithLabelValues(stage).Inc()
}

func RecordSyncPush(sink, result string) {
	syncPushes.WithLabelValues(sink, result).Inc()
}
