package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "livechat_http_requests_total",
			Help: "Total number of HTTP requests processed by the live chat service.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "livechat_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	wsActiveConnections = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "livechat_ws_active_connections",
			Help: "Number of active relay connections.",
		},
		[]string{"role"},
	)
	wsEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "livechat_ws_events_total",
			Help: "Total number of relay connection events.",
		},
		[]string{"role", "event"},
	)
	deliveryMissesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "livechat_delivery_misses_total",
			Help: "Notifications dropped because the target party was not connected.",
		},
		[]string{"role"},
	)
	requestTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "livechat_request_transitions_total",
			Help: "Chat request status transitions.",
		},
		[]string{"status"},
	)
	messagesRelayedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "livechat_messages_relayed_total",
			Help: "Chat messages persisted through the relay, by sender type.",
		},
		[]string{"sender_type"},
	)
	amqpPublishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "livechat_amqp_publish_errors_total",
			Help: "Total number of AMQP publish errors.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		wsActiveConnections,
		wsEventsTotal,
		deliveryMissesTotal,
		requestTransitionsTotal,
		messagesRelayedTotal,
		amqpPublishErrorsTotal,
	)
}

func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()

		httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

func IncWSActive(role string) {
	wsActiveConnections.WithLabelValues(role).Inc()
}

func DecWSActive(role string) {
	wsActiveConnections.WithLabelValues(role).Dec()
}

func IncWSEvent(role, event string) {
	wsEventsTotal.WithLabelValues(role, event).Inc()
}

func IncDeliveryMiss(role string) {
	deliveryMissesTotal.WithLabelValues(role).Inc()
}

func IncRequestTransition(status string) {
	requestTransitionsTotal.WithLabelValues(status).Inc()
}

func IncMessageRelayed(senderType string) {
	messagesRelayedTotal.WithLabelValues(senderType).Inc()
}

func IncAMQPPublishError() {
	amqpPublishErrorsTotal.Inc()
}
