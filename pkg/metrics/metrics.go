package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry metrics
	ConnectedSubscribers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "gitping_connected_subscribers",
			Help: "Number of subscribers with at least one open connection",
		},
	)

	OpenConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "gitping_open_connections",
			Help: "Number of open streaming connections",
		},
	)

	ConnectionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gitping_connections_total",
			Help: "Total number of streaming connections accepted",
		},
	)

	// Webhook metrics
	WebhooksReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gitping_webhooks_received_total",
			Help: "Total number of webhooks received by event type",
		},
		[]string{"event_type"},
	)

	WebhooksRejected = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gitping_webhooks_rejected_total",
			Help: "Total number of webhooks rejected (bad token or body)",
		},
	)

	// Dispatch metrics
	NotificationsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gitping_notifications_sent_total",
			Help: "Total number of notifications delivered by event type",
		},
		[]string{"event_type"},
	)

	DispatchFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gitping_dispatch_failures_total",
			Help: "Total number of dispatches that delivered nothing, by reason",
		},
		[]string{"reason"},
	)

	ConnectionWriteFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gitping_connection_write_failures_total",
			Help: "Total number of connection writes that failed and pruned the connection",
		},
	)

	// API metrics
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gitping_api_requests_total",
			Help: "Total number of API requests by method and status",
		},
		[]string{"method", "status"},
	)

	// Chat metrics
	ChatNotificationsSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gitping_chat_notifications_sent_total",
			Help: "Total number of notifications forwarded to the chat webhook",
		},
	)

	ChatNotificationsFailed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gitping_chat_notifications_failed_total",
			Help: "Total number of chat webhook forwards that failed",
		},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(ConnectedSubscribers)
	prometheus.MustRegister(OpenConnections)
	prometheus.MustRegister(ConnectionsTotal)
	prometheus.MustRegister(WebhooksReceived)
	prometheus.MustRegister(WebhooksRejected)
	prometheus.MustRegister(NotificationsSent)
	prometheus.MustRegister(DispatchFailures)
	prometheus.MustRegister(ConnectionWriteFailures)
	prometheus.MustRegister(APIRequestsTotal)
	prometheus.MustRegister(ChatNotificationsSent)
	prometheus.MustRegister(ChatNotificationsFailed)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
