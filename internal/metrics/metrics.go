// Package metrics holds the Prometheus collectors of the chat service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "haven"

var (
	// MessagesSent counts persisted messages by sender role
	MessagesSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "messages_sent_total",
		Help:      "Messages persisted, by sender role.",
	}, []string{"role"})

	// WsConnections tracks live WebSocket connections
	WsConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "ws_connections",
		Help:      "Live WebSocket connections.",
	})

	// WsPushDropped counts frames dropped because a queue was full
	WsPushDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ws_push_dropped_total",
		Help:      "Broadcast frames dropped, by stage.",
	}, []string{"stage"})

	// NotificationJobs counts notification jobs by outcome
	NotificationJobs = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notification_jobs_total",
		Help:      "Notification jobs, by outcome.",
	}, []string{"outcome"})

	// PushSends counts device pushes by outcome
	PushSends = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "push_sends_total",
		Help:      "Device push deliveries, by outcome.",
	}, []string{"outcome"})
)

// Handler exposes the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}
