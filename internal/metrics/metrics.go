package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "foodloop_ws_active_connections",
		Help: "Currently open websocket connections",
	})
	MessagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "foodloop_messages_sent_total",
		Help: "Messages persisted through the chat service",
	})
	EventsBroadcast = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "foodloop_events_broadcast_total",
		Help: "Realtime events fanned out to rooms",
	}, []string{"event"})
	NotificationsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "foodloop_notifications_created_total",
		Help: "Notifications written to the notification store",
	})
)

// Handler returns an http.Handler for Prometheus scraping
func Handler() http.Handler {
	return promhttp.Handler()
}
