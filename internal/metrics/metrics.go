package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatapp_http_requests_total",
			Help: "HTTP requests by method, route and status code.",
		},
		[]string{"method", "route", "status"},
	)

	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chatapp_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	MessagesCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatapp_messages_created_total",
			Help: "Messages persisted, by sender type and whether they were forwarded.",
		},
		[]string{"sender_type", "forwarded"},
	)

	ForwardFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chatapp_forward_failures_total",
			Help: "Forward destinations that could not receive a copy.",
		},
	)

	ReactionToggles = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatapp_reaction_toggles_total",
			Help: "Reaction toggles by outcome (added or removed).",
		},
		[]string{"outcome"},
	)

	WSConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chatapp_ws_connections",
			Help: "Open websocket connections on this instance.",
		},
	)

	WSEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatapp_ws_events_total",
			Help: "Realtime events fanned out, by event type.",
		},
		[]string{"type"},
	)

	NotificationsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chatapp_notifications_dropped_total",
			Help: "Agent notifications skipped by the rate limiter.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequests,
		HTTPDuration,
		MessagesCreated,
		ForwardFailures,
		ReactionToggles,
		WSConnections,
		WSEvents,
		NotificationsDropped,
	)
}
