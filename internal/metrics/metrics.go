package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Voting Metrics
var (
	// VotesCastTotal tracks applied vote transitions by target kind and action
	VotesCastTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forum_votes_cast_total",
			Help: "Total vote transitions by target kind and action (create/switch/remove)",
		},
		[]string{"kind", "action"},
	)

	// SubscriptionChangesTotal tracks subscription creations and removals
	SubscriptionChangesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forum_subscription_changes_total",
			Help: "Total subscription changes by resulting state",
		},
		[]string{"state"},
	)
)

// Notification Metrics
var (
	// NotificationsDeliveredTotal tracks events pushed to a live connection
	NotificationsDeliveredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forum_notifications_delivered_total",
			Help: "Total notifications handed to a live connection by kind",
		},
		[]string{"kind"},
	)

	// NotificationsDroppedTotal tracks events that could not be delivered
	NotificationsDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forum_notifications_dropped_total",
			Help: "Total notifications dropped by reason (offline/send_failed)",
		},
		[]string{"reason"},
	)

	// RegisteredUsers tracks users with a live notification connection
	RegisteredUsers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "forum_notification_registered_users",
			Help: "Number of users currently registered for live notifications",
		},
	)

	// OpenConnections tracks open websocket connections, registered or not
	OpenConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "forum_websocket_connections_open",
			Help: "Number of open notification websocket connections",
		},
	)
)

// HTTP Metrics
var (
	// HTTPErrorsTotal tracks error responses by error type
	HTTPErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forum_http_errors_total",
			Help: "Total HTTP errors by error type",
		},
		[]string{"type"},
	)
)
