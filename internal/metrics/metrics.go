package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Auth metrics
	LoginsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "classpulse_logins_total",
			Help: "Total login attempts by result",
		},
		[]string{"result"},
	)

	RotationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "classpulse_token_rotations_total",
			Help: "Total refresh token rotations by result",
		},
		[]string{"result"},
	)

	TokensSwept = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "classpulse_refresh_tokens_swept_total",
			Help: "Total expired or revoked refresh tokens deleted by the sweeper",
		},
	)

	ThrottleHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "classpulse_login_throttle_hits_total",
			Help: "Total login attempts rejected by the throttle",
		},
	)

	// Hub metrics
	HubConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "classpulse_hub_connections",
			Help: "Currently connected push-channel clients",
		},
	)

	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "classpulse_notifications_total",
			Help: "Notifications dispatched by target kind",
		},
		[]string{"target"},
	)

	NotificationsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "classpulse_notifications_dropped_total",
			Help: "Notifications dropped because a client send buffer was full",
		},
	)
)
