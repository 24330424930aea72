package notification

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	NotificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aquawatch_notifications_total",
		Help: "Total number of notification send attempts by channel and final status.",
	}, []string{"channel", "status"})

	NotificationLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "aquawatch_notification_latency_seconds",
		Help:    "Latency of a notification dispatch including the provider call.",
		Buckets: prometheus.DefBuckets,
	}, []string{"channel"})
)
