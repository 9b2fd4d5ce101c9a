package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Bidding
	BidsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "auction",
			Name:      "bids_total",
			Help:      "Bid attempts by result (accepted, a rejection reason, or error)",
		},
		[]string{"result"},
	)

	// Scheduler
	SchedulerTasksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "auction",
			Subsystem: "scheduler",
			Name:      "tasks_total",
			Help:      "Scheduled tasks processed by kind and result",
		},
		[]string{"kind", "result"},
	)

	SchedulerTickDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "auction",
			Subsystem: "scheduler",
			Name:      "tick_duration_seconds",
			Help:      "Time spent processing one scheduler tick",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to ~16s
		},
	)

	// Settlement
	SettlementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "auction",
			Name:      "settlements_total",
			Help:      "Settlement attempts by outcome",
		},
		[]string{"outcome"},
	)

	// Notifications
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "auction",
			Name:      "notifications_total",
			Help:      "Notifications published by event type and result",
		},
		[]string{"type", "result"},
	)

	WebSocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "auction",
			Subsystem: "websocket",
			Name:      "connections",
			Help:      "Open websocket connections",
		},
	)

	// HTTP
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "auction",
			Subsystem: "api",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "auction",
			Subsystem: "api",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)
