package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "fulfillment", Name: "transitions_total", Help: "Successful order status transitions"},
		[]string{"to"},
	)
	TransitionErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "fulfillment", Name: "transition_errors_total", Help: "Rejected order status transitions"},
		[]string{"reason"},
	)

	RoomsActive      = promauto.NewGauge(prometheus.GaugeOpts{Namespace: "fulfillment", Name: "rooms_active", Help: "Rooms currently active"})
	RoomObservers    = promauto.NewGauge(prometheus.GaugeOpts{Namespace: "fulfillment", Name: "room_observers", Help: "Observers currently joined across all rooms"})
	PositionUpdates  = promauto.NewCounter(prometheus.CounterOpts{Namespace: "fulfillment", Name: "position_updates_total", Help: "Position updates fanned out to rooms"})
	PositionDrops    = promauto.NewCounter(prometheus.CounterOpts{Namespace: "fulfillment", Name: "position_drops_total", Help: "Position updates dropped on a full room queue"})
	RouteFallbacks   = promauto.NewCounter(prometheus.CounterOpts{Namespace: "fulfillment", Name: "route_fallbacks_total", Help: "Route computations downgraded to a straight line"})
	ObserverSendErrs = promauto.NewCounter(prometheus.CounterOpts{Namespace: "fulfillment", Name: "observer_send_errors_total", Help: "Failed deliveries to room observers"})

	PushAttempts  = promauto.NewCounter(prometheus.CounterOpts{Namespace: "fulfillment", Name: "push_attempts_total", Help: "Push deliveries attempted"})
	PushSucceeded = promauto.NewCounter(prometheus.CounterOpts{Namespace: "fulfillment", Name: "push_succeeded_total", Help: "Push deliveries that succeeded"})
	PushPruned    = promauto.NewCounter(prometheus.CounterOpts{Namespace: "fulfillment", Name: "push_pruned_total", Help: "Subscriptions pruned after gone/malformed responses"})

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "fulfillment", Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fulfillment",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
