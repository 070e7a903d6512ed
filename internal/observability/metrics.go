// Package observability provides domain metrics and tracing.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// StoreReadFallbacks counts slice reads that returned the caller's default because of a failure.
	StoreReadFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sherise_store_read_fallbacks_total",
		Help: "Slice reads that fell back to the default value",
	}, []string{"key", "reason"})

	// StoreDroppedWrites counts full-slice writes that were swallowed after a failure.
	StoreDroppedWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sherise_store_dropped_writes_total",
		Help: "Slice writes that failed and were dropped",
	}, []string{"key", "reason"})

	// StoreConflicts counts optimistic-concurrency conflicts on versioned slice writes.
	StoreConflicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sherise_store_conflicts_total",
		Help: "Version conflicts on slice compare-and-set",
	}, []string{"key"})

	// EventsPublished counts notifications published on the in-process bus.
	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sherise_events_published_total",
		Help: "Notifications published by event name",
	}, []string{"event"})

	// EventHandlerPanics counts subscriber handlers that panicked during delivery.
	EventHandlerPanics = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sherise_event_handler_panics_total",
		Help: "Subscriber handlers that panicked",
	}, []string{"event"})

	// CoachRequests counts coach replies by outcome (ok, fallback, empty, error, partners).
	CoachRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sherise_coach_requests_total",
		Help: "Coach replies by outcome",
	}, []string{"outcome"})

	// FixtureLoadErrors counts fixture files that could not be read or parsed.
	FixtureLoadErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sherise_fixture_load_errors_total",
		Help: "Fixture loads that failed and yielded an empty list",
	}, []string{"fixture"})

	// WebSocketConnectionsTotal is the gauge of registered event stream clients.
	WebSocketConnectionsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sherise_websocket_connections_total",
		Help: "Total number of active WebSocket connections",
	})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by hub and reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sherise_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})
)
