// Package observability provides metrics and tracing.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campus_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// ResourceOperations counts resource store operations by operation and outcome.
	ResourceOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campus_resource_operations_total",
		Help: "Resource store operations by operation and outcome",
	}, []string{"operation", "outcome"})

	// StorageErrors counts failed blob storage calls by backend and operation.
	StorageErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campus_storage_errors_total",
		Help: "Blob storage errors by backend and operation",
	}, []string{"backend", "operation"})

	// StorageBytesWritten counts payload bytes staged into blob storage.
	StorageBytesWritten = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campus_storage_bytes_written_total",
		Help: "Payload bytes written to blob storage",
	}, []string{"backend"})

	// MembershipChanges counts membership and subscription mutations.
	MembershipChanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campus_membership_changes_total",
		Help: "Membership and subscription mutations by kind",
	}, []string{"kind"})

	// AuthEvents counts authentication events by event and outcome.
	AuthEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campus_auth_events_total",
		Help: "Authentication events by event and outcome",
	}, []string{"event", "outcome"})

	// SweepRuns counts orphan sweeper runs by outcome.
	SweepRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campus_sweep_runs_total",
		Help: "Orphan sweeper runs by outcome",
	}, []string{"outcome"})

	// SweepRemoved counts blobs removed by the sweeper by kind (staged, unreferenced).
	SweepRemoved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campus_sweep_removed_total",
		Help: "Blobs removed by the orphan sweeper",
	}, []string{"kind"})

	// ResourcesMissingPayload is the number of resource rows whose payload was absent at the last sweep.
	ResourcesMissingPayload = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "campus_resources_missing_payload",
		Help: "Resource rows whose payload was missing at the last sweep",
	})

	// WebSocketConnectionsTotal is the gauge of active variant event connections.
	WebSocketConnectionsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "campus_websocket_connections_total",
		Help: "Total number of active WebSocket connections",
	})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by hub and reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campus_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})
)
