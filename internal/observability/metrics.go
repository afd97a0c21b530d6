package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// StoreOperationLatency records repository latency by operation.
	StoreOperationLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "minisocial_store_operation_latency_seconds",
		Help:    "Store operation latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	// StoreErrors counts store failures surfaced as StorageUnavailable.
	StoreErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "minisocial_store_errors_total",
		Help: "Total number of store errors by operation",
	}, []string{"operation"})

	// SocialActions counts accepted mutations by action and outcome.
	SocialActions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "minisocial_social_actions_total",
		Help: "Total number of social actions by type and outcome",
	}, []string{"action", "outcome"})

	// FeedSize observes how many posts each composed feed returned.
	FeedSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "minisocial_feed_size_posts",
		Help:    "Number of posts returned per composed feed",
		Buckets: []float64{0, 1, 5, 10, 20, 50, 100, 250},
	})

	// CacheLookups counts cache-aside lookups by cache and result.
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "minisocial_cache_lookups_total",
		Help: "Cache lookups by cache name and result (hit, miss, error)",
	}, []string{"cache", "result"})

	// EventsPublished counts realtime events handed to the events backend.
	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "minisocial_events_published_total",
		Help: "Events published by backend and result",
	}, []string{"backend", "result"})

	// WebSocketConnectionsTotal is the gauge of total WebSocket connections.
	WebSocketConnectionsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "minisocial_websocket_connections_total",
		Help: "Total number of active WebSocket connections",
	})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by hub and reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "minisocial_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})

	// MediaUploadBytes observes stored media sizes by kind.
	MediaUploadBytes = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "minisocial_media_upload_bytes",
		Help:    "Size of stored media objects in bytes",
		Buckets: prometheus.ExponentialBuckets(16*1024, 4, 8),
	}, []string{"kind"})
)

// TrackStore returns a function that records store latency when called (e.g. defer).
func TrackStore(operation string) func() {
	start := time.Now()
	return func() {
		StoreOperationLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}
}

// RecordAction increments the social action counter.
func RecordAction(action string, ok bool) {
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	SocialActions.WithLabelValues(action, outcome).Inc()
}
