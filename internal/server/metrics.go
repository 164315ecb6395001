package server

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/MeKo-Tech/freqaug/internal/augment"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "freqaug_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "freqaug_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Engine metrics, fed by metricsObserver.
	augmentCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "freqaug_augment_calls_total",
			Help: "Total number of augmentation calls by variant and whether the transform was applied",
		},
		[]string{"variant", "applied"},
	)

	augmentDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "freqaug_augment_duration_seconds",
			Help:    "Time spent inside the augmentation engine",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"variant"},
	)

	// augmentRequestsTotal counts requests per transport. source: json, image, websocket
	augmentRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "freqaug_augment_requests_total",
			Help: "Total number of augmentation requests",
		},
		[]string{"source", "status"},
	)

	batchElements = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "freqaug_batch_elements",
			Help:    "Number of float32 elements per submitted batch",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 10),
		},
	)

	rateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "freqaug_rate_limit_hits_total",
			Help: "Total number of rate limit hits",
		},
		[]string{"type"}, // minute, hour, requests, data
	)

	uploadSizeBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "freqaug_upload_size_bytes",
			Help:    "Size of request bodies in bytes",
			Buckets: []float64{1024, 10 * 1024, 100 * 1024, 1024 * 1024, 10 * 1024 * 1024, 50 * 1024 * 1024},
		},
	)

	websocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "freqaug_websocket_active_connections",
			Help: "Number of active WebSocket connections",
		},
	)

	websocketMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "freqaug_websocket_messages_total",
			Help: "Total number of WebSocket messages",
		},
		[]string{"direction"}, // sent, received
	)
)

// metricsObserver records every engine call.
type metricsObserver struct{}

func (metricsObserver) Observe(v augment.Variant, applied bool, elapsed time.Duration) {
	augmentCallsTotal.WithLabelValues(v.String(), strconv.FormatBool(applied)).Inc()
	augmentDuration.WithLabelValues(v.String()).Observe(elapsed.Seconds())
}
