// Package metrics registers Prometheus collectors for the backend.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Ingest metrics
	EventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "graylake_ingest_events_total",
			Help: "Total number of ingest requests by outcome",
		},
		[]string{"status"},
	)

	IngestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "graylake_ingest_duration_seconds",
			Help:    "Duration of event ingestion in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "graylake_ingest_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"key"},
	)

	// Detection metrics
	DetectionQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "graylake_detection_queue_depth",
			Help: "Current depth of the detection work queue",
		},
	)

	DetectionDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "graylake_detection_dropped_total",
			Help: "Total number of detection jobs dropped because the queue was full",
		},
	)

	DetectionsFired = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "graylake_detections_fired_total",
			Help: "Total number of rule matches",
		},
		[]string{"rule"},
	)

	AlertsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "graylake_alerts_created_total",
			Help: "Total number of alerts created",
		},
		[]string{"rule"},
	)

	AlertsDeduplicated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "graylake_alerts_deduplicated_total",
			Help: "Total number of alert creations suppressed by deduplication",
		},
		[]string{"rule"},
	)
)
