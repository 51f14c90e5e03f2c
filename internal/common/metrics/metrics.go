// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pitch_submissions_total",
			Help: "Total number of pitch submissions by outcome",
		},
		[]string{"outcome"},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pitch_stage_duration_seconds",
			Help:    "Duration of each pipeline stage in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"stage"},
	)

	ScoringRepairs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pitch_scoring_repairs_total",
			Help: "Repair calls issued by the scorer, by result",
		},
		[]string{"result"},
	)

	ListingSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pitch_listing_skipped_total",
			Help: "Records skipped while listing, by reason",
		},
		[]string{"reason"},
	)

	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pitch_notifications_total",
			Help: "Notification deliveries by channel and status",
		},
		[]string{"channel", "status"},
	)

	StoreOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "pitch_store_operation_duration_seconds",
			Help: "Record store call duration in seconds",
		},
		[]string{"backend", "operation"},
	)

	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pitch_background_tasks_pending",
			Help: "Background tasks waiting for a worker",
		},
	)
)
