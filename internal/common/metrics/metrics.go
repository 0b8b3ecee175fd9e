// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PredictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "churn_predictions_total",
			Help: "Total number of churn predictions served",
		},
		[]string{"risk_level"},
	)

	PredictionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "churn_prediction_duration_seconds",
			Help: "Duration of a single prediction including explanation",
		},
	)

	BatchRowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "churn_batch_rows_total",
			Help: "Batch prediction rows processed by outcome",
		},
		[]string{"status"},
	)

	TrainingJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "churn_training_jobs_total",
			Help: "Training jobs by terminal status",
		},
		[]string{"status"},
	)

	TrainingJobsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "churn_training_jobs_active",
			Help: "Number of training jobs currently running",
		},
	)

	TrainingStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "churn_training_stage_duration_seconds",
			Help: "Duration of each training pipeline stage",
		},
		[]string{"stage"},
	)

	RetentionAlertsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "churn_retention_alerts_total",
			Help: "Retention alerts sent by channel",
		},
		[]string{"channel", "status"},
	)
)
