package models

import "time"

// FeatureImportance is one ranked entry of a model's importance list.
type FeatureImportance struct {
	Feature    string  `json:"feature"`
	Importance float64 `json:"importance"`
}

// EvaluationMetrics holds the held-out-split scores of one trained
// model variant. Immutable once computed.
type EvaluationMetrics struct {
	ModelName      string  `json:"model_name"`
	ModelVersion   string  `json:"model_version,omitempty"`
	Accuracy       float64 `json:"accuracy"`
	Precision      float64 `json:"precision"`
	Recall         float64 `json:"recall"`
	F1Score        float64 `json:"f1_score"`
	ROCAUC         float64 `json:"roc_auc"`
	TruePositives  int     `json:"true_positives"`
	TrueNegatives  int     `json:"true_negatives"`
	FalsePositives int     `json:"false_positives"`
	FalseNegatives int     `json:"false_negatives"`

	FeatureImportance []FeatureImportance `json:"feature_importance,omitempty"`

	TrainingSamples     int       `json:"training_samples,omitempty"`
	TestSamples         int       `json:"test_samples,omitempty"`
	TrainingTimeSeconds float64   `json:"training_time_seconds,omitempty"`
	TrainedAt           time.Time `json:"trained_at,omitempty"`
}
