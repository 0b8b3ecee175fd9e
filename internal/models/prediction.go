package models

import "time"

// Risk tiers derived from churn probability via fixed breakpoints.
const (
	RiskLow    = "LOW"
	RiskMedium = "MEDIUM"
	RiskHigh   = "HIGH"
)

// RiskLevel maps a churn probability to its tier. Breakpoints are
// inclusive on the upper tier: >=0.70 HIGH, >=0.40 MEDIUM, else LOW.
func RiskLevel(probability float64) string {
	switch {
	case probability >= 0.7:
		return RiskHigh
	case probability >= 0.4:
		return RiskMedium
	default:
		return RiskLow
	}
}

// RiskRank orders tiers LOW < MEDIUM < HIGH.
func RiskRank(level string) int {
	switch level {
	case RiskHigh:
		return 2
	case RiskMedium:
		return 1
	default:
		return 0
	}
}

// PredictionResult is one inference outcome. ChurnProbability and
// NoChurnProbability sum to 1.
type PredictionResult struct {
	CustomerID         string    `json:"customer_id,omitempty"`
	ChurnPrediction    bool      `json:"churn_prediction"`
	ChurnProbability   float64   `json:"churn_probability"`
	NoChurnProbability float64   `json:"no_churn_probability"`
	RiskLevel          string    `json:"risk_level"`
	Confidence         string    `json:"confidence,omitempty"`
	ModelName          string    `json:"model_name"`
	ModelVersion       string    `json:"model_version,omitempty"`
	PredictionDate     time.Time `json:"prediction_date"`
}

// FeatureImpact is one feature's signed attribution for a prediction.
type FeatureImpact struct {
	Feature   string  `json:"feature"`
	Value     float64 `json:"value"`
	Impact    float64 `json:"impact_value"`
	Direction string  `json:"impact"` // "positive" or "negative"
}

// Explanation carries per-feature attribution for one prediction. The
// base value plus all impacts sums to the model's raw output.
type Explanation struct {
	BaseValue       float64         `json:"base_value"`
	FeatureImpacts  []FeatureImpact `json:"feature_impacts"`
	TopFeatures     []FeatureImpact `json:"top_features"`
	Recommendations []string        `json:"recommendations"`
}

// PredictionRecord is a served prediction persisted for later
// explanation lookup and what-if analysis. Features holds the original
// request so a scenario can be re-scored against it.
type PredictionRecord struct {
	ID               int64              `json:"id,omitempty"`
	CustomerID       string             `json:"customer_id"`
	ChurnPrediction  bool               `json:"churn_prediction"`
	ChurnProbability float64            `json:"churn_probability"`
	RiskLevel        string             `json:"risk_level"`
	ModelName        string             `json:"model_name"`
	Features         *PredictionRequest `json:"features,omitempty"`
	Explanation      *Explanation       `json:"explanation,omitempty"`
	PredictionDate   time.Time          `json:"prediction_date"`
}

// BatchRowError reports a malformed row in batch inference by ordinal
// position without aborting sibling rows.
type BatchRowError struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
}

// BatchResult pairs ordered per-row predictions with out-of-band row
// errors. Predictions[i] is nil exactly when row i failed.
type BatchResult struct {
	Predictions []*PredictionResult `json:"predictions"`
	Errors      []BatchRowError     `json:"errors"`
}
