// Package predict turns scaled feature vectors into churn predictions
// with complementary probabilities and risk tiers.
package predict

import (
	"time"

	"churn-predictor/internal/churn/model"
	"churn-predictor/internal/common/errors"
	"churn-predictor/internal/models"
)

// Confidence labels derived from how far the probability sits from the
// 0.5 decision boundary, graded on |p-0.5|*2.
const (
	ConfidenceVeryHigh = "Very High"
	ConfidenceHigh     = "High"
	ConfidenceMedium   = "Medium"
	ConfidenceLow      = "Low"
)

// Predictor wraps one fitted classifier. It is immutable after
// construction and safe for concurrent use.
type Predictor struct {
	clf     model.Classifier
	name    string
	version string
}

func New(clf model.Classifier, name, version string) *Predictor {
	return &Predictor{clf: clf, name: name, version: version}
}

func (p *Predictor) ModelName() string { return p.name }

// Classifier exposes the wrapped model for attribution.
func (p *Predictor) Classifier() model.Classifier { return p.clf }

// PredictVector scores one scaled feature vector. The churn decision is
// probability >= 0.5, and both class probabilities are reported so they
// always sum to 1.
func (p *Predictor) PredictVector(x []float64) (*models.PredictionResult, error) {
	if p == nil || p.clf == nil {
		return nil, errors.NewModelNotLoadedError("predictor has no classifier attached")
	}
	prob := p.clf.PredictProba(x)
	return &models.PredictionResult{
		ChurnPrediction:    prob >= 0.5,
		ChurnProbability:   prob,
		NoChurnProbability: 1 - prob,
		RiskLevel:          models.RiskLevel(prob),
		Confidence:         confidence(prob),
		ModelName:          p.name,
		ModelVersion:       p.version,
		PredictionDate:     time.Now().UTC(),
	}, nil
}

// PredictAll scores vectors in order. A nil vector (a row that failed
// upstream) yields a nil result at the same position.
func (p *Predictor) PredictAll(X [][]float64) ([]*models.PredictionResult, error) {
	if p == nil || p.clf == nil {
		return nil, errors.NewModelNotLoadedError("predictor has no classifier attached")
	}
	out := make([]*models.PredictionResult, len(X))
	for i, x := range X {
		if x == nil {
			continue
		}
		r, err := p.PredictVector(x)
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}

func confidence(prob float64) string {
	dist := prob - 0.5
	if dist < 0 {
		dist = -dist
	}
	switch c := dist * 2; {
	case c >= 0.8:
		return ConfidenceVeryHigh
	case c >= 0.6:
		return ConfidenceHigh
	case c >= 0.4:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}
