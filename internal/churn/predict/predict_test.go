package predict

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"churn-predictor/internal/churn/model"
	"churn-predictor/internal/common/errors"
	"churn-predictor/internal/models"
)

// constantClassifier predicts the probability passed as the only
// feature, which lets each test pick its probability directly.
type constantClassifier struct{}

func (constantClassifier) Fit([][]float64, []float64) error { return nil }
func (constantClassifier) PredictProba(x []float64) float64 { return x[0] }
func (constantClassifier) RawScore(x []float64) float64     { return x[0] }
func (constantClassifier) FeatureImportances() []float64    { return []float64{1} }
func (constantClassifier) Family() model.Family             { return model.Family("constant") }

func TestPredictVector_Probabilities(t *testing.T) {
	p := New(constantClassifier{}, "Gradient Boosting", "v1")

	r, err := p.PredictVector([]float64{0.73})
	require.NoError(t, err)

	assert.True(t, r.ChurnPrediction)
	assert.InDelta(t, 0.73, r.ChurnProbability, 1e-12)
	assert.InDelta(t, 0.27, r.NoChurnProbability, 1e-12)
	assert.InDelta(t, 1.0, r.ChurnProbability+r.NoChurnProbability, 1e-12)
	assert.Equal(t, "Gradient Boosting", r.ModelName)
	assert.Equal(t, "v1", r.ModelVersion)
	assert.False(t, r.PredictionDate.IsZero())
}

func TestPredictVector_DecisionBoundary(t *testing.T) {
	p := New(constantClassifier{}, "m", "v")

	tests := []struct {
		prob float64
		want bool
	}{
		{0.49, false},
		{0.5, true},
		{0.51, true},
	}
	for _, tc := range tests {
		r, err := p.PredictVector([]float64{tc.prob})
		require.NoError(t, err)
		assert.Equal(t, tc.want, r.ChurnPrediction, "prob %v", tc.prob)
	}
}

func TestPredictVector_RiskTiers(t *testing.T) {
	p := New(constantClassifier{}, "m", "v")

	tests := []struct {
		prob float64
		want string
	}{
		{0.05, models.RiskLow},
		{0.39, models.RiskLow},
		{0.4, models.RiskMedium},
		{0.69, models.RiskMedium},
		{0.7, models.RiskHigh},
		{0.95, models.RiskHigh},
	}
	for _, tc := range tests {
		r, err := p.PredictVector([]float64{tc.prob})
		require.NoError(t, err)
		assert.Equal(t, tc.want, r.RiskLevel, "prob %v", tc.prob)
	}
}

func TestPredictVector_ConfidenceBands(t *testing.T) {
	p := New(constantClassifier{}, "m", "v")

	tests := []struct {
		prob float64
		want string
	}{
		{0.95, ConfidenceVeryHigh},
		{0.05, ConfidenceVeryHigh},
		{0.9, ConfidenceVeryHigh},
		{0.85, ConfidenceHigh},
		{0.15, ConfidenceHigh},
		{0.75, ConfidenceMedium},
		{0.3, ConfidenceMedium},
		{0.65, ConfidenceLow},
		{0.5, ConfidenceLow},
	}
	for _, tc := range tests {
		r, err := p.PredictVector([]float64{tc.prob})
		require.NoError(t, err)
		assert.Equal(t, tc.want, r.Confidence, "prob %v", tc.prob)
	}
}

func TestPredictVector_NoClassifier(t *testing.T) {
	p := New(nil, "m", "v")
	_, err := p.PredictVector([]float64{0.5})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeModelNotLoaded, errors.CodeOf(err))
}

func TestPredictAll(t *testing.T) {
	p := New(constantClassifier{}, "m", "v")

	out, err := p.PredictAll([][]float64{{0.9}, nil, {0.1}})
	require.NoError(t, err)
	require.Len(t, out, 3)

	assert.True(t, out[0].ChurnPrediction)
	assert.Nil(t, out[1])
	assert.False(t, out[2].ChurnPrediction)

	empty, err := p.PredictAll(nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
