package explain

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"churn-predictor/internal/churn/model"
	"churn-predictor/internal/common/errors"
	"churn-predictor/internal/common/logger"
	"churn-predictor/internal/models"
)

func trainingData(n, dim int, seed int64) ([][]float64, []float64) {
	rng := rand.New(rand.NewSource(seed))
	X := make([][]float64, n)
	y := make([]float64, n)
	for i := range X {
		X[i] = make([]float64, dim)
		for j := range X[i] {
			X[i][j] = rng.NormFloat64()
		}
		if X[i][0] > 0 {
			y[i] = 1
		}
	}
	return X, y
}

func featureNames(dim int) []string {
	names := make([]string, dim)
	for j := range names {
		names[j] = string(rune('a' + j))
	}
	return names
}

func TestExplain_SamplingAdditivityForLinearModel(t *testing.T) {
	X, y := trainingData(120, 4, 1)
	clf := model.NewLogisticRegression()
	require.NoError(t, clf.Fit(X, y))

	e := New(clf, X, featureNames(4), 50, 42, logger.NewTestLogger(t))

	x := X[0]
	exp, err := e.Explain(x)
	require.NoError(t, err)

	// Sampling attribution is exact for a linear raw score.
	sum := exp.BaseValue
	for _, f := range exp.FeatureImpacts {
		sum += f.Impact
	}
	assert.InDelta(t, clf.RawScore(x), sum, 1e-9)
}

func TestExplain_PathAttributionForTreeEnsemble(t *testing.T) {
	X, y := trainingData(150, 4, 2)
	clf := model.NewGradientBoosting(42)
	require.NoError(t, clf.Fit(X, y))

	e := New(clf, X, featureNames(4), 50, 42, logger.NewTestLogger(t))

	x := X[3]
	exp, err := e.Explain(x)
	require.NoError(t, err)

	sum := exp.BaseValue
	for _, f := range exp.FeatureImpacts {
		sum += f.Impact
	}
	assert.InDelta(t, clf.RawScore(x), sum, 1e-9)
}

func TestExplain_ImpactsSortedAndTopTruncated(t *testing.T) {
	X, y := trainingData(150, 8, 3)
	clf := model.NewLogisticRegression()
	require.NoError(t, clf.Fit(X, y))

	e := New(clf, X, featureNames(8), 50, 42, logger.NewTestLogger(t))
	exp, err := e.Explain(X[0])
	require.NoError(t, err)

	require.Len(t, exp.FeatureImpacts, 8)
	for i := 1; i < len(exp.FeatureImpacts); i++ {
		prev := exp.FeatureImpacts[i-1].Impact
		cur := exp.FeatureImpacts[i].Impact
		assert.GreaterOrEqual(t, abs(prev), abs(cur))
	}
	require.Len(t, exp.TopFeatures, 5)
	assert.Equal(t, exp.FeatureImpacts[0], exp.TopFeatures[0])

	for _, f := range exp.FeatureImpacts {
		if f.Impact > 0 {
			assert.Equal(t, "positive", f.Direction)
		} else {
			assert.Equal(t, "negative", f.Direction)
		}
	}
}

func TestExplain_Deterministic(t *testing.T) {
	X, y := trainingData(300, 4, 4)
	clf := model.NewLogisticRegression()
	require.NoError(t, clf.Fit(X, y))

	a := New(clf, X, featureNames(4), 50, 7, logger.NewTestLogger(t))
	b := New(clf, X, featureNames(4), 50, 7, logger.NewTestLogger(t))

	ea, err := a.Explain(X[0])
	require.NoError(t, err)
	eb, err := b.Explain(X[0])
	require.NoError(t, err)
	assert.Equal(t, ea.FeatureImpacts, eb.FeatureImpacts)
}

func TestExplain_FeatureMismatch(t *testing.T) {
	X, y := trainingData(50, 4, 5)
	clf := model.NewLogisticRegression()
	require.NoError(t, clf.Fit(X, y))

	e := New(clf, X, featureNames(4), 50, 42, logger.NewTestLogger(t))
	_, err := e.Explain([]float64{1, 2})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeFeatureMismatch, errors.CodeOf(err))
}

func TestExplain_NoClassifier(t *testing.T) {
	var e *Explainer
	_, err := e.Explain([]float64{1})
	assert.Error(t, err)
}

func impact(name string, v float64) models.FeatureImpact {
	direction := "negative"
	if v > 0 {
		direction = "positive"
	}
	return models.FeatureImpact{Feature: name, Impact: v, Direction: direction}
}

func TestRecommendations_Rules(t *testing.T) {
	tests := []struct {
		name    string
		impacts []models.FeatureImpact
		prob    float64
		want    []string
	}{
		{
			name:    "contract factor",
			impacts: []models.FeatureImpact{impact("Contract_One year", 0.4)},
			prob:    0.5,
			want:    []string{"Offer a contract upgrade incentive (annual or 2-year plan)"},
		},
		{
			name:    "payment factor",
			impacts: []models.FeatureImpact{impact("PaymentMethod_Electronic check", 0.4)},
			prob:    0.5,
			want:    []string{"Promote automatic payment methods with discount"},
		},
		{
			name:    "derived month-to-month flag",
			impacts: []models.FeatureImpact{impact("is_month_to_month", 0.4)},
			prob:    0.5,
			want:    []string{"Offer a contract upgrade incentive (annual or 2-year plan)"},
		},
		{
			name:    "derived electronic-check flag",
			impacts: []models.FeatureImpact{impact("is_electronic_check", 0.4)},
			prob:    0.5,
			want:    []string{"Promote automatic payment methods with discount"},
		},
		{
			name: "derived risk flags together",
			impacts: []models.FeatureImpact{
				impact("is_month_to_month", 0.6),
				impact("is_electronic_check", 0.5),
			},
			prob: 0.5,
			want: []string{
				"Offer a contract upgrade incentive (annual or 2-year plan)",
				"Promote automatic payment methods with discount",
			},
		},
		{
			name:    "support factor",
			impacts: []models.FeatureImpact{impact("TechSupport", 0.4)},
			prob:    0.5,
			want:    []string{"Offer complimentary tech support trial"},
		},
		{
			name:    "security factor",
			impacts: []models.FeatureImpact{impact("OnlineSecurity", 0.4)},
			prob:    0.5,
			want:    []string{"Provide security service package promotion"},
		},
		{
			name:    "tenure factor",
			impacts: []models.FeatureImpact{impact("tenure", 0.4)},
			prob:    0.5,
			want:    []string{"Implement loyalty rewards program for long-term customers"},
		},
		{
			name:    "charges at moderate probability",
			impacts: []models.FeatureImpact{impact("MonthlyCharges", 0.4)},
			prob:    0.5,
			want:    []string{"Highlight value-added services to justify pricing"},
		},
		{
			name:    "charges at high probability",
			impacts: []models.FeatureImpact{impact("MonthlyCharges", 0.4)},
			prob:    0.75,
			want: []string{
				"Consider offering a personalized discount or price adjustment",
				"Schedule proactive customer satisfaction call",
			},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Recommendations(tc.impacts, tc.prob))
		})
	}
}

func TestRecommendations_ProbabilityLevels(t *testing.T) {
	impacts := []models.FeatureImpact{impact("tenure", 0.4)}

	high := Recommendations(impacts, 0.85)
	assert.Contains(t, high, "HIGH PRIORITY: Immediate customer retention outreach required")
	assert.NotContains(t, high, "Schedule proactive customer satisfaction call")

	mid := Recommendations(impacts, 0.65)
	assert.Contains(t, mid, "Schedule proactive customer satisfaction call")
}

func TestRecommendations_NegativeImpactsIgnored(t *testing.T) {
	impacts := []models.FeatureImpact{
		impact("Contract_Two year", -0.5),
		impact("tenure", -0.3),
	}
	got := Recommendations(impacts, 0.3)
	assert.Equal(t, []string{
		"Monitor customer engagement and satisfaction metrics",
		"Conduct customer feedback survey",
	}, got)
}

func TestRecommendations_CappedAtFive(t *testing.T) {
	impacts := []models.FeatureImpact{
		impact("Contract_One year", 0.5),
		impact("PaymentMethod_Electronic check", 0.4),
		impact("TechSupport", 0.3),
		impact("OnlineSecurity", 0.2),
	}
	got := Recommendations(impacts, 0.85)

	// Only the top three positive factors are considered, plus the
	// high-probability entry.
	assert.LessOrEqual(t, len(got), 5)
	assert.Len(t, got, 4)
	assert.NotContains(t, got, "Provide security service package promotion")
}
