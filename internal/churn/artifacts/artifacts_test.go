package artifacts

import (
	"math/rand"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"churn-predictor/internal/churn/model"
	"churn-predictor/internal/churn/transform"
	"churn-predictor/internal/common/errors"
)

func fitted(t *testing.T) model.Classifier {
	t.Helper()
	rng := rand.New(rand.NewSource(1))
	X := make([][]float64, 80)
	y := make([]float64, 80)
	for i := range X {
		X[i] = []float64{rng.NormFloat64(), rng.NormFloat64()}
		if X[i][0] > 0 {
			y[i] = 1
		}
	}
	clf := model.NewLogisticRegression()
	require.NoError(t, clf.Fit(X, y))
	return clf
}

func TestVariantFileName(t *testing.T) {
	assert.Equal(t, "gradient_boosting.json", VariantFileName("Gradient Boosting"))
	assert.Equal(t, "logistic_regression.json", VariantFileName("Logistic Regression"))
	assert.Equal(t, "random_forest.json", VariantFileName("Random Forest"))
}

func TestSaveModels_RoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "models")
	clf := fitted(t)

	require.NoError(t, SaveModels(dir, map[string]model.Classifier{
		model.NameLogisticRegression: clf,
	}))

	restored, err := LoadModel(dir, model.NameLogisticRegression)
	require.NoError(t, err)
	assert.Equal(t, clf.Family(), restored.Family())

	x := []float64{0.3, -1.2}
	assert.InDelta(t, clf.PredictProba(x), restored.PredictProba(x), 1e-12)
}

func TestLoadModel_Missing(t *testing.T) {
	_, err := LoadModel(t.TempDir(), model.NameRandomForest)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeArtifactIO, errors.CodeOf(err))
}

func TestTransformer_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	tr := &transform.Transformer{
		FeatureNames:    []string{"tenure", "Contract_One year"},
		DroppedCategory: map[string]string{"Contract": "Month-to-month"},
		OneHot:          map[string][]string{"Contract": {"One year", "Two year"}},
		Mean:            []float64{32.4, 0.2},
		Std:             []float64{24.5, 0.4},
	}

	require.NoError(t, SaveTransformer(dir, tr))
	restored, err := LoadTransformer(dir)
	require.NoError(t, err)

	assert.Equal(t, tr.FeatureNames, restored.FeatureNames)
	assert.Equal(t, tr.DroppedCategory, restored.DroppedCategory)
	assert.Equal(t, tr.OneHot, restored.OneHot)
	assert.Equal(t, tr.Mean, restored.Mean)
	assert.Equal(t, tr.Std, restored.Std)
}

func TestMetadata_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	md := &Metadata{
		FeatureNames:    []string{"tenure", "MonthlyCharges"},
		ModelVersion:    "20260301120000",
		BestModel:       model.NameGradientBoosting,
		NFeatures:       2,
		TrainingSamples: 5000,
		TestSamples:     1250,
		TrainedAt:       time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	require.NoError(t, SaveMetadata(dir, md))
	restored, err := LoadMetadata(dir)
	require.NoError(t, err)
	assert.Equal(t, md, restored)
}

func TestBackground_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	rows := [][]float64{{0.1, -0.2}, {1.5, 0.3}}

	require.NoError(t, SaveBackground(dir, rows))
	restored, err := LoadBackground(dir)
	require.NoError(t, err)
	assert.Equal(t, rows, restored)
}

func TestLoadBackground_MissingIsNotAnError(t *testing.T) {
	rows, err := LoadBackground(t.TempDir())
	require.NoError(t, err)
	assert.Nil(t, rows)
}

func TestSave_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "models")
	require.NoError(t, SaveMetadata(dir, &Metadata{ModelVersion: "v"}))

	md, err := LoadMetadata(dir)
	require.NoError(t, err)
	assert.Equal(t, "v", md.ModelVersion)
}
