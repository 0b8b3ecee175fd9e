package serving

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"churn-predictor/internal/churn/churntest"
	"churn-predictor/internal/common/config"
	"churn-predictor/internal/common/database"
	"churn-predictor/internal/common/errors"
	"churn-predictor/internal/common/logger"
	"churn-predictor/internal/common/notify"
	"churn-predictor/internal/jobs"
	"churn-predictor/internal/models"
)

func trainedResult(t *testing.T) (*jobs.PipelineResult, *config.Config) {
	t.Helper()
	dir := t.TempDir()
	dataPath := filepath.Join(dir, "churn.csv")
	require.NoError(t, churntest.WriteCSV(dataPath, churntest.Corpus(250, 1)))

	cfg := &config.Config{
		Models: config.ModelsConfig{
			Dir:     filepath.Join(dir, "models"),
			Version: "test",
		},
		Training: config.TrainingConfig{
			DataPath:          dataPath,
			Seed:              42,
			TestSize:          0.2,
			CVFolds:           3,
			SelectionMetric:   "roc_auc",
			ImportanceTopN:    10,
			BackgroundSamples: 50,
		},
		Alerts: config.AlertsConfig{Threshold: 0.8},
		Database: config.DatabaseConfig{
			Redis: config.RedisConfig{TTLSeconds: 60},
		},
	}

	p := jobs.NewPipeline(cfg.Training, cfg.Models, nil, logger.NewTestLogger(t))
	result, err := p.Run(context.Background(), models.TrainingOptions{}, nil)
	require.NoError(t, err)
	return result, cfg
}

type fakeStore struct {
	saved  []*models.PredictionRecord
	latest map[string]*models.PredictionRecord
}

func newFakeStore() *fakeStore {
	return &fakeStore{latest: make(map[string]*models.PredictionRecord)}
}

func (s *fakeStore) SavePrediction(_ context.Context, rec *models.PredictionRecord) error {
	s.saved = append(s.saved, rec)
	s.latest[rec.CustomerID] = rec
	return nil
}

func (s *fakeStore) LatestPrediction(_ context.Context, customerID string) (*models.PredictionRecord, error) {
	rec, ok := s.latest[customerID]
	if !ok {
		return nil, errors.NewPredictionNotFoundError(customerID)
	}
	return rec, nil
}

type fakeSender struct {
	alerts []notify.Alert
}

func (s *fakeSender) Send(_ context.Context, alert notify.Alert) error {
	s.alerts = append(s.alerts, alert)
	return nil
}

func sampleRequest(customerID string) models.PredictionRequest {
	return models.PredictionRequest{
		CustomerID:      customerID,
		Gender:          "Female",
		Tenure:          2,
		InternetService: "Fiber optic",
		Contract:        "Month-to-month",
		PaymentMethod:   "Electronic check",
		MonthlyCharges:  95.5,
	}
}

func TestEngine_PredictAfterReload(t *testing.T) {
	result, cfg := trainedResult(t)
	store := newFakeStore()
	e := NewEngine(cfg, store, nil, nil, nil, logger.NewTestLogger(t))

	assert.False(t, e.Ready())
	require.NoError(t, e.Reload(result))
	require.True(t, e.Ready())
	require.NotNil(t, e.Metadata())
	assert.Equal(t, result.Metadata.NFeatures, e.Metadata().NFeatures)

	pred, expl, err := e.Predict(context.Background(), sampleRequest("cust-1"))
	require.NoError(t, err)

	assert.Equal(t, "cust-1", pred.CustomerID)
	assert.GreaterOrEqual(t, pred.ChurnProbability, 0.0)
	assert.LessOrEqual(t, pred.ChurnProbability, 1.0)
	assert.NotEmpty(t, pred.RiskLevel)
	assert.NotEmpty(t, pred.ModelName)

	require.NotNil(t, expl)
	assert.NotEmpty(t, expl.TopFeatures)
	assert.NotEmpty(t, expl.Recommendations)

	// The prediction is persisted with its request features.
	require.Len(t, store.saved, 1)
	require.NotNil(t, store.saved[0].Features)
	assert.Equal(t, "cust-1", store.saved[0].Features.CustomerID)
}

func TestEngine_RiskScenarios(t *testing.T) {
	result, cfg := trainedResult(t)
	e := NewEngine(cfg, nil, nil, nil, nil, logger.NewTestLogger(t))
	require.NoError(t, e.Reload(result))

	t.Run("new month-to-month electronic-check customer is high risk", func(t *testing.T) {
		pred, expl, err := e.Predict(context.Background(), models.PredictionRequest{
			CustomerID:       "risk-a",
			Gender:           "Male",
			Tenure:           1,
			InternetService:  "Fiber optic",
			OnlineSecurity:   "No",
			OnlineBackup:     "No",
			DeviceProtection: "No",
			TechSupport:      "No",
			Contract:         "Month-to-month",
			PaymentMethod:    "Electronic check",
			MonthlyCharges:   90,
		})
		require.NoError(t, err)
		assert.Equal(t, models.RiskHigh, pred.RiskLevel)
		assert.GreaterOrEqual(t, pred.ChurnProbability, 0.7)

		var referenced bool
		for _, f := range expl.TopFeatures {
			if f.Direction != "positive" {
				continue
			}
			name := strings.ToLower(f.Feature)
			if strings.Contains(name, "contract") || strings.Contains(name, "month") ||
				strings.Contains(name, "payment") || strings.Contains(name, "electronic") {
				referenced = true
			}
		}
		assert.True(t, referenced, "no contract or payment factor among the top risk drivers")
	})

	t.Run("settled two-year automatic-payment customer is low risk", func(t *testing.T) {
		pred, _, err := e.Predict(context.Background(), models.PredictionRequest{
			CustomerID:       "risk-b",
			Gender:           "Female",
			Tenure:           60,
			InternetService:  "DSL",
			OnlineSecurity:   "Yes",
			OnlineBackup:     "Yes",
			DeviceProtection: "Yes",
			TechSupport:      "Yes",
			Contract:         "Two year",
			PaymentMethod:    "Bank transfer (automatic)",
			MonthlyCharges:   60,
		})
		require.NoError(t, err)
		assert.Equal(t, models.RiskLow, pred.RiskLevel)
		assert.Less(t, pred.ChurnProbability, 0.4)
	})
}

func TestEngine_PredictLoadsArtifactsLazily(t *testing.T) {
	result, cfg := trainedResult(t)
	_ = result // artifacts are already on disk under cfg.Models.Dir

	e := NewEngine(cfg, nil, nil, nil, nil, logger.NewTestLogger(t))
	assert.False(t, e.Ready())

	pred, _, err := e.Predict(context.Background(), sampleRequest("cust-2"))
	require.NoError(t, err)
	assert.True(t, e.Ready())
	assert.NotEmpty(t, pred.ModelName)
}

func TestEngine_UnavailableWithoutArtifacts(t *testing.T) {
	cfg := &config.Config{
		Models: config.ModelsConfig{Dir: t.TempDir()},
	}
	e := NewEngine(cfg, nil, nil, nil, nil, logger.NewTestLogger(t))

	_, _, err := e.Predict(context.Background(), sampleRequest("cust-3"))
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeModelUnavailable, errors.CodeOf(err))
}

func TestEngine_DefaultVariantOverride(t *testing.T) {
	result, cfg := trainedResult(t)
	cfg.Models.DefaultVariant = "Logistic Regression"
	e := NewEngine(cfg, nil, nil, nil, nil, logger.NewTestLogger(t))
	require.NoError(t, e.Reload(result))

	pred, _, err := e.Predict(context.Background(), sampleRequest("cust-4"))
	require.NoError(t, err)
	assert.Equal(t, "Logistic Regression", pred.ModelName)
}

func TestEngine_PredictBatchIsolatesRowFailures(t *testing.T) {
	result, cfg := trainedResult(t)
	e := NewEngine(cfg, nil, nil, nil, nil, logger.NewTestLogger(t))
	require.NoError(t, e.Reload(result))

	bad := sampleRequest("bad")
	bad.Tenure = -3

	batch, err := e.PredictBatch(context.Background(), []models.PredictionRequest{
		sampleRequest("ok-1"), bad, sampleRequest("ok-2"),
	})
	require.NoError(t, err)

	require.Len(t, batch.Predictions, 3)
	assert.NotNil(t, batch.Predictions[0])
	assert.Nil(t, batch.Predictions[1])
	assert.NotNil(t, batch.Predictions[2])

	require.Len(t, batch.Errors, 1)
	assert.Equal(t, 1, batch.Errors[0].Row)
}

func TestEngine_WhatIf(t *testing.T) {
	result, cfg := trainedResult(t)
	store := newFakeStore()
	e := NewEngine(cfg, store, nil, nil, nil, logger.NewTestLogger(t))
	require.NoError(t, e.Reload(result))

	_, _, err := e.Predict(context.Background(), sampleRequest("cust-5"))
	require.NoError(t, err)

	out, err := e.WhatIf(context.Background(), "cust-5", map[string]string{
		"Contract": "Two year",
	})
	require.NoError(t, err)

	assert.Equal(t, "cust-5", out.CustomerID)
	assert.Equal(t, map[string]string{"Contract": "Two year"}, out.ChangesApplied)
	assert.InDelta(t,
		out.Modified.ChurnProbability-out.Original.ChurnProbability,
		out.Impact.ProbabilityChange, 1e-12)
	assert.Equal(t, out.Impact.ProbabilityChange < 0, out.Impact.Improvement)
}

func TestEngine_WhatIfUnknownCustomer(t *testing.T) {
	result, cfg := trainedResult(t)
	e := NewEngine(cfg, newFakeStore(), nil, nil, nil, logger.NewTestLogger(t))
	require.NoError(t, e.Reload(result))

	_, err := e.WhatIf(context.Background(), "ghost", nil)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodePredictionNotFound, errors.CodeOf(err))
}

func TestEngine_ExplanationServedFromCache(t *testing.T) {
	result, cfg := trainedResult(t)
	mr := miniredis.RunT(t)
	cache := &database.RedisClient{Client: redis.NewClient(&redis.Options{Addr: mr.Addr()})}

	e := NewEngine(cfg, nil, cache, nil, nil, logger.NewTestLogger(t))
	require.NoError(t, e.Reload(result))

	_, _, err := e.Predict(context.Background(), sampleRequest("cust-6"))
	require.NoError(t, err)

	// No prediction store attached: a hit can only come from the cache.
	rec, err := e.Explanation(context.Background(), "cust-6")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "cust-6", rec.CustomerID)
	require.NotNil(t, rec.Explanation)
	assert.NotEmpty(t, rec.Explanation.Recommendations)

	// Unknown customer misses both tiers.
	none, err := e.Explanation(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestEngine_ExplanationCacheOutageFallsBackToStore(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cache := &database.RedisClient{Client: client}
	store := newFakeStore()
	store.latest["cust-6b"] = &models.PredictionRecord{CustomerID: "cust-6b", RiskLevel: "HIGH"}

	cfg := &config.Config{Database: config.DatabaseConfig{
		Redis: config.RedisConfig{TTLSeconds: 60},
	}}
	e := NewEngine(cfg, store, cache, nil, nil, logger.NewTestLogger(t))

	// Redis outage: the lookup degrades to the prediction store.
	mock.ExpectGet("churn:explanation:cust-6b").SetErr(redis.ErrClosed)
	rec, err := e.Explanation(context.Background(), "cust-6b")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "HIGH", rec.RiskLevel)

	// A corrupt cached payload is treated as a miss, not an error.
	mock.ExpectGet("churn:explanation:cust-6b").SetVal("{not json")
	rec, err = e.Explanation(context.Background(), "cust-6b")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "cust-6b", rec.CustomerID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEngine_ExplanationFallsBackToStore(t *testing.T) {
	result, cfg := trainedResult(t)
	store := newFakeStore()
	e := NewEngine(cfg, store, nil, nil, nil, logger.NewTestLogger(t))
	require.NoError(t, e.Reload(result))

	_, _, err := e.Predict(context.Background(), sampleRequest("cust-7"))
	require.NoError(t, err)

	rec, err := e.Explanation(context.Background(), "cust-7")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "cust-7", rec.CustomerID)
}

func TestEngine_HighRiskAlert(t *testing.T) {
	result, cfg := trainedResult(t)
	cfg.Alerts.Threshold = 0 // every prediction crosses the threshold
	sender := &fakeSender{}
	e := NewEngine(cfg, nil, nil, sender, nil, logger.NewTestLogger(t))
	require.NoError(t, e.Reload(result))

	pred, _, err := e.Predict(context.Background(), sampleRequest("cust-8"))
	require.NoError(t, err)

	require.Len(t, sender.alerts, 1)
	assert.Equal(t, "cust-8", sender.alerts[0].CustomerID)
	assert.Equal(t, pred.ChurnProbability, sender.alerts[0].Probability)
	assert.Equal(t, pred.RiskLevel, sender.alerts[0].RiskLevel)
}
