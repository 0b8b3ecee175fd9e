package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"churn-predictor/internal/common/errors"
	"churn-predictor/internal/common/logger"
	"churn-predictor/internal/models"
)

func newTestStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return New(db, logger.NewTestLogger(t)), mock
}

func TestCreateTables(t *testing.T) {
	s, mock := newTestStore(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS predictions").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE INDEX IF NOT EXISTS idx_predictions_customer").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS model_metrics").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS training_jobs").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.CreateTables(context.Background()))
}

func TestSavePrediction(t *testing.T) {
	s, mock := newTestStore(t)
	now := time.Now().UTC()
	rec := &models.PredictionRecord{
		CustomerID:       "7590-VHVEG",
		ChurnPrediction:  true,
		ChurnProbability: 0.82,
		RiskLevel:        models.RiskHigh,
		ModelName:        "Gradient Boosting",
		Features:         &models.PredictionRequest{CustomerID: "7590-VHVEG", Contract: "Month-to-month"},
		Explanation:      &models.Explanation{Recommendations: []string{"Offer a contract upgrade incentive (annual or 2-year plan)"}},
		PredictionDate:   now,
	}

	features, _ := json.Marshal(rec.Features)
	explanation, _ := json.Marshal(rec.Explanation)
	mock.ExpectExec("INSERT INTO predictions").
		WithArgs("7590-VHVEG", true, 0.82, models.RiskHigh, "Gradient Boosting", features, explanation, now).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, s.SavePrediction(context.Background(), rec))
}

func predictionColumns() []string {
	return []string{
		"id", "customer_id", "churn_prediction", "churn_probability",
		"risk_level", "model_name", "features", "explanation", "prediction_date",
	}
}

func TestLatestPrediction(t *testing.T) {
	s, mock := newTestStore(t)
	now := time.Now().UTC()
	features, _ := json.Marshal(&models.PredictionRequest{CustomerID: "c1", Tenure: 4})

	mock.ExpectQuery("SELECT (.+) FROM predictions").
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows(predictionColumns()).
			AddRow(int64(7), "c1", true, 0.76, models.RiskHigh, "Random Forest", features, []byte(nil), now))

	rec, err := s.LatestPrediction(context.Background(), "c1")
	require.NoError(t, err)

	assert.Equal(t, int64(7), rec.ID)
	assert.Equal(t, "c1", rec.CustomerID)
	assert.True(t, rec.ChurnPrediction)
	assert.InDelta(t, 0.76, rec.ChurnProbability, 1e-12)
	require.NotNil(t, rec.Features)
	assert.Equal(t, 4, rec.Features.Tenure)
	assert.Nil(t, rec.Explanation)
}

func TestLatestPrediction_NotFound(t *testing.T) {
	s, mock := newTestStore(t)
	mock.ExpectQuery("SELECT (.+) FROM predictions").
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := s.LatestPrediction(context.Background(), "ghost")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodePredictionNotFound, errors.CodeOf(err))
}

func TestRecentPredictions(t *testing.T) {
	s, mock := newTestStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT (.+) FROM predictions").
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows(predictionColumns()).
			AddRow(int64(2), "b", false, 0.2, models.RiskLow, "m", []byte(nil), []byte(nil), now).
			AddRow(int64(1), "a", true, 0.9, models.RiskHigh, "m", []byte(nil), []byte(nil), now.Add(-time.Hour)))

	out, err := s.RecentPredictions(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "b", out[0].CustomerID)
	assert.Equal(t, "a", out[1].CustomerID)
}

func TestSaveModelMetrics(t *testing.T) {
	s, mock := newTestStore(t)
	now := time.Now().UTC()
	m := models.EvaluationMetrics{
		ModelName:    "Gradient Boosting",
		ModelVersion: "v1",
		Accuracy:     0.81,
		Precision:    0.67,
		Recall:       0.55,
		F1Score:      0.6,
		ROCAUC:       0.85,
		TrainedAt:    now,
	}
	importance, _ := json.Marshal(m.FeatureImportance)

	mock.ExpectExec("INSERT INTO model_metrics").
		WithArgs("Gradient Boosting", "v1", 0.81, 0.67, 0.55, 0.6, 0.85,
			0, 0, 0, 0, importance, 0, 0, 0.0, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.SaveModelMetrics(context.Background(), map[string]models.EvaluationMetrics{
		"Gradient Boosting": m,
	})
	require.NoError(t, err)
}

func TestModelMetrics(t *testing.T) {
	s, mock := newTestStore(t)
	now := time.Now().UTC()
	importance, _ := json.Marshal([]models.FeatureImportance{{Feature: "tenure", Importance: 0.3}})

	cols := []string{
		"model_name", "model_version", "accuracy", "precision_score", "recall",
		"f1_score", "roc_auc", "true_positives", "true_negatives",
		"false_positives", "false_negatives", "feature_importance",
		"training_samples", "test_samples", "training_time_seconds", "trained_at",
	}
	mock.ExpectQuery("SELECT (.+) FROM model_metrics").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("Gradient Boosting", "v1", 0.81, 0.67, 0.55, 0.6, 0.85,
				120, 800, 60, 100, importance, 4000, 1000, 12.5, now))

	out, err := s.ModelMetrics(context.Background())
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Gradient Boosting", out[0].ModelName)
	assert.Equal(t, 120, out[0].TruePositives)
	require.Len(t, out[0].FeatureImportance, 1)
	assert.Equal(t, "tenure", out[0].FeatureImportance[0].Feature)
}

func jobColumns() []string {
	return []string{
		"job_id", "status", "progress", "current_stage", "options", "result",
		"error_message", "created_at", "started_at", "completed_at",
	}
}

func TestSaveJob(t *testing.T) {
	s, mock := newTestStore(t)
	created := time.Now().UTC()
	job := &models.TrainingJob{
		JobID:        "job-1",
		Status:       models.JobRunning,
		Progress:     0.4,
		CurrentStage: "split",
		Options:      models.TrainingOptions{BalanceClasses: true},
		CreatedAt:    created,
	}
	options, _ := json.Marshal(job.Options)

	// A job without a result sends a nil byte slice, and the nil
	// timestamp pointers reach the driver as plain nils.
	mock.ExpectExec("INSERT INTO training_jobs").
		WithArgs("job-1", models.JobRunning, 0.4, "split", options, []byte(nil),
			"", created, nil, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.SaveJob(context.Background(), job))
}

func TestDeleteJob(t *testing.T) {
	s, mock := newTestStore(t)
	mock.ExpectExec("DELETE FROM training_jobs").
		WithArgs("job-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.DeleteJob(context.Background(), "job-1"))
}

func TestGetJob(t *testing.T) {
	s, mock := newTestStore(t)
	created := time.Now().UTC()
	started := created.Add(time.Second)
	options, _ := json.Marshal(models.TrainingOptions{TestSize: 0.25})
	result, _ := json.Marshal(models.JobResult{BestModel: "Gradient Boosting", FeatureCount: 30})

	mock.ExpectQuery("SELECT (.+) FROM training_jobs").
		WithArgs("job-2").
		WillReturnRows(sqlmock.NewRows(jobColumns()).
			AddRow("job-2", models.JobCompleted, 1.0, nil, options, result,
				nil, created, started, started.Add(time.Minute)))

	job, err := s.GetJob(context.Background(), "job-2")
	require.NoError(t, err)

	assert.Equal(t, models.JobCompleted, job.Status)
	assert.Empty(t, job.CurrentStage)
	assert.Empty(t, job.ErrorMessage)
	assert.InDelta(t, 0.25, job.Options.TestSize, 1e-12)
	require.NotNil(t, job.Result)
	assert.Equal(t, "Gradient Boosting", job.Result.BestModel)
	require.NotNil(t, job.StartedAt)
	require.NotNil(t, job.CompletedAt)
}

func TestGetJob_NotFound(t *testing.T) {
	s, mock := newTestStore(t)
	mock.ExpectQuery("SELECT (.+) FROM training_jobs").
		WithArgs("nope").
		WillReturnError(sql.ErrNoRows)

	_, err := s.GetJob(context.Background(), "nope")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeJobNotFound, errors.CodeOf(err))
}

func TestListJobs(t *testing.T) {
	s, mock := newTestStore(t)
	created := time.Now().UTC()
	options, _ := json.Marshal(models.TrainingOptions{})

	mock.ExpectQuery("SELECT (.+) FROM training_jobs").
		WithArgs(10).
		WillReturnRows(sqlmock.NewRows(jobColumns()).
			AddRow("new", models.JobPending, 0.0, nil, options, []byte(nil), nil, created, nil, nil).
			AddRow("old", models.JobFailed, 0.0, nil, options, []byte(nil), "corpus load failed", created.Add(-time.Hour), nil, nil))

	jobs, err := s.ListJobs(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "new", jobs[0].JobID)
	assert.Equal(t, "corpus load failed", jobs[1].ErrorMessage)
}
