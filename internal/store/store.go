// Package store persists predictions, evaluation metrics and training
// jobs in PostgreSQL.
package store

import (
	"context"
	"database/sql"

	"churn-predictor/internal/common/errors"
	"churn-predictor/internal/common/logger"
)

// Store is the PostgreSQL repository shared by serving and training.
type Store struct {
	db  *sql.DB
	log logger.Logger
}

func New(db *sql.DB, log logger.Logger) *Store {
	return &Store{db: db, log: log}
}

// CreateTables creates the schema if it does not exist yet. Idempotent.
func (s *Store) CreateTables(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS predictions (
			id BIGSERIAL PRIMARY KEY,
			customer_id TEXT NOT NULL,
			churn_prediction BOOLEAN NOT NULL,
			churn_probability DOUBLE PRECISION NOT NULL,
			risk_level TEXT NOT NULL,
			model_name TEXT NOT NULL,
			features JSONB,
			explanation JSONB,
			prediction_date TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_predictions_customer
			ON predictions (customer_id, prediction_date DESC)`,
		`CREATE TABLE IF NOT EXISTS model_metrics (
			model_name TEXT PRIMARY KEY,
			model_version TEXT,
			accuracy DOUBLE PRECISION NOT NULL,
			precision_score DOUBLE PRECISION NOT NULL,
			recall DOUBLE PRECISION NOT NULL,
			f1_score DOUBLE PRECISION NOT NULL,
			roc_auc DOUBLE PRECISION NOT NULL,
			true_positives INTEGER NOT NULL,
			true_negatives INTEGER NOT NULL,
			false_positives INTEGER NOT NULL,
			false_negatives INTEGER NOT NULL,
			feature_importance JSONB,
			training_samples INTEGER,
			test_samples INTEGER,
			training_time_seconds DOUBLE PRECISION,
			trained_at TIMESTAMPTZ
		)`,
		`CREATE TABLE IF NOT EXISTS training_jobs (
			job_id TEXT PRIMARY KEY,
			status TEXT NOT NULL,
			progress DOUBLE PRECISION NOT NULL DEFAULT 0,
			current_stage TEXT,
			options JSONB,
			result JSONB,
			error_message TEXT,
			created_at TIMESTAMPTZ NOT NULL,
			started_at TIMESTAMPTZ,
			completed_at TIMESTAMPTZ
		)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return errors.NewQueryError(err)
		}
	}
	s.log.Info("database schema ready", nil)
	return nil
}
