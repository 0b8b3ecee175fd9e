package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"churn-predictor/internal/common/errors"
	"churn-predictor/internal/models"
)

// SavePrediction appends one served prediction with its request
// features and explanation.
func (s *Store) SavePrediction(ctx context.Context, rec *models.PredictionRecord) error {
	features, err := json.Marshal(rec.Features)
	if err != nil {
		return errors.NewQueryError(err)
	}
	explanation, err := json.Marshal(rec.Explanation)
	if err != nil {
		return errors.NewQueryError(err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO predictions
			(customer_id, churn_prediction, churn_probability, risk_level,
			 model_name, features, explanation, prediction_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.CustomerID, rec.ChurnPrediction, rec.ChurnProbability, rec.RiskLevel,
		rec.ModelName, features, explanation, rec.PredictionDate,
	)
	if err != nil {
		return errors.NewQueryError(err)
	}
	return nil
}

// LatestPrediction returns the most recent prediction for a customer.
func (s *Store) LatestPrediction(ctx context.Context, customerID string) (*models.PredictionRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, customer_id, churn_prediction, churn_probability, risk_level,
		       model_name, features, explanation, prediction_date
		FROM predictions
		WHERE customer_id = $1
		ORDER BY prediction_date DESC
		LIMIT 1`,
		customerID,
	)
	rec, err := scanPrediction(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewPredictionNotFoundError(customerID)
	}
	if err != nil {
		return nil, errors.NewQueryError(err)
	}
	return rec, nil
}

// RecentPredictions lists served predictions newest first, bounded.
func (s *Store) RecentPredictions(ctx context.Context, limit int) ([]*models.PredictionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, customer_id, churn_prediction, churn_probability, risk_level,
		       model_name, features, explanation, prediction_date
		FROM predictions
		ORDER BY prediction_date DESC
		LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, errors.NewQueryError(err)
	}
	defer rows.Close()

	var out []*models.PredictionRecord
	for rows.Next() {
		rec, err := scanPrediction(rows)
		if err != nil {
			return nil, errors.NewQueryError(err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewQueryError(err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPrediction(r rowScanner) (*models.PredictionRecord, error) {
	var rec models.PredictionRecord
	var features, explanation []byte
	err := r.Scan(
		&rec.ID, &rec.CustomerID, &rec.ChurnPrediction, &rec.ChurnProbability,
		&rec.RiskLevel, &rec.ModelName, &features, &explanation, &rec.PredictionDate,
	)
	if err != nil {
		return nil, err
	}
	if len(features) > 0 {
		if err := json.Unmarshal(features, &rec.Features); err != nil {
			return nil, err
		}
	}
	if len(explanation) > 0 {
		if err := json.Unmarshal(explanation, &rec.Explanation); err != nil {
			return nil, err
		}
	}
	return &rec, nil
}
