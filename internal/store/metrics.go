package store

import (
	"context"
	"encoding/json"

	"churn-predictor/internal/common/errors"
	"churn-predictor/internal/models"
)

// SaveModelMetrics upserts the held-out metrics of every variant from
// one training run, keyed by model name.
func (s *Store) SaveModelMetrics(ctx context.Context, metrics map[string]models.EvaluationMetrics) error {
	for name, m := range metrics {
		importance, err := json.Marshal(m.FeatureImportance)
		if err != nil {
			return errors.NewQueryError(err)
		}
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO model_metrics
				(model_name, model_version, accuracy, precision_score, recall,
				 f1_score, roc_auc, true_positives, true_negatives,
				 false_positives, false_negatives, feature_importance,
				 training_samples, test_samples, training_time_seconds, trained_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
			ON CONFLICT (model_name) DO UPDATE SET
				model_version = EXCLUDED.model_version,
				accuracy = EXCLUDED.accuracy,
				precision_score = EXCLUDED.precision_score,
				recall = EXCLUDED.recall,
				f1_score = EXCLUDED.f1_score,
				roc_auc = EXCLUDED.roc_auc,
				true_positives = EXCLUDED.true_positives,
				true_negatives = EXCLUDED.true_negatives,
				false_positives = EXCLUDED.false_positives,
				false_negatives = EXCLUDED.false_negatives,
				feature_importance = EXCLUDED.feature_importance,
				training_samples = EXCLUDED.training_samples,
				test_samples = EXCLUDED.test_samples,
				training_time_seconds = EXCLUDED.training_time_seconds,
				trained_at = EXCLUDED.trained_at`,
			name, m.ModelVersion, m.Accuracy, m.Precision, m.Recall,
			m.F1Score, m.ROCAUC, m.TruePositives, m.TrueNegatives,
			m.FalsePositives, m.FalseNegatives, importance,
			m.TrainingSamples, m.TestSamples, m.TrainingTimeSeconds, m.TrainedAt,
		)
		if err != nil {
			return errors.NewQueryError(err)
		}
	}
	s.log.Info("model metrics saved", map[string]interface{}{"models": len(metrics)})
	return nil
}

// ModelMetrics returns the stored metrics for every variant.
func (s *Store) ModelMetrics(ctx context.Context) ([]models.EvaluationMetrics, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT model_name, model_version, accuracy, precision_score, recall,
		       f1_score, roc_auc, true_positives, true_negatives,
		       false_positives, false_negatives, feature_importance,
		       training_samples, test_samples, training_time_seconds, trained_at
		FROM model_metrics
		ORDER BY model_name`,
	)
	if err != nil {
		return nil, errors.NewQueryError(err)
	}
	defer rows.Close()

	var out []models.EvaluationMetrics
	for rows.Next() {
		var m models.EvaluationMetrics
		var importance []byte
		err := rows.Scan(
			&m.ModelName, &m.ModelVersion, &m.Accuracy, &m.Precision, &m.Recall,
			&m.F1Score, &m.ROCAUC, &m.TruePositives, &m.TrueNegatives,
			&m.FalsePositives, &m.FalseNegatives, &importance,
			&m.TrainingSamples, &m.TestSamples, &m.TrainingTimeSeconds, &m.TrainedAt,
		)
		if err != nil {
			return nil, errors.NewQueryError(err)
		}
		if len(importance) > 0 {
			if err := json.Unmarshal(importance, &m.FeatureImportance); err != nil {
				return nil, errors.NewQueryError(err)
			}
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewQueryError(err)
	}
	return out, nil
}
