package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"churn-predictor/internal/common/errors"
	"churn-predictor/internal/models"
)

// SaveJob upserts a training job snapshot. Called by the coordinator
// after every stage transition.
func (s *Store) SaveJob(ctx context.Context, job *models.TrainingJob) error {
	options, err := json.Marshal(job.Options)
	if err != nil {
		return errors.NewQueryError(err)
	}
	var result []byte
	if job.Result != nil {
		if result, err = json.Marshal(job.Result); err != nil {
			return errors.NewQueryError(err)
		}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO training_jobs
			(job_id, status, progress, current_stage, options, result,
			 error_message, created_at, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (job_id) DO UPDATE SET
			status = EXCLUDED.status,
			progress = EXCLUDED.progress,
			current_stage = EXCLUDED.current_stage,
			result = EXCLUDED.result,
			error_message = EXCLUDED.error_message,
			started_at = EXCLUDED.started_at,
			completed_at = EXCLUDED.completed_at`,
		job.JobID, job.Status, job.Progress, job.CurrentStage, options, result,
		job.ErrorMessage, job.CreatedAt, job.StartedAt, job.CompletedAt,
	)
	if err != nil {
		return errors.NewQueryError(err)
	}
	return nil
}

// DeleteJob removes a job row. Used to roll back a submission rejected
// by a full queue.
func (s *Store) DeleteJob(ctx context.Context, jobID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM training_jobs WHERE job_id = $1`, jobID)
	if err != nil {
		return errors.NewQueryError(err)
	}
	return nil
}

// GetJob returns one job snapshot by id.
func (s *Store) GetJob(ctx context.Context, jobID string) (*models.TrainingJob, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT job_id, status, progress, current_stage, options, result,
		       error_message, created_at, started_at, completed_at
		FROM training_jobs
		WHERE job_id = $1`,
		jobID,
	)
	job, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewJobNotFoundError(jobID)
	}
	if err != nil {
		return nil, errors.NewQueryError(err)
	}
	return job, nil
}

// ListJobs lists jobs newest first, bounded.
func (s *Store) ListJobs(ctx context.Context, limit int) ([]*models.TrainingJob, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT job_id, status, progress, current_stage, options, result,
		       error_message, created_at, started_at, completed_at
		FROM training_jobs
		ORDER BY created_at DESC
		LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, errors.NewQueryError(err)
	}
	defer rows.Close()

	var out []*models.TrainingJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, errors.NewQueryError(err)
		}
		out = append(out, job)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewQueryError(err)
	}
	return out, nil
}

func scanJob(r rowScanner) (*models.TrainingJob, error) {
	var job models.TrainingJob
	var options, result []byte
	var currentStage, errorMessage sql.NullString
	err := r.Scan(
		&job.JobID, &job.Status, &job.Progress, &currentStage, &options,
		&result, &errorMessage, &job.CreatedAt, &job.StartedAt, &job.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	job.CurrentStage = currentStage.String
	job.ErrorMessage = errorMessage.String
	if len(options) > 0 {
		if err := json.Unmarshal(options, &job.Options); err != nil {
			return nil, err
		}
	}
	if len(result) > 0 {
		if err := json.Unmarshal(result, &job.Result); err != nil {
			return nil, err
		}
	}
	return &job, nil
}
