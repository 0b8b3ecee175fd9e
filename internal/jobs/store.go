package jobs

import (
	"context"
	"sort"
	"sync"

	"churn-predictor/internal/common/errors"
	"churn-predictor/internal/models"
)

// Store persists training job state. The coordinator writes a snapshot
// after every stage transition so observers always see fresh progress.
type Store interface {
	SaveJob(ctx context.Context, job *models.TrainingJob) error
	GetJob(ctx context.Context, jobID string) (*models.TrainingJob, error)
	ListJobs(ctx context.Context, limit int) ([]*models.TrainingJob, error)
	DeleteJob(ctx context.Context, jobID string) error
}

// MetricsSink receives the evaluation metrics of a completed run.
type MetricsSink interface {
	SaveModelMetrics(ctx context.Context, metrics map[string]models.EvaluationMetrics) error
}

// MemoryStore is an in-process Store used when no database is
// configured, and by tests.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]models.TrainingJob
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[string]models.TrainingJob)}
}

func (s *MemoryStore) SaveJob(_ context.Context, job *models.TrainingJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.JobID] = *job
	return nil
}

func (s *MemoryStore) DeleteJob(_ context.Context, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, jobID)
	return nil
}

func (s *MemoryStore) GetJob(_ context.Context, jobID string) (*models.TrainingJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return nil, errors.NewJobNotFoundError(jobID)
	}
	return &job, nil
}

func (s *MemoryStore) ListJobs(_ context.Context, limit int) ([]*models.TrainingJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.TrainingJob, 0, len(s.jobs))
	for id := range s.jobs {
		job := s.jobs[id]
		out = append(out, &job)
	}
	sort.Slice(out, func(a, b int) bool {
		return out[a].CreatedAt.After(out[b].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
