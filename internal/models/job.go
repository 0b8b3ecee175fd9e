package models

import "time"

// Training job states. Completed and failed are terminal.
const (
	JobPending   = "pending"
	JobRunning   = "running"
	JobCompleted = "completed"
	JobFailed    = "failed"
)

// TrainingOptions are the caller-controlled training knobs.
type TrainingOptions struct {
	TuneHyperparameters bool    `json:"tune_hyperparameters"`
	BalanceClasses      bool    `json:"balance_classes"`
	TestSize            float64 `json:"test_size"`
}

// JobResult summarizes a completed training run.
type JobResult struct {
	Metrics      map[string]EvaluationMetrics `json:"metrics"`
	BestModel    string                       `json:"best_model"`
	FeatureCount int                          `json:"feature_count"`
}

// TrainingJob is the progress-tracked state machine snapshot of one
// asynchronous training run. Mutated only by the coordinator that
// executes it.
type TrainingJob struct {
	JobID        string          `json:"job_id"`
	Status       string          `json:"status"`
	Progress     float64         `json:"progress"`
	CurrentStage string          `json:"current_stage,omitempty"`
	Options      TrainingOptions `json:"options"`
	Result       *JobResult      `json:"results,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	StartedAt    *time.Time      `json:"started_at,omitempty"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
}

// Terminal reports whether the job reached a terminal state.
func (j *TrainingJob) Terminal() bool {
	return j.Status == JobCompleted || j.Status == JobFailed
}
