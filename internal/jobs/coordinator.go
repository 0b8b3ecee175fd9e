package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"churn-predictor/internal/common/config"
	"churn-predictor/internal/common/errors"
	"churn-predictor/internal/common/logger"
	"churn-predictor/internal/common/metrics"
	"churn-predictor/internal/models"
)

// Coordinator owns the bounded training queue and worker pool. At most
// `workers` jobs train concurrently; submissions beyond the queue bound
// are rejected rather than buffered unbounded.
type Coordinator struct {
	pipeline *Pipeline
	store    Store
	log      logger.Logger

	queue   chan string
	workers int
	timeout time.Duration

	mu      sync.Mutex
	pending map[string]models.TrainingOptions
	cancels map[string]context.CancelFunc

	onComplete func(*PipelineResult)
	wg         sync.WaitGroup
}

func NewCoordinator(pipeline *Pipeline, store Store, cfg config.TrainingConfig, log logger.Logger) *Coordinator {
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	queueSize := cfg.QueueSize
	if queueSize < 1 {
		queueSize = 1
	}
	var timeout time.Duration
	if cfg.JobTimeoutSeconds > 0 {
		timeout = time.Duration(cfg.JobTimeoutSeconds) * time.Second
	}
	return &Coordinator{
		pipeline: pipeline,
		store:    store,
		log:      log,
		queue:    make(chan string, queueSize),
		workers:  workers,
		timeout:  timeout,
		pending:  make(map[string]models.TrainingOptions),
		cancels:  make(map[string]context.CancelFunc),
	}
}

// SetOnComplete registers a callback invoked with the result of every
// successful run, after artifacts are persisted. The serving layer uses
// it to hot-swap models.
func (c *Coordinator) SetOnComplete(fn func(*PipelineResult)) {
	c.onComplete = fn
}

// Start launches the worker pool. Workers drain until ctx is canceled.
func (c *Coordinator) Start(ctx context.Context) {
	for i := 0; i < c.workers; i++ {
		c.wg.Add(1)
		go c.worker(ctx)
	}
	c.log.Info("training coordinator started", map[string]interface{}{
		"workers":   c.workers,
		"queueSize": cap(c.queue),
	})
}

// Wait blocks until all workers have exited.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// Submit registers a new job and enqueues it. A full queue rejects the
// submission with JOB_QUEUE_FULL; nothing is left behind in the store.
func (c *Coordinator) Submit(ctx context.Context, opts models.TrainingOptions) (*models.TrainingJob, error) {
	job := &models.TrainingJob{
		JobID:     uuid.New().String(),
		Status:    models.JobPending,
		Options:   opts,
		CreatedAt: time.Now().UTC(),
	}

	// Persist before enqueueing: a worker can dequeue the id the moment
	// it hits the channel, and it must find the pending snapshot.
	if err := c.store.SaveJob(ctx, job); err != nil {
		return nil, err
	}

	c.mu.Lock()
	select {
	case c.queue <- job.JobID:
		c.pending[job.JobID] = opts
		c.mu.Unlock()
	default:
		c.mu.Unlock()
		if err := c.store.DeleteJob(ctx, job.JobID); err != nil {
			c.log.WithError(err).Warn("removing rejected job", map[string]interface{}{"jobId": job.JobID})
		}
		return nil, errors.NewJobQueueFullError()
	}

	c.log.Info("training job queued", map[string]interface{}{"jobId": job.JobID})
	return job, nil
}

// Get returns the current snapshot of one job.
func (c *Coordinator) Get(ctx context.Context, jobID string) (*models.TrainingJob, error) {
	return c.store.GetJob(ctx, jobID)
}

// List returns the most recent jobs, newest first.
func (c *Coordinator) List(ctx context.Context, limit int) ([]*models.TrainingJob, error) {
	return c.store.ListJobs(ctx, limit)
}

// Cancel aborts a job. A queued job is failed in place; a running job
// has its context canceled and fails at the next stage boundary.
func (c *Coordinator) Cancel(ctx context.Context, jobID string) error {
	c.mu.Lock()
	if cancel, ok := c.cancels[jobID]; ok {
		cancel()
		c.mu.Unlock()
		return nil
	}
	_, queued := c.pending[jobID]
	if queued {
		delete(c.pending, jobID)
	}
	c.mu.Unlock()

	job, err := c.store.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Terminal() {
		return nil
	}
	if !queued {
		return errors.NewJobNotFoundError(jobID)
	}
	c.failJob(ctx, job, errors.NewJobCanceledError(jobID))
	return nil
}

func (c *Coordinator) worker(ctx context.Context) {
	defer c.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case jobID := <-c.queue:
			c.runJob(ctx, jobID)
		}
	}
}

func (c *Coordinator) runJob(ctx context.Context, jobID string) {
	c.mu.Lock()
	opts, ok := c.pending[jobID]
	if !ok {
		// Canceled while queued.
		c.mu.Unlock()
		return
	}
	delete(c.pending, jobID)

	jobCtx, cancel := context.WithCancel(ctx)
	if c.timeout > 0 {
		jobCtx, cancel = context.WithTimeout(ctx, c.timeout)
	}
	c.cancels[jobID] = cancel
	c.mu.Unlock()

	defer func() {
		cancel()
		c.mu.Lock()
		delete(c.cancels, jobID)
		c.mu.Unlock()
	}()

	job, err := c.store.GetJob(ctx, jobID)
	if err != nil {
		c.log.WithError(err).Error("loading queued job", map[string]interface{}{"jobId": jobID})
		return
	}

	now := time.Now().UTC()
	job.Status = models.JobRunning
	job.StartedAt = &now
	if err := c.store.SaveJob(ctx, job); err != nil {
		c.log.WithError(err).Error("persisting job start", map[string]interface{}{"jobId": jobID})
	}
	metrics.TrainingJobsActive.Inc()
	defer metrics.TrainingJobsActive.Dec()

	result, runErr := c.pipeline.Run(jobCtx, opts, func(stage string, progress float64) error {
		if err := jobCtx.Err(); err != nil {
			return errors.NewJobCanceledError(jobID)
		}
		job.CurrentStage = stage
		job.Progress = progress
		if err := c.store.SaveJob(ctx, job); err != nil {
			c.log.WithError(err).Warn("persisting job progress", map[string]interface{}{
				"jobId": jobID,
				"stage": stage,
			})
		}
		return nil
	})
	if runErr != nil {
		c.failJob(ctx, job, runErr)
		return
	}

	done := time.Now().UTC()
	job.Status = models.JobCompleted
	job.Progress = 1.0
	job.CurrentStage = ""
	job.CompletedAt = &done
	job.Result = &models.JobResult{
		Metrics:      result.Metrics,
		BestModel:    result.BestModel,
		FeatureCount: result.Metadata.NFeatures,
	}
	if err := c.store.SaveJob(ctx, job); err != nil {
		c.log.WithError(err).Error("persisting job completion", map[string]interface{}{"jobId": jobID})
	}
	metrics.TrainingJobsTotal.WithLabelValues(models.JobCompleted).Inc()
	c.log.Info("training job completed", map[string]interface{}{
		"jobId":     jobID,
		"bestModel": result.BestModel,
	})

	if c.onComplete != nil {
		c.onComplete(result)
	}
}

func (c *Coordinator) failJob(ctx context.Context, job *models.TrainingJob, cause error) {
	done := time.Now().UTC()
	job.Status = models.JobFailed
	job.ErrorMessage = cause.Error()
	job.CompletedAt = &done
	if err := c.store.SaveJob(ctx, job); err != nil {
		c.log.WithError(err).Error("persisting job failure", map[string]interface{}{"jobId": job.JobID})
	}
	metrics.TrainingJobsTotal.WithLabelValues(models.JobFailed).Inc()
	c.log.WithError(cause).Warn("training job failed", map[string]interface{}{"jobId": job.JobID})
}
