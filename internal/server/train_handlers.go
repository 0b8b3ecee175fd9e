package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"churn-predictor/internal/common/errors"
	"churn-predictor/internal/models"
)

type trainRequest struct {
	TuneHyperparameters *bool    `json:"tune_hyperparameters"`
	BalanceClasses      *bool    `json:"balance_classes"`
	TestSize            *float64 `json:"test_size"`
}

func (s *Server) handleTrain(c *gin.Context) {
	var req trainRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			s.respondError(c, errors.NewValidationError(err.Error()))
			return
		}
	}

	opts := models.TrainingOptions{
		TuneHyperparameters: s.cfg.Training.TuneHyperparams,
		BalanceClasses:      s.cfg.Training.BalanceClasses,
		TestSize:            s.cfg.Training.TestSize,
	}
	if req.TuneHyperparameters != nil {
		opts.TuneHyperparameters = *req.TuneHyperparameters
	}
	if req.BalanceClasses != nil {
		opts.BalanceClasses = *req.BalanceClasses
	}
	if req.TestSize != nil {
		if *req.TestSize <= 0 || *req.TestSize >= 1 {
			s.respondError(c, errors.NewValidationError("test_size must be in (0, 1)"))
			return
		}
		opts.TestSize = *req.TestSize
	}

	job, err := s.coord.Submit(c.Request.Context(), opts)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"job_id":  job.JobID,
		"status":  job.Status,
		"message": "Training started in background",
	})
}

func (s *Server) handleTrainStatus(c *gin.Context) {
	job, err := s.coord.Get(c.Request.Context(), c.Param("job_id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

func (s *Server) handleTrainJobs(c *gin.Context) {
	limit := queryInt(c, "limit", s.cfg.Training.RecentJobsDefault)

	list, err := s.coord.List(c.Request.Context(), limit)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"jobs":  list,
		"count": len(list),
	})
}

func (s *Server) handleTrainCancel(c *gin.Context) {
	jobID := c.Param("job_id")
	if err := s.coord.Cancel(c.Request.Context(), jobID); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"job_id":  jobID,
		"message": "Cancellation requested",
	})
}
