// Package server exposes the churn prediction service over HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"churn-predictor/internal/common/config"
	"churn-predictor/internal/common/errors"
	"churn-predictor/internal/common/logger"
	"churn-predictor/internal/jobs"
	"churn-predictor/internal/models"
	"churn-predictor/internal/serving"
)

// Repository is the read side of the store consumed by the metrics and
// history endpoints. Optional; nil disables them with 503.
type Repository interface {
	ModelMetrics(ctx context.Context) ([]models.EvaluationMetrics, error)
	RecentPredictions(ctx context.Context, limit int) ([]*models.PredictionRecord, error)
}

// Server wires the serving engine, training coordinator and store into
// a gin router.
type Server struct {
	cfg    *config.Config
	engine *serving.Engine
	coord  *jobs.Coordinator
	repo   Repository
	log    logger.Logger
}

func New(cfg *config.Config, engine *serving.Engine, coord *jobs.Coordinator, repo Repository, log logger.Logger) *Server {
	return &Server{cfg: cfg, engine: engine, coord: coord, repo: repo, log: log}
}

// Router builds the HTTP routing table.
func (s *Server) Router() *gin.Engine {
	if s.cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(s.requestLogger())
	r.Use(s.corsMiddleware())

	r.GET("/health", s.handleHealth)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")
	{
		v1.POST("/predict", s.handlePredict)
		v1.POST("/predict/batch", s.handlePredictBatch)
		v1.GET("/predictions/recent", s.handleRecentPredictions)

		v1.GET("/explain/:customer_id", s.handleExplain)
		v1.POST("/explain/what-if", s.handleWhatIf)

		v1.POST("/train", s.handleTrain)
		v1.GET("/train/status/:job_id", s.handleTrainStatus)
		v1.GET("/train/jobs", s.handleTrainJobs)
		v1.DELETE("/train/:job_id", s.handleTrainCancel)

		v1.GET("/metrics", s.handleModelMetrics)
		v1.GET("/metrics/comparison", s.handleModelComparison)
	}

	return r
}

func (s *Server) corsMiddleware() gin.HandlerFunc {
	if len(s.cfg.Server.CORSOrigins) == 0 {
		return cors.Default()
	}
	conf := cors.DefaultConfig()
	conf.AllowOrigins = s.cfg.Server.CORSOrigins
	return cors.New(conf)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Info("http request", map[string]interface{}{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		})
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":       "healthy",
		"service":      s.cfg.App.Name,
		"version":      s.cfg.App.Version,
		"models_ready": s.engine.Ready(),
	})
}

// respondError maps typed pipeline errors onto HTTP status codes.
func (s *Server) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch errors.CodeOf(err) {
	case errors.ErrCodeModelNotLoaded, errors.ErrCodeModelUnavailable:
		status = http.StatusServiceUnavailable
	case errors.ErrCodeValidationFailed, errors.ErrCodeRowParseFailed, errors.ErrCodeFeatureMismatch:
		status = http.StatusBadRequest
	case errors.ErrCodeJobNotFound, errors.ErrCodePredictionNotFound:
		status = http.StatusNotFound
	case errors.ErrCodeJobQueueFull:
		status = http.StatusTooManyRequests
	}

	if status == http.StatusInternalServerError {
		s.log.WithError(err).Error("request failed", map[string]interface{}{
			"path": c.FullPath(),
		})
	}

	if se, ok := err.(*errors.StandardError); ok {
		c.JSON(status, gin.H{"error": se.Message, "code": se.Code, "details": se.Details})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
