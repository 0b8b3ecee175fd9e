package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"churn-predictor/internal/common/errors"
	"churn-predictor/internal/common/validation"
	"churn-predictor/internal/models"
)

func (s *Server) handlePredict(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		s.respondError(c, errors.NewValidationError(err.Error()))
		return
	}
	if err := validation.ValidatePredictionRequest(body); err != nil {
		s.respondError(c, errors.NewValidationError(err.Error()))
		return
	}

	var req models.PredictionRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.respondError(c, errors.NewValidationError(err.Error()))
		return
	}

	result, expl, err := s.engine.Predict(c.Request.Context(), req)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"prediction":      result,
		"top_features":    expl.TopFeatures,
		"recommendations": expl.Recommendations,
	})
}

type batchRequest struct {
	Customers []models.PredictionRequest `json:"customers" binding:"required"`
}

func (s *Server) handlePredictBatch(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, errors.NewValidationError(err.Error()))
		return
	}
	if len(req.Customers) == 0 {
		s.respondError(c, errors.NewValidationError("customers must not be empty"))
		return
	}

	result, err := s.engine.PredictBatch(c.Request.Context(), req.Customers)
	if err != nil {
		s.respondError(c, err)
		return
	}

	succeeded := 0
	for _, p := range result.Predictions {
		if p != nil {
			succeeded++
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"predictions": result.Predictions,
		"errors":      result.Errors,
		"count":       len(result.Predictions),
		"succeeded":   succeeded,
	})
}

func (s *Server) handleRecentPredictions(c *gin.Context) {
	if s.repo == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "prediction store not configured"})
		return
	}
	limit := queryInt(c, "limit", s.cfg.Training.RecentPredsDefault)

	preds, err := s.repo.RecentPredictions(c.Request.Context(), limit)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"predictions": preds,
		"count":       len(preds),
	})
}

func (s *Server) handleExplain(c *gin.Context) {
	customerID := c.Param("customer_id")

	rec, err := s.engine.Explanation(c.Request.Context(), customerID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if rec == nil {
		s.respondError(c, errors.NewPredictionNotFoundError(customerID))
		return
	}
	c.JSON(http.StatusOK, rec)
}

type whatIfRequest struct {
	CustomerID string            `json:"customer_id" binding:"required"`
	Changes    map[string]string `json:"changes" binding:"required"`
}

func (s *Server) handleWhatIf(c *gin.Context) {
	var req whatIfRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, errors.NewValidationError(err.Error()))
		return
	}

	result, err := s.engine.WhatIf(c.Request.Context(), req.CustomerID, req.Changes)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func queryInt(c *gin.Context, name string, def int) int {
	raw := c.Query(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return def
	}
	return v
}
