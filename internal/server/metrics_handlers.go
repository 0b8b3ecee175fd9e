package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleModelMetrics(c *gin.Context) {
	if s.repo == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "metrics store not configured"})
		return
	}

	metrics, err := s.repo.ModelMetrics(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"metrics": metrics,
		"count":   len(metrics),
	})
}

// handleModelComparison condenses the stored metrics into a side-by-side
// table plus the winner by ROC-AUC.
func (s *Server) handleModelComparison(c *gin.Context) {
	if s.repo == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "metrics store not configured"})
		return
	}

	metrics, err := s.repo.ModelMetrics(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}

	comparison := make(map[string]gin.H, len(metrics))
	bestModel := ""
	bestAUC := -1.0
	for _, m := range metrics {
		comparison[m.ModelName] = gin.H{
			"accuracy":   m.Accuracy,
			"precision":  m.Precision,
			"recall":     m.Recall,
			"f1_score":   m.F1Score,
			"roc_auc":    m.ROCAUC,
			"trained_at": m.TrainedAt,
		}
		if m.ROCAUC > bestAUC {
			bestAUC = m.ROCAUC
			bestModel = m.ModelName
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"comparison": comparison,
		"best_model": bestModel,
	})
}
