// Package evaluate scores trained model variants on a held-out split
// and selects the best one.
package evaluate

import (
	"fmt"
	"sort"

	"churn-predictor/internal/churn/model"
	"churn-predictor/internal/common/logger"
	"churn-predictor/internal/models"
)

// Evaluator caches per-variant metrics for one training run, keyed by
// variant name. Evaluation itself is a pure function of (model, split).
type Evaluator struct {
	log     logger.Logger
	metrics map[string]models.EvaluationMetrics
	order   []string
}

func New(log logger.Logger) *Evaluator {
	return &Evaluator{
		log:     log,
		metrics: make(map[string]models.EvaluationMetrics),
	}
}

// Evaluate scores one variant on the held-out split. ROC-AUC uses the
// predicted probability, not the hard label.
func (e *Evaluator) Evaluate(c model.Classifier, XTest [][]float64, yTest []float64, name string) models.EvaluationMetrics {
	n := len(XTest)
	probs := make([]float64, n)
	var tp, tn, fp, fn int
	for i, x := range XTest {
		probs[i] = c.PredictProba(x)
		pred := probs[i] >= 0.5
		actual := yTest[i] == 1
		switch {
		case pred && actual:
			tp++
		case !pred && !actual:
			tn++
		case pred && !actual:
			fp++
		default:
			fn++
		}
	}

	m := models.EvaluationMetrics{
		ModelName:      name,
		Accuracy:       safeDiv(float64(tp+tn), float64(n)),
		Precision:      safeDiv(float64(tp), float64(tp+fp)),
		Recall:         safeDiv(float64(tp), float64(tp+fn)),
		ROCAUC:         ROCAUC(probs, yTest),
		TruePositives:  tp,
		TrueNegatives:  tn,
		FalsePositives: fp,
		FalseNegatives: fn,
		TestSamples:    n,
	}
	m.F1Score = safeDiv(2*m.Precision*m.Recall, m.Precision+m.Recall)

	if _, seen := e.metrics[name]; !seen {
		e.order = append(e.order, name)
	}
	e.metrics[name] = m

	e.log.Info("evaluated model", map[string]interface{}{
		"model":     name,
		"accuracy":  m.Accuracy,
		"precision": m.Precision,
		"recall":    m.Recall,
		"f1":        m.F1Score,
		"rocAuc":    m.ROCAUC,
	})
	return m
}

// EvaluateAll scores every variant, preserving the given order.
func (e *Evaluator) EvaluateAll(variants map[string]model.Classifier, order []string, XTest [][]float64, yTest []float64) map[string]models.EvaluationMetrics {
	out := make(map[string]models.EvaluationMetrics, len(variants))
	for _, name := range order {
		c, ok := variants[name]
		if !ok {
			continue
		}
		out[name] = e.Evaluate(c, XTest, yTest, name)
	}
	return out
}

// Metrics returns the cached metrics for this run.
func (e *Evaluator) Metrics() map[string]models.EvaluationMetrics {
	return e.metrics
}

// Best selects the top variant by the given metric (default roc_auc).
// Ties are broken by first-encountered order.
func (e *Evaluator) Best(metric string) (string, float64, error) {
	if len(e.metrics) == 0 {
		return "", 0, fmt.Errorf("no models have been evaluated yet")
	}
	if metric == "" {
		metric = "roc_auc"
	}

	bestName := ""
	bestValue := 0.0
	for _, name := range e.order {
		v, err := metricValue(e.metrics[name], metric)
		if err != nil {
			return "", 0, err
		}
		if bestName == "" || v > bestValue {
			bestName = name
			bestValue = v
		}
	}
	return bestName, bestValue, nil
}

func metricValue(m models.EvaluationMetrics, metric string) (float64, error) {
	switch metric {
	case "accuracy":
		return m.Accuracy, nil
	case "precision":
		return m.Precision, nil
	case "recall":
		return m.Recall, nil
	case "f1_score":
		return m.F1Score, nil
	case "roc_auc":
		return m.ROCAUC, nil
	}
	return 0, fmt.Errorf("unknown selection metric %q", metric)
}

// FeatureImportance ranks a variant's importances descending and
// truncates to topN. The sort is stable, so equal scores keep feature
// order across repeated calls.
func FeatureImportance(c model.Classifier, featureNames []string, topN int) []models.FeatureImportance {
	scores := c.FeatureImportances()
	if len(scores) != len(featureNames) {
		return nil
	}

	ranked := make([]models.FeatureImportance, len(scores))
	for j, s := range scores {
		ranked[j] = models.FeatureImportance{Feature: featureNames[j], Importance: s}
	}
	sort.SliceStable(ranked, func(a, b int) bool {
		return ranked[a].Importance > ranked[b].Importance
	})

	if topN > 0 && len(ranked) > topN {
		ranked = ranked[:topN]
	}
	return ranked
}

// ROCAUC computes the area under the ROC curve from predicted
// probabilities via the rank statistic, with tie correction.
func ROCAUC(probs, y []float64) float64 {
	n := len(probs)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return probs[idx[a]] < probs[idx[b]] })

	// Average ranks across ties.
	ranks := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j < n && probs[idx[j]] == probs[idx[i]] {
			j++
		}
		avg := float64(i+j+1) / 2 // ranks are 1-based
		for k := i; k < j; k++ {
			ranks[idx[k]] = avg
		}
		i = j
	}

	var pos, rankSum float64
	for i := range y {
		if y[i] == 1 {
			pos++
			rankSum += ranks[i]
		}
	}
	neg := float64(n) - pos
	if pos == 0 || neg == 0 {
		return 0.5
	}
	return (rankSum - pos*(pos+1)/2) / (pos * neg)
}

func safeDiv(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}
