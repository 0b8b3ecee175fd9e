// Package explain produces per-feature attributions for individual
// predictions plus retention recommendations derived from them.
package explain

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"

	"churn-predictor/internal/churn/model"
	"churn-predictor/internal/common/errors"
	"churn-predictor/internal/common/logger"
	"churn-predictor/internal/models"
)

const topFeatureCount = 5

// Explainer computes signed feature attributions for one classifier.
// Tree ensembles use decision-path attribution; other models fall back
// to attribution against a background sample of training rows.
type Explainer struct {
	clf        model.Classifier
	background [][]float64
	names      []string
	log        logger.Logger
}

// New samples at most maxBackground rows from XTrain as the background
// distribution. The sample is seeded so explanations are reproducible.
func New(clf model.Classifier, XTrain [][]float64, names []string, maxBackground int, seed int64, log logger.Logger) *Explainer {
	if maxBackground <= 0 {
		maxBackground = 100
	}
	background := XTrain
	if len(XTrain) > maxBackground {
		rng := rand.New(rand.NewSource(seed))
		perm := rng.Perm(len(XTrain))
		background = make([][]float64, maxBackground)
		for i := 0; i < maxBackground; i++ {
			background[i] = XTrain[perm[i]]
		}
	}
	return &Explainer{clf: clf, background: background, names: names, log: log}
}

// Explain attributes one scaled feature vector. The base value plus all
// attributions sums to the model's raw score for x.
func (e *Explainer) Explain(x []float64) (*models.Explanation, error) {
	if e == nil || e.clf == nil {
		return nil, errors.NewExplainUnavailableError("no classifier attached")
	}
	if len(x) != len(e.names) {
		return nil, errors.NewFeatureMismatchError(
			fmt.Sprintf("expected %d features, got %d", len(e.names), len(x)))
	}

	var base float64
	var contribs []float64
	if pa, ok := e.clf.(model.PathAttributor); ok {
		base, contribs = pa.PathAttribution(x)
	} else {
		base, contribs = e.sampledAttribution(x)
	}

	impacts := make([]models.FeatureImpact, len(e.names))
	for i, name := range e.names {
		direction := "negative"
		if contribs[i] > 0 {
			direction = "positive"
		}
		impacts[i] = models.FeatureImpact{
			Feature:   name,
			Value:     x[i],
			Impact:    contribs[i],
			Direction: direction,
		}
	}
	sort.SliceStable(impacts, func(a, b int) bool {
		return abs(impacts[a].Impact) > abs(impacts[b].Impact)
	})

	top := impacts
	if len(top) > topFeatureCount {
		top = top[:topFeatureCount]
	}

	e.log.Debug("generated explanation", map[string]interface{}{
		"model":    e.clf.Family(),
		"features": len(impacts),
	})
	return &models.Explanation{
		BaseValue:      base,
		FeatureImpacts: impacts,
		TopFeatures:    top,
	}, nil
}

// sampledAttribution estimates each feature's contribution as the mean
// score shift when that feature alone is replaced by a background
// value. For linear models this is exact: base plus the attributions
// reproduces the raw score.
func (e *Explainer) sampledAttribution(x []float64) (float64, []float64) {
	contribs := make([]float64, len(x))
	if len(e.background) == 0 {
		return 0, contribs
	}

	perturbed := make([]float64, len(x))
	var base float64
	for _, b := range e.background {
		base += e.clf.RawScore(b)
		copy(perturbed, x)
		for j := range x {
			perturbed[j] = b[j]
			contribs[j] += e.clf.RawScore(x) - e.clf.RawScore(perturbed)
			perturbed[j] = x[j]
		}
	}
	n := float64(len(e.background))
	base /= n
	for j := range contribs {
		contribs[j] /= n
	}
	return base, contribs
}

// Recommendations maps the top positive risk factors to retention
// actions. Each of the top three factors matches at most one rule, rule
// order fixed; probability-level entries append after, capped at five.
func Recommendations(impacts []models.FeatureImpact, churnProbability float64) []string {
	var recs []string

	var riskFactors []models.FeatureImpact
	for _, f := range impacts {
		if f.Impact > 0 {
			riskFactors = append(riskFactors, f)
		}
		if len(riskFactors) == 3 {
			break
		}
	}

	for _, factor := range riskFactors {
		name := strings.ToLower(factor.Feature)
		switch {
		case strings.Contains(name, "contract"), strings.Contains(name, "month_to_month"):
			recs = append(recs, "Offer a contract upgrade incentive (annual or 2-year plan)")
		case strings.Contains(name, "electronic_check"), strings.Contains(name, "electronic check"), strings.Contains(name, "payment"):
			recs = append(recs, "Promote automatic payment methods with discount")
		case strings.Contains(name, "techsupport"), strings.Contains(name, "support"):
			recs = append(recs, "Offer complimentary tech support trial")
		case strings.Contains(name, "security"):
			recs = append(recs, "Provide security service package promotion")
		case strings.Contains(name, "tenure"):
			recs = append(recs, "Implement loyalty rewards program for long-term customers")
		case strings.Contains(name, "charges"):
			if churnProbability > 0.7 {
				recs = append(recs, "Consider offering a personalized discount or price adjustment")
			} else {
				recs = append(recs, "Highlight value-added services to justify pricing")
			}
		}
	}

	if churnProbability > 0.8 {
		recs = append(recs, "HIGH PRIORITY: Immediate customer retention outreach required")
	} else if churnProbability > 0.6 {
		recs = append(recs, "Schedule proactive customer satisfaction call")
	}

	if len(recs) == 0 {
		recs = append(recs,
			"Monitor customer engagement and satisfaction metrics",
			"Conduct customer feedback survey")
	}

	if len(recs) > 5 {
		recs = recs[:5]
	}
	return recs
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
