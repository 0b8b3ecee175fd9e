// Package model implements the three classifier families compared by
// the training pipeline: a linear probabilistic classifier, a bagged
// tree ensemble and a boosted tree ensemble. All models expose
// probability predictions, feature importances and JSON-serializable
// learned parameters.
package model

import (
	"encoding/json"
	"fmt"
)

// Family identifies an algorithm family.
type Family string

const (
	FamilyLinear  Family = "logistic_regression"
	FamilyForest  Family = "random_forest"
	FamilyBoosted Family = "gradient_boosting"
)

// Display names of the model variants, fixed small set.
const (
	NameLogisticRegression = "Logistic Regression"
	NameRandomForest       = "Random Forest"
	NameGradientBoosting   = "Gradient Boosting"
)

// VariantNames lists the trained variants in training order.
func VariantNames() []string {
	return []string{NameLogisticRegression, NameRandomForest, NameGradientBoosting}
}

// Classifier is a binary probabilistic classifier.
type Classifier interface {
	Fit(X [][]float64, y []float64) error
	// PredictProba returns P(churn) in [0,1].
	PredictProba(x []float64) float64
	// RawScore is the model's raw output: the margin for margin-based
	// models, the probability for averaging ensembles. Attributions
	// are computed in this space.
	RawScore(x []float64) float64
	// FeatureImportances returns one non-negative score per feature.
	FeatureImportances() []float64
	Family() Family
}

// PathAttributor is implemented by tree ensembles that support exact
// decision-path attribution.
type PathAttributor interface {
	// PathAttribution returns a base value and one signed contribution
	// per feature; base plus the contributions sums to RawScore(x).
	PathAttribution(x []float64) (base float64, contrib []float64)
}

type envelope struct {
	Family Family          `json:"family"`
	Params json.RawMessage `json:"params"`
}

// Marshal serializes a fitted classifier with its family tag.
func Marshal(c Classifier) ([]byte, error) {
	params, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Family: c.Family(), Params: params})
}

// Unmarshal restores a classifier from its serialized form.
func Unmarshal(data []byte) (Classifier, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}

	var c Classifier
	switch env.Family {
	case FamilyLinear:
		c = &LogisticRegression{}
	case FamilyForest:
		c = &RandomForest{}
	case FamilyBoosted:
		c = &GradientBoosting{}
	default:
		return nil, fmt.Errorf("unknown model family %q", env.Family)
	}

	if err := json.Unmarshal(env.Params, c); err != nil {
		return nil, err
	}
	return c, nil
}

// DisplayName maps a family to its variant display name.
func DisplayName(f Family) string {
	switch f {
	case FamilyLinear:
		return NameLogisticRegression
	case FamilyForest:
		return NameRandomForest
	case FamilyBoosted:
		return NameGradientBoosting
	}
	return string(f)
}
