package model

import (
	"fmt"
	"math"
)

// LogisticRegression is an L2-regularized linear probabilistic
// classifier fitted by full-batch gradient descent. Fitting is fully
// deterministic: no sampling is involved.
type LogisticRegression struct {
	Weights []float64 `json:"weights"`
	Bias    float64   `json:"bias"`

	// Hyperparameters. C is the inverse regularization strength.
	C            float64 `json:"c"`
	LearningRate float64 `json:"learning_rate"`
	Epochs       int     `json:"epochs"`
}

// NewLogisticRegression returns a classifier with default
// hyperparameters.
func NewLogisticRegression() *LogisticRegression {
	return &LogisticRegression{C: 1.0, LearningRate: 0.1, Epochs: 500}
}

func (m *LogisticRegression) Family() Family { return FamilyLinear }

func (m *LogisticRegression) Fit(X [][]float64, y []float64) error {
	if len(X) == 0 || len(X) != len(y) {
		return fmt.Errorf("logistic regression: bad training shape (%d rows, %d labels)", len(X), len(y))
	}
	n := len(X)
	dim := len(X[0])
	m.Weights = make([]float64, dim)
	m.Bias = 0

	grad := make([]float64, dim)
	for epoch := 0; epoch < m.Epochs; epoch++ {
		for j := range grad {
			grad[j] = 0
		}
		var gradBias float64
		for i := 0; i < n; i++ {
			err := sigmoid(m.margin(X[i])) - y[i]
			for j := 0; j < dim; j++ {
				grad[j] += err * X[i][j]
			}
			gradBias += err
		}
		// L2 penalty scaled by 1/C; the bias is not regularized.
		for j := 0; j < dim; j++ {
			grad[j] = grad[j]/float64(n) + m.Weights[j]/(m.C*float64(n))
			m.Weights[j] -= m.LearningRate * grad[j]
		}
		m.Bias -= m.LearningRate * gradBias / float64(n)
	}
	return nil
}

func (m *LogisticRegression) margin(x []float64) float64 {
	s := m.Bias
	for j, w := range m.Weights {
		s += w * x[j]
	}
	return s
}

func (m *LogisticRegression) PredictProba(x []float64) float64 {
	return sigmoid(m.margin(x))
}

// RawScore is the pre-sigmoid margin.
func (m *LogisticRegression) RawScore(x []float64) float64 {
	return m.margin(x)
}

// FeatureImportances is the absolute coefficient magnitude.
func (m *LogisticRegression) FeatureImportances() []float64 {
	out := make([]float64, len(m.Weights))
	for j, w := range m.Weights {
		out[j] = math.Abs(w)
	}
	return out
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}
