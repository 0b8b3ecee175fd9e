package model

import (
	"fmt"
	"math"
	"math/rand"
)

// GradientBoosting is a boosted ensemble of shallow regression trees
// fitted on the gradient of the logistic loss. The raw score is the
// additive margin; the probability is its sigmoid.
type GradientBoosting struct {
	InitScore   float64   `json:"init_score"`
	Trees       []*Node   `json:"trees"`
	Importances []float64 `json:"importances"`

	NEstimators  int     `json:"n_estimators"`
	MaxDepth     int     `json:"max_depth"`
	LearningRate float64 `json:"learning_rate"`
	Subsample    float64 `json:"subsample"`
	Seed         int64   `json:"seed"`
}

// NewGradientBoosting returns a boosted ensemble with default
// hyperparameters.
func NewGradientBoosting(seed int64) *GradientBoosting {
	return &GradientBoosting{
		NEstimators:  200,
		MaxDepth:     5,
		LearningRate: 0.1,
		Subsample:    0.9,
		Seed:         seed,
	}
}

func (m *GradientBoosting) Family() Family { return FamilyBoosted }

func (m *GradientBoosting) Fit(X [][]float64, y []float64) error {
	if len(X) == 0 || len(X) != len(y) {
		return fmt.Errorf("gradient boosting: bad training shape (%d rows, %d labels)", len(X), len(y))
	}
	n := len(X)
	dim := len(X[0])
	rng := rand.New(rand.NewSource(m.Seed))

	// Initial margin is the log-odds of the base rate.
	var pos float64
	for _, v := range y {
		pos += v
	}
	p := pos / float64(n)
	p = math.Min(math.Max(p, 1e-6), 1-1e-6)
	m.InitScore = math.Log(p / (1 - p))

	margins := make([]float64, n)
	for i := range margins {
		margins[i] = m.InitScore
	}

	cfg := treeConfig{
		maxDepth:        m.MaxDepth,
		minSamplesSplit: 2,
		minSamplesLeaf:  1,
	}

	m.Trees = make([]*Node, 0, m.NEstimators)
	m.Importances = make([]float64, dim)
	residual := make([]float64, n)
	sampleSize := int(m.Subsample * float64(n))
	if sampleSize < 1 || sampleSize > n {
		sampleSize = n
	}

	for t := 0; t < m.NEstimators; t++ {
		for i := 0; i < n; i++ {
			residual[i] = y[i] - sigmoid(margins[i])
		}

		idx := rng.Perm(n)[:sampleSize]
		tree := buildTree(X, residual, idx, cfg, 0, rng, m.Importances)
		m.Trees = append(m.Trees, tree)

		for i := 0; i < n; i++ {
			margins[i] += m.LearningRate * tree.Predict(X[i])
		}
	}

	normalize(m.Importances)
	return nil
}

// RawScore is the additive margin before the sigmoid.
func (m *GradientBoosting) RawScore(x []float64) float64 {
	s := m.InitScore
	for _, tree := range m.Trees {
		s += m.LearningRate * tree.Predict(x)
	}
	return s
}

func (m *GradientBoosting) PredictProba(x []float64) float64 {
	return sigmoid(m.RawScore(x))
}

func (m *GradientBoosting) FeatureImportances() []float64 {
	out := make([]float64, len(m.Importances))
	copy(out, m.Importances)
	return out
}

// PathAttribution sums decision-path contributions across trees in
// margin space, scaled by the learning rate.
func (m *GradientBoosting) PathAttribution(x []float64) (float64, []float64) {
	dim := len(m.Importances)
	contrib := make([]float64, dim)
	raw := make([]float64, dim)
	base := m.InitScore
	for _, tree := range m.Trees {
		base += m.LearningRate * tree.Value
		for j := range raw {
			raw[j] = 0
		}
		tree.PathContrib(x, raw)
		for j := range raw {
			contrib[j] += m.LearningRate * raw[j]
		}
	}
	return base, contrib
}
