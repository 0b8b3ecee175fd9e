package model

import (
	"fmt"
	"math"
	"math/rand"
)

// RandomForest is a bagged ensemble of regression trees over 0/1
// labels; the averaged tree output is the churn probability.
type RandomForest struct {
	Trees       []*Node   `json:"trees"`
	Importances []float64 `json:"importances"`

	NEstimators     int   `json:"n_estimators"`
	MaxDepth        int   `json:"max_depth"`
	MinSamplesSplit int   `json:"min_samples_split"`
	MinSamplesLeaf  int   `json:"min_samples_leaf"`
	Seed            int64 `json:"seed"`
}

// NewRandomForest returns a forest with default hyperparameters.
func NewRandomForest(seed int64) *RandomForest {
	return &RandomForest{
		NEstimators:     200,
		MaxDepth:        20,
		MinSamplesSplit: 5,
		MinSamplesLeaf:  2,
		Seed:            seed,
	}
}

func (m *RandomForest) Family() Family { return FamilyForest }

func (m *RandomForest) Fit(X [][]float64, y []float64) error {
	if len(X) == 0 || len(X) != len(y) {
		return fmt.Errorf("random forest: bad training shape (%d rows, %d labels)", len(X), len(y))
	}
	n := len(X)
	dim := len(X[0])
	rng := rand.New(rand.NewSource(m.Seed))

	cfg := treeConfig{
		maxDepth:        m.MaxDepth,
		minSamplesSplit: m.MinSamplesSplit,
		minSamplesLeaf:  m.MinSamplesLeaf,
		maxFeatures:     int(math.Ceil(math.Sqrt(float64(dim)))),
	}

	m.Trees = make([]*Node, m.NEstimators)
	m.Importances = make([]float64, dim)
	for t := 0; t < m.NEstimators; t++ {
		// Bootstrap sample with replacement.
		idx := make([]int, n)
		for i := range idx {
			idx[i] = rng.Intn(n)
		}
		m.Trees[t] = buildTree(X, y, idx, cfg, 0, rng, m.Importances)
	}

	normalize(m.Importances)
	return nil
}

func (m *RandomForest) PredictProba(x []float64) float64 {
	var sum float64
	for _, tree := range m.Trees {
		sum += tree.Predict(x)
	}
	p := sum / float64(len(m.Trees))
	return clamp01(p)
}

// RawScore is the unclamped averaged tree output; attribution
// additivity holds in this space.
func (m *RandomForest) RawScore(x []float64) float64 {
	var sum float64
	for _, tree := range m.Trees {
		sum += tree.Predict(x)
	}
	return sum / float64(len(m.Trees))
}

func (m *RandomForest) FeatureImportances() []float64 {
	out := make([]float64, len(m.Importances))
	copy(out, m.Importances)
	return out
}

// PathAttribution averages decision-path contributions over all trees.
func (m *RandomForest) PathAttribution(x []float64) (float64, []float64) {
	dim := len(m.Importances)
	contrib := make([]float64, dim)
	var base float64
	for _, tree := range m.Trees {
		base += tree.Value
		tree.PathContrib(x, contrib)
	}
	nt := float64(len(m.Trees))
	for j := range contrib {
		contrib[j] /= nt
	}
	return base / nt, contrib
}

func normalize(v []float64) {
	var sum float64
	for _, x := range v {
		sum += x
	}
	if sum == 0 {
		return
	}
	for j := range v {
		v[j] /= sum
	}
}

func clamp01(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}
