package model

import (
	"math/rand"
	"sort"
)

// Node is one node of a regression tree. Feature is -1 at leaves.
// Value holds the mean target of the node's training samples; keeping
// it on internal nodes enables decision-path attribution.
type Node struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold,omitempty"`
	Value     float64 `json:"value"`
	Left      *Node   `json:"left,omitempty"`
	Right     *Node   `json:"right,omitempty"`
}

// Predict walks the tree for one sample.
func (n *Node) Predict(x []float64) float64 {
	node := n
	for node.Feature >= 0 {
		if x[node.Feature] <= node.Threshold {
			node = node.Left
		} else {
			node = node.Right
		}
	}
	return node.Value
}

// PathContrib accumulates per-feature contributions along the decision
// path: each split's change in node value is attributed to the split
// feature. The root value plus all contributions equals Predict(x).
func (n *Node) PathContrib(x []float64, contrib []float64) {
	node := n
	for node.Feature >= 0 {
		var child *Node
		if x[node.Feature] <= node.Threshold {
			child = node.Left
		} else {
			child = node.Right
		}
		contrib[node.Feature] += child.Value - node.Value
		node = child
	}
}

type treeConfig struct {
	maxDepth        int
	minSamplesSplit int
	minSamplesLeaf  int
	maxFeatures     int // 0 means all features
}

// buildTree grows a regression tree greedily by squared-error
// reduction. importances, when non-nil, accumulates the total error
// reduction per split feature.
func buildTree(X [][]float64, targets []float64, idx []int, cfg treeConfig, depth int, rng *rand.Rand, importances []float64) *Node {
	node := &Node{Feature: -1, Value: meanAt(targets, idx)}

	if depth >= cfg.maxDepth || len(idx) < cfg.minSamplesSplit {
		return node
	}

	feature, threshold, gain, ok := bestSplit(X, targets, idx, cfg, rng)
	if !ok {
		return node
	}

	var left, right []int
	for _, i := range idx {
		if X[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) < cfg.minSamplesLeaf || len(right) < cfg.minSamplesLeaf {
		return node
	}

	if importances != nil {
		importances[feature] += gain
	}

	node.Feature = feature
	node.Threshold = threshold
	node.Left = buildTree(X, targets, left, cfg, depth+1, rng, importances)
	node.Right = buildTree(X, targets, right, cfg, depth+1, rng, importances)
	return node
}

// bestSplit searches candidate features for the split with the largest
// squared-error reduction. With maxFeatures set, a random subset of
// features is considered, as in bagged ensembles.
func bestSplit(X [][]float64, targets []float64, idx []int, cfg treeConfig, rng *rand.Rand) (feature int, threshold, gain float64, ok bool) {
	dim := len(X[idx[0]])
	candidates := make([]int, dim)
	for j := range candidates {
		candidates[j] = j
	}
	if cfg.maxFeatures > 0 && cfg.maxFeatures < dim {
		rng.Shuffle(dim, func(a, b int) { candidates[a], candidates[b] = candidates[b], candidates[a] })
		candidates = candidates[:cfg.maxFeatures]
		sort.Ints(candidates)
	}

	var totalSum, totalSq float64
	for _, i := range idx {
		totalSum += targets[i]
		totalSq += targets[i] * targets[i]
	}
	n := float64(len(idx))
	parentSS := totalSq - totalSum*totalSum/n

	bestGain := 1e-12
	found := false

	type pair struct{ v, t float64 }
	pairs := make([]pair, len(idx))

	for _, j := range candidates {
		for k, i := range idx {
			pairs[k] = pair{X[i][j], targets[i]}
		}
		sort.Slice(pairs, func(a, b int) bool { return pairs[a].v < pairs[b].v })

		var leftSum, leftSq float64
		for k := 0; k < len(pairs)-1; k++ {
			leftSum += pairs[k].t
			leftSq += pairs[k].t * pairs[k].t
			if pairs[k].v == pairs[k+1].v {
				continue
			}
			nl := float64(k + 1)
			nr := n - nl
			if int(nl) < cfg.minSamplesLeaf || int(nr) < cfg.minSamplesLeaf {
				continue
			}
			rightSum := totalSum - leftSum
			rightSq := totalSq - leftSq
			leftSS := leftSq - leftSum*leftSum/nl
			rightSS := rightSq - rightSum*rightSum/nr
			g := parentSS - leftSS - rightSS
			if g > bestGain {
				bestGain = g
				feature = j
				threshold = (pairs[k].v + pairs[k+1].v) / 2
				found = true
			}
		}
	}

	if !found {
		return 0, 0, 0, false
	}
	return feature, threshold, bestGain, true
}

func meanAt(targets []float64, idx []int) float64 {
	var sum float64
	for _, i := range idx {
		sum += targets[i]
	}
	return sum / float64(len(idx))
}
