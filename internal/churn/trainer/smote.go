package trainer

import (
	"math"
	"math/rand"
	"sort"
)

// smote synthesizes minority-class examples by interpolating between a
// minority sample and one of its k nearest minority neighbors, until
// both classes are the same size. Applied to the training split only.
func smote(X [][]float64, y []float64, k int, rng *rand.Rand) ([][]float64, []float64) {
	var minority, majority []int
	for i, label := range y {
		if label == 1 {
			minority = append(minority, i)
		} else {
			majority = append(majority, i)
		}
	}
	// Convention: class 1 is the minority; swap if not.
	if len(minority) > len(majority) {
		minority, majority = majority, minority
	}
	need := len(majority) - len(minority)
	if need == 0 || len(minority) < 2 {
		return X, y
	}
	if k >= len(minority) {
		k = len(minority) - 1
	}

	minorityLabel := y[minority[0]]

	// Precompute k nearest minority neighbors per minority sample.
	neighbors := make([][]int, len(minority))
	for a, i := range minority {
		type distIdx struct {
			d   float64
			idx int
		}
		dists := make([]distIdx, 0, len(minority)-1)
		for b, j := range minority {
			if a == b {
				continue
			}
			dists = append(dists, distIdx{euclidean(X[i], X[j]), j})
		}
		sort.Slice(dists, func(p, q int) bool { return dists[p].d < dists[q].d })
		nn := make([]int, k)
		for p := 0; p < k; p++ {
			nn[p] = dists[p].idx
		}
		neighbors[a] = nn
	}

	outX := make([][]float64, len(X), len(X)+need)
	copy(outX, X)
	outY := make([]float64, len(y), len(y)+need)
	copy(outY, y)

	for s := 0; s < need; s++ {
		a := rng.Intn(len(minority))
		i := minority[a]
		j := neighbors[a][rng.Intn(k)]
		gap := rng.Float64()

		synth := make([]float64, len(X[i]))
		for f := range synth {
			synth[f] = X[i][f] + gap*(X[j][f]-X[i][f])
		}
		outX = append(outX, synth)
		outY = append(outY, minorityLabel)
	}

	return outX, outY
}

func euclidean(a, b []float64) float64 {
	var ss float64
	for f := range a {
		d := a[f] - b[f]
		ss += d * d
	}
	return math.Sqrt(ss)
}
