// Package trainer fits the competing classifier variants on a
// balanced training split, optionally via cross-validated grid search.
package trainer

import (
	"fmt"
	"math/rand"
	"time"

	"churn-predictor/internal/churn/evaluate"
	"churn-predictor/internal/churn/model"
	"churn-predictor/internal/common/logger"
)

// Trainer drives the train/test split, class balancing and model
// fitting for one training run. Reproducible via the explicit seed.
type Trainer struct {
	seed int64
	log  logger.Logger

	// TrainingTimes records wall-clock fit duration per variant name.
	TrainingTimes map[string]float64
}

func New(seed int64, log logger.Logger) *Trainer {
	return &Trainer{
		seed:          seed,
		log:           log,
		TrainingTimes: make(map[string]float64),
	}
}

// Split performs a stratified train/test split by label. Synthetic
// oversampling, when enabled, is applied to the training split only so
// no synthetic sample leaks into evaluation.
func (t *Trainer) Split(X [][]float64, y []float64, testSize float64, balance bool) (XTrain [][]float64, XTest [][]float64, yTrain []float64, yTest []float64, err error) {
	if len(X) != len(y) || len(X) == 0 {
		return nil, nil, nil, nil, fmt.Errorf("split: bad shape (%d rows, %d labels)", len(X), len(y))
	}
	if testSize <= 0 || testSize >= 1 {
		return nil, nil, nil, nil, fmt.Errorf("split: test size %v out of range", testSize)
	}

	rng := rand.New(rand.NewSource(t.seed))

	var byClass [2][]int
	for i, label := range y {
		c := 0
		if label == 1 {
			c = 1
		}
		byClass[c] = append(byClass[c], i)
	}

	var trainIdx, testIdx []int
	for _, idx := range byClass {
		rng.Shuffle(len(idx), func(a, b int) { idx[a], idx[b] = idx[b], idx[a] })
		cut := int(float64(len(idx)) * testSize)
		testIdx = append(testIdx, idx[:cut]...)
		trainIdx = append(trainIdx, idx[cut:]...)
	}
	rng.Shuffle(len(trainIdx), func(a, b int) { trainIdx[a], trainIdx[b] = trainIdx[b], trainIdx[a] })
	rng.Shuffle(len(testIdx), func(a, b int) { testIdx[a], testIdx[b] = testIdx[b], testIdx[a] })

	XTrain, yTrain = gather(X, y, trainIdx)
	XTest, yTest = gather(X, y, testIdx)

	t.log.Info("train/test split", map[string]interface{}{
		"trainRows": len(XTrain),
		"testRows":  len(XTest),
	})

	if balance {
		before := len(XTrain)
		XTrain, yTrain = smote(XTrain, yTrain, 5, rng)
		t.log.Info("balanced training split", map[string]interface{}{
			"before": before,
			"after":  len(XTrain),
		})
	}

	return XTrain, XTest, yTrain, yTest, nil
}

// TrainAll fits the three variants and returns them keyed by display
// name, in the fixed variant order.
func (t *Trainer) TrainAll(XTrain [][]float64, yTrain []float64, tune bool, cvFolds int) (map[string]model.Classifier, error) {
	variants := map[string]func() (model.Classifier, error){
		model.NameLogisticRegression: func() (model.Classifier, error) {
			return t.trainLogistic(XTrain, yTrain, tune, cvFolds)
		},
		model.NameRandomForest: func() (model.Classifier, error) {
			return t.trainForest(XTrain, yTrain, tune)
		},
		model.NameGradientBoosting: func() (model.Classifier, error) {
			return t.trainBoosted(XTrain, yTrain, tune)
		},
	}

	out := make(map[string]model.Classifier, len(variants))
	for _, name := range model.VariantNames() {
		start := time.Now()
		c, err := variants[name]()
		if err != nil {
			return nil, fmt.Errorf("training %s: %w", name, err)
		}
		elapsed := time.Since(start).Seconds()
		t.TrainingTimes[name] = elapsed
		out[name] = c
		t.log.Info("trained model", map[string]interface{}{
			"model":   name,
			"seconds": elapsed,
		})
	}
	return out, nil
}

func (t *Trainer) trainLogistic(X [][]float64, y []float64, tune bool, folds int) (model.Classifier, error) {
	if !tune {
		m := model.NewLogisticRegression()
		return m, m.Fit(X, y)
	}

	best, err := t.gridSearch(X, y, folds, []func() model.Classifier{
		func() model.Classifier { m := model.NewLogisticRegression(); m.C = 0.01; return m },
		func() model.Classifier { m := model.NewLogisticRegression(); m.C = 0.1; return m },
		func() model.Classifier { m := model.NewLogisticRegression(); m.C = 1; return m },
		func() model.Classifier { m := model.NewLogisticRegression(); m.C = 10; return m },
		func() model.Classifier { m := model.NewLogisticRegression(); m.C = 100; return m },
	})
	if err != nil {
		return nil, err
	}
	return best, best.Fit(X, y)
}

func (t *Trainer) trainForest(X [][]float64, y []float64, tune bool) (model.Classifier, error) {
	if !tune {
		m := model.NewRandomForest(t.seed)
		return m, m.Fit(X, y)
	}

	var candidates []func() model.Classifier
	for _, n := range []int{100, 200} {
		for _, depth := range []int{10, 20} {
			n, depth := n, depth
			candidates = append(candidates, func() model.Classifier {
				m := model.NewRandomForest(t.seed)
				m.NEstimators = n
				m.MaxDepth = depth
				return m
			})
		}
	}
	best, err := t.gridSearch(X, y, 3, candidates)
	if err != nil {
		return nil, err
	}
	return best, best.Fit(X, y)
}

func (t *Trainer) trainBoosted(X [][]float64, y []float64, tune bool) (model.Classifier, error) {
	if !tune {
		m := model.NewGradientBoosting(t.seed)
		return m, m.Fit(X, y)
	}

	var candidates []func() model.Classifier
	for _, n := range []int{100, 200} {
		for _, depth := range []int{3, 5} {
			for _, lr := range []float64{0.05, 0.1} {
				n, depth, lr := n, depth, lr
				candidates = append(candidates, func() model.Classifier {
					m := model.NewGradientBoosting(t.seed)
					m.NEstimators = n
					m.MaxDepth = depth
					m.LearningRate = lr
					return m
				})
			}
		}
	}
	best, err := t.gridSearch(X, y, 3, candidates)
	if err != nil {
		return nil, err
	}
	return best, best.Fit(X, y)
}

// gridSearch returns a fresh unfitted instance of the candidate with
// the highest mean cross-validated ROC-AUC. Fold assignment is
// stratified and seeded, so the search is reproducible.
func (t *Trainer) gridSearch(X [][]float64, y []float64, folds int, candidates []func() model.Classifier) (model.Classifier, error) {
	if folds < 2 {
		folds = 2
	}
	foldIdx := t.stratifiedFolds(y, folds)

	bestScore := -1.0
	var bestIdx int
	for ci, mk := range candidates {
		var total float64
		for f := 0; f < folds; f++ {
			var trainIdx, validIdx []int
			for g := 0; g < folds; g++ {
				if g == f {
					validIdx = append(validIdx, foldIdx[g]...)
				} else {
					trainIdx = append(trainIdx, foldIdx[g]...)
				}
			}
			XTr, yTr := gather(X, y, trainIdx)
			XVa, yVa := gather(X, y, validIdx)

			c := mk()
			if err := c.Fit(XTr, yTr); err != nil {
				return nil, err
			}
			probs := make([]float64, len(XVa))
			for i, x := range XVa {
				probs[i] = c.PredictProba(x)
			}
			total += evaluate.ROCAUC(probs, yVa)
		}
		score := total / float64(folds)
		if score > bestScore {
			bestScore = score
			bestIdx = ci
		}
	}

	t.log.Info("grid search complete", map[string]interface{}{
		"candidates": len(candidates),
		"bestAuc":    bestScore,
	})
	return candidates[bestIdx](), nil
}

func (t *Trainer) stratifiedFolds(y []float64, folds int) [][]int {
	rng := rand.New(rand.NewSource(t.seed + 1))
	out := make([][]int, folds)

	var byClass [2][]int
	for i, label := range y {
		c := 0
		if label == 1 {
			c = 1
		}
		byClass[c] = append(byClass[c], i)
	}
	for _, idx := range byClass {
		rng.Shuffle(len(idx), func(a, b int) { idx[a], idx[b] = idx[b], idx[a] })
		for k, i := range idx {
			out[k%folds] = append(out[k%folds], i)
		}
	}
	return out
}

func gather(X [][]float64, y []float64, idx []int) ([][]float64, []float64) {
	outX := make([][]float64, len(idx))
	outY := make([]float64, len(idx))
	for k, i := range idx {
		outX[k] = X[i]
		outY[k] = y[i]
	}
	return outX, outY
}
