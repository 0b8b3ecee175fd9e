package jobs

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"churn-predictor/internal/churn/artifacts"
	"churn-predictor/internal/churn/cleaner"
	"churn-predictor/internal/churn/dataset"
	"churn-predictor/internal/churn/evaluate"
	"churn-predictor/internal/churn/features"
	"churn-predictor/internal/churn/model"
	"churn-predictor/internal/churn/trainer"
	"churn-predictor/internal/churn/transform"
	"churn-predictor/internal/common/config"
	"churn-predictor/internal/common/errors"
	"churn-predictor/internal/common/logger"
	"churn-predictor/internal/common/metrics"
	"churn-predictor/internal/models"
)

// Stage names in execution order, with their progress checkpoints.
const (
	StageLoad        = "load"
	StageEngineer    = "engineer"
	StageProcess     = "process"
	StageSplit       = "split"
	StageTrain       = "train"
	StageEvaluate    = "evaluate"
	StageSaveModels  = "save-models"
	StageSaveMetrics = "save-metrics"
)

// Pipeline executes one full training run: corpus load, cleaning,
// feature engineering, encoding, split, fit, evaluation and artifact
// persistence. Stateless across runs.
type Pipeline struct {
	training config.TrainingConfig
	artifact config.ModelsConfig
	sink     MetricsSink
	log      logger.Logger
}

// PipelineResult carries everything the serving layer needs to swap in
// the freshly trained model set without touching disk.
type PipelineResult struct {
	Trained     map[string]model.Classifier
	Transformer *transform.Transformer
	Metrics     map[string]models.EvaluationMetrics
	BestModel   string
	Metadata    *artifacts.Metadata
	Background  [][]float64
}

// StageFunc is invoked as each stage begins. Returning an error aborts
// the run; the coordinator uses this to propagate cancellation.
type StageFunc func(stage string, progress float64) error

func NewPipeline(training config.TrainingConfig, artifact config.ModelsConfig, sink MetricsSink, log logger.Logger) *Pipeline {
	return &Pipeline{training: training, artifact: artifact, sink: sink, log: log}
}

// Run executes the pipeline. The context cancels between stages, never
// mid-fit.
func (p *Pipeline) Run(ctx context.Context, opts models.TrainingOptions, onStage StageFunc) (*PipelineResult, error) {
	testSize := opts.TestSize
	if testSize <= 0 || testSize >= 1 {
		testSize = p.training.TestSize
	}

	var raw []map[string]string
	err := p.stage(ctx, StageLoad, 0.1, onStage, func() error {
		var err error
		raw, err = dataset.Load(p.training.DataPath, p.log)
		return err
	})
	if err != nil {
		return nil, err
	}

	var rows []features.Row
	err = p.stage(ctx, StageEngineer, 0.2, onStage, func() error {
		cl := cleaner.New()
		dropped := 0
		for i, r := range raw {
			rec, cerr := cl.Clean(r)
			if cerr != nil {
				dropped++
				p.log.Warn("dropping unparsable corpus row", map[string]interface{}{
					"row":   i + 1,
					"error": cerr.Error(),
				})
				continue
			}
			rows = append(rows, features.Engineer(rec))
		}
		if len(rows) == 0 {
			return errors.NewCorpusLoadError(fmt.Errorf("no usable rows after cleaning (%d dropped)", dropped))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var (
		tr *transform.Transformer
		X  [][]float64
		y  []float64
	)
	err = p.stage(ctx, StageProcess, 0.3, onStage, func() error {
		var err error
		tr, X, y, err = transform.Fit(rows, p.log)
		if err != nil {
			return err
		}
		if y == nil {
			return fmt.Errorf("training corpus carries no churn labels")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	t := trainer.New(p.training.Seed, p.log)
	var XTrain, XTest [][]float64
	var yTrain, yTest []float64
	err = p.stage(ctx, StageSplit, 0.4, onStage, func() error {
		var err error
		XTrain, XTest, yTrain, yTest, err = t.Split(X, y, testSize, opts.BalanceClasses)
		return err
	})
	if err != nil {
		return nil, err
	}

	var trained map[string]model.Classifier
	err = p.stage(ctx, StageTrain, 0.5, onStage, func() error {
		var err error
		trained, err = t.TrainAll(XTrain, yTrain, opts.TuneHyperparameters, p.training.CVFolds)
		return err
	})
	if err != nil {
		return nil, err
	}

	var (
		evaluated map[string]models.EvaluationMetrics
		bestModel string
	)
	trainedAt := time.Now().UTC()
	err = p.stage(ctx, StageEvaluate, 0.7, onStage, func() error {
		ev := evaluate.New(p.log)
		evaluated = ev.EvaluateAll(trained, model.VariantNames(), XTest, yTest)
		for name, m := range evaluated {
			m.ModelVersion = p.artifact.Version
			m.FeatureImportance = evaluate.FeatureImportance(trained[name], tr.FeatureNames, p.training.ImportanceTopN)
			m.TrainingSamples = len(XTrain)
			m.TestSamples = len(XTest)
			m.TrainingTimeSeconds = t.TrainingTimes[name]
			m.TrainedAt = trainedAt
			evaluated[name] = m
		}
		var err error
		bestModel, _, err = ev.Best(p.training.SelectionMetric)
		return err
	})
	if err != nil {
		return nil, err
	}

	background := sampleRows(XTrain, p.training.BackgroundSamples, p.training.Seed)
	md := &artifacts.Metadata{
		FeatureNames:    tr.FeatureNames,
		ModelVersion:    p.artifact.Version,
		BestModel:       bestModel,
		NFeatures:       len(tr.FeatureNames),
		TrainingSamples: len(XTrain),
		TestSamples:     len(XTest),
		TrainedAt:       trainedAt,
	}
	err = p.stage(ctx, StageSaveModels, 0.8, onStage, func() error {
		if err := artifacts.SaveModels(p.artifact.Dir, trained); err != nil {
			return err
		}
		if err := artifacts.SaveTransformer(p.artifact.Dir, tr); err != nil {
			return err
		}
		if err := artifacts.SaveBackground(p.artifact.Dir, background); err != nil {
			return err
		}
		return artifacts.SaveMetadata(p.artifact.Dir, md)
	})
	if err != nil {
		return nil, err
	}

	err = p.stage(ctx, StageSaveMetrics, 0.9, onStage, func() error {
		if p.sink == nil {
			return nil
		}
		return p.sink.SaveModelMetrics(ctx, evaluated)
	})
	if err != nil {
		return nil, err
	}

	p.log.Info("training pipeline complete", map[string]interface{}{
		"bestModel": bestModel,
		"features":  len(tr.FeatureNames),
	})
	return &PipelineResult{
		Trained:     trained,
		Transformer: tr,
		Metrics:     evaluated,
		BestModel:   bestModel,
		Metadata:    md,
		Background:  background,
	}, nil
}

func (p *Pipeline) stage(ctx context.Context, name string, progress float64, onStage StageFunc, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if onStage != nil {
		if err := onStage(name, progress); err != nil {
			return err
		}
	}
	start := time.Now()
	err := fn()
	metrics.TrainingStageDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	if err != nil {
		if _, ok := err.(*errors.StandardError); ok {
			return err
		}
		return errors.NewTrainingError(name, err)
	}
	return nil
}

func sampleRows(X [][]float64, max int, seed int64) [][]float64 {
	if max <= 0 {
		max = 100
	}
	if len(X) <= max {
		return X
	}
	rng := rand.New(rand.NewSource(seed))
	perm := rng.Perm(len(X))
	out := make([][]float64, max)
	for i := 0; i < max; i++ {
		out[i] = X[perm[i]]
	}
	return out
}
