// cmd/train/main.go
//
// One-shot training run: executes the full pipeline synchronously and
// prints the evaluation summary. Artifacts land in the configured
// models directory, ready for the serving binary to pick up.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"churn-predictor/internal/common/config"
	"churn-predictor/internal/common/logger"
	"churn-predictor/internal/jobs"
	"churn-predictor/internal/models"
)

func main() {
	var (
		dataPath = flag.String("data", "", "override training corpus path")
		tune     = flag.Bool("tune", false, "cross-validated hyperparameter search")
		balance  = flag.Bool("balance", true, "oversample the minority class on the training split")
		testSize = flag.Float64("test-size", 0, "held-out fraction (0 uses configured default)")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}
	if *dataPath != "" {
		cfg.Training.DataPath = *dataPath
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	opts := models.TrainingOptions{
		TuneHyperparameters: *tune,
		BalanceClasses:      *balance,
		TestSize:            *testSize,
	}

	pipeline := jobs.NewPipeline(cfg.Training, cfg.Models, nil, log)
	result, err := pipeline.Run(context.Background(), opts, func(stage string, progress float64) error {
		zapLog.Info("stage", zap.String("name", stage), zap.Float64("progress", progress))
		return nil
	})
	if err != nil {
		zapLog.Fatal("training failed", zap.Error(err))
	}

	fmt.Printf("\nTraining complete. Best model: %s\n\n", result.BestModel)
	fmt.Printf("%-22s %9s %10s %8s %9s %8s\n", "Model", "Accuracy", "Precision", "Recall", "F1", "ROC-AUC")
	for _, name := range variantOrder(result) {
		m := result.Metrics[name]
		fmt.Printf("%-22s %9.4f %10.4f %8.4f %9.4f %8.4f\n",
			name, m.Accuracy, m.Precision, m.Recall, m.F1Score, m.ROCAUC)
	}
	fmt.Printf("\nArtifacts written to %s (%d features)\n", cfg.Models.Dir, result.Metadata.NFeatures)
}

func variantOrder(result *jobs.PipelineResult) []string {
	names := make([]string, 0, len(result.Metrics))
	for name := range result.Metrics {
		names = append(names, name)
	}
	// Small fixed set; keep the canonical ordering when present.
	ordered := []string{"Logistic Regression", "Random Forest", "Gradient Boosting"}
	var out []string
	for _, n := range ordered {
		if _, ok := result.Metrics[n]; ok {
			out = append(out, n)
		}
	}
	for _, n := range names {
		if !contains(out, n) {
			out = append(out, n)
		}
	}
	return out
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
