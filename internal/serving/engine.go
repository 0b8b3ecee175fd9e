// Package serving owns the hot path: an atomically swappable serving
// state (predictor, transformer, explainer, metadata) fed by training
// runs and queried by the HTTP layer.
package serving

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"churn-predictor/internal/churn/artifacts"
	"churn-predictor/internal/churn/cleaner"
	"churn-predictor/internal/churn/explain"
	"churn-predictor/internal/churn/features"
	"churn-predictor/internal/churn/predict"
	"churn-predictor/internal/churn/transform"
	"churn-predictor/internal/common/config"
	"churn-predictor/internal/common/database"
	"churn-predictor/internal/common/errors"
	"churn-predictor/internal/common/logger"
	"churn-predictor/internal/common/metrics"
	"churn-predictor/internal/common/notify"
	"churn-predictor/internal/common/observability"
	"churn-predictor/internal/jobs"
	"churn-predictor/internal/models"
)

// PredictionStore persists served predictions. Optional; a nil store
// disables persistence and the lookups that depend on it.
type PredictionStore interface {
	SavePrediction(ctx context.Context, rec *models.PredictionRecord) error
	LatestPrediction(ctx context.Context, customerID string) (*models.PredictionRecord, error)
}

// WhatIfResult compares a stored prediction against a re-scored
// scenario with partial overrides applied.
type WhatIfResult struct {
	CustomerID     string            `json:"customer_id"`
	Original       ScenarioOutcome   `json:"original"`
	Modified       ScenarioOutcome   `json:"modified"`
	ChangesApplied map[string]string `json:"changes_applied"`
	Impact         WhatIfImpact      `json:"impact"`
}

type ScenarioOutcome struct {
	ChurnProbability float64 `json:"churn_probability"`
	RiskLevel        string  `json:"risk_level"`
}

type WhatIfImpact struct {
	ProbabilityChange float64 `json:"probability_change"`
	RiskLevelChange   bool    `json:"risk_level_change"`
	Improvement       bool    `json:"improvement"`
}

// state is the immutable serving triple plus its binding metadata.
// Swapped atomically as a unit so a request never sees a model from one
// run and a transformer from another.
type state struct {
	predictor   *predict.Predictor
	transformer *transform.Transformer
	explainer   *explain.Explainer
	metadata    *artifacts.Metadata
}

// Engine serves predictions against the current model set. Safe for
// concurrent use; initialization from disk is lazy and single-flight.
type Engine struct {
	cfg    *config.Config
	log    logger.Logger
	store  PredictionStore
	cache  *database.RedisClient
	alerts notify.Sender
	obs    *observability.Observability

	current atomic.Pointer[state]
	initMu  sync.Mutex
}

func NewEngine(cfg *config.Config, store PredictionStore, cache *database.RedisClient, alerts notify.Sender, obs *observability.Observability, log logger.Logger) *Engine {
	return &Engine{cfg: cfg, log: log, store: store, cache: cache, alerts: alerts, obs: obs}
}

// Ready reports whether a model set is currently attached.
func (e *Engine) Ready() bool {
	return e.current.Load() != nil
}

// Metadata returns the binding metadata of the attached model set, or
// nil before initialization.
func (e *Engine) Metadata() *artifacts.Metadata {
	st := e.current.Load()
	if st == nil {
		return nil
	}
	return st.metadata
}

// Reload swaps in the output of a finished training run. Requests in
// flight keep the state they started with.
func (e *Engine) Reload(result *jobs.PipelineResult) error {
	variant := e.pickVariant(result.Metadata)
	clf, ok := result.Trained[variant]
	if !ok {
		return errors.NewModelNotLoadedError(fmt.Sprintf("variant %q not in training output", variant))
	}

	tr := result.Transformer
	tr.SetLogger(e.log)
	st := &state{
		predictor:   predict.New(clf, variant, result.Metadata.ModelVersion),
		transformer: tr,
		explainer: explain.New(clf, result.Background, result.Metadata.FeatureNames,
			e.cfg.Training.BackgroundSamples, e.cfg.Training.Seed, e.log),
		metadata: result.Metadata,
	}
	e.current.Store(st)
	e.log.Info("serving state reloaded", map[string]interface{}{
		"model":    variant,
		"features": result.Metadata.NFeatures,
	})
	return nil
}

// ensure returns the current state, loading artifacts from disk on
// first use. Concurrent first callers are collapsed behind one load.
func (e *Engine) ensure() (*state, error) {
	if st := e.current.Load(); st != nil {
		return st, nil
	}

	e.initMu.Lock()
	defer e.initMu.Unlock()
	if st := e.current.Load(); st != nil {
		return st, nil
	}

	st, err := e.loadFromDisk()
	if err != nil {
		e.log.WithError(err).Warn("serving state initialization failed", nil)
		return nil, errors.NewModelUnavailableError(err.Error())
	}
	e.current.Store(st)
	return st, nil
}

func (e *Engine) loadFromDisk() (*state, error) {
	dir := e.cfg.Models.Dir
	md, err := artifacts.LoadMetadata(dir)
	if err != nil {
		return nil, err
	}
	variant := e.pickVariant(md)
	clf, err := artifacts.LoadModel(dir, variant)
	if err != nil {
		return nil, err
	}
	tr, err := artifacts.LoadTransformer(dir)
	if err != nil {
		return nil, err
	}
	tr.SetLogger(e.log)
	background, err := artifacts.LoadBackground(dir)
	if err != nil {
		return nil, err
	}

	e.log.Info("serving state loaded from artifacts", map[string]interface{}{
		"dir":      dir,
		"model":    variant,
		"features": md.NFeatures,
	})
	return &state{
		predictor:   predict.New(clf, variant, md.ModelVersion),
		transformer: tr,
		explainer: explain.New(clf, background, md.FeatureNames,
			e.cfg.Training.BackgroundSamples, e.cfg.Training.Seed, e.log),
		metadata: md,
	}, nil
}

// pickVariant prefers the configured default variant; an empty config
// falls back to the best model of the training run.
func (e *Engine) pickVariant(md *artifacts.Metadata) string {
	if e.cfg.Models.DefaultVariant != "" {
		return e.cfg.Models.DefaultVariant
	}
	return md.BestModel
}

// Predict scores one request, explains it, persists and caches the
// outcome, and raises a retention alert when the probability crosses
// the configured threshold. Persistence and alert failures are logged,
// never surfaced: the prediction already succeeded.
func (e *Engine) Predict(ctx context.Context, req models.PredictionRequest) (*models.PredictionResult, *models.Explanation, error) {
	st, err := e.ensure()
	if err != nil {
		return nil, nil, err
	}

	start := time.Now()
	result, expl, err := e.score(st, req.ToRaw())
	if e.obs != nil {
		e.obs.RecordInference(ctx, st.predictor.ModelName(), time.Since(start), err == nil)
	}
	if err != nil {
		return nil, nil, err
	}
	result.CustomerID = req.CustomerID

	metrics.PredictionsTotal.WithLabelValues(result.RiskLevel).Inc()
	metrics.PredictionDuration.Observe(time.Since(start).Seconds())

	e.persist(ctx, req, result, expl)
	e.maybeAlert(ctx, result, expl)
	return result, expl, nil
}

// score runs the full hot path on a raw column map: clean, engineer,
// encode, predict, explain. Explanation failure degrades to fallback
// recommendations instead of failing the request.
func (e *Engine) score(st *state, raw map[string]string) (*models.PredictionResult, *models.Explanation, error) {
	rec, err := cleaner.New().Clean(raw)
	if err != nil {
		return nil, nil, errors.NewValidationError(err.Error())
	}
	x := st.transformer.Apply(features.Engineer(rec))

	result, err := st.predictor.PredictVector(x)
	if err != nil {
		return nil, nil, err
	}

	expl, err := st.explainer.Explain(x)
	if err != nil {
		e.log.WithError(err).Warn("explanation degraded", map[string]interface{}{
			"customerId": rec.CustomerID,
		})
		expl = &models.Explanation{}
	}
	expl.Recommendations = explain.Recommendations(expl.FeatureImpacts, result.ChurnProbability)
	return result, expl, nil
}

// PredictBatch scores rows independently: a malformed row yields a
// positional error while its siblings still succeed. No explanations
// on the batch path.
func (e *Engine) PredictBatch(ctx context.Context, reqs []models.PredictionRequest) (*models.BatchResult, error) {
	st, err := e.ensure()
	if err != nil {
		return nil, err
	}

	out := &models.BatchResult{Predictions: make([]*models.PredictionResult, len(reqs))}
	for i, req := range reqs {
		rec, cerr := cleaner.New().Clean(req.ToRaw())
		if cerr != nil {
			out.Errors = append(out.Errors, models.BatchRowError{
				Row:   i,
				Error: errors.NewRowParseError(i, cerr).Error(),
			})
			metrics.BatchRowsTotal.WithLabelValues("failed").Inc()
			continue
		}
		x := st.transformer.Apply(features.Engineer(rec))
		result, perr := st.predictor.PredictVector(x)
		if perr != nil {
			return nil, perr
		}
		result.CustomerID = req.CustomerID
		out.Predictions[i] = result
		metrics.BatchRowsTotal.WithLabelValues("ok").Inc()
	}

	e.log.Info("batch prediction served", map[string]interface{}{
		"rows":   len(reqs),
		"failed": len(out.Errors),
	})
	return out, nil
}

// WhatIf re-scores the latest stored prediction for a customer with
// partial overrides applied, and reports the probability shift.
func (e *Engine) WhatIf(ctx context.Context, customerID string, changes map[string]string) (*WhatIfResult, error) {
	st, err := e.ensure()
	if err != nil {
		return nil, err
	}
	if e.store == nil {
		return nil, errors.NewValidationError("prediction store not configured")
	}

	prev, err := e.store.LatestPrediction(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if prev.Features == nil {
		return nil, errors.NewValidationError("stored prediction carries no request features")
	}

	modified, _, err := e.score(st, prev.Features.Merge(changes))
	if err != nil {
		return nil, err
	}

	delta := modified.ChurnProbability - prev.ChurnProbability
	return &WhatIfResult{
		CustomerID: customerID,
		Original: ScenarioOutcome{
			ChurnProbability: prev.ChurnProbability,
			RiskLevel:        prev.RiskLevel,
		},
		Modified: ScenarioOutcome{
			ChurnProbability: modified.ChurnProbability,
			RiskLevel:        modified.RiskLevel,
		},
		ChangesApplied: changes,
		Impact: WhatIfImpact{
			ProbabilityChange: delta,
			RiskLevelChange:   prev.RiskLevel != modified.RiskLevel,
			Improvement:       delta < 0,
		},
	}, nil
}

// Explanation returns the cached or stored explanation for a customer.
// Cache miss falls back to the prediction store; (nil, nil) means no
// prediction exists for the customer.
func (e *Engine) Explanation(ctx context.Context, customerID string) (*models.PredictionRecord, error) {
	if e.cache != nil {
		data, err := e.cache.Client.Get(ctx, explanationKey(customerID)).Bytes()
		if err == nil {
			var rec models.PredictionRecord
			if jerr := json.Unmarshal(data, &rec); jerr == nil {
				return &rec, nil
			}
		}
	}
	if e.store == nil {
		return nil, nil
	}
	rec, err := e.store.LatestPrediction(ctx, customerID)
	if err != nil {
		if errors.CodeOf(err) == errors.ErrCodeQueryExecutionFailed {
			return nil, err
		}
		return nil, nil
	}
	return rec, nil
}

func (e *Engine) persist(ctx context.Context, req models.PredictionRequest, result *models.PredictionResult, expl *models.Explanation) {
	rec := &models.PredictionRecord{
		CustomerID:       req.CustomerID,
		ChurnPrediction:  result.ChurnPrediction,
		ChurnProbability: result.ChurnProbability,
		RiskLevel:        result.RiskLevel,
		ModelName:        result.ModelName,
		Features:         &req,
		Explanation:      expl,
		PredictionDate:   result.PredictionDate,
	}

	if e.store != nil {
		if err := e.store.SavePrediction(ctx, rec); err != nil {
			e.log.WithError(err).Warn("persisting prediction failed", map[string]interface{}{
				"customerId": req.CustomerID,
			})
		}
	}

	if e.cache != nil && req.CustomerID != "" {
		data, err := json.Marshal(rec)
		if err == nil {
			ttl := time.Duration(e.cfg.Database.Redis.TTLSeconds) * time.Second
			err = e.cache.Client.Set(ctx, explanationKey(req.CustomerID), data, ttl).Err()
		}
		if err != nil {
			e.log.WithError(err).Warn("caching prediction failed", map[string]interface{}{
				"customerId": req.CustomerID,
			})
		}
	}
}

func (e *Engine) maybeAlert(ctx context.Context, result *models.PredictionResult, expl *models.Explanation) {
	if e.alerts == nil || result.ChurnProbability < e.cfg.Alerts.Threshold {
		return
	}
	var factors []string
	for _, f := range expl.TopFeatures {
		if f.Direction == "positive" {
			factors = append(factors, f.Feature)
		}
	}
	err := e.alerts.Send(ctx, notify.Alert{
		CustomerID:  result.CustomerID,
		Probability: result.ChurnProbability,
		RiskLevel:   result.RiskLevel,
		ModelName:   result.ModelName,
		TopFactors:  factors,
	})
	if err != nil {
		e.log.WithError(err).Warn("retention alert failed", map[string]interface{}{
			"customerId": result.CustomerID,
		})
	}
}

func explanationKey(customerID string) string {
	return "churn:explanation:" + customerID
}
