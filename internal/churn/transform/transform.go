// Package transform converts engineered rows into fixed-width numeric
// feature vectors. Fit learns categorical encodings and scaling
// statistics from a training corpus; Apply replays the frozen
// parameters so training and inference vectors match bit for bit.
package transform

import (
	"math"
	"sort"

	"churn-predictor/internal/churn/features"
	"churn-predictor/internal/common/logger"
	"churn-predictor/internal/models"
)

// binaryCols maps two-valued categorical columns to their 0/1 coding.
// The target label is handled separately and never enters the feature
// set.
var binaryCols = []struct {
	Name  string
	One   string
	Value func(models.CustomerRecord) string
}{
	{"gender", "Male", func(r models.CustomerRecord) string { return r.Gender }},
	{"SeniorCitizen", "Yes", func(r models.CustomerRecord) string { return r.SeniorCitizen }},
	{"Partner", "Yes", func(r models.CustomerRecord) string { return r.Partner }},
	{"Dependents", "Yes", func(r models.CustomerRecord) string { return r.Dependents }},
	{"PhoneService", "Yes", func(r models.CustomerRecord) string { return r.PhoneService }},
	{"PaperlessBilling", "Yes", func(r models.CustomerRecord) string { return r.PaperlessBilling }},
}

// multiCols are the one-hot encoded multi-valued categorical columns,
// in fixed order.
var multiCols = []struct {
	Name  string
	Value func(models.CustomerRecord) string
}{
	{"MultipleLines", func(r models.CustomerRecord) string { return r.MultipleLines }},
	{"InternetService", func(r models.CustomerRecord) string { return r.InternetService }},
	{"OnlineSecurity", func(r models.CustomerRecord) string { return r.OnlineSecurity }},
	{"OnlineBackup", func(r models.CustomerRecord) string { return r.OnlineBackup }},
	{"DeviceProtection", func(r models.CustomerRecord) string { return r.DeviceProtection }},
	{"TechSupport", func(r models.CustomerRecord) string { return r.TechSupport }},
	{"StreamingTV", func(r models.CustomerRecord) string { return r.StreamingTV }},
	{"StreamingMovies", func(r models.CustomerRecord) string { return r.StreamingMovies }},
	{"Contract", func(r models.CustomerRecord) string { return r.Contract }},
	{"PaymentMethod", func(r models.CustomerRecord) string { return r.PaymentMethod }},
}

var numericCols = []string{"tenure", "MonthlyCharges", "TotalCharges"}

// Transformer holds frozen encoding and scaling state. Created once
// per training run, then shared read-only by the serving path.
type Transformer struct {
	// DroppedCategory is the reference category removed per one-hot
	// column to avoid redundancy (lexicographically first seen at fit).
	DroppedCategory map[string]string   `json:"dropped_category"`
	OneHot          map[string][]string `json:"one_hot"` // kept categories, sorted
	FeatureNames    []string            `json:"feature_names"`
	Mean            []float64           `json:"mean"`
	Std             []float64           `json:"std"`

	log logger.Logger
}

// SetLogger attaches a logger used to surface unseen-category warnings.
func (t *Transformer) SetLogger(log logger.Logger) {
	t.log = log
}

// Fit learns encodings and scaling statistics from the corpus and
// returns the standardized feature matrix plus the separated labels
// (nil when the corpus is unlabeled).
func Fit(rows []features.Row, log logger.Logger) (*Transformer, [][]float64, []float64, error) {
	t := &Transformer{
		DroppedCategory: make(map[string]string, len(multiCols)),
		OneHot:          make(map[string][]string, len(multiCols)),
		log:             log,
	}

	// Learn one-hot category sets, drop-first per column.
	for _, col := range multiCols {
		seen := map[string]bool{}
		for _, row := range rows {
			seen[col.Value(row.Record)] = true
		}
		cats := make([]string, 0, len(seen))
		for c := range seen {
			cats = append(cats, c)
		}
		sort.Strings(cats)
		if len(cats) > 0 {
			t.DroppedCategory[col.Name] = cats[0]
			t.OneHot[col.Name] = cats[1:]
		}
	}

	t.FeatureNames = t.buildFeatureNames()

	raw := make([][]float64, len(rows))
	for i, row := range rows {
		raw[i] = t.rawVector(row)
	}

	// Standardization statistics per feature.
	n := float64(len(rows))
	dim := len(t.FeatureNames)
	t.Mean = make([]float64, dim)
	t.Std = make([]float64, dim)
	for j := 0; j < dim; j++ {
		var sum float64
		for i := range raw {
			sum += raw[i][j]
		}
		mean := sum / n
		var ss float64
		for i := range raw {
			d := raw[i][j] - mean
			ss += d * d
		}
		std := math.Sqrt(ss / n)
		if std == 0 {
			std = 1
		}
		t.Mean[j] = mean
		t.Std[j] = std
	}

	for i := range raw {
		for j := range raw[i] {
			raw[i][j] = (raw[i][j] - t.Mean[j]) / t.Std[j]
		}
	}

	var labels []float64
	if len(rows) > 0 && rows[0].Record.Churn != "" {
		labels = make([]float64, len(rows))
		for i, row := range rows {
			if row.Record.Churn == "Yes" {
				labels[i] = 1
			}
		}
	}

	return t, raw, labels, nil
}

// Apply transforms one engineered row with the frozen parameters,
// producing a vector whose length and order equal FeatureNames. An
// inference-time category unseen during fit zero-imputes its one-hot
// columns and logs a warning; it never fails the request.
func (t *Transformer) Apply(row features.Row) []float64 {
	v := t.rawVector(row)
	for j := range v {
		v[j] = (v[j] - t.Mean[j]) / t.Std[j]
	}
	return v
}

// ApplyAll transforms every row, preserving order.
func (t *Transformer) ApplyAll(rows []features.Row) [][]float64 {
	out := make([][]float64, len(rows))
	for i, row := range rows {
		out[i] = t.Apply(row)
	}
	return out
}

func (t *Transformer) buildFeatureNames() []string {
	names := make([]string, 0, 64)
	for _, col := range binaryCols {
		names = append(names, col.Name)
	}
	names = append(names, numericCols...)
	names = append(names, features.DerivedOrder()...)
	for _, col := range multiCols {
		for _, cat := range t.OneHot[col.Name] {
			names = append(names, col.Name+"_"+cat)
		}
	}
	return names
}

// rawVector builds the unscaled vector in FeatureNames order.
func (t *Transformer) rawVector(row features.Row) []float64 {
	rec := row.Record
	v := make([]float64, 0, len(t.FeatureNames))

	for _, col := range binaryCols {
		if col.Value(rec) == col.One {
			v = append(v, 1)
		} else {
			v = append(v, 0)
		}
	}

	v = append(v, float64(rec.Tenure), rec.MonthlyCharges, rec.TotalCharges)

	for _, name := range features.DerivedOrder() {
		v = append(v, row.Derived[name])
	}

	for _, col := range multiCols {
		val := col.Value(rec)
		kept := t.OneHot[col.Name]
		matched := val == t.DroppedCategory[col.Name]
		for _, cat := range kept {
			if val == cat {
				v = append(v, 1)
				matched = true
			} else {
				v = append(v, 0)
			}
		}
		if !matched && t.log != nil {
			t.log.Warn("unseen category at inference, zero-imputed", map[string]interface{}{
				"column":   col.Name,
				"category": val,
			})
		}
	}

	return v
}
