// Package artifacts persists and restores trained models, the frozen
// transformer and the feature metadata binding training to inference.
package artifacts

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"churn-predictor/internal/churn/model"
	"churn-predictor/internal/churn/transform"
	"churn-predictor/internal/common/errors"
)

const (
	scalerFile     = "scaler.json"
	metadataFile   = "model_metadata.json"
	backgroundFile = "background.json"
)

// Metadata is the training↔inference binding contract saved alongside
// the model files. Inference must use exactly these feature names in
// exactly this order.
type Metadata struct {
	FeatureNames    []string  `json:"feature_names"`
	ModelVersion    string    `json:"model_version"`
	BestModel       string    `json:"best_model"`
	NFeatures       int       `json:"n_features"`
	TrainingSamples int       `json:"training_samples"`
	TestSamples     int       `json:"test_samples"`
	TrainedAt       time.Time `json:"trained_at"`
}

// VariantFileName maps a variant display name to its artifact file,
// e.g. "Gradient Boosting" -> "gradient_boosting.json".
func VariantFileName(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), " ", "_") + ".json"
}

// SaveModels writes one JSON file per trained variant under dir,
// creating it if needed.
func SaveModels(dir string, trained map[string]model.Classifier) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.NewArtifactIOError(err)
	}
	for name, c := range trained {
		data, err := model.Marshal(c)
		if err != nil {
			return errors.NewArtifactIOError(fmt.Errorf("marshal %s: %w", name, err))
		}
		if err := writeFile(filepath.Join(dir, VariantFileName(name)), data); err != nil {
			return err
		}
	}
	return nil
}

// LoadModel restores one variant by display name.
func LoadModel(dir, name string) (model.Classifier, error) {
	data, err := os.ReadFile(filepath.Join(dir, VariantFileName(name)))
	if err != nil {
		return nil, errors.NewArtifactIOError(err)
	}
	c, err := model.Unmarshal(data)
	if err != nil {
		return nil, errors.NewArtifactIOError(fmt.Errorf("decode %s: %w", name, err))
	}
	return c, nil
}

// SaveTransformer writes the frozen encoding and scaling state.
func SaveTransformer(dir string, t *transform.Transformer) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.NewArtifactIOError(err)
	}
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return errors.NewArtifactIOError(err)
	}
	return writeFile(filepath.Join(dir, scalerFile), data)
}

// LoadTransformer restores the frozen transformer state. The caller
// attaches a logger before use.
func LoadTransformer(dir string) (*transform.Transformer, error) {
	data, err := os.ReadFile(filepath.Join(dir, scalerFile))
	if err != nil {
		return nil, errors.NewArtifactIOError(err)
	}
	var t transform.Transformer
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, errors.NewArtifactIOError(err)
	}
	return &t, nil
}

// SaveMetadata writes the feature-metadata contract.
func SaveMetadata(dir string, md *Metadata) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.NewArtifactIOError(err)
	}
	data, err := json.MarshalIndent(md, "", "  ")
	if err != nil {
		return errors.NewArtifactIOError(err)
	}
	return writeFile(filepath.Join(dir, metadataFile), data)
}

// LoadMetadata restores the feature-metadata contract.
func LoadMetadata(dir string) (*Metadata, error) {
	data, err := os.ReadFile(filepath.Join(dir, metadataFile))
	if err != nil {
		return nil, errors.NewArtifactIOError(err)
	}
	var md Metadata
	if err := json.Unmarshal(data, &md); err != nil {
		return nil, errors.NewArtifactIOError(err)
	}
	return &md, nil
}

// SaveBackground persists the sampled scaled training rows used as the
// attribution background distribution, so explanations survive
// restarts without reloading the corpus.
func SaveBackground(dir string, rows [][]float64) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.NewArtifactIOError(err)
	}
	data, err := json.Marshal(rows)
	if err != nil {
		return errors.NewArtifactIOError(err)
	}
	return writeFile(filepath.Join(dir, backgroundFile), data)
}

// LoadBackground restores the attribution background sample. A missing
// file yields an empty sample, not an error.
func LoadBackground(dir string) ([][]float64, error) {
	data, err := os.ReadFile(filepath.Join(dir, backgroundFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.NewArtifactIOError(err)
	}
	var rows [][]float64
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, errors.NewArtifactIOError(err)
	}
	return rows, nil
}

// writeFile writes via a temp file and rename so a crashed run never
// leaves a truncated artifact behind.
func writeFile(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.NewArtifactIOError(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return errors.NewArtifactIOError(err)
	}
	return nil
}
