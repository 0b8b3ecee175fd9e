// Package dataset loads the training corpus from CSV.
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"churn-predictor/internal/churn/cleaner"
	"churn-predictor/internal/common/errors"
	"churn-predictor/internal/common/logger"
)

// requiredColumns are the columns a corpus must carry to be usable at
// all; everything else a missing column degrades, these abort the run.
var requiredColumns = []string{
	cleaner.ColCustomerID,
	cleaner.ColTenure,
	cleaner.ColMonthlyCharges,
	cleaner.ColTotalCharges,
	cleaner.ColContract,
	cleaner.ColPaymentMethod,
	cleaner.ColInternetService,
}

// Load reads the corpus at path into raw per-row column maps, keyed by
// header name. A missing file, malformed CSV, missing required column
// or empty corpus is a fatal CORPUS_LOAD_FAILED error.
func Load(path string, log logger.Logger) ([]map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewCorpusLoadError(err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, errors.NewCorpusLoadError(fmt.Errorf("reading header: %w", err))
	}
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[h] = i
	}
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return nil, errors.NewCorpusLoadError(fmt.Errorf("missing required column %q", col))
		}
	}

	var rows []map[string]string
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.NewCorpusLoadError(fmt.Errorf("row %d: %w", len(rows)+2, err))
		}
		row := make(map[string]string, len(header))
		for i, h := range header {
			if i < len(record) {
				row[h] = record[i]
			}
		}
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return nil, errors.NewCorpusLoadError(fmt.Errorf("corpus at %s has no data rows", path))
	}

	log.Info("loaded training corpus", map[string]interface{}{
		"path": path,
		"rows": len(rows),
	})
	return rows, nil
}
