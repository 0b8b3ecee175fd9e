// Package cleaner normalizes raw customer rows into the canonical
// schema: numeric coercion, missing-value policy and flag relabeling.
package cleaner

import (
	"fmt"
	"strconv"
	"strings"

	"churn-predictor/internal/models"
)

// Column names of the raw input schema.
const (
	ColCustomerID       = "customerID"
	ColGender           = "gender"
	ColSeniorCitizen    = "SeniorCitizen"
	ColPartner          = "Partner"
	ColDependents       = "Dependents"
	ColTenure           = "tenure"
	ColPhoneService     = "PhoneService"
	ColMultipleLines    = "MultipleLines"
	ColInternetService  = "InternetService"
	ColOnlineSecurity   = "OnlineSecurity"
	ColOnlineBackup     = "OnlineBackup"
	ColDeviceProtection = "DeviceProtection"
	ColTechSupport      = "TechSupport"
	ColStreamingTV      = "StreamingTV"
	ColStreamingMovies  = "StreamingMovies"
	ColContract         = "Contract"
	ColPaperlessBilling = "PaperlessBilling"
	ColPaymentMethod    = "PaymentMethod"
	ColMonthlyCharges   = "MonthlyCharges"
	ColTotalCharges     = "TotalCharges"
	ColChurn            = "Churn"
)

// forwardFillCols are the fields carried forward from the previous row
// when missing. A fallback policy, not a statistically principled
// imputation.
var forwardFillCols = []string{
	ColGender, ColSeniorCitizen, ColPartner, ColDependents, ColTenure,
	ColPhoneService, ColMultipleLines, ColInternetService,
	ColOnlineSecurity, ColOnlineBackup, ColDeviceProtection,
	ColTechSupport, ColStreamingTV, ColStreamingMovies, ColContract,
	ColPaperlessBilling, ColPaymentMethod, ColMonthlyCharges, ColChurn,
}

// Cleaner converts raw rows into canonical records. It is stateful
// only for the forward-fill policy: each successfully cleaned row
// becomes the fill source for the next one in processing order.
type Cleaner struct {
	prev map[string]string
}

func New() *Cleaner {
	return &Cleaner{}
}

// Clean normalizes one raw row. Pure apart from the forward-fill
// memory; the input map is not mutated.
func (c *Cleaner) Clean(raw map[string]string) (models.CustomerRecord, error) {
	row := make(map[string]string, len(raw))
	for k, v := range raw {
		row[k] = strings.TrimSpace(v)
	}

	for _, col := range forwardFillCols {
		if row[col] == "" && c.prev != nil {
			row[col] = c.prev[col]
		}
	}

	monthly, err := strconv.ParseFloat(row[ColMonthlyCharges], 64)
	if err != nil {
		return models.CustomerRecord{}, fmt.Errorf("invalid MonthlyCharges %q: %w", raw[ColMonthlyCharges], err)
	}

	// Blank or unparsable cumulative charge defaults to the per-period
	// charge, which handles zero-tenure customers.
	total, err := strconv.ParseFloat(row[ColTotalCharges], 64)
	if err != nil {
		total = monthly
	}

	tenure, err := strconv.Atoi(row[ColTenure])
	if err != nil {
		return models.CustomerRecord{}, fmt.Errorf("invalid tenure %q: %w", raw[ColTenure], err)
	}
	if tenure < 0 {
		return models.CustomerRecord{}, fmt.Errorf("negative tenure %d", tenure)
	}
	if monthly < 0 || total < 0 {
		return models.CustomerRecord{}, fmt.Errorf("negative charges (monthly=%v, total=%v)", monthly, total)
	}

	rec := models.CustomerRecord{
		CustomerID:       row[ColCustomerID],
		Gender:           row[ColGender],
		SeniorCitizen:    normalizeSeniorCitizen(row[ColSeniorCitizen]),
		Partner:          row[ColPartner],
		Dependents:       row[ColDependents],
		Tenure:           tenure,
		PhoneService:     row[ColPhoneService],
		MultipleLines:    row[ColMultipleLines],
		InternetService:  row[ColInternetService],
		OnlineSecurity:   row[ColOnlineSecurity],
		OnlineBackup:     row[ColOnlineBackup],
		DeviceProtection: row[ColDeviceProtection],
		TechSupport:      row[ColTechSupport],
		StreamingTV:      row[ColStreamingTV],
		StreamingMovies:  row[ColStreamingMovies],
		Contract:         row[ColContract],
		PaperlessBilling: row[ColPaperlessBilling],
		PaymentMethod:    row[ColPaymentMethod],
		MonthlyCharges:   monthly,
		TotalCharges:     total,
		Churn:            row[ColChurn],
	}

	c.prev = row
	return rec, nil
}

// normalizeSeniorCitizen relabels the 0/1 coded flag as No/Yes for
// uniform categorical encoding downstream.
func normalizeSeniorCitizen(v string) string {
	switch v {
	case "0":
		return "No"
	case "1":
		return "Yes"
	default:
		return v
	}
}
