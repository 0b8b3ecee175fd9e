package models

import (
	"strconv"
)

// CustomerRecord is the canonical customer schema produced by the
// cleaner. Categorical fields hold normalized labels, charges are
// numeric, and Churn is empty when the label is absent (inference).
type CustomerRecord struct {
	CustomerID       string  `json:"customer_id"`
	Gender           string  `json:"gender"`
	SeniorCitizen    string  `json:"senior_citizen"`
	Partner          string  `json:"partner"`
	Dependents       string  `json:"dependents"`
	Tenure           int     `json:"tenure"`
	PhoneService     string  `json:"phone_service"`
	MultipleLines    string  `json:"multiple_lines"`
	InternetService  string  `json:"internet_service"`
	OnlineSecurity   string  `json:"online_security"`
	OnlineBackup     string  `json:"online_backup"`
	DeviceProtection string  `json:"device_protection"`
	TechSupport      string  `json:"tech_support"`
	StreamingTV      string  `json:"streaming_tv"`
	StreamingMovies  string  `json:"streaming_movies"`
	Contract         string  `json:"contract"`
	PaperlessBilling string  `json:"paperless_billing"`
	PaymentMethod    string  `json:"payment_method"`
	MonthlyCharges   float64 `json:"monthly_charges"`
	TotalCharges     float64 `json:"total_charges"`
	Churn            string  `json:"churn,omitempty"`
}

// PredictionRequest is the structured inference request body.
type PredictionRequest struct {
	CustomerID       string   `json:"customer_id"`
	Gender           string   `json:"gender" binding:"required"`
	SeniorCitizen    int      `json:"senior_citizen"`
	Partner          string   `json:"partner"`
	Dependents       string   `json:"dependents"`
	Tenure           int      `json:"tenure"`
	PhoneService     string   `json:"phone_service"`
	MultipleLines    string   `json:"multiple_lines"`
	InternetService  string   `json:"internet_service" binding:"required"`
	OnlineSecurity   string   `json:"online_security"`
	OnlineBackup     string   `json:"online_backup"`
	DeviceProtection string   `json:"device_protection"`
	TechSupport      string   `json:"tech_support"`
	StreamingTV      string   `json:"streaming_tv"`
	StreamingMovies  string   `json:"streaming_movies"`
	Contract         string   `json:"contract" binding:"required"`
	PaperlessBilling string   `json:"paperless_billing"`
	PaymentMethod    string   `json:"payment_method" binding:"required"`
	MonthlyCharges   float64  `json:"monthly_charges" binding:"required"`
	TotalCharges     *float64 `json:"total_charges"`
}

// ToRaw converts the request into the raw column form consumed by the
// cleaner, applying request-level defaults the way intake does:
// missing TotalCharges becomes MonthlyCharges * Tenure.
func (r PredictionRequest) ToRaw() map[string]string {
	total := ""
	if r.TotalCharges != nil {
		total = strconv.FormatFloat(*r.TotalCharges, 'f', -1, 64)
	} else if r.Tenure > 0 {
		total = strconv.FormatFloat(r.MonthlyCharges*float64(r.Tenure), 'f', -1, 64)
	}

	return map[string]string{
		"customerID":       r.CustomerID,
		"gender":           r.Gender,
		"SeniorCitizen":    strconv.Itoa(r.SeniorCitizen),
		"Partner":          orDefault(r.Partner, "No"),
		"Dependents":       orDefault(r.Dependents, "No"),
		"tenure":           strconv.Itoa(r.Tenure),
		"PhoneService":     orDefault(r.PhoneService, "Yes"),
		"MultipleLines":    orDefault(r.MultipleLines, "No"),
		"InternetService":  r.InternetService,
		"OnlineSecurity":   orDefault(r.OnlineSecurity, "No"),
		"OnlineBackup":     orDefault(r.OnlineBackup, "No"),
		"DeviceProtection": orDefault(r.DeviceProtection, "No"),
		"TechSupport":      orDefault(r.TechSupport, "No"),
		"StreamingTV":      orDefault(r.StreamingTV, "No"),
		"StreamingMovies":  orDefault(r.StreamingMovies, "No"),
		"Contract":         r.Contract,
		"PaperlessBilling": orDefault(r.PaperlessBilling, "Yes"),
		"PaymentMethod":    r.PaymentMethod,
		"MonthlyCharges":   strconv.FormatFloat(r.MonthlyCharges, 'f', -1, 64),
		"TotalCharges":     total,
	}
}

// Merge applies a partial override map onto the raw form of the
// request, used by what-if analysis.
func (r PredictionRequest) Merge(changes map[string]string) map[string]string {
	raw := r.ToRaw()
	for k, v := range changes {
		raw[k] = v
	}
	return raw
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
