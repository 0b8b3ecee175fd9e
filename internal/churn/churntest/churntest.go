// Package churntest generates deterministic synthetic customer
// corpora for tests. The churn label follows the usual telco risk
// drivers (contract type, tenure, payment method, charges) closely
// enough for every model family to learn it.
package churntest

import (
	"encoding/csv"
	"fmt"
	"math/rand"
	"os"
	"strconv"
)

var header = []string{
	"customerID", "gender", "SeniorCitizen", "Partner", "Dependents",
	"tenure", "PhoneService", "MultipleLines", "InternetService",
	"OnlineSecurity", "OnlineBackup", "DeviceProtection", "TechSupport",
	"StreamingTV", "StreamingMovies", "Contract", "PaperlessBilling",
	"PaymentMethod", "MonthlyCharges", "TotalCharges", "Churn",
}

// Corpus returns n raw labeled rows, keyed by CSV header name.
func Corpus(n int, seed int64) []map[string]string {
	rng := rand.New(rand.NewSource(seed))

	contracts := []string{"Month-to-month", "One year", "Two year"}
	payments := []string{"Electronic check", "Mailed check", "Bank transfer (automatic)", "Credit card (automatic)"}
	internet := []string{"DSL", "Fiber optic", "No"}
	yesNo := []string{"Yes", "No"}

	rows := make([]map[string]string, n)
	for i := 0; i < n; i++ {
		contract := contracts[rng.Intn(len(contracts))]
		payment := payments[rng.Intn(len(payments))]
		tenure := rng.Intn(72)
		monthly := 20 + rng.Float64()*100

		risk := 0.1
		if contract == "Month-to-month" {
			risk += 0.35
		}
		if payment == "Electronic check" {
			risk += 0.2
		}
		if tenure < 12 {
			risk += 0.2
		}
		if monthly > 80 {
			risk += 0.1
		}
		churn := "No"
		if rng.Float64() < risk {
			churn = "Yes"
		}

		rows[i] = map[string]string{
			"customerID":       fmt.Sprintf("C%04d", i),
			"gender":           []string{"Male", "Female"}[rng.Intn(2)],
			"SeniorCitizen":    strconv.Itoa(rng.Intn(2)),
			"Partner":          yesNo[rng.Intn(2)],
			"Dependents":       yesNo[rng.Intn(2)],
			"tenure":           strconv.Itoa(tenure),
			"PhoneService":     "Yes",
			"MultipleLines":    yesNo[rng.Intn(2)],
			"InternetService":  internet[rng.Intn(len(internet))],
			"OnlineSecurity":   yesNo[rng.Intn(2)],
			"OnlineBackup":     yesNo[rng.Intn(2)],
			"DeviceProtection": yesNo[rng.Intn(2)],
			"TechSupport":      yesNo[rng.Intn(2)],
			"StreamingTV":      yesNo[rng.Intn(2)],
			"StreamingMovies":  yesNo[rng.Intn(2)],
			"Contract":         contract,
			"PaperlessBilling": yesNo[rng.Intn(2)],
			"PaymentMethod":    payment,
			"MonthlyCharges":   strconv.FormatFloat(monthly, 'f', 2, 64),
			"TotalCharges":     strconv.FormatFloat(monthly*float64(tenure), 'f', 2, 64),
			"Churn":            churn,
		}
	}
	return rows
}

// WriteCSV writes rows to path in the canonical column order.
func WriteCSV(path string, rows []map[string]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	for _, row := range rows {
		record := make([]string, len(header))
		for i, col := range header {
			record[i] = row[col]
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
