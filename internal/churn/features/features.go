// Package features derives secondary predictors from canonical
// customer records: charge ratios, service counts, contract flags,
// tenure buckets and interactions. The derived column set only ever
// grows; original fields are never dropped.
package features

import (
	"strings"

	"churn-predictor/internal/models"
)

// Row is one engineered example: the canonical record plus its derived
// numeric columns.
type Row struct {
	Record  models.CustomerRecord
	Derived map[string]float64
}

// Derived column names. Tenure buckets match the fixed bins
// (0-12], (12-24], (24-48], (48-72] months.
const (
	AvgMonthlyCharges        = "avg_monthly_charges"
	ChargeIncrease           = "charge_increase"
	ChargePerTenure          = "charge_per_tenure"
	TotalServices            = "total_services"
	HasInternet              = "has_internet"
	HasSecurity              = "has_security"
	IsMonthToMonth           = "is_month_to_month"
	HasLongContract          = "has_long_contract"
	IsAutoPayment            = "is_auto_payment"
	IsElectronicCheck        = "is_electronic_check"
	TenureBucket0To1         = "tenure_0-1 year"
	TenureBucket1To2         = "tenure_1-2 years"
	TenureBucket2To4         = "tenure_2-4 years"
	TenureBucket4Plus        = "tenure_4+ years"
	TenureChargesInteraction = "tenure_charges_interaction"
	RiskyCustomer            = "risky_customer"
)

// derivedOrder fixes the derived column order so the downstream
// feature vector is reproducible across runs.
var derivedOrder = []string{
	AvgMonthlyCharges, ChargeIncrease, ChargePerTenure,
	TotalServices, HasInternet, HasSecurity,
	IsMonthToMonth, HasLongContract, IsAutoPayment, IsElectronicCheck,
	TenureBucket0To1, TenureBucket1To2, TenureBucket2To4, TenureBucket4Plus,
	TenureChargesInteraction, RiskyCustomer,
}

// DerivedOrder returns the fixed derived column order.
func DerivedOrder() []string {
	out := make([]string, len(derivedOrder))
	copy(out, derivedOrder)
	return out
}

// serviceCols are the subscription flags counted into total_services.
var serviceCols = func(r models.CustomerRecord) []string {
	return []string{
		r.PhoneService, r.MultipleLines, r.OnlineSecurity,
		r.OnlineBackup, r.DeviceProtection, r.TechSupport,
		r.StreamingTV, r.StreamingMovies,
	}
}

// Engineer applies all feature engineering steps to one record. Pure;
// steps are independent apart from the interaction features, which
// read flags derived earlier in the same call.
func Engineer(rec models.CustomerRecord) Row {
	d := make(map[string]float64, len(derivedOrder))
	tenure := float64(rec.Tenure)

	// Charge features
	d[AvgMonthlyCharges] = rec.TotalCharges / (tenure + 1)
	d[ChargeIncrease] = boolToFloat(rec.MonthlyCharges > d[AvgMonthlyCharges])
	d[ChargePerTenure] = rec.MonthlyCharges / (tenure + 1)

	// Service features
	count := 0.0
	for _, v := range serviceCols(rec) {
		if v == "Yes" {
			count++
		}
	}
	d[TotalServices] = count
	d[HasInternet] = boolToFloat(rec.InternetService != "No")
	d[HasSecurity] = boolToFloat(
		rec.OnlineSecurity == "Yes" || rec.OnlineBackup == "Yes" ||
			rec.DeviceProtection == "Yes" || rec.TechSupport == "Yes")

	// Contract features
	d[IsMonthToMonth] = boolToFloat(rec.Contract == "Month-to-month")
	d[HasLongContract] = boolToFloat(rec.Contract == "One year" || rec.Contract == "Two year")
	d[IsAutoPayment] = boolToFloat(strings.Contains(strings.ToLower(rec.PaymentMethod), "automatic"))
	d[IsElectronicCheck] = boolToFloat(rec.PaymentMethod == "Electronic check")

	// Tenure buckets; tenure 0 or beyond the last bin falls in no bucket.
	d[TenureBucket0To1] = boolToFloat(rec.Tenure > 0 && rec.Tenure <= 12)
	d[TenureBucket1To2] = boolToFloat(rec.Tenure > 12 && rec.Tenure <= 24)
	d[TenureBucket2To4] = boolToFloat(rec.Tenure > 24 && rec.Tenure <= 48)
	d[TenureBucket4Plus] = boolToFloat(rec.Tenure > 48 && rec.Tenure <= 72)

	// Interaction features
	d[TenureChargesInteraction] = tenure * rec.MonthlyCharges
	d[RiskyCustomer] = boolToFloat(d[IsMonthToMonth] == 1 && d[IsElectronicCheck] == 1)

	return Row{Record: rec, Derived: d}
}

// EngineerAll engineers every record, preserving order.
func EngineerAll(recs []models.CustomerRecord) []Row {
	rows := make([]Row, len(recs))
	for i, rec := range recs {
		rows[i] = Engineer(rec)
	}
	return rows
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
