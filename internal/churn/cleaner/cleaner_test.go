package cleaner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRow() map[string]string {
	return map[string]string{
		ColCustomerID:       "7590-VHVEG",
		ColGender:           "Female",
		ColSeniorCitizen:    "0",
		ColPartner:          "Yes",
		ColDependents:       "No",
		ColTenure:           "1",
		ColPhoneService:     "No",
		ColMultipleLines:    "No phone service",
		ColInternetService:  "DSL",
		ColOnlineSecurity:   "No",
		ColOnlineBackup:     "Yes",
		ColDeviceProtection: "No",
		ColTechSupport:      "No",
		ColStreamingTV:      "No",
		ColStreamingMovies:  "No",
		ColContract:         "Month-to-month",
		ColPaperlessBilling: "Yes",
		ColPaymentMethod:    "Electronic check",
		ColMonthlyCharges:   "29.85",
		ColTotalCharges:     "29.85",
		ColChurn:            "No",
	}
}

func TestClean_ValidRow(t *testing.T) {
	rec, err := New().Clean(validRow())
	require.NoError(t, err)

	assert.Equal(t, "7590-VHVEG", rec.CustomerID)
	assert.Equal(t, 1, rec.Tenure)
	assert.Equal(t, 29.85, rec.MonthlyCharges)
	assert.Equal(t, 29.85, rec.TotalCharges)
	assert.Equal(t, "No", rec.SeniorCitizen)
	assert.Equal(t, "No", rec.Churn)
}

func TestClean_TrimsWhitespace(t *testing.T) {
	row := validRow()
	row[ColContract] = "  Month-to-month  "
	row[ColMonthlyCharges] = " 29.85 "

	rec, err := New().Clean(row)
	require.NoError(t, err)
	assert.Equal(t, "Month-to-month", rec.Contract)
	assert.Equal(t, 29.85, rec.MonthlyCharges)
}

func TestClean_BlankTotalChargesDefaultsToMonthly(t *testing.T) {
	row := validRow()
	row[ColTotalCharges] = " "
	row[ColTenure] = "0"

	rec, err := New().Clean(row)
	require.NoError(t, err)
	assert.Equal(t, rec.MonthlyCharges, rec.TotalCharges)
}

func TestClean_UnparsableTotalChargesDefaultsToMonthly(t *testing.T) {
	row := validRow()
	row[ColTotalCharges] = "n/a"

	rec, err := New().Clean(row)
	require.NoError(t, err)
	assert.Equal(t, 29.85, rec.TotalCharges)
}

func TestClean_SeniorCitizenRelabeled(t *testing.T) {
	row := validRow()
	row[ColSeniorCitizen] = "1"

	rec, err := New().Clean(row)
	require.NoError(t, err)
	assert.Equal(t, "Yes", rec.SeniorCitizen)
}

func TestClean_ForwardFillFromPreviousRow(t *testing.T) {
	c := New()
	_, err := c.Clean(validRow())
	require.NoError(t, err)

	row := validRow()
	row[ColCustomerID] = "next"
	row[ColContract] = ""
	row[ColGender] = ""

	rec, err := c.Clean(row)
	require.NoError(t, err)
	assert.Equal(t, "Month-to-month", rec.Contract)
	assert.Equal(t, "Female", rec.Gender)
	// Identifier is never forward-filled.
	assert.Equal(t, "next", rec.CustomerID)
}

func TestClean_NoForwardFillOnFirstRow(t *testing.T) {
	row := validRow()
	row[ColContract] = ""

	rec, err := New().Clean(row)
	require.NoError(t, err)
	assert.Empty(t, rec.Contract)
}

func TestClean_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(map[string]string)
	}{
		{"bad monthly charges", func(r map[string]string) { r[ColMonthlyCharges] = "abc" }},
		{"bad tenure", func(r map[string]string) { r[ColTenure] = "twelve" }},
		{"negative tenure", func(r map[string]string) { r[ColTenure] = "-3" }},
		{"negative monthly charges", func(r map[string]string) { r[ColMonthlyCharges] = "-10" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := validRow()
			tt.mutate(row)
			_, err := New().Clean(row)
			assert.Error(t, err)
		})
	}
}

func TestClean_DoesNotMutateInput(t *testing.T) {
	row := validRow()
	row[ColContract] = "  One year "

	_, err := New().Clean(row)
	require.NoError(t, err)
	assert.Equal(t, "  One year ", row[ColContract])
}
