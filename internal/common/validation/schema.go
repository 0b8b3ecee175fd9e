// Package validation validates inference request payloads against a
// JSON schema before they reach the pipeline.
package validation

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const predictionRequestSchema = `{
  "type": "object",
  "required": ["gender", "tenure", "internet_service", "contract", "payment_method", "monthly_charges"],
  "properties": {
    "customer_id":       {"type": "string"},
    "gender":            {"type": "string", "enum": ["Male", "Female"]},
    "senior_citizen":    {"type": "integer", "minimum": 0, "maximum": 1},
    "partner":           {"type": "string", "enum": ["Yes", "No"]},
    "dependents":        {"type": "string", "enum": ["Yes", "No"]},
    "tenure":            {"type": "integer", "minimum": 0, "maximum": 72},
    "phone_service":     {"type": "string", "enum": ["Yes", "No"]},
    "multiple_lines":    {"type": "string"},
    "internet_service":  {"type": "string", "enum": ["DSL", "Fiber optic", "No"]},
    "online_security":   {"type": "string"},
    "online_backup":     {"type": "string"},
    "device_protection": {"type": "string"},
    "tech_support":      {"type": "string"},
    "streaming_tv":      {"type": "string"},
    "streaming_movies":  {"type": "string"},
    "contract":          {"type": "string", "enum": ["Month-to-month", "One year", "Two year"]},
    "paperless_billing": {"type": "string", "enum": ["Yes", "No"]},
    "payment_method":    {"type": "string"},
    "monthly_charges":   {"type": "number", "exclusiveMinimum": 0},
    "total_charges":     {"type": ["number", "null"], "minimum": 0}
  }
}`

var predictionSchema = gojsonschema.NewStringLoader(predictionRequestSchema)

// ValidatePredictionRequest checks a raw JSON payload against the
// canonical customer schema. Returns a joined message of all schema
// violations, empty when valid.
func ValidatePredictionRequest(payload []byte) error {
	result, err := gojsonschema.Validate(predictionSchema, gojsonschema.NewBytesLoader(payload))
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("invalid prediction request: %s", strings.Join(msgs, "; "))
}
