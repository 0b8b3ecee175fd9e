// Package errors provides standardized error handling for the churn
// prediction pipeline.
package errors

import (
	"fmt"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Serving errors
	ErrCodeModelNotLoaded     ErrorCode = "MODEL_NOT_LOADED"
	ErrCodeModelUnavailable   ErrorCode = "MODEL_UNAVAILABLE"
	ErrCodeFeatureMismatch    ErrorCode = "FEATURE_MISMATCH"
	ErrCodeRowParseFailed     ErrorCode = "ROW_PARSE_FAILED"
	ErrCodeValidationFailed   ErrorCode = "VALIDATION_FAILED"
	ErrCodeExplainUnavailable ErrorCode = "EXPLAIN_UNAVAILABLE"
	ErrCodePredictionNotFound ErrorCode = "PREDICTION_NOT_FOUND"

	// Training errors
	ErrCodeCorpusLoadFailed ErrorCode = "CORPUS_LOAD_FAILED"
	ErrCodeTrainingFailed   ErrorCode = "TRAINING_FAILED"
	ErrCodeJobNotFound      ErrorCode = "JOB_NOT_FOUND"
	ErrCodeJobQueueFull     ErrorCode = "JOB_QUEUE_FULL"
	ErrCodeJobCanceled      ErrorCode = "JOB_CANCELED"
	ErrCodeArtifactIO       ErrorCode = "ARTIFACT_IO_FAILED"

	// Infrastructure errors
	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeCacheFailed              ErrorCode = "CACHE_FAILED"
	ErrCodeNotificationSendFailed   ErrorCode = "NOTIFICATION_SEND_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Is allows errors.Is matching on the error code.
func (e *StandardError) Is(target error) bool {
	t, ok := target.(*StandardError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewModelNotLoadedError signals inference was requested before a model
// was attached. Distinct from a transient backend failure on purpose.
func NewModelNotLoadedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeModelNotLoaded,
		Message:   "No trained model is loaded",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewModelUnavailableError signals the serving triple could not be
// initialized because no trained artifacts exist yet.
func NewModelUnavailableError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeModelUnavailable,
		Message:   "Models not available, train first",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewFeatureMismatchError signals an inference feature vector that does
// not match the frozen training-time feature set.
func NewFeatureMismatchError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeFeatureMismatch,
		Message:   "Feature vector does not match trained feature set",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewRowParseError wraps a malformed row in batch input with its
// ordinal position.
func NewRowParseError(row int, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeRowParseFailed,
		Message:   fmt.Sprintf("Failed to parse batch row %d", row),
		Details:   err.Error(),
		Retryable: false,
		Metadata:  map[string]interface{}{"row": row},
		Timestamp: time.Now().UTC(),
	}
}

// NewPredictionNotFoundError signals no stored prediction exists for
// the requested customer.
func NewPredictionNotFoundError(customerID string) *StandardError {
	return &StandardError{
		Code:      ErrCodePredictionNotFound,
		Message:   "No prediction found for customer",
		Details:   fmt.Sprintf("customerId: %s", customerID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewValidationError creates a non-retryable request validation error.
func NewValidationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidationFailed,
		Message:   "Request validation failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewExplainUnavailableError signals attribution could not be computed
// for an otherwise successful prediction.
func NewExplainUnavailableError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeExplainUnavailable,
		Message:   "Explanation unavailable for this prediction",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewTrainingError wraps a failure inside a training stage.
func NewTrainingError(stage string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeTrainingFailed,
		Message:   fmt.Sprintf("Training failed during stage %q", stage),
		Details:   err.Error(),
		Retryable: false,
		Metadata:  map[string]interface{}{"stage": stage},
		Timestamp: time.Now().UTC(),
	}
}

// NewJobCanceledError marks a job aborted by caller request.
func NewJobCanceledError(jobID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeJobCanceled,
		Message:   "Training job canceled",
		Details:   fmt.Sprintf("jobId: %s", jobID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewCorpusLoadError creates a fatal training-corpus load error.
func NewCorpusLoadError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCorpusLoadFailed,
		Message:   "Failed to load training corpus",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewJobNotFoundError creates a non-retryable job lookup error.
func NewJobNotFoundError(jobID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeJobNotFound,
		Message:   "Training job not found",
		Details:   fmt.Sprintf("jobId: %s", jobID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewJobQueueFullError signals the bounded training queue rejected a
// submission.
func NewJobQueueFullError() *StandardError {
	return &StandardError{
		Code:      ErrCodeJobQueueFull,
		Message:   "Training queue is full",
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewArtifactIOError wraps a model artifact read/write failure.
func NewArtifactIOError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeArtifactIO,
		Message:   "Model artifact I/O failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueryError wraps a database query failure as retryable.
func NewQueryError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryExecutionFailed,
		Message:   "Database query failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// CodeOf extracts the error code from an error, or UNKNOWN.
func CodeOf(err error) ErrorCode {
	if se, ok := err.(*StandardError); ok {
		return se.Code
	}
	return "UNKNOWN"
}
