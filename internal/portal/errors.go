package portal

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Outcome classifies the result of one external step.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeSkipped
	// OutcomeRecoverable is logged and swallowed; the workflow continues.
	OutcomeRecoverable
	// OutcomeFatal aborts the workflow.
	OutcomeFatal
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeRecoverable:
		return "recoverable"
	case OutcomeFatal:
		return "fatal"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Step names used in StepResult.
const (
	StepContact   = "contact"
	StepProvision = "provision"
	StepActivate  = "activate"
)

// StepResult is the outcome of one workflow step.
type StepResult struct {
	Step   string
	Kind   Outcome
	Detail string // e.g. "created", "refreshed"
	Err    error
}

// ValidationError reports missing or malformed request fields.
type ValidationError struct {
	Missing []string
	Reason  string
}

func (e *ValidationError) Error() string {
	if len(e.Missing) > 0 {
		return "Missing required fields: " + strings.Join(e.Missing, ", ")
	}
	return e.Reason
}

// UnsupportedMediaTypeError is returned for request encodings the normalizer does not read.
type UnsupportedMediaTypeError struct {
	ContentType string
}

func (e *UnsupportedMediaTypeError) Error() string {
	if e.ContentType == "" {
		return "Unsupported media type: missing content type"
	}
	return "Unsupported media type: " + e.ContentType
}

// ProvisioningError is a fatal failure to create or refresh the hotspot user.
type ProvisioningError struct {
	Status int
	Err    error
}

func (e *ProvisioningError) Error() string {
	return "Failed to provision hotspot user: " + e.Err.Error()
}

func (e *ProvisioningError) Unwrap() error {
	return e.Err
}

// StatusCode maps a workflow error to its HTTP status.
func StatusCode(err error) int {
	var (
		validationErr *ValidationError
		mediaErr      *UnsupportedMediaTypeError
		provisionErr  *ProvisioningError
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &validationErr), errors.As(err, &mediaErr):
		return http.StatusBadRequest
	case errors.As(err, &provisionErr):
		if provisionErr.Status != 0 {
			return provisionErr.Status
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
