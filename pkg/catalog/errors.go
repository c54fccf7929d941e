package catalog

import (
	"errors"
	"fmt"
	"net/http"
)

// Validation error codes.
const (
	CodeInvalidValue      = "INVALID_VALUE"
	CodeUnknownReference  = "UNKNOWN_REFERENCE"
	CodeDuplicate         = "DUPLICATE"
	CodeSelfReference     = "SELF_REFERENCE"
	CodeInvalidDefinition = "INVALID_DEFINITION"
)

// ValidationError reports malformed user input: a bad attribute value, a
// reference to a row that does not exist, or an invalid definition. It is
// always recoverable and maps to a 4xx response.
type ValidationError struct {
	Code     string `json:"code"`
	Field    string `json:"field"`
	Expected string `json:"expected,omitempty"`
	Message  string `json:"message"`
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalidValue(attr *Attribute, expected, format string, args ...any) *ValidationError {
	return &ValidationError{
		Code:     CodeInvalidValue,
		Field:    attr.Name,
		Expected: expected,
		Message:  fmt.Sprintf(format, args...),
	}
}

// UnknownReference builds a ValidationError for an id the caller supplied
// that does not resolve to a stored row.
func UnknownReference(entity string, id any) *ValidationError {
	return &ValidationError{
		Code:    CodeUnknownReference,
		Field:   entity,
		Message: fmt.Sprintf("%s %v does not exist", entity, id),
	}
}

// IntegrityError reports stored data that references rows which no longer
// exist (for example a rule pointing at a deleted component type). It is an
// unexpected condition and must be surfaced as a system error.
type IntegrityError struct {
	Entity  string
	ID      any
	Message string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity violation: %s %v: %s", e.Entity, e.ID, e.Message)
}

// StatusCode maps an error returned by the stores to an HTTP status:
// 409 for duplicates, 400 for other validation errors, 500 otherwise.
func StatusCode(err error) int {
	var verr *ValidationError
	if errors.As(err, &verr) {
		if verr.Code == CodeDuplicate {
			return http.StatusConflict
		}
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
