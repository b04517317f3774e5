package errors

import (
	"fmt"
	"strings"
)

// Error codes returned to API clients.
const (
	CodeValidation    = "VALIDATION_ERROR"
	CodeLimitExceeded = "LIMIT_EXCEEDED"
	CodeInternal      = "INTERNAL_ERROR"
	CodeNotFound      = "NOT_FOUND"
	CodeConflict      = "CONFLICT"
	CodeUnauthorized  = "UNAUTHORIZED"
	CodeExternalWrite = "EXTERNAL_WRITE_ERROR"
	CodeMethod        = "METHOD_NOT_ALLOWED"
)

// ErrNotFound is returned when a resource is not found
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrUnauthorized is returned when authentication fails
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unauthorized"
}

// ErrConflict is returned when a write would break a uniqueness rule
type ErrConflict struct {
	Message string
}

func (e *ErrConflict) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "conflict"
}

// InvalidEntry points at one rejected element of a list input.
type InvalidEntry struct {
	Index  int    `json:"index"`
	Value  string `json:"value"`
	Reason string `json:"reason"`
}

// ErrValidation is returned when validation fails
type ErrValidation struct {
	Message string
	Fields  map[string]string
	Invalid []InvalidEntry
}

func (e *ErrValidation) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "validation failed"
}

// ErrLimitExceeded is returned when an input is larger than allowed
type ErrLimitExceeded struct {
	What  string
	Limit int
	Got   int
}

func (e *ErrLimitExceeded) Error() string {
	return fmt.Sprintf("%s limit exceeded: %d requested, maximum is %d", e.What, e.Got, e.Limit)
}

// ErrSlotsExhausted is returned when every line item property slot is bound
type ErrSlotsExhausted struct {
	Shop  string
	Limit int
}

func (e *ErrSlotsExhausted) Error() string {
	return fmt.Sprintf("shop %s already has %d merge groups", e.Shop, e.Limit)
}

// UserError is a Shopify GraphQL userErrors entry.
type UserError struct {
	Field   []string `json:"field"`
	Message string   `json:"message"`
	Code    string   `json:"code,omitempty"`
}

// ErrExternalWrite is returned when a Shopify mutation fails, either at the
// transport level (Err) or with userErrors.
type ErrExternalWrite struct {
	Operation  string
	UserErrors []UserError
	Err        error
}

func (e *ErrExternalWrite) Error() string {
	if len(e.UserErrors) > 0 {
		msgs := make([]string, len(e.UserErrors))
		for i, ue := range e.UserErrors {
			if len(ue.Field) > 0 {
				msgs[i] = strings.Join(ue.Field, ".") + ": " + ue.Message
			} else {
				msgs[i] = ue.Message
			}
		}
		return fmt.Sprintf("%s: %s", e.Operation, strings.Join(msgs, "; "))
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Operation, e.Err)
	}
	return e.Operation + " failed"
}

func (e *ErrExternalWrite) Unwrap() error {
	return e.Err
}
