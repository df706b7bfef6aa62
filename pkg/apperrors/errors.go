package apperrors

import (
	"errors"
	"fmt"
)

// Error codes
const (
	CodeValidationFailed       = "VALIDATION_FAILED"
	CodeNotFound               = "NOT_FOUND"
	CodeAccessDenied           = "ACCESS_DENIED"
	CodeBusinessRuleViolation  = "BUSINESS_RULE_VIOLATION"
	CodeReconciliationConflict = "RECONCILIATION_CONFLICT"
	CodeGatewayError           = "GATEWAY_ERROR"
	CodeStorageError           = "STORAGE_ERROR"
)

// FieldError carries field-level validation detail.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is a coded application error. The code decides how transports map it
// (HTTP status, webhook ack vs retry); Message is safe to show callers.
type Error struct {
	Code    string
	Message string
	Fields  []FieldError
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// CodeOf returns the application error code, or CodeStorageError for
// anything that was not classified on the way up.
func CodeOf(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeStorageError
}

// AsAppError unwraps err to *Error when possible.
func AsAppError(err error) (*Error, bool) {
	var ae *Error
	ok := errors.As(err, &ae)
	return ae, ok
}

func Validation(message string, fields ...FieldError) *Error {
	return &Error{Code: CodeValidationFailed, Message: message, Fields: fields}
}

func ValidationField(field, message string) *Error {
	return &Error{
		Code:    CodeValidationFailed,
		Message: "validation failed",
		Fields:  []FieldError{{Field: field, Message: message}},
	}
}

func NotFound(what, ref string) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf("%s %s not found", what, ref)}
}

func AccessDenied(message string) *Error {
	return &Error{Code: CodeAccessDenied, Message: message}
}

func BusinessRule(message string) *Error {
	return &Error{Code: CodeBusinessRuleViolation, Message: message}
}

func ReconciliationConflict(orderID string, err error) *Error {
	return &Error{
		Code:    CodeReconciliationConflict,
		Message: fmt.Sprintf("ledger post failed for order %s, flagged for manual review", orderID),
		Err:     err,
	}
}

func Gateway(message string, err error) *Error {
	return &Error{Code: CodeGatewayError, Message: message, Err: err}
}

func Storage(err error) *Error {
	return &Error{Code: CodeStorageError, Message: "storage operation failed", Err: err}
}
