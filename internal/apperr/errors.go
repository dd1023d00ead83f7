// Package apperr holds the typed errors every core operation returns.
package apperr

import (
	"errors"
	"fmt"
)

// Code classifies an error for the transport layer.
type Code string

const (
	CodeNotFound           Code = "NOT_FOUND"
	CodeInvalidInput       Code = "INVALID_INPUT"
	CodePreconditionFailed Code = "PRECONDITION_FAILED"
	CodeForbidden          Code = "FORBIDDEN"
	CodeUnauthorized       Code = "UNAUTHORIZED"
	CodeInternal           Code = "INTERNAL"
)

// AppError is a client visible failure. Reason names the specific rule that
// failed (e.g. "already_started") and is what errors.Is compares on.
type AppError struct {
	Code    Code           `json:"code"`
	Reason  string         `json:"reason,omitempty"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	Cause   error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches on Code and Reason so sentinels work with errors.Is even after
// details were attached to a copy.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Reason == t.Reason
}

// WithDetail returns a copy carrying an extra detail.
func (e *AppError) WithDetail(key string, value any) *AppError {
	cp := *e
	cp.Details = make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		cp.Details[k] = v
	}
	cp.Details[key] = value
	return &cp
}

func newReason(code Code, reason, message string) *AppError {
	return &AppError{Code: code, Reason: reason, Message: message}
}

// Internal wraps a storage or infrastructure failure. The message is what
// clients see; the cause is only logged.
func Internal(operation string, err error) *AppError {
	return &AppError{Code: CodeInternal, Message: "internal error", Cause: err, Details: map[string]any{"operation": operation}}
}

// NotFound builds a not-found error for a resource.
func NotFound(resource string) *AppError {
	return newReason(CodeNotFound, resource+"_not_found", resource+" not found")
}

// InvalidInput builds a validation error for a field.
func InvalidInput(field, reason string) *AppError {
	return &AppError{
		Code:    CodeInvalidInput,
		Reason:  "invalid_" + field,
		Message: reason,
		Details: map[string]any{"field": field},
	}
}

// Sentinels for the rules the core enforces.
var (
	ErrTaskNotFound       = NotFound("task")
	ErrUserNotFound       = NotFound("user")
	ErrAttemptNotFound    = NotFound("attempt")
	ErrWithdrawalNotFound = NotFound("withdrawal")

	ErrAlreadyStarted     = newReason(CodePreconditionFailed, "already_started", "Already started")
	ErrNotStarted         = newReason(CodePreconditionFailed, "not_started", "Must start first")
	ErrAlreadyAttempted   = newReason(CodePreconditionFailed, "already_attempted", "Already attempted")
	ErrBelowMinimum       = newReason(CodePreconditionFailed, "below_minimum", "Minimum balance required to withdraw")
	ErrTooNew             = newReason(CodePreconditionFailed, "too_new", "Account is too new to withdraw")
	ErrInsufficientFunds  = newReason(CodePreconditionFailed, "insufficient_funds", "Insufficient balance")
	ErrInvalidPin         = newReason(CodePreconditionFailed, "invalid_pin", "Invalid PIN")
	ErrInvalidServicePin  = newReason(CodePreconditionFailed, "invalid_service_pin", "Invalid service PIN")
	ErrNoApprovedURL      = newReason(CodeNotFound, "no_approved_url", "No approved URL")
	ErrIllegalTransition  = newReason(CodePreconditionFailed, "illegal_transition", "Withdrawal is not in a state that allows this step")
	ErrIntentActive       = newReason(CodePreconditionFailed, "intent_active", "A withdrawal is already in progress")
	ErrWithdrawalLocked   = newReason(CodePreconditionFailed, "withdrawal_locked", "Another withdrawal request is being processed")
	ErrForbidden          = newReason(CodeForbidden, "forbidden", "Admin access required")
	ErrUnauthorized       = newReason(CodeUnauthorized, "unauthorized", "Unauthorized")
	ErrInvalidCredentials = newReason(CodeUnauthorized, "invalid_credentials", "Invalid credentials")
	ErrEmailTaken         = newReason(CodePreconditionFailed, "email_taken", "Email already registered")
)

// CodeOf returns the code of err, or CodeInternal for foreign errors.
func CodeOf(err error) Code {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// As is errors.As specialised to *AppError.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	ok := errors.As(err, &appErr)
	return appErr, ok
}
