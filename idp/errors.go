package idp

import (
	"errors"
	"fmt"
)

// Error codes surfaced by identity provider implementations.
const (
	ErrCodeInvalidCredential = "invalid_credential"
	ErrCodeEmailExists       = "email_exists"
	ErrCodePopupClosed       = "popup_closed"
	ErrCodeRateLimited       = "rate_limited"
	ErrCodeNetwork           = "network_error"
	ErrCodeTokenRevoked      = "token_revoked"
)

// Error is a typed identity provider failure. It is propagated verbatim to
// callers of Login/Register/LoginWithProvider; presentation is the UI's job.
type Error struct {
	Code    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("idp: %s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("idp: %s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// NewError creates a typed identity provider error.
func NewError(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WrapError creates a typed identity provider error wrapping a cause.
func WrapError(code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// CodeOf returns the provider error code, or "" if err is not an idp.Error.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
