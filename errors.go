package etuition

import (
	"errors"
	"fmt"
)

// Field validation error codes, reported against register input before the
// identity provider is touched.
const (
	ErrCodeMissingField    = "missing_field"
	ErrCodeInvalidEmail    = "invalid_email"
	ErrCodeInvalidPhone    = "invalid_phone"
	ErrCodeWeakPassword    = "weak_password"
	ErrCodeInvalidRole     = "invalid_role"
	ErrCodeInvalidPhotoURL = "invalid_photo_url"
)

// FieldError is a validation failure attributable to a single input field.
type FieldError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field"`
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Field)
}

// NewFieldError creates a field validation error.
func NewFieldError(code, message, field string) *FieldError {
	return &FieldError{Code: code, Message: message, Field: field}
}

// Registration stages, recorded on RegistrationError.
const (
	StageValidation = "validation"
	StageIdentity   = "identity_provider"
	StageBackend    = "backend_upsert"
)

// RegistrationError is a failed Register call. When Stage is StageBackend the
// identity provider account was already created and is NOT rolled back; the
// account stays orphaned until the next resolution cycle assigns it the
// fallback role.
type RegistrationError struct {
	Stage          string
	AccountCreated bool
	Cause          error
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("registration failed at %s: %v", e.Stage, e.Cause)
}

func (e *RegistrationError) Unwrap() error { return e.Cause }

// AsRegistrationError unwraps err into a RegistrationError, or nil.
func AsRegistrationError(err error) *RegistrationError {
	var re *RegistrationError
	if errors.As(err, &re) {
		return re
	}
	return nil
}
