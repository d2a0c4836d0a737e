package etuition

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// RegisterRequest is the input to SessionStore.Register.
type RegisterRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Role     Role   `json:"role" validate:"required,oneof=student tutor"`
	Phone    string `json:"phone" validate:"omitempty,min=10,max=20"`
	PhotoURL string `json:"photoURL" validate:"omitempty,url"`
}

// Validate checks the request and returns a *FieldError on the first failing
// field. Admin accounts are provisioned out of band, so "admin" is not a
// registrable role.
func (r RegisterRequest) Validate() error {
	err := validate.Struct(r)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}

	fe := verrs[0]
	switch fe.Field() {
	case "Name":
		if fe.Tag() == "required" {
			return NewFieldError(ErrCodeMissingField, "Name is required", "name")
		}
		return NewFieldError(ErrCodeMissingField, "Name must be 2-100 characters", "name")
	case "Email":
		if fe.Tag() == "required" {
			return NewFieldError(ErrCodeMissingField, "Email is required", "email")
		}
		return NewFieldError(ErrCodeInvalidEmail, "Invalid email format", "email")
	case "Password":
		if fe.Tag() == "required" {
			return NewFieldError(ErrCodeMissingField, "Password is required", "password")
		}
		return NewFieldError(ErrCodeWeakPassword, "Password must be at least 8 characters", "password")
	case "Role":
		if fe.Tag() == "required" {
			return NewFieldError(ErrCodeMissingField, "Role is required", "role")
		}
		return NewFieldError(ErrCodeInvalidRole, "Role must be student or tutor", "role")
	case "Phone":
		return NewFieldError(ErrCodeInvalidPhone, "Invalid phone number", "phone")
	case "PhotoURL":
		return NewFieldError(ErrCodeInvalidPhotoURL, "Photo URL must be a valid URL", "photoURL")
	}
	return err
}
