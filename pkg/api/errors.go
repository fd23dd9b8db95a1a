package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Error is a non-2xx response from the learning API.
type Error struct {
	Op        string // Operation name, e.g. "course_detail"
	Status    int
	Message   string // Server "message" field, or the operation fallback
	RequestID string
}

func (e *Error) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("%s (HTTP %d, request %s)", e.Message, e.Status, e.RequestID)
	}
	return fmt.Sprintf("%s (HTTP %d)", e.Message, e.Status)
}

// IsUnauthorized reports whether err is a 401 or 403 from the API, meaning
// the session must be discarded.
func IsUnauthorized(err error) bool {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// ValidationError lists the problems found in a request before it was sent.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Problems, "; ")
}

// IsValidation reports whether err was raised by request validation.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func newValidationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validating request: %w", err)
	}
	out := &ValidationError{}
	for _, fe := range fieldErrs {
		out.Problems = append(out.Problems, problemText(fe.Field(), fe))
	}
	return out
}

// ValidateEmail applies the same rule Login and RegisterStudent enforce on
// their email field, so forms can reject an address before submitting it.
func ValidateEmail(s string) error {
	return validateValue("email", s, "required,email")
}

// ValidatePassword applies the registration password rule.
func ValidatePassword(s string) error {
	return validateValue("password", s, "required,min=6")
}

func validateValue(field, value, tag string) error {
	err := requestValidator.Var(value, tag)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validating %s: %w", field, err)
	}
	out := &ValidationError{}
	for _, fe := range fieldErrs {
		out.Problems = append(out.Problems, problemText(field, fe))
	}
	return out
}

func problemText(field string, fe validator.FieldError) string {
	switch {
	case field == "thumbnail" && fe.Tag() == "required":
		return "Please upload a thumbnail image"
	case field == "video" && fe.Tag() == "required":
		return "Please upload a video"
	}
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email address"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "datetime":
		return field + " must be a date (YYYY-MM-DD)"
	case "file":
		return fmt.Sprintf("%s: file %q not found", field, fe.Value())
	}
	return fmt.Sprintf("%s failed %s", field, fe.Tag())
}
