package validator

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks a struct against its `validate` tags and converts any
// failures into a *ValidationError with per-field messages.
func Validate(s any) error {
	if err := validate.Struct(s); err != nil {
		if fieldErrs, ok := err.(validator.ValidationErrors); ok {
			return &ValidationError{Errors: fieldErrs}
		}
		return err
	}
	return nil
}

// ValidationError carries the individual field failures of one request.
type ValidationError struct {
	Errors validator.ValidationErrors
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		msgs = append(msgs, fmt.Sprintf("field '%s' %s", fe.Field(), msgForTag(fe)))
	}
	return strings.Join(msgs, "; ")
}

// Fields maps each failed field to a human-readable message, for the
// error-response details object.
func (e *ValidationError) Fields() map[string]string {
	fields := make(map[string]string, len(e.Errors))
	for _, fe := range e.Errors {
		fields[fe.Field()] = msgForTag(fe)
	}
	return fields
}

func msgForTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", fe.Param())
	case "uuid":
		return "must be a valid UUID"
	case "url":
		return "must be a valid URL"
	default:
		return fmt.Sprintf("failed on '%s' validation", fe.Tag())
	}
}
