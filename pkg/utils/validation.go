package utils

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"sitemap-sync/pkg/errors"
)

var validate = validator.New()

// ValidateStruct validates a struct based on its validation tags. Failures
// come back as a validation error listing every offending field.
func ValidateStruct(s interface{}) error {
	if err := validate.Struct(s); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// ValidateSlice validates every element of a request slice
func ValidateSlice[T any](items []T) error {
	for i := range items {
		if err := validate.Struct(items[i]); err != nil {
			appErr := formatValidationError(err)
			if ve, ok := appErr.(*errors.AppError); ok {
				ve.Message = fmt.Sprintf("item %d: %s", i, ve.Message)
			}
			return appErr
		}
	}
	return nil
}

// formatValidationError formats validation errors into readable messages
func formatValidationError(err error) error {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return errors.NewValidationError(err.Error()).WithCause(err)
	}

	messages := make([]string, 0, len(validationErrors))
	fields := make(map[string]interface{}, len(validationErrors))
	for _, e := range validationErrors {
		messages = append(messages, formatFieldError(e))
		fields[strings.ToLower(e.Field())] = e.Tag()
	}
	appErr := errors.NewValidationError(strings.Join(messages, "; "))
	appErr.Details = fields
	return appErr
}

// formatFieldError formats a single field validation error
func formatFieldError(e validator.FieldError) string {
	field := strings.ToLower(e.Field())

	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, e.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, e.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	case "dive":
		return fmt.Sprintf("%s contains invalid values", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
