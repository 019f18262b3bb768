package proxykit

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FromValidation converts the result of a validator run into an *Error with
// the given code. Each failing field is listed in the message and in the
// details. Errors that are not validation errors are kept as the cause.
func FromValidation(code ErrorCode, err error) *Error {
	if err == nil {
		return nil
	}

	var valErrs validator.ValidationErrors
	if !errors.As(err, &valErrs) {
		return Errorf(code, "%w", err)
	}

	details := make(map[string]any, len(valErrs))
	messages := make([]string, 0, len(valErrs))
	for _, ve := range valErrs {
		msg := formatValidationError(ve)
		details[ve.Namespace()] = msg
		messages = append(messages, ve.Namespace()+": "+msg)
	}
	return &Error{
		Code:    code,
		Message: strings.Join(messages, "; "),
		Details: details,
		Err:     err,
	}
}

// formatValidationError converts a validator.FieldError to a human-readable message.
func formatValidationError(ve validator.FieldError) string {
	switch ve.Tag() {
	case "required":
		return "required"
	case "min":
		return fmt.Sprintf("must be at least %s", ve.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", ve.Param())
	case "excluded_with":
		return fmt.Sprintf("must be empty when %s is set", ve.Param())
	case "dir":
		return "must be an existing directory"
	default:
		if ve.Param() != "" {
			return fmt.Sprintf("failed %s=%s validation", ve.Tag(), ve.Param())
		}
		return fmt.Sprintf("failed %s validation", ve.Tag())
	}
}
