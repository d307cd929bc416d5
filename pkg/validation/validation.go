// Package validation performs client-side form checks before a request is
// issued, returning VALIDATION app errors with one readable message.
package validation

import (
	stderrors "errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	apperrors "tasktracker/pkg/errors"
)

var (
	once     sync.Once
	validate *validator.Validate
)

func instance() *validator.Validate {
	once.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return f.Name
			}
			return name
		})
	})
	return validate
}

// Struct validates a tagged form struct.
func Struct(v any) error {
	if err := instance().Struct(v); err != nil {
		var ve validator.ValidationErrors
		if stderrors.As(err, &ve) {
			msgs := make([]string, 0, len(ve))
			for _, fe := range ve {
				msgs = append(msgs, fieldError(fe, fe.Field()))
			}
			return apperrors.NewValidationError(strings.Join(msgs, "; "))
		}
		return apperrors.WrapError(err, apperrors.ErrCodeValidation, "invalid form", 0)
	}
	return nil
}

// Var validates a single value against a tag expression.
func Var(field string, value any, tag string) error {
	if err := instance().Var(value, tag); err != nil {
		var ve validator.ValidationErrors
		if stderrors.As(err, &ve) && len(ve) > 0 {
			return apperrors.NewValidationError(fieldError(ve[0], field))
		}
		return apperrors.NewValidationError(fmt.Sprintf("%s is invalid", field))
	}
	return nil
}

// fieldError converts a single FieldError into a human-readable message.
func fieldError(fe validator.FieldError, name string) string {
	field := strings.ToLower(name)
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s is too long (max %s characters)", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed validation (%s)", field, fe.Tag())
	}
}
