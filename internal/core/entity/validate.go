package entity

import (
	"errors"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"landportal/internal/core/apperror"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// ValidateStruct checks the `validate` tags of v and reports the first
// failing field as a VALIDATION_ERROR.
func ValidateStruct(entityName string, v any) error {
	err := structValidator().Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return apperror.NewValidation(entityName+" "+strings.ToLower(fe.Field())+" is invalid").
			WithDetail("field", fe.Field()).
			WithDetail("rule", fe.Tag()).
			WithDetail("value", fe.Value())
	}
	return apperror.NewValidation(entityName + " is invalid").WithCause(err)
}
