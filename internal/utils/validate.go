package utils

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"task_wallet/internal/apperr"
)

// validate reads the same `binding` tags gin checks on request bodies, so a
// struct validated by a handler and by a service obeys one set of rules.
var validate = NewValidator()

// NewValidator returns a validator keyed on `binding` tags that reports
// fields by their JSON name.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.SetTagName("binding")
	v.RegisterTagNameFunc(JSONFieldName)
	return v
}

// JSONFieldName names a struct field after its json tag.
func JSONFieldName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	if name == "-" || name == "" {
		return f.Name
	}
	return name
}

// ValidateStruct checks s against its binding tags.
func ValidateStruct(s any) error {
	return ValidationError(validate.Struct(s))
}

// ValidateVar checks a single value, e.g. a PIN, against tag.
func ValidateVar(field string, value any, tag string) error {
	if err := validate.Var(value, tag); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return apperr.InvalidInput(field, fieldMessage(field, fieldErrs[0]))
		}
		return apperr.InvalidInput(field, "Invalid "+field)
	}
	return nil
}

// ValidationError turns the first failed rule into an INVALID_INPUT error.
// Errors that are not validation failures pass through unchanged.
func ValidationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}
	fe := fieldErrs[0]
	return apperr.InvalidInput(fe.Field(), fieldMessage(fe.Field(), fe))
}

func fieldMessage(field string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return "Invalid e-mail address"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "len":
		return fmt.Sprintf("%s must be %s digits", field, fe.Param())
	case "number", "numeric":
		return field + " must contain only digits"
	default:
		return "Invalid " + field
	}
}
