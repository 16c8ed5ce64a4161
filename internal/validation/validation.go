// Package validation runs struct validation with the same "binding" tags gin
// uses and turns failures into apperror validation errors.
package validation

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-faster/errors"
	"github.com/go-playground/validator/v10"

	"storefront/internal/apperror"
)

var (
	once     sync.Once
	validate *validator.Validate
)

func instance() *validator.Validate {
	once.Do(func() {
		validate = validator.New()
		validate.SetTagName("binding")
		useJSONNames(validate)
	})
	return validate
}

// useJSONNames makes v report fields by their json names.
func useJSONNames(v *validator.Validate) {
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return lowerFirst(field.Name)
		}
		return name
	})
}

// Struct validates s and reports every failing field in the error details.
func Struct(s interface{}) error {
	return translate(instance().Struct(s))
}

// translate turns a validator failure into an apperror validation error.
func translate(err error) error {
	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return apperror.Wrap(apperror.KindValidation, err, "invalid input")
	}

	details := make([]string, 0, len(fieldErrors))
	for _, fieldError := range fieldErrors {
		details = append(details, Describe(fieldError))
	}
	return apperror.Validation("validation failed: " + strings.Join(details, "; ")).
		WithDetail("fields", details)
}

// Describe renders one failed rule as a sentence about the field.
func Describe(fe validator.FieldError) string {
	field := fieldPath(fe)
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "gte", "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "lte", "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

// fieldPath drops the root struct name from the namespace, so nested fields
// read as customer.email or items[0].quantity.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func lowerFirst(field string) string {
	if field == "" {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}
