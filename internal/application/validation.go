package application

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// inputValidator runs struct tag validation and reports failures as a
// ValidationError keyed by JSON field path ("recurrence.until").
type inputValidator struct {
	validate *validator.Validate
}

func newInputValidator() *inputValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &inputValidator{validate: v}
}

// Struct validates s and returns the collected field errors.
func (iv *inputValidator) Struct(s any) *ValidationError {
	vErr := &ValidationError{}
	err := iv.validate.Struct(s)
	if err == nil {
		return vErr
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		vErr.add("_", err.Error())
		return vErr
	}
	for _, fe := range fieldErrs {
		vErr.add(fieldPath(fe.Namespace()), fieldMessage(fe))
	}
	return vErr
}

// Var validates one value against tag and records a failure under field.
func (iv *inputValidator) Var(vErr *ValidationError, field string, value any, tag string) {
	err := iv.validate.Var(value, tag)
	if err == nil {
		return
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		vErr.add(field, fieldMessage(fieldErrs[0]))
		return
	}
	vErr.add(field, err.Error())
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(namespace string) string {
	if _, rest, ok := strings.Cut(namespace, "."); ok {
		return rest
	}
	return namespace
}

func fieldMessage(fe validator.FieldError) string {
	unit := ""
	if fe.Kind() == reflect.String {
		unit = " characters"
	}
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must be at most %s%s", fe.Param(), unit)
	case "min":
		return fmt.Sprintf("must be at least %s%s", fe.Param(), unit)
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "datetime":
		return "must use the format " + layoutHint(fe.Param())
	default:
		return fmt.Sprintf("failed the %s check", fe.Tag())
	}
}

func layoutHint(layout string) string {
	return strings.NewReplacer("2006", "YYYY", "01", "MM", "02", "DD", "15", "HH", "04", "MM").Replace(layout)
}
