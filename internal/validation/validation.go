// Package validation holds the request schemas shared by handlers and services.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"wingyshop/internal/models"
	"wingyshop/pkg/money"
)

// forbiddenUsernameParts may not appear anywhere in a username.
var forbiddenUsernameParts = []string{"gmail", "com"}

var alphanumeric = regexp.MustCompile(`^[a-zA-Z0-9]+$`)

// New returns a validator with the marketplace tags registered:
//   - price: non-negative amount with at most two decimals
//   - username: alphanumeric, no forbidden substrings
//   - productstatus: pending, active or rejected
func New() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("price", func(fl validator.FieldLevel) bool {
		return money.IsPrice(fl.Field().String())
	})
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return UsernameProblem(fl.Field().String()) == ""
	})
	_ = v.RegisterValidation("productstatus", func(fl validator.FieldLevel) bool {
		return models.ProductStatus(fl.Field().String()).Valid()
	})
	return v
}

// UsernameProblem describes why name is not an acceptable username, or returns "".
func UsernameProblem(name string) string {
	if len(name) < 3 {
		return "Username must be at least 3 characters"
	}
	if !alphanumeric.MatchString(name) {
		return "Username may only contain letters and numbers"
	}
	lower := strings.ToLower(name)
	for _, part := range forbiddenUsernameParts {
		if strings.Contains(lower, part) {
			return `Username cannot contain "gmail" or "com"`
		}
	}
	return ""
}

// Struct validates s and converts the first failure into a *models.ValidationError.
func Struct(v *validator.Validate, s interface{}) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &models.ValidationError{Message: err.Error()}
	}
	return describe(fieldErrs[0])
}

func describe(fe validator.FieldError) *models.ValidationError {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return models.NewValidationError(field, "is required")
	case "min":
		if fe.Kind() == reflect.String {
			return models.NewValidationError(field, "must be at least %s characters", fe.Param())
		}
		if fe.Kind() == reflect.Slice {
			return models.NewValidationError(field, "must contain at least %s items", fe.Param())
		}
		return models.NewValidationError(field, "must be at least %s", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return models.NewValidationError(field, "must be under %s characters", fe.Param())
		}
		if fe.Kind() == reflect.Slice {
			return models.NewValidationError(field, "must contain at most %s items", fe.Param())
		}
		return models.NewValidationError(field, "cannot exceed %s", fe.Param())
	case "email":
		return models.NewValidationError(field, "must be a valid email address")
	case "price":
		return models.NewValidationError(field, "must be a valid number with at most two decimals")
	case "username":
		return models.NewValidationError(field, "%s", UsernameProblem(fmt.Sprint(fe.Value())))
	case "productstatus":
		return models.NewValidationError(field, "must be one of pending, active, rejected")
	case "url":
		return models.NewValidationError(field, "must be a valid URL")
	case "gt":
		return models.NewValidationError(field, "must be greater than %s", fe.Param())
	default:
		return models.NewValidationError(field, "failed on the '%s' rule", fe.Tag())
	}
}
