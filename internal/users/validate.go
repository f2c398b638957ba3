package users

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"userdesk/internal/models"
	"userdesk/shared/logger"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// Validate checks a create payload. The normalized input is returned together
// with the per-field failures, which are empty when the input is acceptable.
func Validate(in models.UserInput) (models.UserInput, FieldErrors) {
	in = in.Normalize()
	return in, fieldErrors(validate.Struct(in))
}

// ValidatePatch checks the fields present in a partial update.
func ValidatePatch(p models.UserPatch) (models.UserPatch, FieldErrors) {
	p = p.Normalize()
	return p, fieldErrors(validate.Struct(p))
}

func fieldErrors(err error) FieldErrors {
	if err == nil {
		return nil
	}

	errs := FieldErrors{}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		errs.Add("_error", err.Error())
		return errs
	}
	for _, fe := range verrs {
		errs.Add(fe.Field(), message(fe))
	}

	logger.Debug("Validation failed", logger.Int("error_count", len(verrs)))
	return errs
}

func message(fe validator.FieldError) string {
	label := capitalize(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required.", label)
	case "email":
		return "Invalid email address."
	case "min":
		return fmt.Sprintf("%s must be at least %s characters.", label, fe.Param())
	case "max":
		return fmt.Sprintf("%s cannot be more than %s characters.", label, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation.", label, fe.Tag())
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
