package validators

import (
	"fmt"
	"net/http"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

var (
	usernameRe = regexp.MustCompile(`^[a-z0-9_.]+$`)
	digitsRe   = regexp.MustCompile(`^[0-9]+$`)
	punctRe    = regexp.MustCompile(`^[_.]+$`)
	alphaRe    = regexp.MustCompile(`^[a-zA-Z]+$`)
)

// IsValidUsername reports whether a candidate username is acceptable:
// lowercase letters, digits, underscore and dot only; not purely numeric;
// not purely punctuation; and containing no reserved substring.
func IsValidUsername(value string, reserved []string) bool {
	if value == "" || !usernameRe.MatchString(value) {
		return false
	}
	if digitsRe.MatchString(value) || punctRe.MatchString(value) {
		return false
	}
	lower := strings.ToLower(value)
	for _, name := range reserved {
		if strings.Contains(lower, name) {
			return false
		}
	}
	return true
}

// IsValidName reports whether a first/last name is alphabetic only.
func IsValidName(value string) bool {
	return alphaRe.MatchString(value)
}

// CustomValidator adapts validator/v10 to echo's Validator interface and
// registers the username and alpha_name rules.
type CustomValidator struct {
	validate *validator.Validate
	reserved []string
}

// NewValidator builds a validator using the default reserved-name list.
func NewValidator() *CustomValidator {
	return NewValidatorWith(DefaultReservedNames)
}

// NewValidatorWith builds a validator with a caller-supplied deny-list, so
// the reserved names stay configuration rather than logic.
func NewValidatorWith(reserved []string) *CustomValidator {
	v := validator.New()

	// Report field errors under their wire names, not Go struct names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	cv := &CustomValidator{validate: v, reserved: reserved}

	v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return IsValidUsername(fl.Field().String(), cv.reserved)
	})
	v.RegisterValidation("alpha_name", func(fl validator.FieldLevel) bool {
		return IsValidName(fl.Field().String())
	})

	return cv
}

// Validate implements echo.Validator.
func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validate.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error()).SetInternal(err)
	}
	return nil
}

// Struct validates without wrapping, for handlers that collect field errors.
func (cv *CustomValidator) Struct(i interface{}) error {
	return cv.validate.Struct(i)
}

// FieldErrors flattens a validator error into a field -> message map so all
// problems come back to the caller in one round-trip. Non-validator errors
// land under a catch-all key.
func FieldErrors(err error) map[string]string {
	out := map[string]string{}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		if httpErr, isHTTP := err.(*echo.HTTPError); isHTTP && httpErr.Internal != nil {
			if verrs, ok = httpErr.Internal.(validator.ValidationErrors); !ok {
				out["non_field"] = fmt.Sprintf("%v", httpErr.Message)
				return out
			}
		} else {
			out["non_field"] = err.Error()
			return out
		}
	}
	for _, fe := range verrs {
		out[fe.Field()] = messageFor(fe)
	}
	return out
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "username":
		return "Enter a valid username."
	case "alpha_name":
		return fmt.Sprintf("Enter a valid %s.", strings.ReplaceAll(fe.Field(), "_", " "))
	case "min":
		return fmt.Sprintf("Must be at least %s characters.", fe.Param())
	case "max":
		return fmt.Sprintf("Must be at most %s characters.", fe.Param())
	case "len":
		return fmt.Sprintf("Must be exactly %s characters.", fe.Param())
	default:
		return "This value is invalid."
	}
}
