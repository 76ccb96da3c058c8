// Package validation binds request bodies and checks them against struct
// tag rules, reporting every failure as a {field, message} pair.
package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"unicode"

	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error carries every failed rule in declaration order.
type Error struct {
	Errors []FieldError `json:"errors"`
}

func (e *Error) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		parts = append(parts, fe.Field+": "+fe.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Sanitizer is implemented by requests that normalize themselves before
// rules run, e.g. lower-casing an email.
type Sanitizer interface {
	Sanitize()
}

// Patch is implemented by partial-update requests; an empty patch fails
// validation.
type Patch interface {
	IsEmpty() bool
}

// Validator implements echo.Validator.
type Validator struct {
	v *validatorv10.Validate
}

const passwordMessage = "Password must contain at least one uppercase letter, one lowercase letter, one digit, and one special character"

func New() *Validator {
	v := validatorv10.New(validatorv10.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})

	_ = v.RegisterValidation("password", func(fl validatorv10.FieldLevel) bool {
		return strongPassword(fl.Field().String())
	})

	return &Validator{v: v}
}

func (cv *Validator) Validate(i interface{}) error {
	if s, ok := i.(Sanitizer); ok {
		s.Sanitize()
	}

	out := &Error{}
	if err := cv.v.Struct(i); err != nil {
		var ve validatorv10.ValidationErrors
		if !errors.As(err, &ve) {
			return err
		}
		for _, fe := range ve {
			out.Errors = append(out.Errors, FieldError{
				Field:   fieldPath(fe.Namespace()),
				Message: message(fe),
			})
		}
	}
	if p, ok := i.(Patch); ok && p.IsEmpty() {
		out.Errors = append(out.Errors, FieldError{Field: "body", Message: "At least one field must be provided"})
	}

	if len(out.Errors) == 0 {
		return nil
	}
	return out
}

// BindAndValidate decodes the request body into dst and validates it with the
// echo instance's validator. Decode failures come back as *Error too.
func BindAndValidate(c echo.Context, dst interface{}) error {
	if err := c.Bind(dst); err != nil {
		return bindError(err)
	}
	return c.Validate(dst)
}

var indexRe = regexp.MustCompile(`\[(\d+)\]`)

// fieldPath turns "CreateOrderRequest.items[1].quantity" into "items.1.quantity".
func fieldPath(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		ns = rest
	}
	return indexRe.ReplaceAllString(ns, ".$1")
}

func message(fe validatorv10.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "Required"
	case "email":
		return "Invalid email"
	case "password":
		return passwordMessage
	case "min":
		switch fe.Kind() {
		case reflect.Slice, reflect.Array, reflect.Map:
			return fmt.Sprintf("Must contain at least %s item(s)", fe.Param())
		case reflect.String:
			return fmt.Sprintf("Must be at least %s characters long", fe.Param())
		}
		return "Must be at least " + fe.Param()
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("Must be at most %s characters long", fe.Param())
		}
		return "Must be at most " + fe.Param()
	case "gt":
		return "Must be greater than " + fe.Param()
	case "gte":
		return "Must be greater than or equal to " + fe.Param()
	case "oneof":
		return "Must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	}
	return "Invalid value"
}

func bindError(err error) error {
	var te *json.UnmarshalTypeError
	if errors.As(err, &te) {
		field := te.Field
		if field == "" {
			field = "body"
		}
		return &Error{Errors: []FieldError{{Field: field, Message: "Expected " + te.Type.String()}}}
	}
	return &Error{Errors: []FieldError{{Field: "body", Message: "Malformed JSON body"}}}
}

func strongPassword(s string) bool {
	var upper, lower, digit, special bool
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		default:
			special = true
		}
	}
	return upper && lower && digit && special
}
