// Package validation wraps go-playground/validator with the error shape the
// HTTP layer renders as field-level validation errors.
package validation

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"sync"

	validatorengine "github.com/go-playground/validator/v10"
)

// ErrValidation is matched by errors.Is for every *Errors value.
var ErrValidation = errors.New("validation_failed")

type FieldError struct {
	Field string `json:"field"`
	Code  string `json:"code"`
}

type Errors struct {
	Fields []FieldError `json:"errors"`
}

func (e *Errors) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+":"+f.Code)
	}
	return ErrValidation.Error() + " (" + strings.Join(parts, ", ") + ")"
}

func (e *Errors) Is(target error) bool {
	return target == ErrValidation
}

// Field builds a single-field validation error.
func Field(field, code string) error {
	return &Errors{Fields: []FieldError{{Field: field, Code: code}}}
}

var phonePattern = regexp.MustCompile(`^\+?[0-9]{6,15}$`)

var (
	once   sync.Once
	engine *validatorengine.Validate
)

func validate() *validatorengine.Validate {
	once.Do(func() {
		engine = validatorengine.New(validatorengine.WithRequiredStructEnabled())
		engine.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "" || name == "-" {
				return strings.ToLower(f.Name)
			}
			return name
		})
		_ = engine.RegisterValidation("phone", func(fl validatorengine.FieldLevel) bool {
			return phonePattern.MatchString(fl.Field().String())
		})
	})
	return engine
}

// Struct validates s using its `validate` tags.
func Struct(s any) error {
	err := validate().Struct(s)
	if err == nil {
		return nil
	}
	var verrs validatorengine.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &Errors{Fields: make([]FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{
			Field: fieldPath(fe.Namespace()),
			Code:  "invalid_" + fe.Tag(),
		})
	}
	return out
}

func fieldPath(namespace string) string {
	if i := strings.Index(namespace, "."); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

// NormalizePhone removes the separators people type into phone numbers
// (spaces, dots, dashes, parentheses). Anything else is kept so the phone
// rule can reject it.
func NormalizePhone(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	var b strings.Builder
	for _, r := range raw {
		switch r {
		case ' ', '\t', '-', '.', '(', ')':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
