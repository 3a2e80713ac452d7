// Package validation wraps go-playground/validator and converts its failures
// into apperr validation errors with per-field pt-BR messages.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"cinesorte/apperr"
)

// Validator wraps validator.Validate with domain error conversion.
type Validator struct {
	v *validator.Validate
}

// New creates a validator that reports fields by their json names and knows
// the "password" tag (at least 8 runes with upper, lower and digit).
func New() *Validator {
	v := validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	// Registration cannot fail for a non-empty tag and a non-nil func.
	_ = v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		return PasswordChecks(fl.Field().String()).OK()
	})

	return &Validator{v: v}
}

// Validate validates s and returns an apperr validation error on failure.
func (v *Validator) Validate(op string, s any) error {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make(map[string]string, len(verrs))
	for _, e := range verrs {
		fields[e.Field()] = friendlyMessage(e)
	}
	return apperr.ValidationFields(op, "Verifique os dados e tente novamente.", fields)
}

func friendlyMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "é obrigatório"
	case "email":
		return "deve ser um email válido"
	case "min", "gte":
		if e.Kind() == reflect.Slice || e.Kind() == reflect.String {
			return fmt.Sprintf("deve ter pelo menos %s", e.Param())
		}
		return fmt.Sprintf("deve ser maior ou igual a %s", e.Param())
	case "max", "lte":
		if e.Kind() == reflect.Slice || e.Kind() == reflect.String {
			return fmt.Sprintf("deve ter no máximo %s", e.Param())
		}
		return fmt.Sprintf("deve ser menor ou igual a %s", e.Param())
	case "gt":
		return fmt.Sprintf("deve ser maior que %s", e.Param())
	case "oneof":
		return "deve ser um de: " + e.Param()
	case "eqfield":
		return "não coincide"
	case "password":
		return "deve ter no mínimo 8 caracteres, com maiúscula, minúscula e número"
	default:
		return "é inválido"
	}
}

// Checks is the per-rule outcome of the password policy, used to render a
// live checklist while the user types.
type Checks struct {
	Length bool
	Upper  bool
	Lower  bool
	Number bool
}

// OK reports whether every rule passed.
func (c Checks) OK() bool {
	return c.Length && c.Upper && c.Lower && c.Number
}

// PasswordChecks evaluates the password policy. Only ASCII letters and
// digits satisfy the class rules; accented letters count toward length only.
func PasswordChecks(password string) Checks {
	c := Checks{Length: len([]rune(password)) >= 8}
	for _, r := range password {
		switch {
		case 'A' <= r && r <= 'Z':
			c.Upper = true
		case 'a' <= r && r <= 'z':
			c.Lower = true
		case '0' <= r && r <= '9':
			c.Number = true
		}
	}
	return c
}
