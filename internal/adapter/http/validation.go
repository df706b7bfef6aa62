package http

import (
	"regexp"

	"loanledger-backend/pkg/apperrors"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var reHex32 = regexp.MustCompile(`^[a-f0-9]{32}$`)

type CustomValidator struct{ v *validator.Validate }

func NewValidator() *CustomValidator {
	v := validator.New()

	// public ids = 32-char lowercase hex
	_ = v.RegisterValidation("hex32", func(fl validator.FieldLevel) bool {
		return reHex32.MatchString(fl.Field().String())
	})
	// positive decimal amount
	_ = v.RegisterValidation("dec_gt0", func(fl validator.FieldLevel) bool {
		d, ok := fl.Field().Interface().(decimal.Decimal)
		return ok && d.GreaterThan(decimal.Zero)
	})
	// at most 2 decimal places
	_ = v.RegisterValidation("dec2", func(fl validator.FieldLevel) bool {
		d, ok := fl.Field().Interface().(decimal.Decimal)
		return ok && d.Equal(d.Round(2))
	})

	return &CustomValidator{v: v}
}

func (cv *CustomValidator) Validate(i any) error { return cv.v.Struct(i) }

// ToFieldErrors maps validator.ValidationErrors to field-level detail.
func ToFieldErrors(err error) []apperrors.FieldError {
	ve, ok := err.(validator.ValidationErrors)
	if !ok {
		return []apperrors.FieldError{{Field: "_", Message: err.Error()}}
	}
	out := make([]apperrors.FieldError, 0, len(ve))
	for _, e := range ve {
		field := e.Field()
		switch e.Tag() {
		case "required":
			out = append(out, apperrors.FieldError{Field: field, Message: "is required"})
		case "hex32":
			out = append(out, apperrors.FieldError{Field: field, Message: "must be 32-char lowercase hex"})
		case "dec_gt0":
			out = append(out, apperrors.FieldError{Field: field, Message: "must be greater than zero"})
		case "dec2":
			out = append(out, apperrors.FieldError{Field: field, Message: "must have at most 2 decimal places"})
		case "oneof":
			out = append(out, apperrors.FieldError{Field: field, Message: "must be one of: " + e.Param()})
		case "gte":
			out = append(out, apperrors.FieldError{Field: field, Message: "must be greater than or equal to " + e.Param()})
		case "lte":
			out = append(out, apperrors.FieldError{Field: field, Message: "must be less than or equal to " + e.Param()})
		default:
			out = append(out, apperrors.FieldError{Field: field, Message: e.Tag() + " validation failed"})
		}
	}
	return out
}
