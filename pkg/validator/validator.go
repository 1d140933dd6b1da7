// Package validator wraps go-playground/validator with the tags used by ledger commands.
package validator

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"ledgercore/internal/core/apperror"
)

// FieldError describes one failed rule.
type FieldError struct {
	Field string `json:"field"`
	Tag   string `json:"tag"`
	Param string `json:"param,omitempty"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func init() {
	// uuid_required rejects the zero UUID, which `required` lets through on arrays.
	_ = validate.RegisterValidation("uuid_required", func(fl validator.FieldLevel) bool {
		if v, ok := fl.Field().Interface().(uuid.UUID); ok {
			return v != uuid.Nil
		}
		return false
	})

	// Decimals are validated through their canonical string form.
	validate.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.String()
		}
		return nil
	}, decimal.Decimal{})

	// money_nonneg accepts decimal amounts that are zero or positive.
	_ = validate.RegisterValidation("money_nonneg", func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(fl.Field().String())
		return err == nil && !d.IsNegative()
	})
}

// ValidateStruct returns every failed rule of data, or nil.
func ValidateStruct(data any) []FieldError {
	err := validate.Struct(data)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []FieldError{{Field: "", Tag: err.Error()}}
	}

	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{
			Field: fieldPath(fe.StructNamespace()),
			Tag:   fe.Tag(),
			Param: fe.Param(),
		})
	}
	return out
}

// Check validates data and folds failures into a single validation AppError.
func Check(data any) error {
	errs := ValidateStruct(data)
	if len(errs) == 0 {
		return nil
	}
	return apperror.NewValidation("invalid " + errs[0].Field).
		WithDetail("fields", errs)
}

// fieldPath drops the root struct name: "CreateCommand.Lines[0].ProductID" -> "Lines[0].ProductID".
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}
