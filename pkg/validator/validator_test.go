package validator_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgercore/internal/core/apperror"
	"ledgercore/pkg/validator"
)

type sample struct {
	TenantID uuid.UUID       `validate:"uuid_required"`
	Name     string          `validate:"required,max=10"`
	Price    decimal.Decimal `validate:"money_nonneg"`
}

func TestValidateStruct_Valid(t *testing.T) {
	s := sample{TenantID: uuid.New(), Name: "widget", Price: decimal.RequireFromString("1.50")}

	assert.Empty(t, validator.ValidateStruct(s))
	assert.NoError(t, validator.Check(s))
}

func TestValidateStruct_ReportsEveryField(t *testing.T) {
	s := sample{Name: "", Price: decimal.RequireFromString("-1")}

	errs := validator.ValidateStruct(s)

	require.Len(t, errs, 3)
	assert.Equal(t, "TenantID", errs[0].Field)
	assert.Equal(t, "uuid_required", errs[0].Tag)
	assert.Equal(t, "Name", errs[1].Field)
	assert.Equal(t, "required", errs[1].Tag)
	assert.Equal(t, "Price", errs[2].Field)
	assert.Equal(t, "money_nonneg", errs[2].Tag)
}

func TestCheck_ReturnsValidationAppError(t *testing.T) {
	err := validator.Check(sample{TenantID: uuid.New(), Name: "far too long a name"})

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
	assert.Equal(t, apperror.KindValidation, appErr.Kind)
	assert.Contains(t, appErr.Details, "fields")
}
