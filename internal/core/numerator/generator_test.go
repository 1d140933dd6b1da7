package numerator_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"ledgercore/internal/core/numerator"
)

func TestFormat(t *testing.T) {
	period := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, "SAL-2026-00001", numerator.Format(numerator.DefaultConfig("SAL"), period, 1))
	assert.Equal(t, "PUR-2026-12345", numerator.Format(numerator.DefaultConfig("PUR"), period, 12345))
	assert.Equal(t, "X-007", numerator.Format(numerator.Config{Prefix: "X", PadWidth: 3}, period, 7))
}

func TestKey(t *testing.T) {
	period := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, "SAL_2026", numerator.Key(numerator.DefaultConfig("SAL"), period))
	assert.Equal(t, "SAL_2026_03", numerator.Key(numerator.Config{Prefix: "SAL", ResetPeriod: "month"}, period))
	assert.Equal(t, "SAL", numerator.Key(numerator.Config{Prefix: "SAL", ResetPeriod: "never"}, period))
}

func TestParse(t *testing.T) {
	assert.Equal(t, int64(42), numerator.Parse("SAL-2026-00042"))
	assert.Equal(t, int64(7), numerator.Parse("X-007"))
	assert.Equal(t, int64(-1), numerator.Parse("garbage"))
}
