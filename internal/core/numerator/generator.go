// Package numerator provides the contract for per-tenant reference numbering.
// Implementations live in the storage layer.
package numerator

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"ledgercore/internal/core/id"
)

// Config holds numbering configuration.
type Config struct {
	// Prefix added to all numbers (e.g., "SAL", "PUR")
	Prefix string

	// IncludeYear adds year to the number
	IncludeYear bool

	// PadWidth is the minimum number width (default 5)
	PadWidth int

	// ResetPeriod: "year", "month", "never"
	ResetPeriod string
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(prefix string) Config {
	return Config{
		Prefix:      prefix,
		IncludeYear: true,
		PadWidth:    5,
		ResetPeriod: "year",
	}
}

// Generator allocates sequential numbers.
type Generator interface {
	// Next allocates the next number of tenantID for cfg and period, e.g.
	// SAL-2026-00001. The allocation runs on the storage transaction carried
	// by ctx and is rolled back with it, so committed numbers have no gaps.
	Next(ctx context.Context, tenantID id.ID, cfg Config, period time.Time) (string, error)
}

// Key is the sequence key for cfg in period.
func Key(cfg Config, period time.Time) string {
	switch cfg.ResetPeriod {
	case "month":
		return fmt.Sprintf("%s_%s", cfg.Prefix, period.Format("2006_01"))
	case "year":
		return fmt.Sprintf("%s_%s", cfg.Prefix, period.Format("2006"))
	default:
		return cfg.Prefix
	}
}

// Format renders num with the prefix, year and padding of cfg.
func Format(cfg Config, period time.Time, num int64) string {
	padWidth := cfg.PadWidth
	if padWidth == 0 {
		padWidth = 5
	}

	if cfg.IncludeYear {
		return fmt.Sprintf("%s-%s-%0*d", cfg.Prefix, period.Format("2006"), padWidth, num)
	}
	return fmt.Sprintf("%s-%0*d", cfg.Prefix, padWidth, num)
}

// Parse extracts the numeric part of a formatted number.
// Returns -1 if parsing fails.
func Parse(formatted string) int64 {
	i := strings.LastIndexByte(formatted, '-')
	if i < 0 {
		return -1
	}
	num, err := strconv.ParseInt(formatted[i+1:], 10, 64)
	if err != nil {
		return -1
	}
	return num
}
