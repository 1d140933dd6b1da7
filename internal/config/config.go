// Package config loads process configuration from the environment, after an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"ledgercore/internal/core/tx"
	"ledgercore/internal/domain/stock"
)

// Database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config is the full process configuration.
type Config struct {
	AppEnv   string
	LogLevel string
	HTTPAddr string

	Database Database
	JWT      JWT
	Stock    Stock
	Retry    tx.RetryPolicy
	Outbox   Outbox
}

// Database selects and sizes the storage backend.
type Database struct {
	Driver           string
	URL              string
	MaxConns         int32
	MinConns         int32
	StatementTimeout time.Duration
}

// JWT configures access token validation.
type JWT struct {
	Secret string
	Issuer string
}

// Stock configures the stock guard.
type Stock struct {
	Oversell       string // deny | allow
	GuardExpr      string // overrides Oversell when set
	RejectInactive bool
}

// Outbox configures the relay worker.
type Outbox struct {
	PollInterval time.Duration
	BatchSize    int
}

// IsDevelopment reports whether the process runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// Load reads the configuration. A missing .env file is not an error.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv reads the configuration from the process environment only.
func FromEnv() (*Config, error) {
	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	cfg := &Config{
		AppEnv:   getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),
		Database: Database{
			Driver: strings.ToLower(getEnv("DATABASE_DRIVER", DriverPostgres)),
			URL:    os.Getenv("DATABASE_URL"),
		},
		JWT: JWT{
			Secret: os.Getenv("JWT_SECRET"),
			Issuer: getEnv("JWT_ISSUER", "ledgercore"),
		},
		Stock: Stock{
			Oversell:  strings.ToLower(getEnv("STOCK_OVERSELL", "deny")),
			GuardExpr: os.Getenv("STOCK_GUARD_EXPR"),
		},
	}

	maxConns, err := getEnvInt("DB_MAX_CONNS", 25)
	collect(err)
	minConns, err := getEnvInt("DB_MIN_CONNS", 5)
	collect(err)
	cfg.Database.MaxConns = int32(maxConns)
	cfg.Database.MinConns = int32(minConns)

	cfg.Database.StatementTimeout, err = getEnvDuration("DB_STATEMENT_TIMEOUT", 30*time.Second)
	collect(err)

	cfg.Stock.RejectInactive, err = getEnvBool("STOCK_REJECT_INACTIVE", true)
	collect(err)

	def := tx.DefaultRetryPolicy()
	cfg.Retry.MaxAttempts, err = getEnvInt("TX_MAX_ATTEMPTS", def.MaxAttempts)
	collect(err)
	cfg.Retry.BaseDelay, err = getEnvDuration("TX_RETRY_BASE_DELAY", def.BaseDelay)
	collect(err)
	cfg.Retry.MaxDelay, err = getEnvDuration("TX_RETRY_MAX_DELAY", def.MaxDelay)
	collect(err)

	cfg.Outbox.PollInterval, err = getEnvDuration("OUTBOX_POLL_INTERVAL", 2*time.Second)
	collect(err)
	cfg.Outbox.BatchSize, err = getEnvInt("OUTBOX_BATCH_SIZE", 100)
	collect(err)

	collect(cfg.validate())

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	switch c.Database.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		errs = append(errs, fmt.Errorf("DATABASE_DRIVER must be postgres or sqlite, got %q", c.Database.Driver))
	}
	if c.Database.URL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if c.Database.MinConns > c.Database.MaxConns {
		errs = append(errs, fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.Database.MinConns, c.Database.MaxConns))
	}
	if c.Stock.Oversell != "deny" && c.Stock.Oversell != "allow" {
		errs = append(errs, fmt.Errorf("STOCK_OVERSELL must be deny or allow, got %q", c.Stock.Oversell))
	}
	if c.Retry.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("TX_MAX_ATTEMPTS must be at least 1"))
	}
	if c.Outbox.BatchSize < 1 {
		errs = append(errs, fmt.Errorf("OUTBOX_BATCH_SIZE must be at least 1"))
	}
	return errors.Join(errs...)
}

// StockPolicy compiles the configured stock guard.
func (c *Config) StockPolicy() (stock.Policy, error) {
	expr := stock.DenyOversellExpr
	if c.Stock.Oversell == "allow" {
		expr = stock.AllowOversellExpr
	}
	if c.Stock.GuardExpr != "" {
		expr = c.Stock.GuardExpr
	}
	guard, err := stock.NewGuard(expr)
	if err != nil {
		return stock.Policy{}, fmt.Errorf("STOCK_GUARD_EXPR: %w", err)
	}
	return stock.Policy{Guard: guard, RejectInactive: c.Stock.RejectInactive}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
