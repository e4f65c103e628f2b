// Package config reads process settings from the environment, after loading
// a .env file if one is present.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/csg33k/paystub-engine/internal/domain"
)

const (
	TablesMemory = "memory"
	TablesSQLite = "sqlite"
)

type Config struct {
	DBPath   string
	Port     string
	TaxYear  int
	LogLevel slog.Level
	// RateTables selects where lookups are served from: an in-memory store
	// snapshotted at startup, or the database directly.
	RateTables string
	AuditLog   bool
	// MigrationsDir, when set, is applied at startup.
	MigrationsDir string
}

// Load reads .env (missing is fine) and then the environment.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !os.IsNotExist(err) {
		slog.Warn("error loading .env file", "err", err)
	}

	cfg := &Config{
		DBPath:        getenv("DB_PATH", "paystub.db"),
		Port:          getenv("PORT", "8080"),
		TaxYear:       domain.DefaultTaxYear,
		RateTables:    strings.ToLower(getenv("RATE_TABLES", TablesMemory)),
		AuditLog:      true,
		MigrationsDir: os.Getenv("MIGRATIONS_DIR"),
	}

	if v := os.Getenv("TAX_YEAR"); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 2000 || y > 2100 {
			return nil, fmt.Errorf("TAX_YEAR: invalid year %q", v)
		}
		cfg.TaxYear = y
	}
	if err := cfg.LogLevel.UnmarshalText([]byte(getenv("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	if v := os.Getenv("AUDIT_LOG"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("AUDIT_LOG: %w", err)
		}
		cfg.AuditLog = b
	}
	switch cfg.RateTables {
	case TablesMemory, TablesSQLite:
	default:
		return nil, fmt.Errorf("RATE_TABLES: want %q or %q, got %q", TablesMemory, TablesSQLite, cfg.RateTables)
	}
	return cfg, nil
}

// Logger builds the process logger: text on stderr at the configured level.
func (c *Config) Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: c.LogLevel}))
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
