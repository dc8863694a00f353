package domain

import (
	"context"
	"time"
)

// Repository is the configuration collaborator: per-store scheme
// configuration and the host exchange-rate table. Tax-id check results are
// deliberately not persisted.
type Repository interface {
	// Scheme configuration, scoped by store.
	SaveSchemeConfig(ctx context.Context, storeID string, cfg *SchemeConfig) error
	GetSchemeConfig(ctx context.Context, storeID string) (*SchemeConfig, error)
	ListSchemeConfigs(ctx context.Context) ([]*SchemeConfig, error)

	// Host exchange rates from the scheme currency to a store currency.
	SaveExchangeRate(ctx context.Context, storeID string, currency string, rate float64) error
	GetExchangeRate(ctx context.Context, storeID string, currency string) (float64, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string

	// SQLite specific
	SQLitePath string

	// PostgreSQL specific
	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}
