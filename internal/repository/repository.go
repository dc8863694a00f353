// Package repository provides data persistence implementations.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/opensource-commerce/kea/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (domain.Repository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
	}

	// Run migrations
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// SaveSchemeConfig inserts or replaces the scheme configuration for a store.
func (r *SQLRepository) SaveSchemeConfig(ctx context.Context, storeID string, cfg *domain.SchemeConfig) error {
	if storeID == "" {
		return fmt.Errorf("%w: storeID is required", ErrInvalidInput)
	}

	enabled := 0
	if cfg.Enabled {
		enabled = 1
	}
	useHostRate := 0
	if cfg.UseHostRate {
		useHostRate = 1
	}
	validateOnline := 0
	if cfg.ValidateOnline {
		validateOnline = 1
	}

	now := time.Now().UTC()

	query := `
		INSERT INTO scheme_configs (
			store_id, enabled, merchant_country, base_currency,
			import_threshold, exchange_rate, use_host_rate,
			validate_online, environment, access_token,
			frontend_prompt, registration_number,
			group_domestic, group_import_b2b, group_import_taxed, group_import_untaxed,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(store_id) DO UPDATE SET
			enabled = excluded.enabled,
			merchant_country = excluded.merchant_country,
			base_currency = excluded.base_currency,
			import_threshold = excluded.import_threshold,
			exchange_rate = excluded.exchange_rate,
			use_host_rate = excluded.use_host_rate,
			validate_online = excluded.validate_online,
			environment = excluded.environment,
			access_token = excluded.access_token,
			frontend_prompt = excluded.frontend_prompt,
			registration_number = excluded.registration_number,
			group_domestic = excluded.group_domestic,
			group_import_b2b = excluded.group_import_b2b,
			group_import_taxed = excluded.group_import_taxed,
			group_import_untaxed = excluded.group_import_untaxed,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		storeID, enabled, cfg.MerchantCountry, cfg.BaseCurrency,
		cfg.ImportThreshold, cfg.ExchangeRate, useHostRate,
		validateOnline, string(cfg.Environment), cfg.AccessToken,
		cfg.FrontendPrompt, cfg.RegistrationNumber,
		cfg.GroupDomestic, cfg.GroupImportB2B, cfg.GroupImportTaxed, cfg.GroupImportUntaxed,
		now, now,
	)
	return err
}

// GetSchemeConfig retrieves the scheme configuration for a store.
func (r *SQLRepository) GetSchemeConfig(ctx context.Context, storeID string) (*domain.SchemeConfig, error) {
	if storeID == "" {
		return nil, fmt.Errorf("%w: storeID is required", ErrInvalidInput)
	}

	query := `
		SELECT store_id, enabled, merchant_country, base_currency,
			   import_threshold, exchange_rate, use_host_rate,
			   validate_online, environment, access_token,
			   frontend_prompt, registration_number,
			   group_domestic, group_import_b2b, group_import_taxed, group_import_untaxed,
			   created_at, updated_at
		FROM scheme_configs
		WHERE store_id = ?
	`

	cfg, err := scanSchemeConfig(r.db.QueryRowContext(ctx, r.rebind(query), storeID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// ListSchemeConfigs retrieves the scheme configurations of all stores.
func (r *SQLRepository) ListSchemeConfigs(ctx context.Context) ([]*domain.SchemeConfig, error) {
	query := `
		SELECT store_id, enabled, merchant_country, base_currency,
			   import_threshold, exchange_rate, use_host_rate,
			   validate_online, environment, access_token,
			   frontend_prompt, registration_number,
			   group_domestic, group_import_b2b, group_import_taxed, group_import_untaxed,
			   created_at, updated_at
		FROM scheme_configs
		ORDER BY store_id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var configs []*domain.SchemeConfig
	for rows.Next() {
		cfg, err := scanSchemeConfig(rows)
		if err != nil {
			return nil, err
		}
		configs = append(configs, cfg)
	}

	return configs, rows.Err()
}

// SaveExchangeRate inserts or replaces a host exchange rate for a store.
func (r *SQLRepository) SaveExchangeRate(ctx context.Context, storeID string, currency string, rate float64) error {
	if storeID == "" {
		return fmt.Errorf("%w: storeID is required", ErrInvalidInput)
	}
	if currency == "" {
		return fmt.Errorf("%w: currency is required", ErrInvalidInput)
	}
	if rate <= 0 {
		return fmt.Errorf("%w: rate must be positive", ErrInvalidInput)
	}

	query := `
		INSERT INTO exchange_rates (store_id, currency, rate, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(store_id, currency) DO UPDATE SET
			rate = excluded.rate,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		storeID, currency, rate, time.Now().UTC(),
	)
	return err
}

// GetExchangeRate retrieves the host exchange rate for a store currency.
func (r *SQLRepository) GetExchangeRate(ctx context.Context, storeID string, currency string) (float64, error) {
	if storeID == "" {
		return 0, fmt.Errorf("%w: storeID is required", ErrInvalidInput)
	}

	query := `
		SELECT rate FROM exchange_rates
		WHERE store_id = ? AND currency = ?
	`

	var rate float64
	err := r.db.QueryRowContext(ctx, r.rebind(query), storeID, currency).Scan(&rate)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return rate, nil
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSchemeConfig(row rowScanner) (*domain.SchemeConfig, error) {
	var cfg domain.SchemeConfig
	var enabled, useHostRate, validateOnline int
	var environment string

	err := row.Scan(
		&cfg.StoreID, &enabled, &cfg.MerchantCountry, &cfg.BaseCurrency,
		&cfg.ImportThreshold, &cfg.ExchangeRate, &useHostRate,
		&validateOnline, &environment, &cfg.AccessToken,
		&cfg.FrontendPrompt, &cfg.RegistrationNumber,
		&cfg.GroupDomestic, &cfg.GroupImportB2B, &cfg.GroupImportTaxed, &cfg.GroupImportUntaxed,
		&cfg.CreatedAt, &cfg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	cfg.Enabled = enabled == 1
	cfg.UseHostRate = useHostRate == 1
	cfg.ValidateOnline = validateOnline == 1
	cfg.Environment = domain.Environment(environment)

	return &cfg, nil
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	// Convert ? to $1, $2, etc.
	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}
