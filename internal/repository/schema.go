package repository

// Schema definitions for the Kea database.
// Compatible with both SQLite and PostgreSQL.

const schemaSchemeConfigs = `
CREATE TABLE IF NOT EXISTS scheme_configs (
    store_id TEXT PRIMARY KEY,
    enabled INTEGER NOT NULL DEFAULT 0,
    merchant_country TEXT NOT NULL DEFAULT '',
    base_currency TEXT NOT NULL DEFAULT 'NZD',
    import_threshold REAL NOT NULL DEFAULT 1000,
    exchange_rate REAL NOT NULL DEFAULT 1.0,
    use_host_rate INTEGER NOT NULL DEFAULT 0,
    validate_online INTEGER NOT NULL DEFAULT 0,
    environment TEXT NOT NULL DEFAULT 'sandbox',
    access_token TEXT NOT NULL DEFAULT '',
    frontend_prompt TEXT NOT NULL DEFAULT '',
    registration_number TEXT NOT NULL DEFAULT '',
    group_domestic TEXT NOT NULL DEFAULT '',
    group_import_b2b TEXT NOT NULL DEFAULT '',
    group_import_taxed TEXT NOT NULL DEFAULT '',
    group_import_untaxed TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_scheme_configs_enabled ON scheme_configs(enabled);
`

const schemaExchangeRates = `
CREATE TABLE IF NOT EXISTS exchange_rates (
    store_id TEXT NOT NULL,
    currency TEXT NOT NULL,
    rate REAL NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (store_id, currency)
);

CREATE INDEX IF NOT EXISTS idx_exchange_rates_store ON exchange_rates(store_id);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaSchemeConfigs,
		schemaExchangeRates,
	}
}
