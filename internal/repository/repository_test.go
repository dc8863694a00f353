package repository

import (
	"context"
	"os"
	"testing"

	"github.com/opensource-commerce/kea/internal/domain"
)

func TestSQLiteRepository(t *testing.T) {
	// Create temp database file
	tmpFile, err := os.CreateTemp("", "kea-test-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()
	defer os.Remove(tmpPath)

	cfg := domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: tmpPath,
	}

	repo, err := New(cfg)
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	defer repo.Close()

	ctx := context.Background()
	storeID := "store-001"

	t.Run("Ping", func(t *testing.T) {
		if err := repo.Ping(ctx); err != nil {
			t.Errorf("Ping failed: %v", err)
		}
	})

	t.Run("SaveAndGetSchemeConfig", func(t *testing.T) {
		cfg := &domain.SchemeConfig{
			Enabled:            true,
			MerchantCountry:    "US",
			BaseCurrency:       "USD",
			ImportThreshold:    1000,
			ExchangeRate:       0.62,
			ValidateOnline:     true,
			Environment:        domain.EnvironmentSandbox,
			AccessToken:        "token-001",
			GroupDomestic:      "4",
			GroupImportB2B:     "5",
			GroupImportTaxed:   "6",
			GroupImportUntaxed: "7",
		}

		if err := repo.SaveSchemeConfig(ctx, storeID, cfg); err != nil {
			t.Fatalf("SaveSchemeConfig failed: %v", err)
		}

		retrieved, err := repo.GetSchemeConfig(ctx, storeID)
		if err != nil {
			t.Fatalf("GetSchemeConfig failed: %v", err)
		}

		if retrieved.StoreID != storeID {
			t.Errorf("expected StoreID %s, got %s", storeID, retrieved.StoreID)
		}
		if !retrieved.Enabled {
			t.Error("expected Enabled true")
		}
		if retrieved.MerchantCountry != "US" {
			t.Errorf("expected MerchantCountry US, got %s", retrieved.MerchantCountry)
		}
		if retrieved.ImportThreshold != 1000 {
			t.Errorf("expected ImportThreshold 1000, got %v", retrieved.ImportThreshold)
		}
		if retrieved.Environment != domain.EnvironmentSandbox {
			t.Errorf("expected Environment sandbox, got %s", retrieved.Environment)
		}
		if retrieved.GroupImportUntaxed != "7" {
			t.Errorf("expected GroupImportUntaxed 7, got %s", retrieved.GroupImportUntaxed)
		}
	})

	t.Run("UpsertSchemeConfig", func(t *testing.T) {
		cfg := &domain.SchemeConfig{
			Enabled:         false,
			MerchantCountry: "GB",
			BaseCurrency:    "GBP",
			ImportThreshold: 1000,
		}

		if err := repo.SaveSchemeConfig(ctx, storeID, cfg); err != nil {
			t.Fatalf("SaveSchemeConfig failed: %v", err)
		}

		retrieved, err := repo.GetSchemeConfig(ctx, storeID)
		if err != nil {
			t.Fatalf("GetSchemeConfig failed: %v", err)
		}
		if retrieved.Enabled {
			t.Error("expected Enabled false after update")
		}
		if retrieved.MerchantCountry != "GB" {
			t.Errorf("expected MerchantCountry GB, got %s", retrieved.MerchantCountry)
		}
	})

	t.Run("StoreIsolation", func(t *testing.T) {
		_, err := repo.GetSchemeConfig(ctx, "store-002")
		if err != ErrNotFound {
			t.Errorf("expected ErrNotFound for different store, got: %v", err)
		}
	})

	t.Run("RequiresStoreID", func(t *testing.T) {
		err := repo.SaveSchemeConfig(ctx, "", &domain.SchemeConfig{})
		if err == nil {
			t.Error("expected error for empty storeID")
		}

		_, err = repo.GetSchemeConfig(ctx, "")
		if err == nil {
			t.Error("expected error for empty storeID")
		}
	})

	t.Run("ListSchemeConfigs", func(t *testing.T) {
		other := &domain.SchemeConfig{
			Enabled:         true,
			MerchantCountry: "NZ",
			BaseCurrency:    "NZD",
			ImportThreshold: 1000,
		}
		if err := repo.SaveSchemeConfig(ctx, "store-002", other); err != nil {
			t.Fatalf("SaveSchemeConfig failed: %v", err)
		}

		configs, err := repo.ListSchemeConfigs(ctx)
		if err != nil {
			t.Fatalf("ListSchemeConfigs failed: %v", err)
		}
		if len(configs) != 2 {
			t.Errorf("expected 2 configs, got %d", len(configs))
		}
	})

	t.Run("SaveAndGetExchangeRate", func(t *testing.T) {
		if err := repo.SaveExchangeRate(ctx, storeID, "USD", 0.62); err != nil {
			t.Fatalf("SaveExchangeRate failed: %v", err)
		}

		rate, err := repo.GetExchangeRate(ctx, storeID, "USD")
		if err != nil {
			t.Fatalf("GetExchangeRate failed: %v", err)
		}
		if rate != 0.62 {
			t.Errorf("expected rate 0.62, got %v", rate)
		}

		// Upsert replaces
		if err := repo.SaveExchangeRate(ctx, storeID, "USD", 0.60); err != nil {
			t.Fatalf("SaveExchangeRate failed: %v", err)
		}
		rate, err = repo.GetExchangeRate(ctx, storeID, "USD")
		if err != nil {
			t.Fatalf("GetExchangeRate failed: %v", err)
		}
		if rate != 0.60 {
			t.Errorf("expected rate 0.60 after upsert, got %v", rate)
		}
	})

	t.Run("ExchangeRateValidation", func(t *testing.T) {
		if err := repo.SaveExchangeRate(ctx, storeID, "USD", 0); err == nil {
			t.Error("expected error for non-positive rate")
		}
		if err := repo.SaveExchangeRate(ctx, storeID, "", 1.0); err == nil {
			t.Error("expected error for empty currency")
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		_, err := repo.GetSchemeConfig(ctx, "nonexistent")
		if err != ErrNotFound {
			t.Errorf("expected ErrNotFound, got: %v", err)
		}

		_, err = repo.GetExchangeRate(ctx, storeID, "EUR")
		if err != ErrNotFound {
			t.Errorf("expected ErrNotFound, got: %v", err)
		}
	})
}

func TestUnsupportedDriver(t *testing.T) {
	cfg := domain.RepositoryConfig{
		Driver: "mysql",
	}

	_, err := New(cfg)
	if err == nil {
		t.Error("expected error for unsupported driver")
	}
}

func TestRebind(t *testing.T) {
	repo := &SQLRepository{driver: "postgres"}

	tests := []struct {
		input    string
		expected string
	}{
		{"SELECT * FROM t WHERE id = ?", "SELECT * FROM t WHERE id = $1"},
		{"INSERT INTO t (a, b) VALUES (?, ?)", "INSERT INTO t (a, b) VALUES ($1, $2)"},
		{"SELECT * FROM t", "SELECT * FROM t"},
	}

	for _, tt := range tests {
		result := repo.rebind(tt.input)
		if result != tt.expected {
			t.Errorf("rebind(%q) = %q, want %q", tt.input, result, tt.expected)
		}
	}
}
