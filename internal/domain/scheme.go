// Package domain defines the core interfaces and types for Kea.
package domain

import (
	"time"
)

// Fixed identity of the single tax scheme this service evaluates.
const (
	// SchemeID is the scheme code used in configuration and events.
	SchemeID = "newzealandgst"

	// SchemeName is the human-readable scheme name.
	SchemeName = "New Zealand GST Scheme for Low Value Imports"

	// SchemeCurrency is the currency all thresholds and order values are
	// expressed in.
	SchemeCurrency = "NZD"
)

// SchemeCountries is the fixed country set of the scheme.
var SchemeCountries = []string{"NZ"}

// InSchemeCountry reports whether a country code belongs to the scheme.
func InSchemeCountry(countryCode string) bool {
	for _, c := range SchemeCountries {
		if c == countryCode {
			return true
		}
	}
	return false
}

// Environment selects which NZBN registry the service talks to.
type Environment string

const (
	EnvironmentSandbox    Environment = "sandbox"
	EnvironmentProduction Environment = "production"
)

// SchemeConfig is the per-store scheme configuration. It is resolved once
// per request by the caller and passed into the classification and tax-id
// check calls; the engine never reaches into ambient configuration.
type SchemeConfig struct {
	StoreID string `json:"storeId"`
	Enabled bool   `json:"enabled"`

	// MerchantCountry is the merchant's country of establishment.
	MerchantCountry string `json:"merchantCountry"`

	// BaseCurrency is the store's base currency, used when converting
	// order values into the scheme currency.
	BaseCurrency string `json:"baseCurrency"`

	// ImportThreshold is the scheme-currency value above which an imported
	// order is taxed at the border rather than at checkout.
	ImportThreshold float64 `json:"importThreshold"`

	// Exchange rate from the scheme currency to the base currency. Used
	// when UseHostRate is false; otherwise the host rate table is consulted.
	ExchangeRate float64 `json:"exchangeRate"`
	UseHostRate  bool    `json:"useHostRate"`

	// Online validation against the NZBN registry.
	ValidateOnline bool        `json:"validateOnline"`
	Environment    Environment `json:"environment"`
	AccessToken    string      `json:"accessToken"`

	// FrontendPrompt is shown next to the tax-id field at checkout.
	FrontendPrompt string `json:"frontendPrompt"`

	// RegistrationNumber is the merchant's own GST registration number.
	RegistrationNumber string `json:"registrationNumber"`

	// Customer group bindings for the four classification outcomes.
	GroupDomestic      string `json:"groupDomestic"`
	GroupImportB2B     string `json:"groupImportB2B"`
	GroupImportTaxed   string `json:"groupImportTaxed"`
	GroupImportUntaxed string `json:"groupImportUntaxed"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
