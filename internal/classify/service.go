package classify

import (
	"context"
	"errors"
	"log/slog"

	"github.com/opensource-commerce/kea/internal/domain"
	"github.com/opensource-commerce/kea/internal/ordervalue"
	"github.com/opensource-commerce/kea/internal/taxcheck"
)

// OrderInput describes an order to classify. TaxID may be empty; the
// classification then falls through to the value-based rules.
type OrderInput struct {
	StoreID          string            `json:"storeId"`
	CustomerCountry  string            `json:"customerCountry"`
	CustomerPostCode string            `json:"customerPostCode,omitempty"`
	TaxID            string            `json:"taxId,omitempty"`
	Items            []domain.LineItem `json:"items"`
}

// Result is the full classification of an order, including the
// intermediate values the decision was based on.
type Result struct {
	Outcome      domain.Outcome           `json:"outcome"`
	OrderValue   float64                  `json:"orderValue"`
	ExchangeRate float64                  `json:"exchangeRate"`
	TaxIDCheck   *domain.TaxIdCheckResult `json:"taxIdCheck,omitempty"`
}

// Service classifies orders. It composes the tax-id check with the order
// value computation and the group decision.
type Service struct {
	checker *taxcheck.Service
	rates   domain.RateSource
}

func NewService(checker *taxcheck.Service, rates domain.RateSource) *Service {
	return &Service{
		checker: checker,
		rates:   rates,
	}
}

// ClassifyOrder classifies a single order under the store's scheme
// configuration. The tax-id check only runs when a tax id was supplied.
func (s *Service) ClassifyOrder(ctx context.Context, cfg *domain.SchemeConfig, in *OrderInput) (*Result, error) {
	result := &Result{
		ExchangeRate: s.schemeExchangeRate(ctx, cfg, in.StoreID),
	}
	result.OrderValue = ordervalue.Compute(in.Items, result.ExchangeRate)

	taxIDValidated := false
	if in.TaxID != "" {
		result.TaxIDCheck = s.checker.CheckTaxID(ctx, cfg, in.CustomerCountry, in.TaxID)
		taxIDValidated = result.TaxIDCheck.IsValid
	}

	outcome, err := CustomerGroup(domain.ClassificationInput{
		MerchantCountry:  cfg.MerchantCountry,
		CustomerCountry:  in.CustomerCountry,
		CustomerPostCode: in.CustomerPostCode,
		TaxIDValidated:   taxIDValidated,
		OrderValue:       result.OrderValue,
		StoreID:          in.StoreID,
	}, cfg)
	if err != nil {
		return nil, err
	}
	result.Outcome = outcome

	return result, nil
}

// schemeExchangeRate resolves the rate used to convert order values from
// the store's base currency into the scheme currency. A host rate that
// cannot be resolved falls back to 1.0 rather than failing the
// classification.
func (s *Service) schemeExchangeRate(ctx context.Context, cfg *domain.SchemeConfig, storeID string) float64 {
	if !cfg.UseHostRate {
		if cfg.ExchangeRate > 0 {
			return cfg.ExchangeRate
		}
		return 1.0
	}

	rate, err := s.rates.Rate(ctx, storeID, domain.SchemeCurrency, cfg.BaseCurrency)
	if err != nil {
		if errors.Is(err, domain.ErrRateNotConfigured) {
			slog.Error("no exchange rate configured, using 1.0",
				"store_id", storeID,
				"currency", cfg.BaseCurrency,
			)
		} else {
			slog.Error("host exchange rate lookup failed, using 1.0",
				"store_id", storeID,
				"currency", cfg.BaseCurrency,
				"error", err,
			)
		}
		return 1.0
	}
	return rate
}
