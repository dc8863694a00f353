// Package rates resolves exchange rates between the scheme currency and a
// store's base currency.
package rates

import (
	"context"
	"errors"
	"fmt"

	"github.com/opensource-commerce/kea/internal/domain"
	"github.com/opensource-commerce/kea/internal/repository"
)

// Store resolves rates from the repository's per-store rate table.
type Store struct {
	repo domain.Repository
}

func NewStore(repo domain.Repository) *Store {
	return &Store{repo: repo}
}

// Rate returns the number of units of `to` per unit of `from`. Only rates
// out of the scheme currency are held, so `from` must be the scheme
// currency; the identity rate is answered without a lookup.
func (s *Store) Rate(ctx context.Context, storeID, from, to string) (float64, error) {
	if from == to {
		return 1.0, nil
	}
	if from != domain.SchemeCurrency {
		return 0, fmt.Errorf("no rate table for currency %s", from)
	}

	rate, err := s.repo.GetExchangeRate(ctx, storeID, to)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, domain.ErrRateNotConfigured
		}
		return 0, fmt.Errorf("get exchange rate: %w", err)
	}
	return rate, nil
}
