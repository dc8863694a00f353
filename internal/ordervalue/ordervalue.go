// Package ordervalue computes an order's taxable value in the scheme
// currency.
package ordervalue

import "github.com/opensource-commerce/kea/internal/domain"

// Compute returns the order value used for the import-threshold comparison.
//
// Where an order mixes items below and above the threshold, the IRD's
// "Selling goods to consumers in New Zealand" guide recommends charging
// GST on the low value items only. That split is too complex to handle
// here, so if any single item is above the threshold the whole order is
// treated as above it and GST is collected at the border instead. Only the
// most expensive single item therefore matters: the value is the maximum
// per-unit discounted price across all line items, not their sum.
//
// The exchange rate expresses base-currency units per unit of scheme
// currency; the price is divided by it. No rounding is applied; callers
// compare with tolerance.
func Compute(items []domain.LineItem, exchangeRate float64) float64 {
	mostExpensive := 0.0
	for _, item := range items {
		price := item.BasePrice
		if item.Quantity > 0 {
			price -= item.BaseDiscountAmount / item.Quantity
		}
		if price > mostExpensive {
			mostExpensive = price
		}
	}
	return mostExpensive / exchangeRate
}
