package domain

import (
	"context"
	"errors"
)

// CustomerGroup names one of the four classification outcomes.
type CustomerGroup string

const (
	GroupDomestic      CustomerGroup = "domestic"
	GroupImportB2B     CustomerGroup = "importb2b"
	GroupImportTaxed   CustomerGroup = "importtaxed"
	GroupImportUntaxed CustomerGroup = "importuntaxed"
)

// ErrMerchantCountryNotSet is returned when classification is attempted
// without a configured merchant country. This is a configuration failure
// for the call and is reported distinctly from "no rule matched".
var ErrMerchantCountryNotSet = errors.New("merchant country not set")

// ClassificationInput carries everything the decision table looks at.
// Constructed per classification request.
type ClassificationInput struct {
	MerchantCountry string
	CustomerCountry string

	// CustomerPostCode is part of the contract but unused by the current
	// rules.
	CustomerPostCode string

	TaxIDValidated bool
	OrderValue     float64
	StoreID        string
}

// Outcome is the tagged result of the decision table. Classified is false
// when no rule matched; Reason then says why. A matched rule with no group
// binding configured keeps Classified true and carries a Reason instead of
// a GroupID.
type Outcome struct {
	Classified bool          `json:"classified"`
	Group      CustomerGroup `json:"group,omitempty"`
	GroupID    string        `json:"groupId,omitempty"`
	Reason     string        `json:"reason,omitempty"`
}

// LineItem is the slice of the host cart model the order valuator needs.
type LineItem struct {
	BasePrice          float64 `json:"basePrice"`
	BaseDiscountAmount float64 `json:"baseDiscountAmount"`
	Quantity           float64 `json:"qty"`
}

// ErrRateNotConfigured is returned by a RateSource when no rate exists for
// the requested currency pair. The caller substitutes 1.0 and logs.
var ErrRateNotConfigured = errors.New("exchange rate not configured")

// RateSource is the host exchange-rate collaborator: given a currency
// pair it returns how many units of `to` one unit of `from` buys.
type RateSource interface {
	Rate(ctx context.Context, storeID, from, to string) (float64, error)
}
