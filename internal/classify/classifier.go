// Package classify assigns customers to GST customer groups based on
// merchant location, customer location, tax-id validation and order value.
package classify

import (
	"fmt"

	"github.com/opensource-commerce/kea/internal/domain"
)

// CustomerGroup applies the classification rules in order and returns the
// first match. The rules are fixed by the scheme, not configurable:
//
//  1. merchant and customer both in a scheme country: domestic
//  2. merchant outside, customer inside, validated tax id: import B2B
//  3. merchant outside, customer inside, order value at or below the
//     threshold: import taxed
//  4. merchant outside, customer inside, order value above the threshold:
//     import untaxed
//
// Customers outside the scheme countries are left unclassified. A matched
// rule whose group has no configured binding still counts as classified;
// the outcome carries the group with an empty GroupID and an explanatory
// reason.
func CustomerGroup(in domain.ClassificationInput, cfg *domain.SchemeConfig) (domain.Outcome, error) {
	if in.MerchantCountry == "" {
		return domain.Outcome{}, domain.ErrMerchantCountryNotSet
	}

	merchantIn := domain.InSchemeCountry(in.MerchantCountry)
	customerIn := domain.InSchemeCountry(in.CustomerCountry)

	var group domain.CustomerGroup
	switch {
	case merchantIn && customerIn:
		group = domain.GroupDomestic
	case !merchantIn && customerIn && in.TaxIDValidated:
		group = domain.GroupImportB2B
	case !merchantIn && customerIn && in.OrderValue <= cfg.ImportThreshold:
		group = domain.GroupImportTaxed
	case !merchantIn && customerIn:
		group = domain.GroupImportUntaxed
	default:
		return domain.Outcome{
			Reason: fmt.Sprintf("customer country %q is not in the scheme", in.CustomerCountry),
		}, nil
	}

	outcome := domain.Outcome{
		Classified: true,
		Group:      group,
		GroupID:    groupBinding(group, cfg),
	}
	if outcome.GroupID == "" {
		outcome.Reason = fmt.Sprintf("no customer group configured for %s", group)
	}
	return outcome, nil
}

func groupBinding(group domain.CustomerGroup, cfg *domain.SchemeConfig) string {
	switch group {
	case domain.GroupDomestic:
		return cfg.GroupDomestic
	case domain.GroupImportB2B:
		return cfg.GroupImportB2B
	case domain.GroupImportTaxed:
		return cfg.GroupImportTaxed
	case domain.GroupImportUntaxed:
		return cfg.GroupImportUntaxed
	}
	return ""
}
