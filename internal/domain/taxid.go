package domain

import (
	"context"
	"errors"
	"time"
)

// TaxIdCheckResult is the structured outcome of a tax-id validation.
//
// RequestSuccess distinguishes "we got a definitive answer" (valid or
// invalid) from "the check itself failed to run" (network or configuration
// error). A result is created fresh per check and never mutated after it
// is returned.
type TaxIdCheckResult struct {
	IsValid        bool   `json:"isValid"`
	RequestSuccess bool   `json:"requestSuccess"`
	Message        string `json:"message"`

	// Set only when a registry record validated the identifier.
	RequestDate       *time.Time `json:"requestDate,omitempty"`
	RequestIdentifier string     `json:"requestIdentifier,omitempty"`
}

// RegistrationRecord is one GST registration returned by the NZBN registry
// for an entity. An NZBN may map to zero or more records over time
// (re-registrations).
type RegistrationRecord struct {
	UniqueIdentifier string `json:"uniqueIdentifier"`
	GSTNumber        string `json:"gstNumber"`

	// StartDate is an ISO-8601 lexical date string as returned by the
	// registry; it is compared lexically, not parsed.
	StartDate string `json:"startDate"`
}

// ErrNZBNNotFound is returned by a RegistryLookup when the registry has no
// entity for the requested NZBN (HTTP 404). It is a definitive negative
// result, not a communication failure.
var ErrNZBNNotFound = errors.New("nzbn not found")

// RegistryLookup fetches the GST registrations recorded against an NZBN.
// The production implementation is HTTP-backed; tests substitute fakes.
type RegistryLookup interface {
	GSTRegistrations(ctx context.Context, storeID string, env Environment, accessToken, nzbn string) ([]RegistrationRecord, error)
}
