// Package taxcheck validates a customer's NZBN offline (format plus check
// digit) and, when configured, online against the NZBN registry.
package taxcheck

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/opensource-commerce/kea/internal/checksum"
	"github.com/opensource-commerce/kea/internal/domain"
	"github.com/opensource-commerce/kea/internal/registry"
)

// User-facing result messages.
const (
	msgUnsupportedCountry = "Unsupported country."
	msgNoTaxID            = "You didn't supply a Business Registration Number to check."
	msgFormatOK           = "Business Registration Number is the correct format."
	msgWrongFormat        = "Business Registration Number is not the correct format."
	msgOfflineValid       = "Business Registration Number is validated (Offline)."
	msgOfflineInvalid     = "Business Registration Number is not valid (Offline)."
	msgNoAccessToken      = "No access token."
	msgCommError          = "Error communicating with NZBN API."
	msgCheckError         = "There was an error checking the NZBN number."
	msgNZBNNotFound       = "NZBN Number not found."
	msgNotRegistered      = "GST Number not registered at the NZBN Register for this NZBN."
)

var nzbnFormat = regexp.MustCompile(`^[0-9]{13}$`)

// Service runs the tax-id check state machine. It is stateless; concurrent
// checks for independent orders are safe.
type Service struct {
	registry domain.RegistryLookup
	now      func() time.Time
}

// NewService creates a tax-id check service. A nil clock defaults to
// time.Now.
func NewService(registry domain.RegistryLookup, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		registry: registry,
		now:      now,
	}
}

// CheckTaxID validates taxID for a customer in countryCode under the given
// store configuration.
//
// The result is built through a sequence of gates, any of which is
// terminal: country, presence, format, offline checksum, then (when
// enabled) online registry validation. An online result entirely replaces
// the offline one. RequestSuccess is true whenever a definitive answer was
// reached, even a negative one; it is false only when the check itself
// could not run (missing token, transport failure).
func (s *Service) CheckTaxID(ctx context.Context, cfg *domain.SchemeConfig, countryCode, taxID string) *domain.TaxIdCheckResult {
	if !domain.InSchemeCountry(countryCode) {
		return &domain.TaxIdCheckResult{
			IsValid:        false,
			RequestSuccess: true,
			Message:        msgUnsupportedCountry,
		}
	}

	result := s.validateOffline(taxID)

	if result.IsValid && cfg.ValidateOnline {
		result = s.validateOnline(ctx, cfg, taxID)
	}

	return result
}

// validateOffline runs the presence, format and checksum gates.
func (s *Service) validateOffline(taxID string) *domain.TaxIdCheckResult {
	result := &domain.TaxIdCheckResult{RequestSuccess: true}

	if taxID == "" {
		result.Message = msgNoTaxID
		return result
	}

	if !nzbnFormat.MatchString(taxID) {
		result.Message = msgWrongFormat
		return result
	}
	result.Message = msgFormatOK

	if !checksum.IsValidNZBN(taxID) {
		result.Message = msgOfflineInvalid
		return result
	}

	result.IsValid = true
	result.Message = msgOfflineValid
	return result
}

// validateOnline checks the NZBN against the registry. The returned result
// supersedes the offline result entirely.
func (s *Service) validateOnline(ctx context.Context, cfg *domain.SchemeConfig, taxID string) *domain.TaxIdCheckResult {
	result := &domain.TaxIdCheckResult{}

	if cfg.AccessToken == "" {
		slog.Error("no access token configured for online validation",
			"scheme", domain.SchemeID,
			"store_id", cfg.StoreID,
		)
		result.Message = msgNoAccessToken
		return result
	}

	registrations, err := s.registry.GSTRegistrations(ctx, cfg.StoreID, cfg.Environment, cfg.AccessToken, taxID)
	if err != nil {
		return s.lookupFailure(err, taxID)
	}

	// Definitive negative until a qualifying record is found.
	result.RequestSuccess = true
	result.Message = msgNotRegistered

	now := s.now().UTC()
	today := now.Format("2006-01-02 15:04:05")

	for _, registration := range registrations {
		// A registration qualifies when it has already started and its GST
		// number carries a valid check digit. Records failing either test
		// are skipped, not fatal.
		if registration.StartDate <= today && checksum.IsValidGST(registration.GSTNumber) {
			result.IsValid = true
			result.Message = fmt.Sprintf("GST Registration Number %s is validated for NZBN %s", registration.GSTNumber, taxID)
			result.RequestDate = &now
			result.RequestIdentifier = registration.UniqueIdentifier
			break
		}
	}

	return result
}

func (s *Service) lookupFailure(err error, taxID string) *domain.TaxIdCheckResult {
	result := &domain.TaxIdCheckResult{}

	if errors.Is(err, domain.ErrNZBNNotFound) {
		// Not an error: the registry definitively has no such entity.
		result.RequestSuccess = true
		result.Message = msgNZBNNotFound
		return result
	}

	var httpErr *registry.HTTPError
	if errors.As(err, &httpErr) {
		result.Message = msgCheckError
	} else {
		result.Message = msgCommError
	}

	slog.Error("nzbn registry check failed",
		"nzbn", taxID,
		"error", err,
	)
	return result
}
