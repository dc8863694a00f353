package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/opensource-commerce/kea/internal/classify"
	"github.com/opensource-commerce/kea/internal/domain"
	"github.com/opensource-commerce/kea/internal/repository"
	"github.com/opensource-commerce/kea/internal/taxcheck"
)

// Handler holds dependencies for API handlers.
type Handler struct {
	repo       domain.Repository
	cache      domain.Cache
	bus        domain.EventBus
	classifier *classify.Service
	checker    *taxcheck.Service
	version    string
}

// NewHandler creates a new API handler.
func NewHandler(repo domain.Repository, cache domain.Cache, bus domain.EventBus, classifier *classify.Service, checker *taxcheck.Service, version string) *Handler {
	return &Handler{
		repo:       repo,
		cache:      cache,
		bus:        bus,
		classifier: classifier,
		checker:    checker,
		version:    version,
	}
}

// ClassifyResponse is the response for POST /classify.
type ClassifyResponse struct {
	Outcome      domain.Outcome           `json:"outcome"`
	OrderValue   float64                  `json:"orderValue"`
	ExchangeRate float64                  `json:"exchangeRate"`
	TaxIDCheck   *domain.TaxIdCheckResult `json:"taxIdCheck,omitempty"`
	Metadata     struct {
		TraceID string `json:"traceId"`
		TotalMs int64  `json:"totalMs"`
		Version string `json:"version"`
	} `json:"metadata"`
}

// Classify handles POST /classify requests.
func (h *Handler) Classify(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	storeID := GetStoreID(ctx)
	traceID := GetTraceID(ctx)

	var req classify.OrderInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}
	req.StoreID = storeID

	if req.CustomerCountry == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "customerCountry is required",
		})
		return
	}

	cfg, ok := h.loadConfig(w, r, storeID)
	if !ok {
		return
	}

	result, err := h.classifier.ClassifyOrder(ctx, cfg, &req)
	if err != nil {
		if errors.Is(err, domain.ErrMerchantCountryNotSet) {
			slog.Error("merchant country not configured", "store_id", storeID)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "merchant country not configured",
			})
			return
		}
		slog.Error("classification failed", "store_id", storeID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "classification failed",
		})
		return
	}

	if result.TaxIDCheck != nil {
		h.publishTaxIDChecked(r, storeID, req.CustomerCountry, req.TaxID, result.TaxIDCheck)
	}
	h.publishOrderClassified(r, storeID, req.CustomerCountry, result)

	resp := ClassifyResponse{
		Outcome:      result.Outcome,
		OrderValue:   result.OrderValue,
		ExchangeRate: result.ExchangeRate,
		TaxIDCheck:   result.TaxIDCheck,
	}
	resp.Metadata.TraceID = traceID
	resp.Metadata.TotalMs = time.Since(start).Milliseconds()
	resp.Metadata.Version = h.version

	writeJSON(w, http.StatusOK, resp)
}

// TaxIDCheckRequest is the request body for POST /taxid/check.
type TaxIDCheckRequest struct {
	CountryCode string `json:"countryCode"`
	TaxID       string `json:"taxId"`
}

// CheckTaxID handles POST /taxid/check requests.
func (h *Handler) CheckTaxID(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	storeID := GetStoreID(ctx)

	var req TaxIDCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if req.CountryCode == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "countryCode is required",
		})
		return
	}

	cfg, ok := h.loadConfig(w, r, storeID)
	if !ok {
		return
	}

	result := h.checker.CheckTaxID(ctx, cfg, req.CountryCode, req.TaxID)
	h.publishTaxIDChecked(r, storeID, req.CountryCode, req.TaxID, result)

	writeJSON(w, http.StatusOK, result)
}

// SchemeResponse is the response for GET /scheme.
type SchemeResponse struct {
	SchemeID           string   `json:"schemeId"`
	SchemeName         string   `json:"schemeName"`
	SchemeCurrency     string   `json:"schemeCurrency"`
	SchemeCountries    []string `json:"schemeCountries"`
	ImportThreshold    float64  `json:"importThreshold"`
	FrontendPrompt     string   `json:"frontendPrompt,omitempty"`
	RegistrationNumber string   `json:"registrationNumber,omitempty"`
}

// GetScheme returns the scheme's identity and the store-facing fields of
// its configuration.
func (h *Handler) GetScheme(w http.ResponseWriter, r *http.Request) {
	storeID := GetStoreID(r.Context())

	resp := SchemeResponse{
		SchemeID:        domain.SchemeID,
		SchemeName:      domain.SchemeName,
		SchemeCurrency:  domain.SchemeCurrency,
		SchemeCountries: domain.SchemeCountries,
	}

	cfg, err := h.repo.GetSchemeConfig(r.Context(), storeID)
	if err == nil {
		resp.ImportThreshold = cfg.ImportThreshold
		resp.FrontendPrompt = cfg.FrontendPrompt
		resp.RegistrationNumber = cfg.RegistrationNumber
	} else if !errors.Is(err, repository.ErrNotFound) {
		slog.Error("failed to get scheme config", "store_id", storeID, "error", err)
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetConfig retrieves the store's scheme configuration.
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	storeID := GetStoreID(r.Context())

	cfg, err := h.repo.GetSchemeConfig(r.Context(), storeID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error": "scheme not configured for store",
			})
			return
		}
		slog.Error("failed to get scheme config", "store_id", storeID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to load configuration",
		})
		return
	}

	writeJSON(w, http.StatusOK, cfg)
}

// UpdateConfig stores the store's scheme configuration.
func (h *Handler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	storeID := GetStoreID(ctx)

	var cfg domain.SchemeConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if cfg.ImportThreshold < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "importThreshold must not be negative",
		})
		return
	}
	switch cfg.Environment {
	case "", domain.EnvironmentSandbox, domain.EnvironmentProduction:
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "environment must be sandbox or production",
		})
		return
	}

	if err := h.repo.SaveSchemeConfig(ctx, storeID, &cfg); err != nil {
		slog.Error("failed to save scheme config", "store_id", storeID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to save configuration",
		})
		return
	}

	saved, err := h.repo.GetSchemeConfig(ctx, storeID)
	if err != nil {
		slog.Error("failed to reload scheme config", "store_id", storeID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to reload configuration",
		})
		return
	}

	slog.Info("scheme config updated", "store_id", storeID, "enabled", saved.Enabled)
	writeJSON(w, http.StatusOK, saved)
}

// RateResponse is the response for GET /rates/{currency}.
type RateResponse struct {
	Currency string  `json:"currency"`
	Rate     float64 `json:"rate"`
}

// GetRate retrieves the host exchange rate from the scheme currency to the
// requested currency.
func (h *Handler) GetRate(w http.ResponseWriter, r *http.Request) {
	storeID := GetStoreID(r.Context())
	currency := strings.ToUpper(chi.URLParam(r, "currency"))

	rate, err := h.repo.GetExchangeRate(r.Context(), storeID, currency)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error": "rate not configured",
			})
			return
		}
		slog.Error("failed to get exchange rate", "store_id", storeID, "currency", currency, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to load rate",
		})
		return
	}

	writeJSON(w, http.StatusOK, RateResponse{Currency: currency, Rate: rate})
}

// UpdateRateRequest is the request body for PUT /rates/{currency}.
type UpdateRateRequest struct {
	Rate float64 `json:"rate"`
}

// UpdateRate stores a host exchange rate for the store.
func (h *Handler) UpdateRate(w http.ResponseWriter, r *http.Request) {
	storeID := GetStoreID(r.Context())
	currency := strings.ToUpper(chi.URLParam(r, "currency"))

	var req UpdateRateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if req.Rate <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "rate must be positive",
		})
		return
	}

	if err := h.repo.SaveExchangeRate(r.Context(), storeID, currency, req.Rate); err != nil {
		slog.Error("failed to save exchange rate", "store_id", storeID, "currency", currency, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to save rate",
		})
		return
	}

	writeJSON(w, http.StatusOK, RateResponse{Currency: currency, Rate: req.Rate})
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	// Check repository health
	if h.repo != nil {
		if err := h.repo.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	// Check cache health
	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": h.version,
	})
}

// Ready returns whether the server is ready to accept traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

// loadConfig resolves the store's scheme configuration and writes the
// error response itself when the scheme is unavailable.
func (h *Handler) loadConfig(w http.ResponseWriter, r *http.Request, storeID string) (*domain.SchemeConfig, bool) {
	cfg, err := h.repo.GetSchemeConfig(r.Context(), storeID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error": "scheme not configured for store",
			})
			return nil, false
		}
		slog.Error("failed to get scheme config", "store_id", storeID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to load configuration",
		})
		return nil, false
	}

	if !cfg.Enabled {
		writeJSON(w, http.StatusConflict, map[string]string{
			"error": "scheme is disabled for store",
		})
		return nil, false
	}

	return cfg, true
}

func (h *Handler) publishTaxIDChecked(r *http.Request, storeID, countryCode, taxID string, result *domain.TaxIdCheckResult) {
	if h.bus == nil {
		return
	}

	event := domain.TaxIDCheckedEvent{
		StoreID:     storeID,
		CountryCode: countryCode,
		TaxID:       taxID,
		Result:      result,
		CheckedAt:   time.Now().UTC(),
	}
	payload, _ := json.Marshal(event)

	if err := h.bus.Publish(r.Context(), storeID, domain.TopicTaxIDChecked, payload); err != nil {
		slog.Error("failed to publish tax-id checked event", "store_id", storeID, "error", err)
	}
}

func (h *Handler) publishOrderClassified(r *http.Request, storeID, customerCountry string, result *classify.Result) {
	if h.bus == nil {
		return
	}

	event := domain.OrderClassifiedEvent{
		StoreID:         storeID,
		CustomerCountry: customerCountry,
		OrderValue:      result.OrderValue,
		Outcome:         result.Outcome,
		ClassifiedAt:    time.Now().UTC(),
	}
	payload, _ := json.Marshal(event)

	if err := h.bus.Publish(r.Context(), storeID, domain.TopicOrderClassified, payload); err != nil {
		slog.Error("failed to publish order classified event", "store_id", storeID, "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
