// Package registry provides the HTTP client for the NZBN registry's
// GST-numbers endpoint, plus a caching decorator.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/opensource-commerce/kea/internal/domain"
)

const (
	productionBaseURL = "https://api.business.govt.nz/gateway/nzbn/v5"
	sandboxBaseURL    = "https://api.business.govt.nz/sandbox/nzbn/v5"

	subscriptionKeyHeader = "Ocp-Apim-Subscription-Key"
)

// HTTPError is a non-404, non-2xx response from the registry.
type HTTPError struct {
	StatusCode int
	Status     string
	URL        string
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("GET %s failed with status %d %s: %s", e.URL, e.StatusCode, e.Status, e.Body)
}

// ClientConfig holds settings for the registry client.
type ClientConfig struct {
	// HTTPClient overrides the default transport. The default enforces
	// Timeout; a custom client is expected to bring its own.
	HTTPClient *http.Client

	// Timeout for the single round-trip. Only applied to the default
	// client. Defaults to 10 seconds.
	Timeout time.Duration

	// Base URL overrides, used by tests. Empty values select the real
	// registry endpoints.
	SandboxURL    string
	ProductionURL string
}

// Client performs GST-registration lookups against the NZBN registry.
// It issues a single synchronous GET per lookup with no retries: the
// lookup backs user-facing validation, not a background job, so a failed
// call surfaces immediately.
type Client struct {
	httpClient    *http.Client
	sandboxURL    string
	productionURL string
}

// NewClient creates a registry client.
func NewClient(cfg ClientConfig) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	sandboxURL := cfg.SandboxURL
	if sandboxURL == "" {
		sandboxURL = sandboxBaseURL
	}
	productionURL := cfg.ProductionURL
	if productionURL == "" {
		productionURL = productionBaseURL
	}

	return &Client{
		httpClient:    httpClient,
		sandboxURL:    sandboxURL,
		productionURL: productionURL,
	}
}

// GSTRegistrations fetches the GST registrations recorded against an NZBN.
//
// A 404 means the registry has no such entity and returns
// domain.ErrNZBNNotFound; that is a definitive negative answer, not a
// failure. Any other non-2xx status or a body that does not decode as a
// registration sequence is an error.
func (c *Client) GSTRegistrations(ctx context.Context, storeID string, env domain.Environment, accessToken, nzbn string) ([]domain.RegistrationRecord, error) {
	baseURL := c.sandboxURL
	if env == domain.EnvironmentProduction {
		baseURL = c.productionURL
	}
	url := baseURL + "/entities/" + nzbn + "/gst-numbers"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building registry request: %w", err)
	}
	req.Header.Set(subscriptionKeyHeader, accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling registry: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, domain.ErrNZBNNotFound
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading registry response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		httpErr := &HTTPError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			URL:        url,
			Body:       string(body),
		}
		slog.Error("registry request failed",
			"status", resp.StatusCode,
			"nzbn", nzbn,
			"environment", env,
		)
		return nil, httpErr
	}

	var registrations []domain.RegistrationRecord
	if err := json.Unmarshal(body, &registrations); err != nil {
		slog.Error("could not interpret registry response",
			"nzbn", nzbn,
			"environment", env,
			"error", err,
		)
		return nil, fmt.Errorf("decoding registry response: %w", err)
	}

	return registrations, nil
}
