package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"agent-vault/catalog"
	"agent-vault/observability"
)

// CatalogClient fetches the service catalog from the key store server. The
// catalog is loaded once per session, at vault activation.
type CatalogClient struct {
	baseURL    string
	apiToken   string
	httpClient *http.Client
}

// NewCatalogClient creates a new CatalogClient instance
func NewCatalogClient(baseURL, apiToken string, timeout time.Duration) *CatalogClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &CatalogClient{
		baseURL:    baseURL,
		apiToken:   apiToken,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// LoadCatalog fetches and validates the catalog document.
func (c *CatalogClient) LoadCatalog(ctx context.Context) (*catalog.Catalog, error) {
	return WithCircuitBreaker(ctx, BreakerCatalog, func() (*catalog.Catalog, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/services", nil)
		if err != nil {
			return nil, err
		}
		if c.apiToken != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiToken)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch catalog: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("catalog endpoint returned status %d", resp.StatusCode)
		}

		var cat catalog.Catalog
		if err := json.NewDecoder(resp.Body).Decode(&cat); err != nil {
			return nil, fmt.Errorf("failed to decode catalog: %w", err)
		}
		if err := cat.Validate(); err != nil {
			observability.Warn("remote catalog failed validation", "error", err)
			return nil, err
		}
		return &cat, nil
	})
}
