// Package services contains HTTP clients for the remote collaborators the
// vault consumes: the key store and the service catalog.
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"agent-vault/models"
	"agent-vault/observability"
)

// KeyStoreClient talks to the remote credential key store over HTTP. Raw
// secret values travel only in upsert request bodies; every response carries
// masked previews produced by the server.
type KeyStoreClient struct {
	baseURL    string
	apiToken   string
	httpClient *http.Client
}

// NewKeyStoreClient creates a new KeyStoreClient instance
func NewKeyStoreClient(baseURL, apiToken string, timeout time.Duration) *KeyStoreClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &KeyStoreClient{
		baseURL:    baseURL,
		apiToken:   apiToken,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// listKeysResponse is the key store's list payload
type listKeysResponse struct {
	Keys []models.APIKey `json:"keys"`
}

// ListKeys fetches the full current key set. There is no pagination; the key
// store always returns the complete set.
func (c *KeyStoreClient) ListKeys(ctx context.Context) ([]models.APIKey, error) {
	metrics := observability.GetMetrics()
	metrics.RecordKeyStoreRequest("list")
	start := time.Now()

	keys, err := WithCircuitBreaker(ctx, BreakerKeyStore, func() ([]models.APIKey, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/keys", nil)
		if err != nil {
			return nil, err
		}
		c.setHeaders(req)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			metrics.RecordKeyStoreError("list", "network")
			return nil, fmt.Errorf("failed to fetch keys: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			metrics.RecordKeyStoreError("list", "status")
			return nil, fmt.Errorf("key store returned status %d", resp.StatusCode)
		}

		var listResp listKeysResponse
		if err := json.NewDecoder(resp.Body).Decode(&listResp); err != nil {
			metrics.RecordKeyStoreError("list", "decode")
			return nil, fmt.Errorf("failed to decode keys: %w", err)
		}
		return listResp.Keys, nil
	})

	metrics.RecordKeyStoreDuration("list", time.Since(start))
	return keys, err
}

// UpsertKey creates or replaces the credential stored under keyName and
// returns the resulting record, masked preview included.
func (c *KeyStoreClient) UpsertKey(ctx context.Context, keyName, value string) (*models.APIKey, error) {
	metrics := observability.GetMetrics()
	metrics.RecordKeyStoreRequest("upsert")
	start := time.Now()

	rec, err := WithCircuitBreaker(ctx, BreakerKeyStore, func() (*models.APIKey, error) {
		body, err := json.Marshal(models.UpsertKeyRequest{KeyName: keyName, Value: value})
		if err != nil {
			return nil, fmt.Errorf("failed to encode upsert request: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+"/v1/keys", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		c.setHeaders(req)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			metrics.RecordKeyStoreError("upsert", "network")
			return nil, fmt.Errorf("failed to upsert key: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
			metrics.RecordKeyStoreError("upsert", "status")
			return nil, fmt.Errorf("key store returned status %d", resp.StatusCode)
		}

		var rec models.APIKey
		if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
			metrics.RecordKeyStoreError("upsert", "decode")
			return nil, fmt.Errorf("failed to decode key record: %w", err)
		}
		return &rec, nil
	})

	metrics.RecordKeyStoreDuration("upsert", time.Since(start))
	return rec, err
}

// DeleteKey removes the credential stored under keyName. A missing key is an
// error, not a silent success.
func (c *KeyStoreClient) DeleteKey(ctx context.Context, keyName string) error {
	metrics := observability.GetMetrics()
	metrics.RecordKeyStoreRequest("delete")
	start := time.Now()

	_, err := WithCircuitBreaker(ctx, BreakerKeyStore, func() (struct{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodDelete,
			c.baseURL+"/v1/keys/"+url.PathEscape(keyName), nil)
		if err != nil {
			return struct{}{}, err
		}
		c.setHeaders(req)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			metrics.RecordKeyStoreError("delete", "network")
			return struct{}{}, fmt.Errorf("failed to delete key: %w", err)
		}
		defer resp.Body.Close()

		switch resp.StatusCode {
		case http.StatusOK, http.StatusNoContent:
			return struct{}{}, nil
		case http.StatusNotFound:
			metrics.RecordKeyStoreError("delete", "not_found")
			return struct{}{}, fmt.Errorf("key %s not found", keyName)
		default:
			metrics.RecordKeyStoreError("delete", "status")
			return struct{}{}, fmt.Errorf("key store returned status %d", resp.StatusCode)
		}
	})

	metrics.RecordKeyStoreDuration("delete", time.Since(start))
	return err
}

func (c *KeyStoreClient) setHeaders(req *http.Request) {
	if c.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiToken)
	}
}
