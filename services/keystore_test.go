package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"agent-vault/models"
)

// freshRegistry isolates the global breaker state per test.
func freshRegistry(t *testing.T) {
	t.Helper()
	SetGlobalRegistry(NewCircuitBreakerRegistry(DefaultCircuitBreakerConfig))
}

func TestListKeys(t *testing.T) {
	freshRegistry(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/v1/keys" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Authorization = %q, want bearer token", got)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"keys": []models.APIKey{
				{KeyName: "FOO_KEY", KeyPreview: "sk-t...123", UpdatedAt: time.Now().UTC()},
			},
		})
	}))
	defer srv.Close()

	client := NewKeyStoreClient(srv.URL, "test-token", 5*time.Second)
	keys, err := client.ListKeys(context.Background())
	if err != nil {
		t.Fatalf("ListKeys() error = %v", err)
	}
	if len(keys) != 1 || keys[0].KeyName != "FOO_KEY" {
		t.Errorf("ListKeys() = %+v, want one FOO_KEY", keys)
	}
	if keys[0].KeyPreview != "sk-t...123" {
		t.Errorf("KeyPreview = %q, want server-provided mask", keys[0].KeyPreview)
	}
}

func TestListKeysNoToken(t *testing.T) {
	freshRegistry(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "" {
			t.Errorf("Authorization = %q, want no header without a token", got)
		}
		json.NewEncoder(w).Encode(map[string]any{"keys": []models.APIKey{}})
	}))
	defer srv.Close()

	client := NewKeyStoreClient(srv.URL, "", 5*time.Second)
	if _, err := client.ListKeys(context.Background()); err != nil {
		t.Fatalf("ListKeys() error = %v", err)
	}
}

func TestListKeysServerError(t *testing.T) {
	freshRegistry(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewKeyStoreClient(srv.URL, "", 5*time.Second)
	_, err := client.ListKeys(context.Background())
	if err == nil {
		t.Fatal("ListKeys() should fail on a 500")
	}
	if !strings.Contains(err.Error(), "status 500") {
		t.Errorf("error = %v, want status in message", err)
	}
}

func TestUpsertKey(t *testing.T) {
	freshRegistry(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/v1/keys" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var req models.UpsertKeyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding body: %v", err)
		}
		if req.KeyName != "FOO_KEY" || req.Value != "sk-test-123" {
			t.Errorf("body = %+v", req)
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(models.APIKey{
			KeyName:    req.KeyName,
			KeyPreview: "sk-t...123",
			UpdatedAt:  time.Now().UTC(),
		})
	}))
	defer srv.Close()

	client := NewKeyStoreClient(srv.URL, "", 5*time.Second)
	rec, err := client.UpsertKey(context.Background(), "FOO_KEY", "sk-test-123")
	if err != nil {
		t.Fatalf("UpsertKey() error = %v", err)
	}
	if rec.KeyName != "FOO_KEY" {
		t.Errorf("KeyName = %q", rec.KeyName)
	}
	if rec.KeyPreview == "sk-test-123" {
		t.Error("KeyPreview must never echo the raw value")
	}
}

func TestUpsertKeyServerError(t *testing.T) {
	freshRegistry(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	client := NewKeyStoreClient(srv.URL, "", 5*time.Second)
	if _, err := client.UpsertKey(context.Background(), "FOO_KEY", "v"); err == nil {
		t.Fatal("UpsertKey() should fail on a 400")
	}
}

func TestDeleteKey(t *testing.T) {
	freshRegistry(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/v1/keys/FOO_KEY" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client := NewKeyStoreClient(srv.URL, "", 5*time.Second)
	if err := client.DeleteKey(context.Background(), "FOO_KEY"); err != nil {
		t.Fatalf("DeleteKey() error = %v", err)
	}
}

func TestDeleteKeyNotFound(t *testing.T) {
	freshRegistry(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewKeyStoreClient(srv.URL, "", 5*time.Second)
	err := client.DeleteKey(context.Background(), "MISSING_KEY")
	if err == nil {
		t.Fatal("DeleteKey() should fail on a 404")
	}
	if !strings.Contains(err.Error(), "MISSING_KEY") {
		t.Errorf("error = %v, want the key name in the message", err)
	}
}

func TestDefaultTimeout(t *testing.T) {
	client := NewKeyStoreClient("http://localhost:0", "", 0)
	if client.httpClient.Timeout != 30*time.Second {
		t.Errorf("timeout = %v, want 30s default", client.httpClient.Timeout)
	}
}
