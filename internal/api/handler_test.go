package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"agent-vault/catalog"
	"agent-vault/config"
	"agent-vault/models"
	"agent-vault/repository"
	"agent-vault/services"
)

// memStore is an in-memory KeyStore for handler tests.
type memStore struct {
	keys      map[string]models.APIKey
	healthErr error
	listErr   error
	upsertErr error
	deleteErr error
}

func newMemStore() *memStore {
	return &memStore{keys: make(map[string]models.APIKey)}
}

func (m *memStore) Health(ctx context.Context) error { return m.healthErr }

func (m *memStore) ListKeys(ctx context.Context) ([]models.APIKey, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]models.APIKey, 0, len(m.keys))
	for _, k := range m.keys {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].KeyName < out[j].KeyName })
	return out, nil
}

func (m *memStore) UpsertKey(ctx context.Context, keyName, value string) (*models.APIKey, error) {
	if m.upsertErr != nil {
		return nil, m.upsertErr
	}
	rec := models.APIKey{
		KeyName:    keyName,
		KeyPreview: "****",
		UpdatedAt:  time.Now().UTC(),
	}
	if len(value) > 8 {
		rec.KeyPreview = value[:4] + "..." + value[len(value)-3:]
	}
	m.keys[keyName] = rec
	return &rec, nil
}

func (m *memStore) DeleteKey(ctx context.Context, keyName string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, ok := m.keys[keyName]; !ok {
		return repository.ErrKeyNotFound
	}
	delete(m.keys, keyName)
	return nil
}

func testRouter(t *testing.T, store *memStore, cat *catalog.Catalog) http.Handler {
	t.Helper()
	services.SetGlobalRegistry(services.NewCircuitBreakerRegistry(services.DefaultCircuitBreakerConfig))
	return NewRouter(NewHandler(store, cat), config.NewTestConfig())
}

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat := &catalog.Catalog{
		Services: []models.ServiceConfig{
			{
				Label: "OpenAI",
				Keys:  []models.KeySlot{{Name: "OPENAI_API_KEY", Label: "API key"}},
			},
		},
	}
	if err := cat.Validate(); err != nil {
		t.Fatalf("test catalog invalid: %v", err)
	}
	return cat
}

func TestHandleListKeysEmpty(t *testing.T) {
	router := testRouter(t, newMemStore(), nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/keys", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	// An empty vault serves an empty array, never null.
	if !strings.Contains(rec.Body.String(), `"keys":[]`) {
		t.Errorf("body = %s, want empty keys array", rec.Body.String())
	}
}

func TestHandleUpsertAndList(t *testing.T) {
	router := testRouter(t, newMemStore(), nil)

	body, _ := json.Marshal(models.UpsertKeyRequest{KeyName: "FOO_KEY", Value: "sk-test-123"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/v1/keys", bytes.NewReader(body)))

	if rec.Code != http.StatusOK {
		t.Fatalf("upsert status = %d, body %s", rec.Code, rec.Body.String())
	}
	var stored models.APIKey
	if err := json.Unmarshal(rec.Body.Bytes(), &stored); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if stored.KeyName != "FOO_KEY" {
		t.Errorf("KeyName = %q", stored.KeyName)
	}
	if strings.Contains(rec.Body.String(), "sk-test-123") {
		t.Error("response must not echo the raw value")
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/keys", nil))
	var listed struct {
		Keys []models.APIKey `json:"keys"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &listed); err != nil {
		t.Fatalf("decoding list: %v", err)
	}
	if len(listed.Keys) != 1 || listed.Keys[0].KeyName != "FOO_KEY" {
		t.Errorf("list = %+v", listed.Keys)
	}
}

func TestHandleUpsertValidation(t *testing.T) {
	router := testRouter(t, newMemStore(), nil)

	tests := []struct {
		name string
		body string
	}{
		{"not json", "{"},
		{"missing name", `{"value":"v"}`},
		{"lowercase name", `{"key_name":"foo_key","value":"v"}`},
		{"name with spaces", `{"key_name":"FOO KEY","value":"v"}`},
		{"missing value", `{"key_name":"FOO_KEY"}`},
		{"blank value", `{"key_name":"FOO_KEY","value":"   "}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/v1/keys", strings.NewReader(tt.body)))
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestHandleDeleteKey(t *testing.T) {
	store := newMemStore()
	if _, err := store.UpsertKey(context.Background(), "FOO_KEY", "secret-value"); err != nil {
		t.Fatal(err)
	}
	router := testRouter(t, store, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/v1/keys/FOO_KEY", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204", rec.Code)
	}

	// Deleting again reports not found.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/v1/keys/FOO_KEY", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rec.Code)
	}
}

func TestHandleHealth(t *testing.T) {
	router := testRouter(t, newMemStore(), nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var health struct {
		Status   string            `json:"status"`
		Services map[string]string `json:"services"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &health); err != nil {
		t.Fatalf("decoding health: %v", err)
	}
	if health.Status != "ok" {
		t.Errorf("status = %q, want ok", health.Status)
	}
	if health.Services["database"] != "connected" {
		t.Errorf("database = %q, want connected", health.Services["database"])
	}
}

func TestHandleHealthDegraded(t *testing.T) {
	store := newMemStore()
	store.healthErr = context.DeadlineExceeded
	router := testRouter(t, store, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/health", nil))

	var health struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &health); err != nil {
		t.Fatalf("decoding health: %v", err)
	}
	if health.Status != "degraded" {
		t.Errorf("status = %q, want degraded", health.Status)
	}
}

func TestHandleGetServices(t *testing.T) {
	router := testRouter(t, newMemStore(), testCatalog(t))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/services", nil))

	var cat catalog.Catalog
	if err := json.Unmarshal(rec.Body.Bytes(), &cat); err != nil {
		t.Fatalf("decoding catalog: %v", err)
	}
	if len(cat.Services) != 1 || cat.Services[0].Label != "OpenAI" {
		t.Errorf("catalog = %+v", cat.Services)
	}
}

func TestHandleGetServicesNoCatalog(t *testing.T) {
	router := testRouter(t, newMemStore(), nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/services", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"services":[]`) {
		t.Errorf("body = %s, want empty services array", rec.Body.String())
	}
}

func TestHandleGetKeyOptions(t *testing.T) {
	router := testRouter(t, newMemStore(), testCatalog(t))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/services/options", nil))

	var resp struct {
		Options []models.FlatKeyOption `json:"options"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding options: %v", err)
	}
	if len(resp.Options) != 1 || resp.Options[0].KeyName != "OPENAI_API_KEY" {
		t.Errorf("options = %+v", resp.Options)
	}
}

// TestClientAgainstRouter drives the HTTP client against the real router, so
// the wire format is checked from both ends.
func TestClientAgainstRouter(t *testing.T) {
	store := newMemStore()
	router := testRouter(t, store, testCatalog(t))
	srv := httptest.NewServer(router)
	defer srv.Close()

	client := services.NewKeyStoreClient(srv.URL, "", 5*time.Second)
	ctx := context.Background()

	if _, err := client.UpsertKey(ctx, "OPENAI_API_KEY", "sk-test-123"); err != nil {
		t.Fatalf("UpsertKey() error = %v", err)
	}

	keys, err := client.ListKeys(ctx)
	if err != nil {
		t.Fatalf("ListKeys() error = %v", err)
	}
	if len(keys) != 1 || keys[0].KeyName != "OPENAI_API_KEY" {
		t.Fatalf("ListKeys() = %+v", keys)
	}
	if keys[0].KeyPreview == "sk-test-123" {
		t.Error("preview must never equal the raw value")
	}

	catClient := services.NewCatalogClient(srv.URL, "", 5*time.Second)
	cat, err := catClient.LoadCatalog(ctx)
	if err != nil {
		t.Fatalf("LoadCatalog() error = %v", err)
	}
	if len(cat.Flatten()) != 1 {
		t.Errorf("Flatten() = %+v", cat.Flatten())
	}

	if err := client.DeleteKey(ctx, "OPENAI_API_KEY"); err != nil {
		t.Fatalf("DeleteKey() error = %v", err)
	}
	if err := client.DeleteKey(ctx, "OPENAI_API_KEY"); err == nil {
		t.Error("deleting a missing key should fail")
	}
}
