package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"agent-vault/catalog"
	"agent-vault/models"
	"agent-vault/observability"
	"agent-vault/repository"
	"agent-vault/services"

	"github.com/go-chi/chi/v5"
)

// KeyStore defines the persistence operations the handlers expose over HTTP.
type KeyStore interface {
	Health(ctx context.Context) error
	ListKeys(ctx context.Context) ([]models.APIKey, error)
	UpsertKey(ctx context.Context, keyName, value string) (*models.APIKey, error)
	DeleteKey(ctx context.Context, keyName string) error
}

// Compile-time interface verification
var _ KeyStore = (*repository.Repository)(nil)

// Handler handles HTTP API requests
type Handler struct {
	store KeyStore
	cat   *catalog.Catalog
}

// NewHandler creates a new Handler. cat may be nil when no catalog is
// configured; the services endpoints then serve an empty catalog.
func NewHandler(store KeyStore, cat *catalog.Catalog) *Handler {
	return &Handler{store: store, cat: cat}
}

// HandleHealth returns the health status of the application
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status": "ok",
		"services": map[string]string{
			"database": "unknown",
		},
	}

	if h.store != nil {
		if err := h.store.Health(r.Context()); err == nil {
			status["services"].(map[string]string)["database"] = "connected"
		} else {
			status["services"].(map[string]string)["database"] = "disconnected"
			status["status"] = "degraded"
		}
	} else {
		status["services"].(map[string]string)["database"] = "not_configured"
	}

	// Add circuit breaker status
	cbStatus := services.GetGlobalRegistry().Status()
	status["circuit_breakers"] = cbStatus

	for _, cb := range cbStatus {
		if cb.State == "open" {
			status["status"] = "degraded"
			break
		}
	}

	h.jsonResponse(w, status)
}

// HandleListKeys returns all stored credentials, masked
func (h *Handler) HandleListKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := h.store.ListKeys(r.Context())
	if err != nil {
		observability.Error("failed to list keys", "error", err)
		h.jsonError(w, "failed to list keys", http.StatusInternalServerError)
		return
	}
	if keys == nil {
		keys = []models.APIKey{}
	}

	h.jsonResponse(w, map[string]interface{}{
		"keys": keys,
	})
}

// HandleUpsertKey creates or replaces a credential and returns the masked
// record. The raw value appears only in the request body, never the response.
func (h *Handler) HandleUpsertKey(w http.ResponseWriter, r *http.Request) {
	var req models.UpsertKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if req.KeyName == "" {
		h.jsonError(w, "key_name is required", http.StatusBadRequest)
		return
	}
	if !catalog.ValidKeyName(req.KeyName) {
		h.jsonError(w, "key_name must contain only uppercase letters, digits, and underscores", http.StatusBadRequest)
		return
	}
	value := strings.TrimSpace(req.Value)
	if value == "" {
		h.jsonError(w, "value is required", http.StatusBadRequest)
		return
	}

	rec, err := h.store.UpsertKey(r.Context(), req.KeyName, value)
	if err != nil {
		observability.WithKey(req.KeyName).Error("failed to upsert key", "error", err)
		h.jsonError(w, "failed to store key", http.StatusInternalServerError)
		return
	}

	h.jsonResponse(w, rec)
}

// HandleDeleteKey removes a stored credential
func (h *Handler) HandleDeleteKey(w http.ResponseWriter, r *http.Request) {
	keyName := chi.URLParam(r, "name")
	if keyName == "" {
		h.jsonError(w, "key name is required", http.StatusBadRequest)
		return
	}

	if err := h.store.DeleteKey(r.Context(), keyName); err != nil {
		if err == repository.ErrKeyNotFound {
			h.jsonError(w, "key not found", http.StatusNotFound)
			return
		}
		observability.WithKey(keyName).Error("failed to delete key", "error", err)
		h.jsonError(w, "failed to delete key", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleGetServices returns the service catalog
func (h *Handler) HandleGetServices(w http.ResponseWriter, r *http.Request) {
	if h.cat == nil {
		h.jsonResponse(w, catalog.Catalog{Services: []models.ServiceConfig{}})
		return
	}
	h.jsonResponse(w, h.cat)
}

// HandleGetKeyOptions returns the catalog flattened into selectable options
func (h *Handler) HandleGetKeyOptions(w http.ResponseWriter, r *http.Request) {
	options := []models.FlatKeyOption{}
	if h.cat != nil {
		options = h.cat.Flatten()
	}
	if options == nil {
		options = []models.FlatKeyOption{}
	}

	h.jsonResponse(w, map[string]interface{}{
		"options": options,
	})
}

// jsonResponse writes a JSON response
func (h *Handler) jsonResponse(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		observability.Error("failed to encode response", "error", err)
	}
}

// jsonError writes a JSON error response
func (h *Handler) jsonError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
