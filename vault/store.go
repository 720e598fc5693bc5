// Package vault implements the client-side credential vault: an in-memory
// mirror of the keys persisted in a remote key store, and the UI-facing
// controller that orchestrates loading, saving, and deleting them.
package vault

import (
	"context"
	"errors"
	"strings"
	"sync"

	"agent-vault/catalog"
	"agent-vault/models"
)

// RemoteStore is the remote credential-store collaborator the vault consumes.
// Implementations own masking: UpsertKey returns a record whose preview never
// echoes the raw value.
type RemoteStore interface {
	ListKeys(ctx context.Context) ([]models.APIKey, error)
	UpsertKey(ctx context.Context, keyName, value string) (*models.APIKey, error)
	DeleteKey(ctx context.Context, keyName string) error
}

// Store holds the current key list in memory. It is the single source of
// truth for the displayed set: the list is replaced wholesale by each
// successful List, never patched locally.
type Store struct {
	mu     sync.RWMutex
	remote RemoteStore
	keys   []models.APIKey
}

// NewStore creates a Store backed by the given remote collaborator.
func NewStore(remote RemoteStore) *Store {
	return &Store{remote: remote}
}

// List fetches the full current key set and replaces the mirror. On failure
// the prior mirror is left intact and a LoadFailed error is returned.
func (s *Store) List(ctx context.Context) error {
	keys, err := s.remote.ListKeys(ctx)
	if err != nil {
		return loadFailed(err)
	}

	s.mu.Lock()
	s.keys = keys
	s.mu.Unlock()
	return nil
}

// Keys returns a copy of the last-known key list.
func (s *Store) Keys() []models.APIKey {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.APIKey, len(s.keys))
	copy(out, s.keys)
	return out
}

// Has reports whether keyName is present in the last-known key list.
func (s *Store) Has(keyName string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, k := range s.keys {
		if k.KeyName == keyName {
			return true
		}
	}
	return false
}

// Upsert stores a credential under keyName, creating or replacing it. The key
// name must be in canonical form and the value non-empty after trimming;
// violations are rejected locally with ValidationFailed before any remote
// call. The returned record comes from the remote side, which owns preview
// derivation; the store never fabricates a preview.
func (s *Store) Upsert(ctx context.Context, keyName, rawValue string) (*models.APIKey, error) {
	if keyName == "" {
		return nil, validationFailed(keyName, "key name is empty")
	}
	if !catalog.ValidKeyName(keyName) {
		return nil, validationFailed(keyName, "key name must contain only uppercase letters, digits, and underscores")
	}
	value := strings.TrimSpace(rawValue)
	if value == "" {
		return nil, validationFailed(keyName, "value is empty")
	}

	rec, err := s.remote.UpsertKey(ctx, keyName, value)
	if err != nil {
		return nil, saveFailed(keyName, err)
	}
	return rec, nil
}

// Delete removes the credential stored under keyName. Names absent from the
// last-known list are rejected without a remote call, so a stale UI cannot
// double-delete.
func (s *Store) Delete(ctx context.Context, keyName string) error {
	if !s.Has(keyName) {
		return deleteFailed(keyName, errors.New("key not found"))
	}

	if err := s.remote.DeleteKey(ctx, keyName); err != nil {
		return deleteFailed(keyName, err)
	}
	return nil
}
