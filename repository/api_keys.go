package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"agent-vault/models"
	"agent-vault/observability"

	"github.com/google/uuid"
)

// ErrKeyNotFound is returned when a delete targets a key name that is not
// stored.
var ErrKeyNotFound = errors.New("key not found")

// ListKeys retrieves all stored credentials, masked, ordered by key name
func (r *Repository) ListKeys(ctx context.Context) ([]models.APIKey, error) {
	if err := r.checkDB(); err != nil {
		return nil, err
	}

	start := time.Now()

	query := `
		SELECT key_name, key_preview, updated_at
		FROM api_keys
		ORDER BY key_name
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		observability.GetMetrics().RecordDBError("list", "api_keys")
		return nil, fmt.Errorf("failed to query api keys: %w", err)
	}
	defer rows.Close()

	var apiKeys []models.APIKey
	for rows.Next() {
		var apiKey models.APIKey
		if err := rows.Scan(&apiKey.KeyName, &apiKey.KeyPreview, &apiKey.UpdatedAt); err != nil {
			observability.GetMetrics().RecordDBError("list", "api_keys")
			return nil, fmt.Errorf("failed to scan api key: %w", err)
		}
		apiKeys = append(apiKeys, apiKey)
	}

	if err := rows.Err(); err != nil {
		observability.GetMetrics().RecordDBError("list", "api_keys")
		return nil, fmt.Errorf("error iterating api keys: %w", err)
	}

	observability.GetMetrics().RecordDBQuery("list", "api_keys", time.Since(start))
	return apiKeys, nil
}

// UpsertKey inserts or replaces the credential stored under keyName and
// returns the resulting masked record. Upserts are idempotent with respect to
// identity: at most one row exists per key name.
func (r *Repository) UpsertKey(ctx context.Context, keyName, value string) (*models.APIKey, error) {
	if err := r.checkDB(); err != nil {
		return nil, err
	}

	start := time.Now()

	query := `
		INSERT INTO api_keys (id, key_name, secret_value, key_preview, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		ON CONFLICT (key_name)
		DO UPDATE SET
			secret_value = EXCLUDED.secret_value,
			key_preview = EXCLUDED.key_preview,
			updated_at = NOW()
		RETURNING key_name, key_preview, updated_at
	`

	var apiKey models.APIKey
	err := r.db.QueryRow(ctx, query,
		uuid.New(),
		keyName,
		value,
		maskSecret(value),
	).Scan(&apiKey.KeyName, &apiKey.KeyPreview, &apiKey.UpdatedAt)

	if err != nil {
		observability.GetMetrics().RecordDBError("upsert", "api_keys")
		return nil, fmt.Errorf("failed to upsert api key: %w", err)
	}

	observability.GetMetrics().RecordDBQuery("upsert", "api_keys", time.Since(start))
	return &apiKey, nil
}

// DeleteKey deletes the credential stored under keyName. Deleting a missing
// key returns ErrKeyNotFound.
func (r *Repository) DeleteKey(ctx context.Context, keyName string) error {
	if err := r.checkDB(); err != nil {
		return err
	}

	start := time.Now()

	tag, err := r.db.Exec(ctx, `DELETE FROM api_keys WHERE key_name = $1`, keyName)
	if err != nil {
		observability.GetMetrics().RecordDBError("delete", "api_keys")
		return fmt.Errorf("failed to delete api key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrKeyNotFound
	}

	observability.GetMetrics().RecordDBQuery("delete", "api_keys", time.Since(start))
	return nil
}

// maskSecret produces the display preview for a stored secret: leading and
// trailing fragments with the middle elided, or a full mask for short values.
// The preview can never equal the raw value.
func maskSecret(value string) string {
	if len(value) <= 8 {
		return "****"
	}
	masked := value[:4] + "..." + value[len(value)-3:]
	if masked == value {
		return "****"
	}
	return masked
}
