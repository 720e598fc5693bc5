package models

import "time"

// APIKey is a stored credential as reported by the key store. KeyPreview is a
// masked rendering produced by the store; the raw secret never appears here.
type APIKey struct {
	KeyName    string    `json:"key_name"`
	KeyPreview string    `json:"key_preview"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// UpsertKeyRequest is the wire payload for creating or replacing a credential.
type UpsertKeyRequest struct {
	KeyName string `json:"key_name"`
	Value   string `json:"value"`
}
