package services

import "agent-vault/vault"

// Compile-time interface verification
var _ vault.RemoteStore = (*KeyStoreClient)(nil)
var _ vault.CatalogSource = (*CatalogClient)(nil)
