package repository

import "agent-vault/vault"

// The repository can back the vault directly, without the HTTP hop, in
// deployments that embed the key store.
var _ vault.RemoteStore = (*Repository)(nil)
