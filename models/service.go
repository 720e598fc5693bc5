package models

// KeySlot is one named credential a service requires. Some services need more
// than one (an API key plus a secret, for example).
type KeySlot struct {
	Name  string `json:"name" yaml:"name"`
	Label string `json:"label" yaml:"label"`
}

// ServiceConfig describes one known external service: display metadata plus the
// ordered credential slots it requires.
type ServiceConfig struct {
	Label       string    `json:"label" yaml:"label"`
	Description string    `json:"description" yaml:"description"`
	URL         string    `json:"url" yaml:"url"`
	Keys        []KeySlot `json:"keys" yaml:"keys"`
}

// FlatKeyOption is one selectable (key name, service) pair derived from the
// catalog. Options are ephemeral: recomputed from the catalog on demand and
// never persisted.
type FlatKeyOption struct {
	KeyName      string `json:"key_name"`
	Label        string `json:"label"`
	ServiceLabel string `json:"service_label"`
	Description  string `json:"description"`
	URL          string `json:"url"`
}
