package catalog

import "context"

// FileSource loads the catalog from a YAML file on disk. It satisfies the
// vault's catalog source contract for deployments where the catalog ships as
// local configuration rather than being served remotely.
type FileSource struct {
	Path string
}

// LoadCatalog reads and validates the catalog file.
func (s FileSource) LoadCatalog(_ context.Context) (*Catalog, error) {
	return Load(s.Path)
}
