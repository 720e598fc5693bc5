package vault

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"agent-vault/catalog"
	"agent-vault/models"
)

// fakeRemote is an in-memory RemoteStore with error injection and call
// counting, standing in for the key store server.
type fakeRemote struct {
	mu   sync.Mutex
	keys map[string]models.APIKey

	listCalls   int
	upsertCalls int
	deleteCalls int

	listErr   error
	upsertErr error
	deleteErr error

	// When set, UpsertKey blocks until the channel is closed.
	upsertGate chan struct{}
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{keys: make(map[string]models.APIKey)}
}

func (f *fakeRemote) ListKeys(ctx context.Context) ([]models.APIKey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}

	out := make([]models.APIKey, 0, len(f.keys))
	for _, k := range f.keys {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].KeyName < out[j].KeyName })
	return out, nil
}

func (f *fakeRemote) UpsertKey(ctx context.Context, keyName, value string) (*models.APIKey, error) {
	f.mu.Lock()
	gate := f.upsertGate
	f.upsertCalls++
	if f.upsertErr != nil {
		err := f.upsertErr
		f.mu.Unlock()
		return nil, err
	}
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}

	rec := models.APIKey{
		KeyName:    keyName,
		KeyPreview: maskValue(value),
		UpdatedAt:  time.Now(),
	}

	f.mu.Lock()
	f.keys[keyName] = rec
	f.mu.Unlock()
	return &rec, nil
}

func (f *fakeRemote) DeleteKey(ctx context.Context, keyName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.deleteCalls++
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.keys[keyName]; !ok {
		return errors.New("key not found")
	}
	delete(f.keys, keyName)
	return nil
}

// maskValue mirrors the server-side preview shape closely enough for tests.
func maskValue(value string) string {
	if len(value) <= 8 {
		return "****"
	}
	return value[:4] + "..." + value[len(value)-3:]
}

// fakeCatalogSource serves a fixed catalog or a fixed error.
type fakeCatalogSource struct {
	cat *catalog.Catalog
	err error
}

func (f *fakeCatalogSource) LoadCatalog(ctx context.Context) (*catalog.Catalog, error) {
	return f.cat, f.err
}

func testCatalog() *catalog.Catalog {
	return &catalog.Catalog{
		Services: []models.ServiceConfig{
			{
				Label:       "OpenAI",
				Description: "Language models",
				URL:         "https://platform.openai.com/api-keys",
				Keys:        []models.KeySlot{{Name: "OPENAI_API_KEY", Label: "Key"}},
			},
			{
				Label: "Alpaca Markets",
				URL:   "https://app.alpaca.markets",
				Keys: []models.KeySlot{
					{Name: "ALPACA_API_KEY", Label: "API Key"},
					{Name: "ALPACA_API_SECRET", Label: "API Secret"},
				},
			},
		},
	}
}
