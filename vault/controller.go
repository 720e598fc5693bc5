package vault

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"agent-vault/catalog"
	"agent-vault/models"
	"agent-vault/observability"
)

// Phase is the controller's current state. There is no terminal phase; the
// controller serves a long-lived session.
type Phase string

const (
	PhaseLoading       Phase = "loading"
	PhaseIdle          Phase = "idle"
	PhaseAddForm       Phase = "add_form"
	PhaseConfirmDelete Phase = "confirm_delete"
	PhaseSaving        Phase = "saving"
	PhaseDeleting      Phase = "deleting"
)

// NoticeLevel classifies user-visible feedback.
type NoticeLevel string

const (
	NoticeSuccess NoticeLevel = "success"
	NoticeError   NoticeLevel = "error"
)

// Notice is a user-visible feedback message surfaced after an operation.
type Notice struct {
	Level   NoticeLevel
	Message string
}

// CatalogSource loads the service catalog. It is consulted once, at
// activation.
type CatalogSource interface {
	LoadCatalog(ctx context.Context) (*catalog.Catalog, error)
}

// AddForm holds the state of the add-key form.
type AddForm struct {
	Selection models.KeySelection
	Value     string
}

// Controller orchestrates the vault's UI-facing state transitions. All methods
// are safe for concurrent use; mutating operations are single-flight, enforced
// by the phase (a second save or delete while one is in flight is rejected,
// never queued).
type Controller struct {
	mu     sync.Mutex
	source CatalogSource
	store  *Store

	phase         Phase
	catalog       *catalog.Catalog
	options       []models.FlatKeyOption
	form          AddForm
	pendingDelete string
	notice        *Notice
	closed        bool
}

// NewController creates a Controller in the Loading phase. source may be nil
// when no catalog is configured; the vault then works with custom names only.
func NewController(source CatalogSource, store *Store) *Controller {
	return &Controller{
		source: source,
		store:  store,
		phase:  PhaseLoading,
	}
}

// Activate performs the initial load: the catalog fetch and the first key list
// are issued concurrently and settle independently. Both outcomes, including
// failures, land the controller in Idle; a catalog failure only empties the
// options list, it never blocks the vault.
func (c *Controller) Activate(ctx context.Context) {
	c.mu.Lock()
	if c.phase != PhaseLoading || c.closed {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	start := time.Now()

	var (
		wg      sync.WaitGroup
		cat     *catalog.Catalog
		catErr  error
		listErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		if c.source == nil {
			return
		}
		cat, catErr = c.source.LoadCatalog(ctx)
	}()
	go func() {
		defer wg.Done()
		listErr = c.store.List(ctx)
	}()
	wg.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	status := "success"
	if catErr != nil {
		observability.Warn("service catalog unavailable", "error", catErr)
		c.notice = &Notice{Level: NoticeError, Message: "Could not load the service catalog. Known-service suggestions are unavailable."}
	} else if cat != nil {
		c.catalog = cat
		c.options = cat.Flatten()
	}
	if listErr != nil {
		observability.Error("initial key list failed", "error", listErr)
		c.notice = &Notice{Level: NoticeError, Message: "Could not load stored keys."}
		status = "error"
	}

	c.phase = PhaseIdle
	observability.GetMetrics().RecordVaultOp("activate", status, time.Since(start))
}

// OpenAddForm transitions Idle to AddFormOpen, resetting the selection and
// value fields.
func (c *Controller) OpenAddForm() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhaseIdle {
		return fmt.Errorf("cannot open add form while %s", c.phase)
	}
	c.phase = PhaseAddForm
	c.form = AddForm{}
	c.notice = nil
	return nil
}

// SetForm updates the add-form fields. Only valid while the form is open.
func (c *Controller) SetForm(selection models.KeySelection, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhaseAddForm {
		return fmt.Errorf("add form is not open")
	}
	c.form.Selection = selection
	c.form.Value = value
	return nil
}

// CancelAdd closes the add form and discards its fields.
func (c *Controller) CancelAdd() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhaseAddForm {
		return fmt.Errorf("add form is not open")
	}
	c.phase = PhaseIdle
	c.form = AddForm{}
	return nil
}

// Save resolves the form selection to a canonical key name and upserts the
// value. The remote collaborator is only contacted when the canonical name and
// the trimmed value are both non-empty; the Store revalidates on its own.
//
// On success the form closes, its fields clear, and the key list is refreshed
// after the upsert has settled. On failure the form stays open with the
// entered values intact, including the value field, so the operator is not
// forced to retype a secret.
func (c *Controller) Save(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return fmt.Errorf("vault is closed")
	}
	if c.phase != PhaseAddForm {
		c.mu.Unlock()
		return fmt.Errorf("cannot save while %s", c.phase)
	}

	keyName := c.form.Selection.Canonical()
	value := strings.TrimSpace(c.form.Value)
	if keyName == "" || value == "" {
		c.notice = &Notice{Level: NoticeError, Message: "A key name and a value are both required."}
		c.mu.Unlock()
		return validationFailed(keyName, "key name and value are required")
	}

	c.phase = PhaseSaving
	rawValue := c.form.Value
	c.mu.Unlock()

	start := time.Now()
	_, err := c.store.Upsert(ctx, keyName, rawValue)

	c.mu.Lock()
	if c.closed {
		// The presenting surface is gone; discard the result.
		c.mu.Unlock()
		return nil
	}
	if err != nil {
		c.phase = PhaseAddForm
		c.notice = &Notice{Level: NoticeError, Message: fmt.Sprintf("Could not save %s.", keyName)}
		c.mu.Unlock()
		observability.WithKey(keyName).Error("save failed", "error", err)
		observability.GetMetrics().RecordVaultOp("save", "error", time.Since(start))
		return err
	}
	c.mu.Unlock()

	// Refresh strictly after the upsert has settled, so the displayed set
	// never races the write.
	listErr := c.store.List(ctx)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.phase = PhaseIdle
	c.form = AddForm{}
	if listErr != nil {
		observability.Error("refresh after save failed", "error", listErr)
		c.notice = &Notice{Level: NoticeError, Message: fmt.Sprintf("Saved %s, but the key list could not be refreshed.", keyName)}
	} else {
		c.notice = &Notice{Level: NoticeSuccess, Message: fmt.Sprintf("Saved %s.", keyName)}
	}
	c.mu.Unlock()

	observability.GetMetrics().RecordVaultOp("save", "success", time.Since(start))
	return nil
}

// RequestDelete asks for confirmation before deleting keyName. Deletion is
// destructive, so it never fires from a single interaction: this transition
// only records intent, and ConfirmDelete performs it.
func (c *Controller) RequestDelete(keyName string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhaseIdle {
		return fmt.Errorf("cannot delete while %s", c.phase)
	}
	if !c.store.Has(keyName) {
		return deleteFailed(keyName, fmt.Errorf("key not found"))
	}
	c.phase = PhaseConfirmDelete
	c.pendingDelete = keyName
	c.notice = nil
	return nil
}

// CancelDelete abandons a pending deletion.
func (c *Controller) CancelDelete() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhaseConfirmDelete {
		return fmt.Errorf("no delete is pending")
	}
	c.phase = PhaseIdle
	c.pendingDelete = ""
	return nil
}

// ConfirmDelete performs the pending deletion. On success the key list is
// refreshed after the delete has settled; on failure the key remains listed.
func (c *Controller) ConfirmDelete(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return fmt.Errorf("vault is closed")
	}
	if c.phase != PhaseConfirmDelete {
		c.mu.Unlock()
		return fmt.Errorf("no delete is pending")
	}
	keyName := c.pendingDelete
	c.phase = PhaseDeleting
	c.mu.Unlock()

	start := time.Now()
	err := c.store.Delete(ctx, keyName)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	if err != nil {
		c.phase = PhaseIdle
		c.pendingDelete = ""
		c.notice = &Notice{Level: NoticeError, Message: fmt.Sprintf("Could not delete %s.", keyName)}
		c.mu.Unlock()
		observability.WithKey(keyName).Error("delete failed", "error", err)
		observability.GetMetrics().RecordVaultOp("delete", "error", time.Since(start))
		return err
	}
	c.mu.Unlock()

	listErr := c.store.List(ctx)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.phase = PhaseIdle
	c.pendingDelete = ""
	if listErr != nil {
		observability.Error("refresh after delete failed", "error", listErr)
		c.notice = &Notice{Level: NoticeError, Message: fmt.Sprintf("Deleted %s, but the key list could not be refreshed.", keyName)}
	} else {
		c.notice = &Notice{Level: NoticeSuccess, Message: fmt.Sprintf("Deleted %s.", keyName)}
	}
	c.mu.Unlock()

	observability.GetMetrics().RecordVaultOp("delete", "success", time.Since(start))
	return nil
}

// Close tears the controller down. In-flight calls are not cancelled; their
// results are discarded on completion and no state is mutated afterwards.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

// Phase returns the current phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Keys returns the last-known key list.
func (c *Controller) Keys() []models.APIKey {
	return c.store.Keys()
}

// Options returns the selectable key options derived from the catalog. Empty
// when the catalog failed to load or none is configured.
func (c *Controller) Options() []models.FlatKeyOption {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]models.FlatKeyOption, len(c.options))
	copy(out, c.options)
	return out
}

// Form returns the current add-form state.
func (c *Controller) Form() AddForm {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.form
}

// PendingDelete returns the key name awaiting delete confirmation, if any.
func (c *Controller) PendingDelete() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pendingDelete
}

// Notice returns the most recent feedback message, or nil.
func (c *Controller) Notice() *Notice {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.notice == nil {
		return nil
	}
	n := *c.notice
	return &n
}

// ClearNotice dismisses the current feedback message.
func (c *Controller) ClearNotice() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notice = nil
}

// Describe returns the catalog label of the service owning keyName. Custom and
// unknown keys have no service label.
func (c *Controller) Describe(keyName string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.catalog == nil {
		return "", false
	}
	return c.catalog.Describe(keyName)
}
