package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bnema/boxtoplay-keeper/internal/domain"
	"github.com/bnema/boxtoplay-keeper/internal/logging"
	"github.com/bnema/boxtoplay-keeper/internal/metrics"
	"github.com/bnema/boxtoplay-keeper/internal/ports"
)

// StateCache owns the in-memory Document. All mutations go through its
// methods; readers only ever see deep copies.
type StateCache struct {
	store ports.DocumentStore
	clock ports.Clock
	log   logging.Logger

	mu   sync.RWMutex
	doc  *domain.Document
	name string

	// rev counts cookie changes since the last load; savedRev is the newest
	// rev the store is known to hold.
	rev      uint64
	savedRev uint64

	// saveMu orders writes so a later snapshot is never overwritten by an
	// earlier one still in flight.
	saveMu sync.Mutex
}

func NewStateCache(store ports.DocumentStore, clock ports.Clock, log logging.Logger) *StateCache {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if log == nil {
		log = logging.NewNop()
	}

	return &StateCache{store: store, clock: clock, log: log}
}

// Load fetches the document and replaces the in-memory copy. On failure the
// current copy, loaded or not, is left untouched.
func (c *StateCache) Load(ctx context.Context) error {
	files, err := c.store.Fetch(ctx)
	if errors.Is(err, domain.ErrMalformedDocument) {
		metrics.LoadTotal.WithLabelValues("malformed").Inc()
		return fmt.Errorf("load document: %w", err)
	}
	if err != nil {
		metrics.LoadTotal.WithLabelValues("unavailable").Inc()
		return fmt.Errorf("load document: %w", asStoreUnavailable(err))
	}

	name, content, ok := firstEntry(files)
	if !ok {
		metrics.LoadTotal.WithLabelValues("malformed").Inc()
		return fmt.Errorf("load document: %w: store holds no documents", domain.ErrMalformedDocument)
	}

	doc, err := decodeDocument(content)
	if err != nil {
		metrics.LoadTotal.WithLabelValues("malformed").Inc()
		return fmt.Errorf("load document %q: %w", name, err)
	}

	c.mu.Lock()
	c.doc = &doc
	c.name = name
	c.rev = 0
	c.savedRev = 0
	c.mu.Unlock()

	metrics.LoadTotal.WithLabelValues("ok").Inc()
	metrics.Accounts.Set(float64(len(doc.Accounts)))
	c.log.Info(ctx, "document loaded", "name", name, "accounts", len(doc.Accounts))

	return nil
}

// Save writes a snapshot of the whole document and returns the sync time it
// recorded. In-memory state is not rolled back when the write fails.
func (c *StateCache) Save(ctx context.Context) (time.Time, error) {
	c.saveMu.Lock()
	defer c.saveMu.Unlock()

	c.mu.RLock()
	if c.doc == nil {
		c.mu.RUnlock()
		return time.Time{}, domain.ErrDocumentNotLoaded
	}
	snapshot := c.doc.Clone()
	name := c.name
	rev := c.rev
	c.mu.RUnlock()

	syncAt := c.clock.Now().UTC()
	if syncAt.Before(snapshot.LastSyncTime) {
		syncAt = snapshot.LastSyncTime
	}
	snapshot.LastSyncTime = syncAt

	content, err := encodeDocument(snapshot)
	if err != nil {
		return time.Time{}, err
	}

	if err := c.store.Replace(ctx, name, content); err != nil {
		return time.Time{}, fmt.Errorf("save document %q: %w", name, asStoreUnavailable(err))
	}

	c.mu.Lock()
	if c.doc != nil && syncAt.After(c.doc.LastSyncTime) {
		c.doc.LastSyncTime = syncAt
	}
	// A reload during the write resets rev; the stale snapshot must not mark
	// the fresh document as saved.
	if c.name == name && rev <= c.rev && rev > c.savedRev {
		c.savedRev = rev
	}
	c.mu.Unlock()

	metrics.LastSyncTimestamp.Set(float64(syncAt.Unix()))

	return syncAt, nil
}

// MutateAccountCookie sets one cookie on one account and reports whether the
// stored value actually changed.
func (c *StateCache) MutateAccountCookie(index int, name, value string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.doc == nil {
		return false, domain.ErrDocumentNotLoaded
	}
	if index < 0 || index >= len(c.doc.Accounts) {
		return false, fmt.Errorf("%w: %d", domain.ErrAccountIndexOutOfRange, index)
	}

	account := &c.doc.Accounts[index]
	if previous, ok := account.Cookies[name]; ok && previous == value {
		return false, nil
	}
	if account.Cookies == nil {
		account.Cookies = map[string]string{}
	}
	account.Cookies[name] = value
	c.rev++

	return true, nil
}

// Dirty reports whether the document holds cookie changes the store has not
// accepted yet.
func (c *StateCache) Dirty() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.doc != nil && c.rev > c.savedRev
}

// Snapshot returns a deep copy of the document and whether one is loaded.
func (c *StateCache) Snapshot() (domain.Document, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.doc == nil {
		return domain.Document{}, false
	}
	return c.doc.Clone(), true
}

func (c *StateCache) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.doc != nil
}

// Name is the store entry the document was loaded from.
func (c *StateCache) Name() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.name
}

func asStoreUnavailable(err error) error {
	if errors.Is(err, domain.ErrStoreUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
}
