package intake

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/cockroachdb/pebble"
)

// Keys the two forms persist under
const (
	OrderFormDraftKey  = "order-form-draft"
	QuickEntryDraftKey = "quick-entry-draft"
)

// DraftStore persists raw serialized drafts by key
type DraftStore interface {
	Load(ctx context.Context, key string) ([]byte, bool, error)
	Save(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}

// MemoryDraftStore keeps drafts for the life of the process
type MemoryDraftStore struct {
	mu     sync.RWMutex
	drafts map[string][]byte
}

// NewMemoryDraftStore keeps drafts in process
func NewMemoryDraftStore() *MemoryDraftStore {
	return &MemoryDraftStore{drafts: map[string][]byte{}}
}

// Load returns the stored draft for key
func (m *MemoryDraftStore) Load(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.drafts[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), data...), true, nil
}

// Save replaces the draft for key
func (m *MemoryDraftStore) Save(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drafts[key] = append([]byte(nil), data...)
	return nil
}

// Delete removes the draft for key
func (m *MemoryDraftStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.drafts, key)
	return nil
}

// PebbleDraftStore keeps drafts on disk so they survive a restart
type PebbleDraftStore struct {
	db *pebble.DB
}

// NewPebbleDraftStore opens or creates a pebble database in dir
func NewPebbleDraftStore(dir string) (*PebbleDraftStore, error) {
	db, err := pebble.Open(filepath.Clean(dir), &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("pebble open: %w", err)
	}
	return &PebbleDraftStore{db: db}, nil
}

// Close closes the database
func (p *PebbleDraftStore) Close() error { return p.db.Close() }

func draftKey(key string) []byte { return []byte("drafts/" + key) }

// Load returns the stored draft for key
func (p *PebbleDraftStore) Load(_ context.Context, key string) ([]byte, bool, error) {
	v, closer, err := p.db.Get(draftKey(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	defer closer.Close()
	return append([]byte(nil), v...), true, nil
}

// Save writes the draft for key with a synced commit
func (p *PebbleDraftStore) Save(_ context.Context, key string, data []byte) error {
	return p.db.Set(draftKey(key), data, pebble.Sync)
}

// Delete removes the draft for key
func (p *PebbleDraftStore) Delete(_ context.Context, key string) error {
	return p.db.Delete(draftKey(key), pebble.Sync)
}
