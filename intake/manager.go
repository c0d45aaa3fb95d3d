package intake

import (
	"context"
	"sync"
)

// Manager owns the single order form the API serves
type Manager struct {
	opts Options

	mu      sync.Mutex
	current *Workflow
}

// NewManager keeps opts as the template for every form it mounts
func NewManager(opts Options) *Manager {
	opts.InitialData = nil
	return &Manager{opts: opts}
}

// Current returns the open form, mounting one from the stored draft if none is open
func (m *Manager) Current(ctx context.Context) (*Workflow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil {
		return m.current, nil
	}
	wf, err := New(ctx, m.opts)
	if err != nil {
		return nil, err
	}
	m.current = wf
	return wf, nil
}

// Start replaces the open form with a fresh one seeded from initial
func (m *Manager) Start(ctx context.Context, initial map[string]any) (*Workflow, error) {
	opts := m.opts
	opts.InitialData = initial

	m.mu.Lock()
	defer m.mu.Unlock()
	wf, err := New(ctx, opts)
	if err != nil {
		return nil, err
	}
	if m.current != nil {
		m.current.Close()
	}
	m.current = wf
	return wf, nil
}

// Clear forgets the open form once it has been submitted or cancelled
func (m *Manager) Clear(wf *Workflow) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == wf {
		m.current.Close()
		m.current = nil
	}
}

// Close unmounts the open form, leaving its draft stored
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil {
		m.current.Close()
		m.current = nil
	}
}
