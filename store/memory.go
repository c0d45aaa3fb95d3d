package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kendall-kelly/appraisal-orders-api/models"
	"gorm.io/gorm"
)

// MemoryStore keeps the collection in process memory. Its lifetime is the owning service's.
type MemoryStore struct {
	mu        sync.RWMutex
	orders    []*models.Order
	index     map[string]int
	position  int64
	sequence  int64
	history   map[string][]models.OrderHistoryEntry
	notes     map[string][]models.OrderNote
	documents map[string][]models.OrderDocument
	clients   map[string]models.Client
	templates map[string]models.OrderTemplate
	now       func() time.Time
}

// NewMemoryStore returns an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		index:     make(map[string]int),
		history:   make(map[string][]models.OrderHistoryEntry),
		notes:     make(map[string][]models.OrderNote),
		documents: make(map[string][]models.OrderDocument),
		clients:   make(map[string]models.Client),
		templates: make(map[string]models.OrderTemplate),
		now:       time.Now,
	}
}

// InsertOrder appends a new order
func (s *MemoryStore) InsertOrder(_ context.Context, order *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.index[order.ID]; exists {
		return ErrDuplicateID
	}
	s.position++
	order.Position = s.position
	stored := *order
	s.index[order.ID] = len(s.orders)
	s.orders = append(s.orders, &stored)
	return nil
}

// GetOrder returns a live order
func (s *MemoryStore) GetOrder(_ context.Context, id string) (*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.index[id]
	if !ok || s.orders[idx].IsDeleted() {
		return nil, ErrNotFound
	}
	order := *s.orders[idx]
	return &order, nil
}

// UpdateOrder replaces a live order
func (s *MemoryStore) UpdateOrder(_ context.Context, order *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.index[order.ID]
	if !ok || s.orders[idx].IsDeleted() {
		return ErrNotFound
	}
	stored := *order
	stored.Position = s.orders[idx].Position
	stored.DeletedAt = s.orders[idx].DeletedAt
	s.orders[idx] = &stored
	return nil
}

// DeleteOrder soft-deletes an order
func (s *MemoryStore) DeleteOrder(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.index[id]
	if !ok || s.orders[idx].IsDeleted() {
		return ErrNotFound
	}
	s.orders[idx].DeletedAt = gorm.DeletedAt{Time: s.now(), Valid: true}
	return nil
}

// ListOrders returns one page of live orders in position order
func (s *MemoryStore) ListOrders(_ context.Context, q ListQuery) (Page, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start := 0
	if q.Cursor != "" {
		idx, ok := s.index[q.Cursor]
		if !ok {
			return Page{}, ErrInvalidCursor
		}
		start = idx + 1
	}

	limit := q.limit()
	page := Page{Items: []models.Order{}}
	for i := start; i < len(s.orders); i++ {
		o := s.orders[i]
		if o.IsDeleted() || !q.Matches(o) {
			continue
		}
		if len(page.Items) == limit {
			page.NextCursor = page.Items[len(page.Items)-1].ID
			break
		}
		page.Items = append(page.Items, *o)
	}
	return page, nil
}

// LiveOrders returns every live order matching f
func (s *MemoryStore) LiveOrders(_ context.Context, f Filter) ([]models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.Order{}
	for _, o := range s.orders {
		if !o.IsDeleted() && f.Matches(o) {
			out = append(out, *o)
		}
	}
	return out, nil
}

// AddressExists reports whether a live order uses address, ignoring case
func (s *MemoryStore) AddressExists(_ context.Context, address string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, o := range s.orders {
		if !o.IsDeleted() && strings.EqualFold(o.PropertyAddress, address) {
			return true, nil
		}
	}
	return false, nil
}

// CountOrders counts every order ever inserted, deleted ones included
func (s *MemoryStore) CountOrders(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.orders)), nil
}

// AppendHistory appends audit entries in order
func (s *MemoryStore) AppendHistory(_ context.Context, entries ...models.OrderHistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range entries {
		s.sequence++
		e.Sequence = s.sequence
		s.history[e.OrderID] = append(s.history[e.OrderID], e)
	}
	return nil
}

// ListHistory returns the audit trail in append order
func (s *MemoryStore) ListHistory(_ context.Context, orderID string) ([]models.OrderHistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.index[orderID]; !ok {
		return nil, ErrNotFound
	}
	return append([]models.OrderHistoryEntry{}, s.history[orderID]...), nil
}

// AddNote attaches a note to an order
func (s *MemoryStore) AddNote(_ context.Context, note *models.OrderNote) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.index[note.OrderID]; !ok {
		return ErrNotFound
	}
	s.notes[note.OrderID] = append(s.notes[note.OrderID], *note)
	return nil
}

// ListNotes returns notes oldest first
func (s *MemoryStore) ListNotes(_ context.Context, orderID string) ([]models.OrderNote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.index[orderID]; !ok {
		return nil, ErrNotFound
	}
	return append([]models.OrderNote{}, s.notes[orderID]...), nil
}

// AddDocument records an uploaded document
func (s *MemoryStore) AddDocument(_ context.Context, doc *models.OrderDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.index[doc.OrderID]; !ok {
		return ErrNotFound
	}
	s.documents[doc.OrderID] = append(s.documents[doc.OrderID], *doc)
	return nil
}

// ListDocuments returns an order's documents
func (s *MemoryStore) ListDocuments(_ context.Context, orderID string) ([]models.OrderDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.index[orderID]; !ok {
		return nil, ErrNotFound
	}
	return append([]models.OrderDocument{}, s.documents[orderID]...), nil
}

// GetDocument returns one document of an order
func (s *MemoryStore) GetDocument(_ context.Context, orderID, documentID string) (*models.OrderDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, d := range s.documents[orderID] {
		if d.ID == documentID {
			doc := d
			return &doc, nil
		}
	}
	return nil, ErrNotFound
}

// DeleteDocument removes a document record
func (s *MemoryStore) DeleteDocument(_ context.Context, orderID, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs := s.documents[orderID]
	for i, d := range docs {
		if d.ID == documentID {
			s.documents[orderID] = append(docs[:i:i], docs[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

// SaveClient inserts or replaces a client
func (s *MemoryStore) SaveClient(_ context.Context, client *models.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[client.ID] = *client
	return nil
}

// GetClient returns one client
func (s *MemoryStore) GetClient(_ context.Context, id string) (*models.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	client, ok := s.clients[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &client, nil
}

// ListClients returns every client
func (s *MemoryStore) ListClients(_ context.Context) ([]models.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Client, 0, len(s.clients))
	for _, c := range s.clients {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CompanyName < out[j].CompanyName })
	return out, nil
}

// SaveTemplate inserts or replaces a template
func (s *MemoryStore) SaveTemplate(_ context.Context, tpl *models.OrderTemplate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.templates[tpl.ID] = *tpl
	return nil
}

// GetTemplate returns one template
func (s *MemoryStore) GetTemplate(_ context.Context, id string) (*models.OrderTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tpl, ok := s.templates[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &tpl, nil
}

// ListTemplates returns every template
func (s *MemoryStore) ListTemplates(_ context.Context) ([]models.OrderTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.OrderTemplate, 0, len(s.templates))
	for _, t := range s.templates {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
