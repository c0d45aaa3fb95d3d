// Package store owns the order collection and the records that hang off each order.
package store

import (
	"context"
	"errors"
	"strings"

	"github.com/kendall-kelly/appraisal-orders-api/models"
)

var (
	// ErrNotFound is returned when an id references nothing live in the collection
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateID is returned when an inserted order reuses an existing id
	ErrDuplicateID = errors.New("duplicate order id")
	// ErrInvalidCursor is returned when a list cursor names an unknown order
	ErrInvalidCursor = errors.New("invalid cursor")
)

// DefaultLimit is the page size used when a query names none
const DefaultLimit = 25

// ListQuery selects one page of orders in insertion order
type ListQuery struct {
	Filter
	Cursor string
	Limit  int
}

func (q ListQuery) limit() int {
	if q.Limit <= 0 {
		return DefaultLimit
	}
	return q.Limit
}

// Filter narrows the live collection. Empty fields let every value through.
type Filter struct {
	Search     string
	Statuses   []models.OrderStatus
	Priorities []models.OrderPriority
}

// IsZero reports whether the filter lets every order through
func (f Filter) IsZero() bool {
	return strings.TrimSpace(f.Search) == "" && len(f.Statuses) == 0 && len(f.Priorities) == 0
}

// Matches applies the search and membership filters to one order
func (f Filter) Matches(o *models.Order) bool {
	if len(f.Statuses) > 0 && !containsStatus(f.Statuses, o.Status) {
		return false
	}
	if len(f.Priorities) > 0 && !containsPriority(f.Priorities, o.Priority) {
		return false
	}
	search := strings.ToLower(strings.TrimSpace(f.Search))
	if search == "" {
		return true
	}
	for _, field := range []string{o.OrderNumber, o.PropertyAddress, o.BorrowerName, o.ClientName} {
		if strings.Contains(strings.ToLower(field), search) {
			return true
		}
	}
	return false
}

func containsStatus(set []models.OrderStatus, s models.OrderStatus) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

func containsPriority(set []models.OrderPriority, p models.OrderPriority) bool {
	for _, v := range set {
		if v == p {
			return true
		}
	}
	return false
}

// Page is one slice of the filtered collection
type Page struct {
	Items      []models.Order
	NextCursor string
}

// OrderStore persists orders in insertion order
type OrderStore interface {
	// InsertOrder appends the order at the end of the collection and assigns its Position
	InsertOrder(ctx context.Context, order *models.Order) error
	GetOrder(ctx context.Context, id string) (*models.Order, error)
	UpdateOrder(ctx context.Context, order *models.Order) error
	// DeleteOrder soft-deletes; history, notes and documents are kept
	DeleteOrder(ctx context.Context, id string) error
	ListOrders(ctx context.Context, q ListQuery) (Page, error)
	// LiveOrders returns every non-deleted order matching the filter, in insertion order
	LiveOrders(ctx context.Context, f Filter) ([]models.Order, error)
	// AddressExists compares property_address ignoring case only
	AddressExists(ctx context.Context, address string) (bool, error)
	// CountOrders includes soft-deleted orders so order numbers are never reused
	CountOrders(ctx context.Context) (int64, error)

	AppendHistory(ctx context.Context, entries ...models.OrderHistoryEntry) error
	ListHistory(ctx context.Context, orderID string) ([]models.OrderHistoryEntry, error)

	AddNote(ctx context.Context, note *models.OrderNote) error
	ListNotes(ctx context.Context, orderID string) ([]models.OrderNote, error)

	AddDocument(ctx context.Context, doc *models.OrderDocument) error
	ListDocuments(ctx context.Context, orderID string) ([]models.OrderDocument, error)
	GetDocument(ctx context.Context, orderID, documentID string) (*models.OrderDocument, error)
	DeleteDocument(ctx context.Context, orderID, documentID string) error
}

// ClientStore is the read side of the client registry plus seeding
type ClientStore interface {
	SaveClient(ctx context.Context, client *models.Client) error
	GetClient(ctx context.Context, id string) (*models.Client, error)
	ListClients(ctx context.Context) ([]models.Client, error)
}

// TemplateStore reads and writes order templates
type TemplateStore interface {
	SaveTemplate(ctx context.Context, tpl *models.OrderTemplate) error
	GetTemplate(ctx context.Context, id string) (*models.OrderTemplate, error)
	ListTemplates(ctx context.Context) ([]models.OrderTemplate, error)
}

// Store is everything the services need from persistence
type Store interface {
	OrderStore
	ClientStore
	TemplateStore
}
