package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kendall-kelly/appraisal-orders-api/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// StoreSuite runs the same behaviour checks against every Store implementation
type StoreSuite struct {
	suite.Suite
	newStore func(t *testing.T) Store
	store    Store
	ctx      context.Context
}

func (s *StoreSuite) SetupTest() {
	s.store = s.newStore(s.T())
	s.ctx = context.Background()
}

func TestMemoryStore(t *testing.T) {
	suite.Run(t, &StoreSuite{newStore: func(*testing.T) Store { return NewMemoryStore() }})
}

func TestSQLStore(t *testing.T) {
	suite.Run(t, &StoreSuite{newStore: newSQLiteStore})
}

func newSQLiteStore(t *testing.T) Store {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	store, err := NewSQLStore(db)
	require.NoError(t, err)
	return store
}

func newOrder(n int, mutate ...func(*models.Order)) *models.Order {
	due := time.Now().Add(72 * time.Hour).UTC().Truncate(time.Second)
	o := &models.Order{
		ID:              uuid.NewString(),
		OrderNumber:     fmt.Sprintf("APR-2024-%04d", n),
		Status:          models.StatusNew,
		Priority:        models.PriorityNormal,
		OrderType:       models.OrderTypePurchase,
		PropertyAddress: fmt.Sprintf("%d Main Street", n),
		PropertyCity:    "Austin",
		PropertyState:   "TX",
		PropertyZip:     "78701",
		PropertyType:    models.PropertySingleFamily,
		ClientID:        "client-1",
		ClientName:      "First National Bank",
		BorrowerName:    fmt.Sprintf("Borrower %d", n),
		DueDate:         &due,
		FeeAmount:       decimal.NewFromInt(450),
		TechFee:         decimal.NewFromInt(25),
	}
	o.RecomputeTotal()
	for _, m := range mutate {
		m(o)
	}
	return o
}

func (s *StoreSuite) insert(orders ...*models.Order) {
	for _, o := range orders {
		s.Require().NoError(s.store.InsertOrder(s.ctx, o))
	}
}

func (s *StoreSuite) TestInsertAssignsIncreasingPositions() {
	a, b := newOrder(1), newOrder(2)
	s.insert(a, b)

	s.Greater(b.Position, a.Position)
	s.ErrorIs(s.store.InsertOrder(s.ctx, newOrder(3, func(o *models.Order) { o.ID = a.ID })), ErrDuplicateID)
}

func (s *StoreSuite) TestGetOrder() {
	o := newOrder(1)
	s.insert(o)

	got, err := s.store.GetOrder(s.ctx, o.ID)
	s.Require().NoError(err)
	s.Equal(o.OrderNumber, got.OrderNumber)
	s.True(o.TotalAmount.Equal(got.TotalAmount))

	_, err = s.store.GetOrder(s.ctx, "missing")
	s.ErrorIs(err, ErrNotFound)
}

func (s *StoreSuite) TestUpdateOrder() {
	o := newOrder(1)
	s.insert(o)

	o.Status = models.StatusAssigned
	o.AssignedTo = "appraiser-7"
	s.Require().NoError(s.store.UpdateOrder(s.ctx, o))

	got, err := s.store.GetOrder(s.ctx, o.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusAssigned, got.Status)
	s.Equal("appraiser-7", got.AssignedTo)

	s.ErrorIs(s.store.UpdateOrder(s.ctx, newOrder(2)), ErrNotFound)
}

func (s *StoreSuite) TestDeleteOrderHidesButKeepsRelatedRecords() {
	o := newOrder(1)
	s.insert(o)
	s.Require().NoError(s.store.AppendHistory(s.ctx, models.OrderHistoryEntry{
		ID: uuid.NewString(), OrderID: o.ID, Action: models.ActionCreated, CreatedAt: time.Now(),
	}))
	s.Require().NoError(s.store.AddNote(s.ctx, &models.OrderNote{
		ID: uuid.NewString(), OrderID: o.ID, Note: "call borrower", CreatedAt: time.Now(),
	}))

	s.Require().NoError(s.store.DeleteOrder(s.ctx, o.ID))
	s.ErrorIs(s.store.DeleteOrder(s.ctx, o.ID), ErrNotFound)

	_, err := s.store.GetOrder(s.ctx, o.ID)
	s.ErrorIs(err, ErrNotFound)

	exists, err := s.store.AddressExists(s.ctx, o.PropertyAddress)
	s.Require().NoError(err)
	s.False(exists)

	page, err := s.store.ListOrders(s.ctx, ListQuery{Limit: 10})
	s.Require().NoError(err)
	s.Empty(page.Items)

	history, err := s.store.ListHistory(s.ctx, o.ID)
	s.Require().NoError(err)
	s.Len(history, 1)

	notes, err := s.store.ListNotes(s.ctx, o.ID)
	s.Require().NoError(err)
	s.Len(notes, 1)

	count, err := s.store.CountOrders(s.ctx)
	s.Require().NoError(err)
	s.EqualValues(1, count)
}

func (s *StoreSuite) TestListOrdersPaginatesWithoutGapsOrRepeats() {
	const total = 23
	for i := 1; i <= total; i++ {
		s.insert(newOrder(i))
	}

	for _, limit := range []int{1, 5, 10, 23, 50} {
		seen := map[string]bool{}
		var numbers []string
		cursor := ""
		for pages := 0; pages <= total; pages++ {
			page, err := s.store.ListOrders(s.ctx, ListQuery{Cursor: cursor, Limit: limit})
			s.Require().NoError(err)
			s.LessOrEqual(len(page.Items), limit)
			for _, o := range page.Items {
				s.False(seen[o.ID], "order %s repeated with limit %d", o.OrderNumber, limit)
				seen[o.ID] = true
				numbers = append(numbers, o.OrderNumber)
			}
			if page.NextCursor == "" {
				break
			}
			cursor = page.NextCursor
		}
		s.Len(seen, total, "limit %d", limit)
		s.Equal("APR-2024-0001", numbers[0])
		s.Equal(fmt.Sprintf("APR-2024-%04d", total), numbers[len(numbers)-1])
	}
}

func (s *StoreSuite) TestListOrdersFilters() {
	s.insert(
		newOrder(1, func(o *models.Order) { o.Status = models.StatusNew; o.Priority = models.PriorityRush }),
		newOrder(2, func(o *models.Order) { o.Status = models.StatusCompleted; o.Priority = models.PriorityRush }),
		newOrder(3, func(o *models.Order) { o.Status = models.StatusCompleted; o.Priority = models.PriorityLow }),
		newOrder(4, func(o *models.Order) {
			o.Status = models.StatusInReview
			o.BorrowerName = "Jane Appleseed"
			o.ClientName = "Heritage Mortgage"
		}),
	)

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"no filter", Filter{}, []string{"APR-2024-0001", "APR-2024-0002", "APR-2024-0003", "APR-2024-0004"}},
		{"status set", Filter{Statuses: []models.OrderStatus{models.StatusCompleted}}, []string{"APR-2024-0002", "APR-2024-0003"}},
		{"status and priority", Filter{
			Statuses:   []models.OrderStatus{models.StatusCompleted},
			Priorities: []models.OrderPriority{models.PriorityRush},
		}, []string{"APR-2024-0002"}},
		{"search order number", Filter{Search: "apr-2024-0003"}, []string{"APR-2024-0003"}},
		{"search address", Filter{Search: "2 MAIN"}, []string{"APR-2024-0002"}},
		{"search borrower", Filter{Search: "appleseed"}, []string{"APR-2024-0004"}},
		{"search client name", Filter{Search: "heritage"}, []string{"APR-2024-0004"}},
		{"search with status", Filter{Search: "main", Statuses: []models.OrderStatus{models.StatusNew}}, []string{"APR-2024-0001"}},
		{"search treats wildcard literally", Filter{Search: "%"}, nil},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			page, err := s.store.ListOrders(s.ctx, ListQuery{Filter: tt.filter, Limit: 10})
			s.Require().NoError(err)
			var got []string
			for _, o := range page.Items {
				got = append(got, o.OrderNumber)
			}
			s.Equal(tt.want, got)
			s.Empty(page.NextCursor)
		})
	}
}

func (s *StoreSuite) TestListOrdersCursor() {
	a, b, c := newOrder(1), newOrder(2), newOrder(3)
	s.insert(a, b, c)

	_, err := s.store.ListOrders(s.ctx, ListQuery{Cursor: "does-not-exist", Limit: 10})
	s.ErrorIs(err, ErrInvalidCursor)

	// a cursor that has since been deleted still resumes after it
	s.Require().NoError(s.store.DeleteOrder(s.ctx, b.ID))
	page, err := s.store.ListOrders(s.ctx, ListQuery{Cursor: b.ID, Limit: 10})
	s.Require().NoError(err)
	s.Require().Len(page.Items, 1)
	s.Equal(c.ID, page.Items[0].ID)
}

func (s *StoreSuite) TestListOrdersDefaultLimit() {
	for i := 1; i <= DefaultLimit+1; i++ {
		s.insert(newOrder(i))
	}
	page, err := s.store.ListOrders(s.ctx, ListQuery{})
	s.Require().NoError(err)
	s.Len(page.Items, DefaultLimit)
	s.NotEmpty(page.NextCursor)
}

func (s *StoreSuite) TestAddressExistsIgnoresCaseOnly() {
	s.insert(newOrder(1, func(o *models.Order) { o.PropertyAddress = "123 Main Street" }))

	tests := map[string]bool{
		"123 Main Street":  true,
		"123 MAIN STREET":  true,
		"123 main street":  true,
		"123 Main Street ": false,
		"123 Main St":      false,
		"123  Main Street": false,
	}
	for address, want := range tests {
		got, err := s.store.AddressExists(s.ctx, address)
		s.Require().NoError(err)
		s.Equal(want, got, "address %q", address)
	}
}

func (s *StoreSuite) TestHistoryKeepsAppendOrder() {
	o := newOrder(1)
	s.insert(o)
	at := time.Now()
	s.Require().NoError(s.store.AppendHistory(s.ctx,
		models.OrderHistoryEntry{ID: uuid.NewString(), OrderID: o.ID, Action: models.ActionCreated, CreatedAt: at},
		models.OrderHistoryEntry{ID: uuid.NewString(), OrderID: o.ID, Action: models.ActionStatusChanged, Field: "status", CreatedAt: at},
	))
	s.Require().NoError(s.store.AppendHistory(s.ctx,
		models.OrderHistoryEntry{ID: uuid.NewString(), OrderID: o.ID, Action: models.ActionAssigned, Field: "assigned_to", CreatedAt: at},
	))

	history, err := s.store.ListHistory(s.ctx, o.ID)
	s.Require().NoError(err)
	s.Require().Len(history, 3)
	s.Equal(models.ActionCreated, history[0].Action)
	s.Equal(models.ActionStatusChanged, history[1].Action)
	s.Equal(models.ActionAssigned, history[2].Action)

	_, err = s.store.ListHistory(s.ctx, "missing")
	s.ErrorIs(err, ErrNotFound)
}

func (s *StoreSuite) TestDocuments() {
	o := newOrder(1)
	s.insert(o)
	doc := &models.OrderDocument{
		ID: uuid.NewString(), OrderID: o.ID, DocumentType: models.DocumentReport,
		FileName: "report.pdf", StorageKey: "orders/x/1_report.pdf", FileSize: 1024, UploadedAt: time.Now(),
	}
	s.Require().NoError(s.store.AddDocument(s.ctx, doc))
	s.ErrorIs(s.store.AddDocument(s.ctx, &models.OrderDocument{ID: uuid.NewString(), OrderID: "missing"}), ErrNotFound)

	docs, err := s.store.ListDocuments(s.ctx, o.ID)
	s.Require().NoError(err)
	s.Len(docs, 1)

	got, err := s.store.GetDocument(s.ctx, o.ID, doc.ID)
	s.Require().NoError(err)
	s.Equal("orders/x/1_report.pdf", got.StorageKey)

	s.Require().NoError(s.store.DeleteDocument(s.ctx, o.ID, doc.ID))
	s.ErrorIs(s.store.DeleteDocument(s.ctx, o.ID, doc.ID), ErrNotFound)
	_, err = s.store.GetDocument(s.ctx, o.ID, doc.ID)
	s.ErrorIs(err, ErrNotFound)
}

func (s *StoreSuite) TestClientsAndTemplates() {
	s.Require().NoError(s.store.SaveClient(s.ctx, &models.Client{
		ID: "c2", CompanyName: "Zenith Lending", IsActive: true,
		FeeSchedule: map[string]decimal.Decimal{"condo": decimal.NewFromInt(400)},
	}))
	s.Require().NoError(s.store.SaveClient(s.ctx, &models.Client{ID: "c1", CompanyName: "Acme Bank", IsActive: true}))

	clients, err := s.store.ListClients(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(clients, 2)
	s.Equal("Acme Bank", clients[0].CompanyName)

	client, err := s.store.GetClient(s.ctx, "c2")
	s.Require().NoError(err)
	fee, ok := client.DefaultFee(models.PropertyCondo)
	s.True(ok)
	s.True(decimal.NewFromInt(400).Equal(fee))

	_, err = s.store.GetClient(s.ctx, "nope")
	s.ErrorIs(err, ErrNotFound)

	s.Require().NoError(s.store.SaveTemplate(s.ctx, &models.OrderTemplate{
		ID: "t1", Name: "Rush purchase", Defaults: map[string]any{"priority": "rush"},
	}))
	tpl, err := s.store.GetTemplate(s.ctx, "t1")
	s.Require().NoError(err)
	s.Equal("rush", tpl.Defaults["priority"])

	templates, err := s.store.ListTemplates(s.ctx)
	s.Require().NoError(err)
	s.Len(templates, 1)
}

func TestFilterIsZero(t *testing.T) {
	assert.True(t, Filter{}.IsZero())
	assert.True(t, Filter{Search: "   "}.IsZero())
	assert.False(t, Filter{Search: "main"}.IsZero())
	assert.False(t, Filter{Statuses: []models.OrderStatus{models.StatusNew}}.IsZero())
}
