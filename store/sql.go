package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kendall-kelly/appraisal-orders-api/models"
	"gorm.io/gorm"
)

// SQLStore keeps the collection in a gorm-managed database
type SQLStore struct {
	db *gorm.DB
}

// NewSQLStore migrates the schema and returns a store backed by db
func NewSQLStore(db *gorm.DB) (*SQLStore, error) {
	if err := db.AutoMigrate(
		&models.Order{},
		&models.Client{},
		&models.OrderHistoryEntry{},
		&models.OrderNote{},
		&models.OrderDocument{},
		&models.OrderTemplate{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &SQLStore{db: db}, nil
}

// DB exposes the underlying handle for health checks
func (s *SQLStore) DB() *gorm.DB {
	return s.db
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// InsertOrder appends a new order
func (s *SQLStore) InsertOrder(ctx context.Context, order *models.Order) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var exists int64
		if err := tx.Unscoped().Model(&models.Order{}).Where("id = ?", order.ID).Count(&exists).Error; err != nil {
			return err
		}
		if exists > 0 {
			return ErrDuplicateID
		}

		var maxPos int64
		if err := tx.Unscoped().Model(&models.Order{}).
			Select("COALESCE(MAX(position), 0)").Scan(&maxPos).Error; err != nil {
			return err
		}
		order.Position = maxPos + 1
		return tx.Create(order).Error
	})
}

// GetOrder returns a live order
func (s *SQLStore) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&order).Error; err != nil {
		return nil, translate(err)
	}
	return &order, nil
}

// UpdateOrder replaces a live order
func (s *SQLStore) UpdateOrder(ctx context.Context, order *models.Order) error {
	result := s.db.WithContext(ctx).Model(order).
		Select("*").
		Omit("ID", "Position", "CreatedAt", "DeletedAt").
		Updates(order)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteOrder soft-deletes an order
func (s *SQLStore) DeleteOrder(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Order{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func applyFilter(tx *gorm.DB, f Filter) *gorm.DB {
	if len(f.Statuses) > 0 {
		tx = tx.Where("status IN ?", f.Statuses)
	}
	if len(f.Priorities) > 0 {
		tx = tx.Where("priority IN ?", f.Priorities)
	}
	if search := strings.ToLower(strings.TrimSpace(f.Search)); search != "" {
		pattern := "%" + likeEscaper.Replace(search) + "%"
		tx = tx.Where(
			`(LOWER(order_number) LIKE ? ESCAPE '\' OR LOWER(property_address) LIKE ? ESCAPE '\' OR `+
				`LOWER(borrower_name) LIKE ? ESCAPE '\' OR LOWER(client_name) LIKE ? ESCAPE '\')`,
			pattern, pattern, pattern, pattern,
		)
	}
	return tx
}

// ListOrders returns one page of live orders in position order
func (s *SQLStore) ListOrders(ctx context.Context, q ListQuery) (Page, error) {
	db := s.db.WithContext(ctx)

	var after int64
	if q.Cursor != "" {
		var cursor models.Order
		if err := db.Unscoped().Select("position").Where("id = ?", q.Cursor).First(&cursor).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return Page{}, ErrInvalidCursor
			}
			return Page{}, err
		}
		after = cursor.Position
	}

	limit := q.limit()
	var items []models.Order
	err := applyFilter(db.Model(&models.Order{}), q.Filter).
		Where("position > ?", after).
		Order("position ASC").
		Limit(limit + 1).
		Find(&items).Error
	if err != nil {
		return Page{}, err
	}

	page := Page{Items: items}
	if len(items) > limit {
		page.Items = items[:limit]
		page.NextCursor = page.Items[limit-1].ID
	}
	if page.Items == nil {
		page.Items = []models.Order{}
	}
	return page, nil
}

// LiveOrders returns every live order matching f
func (s *SQLStore) LiveOrders(ctx context.Context, f Filter) ([]models.Order, error) {
	var items []models.Order
	err := applyFilter(s.db.WithContext(ctx).Model(&models.Order{}), f).
		Order("position ASC").
		Find(&items).Error
	return items, err
}

// AddressExists reports whether a live order uses address, ignoring case
func (s *SQLStore) AddressExists(ctx context.Context, address string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Order{}).
		Where("LOWER(property_address) = LOWER(?)", address).
		Count(&count).Error
	return count > 0, err
}

// CountOrders counts every order ever inserted, deleted ones included
func (s *SQLStore) CountOrders(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Unscoped().Model(&models.Order{}).Count(&count).Error
	return count, err
}

func (s *SQLStore) orderExists(tx *gorm.DB, orderID string) error {
	var count int64
	if err := tx.Unscoped().Model(&models.Order{}).Where("id = ?", orderID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrNotFound
	}
	return nil
}

// AppendHistory appends audit entries in order
func (s *SQLStore) AppendHistory(ctx context.Context, entries ...models.OrderHistoryEntry) error {
	if len(entries) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var seq int64
		if err := tx.Model(&models.OrderHistoryEntry{}).
			Select("COALESCE(MAX(sequence), 0)").Scan(&seq).Error; err != nil {
			return err
		}
		for i := range entries {
			seq++
			entries[i].Sequence = seq
		}
		return tx.Create(&entries).Error
	})
}

// ListHistory returns the audit trail in append order
func (s *SQLStore) ListHistory(ctx context.Context, orderID string) ([]models.OrderHistoryEntry, error) {
	db := s.db.WithContext(ctx)
	if err := s.orderExists(db, orderID); err != nil {
		return nil, err
	}
	entries := []models.OrderHistoryEntry{}
	err := db.Where("order_id = ?", orderID).Order("sequence ASC").Find(&entries).Error
	return entries, err
}

// AddNote attaches a note to an order
func (s *SQLStore) AddNote(ctx context.Context, note *models.OrderNote) error {
	db := s.db.WithContext(ctx)
	if err := s.orderExists(db, note.OrderID); err != nil {
		return err
	}
	return db.Create(note).Error
}

// ListNotes returns notes oldest first
func (s *SQLStore) ListNotes(ctx context.Context, orderID string) ([]models.OrderNote, error) {
	db := s.db.WithContext(ctx)
	if err := s.orderExists(db, orderID); err != nil {
		return nil, err
	}
	notes := []models.OrderNote{}
	err := db.Where("order_id = ?", orderID).Order("created_at ASC").Find(&notes).Error
	return notes, err
}

// AddDocument records an uploaded document
func (s *SQLStore) AddDocument(ctx context.Context, doc *models.OrderDocument) error {
	db := s.db.WithContext(ctx)
	if err := s.orderExists(db, doc.OrderID); err != nil {
		return err
	}
	return db.Create(doc).Error
}

// ListDocuments returns an order's documents
func (s *SQLStore) ListDocuments(ctx context.Context, orderID string) ([]models.OrderDocument, error) {
	db := s.db.WithContext(ctx)
	if err := s.orderExists(db, orderID); err != nil {
		return nil, err
	}
	docs := []models.OrderDocument{}
	err := db.Where("order_id = ?", orderID).Order("uploaded_at ASC").Find(&docs).Error
	return docs, err
}

// GetDocument returns one document of an order
func (s *SQLStore) GetDocument(ctx context.Context, orderID, documentID string) (*models.OrderDocument, error) {
	var doc models.OrderDocument
	err := s.db.WithContext(ctx).Where("order_id = ? AND id = ?", orderID, documentID).First(&doc).Error
	if err != nil {
		return nil, translate(err)
	}
	return &doc, nil
}

// DeleteDocument removes a document record
func (s *SQLStore) DeleteDocument(ctx context.Context, orderID, documentID string) error {
	result := s.db.WithContext(ctx).Where("order_id = ? AND id = ?", orderID, documentID).Delete(&models.OrderDocument{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveClient inserts or replaces a client
func (s *SQLStore) SaveClient(ctx context.Context, client *models.Client) error {
	return s.db.WithContext(ctx).Save(client).Error
}

// GetClient returns one client
func (s *SQLStore) GetClient(ctx context.Context, id string) (*models.Client, error) {
	var client models.Client
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&client).Error; err != nil {
		return nil, translate(err)
	}
	return &client, nil
}

// ListClients returns every client
func (s *SQLStore) ListClients(ctx context.Context) ([]models.Client, error) {
	clients := []models.Client{}
	err := s.db.WithContext(ctx).Order("company_name ASC").Find(&clients).Error
	return clients, err
}

// SaveTemplate inserts or replaces a template
func (s *SQLStore) SaveTemplate(ctx context.Context, tpl *models.OrderTemplate) error {
	return s.db.WithContext(ctx).Save(tpl).Error
}

// GetTemplate returns one template
func (s *SQLStore) GetTemplate(ctx context.Context, id string) (*models.OrderTemplate, error) {
	var tpl models.OrderTemplate
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&tpl).Error; err != nil {
		return nil, translate(err)
	}
	return &tpl, nil
}

// ListTemplates returns every template
func (s *SQLStore) ListTemplates(ctx context.Context) ([]models.OrderTemplate, error) {
	templates := []models.OrderTemplate{}
	err := s.db.WithContext(ctx).Order("name ASC").Find(&templates).Error
	return templates, err
}
