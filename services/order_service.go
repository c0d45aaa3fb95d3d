package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/kendall-kelly/appraisal-orders-api/config"
	"github.com/kendall-kelly/appraisal-orders-api/metrics"
	"github.com/kendall-kelly/appraisal-orders-api/models"
	"github.com/kendall-kelly/appraisal-orders-api/store"
	"github.com/sirupsen/logrus"
	"github.com/wI2L/jsondiff"
	"gorm.io/gorm"
)

const (
	// MaxListLimit caps a single page
	MaxListLimit = 100

	duplicateMessage = "An order with this address was created recently."
)

// ListParams are the list query inputs after transport decoding
type ListParams struct {
	Search     string
	Statuses   []models.OrderStatus
	Priorities []models.OrderPriority
	Cursor     string
	Limit      int
}

// ListResult is one page of orders. NextCursor is empty on the last page.
type ListResult struct {
	Items      []models.Order `json:"items"`
	NextCursor string         `json:"nextCursor,omitempty"`
}

func (r ListResult) clone() ListResult {
	return ListResult{Items: append([]models.Order{}, r.Items...), NextCursor: r.NextCursor}
}

// DuplicateResult is the advisory answer to an address check
type DuplicateResult struct {
	HasDuplicate bool   `json:"hasDuplicate"`
	Message      string `json:"message,omitempty"`
}

// BulkFailure reports why one id of a bulk patch was not applied
type BulkFailure struct {
	ID    string `json:"id"`
	Code  string `json:"code"`
	Error string `json:"error"`
}

// BulkResult names every requested id exactly once
type BulkResult struct {
	Succeeded []string      `json:"succeeded"`
	Failed    []BulkFailure `json:"failed"`
}

// OrderServiceOptions carries the optional collaborators of an OrderService
type OrderServiceOptions struct {
	Cache   ListCache
	Events  EventPublisher
	Metrics *metrics.Registry
	Logger  *logrus.Logger
	Clock   func() time.Time
}

// OrderService answers order queries and is the only mutator of the order collection
type OrderService struct {
	store    store.Store
	cache    ListCache
	events   EventPublisher
	metrics  *metrics.Registry
	logger   *logrus.Logger
	now      func() time.Time
	validate *validator.Validate

	// numbering serialises order number assignment
	numbering sync.Mutex
	// writes serialises read-modify-write of stored orders
	writes sync.Mutex

	cacheMu  sync.Mutex
	cacheGen uint64
}

// NewOrderService builds the service over s, filling nil options with no-op defaults
func NewOrderService(s store.Store, opts OrderServiceOptions) *OrderService {
	svc := &OrderService{
		store:    s,
		cache:    opts.Cache,
		events:   opts.Events,
		metrics:  opts.Metrics,
		logger:   opts.Logger,
		now:      opts.Clock,
		validate: NewValidator(""),
	}
	if svc.cache == nil {
		svc.cache = nopListCache{}
	}
	if svc.events == nil {
		svc.events = NopEventPublisher{}
	}
	if svc.logger == nil {
		svc.logger = logrus.StandardLogger()
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	return svc
}

// Now is the service clock
func (s *OrderService) Now() time.Time {
	return s.now()
}

func firstPageKey(limit int) string {
	return fmt.Sprintf("first-page:%d", limit)
}

func normaliseLimit(limit int) int {
	switch {
	case limit <= 0:
		return store.DefaultLimit
	case limit > MaxListLimit:
		return MaxListLimit
	default:
		return limit
	}
}

// List returns one page of live orders in insertion order
func (s *OrderService) List(ctx context.Context, p ListParams) (*ListResult, error) {
	q := store.ListQuery{
		Filter: store.Filter{Search: p.Search, Statuses: p.Statuses, Priorities: p.Priorities},
		Cursor: p.Cursor,
		Limit:  normaliseLimit(p.Limit),
	}
	cacheable := q.Cursor == "" && q.Filter.IsZero()
	key := firstPageKey(q.Limit)

	if cacheable {
		cached, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			config.LogError(s.logger, "OrderService", "List", "list cache read failed", key, err)
		}
		if ok {
			s.metrics.CacheHit()
			return cached, nil
		}
		s.metrics.CacheMiss()
	}

	s.cacheMu.Lock()
	gen := s.cacheGen
	s.cacheMu.Unlock()

	page, err := s.store.ListOrders(ctx, q)
	if err != nil {
		return nil, err
	}
	result := &ListResult{Items: page.Items, NextCursor: page.NextCursor}

	if cacheable {
		s.cacheMu.Lock()
		// a mutation since the read means this page may already be stale
		if gen == s.cacheGen {
			if err := s.cache.Set(ctx, key, result); err != nil {
				config.LogError(s.logger, "OrderService", "List", "list cache write failed", key, err)
			}
		}
		s.cacheMu.Unlock()
	}
	return result, nil
}

func (s *OrderService) invalidate(ctx context.Context) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	s.cacheGen++
	if err := s.cache.Invalidate(ctx); err != nil {
		config.LogError(s.logger, "OrderService", "invalidate", "list cache invalidation failed", nil, err)
	}
	s.metrics.CacheInvalidated()
}

func (s *OrderService) publish(ctx context.Context, eventType string, o *models.Order, actor string, fields []string) {
	event := OrderEvent{
		Type:        eventType,
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		Actor:       actor,
		Fields:      fields,
		At:          s.now(),
	}
	if err := s.events.Publish(ctx, event); err != nil {
		config.LogError(s.logger, "OrderService", "publish", "order event publish failed", event, err)
		s.metrics.EventPublished(eventType, "failed")
		return
	}
	s.metrics.EventPublished(eventType, "published")
}

// CheckDuplicate reports whether a live order already uses the address, ignoring case only
func (s *OrderService) CheckDuplicate(ctx context.Context, address string) (DuplicateResult, error) {
	if strings.TrimSpace(address) == "" {
		return DuplicateResult{}, nil
	}
	found, err := s.store.AddressExists(ctx, address)
	if err != nil {
		return DuplicateResult{}, err
	}
	s.metrics.DuplicateCheck(found)
	if !found {
		return DuplicateResult{}, nil
	}
	return DuplicateResult{HasDuplicate: true, Message: duplicateMessage}, nil
}

// Get returns a live order
func (s *OrderService) Get(ctx context.Context, id string) (*models.Order, error) {
	o, err := s.store.GetOrder(ctx, id)
	if err != nil {
		return nil, notFound("order", id, err)
	}
	return o, nil
}

// Create assigns identity and numbering, derives the total and appends the order
func (s *OrderService) Create(ctx context.Context, draft models.Order, actor string) (*models.Order, error) {
	now := s.now()
	o := draft
	o.ID = uuid.NewString()
	o.Position = 0
	o.DeletedAt = gorm.DeletedAt{}
	if o.Status == "" {
		o.Status = models.StatusNew
	}
	if o.Priority == "" {
		o.Priority = models.PriorityNormal
	}
	if o.OrderedDate == nil {
		o.OrderedDate = &now
	}
	if o.AssignedTo != "" && o.Status == models.StatusAssigned && o.AssignedDate == nil {
		o.AssignedDate = &now
	}
	o.CreatedBy = actor
	o.CreatedAt = now
	o.UpdatedAt = now
	o.RecomputeTotal()

	errs := validateOrder(s.validate, &o, now)
	if o.ClientID != "" {
		client, err := s.store.GetClient(ctx, o.ClientID)
		switch {
		case errors.Is(err, store.ErrNotFound):
			errs.add("client_id", "must reference an existing client")
		case err != nil:
			return nil, err
		default:
			o.ClientName = client.CompanyName
		}
	}
	if err := errs.orNil(); err != nil {
		return nil, err
	}

	if err := s.insert(ctx, &o); err != nil {
		return nil, err
	}

	status := string(o.Status)
	if err := s.store.AppendHistory(ctx, models.OrderHistoryEntry{
		ID:        uuid.NewString(),
		OrderID:   o.ID,
		Action:    models.ActionCreated,
		ToValue:   &status,
		ChangedBy: actor,
		CreatedAt: now,
	}); err != nil {
		return nil, err
	}

	s.invalidate(ctx)
	s.metrics.OrderCreated()
	s.publish(ctx, EventOrderCreated, &o, actor, nil)
	s.logger.WithFields(logrus.Fields{"order_id": o.ID, "order_number": o.OrderNumber}).Info("order created")
	return &o, nil
}

func (s *OrderService) insert(ctx context.Context, o *models.Order) error {
	s.numbering.Lock()
	defer s.numbering.Unlock()

	count, err := s.store.CountOrders(ctx)
	if err != nil {
		return err
	}
	o.OrderNumber = fmt.Sprintf("APR-%d-%04d", o.CreatedAt.Year(), count+1)
	return s.store.InsertOrder(ctx, o)
}

// readOnlyFields cannot be changed through a patch
var readOnlyFields = map[string]bool{
	"id":           true,
	"order_number": true,
	"created_at":   true,
	"updated_at":   true,
	"total_amount": true,
	"client_name":  true,
	"created_by":   true,
	"source":       true,
}

var orderFields = func() map[string]bool {
	fields := map[string]bool{}
	t := reflect.TypeOf(models.Order{})
	for i := 0; i < t.NumField(); i++ {
		name := strings.SplitN(t.Field(i).Tag.Get("json"), ",", 2)[0]
		if name != "" && name != "-" {
			fields[name] = true
		}
	}
	return fields
}()

// checkPatchFields rejects unknown or read-only keys and values that cannot decode into their field
func checkPatchFields(fields map[string]any) error {
	var errs ValidationErrors
	if len(fields) == 0 {
		errs.add("body", "at least one field is required")
		return errs
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		switch {
		case readOnlyFields[k]:
			errs.add(k, "is read-only")
		case !orderFields[k]:
			errs.add(k, "is not a recognized field")
		default:
			raw, err := json.Marshal(map[string]any{k: fields[k]})
			if err != nil {
				errs.add(k, "has an unsupported value")
				continue
			}
			var decoded models.Order
			if err := json.Unmarshal(raw, &decoded); err != nil {
				errs.add(k, "has an invalid value")
			}
		}
	}
	return errs.orNil()
}

// Patch merges fields into a live order and records one history entry per changed field
func (s *OrderService) Patch(ctx context.Context, id string, fields map[string]any, actor string) (*models.Order, error) {
	if err := checkPatchFields(fields); err != nil {
		return nil, err
	}
	return s.patchWith(ctx, id, actor, func(*models.Order) map[string]any { return fields })
}

func (s *OrderService) patchWith(ctx context.Context, id, actor string, fieldsFor func(current *models.Order) map[string]any) (*models.Order, error) {
	o, changed, err := s.apply(ctx, id, actor, fieldsFor)
	if err != nil {
		return nil, err
	}
	if len(changed) > 0 {
		s.invalidate(ctx)
		s.metrics.OrderPatched()
		s.publish(ctx, EventOrderUpdated, o, actor, changed)
	}
	return o, nil
}

// apply reads, merges and writes one order under the writes lock; fieldsFor sees the stored state
func (s *OrderService) apply(ctx context.Context, id, actor string, fieldsFor func(current *models.Order) map[string]any) (*models.Order, []string, error) {
	s.writes.Lock()
	defer s.writes.Unlock()

	current, err := s.store.GetOrder(ctx, id)
	if err != nil {
		return nil, nil, notFound("order", id, err)
	}
	fields := fieldsFor(current)

	before, err := json.Marshal(current)
	if err != nil {
		return nil, nil, err
	}
	patchDoc, err := json.Marshal(fields)
	if err != nil {
		return nil, nil, err
	}
	merged, err := jsonpatch.MergePatch(before, patchDoc)
	if err != nil {
		return nil, nil, fmt.Errorf("merge patch: %w", err)
	}
	var next models.Order
	if err := json.Unmarshal(merged, &next); err != nil {
		return nil, nil, ValidationErrors{{Field: "body", Message: err.Error()}}
	}
	next.Position = current.Position
	next.DeletedAt = current.DeletedAt
	next.RecomputeTotal()

	now := s.now()
	errs := validateOrder(s.validate, &next, time.Time{})
	if next.ClientID != current.ClientID && next.ClientID != "" {
		client, err := s.store.GetClient(ctx, next.ClientID)
		switch {
		case errors.Is(err, store.ErrNotFound):
			errs.add("client_id", "must reference an existing client")
		case err != nil:
			return nil, nil, err
		default:
			next.ClientName = client.CompanyName
		}
	}
	if err := errs.orNil(); err != nil {
		return nil, nil, err
	}
	if next.AssignedTo != current.AssignedTo {
		if _, explicit := fields["assigned_date"]; !explicit {
			if next.AssignedTo == "" {
				next.AssignedDate = nil
			} else {
				next.AssignedDate = &now
			}
		}
	}

	entries, changed, err := s.diffHistory(current, &next, actor, now)
	if err != nil {
		return nil, nil, err
	}
	if len(changed) == 0 {
		return current, nil, nil
	}

	next.UpdatedAt = now
	if err := s.store.UpdateOrder(ctx, &next); err != nil {
		return nil, nil, notFound("order", id, err)
	}
	if err := s.store.AppendHistory(ctx, entries...); err != nil {
		return nil, nil, err
	}
	return &next, changed, nil
}

// diffHistory compares the order before and after a patch, one entry per top-level field
func (s *OrderService) diffHistory(before, after *models.Order, actor string, at time.Time) ([]models.OrderHistoryEntry, []string, error) {
	beforeJSON, err := json.Marshal(before)
	if err != nil {
		return nil, nil, err
	}
	afterJSON, err := json.Marshal(after)
	if err != nil {
		return nil, nil, err
	}
	ops, err := jsondiff.CompareJSON(beforeJSON, afterJSON)
	if err != nil {
		return nil, nil, err
	}

	seen := map[string]bool{}
	var changed []string
	for _, op := range ops {
		field := strings.SplitN(strings.TrimPrefix(string(op.Path), "/"), "/", 2)[0]
		if field == "" || field == "updated_at" || seen[field] {
			continue
		}
		seen[field] = true
		changed = append(changed, field)
	}
	sort.Strings(changed)

	var beforeMap, afterMap map[string]any
	if err := json.Unmarshal(beforeJSON, &beforeMap); err != nil {
		return nil, nil, err
	}
	if err := json.Unmarshal(afterJSON, &afterMap); err != nil {
		return nil, nil, err
	}

	entries := make([]models.OrderHistoryEntry, 0, len(changed))
	for _, field := range changed {
		action := models.ActionFieldUpdated
		switch field {
		case "status":
			action = models.ActionStatusChanged
		case "assigned_to":
			action = models.ActionAssigned
		}
		entries = append(entries, models.OrderHistoryEntry{
			ID:        uuid.NewString(),
			OrderID:   before.ID,
			Action:    action,
			Field:     field,
			FromValue: historyValue(beforeMap[field]),
			ToValue:   historyValue(afterMap[field]),
			ChangedBy: actor,
			CreatedAt: at,
		})
	}
	return entries, changed, nil
}

func historyValue(v any) *string {
	switch val := v.(type) {
	case nil:
		return nil
	case string:
		return &val
	default:
		raw, err := json.Marshal(val)
		if err != nil {
			return nil
		}
		str := string(raw)
		return &str
	}
}

// BulkPatch applies the same fields to each id independently and keeps going past failures
func (s *OrderService) BulkPatch(ctx context.Context, ids []string, fields map[string]any, actor string) (*BulkResult, error) {
	if len(ids) == 0 {
		return nil, ValidationErrors{{Field: "ids", Message: "at least one id is required"}}
	}
	if err := checkPatchFields(fields); err != nil {
		return nil, err
	}

	result := &BulkResult{Succeeded: []string{}, Failed: []BulkFailure{}}
	seen := make(map[string]bool, len(ids))
	anyChanged := false
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true

		o, changed, err := s.apply(ctx, id, actor, func(*models.Order) map[string]any { return fields })
		if err != nil {
			result.Failed = append(result.Failed, BulkFailure{ID: id, Code: ErrorCode(err), Error: err.Error()})
			if !errors.Is(err, ErrNotFound) && !IsValidation(err) {
				config.LogError(s.logger, "OrderService", "BulkPatch", "bulk patch item failed", id, err)
			}
			continue
		}
		result.Succeeded = append(result.Succeeded, id)
		if len(changed) > 0 {
			anyChanged = true
			s.metrics.OrderPatched()
			s.publish(ctx, EventOrderUpdated, o, actor, changed)
		}
	}
	if anyChanged {
		s.invalidate(ctx)
	}
	return result, nil
}

// ErrorCode classifies an error for transport envelopes
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case IsValidation(err):
		return "VALIDATION_ERROR"
	default:
		return "INTERNAL_ERROR"
	}
}

// SoftDelete hides the order from list and duplicate checks but keeps its history, notes and documents
func (s *OrderService) SoftDelete(ctx context.Context, id string, actor string) error {
	s.writes.Lock()
	o, err := s.softDelete(ctx, id, actor)
	s.writes.Unlock()
	if err != nil {
		return err
	}

	s.invalidate(ctx)
	s.metrics.OrderDeleted()
	s.publish(ctx, EventOrderDeleted, o, actor, nil)
	return nil
}

func (s *OrderService) softDelete(ctx context.Context, id string, actor string) (*models.Order, error) {
	o, err := s.store.GetOrder(ctx, id)
	if err != nil {
		return nil, notFound("order", id, err)
	}
	if err := s.store.DeleteOrder(ctx, id); err != nil {
		return nil, notFound("order", id, err)
	}
	if err := s.store.AppendHistory(ctx, models.OrderHistoryEntry{
		ID:        uuid.NewString(),
		OrderID:   id,
		Action:    models.ActionDeleted,
		ChangedBy: actor,
		CreatedAt: s.now(),
	}); err != nil {
		return nil, err
	}
	return o, nil
}

// Assign hands the order to an appraiser, moving a new order to assigned
func (s *OrderService) Assign(ctx context.Context, id, appraiserID, actor string) (*models.Order, error) {
	if strings.TrimSpace(appraiserID) == "" {
		return nil, ValidationErrors{{Field: "appraiser_id", Message: "is required"}}
	}
	return s.patchWith(ctx, id, actor, func(current *models.Order) map[string]any {
		fields := map[string]any{"assigned_to": appraiserID}
		if current.Status == models.StatusNew {
			fields["status"] = string(models.StatusAssigned)
		}
		return fields
	})
}

// History returns the audit trail in append order, including for deleted orders
func (s *OrderService) History(ctx context.Context, id string) ([]models.OrderHistoryEntry, error) {
	entries, err := s.store.ListHistory(ctx, id)
	if err != nil {
		return nil, notFound("order", id, err)
	}
	return entries, nil
}

// AddNote attaches a note to a live order and records it in the history
func (s *OrderService) AddNote(ctx context.Context, id, text string, internal bool, actor string) (*models.OrderNote, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ValidationErrors{{Field: "note", Message: "is required"}}
	}
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	now := s.now()
	note := &models.OrderNote{
		ID:         uuid.NewString(),
		OrderID:    id,
		Note:       text,
		IsInternal: internal,
		CreatedBy:  actor,
		CreatedAt:  now,
	}
	if err := s.store.AddNote(ctx, note); err != nil {
		return nil, notFound("order", id, err)
	}
	if err := s.store.AppendHistory(ctx, models.OrderHistoryEntry{
		ID:        uuid.NewString(),
		OrderID:   id,
		Action:    models.ActionNoteAdded,
		ChangedBy: actor,
		Notes:     text,
		CreatedAt: now,
	}); err != nil {
		return nil, err
	}
	return note, nil
}

// Notes lists notes oldest first; internal notes are dropped unless requested
func (s *OrderService) Notes(ctx context.Context, id string, includeInternal bool) ([]models.OrderNote, error) {
	notes, err := s.store.ListNotes(ctx, id)
	if err != nil {
		return nil, notFound("order", id, err)
	}
	if includeInternal {
		return notes, nil
	}
	visible := make([]models.OrderNote, 0, len(notes))
	for _, n := range notes {
		if !n.IsInternal {
			visible = append(visible, n)
		}
	}
	return visible, nil
}

// Clients lists the client catalog
func (s *OrderService) Clients(ctx context.Context) ([]models.Client, error) {
	return s.store.ListClients(ctx)
}

// Client looks up one client by id
func (s *OrderService) Client(ctx context.Context, id string) (*models.Client, error) {
	c, err := s.store.GetClient(ctx, id)
	if err != nil {
		return nil, notFound("client", id, err)
	}
	return c, nil
}

// Templates lists the saved order templates
func (s *OrderService) Templates(ctx context.Context) ([]models.OrderTemplate, error) {
	return s.store.ListTemplates(ctx)
}

// Template looks up one order template by id
func (s *OrderService) Template(ctx context.Context, id string) (*models.OrderTemplate, error) {
	t, err := s.store.GetTemplate(ctx, id)
	if err != nil {
		return nil, notFound("template", id, err)
	}
	return t, nil
}
