package intake

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/kendall-kelly/appraisal-orders-api/config"
	"github.com/kendall-kelly/appraisal-orders-api/metrics"
	"github.com/kendall-kelly/appraisal-orders-api/models"
	"github.com/kendall-kelly/appraisal-orders-api/services"
	"github.com/kendall-kelly/appraisal-orders-api/utils"
	"github.com/sirupsen/logrus"
)

// QuickEntryDraft holds the essentials taken down during a phone call
type QuickEntryDraft struct {
	BorrowerName    string               `json:"borrower_name"`
	PropertyAddress string               `json:"property_address"`
	ClientID        string               `json:"client_id"`
	Priority        models.OrderPriority `json:"priority"`
	Phone           string               `json:"phone"`
	Notes           string               `json:"notes"`
}

func defaultQuickEntry() QuickEntryDraft {
	return QuickEntryDraft{Priority: models.PriorityNormal}
}

// QuickEntry is the short form. Every change is written through to the draft store.
type QuickEntry struct {
	drafts  DraftStore
	submit  SubmitFunc
	metrics *metrics.Registry
	logger  *logrus.Logger

	mu sync.Mutex
}

// NewQuickEntry builds the quick entry form over the shared draft store
func NewQuickEntry(drafts DraftStore, submit SubmitFunc, m *metrics.Registry, logger *logrus.Logger) *QuickEntry {
	if drafts == nil {
		drafts = NewMemoryDraftStore()
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &QuickEntry{drafts: drafts, submit: submit, metrics: m, logger: logger}
}

// Get returns the stored draft or the defaults when there is none or it cannot be read
func (q *QuickEntry) Get(ctx context.Context) QuickEntryDraft {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.load(ctx)
}

func (q *QuickEntry) load(ctx context.Context) QuickEntryDraft {
	data, ok, err := q.drafts.Load(ctx, QuickEntryDraftKey)
	if err != nil {
		config.LogError(q.logger, "intake", "QuickEntry.load", "failed to read stored draft", QuickEntryDraftKey, err)
		return defaultQuickEntry()
	}
	if !ok {
		return defaultQuickEntry()
	}
	var d QuickEntryDraft
	if err := json.Unmarshal(data, &d); err != nil {
		config.LogError(q.logger, "intake", "QuickEntry.load", "discarding stored draft", QuickEntryDraftKey, fmt.Errorf("%w: %v", ErrDraftCorrupt, err))
		return defaultQuickEntry()
	}
	return d
}

// Update replaces the draft and saves it. The phone number is formatted as it is stored.
func (q *QuickEntry) Update(ctx context.Context, d QuickEntryDraft) (QuickEntryDraft, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	d.Phone = utils.FormatPhoneNumber(d.Phone)
	if d.Priority == "" {
		d.Priority = models.PriorityNormal
	}
	if !d.Priority.Valid() {
		return d, services.ValidationErrors{{Field: "priority", Message: fmt.Sprintf("%q is not a valid value", d.Priority)}}
	}
	data, err := json.Marshal(d)
	if err != nil {
		return d, err
	}
	if err := q.drafts.Save(ctx, QuickEntryDraftKey, data); err != nil {
		q.metrics.DraftSave(QuickEntryDraftKey, "failed")
		return d, err
	}
	q.metrics.DraftSave(QuickEntryDraftKey, "saved")
	return d, nil
}

// Submit creates a new order from the draft and clears it. On failure the draft is kept.
func (q *QuickEntry) Submit(ctx context.Context) (*models.Order, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	d := q.load(ctx)

	order := models.Order{
		Status:              models.StatusNew,
		Source:              models.SourceQuickEntry,
		Priority:            d.Priority,
		PropertyAddress:     strings.TrimSpace(d.PropertyAddress),
		BorrowerName:        strings.TrimSpace(d.BorrowerName),
		BorrowerPhone:       d.Phone,
		ClientID:            d.ClientID,
		SpecialInstructions: d.Notes,
	}
	created, err := q.submit(ctx, order)
	if err != nil {
		return nil, err
	}
	if err := q.drafts.Delete(ctx, QuickEntryDraftKey); err != nil {
		config.LogError(q.logger, "intake", "QuickEntry.Submit", "failed to clear stored draft", QuickEntryDraftKey, err)
	}
	q.metrics.DraftSave(QuickEntryDraftKey, "cleared")
	return created, nil
}

// Clear drops the stored draft
func (q *QuickEntry) Clear(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.drafts.Delete(ctx, QuickEntryDraftKey); err != nil {
		return err
	}
	q.metrics.DraftSave(QuickEntryDraftKey, "cleared")
	return nil
}
