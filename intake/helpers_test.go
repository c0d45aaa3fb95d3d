package intake

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/kendall-kelly/appraisal-orders-api/models"
	"github.com/kendall-kelly/appraisal-orders-api/services"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, time.June, 3, 9, 30, 0, 0, time.UTC)

type fakeClients map[string]*models.Client

func (c fakeClients) Client(_ context.Context, id string) (*models.Client, error) {
	client, ok := c[id]
	if !ok {
		return nil, &services.NotFoundError{Resource: "client", ID: id}
	}
	return client, nil
}

type fakeTemplates map[string]*models.OrderTemplate

func (t fakeTemplates) Template(_ context.Context, id string) (*models.OrderTemplate, error) {
	tpl, ok := t[id]
	if !ok {
		return nil, &services.NotFoundError{Resource: "template", ID: id}
	}
	return tpl, nil
}

type submitSpy struct {
	mu     sync.Mutex
	orders []models.Order
	err    error
}

func (s *submitSpy) submit(_ context.Context, o models.Order) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders = append(s.orders, o)
	if s.err != nil {
		return nil, s.err
	}
	o.ID = "order-1"
	return &o, nil
}

func (s *submitSpy) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

func testClients() fakeClients {
	return fakeClients{
		"client-1": {
			ID:          "client-1",
			CompanyName: "First National Bank",
			FeeSchedule: map[string]decimal.Decimal{"single_family": decimal.NewFromInt(450)},
		},
	}
}

type harness struct {
	drafts *MemoryDraftStore
	spy    *submitSpy
	logs   *test.Hook
	opts   Options
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger, hook := test.NewNullLogger()
	h := &harness{drafts: NewMemoryDraftStore(), spy: &submitSpy{}, logs: hook}
	h.opts = Options{
		Drafts:           h.drafts,
		Clients:          testClients(),
		Templates:        fakeTemplates{},
		Submit:           h.spy.submit,
		AutosaveInterval: time.Hour,
		DebounceDelay:    time.Millisecond,
		Logger:           logger,
		Clock:            func() time.Time { return testNow },
	}
	return h
}

func (h *harness) mount(t *testing.T) *Workflow {
	t.Helper()
	wf, err := New(context.Background(), h.opts)
	require.NoError(t, err)
	t.Cleanup(wf.Close)
	return wf
}

func validFields() map[string]any {
	return map[string]any{
		"property_address": "12 Oak Ave",
		"property_city":    "Austin",
		"property_state":   "TX",
		"property_zip":     "78701",
		"borrower_name":    "Jane Doe",
		"client_id":        "client-1",
		"fee_amount":       450,
		"tech_fee":         25,
	}
}

// toReview fills a valid draft and walks forward to the review step
func toReview(t *testing.T, wf *Workflow) {
	t.Helper()
	ctx := context.Background()
	_, err := wf.Update(ctx, validFields())
	require.NoError(t, err)
	for i := 0; i < len(Steps)-1; i++ {
		_, err := wf.Next(ctx)
		require.NoError(t, err)
	}
	require.Equal(t, StepReview, wf.Snapshot().Step)
}
