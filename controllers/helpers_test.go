package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/appraisal-orders-api/intake"
	"github.com/kendall-kelly/appraisal-orders-api/metrics"
	"github.com/kendall-kelly/appraisal-orders-api/middleware"
	"github.com/kendall-kelly/appraisal-orders-api/models"
	"github.com/kendall-kelly/appraisal-orders-api/services"
	"github.com/kendall-kelly/appraisal-orders-api/store"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, time.June, 3, 9, 30, 0, 0, time.UTC)

const testClientID = "client-1"

type apiFixture struct {
	router  *gin.Engine
	store   *store.MemoryStore
	orders  *services.OrderService
	storage *services.MockS3Service
	drafts  *intake.MemoryDraftStore
	manager *intake.Manager
}

func newAPI(t *testing.T) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger, _ := test.NewNullLogger()
	reg := metrics.NewRegistry()

	f := &apiFixture{
		store:   store.NewMemoryStore(),
		storage: services.NewMockS3Service(),
		drafts:  intake.NewMemoryDraftStore(),
	}
	clock := func() time.Time { return testNow }
	f.orders = services.NewOrderService(f.store, services.OrderServiceOptions{
		Cache:   services.NewMemoryListCache(time.Minute),
		Metrics: reg,
		Logger:  logger,
		Clock:   clock,
	})
	require.NoError(t, f.store.SaveClient(context.Background(), &models.Client{
		ID:          testClientID,
		CompanyName: "First National Bank",
		FeeSchedule: map[string]decimal.Decimal{"single_family": decimal.NewFromInt(450)},
		IsActive:    true,
	}))

	submit := func(ctx context.Context, o models.Order) (*models.Order, error) {
		return f.orders.Create(ctx, o, middleware.ActorFromContext(ctx))
	}
	f.manager = intake.NewManager(intake.Options{
		Drafts:           f.drafts,
		Templates:        f.orders,
		Clients:          f.orders,
		Duplicates:       f.orders,
		Submit:           submit,
		AutosaveInterval: time.Hour,
		DebounceDelay:    time.Millisecond,
		Metrics:          reg,
		Logger:           logger,
		Clock:            clock,
	})
	t.Cleanup(f.manager.Close)

	h := &Handlers{
		Orders:        f.orders,
		Documents:     services.NewDocumentService(f.store, f.storage, logger),
		Notifications: services.NewNotificationService(services.NotificationSettings{SMS: true}, nil, reg, logger),
		Intake:        f.manager,
		QuickEntry:    intake.NewQuickEntry(f.drafts, submit, reg, logger),
		EmailIntake:   intake.NewEmailIntake(f.orders, submit, logger),
		UploadDir:     t.TempDir(),
		Logger:        logger,
	}

	f.router = gin.New()
	f.router.Use(middleware.Actor())
	RegisterRoutes(f.router.Group("/api/v1"), h)
	return f
}

func (f *apiFixture) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.ActorHeader, "processor-12")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	var response map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &response)
	return w, response
}

func (f *apiFixture) createOrder(t *testing.T, address string) *models.Order {
	t.Helper()
	due := testNow.Add(72 * time.Hour)
	o, err := f.orders.Create(context.Background(), models.Order{
		OrderType:       models.OrderTypePurchase,
		PropertyAddress: address,
		PropertyCity:    "Austin",
		PropertyState:   "TX",
		PropertyZip:     "78701",
		PropertyType:    models.PropertySingleFamily,
		BorrowerName:    "Jane Doe",
		BorrowerPhone:   "(555) 123-4567",
		ClientID:        testClientID,
		DueDate:         &due,
		FeeAmount:       decimal.NewFromInt(450),
		TechFee:         decimal.NewFromInt(25),
	}, "seed")
	require.NoError(t, err)
	return o
}

func validOrderBody() map[string]any {
	return map[string]any{
		"order_type":       "purchase",
		"property_address": "12 Oak Ave",
		"property_city":    "Austin",
		"property_state":   "TX",
		"property_zip":     "78701",
		"property_type":    "single_family",
		"borrower_name":    "Jane Doe",
		"client_id":        testClientID,
		"due_date":         testNow.Add(48 * time.Hour).Format(time.RFC3339),
		"fee_amount":       "450",
		"tech_fee":         "25",
	}
}

func errorCode(response map[string]any) string {
	errBody, _ := response["error"].(map[string]any)
	code, _ := errBody["code"].(string)
	return code
}

func dataMap(response map[string]any) map[string]any {
	data, _ := response["data"].(map[string]any)
	return data
}

func newRequest(t *testing.T, method, path string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set(middleware.ActorHeader, "processor-12")
	return req
}

func serve(f *apiFixture, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}
