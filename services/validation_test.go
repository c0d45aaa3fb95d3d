package services

import (
	"testing"
	"time"

	"github.com/kendall-kelly/appraisal-orders-api/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func fullOrder() models.Order {
	return models.Order{
		PropertyAddress: "12 Oak Ave",
		PropertyCity:    "Austin",
		PropertyState:   "TX",
		PropertyZip:     "78701",
		PropertyType:    models.PropertySingleFamily,
		BorrowerName:    "Jane Doe",
		ClientID:        "client-1",
		Status:          models.StatusNew,
		Priority:        models.PriorityNormal,
		OrderType:       models.OrderTypePurchase,
		FeeAmount:       decimal.NewFromInt(450),
	}
}

func fieldsOf(errs ValidationErrors) []string {
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Field)
	}
	return out
}

func TestValidateOrder(t *testing.T) {
	v := NewValidator("")
	created := time.Date(2024, time.June, 3, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		mutate     func(o *models.Order)
		createdAt  time.Time
		wantFields []string
	}{
		{name: "valid order", mutate: func(o *models.Order) {}},
		{
			name:       "state must be two letters",
			mutate:     func(o *models.Order) { o.PropertyState = "Texas" },
			wantFields: []string{"property_state"},
		},
		{
			name: "unknown enums",
			mutate: func(o *models.Order) {
				o.Status = "archived"
				o.Priority = "someday"
			},
			wantFields: []string{"status", "priority"},
		},
		{
			name:       "malformed email",
			mutate:     func(o *models.Order) { o.BorrowerEmail = "jane-at-example" },
			wantFields: []string{"borrower_email"},
		},
		{
			name:       "negative tech fee",
			mutate:     func(o *models.Order) { o.TechFee = decimal.NewFromInt(-5) },
			wantFields: []string{"tech_fee"},
		},
		{
			name: "due date not after creation",
			mutate: func(o *models.Order) {
				due := created.Add(-time.Hour)
				o.DueDate = &due
			},
			createdAt:  created,
			wantFields: []string{"due_date"},
		},
		{
			name: "due date ignored on patch",
			mutate: func(o *models.Order) {
				due := created.Add(-time.Hour)
				o.DueDate = &due
			},
		},
		{
			name: "quick entry skips property details",
			mutate: func(o *models.Order) {
				o.Source = models.SourceQuickEntry
				o.PropertyCity = ""
				o.PropertyState = ""
				o.PropertyZip = ""
				o.PropertyType = ""
				o.OrderType = ""
			},
		},
		{
			name: "quick entry still needs a borrower",
			mutate: func(o *models.Order) {
				o.Source = models.SourceQuickEntry
				o.BorrowerName = ""
			},
			wantFields: []string{"borrower_name"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := fullOrder()
			tt.mutate(&o)
			errs := validateOrder(v, &o, tt.createdAt)
			if len(tt.wantFields) == 0 {
				assert.Empty(t, errs)
				return
			}
			assert.ElementsMatch(t, tt.wantFields, fieldsOf(errs))
		})
	}
}

func TestTranslateValidation_UsesJSONNames(t *testing.T) {
	type form struct {
		ZipCode string `json:"zip_code" validate:"required"`
	}
	errs := TranslateValidation(NewValidator("").Struct(form{}))
	assert.Equal(t, ValidationErrors{{Field: "zip_code", Message: "is required"}}, errs)
}
