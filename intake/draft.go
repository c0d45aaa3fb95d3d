// Package intake collects a new order across a multi-step form, keeps an unsent draft
// durable between sessions and warns about duplicate addresses while the user types.
package intake

import (
	"reflect"
	"strings"
	"time"

	"github.com/kendall-kelly/appraisal-orders-api/models"
	"github.com/shopspring/decimal"
)

// Draft is the in-progress order. Field names match the order's json keys.
// `shape` tags gate step navigation; `validate` tags gate submit.
type Draft struct {
	PropertyAddress string              `json:"property_address" shape:"omitempty,max=200" validate:"required,min=3"`
	PropertyCity    string              `json:"property_city" shape:"omitempty,max=100" validate:"required,min=2"`
	PropertyState   string              `json:"property_state" shape:"omitempty,len=2,alpha" validate:"required,len=2"`
	PropertyZip     string              `json:"property_zip" shape:"omitempty,min=5,max=10" validate:"required,min=5"`
	PropertyType    models.PropertyType `json:"property_type" shape:"omitempty,property_type" validate:"required,property_type"`

	LoanNumber string          `json:"loan_number"`
	LoanType   string          `json:"loan_type"`
	LoanAmount decimal.Decimal `json:"loan_amount"`
	LenderName string          `json:"lender_name"`
	ClientID   string          `json:"client_id" validate:"required"`

	BorrowerName         string `json:"borrower_name" shape:"omitempty,max=200" validate:"required,min=3"`
	BorrowerEmail        string `json:"borrower_email" shape:"omitempty,email" validate:"omitempty,email"`
	BorrowerPhone        string `json:"borrower_phone"`
	LoanOfficer          string `json:"loan_officer"`
	LoanOfficerEmail     string `json:"loan_officer_email" shape:"omitempty,email" validate:"omitempty,email"`
	LoanOfficerPhone     string `json:"loan_officer_phone"`
	ProcessorName        string `json:"processor_name"`
	ProcessorEmail       string `json:"processor_email" shape:"omitempty,email" validate:"omitempty,email"`
	ProcessorPhone       string `json:"processor_phone"`
	PropertyContactName  string `json:"property_contact_name"`
	PropertyContactPhone string `json:"property_contact_phone"`
	PropertyContactEmail string `json:"property_contact_email" shape:"omitempty,email" validate:"omitempty,email"`

	OrderType           models.OrderType     `json:"order_type" shape:"omitempty,order_type" validate:"required,order_type"`
	Priority            models.OrderPriority `json:"priority" shape:"omitempty,order_priority" validate:"required,order_priority"`
	DueDate             *time.Time           `json:"due_date"`
	FeeAmount           decimal.Decimal      `json:"fee_amount"`
	TechFee             decimal.Decimal      `json:"tech_fee"`
	TotalAmount         decimal.Decimal      `json:"total_amount"`
	AssignedTo          string               `json:"assigned_to"`
	AccessInstructions  string               `json:"access_instructions"`
	SpecialInstructions string               `json:"special_instructions"`
}

// DefaultDraft is the form's starting point
func DefaultDraft(now time.Time) Draft {
	due := now.Add(24 * time.Hour)
	return Draft{
		PropertyType: models.PropertySingleFamily,
		OrderType:    models.OrderTypePurchase,
		Priority:     models.PriorityNormal,
		DueDate:      &due,
	}
}

func (d *Draft) recomputeTotal() {
	d.TotalAmount = models.ComputeTotal(d.FeeAmount, d.TechFee)
}

// ToOrder copies the draft into an order ready for creation
func (d *Draft) ToOrder() models.Order {
	return models.Order{
		Priority:             d.Priority,
		OrderType:            d.OrderType,
		PropertyAddress:      strings.TrimSpace(d.PropertyAddress),
		PropertyCity:         strings.TrimSpace(d.PropertyCity),
		PropertyState:        strings.ToUpper(strings.TrimSpace(d.PropertyState)),
		PropertyZip:          strings.TrimSpace(d.PropertyZip),
		PropertyType:         d.PropertyType,
		LoanNumber:           d.LoanNumber,
		LoanType:             d.LoanType,
		LoanAmount:           d.LoanAmount,
		ClientID:             d.ClientID,
		LenderName:           d.LenderName,
		LoanOfficer:          d.LoanOfficer,
		LoanOfficerEmail:     d.LoanOfficerEmail,
		LoanOfficerPhone:     d.LoanOfficerPhone,
		ProcessorName:        d.ProcessorName,
		ProcessorEmail:       d.ProcessorEmail,
		ProcessorPhone:       d.ProcessorPhone,
		BorrowerName:         strings.TrimSpace(d.BorrowerName),
		BorrowerEmail:        d.BorrowerEmail,
		BorrowerPhone:        d.BorrowerPhone,
		PropertyContactName:  d.PropertyContactName,
		PropertyContactPhone: d.PropertyContactPhone,
		PropertyContactEmail: d.PropertyContactEmail,
		AccessInstructions:   d.AccessInstructions,
		SpecialInstructions:  d.SpecialInstructions,
		DueDate:              d.DueDate,
		FeeAmount:            d.FeeAmount,
		TechFee:              d.TechFee,
		TotalAmount:          models.ComputeTotal(d.FeeAmount, d.TechFee),
		AssignedTo:           d.AssignedTo,
	}
}

// draftFields maps json key to struct field name
var draftFields = func() map[string]string {
	fields := map[string]string{}
	t := reflect.TypeOf(Draft{})
	for i := 0; i < t.NumField(); i++ {
		name := strings.SplitN(t.Field(i).Tag.Get("json"), ",", 2)[0]
		fields[name] = t.Field(i).Name
	}
	return fields
}()
