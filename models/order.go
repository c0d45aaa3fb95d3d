package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Order sources
const (
	SourceIntake     = "intake"
	SourceQuickEntry = "quick-entry"
	SourceImport     = "import"
	SourceEmail      = "email"
)

// Order represents a single appraisal engagement tracked end-to-end
type Order struct {
	ID          string        `gorm:"primaryKey;type:varchar(36)" json:"id"`
	OrderNumber string        `gorm:"uniqueIndex;not null" json:"order_number"`
	Position    int64         `gorm:"uniqueIndex;not null" json:"-"` // insertion order, drives list ordering and cursors
	Status      OrderStatus   `gorm:"not null;default:'new';index" json:"status"`
	Priority    OrderPriority `gorm:"not null;default:'normal';index" json:"priority"`
	OrderType   OrderType     `gorm:"not null" json:"order_type"`
	Source      string        `json:"source,omitempty"`

	PropertyAddress string       `gorm:"not null;index" json:"property_address"`
	PropertyCity    string       `json:"property_city"`
	PropertyState   string       `gorm:"size:2" json:"property_state"`
	PropertyZip     string       `json:"property_zip"`
	PropertyType    PropertyType `json:"property_type"`

	LoanNumber string          `json:"loan_number,omitempty"`
	LoanType   string          `json:"loan_type,omitempty"`
	LoanAmount decimal.Decimal `gorm:"type:numeric(14,2)" json:"loan_amount"`

	ClientID   string `gorm:"not null;index" json:"client_id"`
	ClientName string `json:"client_name"` // denormalized from the client registry for search

	LenderName           string `json:"lender_name,omitempty"`
	LoanOfficer          string `json:"loan_officer,omitempty"`
	LoanOfficerEmail     string `json:"loan_officer_email,omitempty"`
	LoanOfficerPhone     string `json:"loan_officer_phone,omitempty"`
	ProcessorName        string `json:"processor_name,omitempty"`
	ProcessorEmail       string `json:"processor_email,omitempty"`
	ProcessorPhone       string `json:"processor_phone,omitempty"`
	BorrowerName         string `gorm:"index" json:"borrower_name"`
	BorrowerEmail        string `json:"borrower_email,omitempty"`
	BorrowerPhone        string `json:"borrower_phone,omitempty"`
	PropertyContactName  string `json:"property_contact_name,omitempty"`
	PropertyContactPhone string `json:"property_contact_phone,omitempty"`
	PropertyContactEmail string `json:"property_contact_email,omitempty"`
	AccessInstructions   string `json:"access_instructions,omitempty"`
	SpecialInstructions  string `json:"special_instructions,omitempty"`

	DueDate       *time.Time `json:"due_date"`
	OrderedDate   *time.Time `json:"ordered_date"`
	CompletedDate *time.Time `json:"completed_date"`
	DeliveredDate *time.Time `json:"delivered_date"`

	FeeAmount   decimal.Decimal `gorm:"type:numeric(12,2)" json:"fee_amount"`
	TechFee     decimal.Decimal `gorm:"type:numeric(12,2)" json:"tech_fee"`
	TotalAmount decimal.Decimal `gorm:"type:numeric(12,2)" json:"total_amount"` // always fee_amount + tech_fee

	AssignedTo   string     `gorm:"index" json:"assigned_to,omitempty"` // appraiser id
	AssignedDate *time.Time `json:"assigned_date"`

	CreatedBy string         `json:"created_by,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Order model
func (Order) TableName() string {
	return "orders"
}

// ComputeTotal derives total_amount from its inputs
func ComputeTotal(feeAmount, techFee decimal.Decimal) decimal.Decimal {
	return feeAmount.Add(techFee)
}

// RecomputeTotal refreshes TotalAmount after fee_amount or tech_fee changed
func (o *Order) RecomputeTotal() {
	o.TotalAmount = ComputeTotal(o.FeeAmount, o.TechFee)
}

// IsDeleted reports whether the order has been soft-deleted
func (o *Order) IsDeleted() bool {
	return o.DeletedAt.Valid
}
