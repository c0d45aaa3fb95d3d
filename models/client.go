package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Client is a company-level record referenced by orders, never embedded in them
type Client struct {
	ID                  string                     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	CompanyName         string                     `gorm:"not null" json:"company_name"`
	PrimaryContact      string                     `json:"primary_contact"`
	Email               string                     `json:"email"`
	Phone               string                     `json:"phone,omitempty"`
	Address             string                     `json:"address,omitempty"`
	BillingAddress      string                     `json:"billing_address,omitempty"`
	PaymentTerms        int                        `json:"payment_terms,omitempty"`                       // days
	FeeSchedule         map[string]decimal.Decimal `gorm:"serializer:json" json:"fee_schedule,omitempty"` // property type -> default fee
	PreferredTurnaround int                        `json:"preferred_turnaround,omitempty"`                // days
	SpecialRequirements string                     `json:"special_requirements,omitempty"`
	IsActive            bool                       `gorm:"not null;default:true" json:"is_active"`
	CreatedAt           time.Time                  `json:"created_at"`
	UpdatedAt           time.Time                  `json:"updated_at"`
}

// TableName specifies the table name for the Client model
func (Client) TableName() string {
	return "clients"
}

// DefaultFee returns the scheduled fee for a property type, if the client has one
func (c *Client) DefaultFee(propertyType PropertyType) (decimal.Decimal, bool) {
	fee, ok := c.FeeSchedule[string(propertyType)]
	return fee, ok
}
