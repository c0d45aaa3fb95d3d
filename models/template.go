package models

import "time"

// OrderTemplate is a named bundle of default field values used to pre-populate intake
type OrderTemplate struct {
	ID        string         `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Name      string         `gorm:"not null" json:"name"`
	ClientID  string         `gorm:"index" json:"client_id"`
	Defaults  map[string]any `gorm:"serializer:json" json:"defaults"` // keyed by order json field names
	CreatedBy string         `json:"created_by"`
	CreatedAt time.Time      `json:"created_at"`
}

// TableName specifies the table name for the OrderTemplate model
func (OrderTemplate) TableName() string {
	return "order_templates"
}
