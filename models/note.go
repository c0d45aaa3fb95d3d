package models

import "time"

// OrderNote is a free-text note attached to an order; notes cannot be edited
type OrderNote struct {
	ID         string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	OrderID    string    `gorm:"not null;index" json:"order_id"`
	Note       string    `gorm:"type:text;not null" json:"note"`
	IsInternal bool      `gorm:"not null;default:false" json:"is_internal"`
	CreatedBy  string    `json:"created_by"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName specifies the table name for the OrderNote model
func (OrderNote) TableName() string {
	return "order_notes"
}
