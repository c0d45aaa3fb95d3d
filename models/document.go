package models

import "time"

// OrderDocument holds metadata for a file uploaded against an order
type OrderDocument struct {
	ID           string       `gorm:"primaryKey;type:varchar(36)" json:"id"`
	OrderID      string       `gorm:"not null;index" json:"order_id"`
	DocumentType DocumentType `gorm:"not null" json:"document_type"`
	FileName     string       `gorm:"not null" json:"file_name"`
	StorageKey   string       `gorm:"not null" json:"-"`
	FileURL      string       `gorm:"-" json:"file_url,omitempty"` // computed on read
	FileSize     int64        `json:"file_size"`
	ContentType  string       `json:"content_type,omitempty"`
	UploadedBy   string       `json:"uploaded_by"`
	UploadedAt   time.Time    `json:"uploaded_at"`
}

// TableName specifies the table name for the OrderDocument model
func (OrderDocument) TableName() string {
	return "order_documents"
}
