package models

import "time"

// History actions
const (
	ActionCreated          = "created"
	ActionStatusChanged    = "status_changed"
	ActionAssigned         = "assigned"
	ActionFieldUpdated     = "field_updated"
	ActionDeleted          = "deleted"
	ActionNoteAdded        = "note_added"
	ActionDocumentUploaded = "document_uploaded"
	ActionDocumentDeleted  = "document_deleted"
)

// OrderHistoryEntry is an append-only audit record; it is never mutated once written
type OrderHistoryEntry struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	OrderID   string    `gorm:"not null;index" json:"order_id"`
	Sequence  int64     `gorm:"not null;index" json:"-"` // preserves append order when timestamps tie
	Action    string    `gorm:"not null" json:"action"`
	Field     string    `json:"field,omitempty"`
	FromValue *string   `json:"from_value"`
	ToValue   *string   `json:"to_value"`
	ChangedBy string    `json:"changed_by,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for the OrderHistoryEntry model
func (OrderHistoryEntry) TableName() string {
	return "order_history"
}
