package models

import (
	"time"

	"github.com/google/uuid"
)

// BillingEvent records a processed webhook event id so that replayed
// deliveries are acknowledged without reapplying their effects. Rows are
// pruned after a retention window; the unique index on EventID is the
// idempotency guarantee.
type BillingEvent struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	EventID   string    `gorm:"uniqueIndex;not null;size:255" json:"event_id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	Type      string    `gorm:"size:50" json:"type"`
	CreatedAt time.Time `json:"created_at"`
}
