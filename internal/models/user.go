package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Plan is the subscription tier governing which quota limits apply.
type Plan string

const (
	PlanFree                Plan = "free"
	PlanActive              Plan = "active"
	PlanPendingCancellation Plan = "pending_cancellation"
	PlanExpired             Plan = "expired"
)

// User is the account record: credentials, subscription state and the
// rolling usage counters charged by every notes request.
type User struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string         `gorm:"size:100" json:"name"`
	Email     string         `gorm:"not null;size:255;uniqueIndex" json:"email"`
	Password  string         `gorm:"not null" json:"-"`
	Role      string         `gorm:"size:20;default:'user'" json:"role"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Subscription state. Transitions are owned by services.SubscriptionService.
	Plan            Plan       `gorm:"size:30;not null;default:'free'" json:"plan"`
	SubscribedAt    *time.Time `json:"subscribed_at"`
	SubscribedUntil *time.Time `json:"subscribed_until"`
	SubscriptionRef *string    `gorm:"size:255;index" json:"-"`
	PlanName        string     `gorm:"size:100" json:"plan_name"`
	PlanPrice       string     `gorm:"size:50" json:"plan_price"`
	BillingInterval string     `gorm:"size:20" json:"billing_interval"`
	LastEventID     string     `gorm:"size:255" json:"-"`

	// Usage counters, windowed by calendar day and calendar month.
	DailyCharacters   int64  `gorm:"not null;default:0" json:"daily_characters"`
	DailyWindow       string `gorm:"size:10" json:"daily_window"`
	MonthlyCharacters int64  `gorm:"not null;default:0" json:"monthly_characters"`
	MonthlyWindow     string `gorm:"size:7" json:"monthly_window"`
}

// SubscriptionActive reports whether the paid period covers now. It is the
// pure predicate behind the lazy-expiry check; it never mutates the record.
func (u *User) SubscriptionActive(now time.Time) bool {
	if u.Plan != PlanActive && u.Plan != PlanPendingCancellation {
		return false
	}
	return u.SubscribedUntil != nil && u.SubscribedUntil.After(now)
}
