package dto

import (
	"time"

	"github.com/google/uuid"
)

// AccountResponse is the sanitized subscription view returned by /api/me,
// built after the lazy-expiry check.
type AccountResponse struct {
	ID                  uuid.UUID  `json:"id"`
	Name                string     `json:"name"`
	Email               string     `json:"email"`
	Plan                string     `json:"plan"`
	SubscribedAt        *time.Time `json:"subscribed_at"`
	SubscribedUntil     *time.Time `json:"subscribed_until"`
	PendingCancellation bool       `json:"pending_cancellation"`
	PlanName            string     `json:"plan_name,omitempty"`
	PlanPrice           string     `json:"plan_price,omitempty"`
	BillingInterval     string     `json:"billing_interval,omitempty"`
	DailyCharacters     int64      `json:"daily_characters"`
	MonthlyCharacters   int64      `json:"monthly_characters"`
}

type GrantSubscriptionRequest struct {
	UserID   uuid.UUID `json:"user_id"`
	Days     int       `json:"days"`
	PlanName string    `json:"plan_name"`
}
