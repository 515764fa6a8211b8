package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/chapterwise/chapterwise-backend/internal/accountlock"
	"github.com/chapterwise/chapterwise-backend/internal/billing"
	"github.com/chapterwise/chapterwise-backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrNoSubscription      = errors.New("no active subscription")
	ErrNothingToReactivate = errors.New("no cancelled subscription to reactivate")
	ErrBillingActionFailed = errors.New("billing processor request failed")
)

const defaultPlanName = "Plus"

// SubscriptionService keeps the locally cached subscription state in sync
// with the billing processor. Webhook events drive the state machine
// free/expired -> active -> pending_cancellation -> active/expired; every
// event id is applied at most once.
type SubscriptionService struct {
	db            *gorm.DB
	locks         *accountlock.Registry
	lookup        billing.Lookup
	lookupTimeout time.Duration
	now           func() time.Time
}

func NewSubscriptionService(db *gorm.DB, locks *accountlock.Registry, lookup billing.Lookup, lookupTimeout time.Duration) *SubscriptionService {
	return &SubscriptionService{
		db:            db,
		locks:         locks,
		lookup:        lookup,
		lookupTimeout: lookupTimeout,
		now:           time.Now,
	}
}

// ApplyEvent applies a verified billing event to the account resolved by
// the event's subject email. Unknown subjects and unknown event types are
// acknowledged and dropped so the processor does not retry them forever.
func (s *SubscriptionService) ApplyEvent(ctx context.Context, evt *billing.Event) error {
	var user models.User
	if err := s.db.First(&user, "email = ?", evt.Subject).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			slog.Info("billing event for unknown subject dropped", "event_id", evt.EventID, "type", evt.Type)
			return nil
		}
		return fmt.Errorf("failed to resolve billing subject: %w", err)
	}

	unlock := s.locks.Lock(user.ID)
	defer unlock()

	return s.db.Transaction(func(tx *gorm.DB) error {
		// Re-read under the lock; the pre-lock read was only for the id.
		if err := tx.First(&user, "id = ?", user.ID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}

		duplicate, err := s.eventAlreadyApplied(tx, evt.EventID, user.LastEventID)
		if err != nil {
			return err
		}
		if duplicate {
			slog.Info("duplicate billing event acknowledged", "event_id", evt.EventID, "user_id", user.ID)
			return nil
		}

		now := s.now()
		switch evt.Type {
		case billing.EventCheckoutCompleted:
			if err := s.applyCheckout(ctx, tx, &user, evt, now); err != nil {
				return err
			}
		case billing.EventCancelRequested:
			if err := applyLazyExpiry(tx, &user, now); err != nil {
				return err
			}
			if user.Plan != models.PlanActive {
				slog.Info("cancel request ignored for non-active plan", "user_id", user.ID, "plan", user.Plan)
				break
			}
			// Access continues until period end; expiry stays as is.
			if err := tx.Model(&user).Update("plan", models.PlanPendingCancellation).Error; err != nil {
				return err
			}
		case billing.EventReactivated:
			if err := applyLazyExpiry(tx, &user, now); err != nil {
				return err
			}
			if user.Plan != models.PlanPendingCancellation {
				slog.Info("reactivation ignored", "user_id", user.ID, "plan", user.Plan)
				break
			}
			if err := tx.Model(&user).Update("plan", models.PlanActive).Error; err != nil {
				return err
			}
		default:
			// Tolerate processor schema growth: parseable but unknown types
			// are a no-op and are not recorded.
			slog.Info("unknown billing event type ignored", "event_id", evt.EventID, "type", evt.Type)
			return nil
		}

		return s.recordEvent(tx, &user, evt)
	})
}

func (s *SubscriptionService) eventAlreadyApplied(tx *gorm.DB, eventID, lastEventID string) (bool, error) {
	if eventID == lastEventID {
		return true, nil
	}
	var count int64
	if err := tx.Model(&models.BillingEvent{}).Where("event_id = ?", eventID).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check event id: %w", err)
	}
	return count > 0, nil
}

func (s *SubscriptionService) recordEvent(tx *gorm.DB, user *models.User, evt *billing.Event) error {
	record := models.BillingEvent{
		ID:      uuid.New(),
		EventID: evt.EventID,
		UserID:  user.ID,
		Type:    evt.Type,
	}
	if err := tx.Create(&record).Error; err != nil {
		return fmt.Errorf("failed to record billing event: %w", err)
	}
	return tx.Model(user).Update("last_event_id", evt.EventID).Error
}

// applyCheckout starts a fresh paid period. The event's interval unit
// decides the period length; the processor lookup enriches plan name and
// amount. A failed or timed-out lookup degrades to defaults instead of
// failing the transition.
func (s *SubscriptionService) applyCheckout(ctx context.Context, tx *gorm.DB, user *models.User, evt *billing.Event, now time.Time) error {
	interval := evt.IntervalUnit
	planName := evt.PlanName
	amountCents := evt.PlanAmountCents

	if evt.SubscriptionRef != "" {
		lookupCtx, cancel := context.WithTimeout(ctx, s.lookupTimeout)
		defer cancel()

		detail, err := s.lookup.GetSubscription(lookupCtx, evt.SubscriptionRef)
		if err != nil {
			slog.Warn("subscription lookup failed, using defaults", "event_id", evt.EventID, "error", err)
		} else {
			if interval == "" {
				interval = detail.Interval
			}
			if detail.PlanName != "" {
				planName = detail.PlanName
			}
			if detail.AmountCents > 0 {
				amountCents = detail.AmountCents
			}
		}
	}

	if planName == "" {
		planName = defaultPlanName
	}

	var until time.Time
	billingInterval := "monthly"
	if interval == billing.IntervalYear {
		until = now.AddDate(1, 0, 0)
		billingInterval = "yearly"
	} else {
		until = now.AddDate(0, 1, 0)
	}

	updates := map[string]interface{}{
		"plan":             models.PlanActive,
		"subscribed_at":    now,
		"subscribed_until": until,
		"plan_name":        planName,
		"plan_price":       formatPlanPrice(amountCents, billingInterval),
		"billing_interval": billingInterval,
	}
	if evt.SubscriptionRef != "" {
		updates["subscription_ref"] = evt.SubscriptionRef
	}
	return tx.Model(user).Updates(updates).Error
}

func formatPlanPrice(amountCents int64, billingInterval string) string {
	if amountCents <= 0 {
		amountCents = 500
	}
	if amountCents%100 == 0 {
		return fmt.Sprintf("$%d / %s", amountCents/100, billingInterval)
	}
	return fmt.Sprintf("$%d.%02d / %s", amountCents/100, amountCents%100, billingInterval)
}

// Cancel asks the processor to stop renewal at period end, then moves the
// local plan to pending cancellation. Access continues until expiry.
func (s *SubscriptionService) Cancel(ctx context.Context, userID uuid.UUID) error {
	unlock := s.locks.Lock(userID)
	defer unlock()

	return s.db.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, "id = ?", userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		now := s.now()
		if err := applyLazyExpiry(tx, &user, now); err != nil {
			return err
		}
		if user.Plan != models.PlanActive || user.SubscriptionRef == nil {
			return ErrNoSubscription
		}

		actionCtx, cancel := context.WithTimeout(ctx, s.lookupTimeout)
		defer cancel()
		if err := s.lookup.CancelAtPeriodEnd(actionCtx, *user.SubscriptionRef, true); err != nil {
			return fmt.Errorf("%w: %v", ErrBillingActionFailed, err)
		}

		return tx.Model(&user).Update("plan", models.PlanPendingCancellation).Error
	})
}

// Reactivate undoes a pending cancellation before the period lapses.
func (s *SubscriptionService) Reactivate(ctx context.Context, userID uuid.UUID) error {
	unlock := s.locks.Lock(userID)
	defer unlock()

	return s.db.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, "id = ?", userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		now := s.now()
		if err := applyLazyExpiry(tx, &user, now); err != nil {
			return err
		}
		if user.Plan != models.PlanPendingCancellation || user.SubscriptionRef == nil {
			return ErrNothingToReactivate
		}

		actionCtx, cancel := context.WithTimeout(ctx, s.lookupTimeout)
		defer cancel()
		if err := s.lookup.CancelAtPeriodEnd(actionCtx, *user.SubscriptionRef, false); err != nil {
			return fmt.Errorf("%w: %v", ErrBillingActionFailed, err)
		}

		return tx.Model(&user).Update("plan", models.PlanActive).Error
	})
}

// Grant applies a direct subscription for the given number of days without
// involving the processor. Admin only.
func (s *SubscriptionService) Grant(userID uuid.UUID, days int, planName string) error {
	unlock := s.locks.Lock(userID)
	defer unlock()

	return s.db.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, "id = ?", userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		if planName == "" {
			planName = defaultPlanName
		}
		now := s.now()
		until := now.AddDate(0, 0, days)
		return tx.Model(&user).Updates(map[string]interface{}{
			"plan":             models.PlanActive,
			"subscribed_at":    now,
			"subscribed_until": until,
			"plan_name":        planName,
			"plan_price":       formatPlanPrice(0, "monthly"),
			"billing_interval": "monthly",
		}).Error
	})
}

// Status returns the account with lazy expiry applied, for the sanitized
// account-status response.
func (s *SubscriptionService) Status(userID uuid.UUID) (*models.User, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	var user models.User
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&user, "id = ?", userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		return applyLazyExpiry(tx, &user, s.now())
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}
