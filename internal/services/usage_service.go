package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/chapterwise/chapterwise-backend/internal/accountlock"
	"github.com/chapterwise/chapterwise-backend/internal/models"
	"github.com/chapterwise/chapterwise-backend/internal/quota"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrUserNotFound = errors.New("user not found")

// QuotaExceededError is returned when a request would push a usage counter
// past its limit. The denied request charges nothing.
type QuotaExceededError struct {
	Scope quota.Scope
}

func (e *QuotaExceededError) Error() string {
	return string(e.Scope) + " limit reached"
}

// UsageService enforces the tiered usage quotas. The whole
// normalize-check-charge sequence runs inside a transaction under the
// account's lock, so two concurrent requests can never both read a count
// below the limit and jointly overshoot it.
type UsageService struct {
	db     *gorm.DB
	locks  *accountlock.Registry
	limits quota.Limits
	now    func() time.Time
}

func NewUsageService(db *gorm.DB, locks *accountlock.Registry, limits quota.Limits) *UsageService {
	return &UsageService{db: db, locks: locks, limits: limits, now: time.Now}
}

// CheckAndConsume decides whether a request of the given cost is allowed
// for the account and, if so, charges it against both windows atomically.
// A denial leaves the stored counters untouched.
func (s *UsageService) CheckAndConsume(userID uuid.UUID, cost int64) error {
	unlock := s.locks.Lock(userID)
	defer unlock()

	var denied *QuotaExceededError
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, "id = ?", userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return fmt.Errorf("failed to load user: %w", err)
		}

		now := s.now()
		if err := applyLazyExpiry(tx, &user, now); err != nil {
			return err
		}

		usage := quota.Normalize(quota.Usage{
			DailyCount:    user.DailyCharacters,
			DailyWindow:   user.DailyWindow,
			MonthlyCount:  user.MonthlyCharacters,
			MonthlyWindow: user.MonthlyWindow,
		}, now)

		scope, allowed := quota.Decide(usage, user.SubscriptionActive(now), cost, s.limits)
		if !allowed {
			// Returning an error here would roll back the expiry write
			// above. Commit, and carry the denial out past the transaction.
			denied = &QuotaExceededError{Scope: scope}
			return nil
		}

		usage = quota.Charge(usage, cost)
		return tx.Model(&user).Updates(map[string]interface{}{
			"daily_characters":   usage.DailyCount,
			"daily_window":       usage.DailyWindow,
			"monthly_characters": usage.MonthlyCount,
			"monthly_window":     usage.MonthlyWindow,
		}).Error
	})
	if err != nil {
		return err
	}
	if denied != nil {
		return denied
	}
	return nil
}

// applyLazyExpiry flips a lapsed paid plan to expired. There is no
// background sweep; every read that feeds a quota decision or a status
// response goes through here. SubscribedUntil is kept for audit.
func applyLazyExpiry(tx *gorm.DB, u *models.User, now time.Time) error {
	if u.Plan != models.PlanActive && u.Plan != models.PlanPendingCancellation {
		return nil
	}
	if u.SubscriptionActive(now) {
		return nil
	}
	if err := tx.Model(u).Update("plan", models.PlanExpired).Error; err != nil {
		return fmt.Errorf("failed to expire subscription: %w", err)
	}
	u.Plan = models.PlanExpired
	return nil
}
