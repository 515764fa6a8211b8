package services

import (
	"context"
	"testing"
	"time"

	"github.com/chapterwise/chapterwise-backend/internal/accountlock"
	"github.com/chapterwise/chapterwise-backend/internal/billing"
	"github.com/chapterwise/chapterwise-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeLookup struct {
	detail      *billing.SubscriptionDetail
	err         error
	cancelCalls []bool
}

func (f *fakeLookup) GetSubscription(_ context.Context, _ string) (*billing.SubscriptionDetail, error) {
	return f.detail, f.err
}

func (f *fakeLookup) CancelAtPeriodEnd(_ context.Context, _ string, cancel bool) error {
	f.cancelCalls = append(f.cancelCalls, cancel)
	return f.err
}

func newSubscriptionService(db *gorm.DB, lookup billing.Lookup, now time.Time) *SubscriptionService {
	svc := NewSubscriptionService(db, accountlock.New(), lookup, time.Second)
	svc.now = fixedClock(now)
	return svc
}

func checkoutEvent(eventID, subject string) *billing.Event {
	return &billing.Event{
		EventID:         eventID,
		Type:            billing.EventCheckoutCompleted,
		Subject:         subject,
		SubscriptionRef: "sub_123",
	}
}

func TestApplyEventCheckoutMonthly(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	lookup := &fakeLookup{detail: &billing.SubscriptionDetail{Interval: "month", PlanName: "Plus", AmountCents: 500}}
	svc := newSubscriptionService(db, lookup, now)

	user := seedUser(t, db, nil)

	require.NoError(t, svc.ApplyEvent(context.Background(), checkoutEvent("evt_1", user.Email)))

	got := reload(t, db, user.ID)
	assert.Equal(t, models.PlanActive, got.Plan)
	require.NotNil(t, got.SubscribedAt)
	require.NotNil(t, got.SubscribedUntil)
	assert.WithinDuration(t, now, *got.SubscribedAt, time.Second)
	assert.WithinDuration(t, now.AddDate(0, 1, 0), *got.SubscribedUntil, time.Second)
	require.NotNil(t, got.SubscriptionRef)
	assert.Equal(t, "sub_123", *got.SubscriptionRef)
	assert.Equal(t, "Plus", got.PlanName)
	assert.Equal(t, "$5 / monthly", got.PlanPrice)
	assert.Equal(t, "monthly", got.BillingInterval)
	assert.Equal(t, "evt_1", got.LastEventID)

	var count int64
	require.NoError(t, db.Model(&models.BillingEvent{}).Where("event_id = ?", "evt_1").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestApplyEventCheckoutYearlyInterval(t *testing.T) {
	// A yearly checkout at 2025-01-01 expires at 2026-01-01.
	db := newTestDB(t)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	svc := newSubscriptionService(db, &fakeLookup{err: billing.ErrLookupFailed}, now)

	user := seedUser(t, db, nil)
	evt := checkoutEvent("evt_1", user.Email)
	evt.IntervalUnit = billing.IntervalYear

	require.NoError(t, svc.ApplyEvent(context.Background(), evt))

	got := reload(t, db, user.ID)
	assert.Equal(t, models.PlanActive, got.Plan)
	assert.WithinDuration(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), *got.SubscribedUntil, time.Second)
	assert.Equal(t, "yearly", got.BillingInterval)
}

func TestApplyEventCheckoutLookupFailureFallsBack(t *testing.T) {
	// A failed detail lookup degrades to a one-month period and the
	// default plan label instead of failing the transition.
	db := newTestDB(t)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	svc := newSubscriptionService(db, &fakeLookup{err: billing.ErrLookupFailed}, now)

	user := seedUser(t, db, nil)

	require.NoError(t, svc.ApplyEvent(context.Background(), checkoutEvent("evt_1", user.Email)))

	got := reload(t, db, user.ID)
	assert.Equal(t, models.PlanActive, got.Plan)
	assert.WithinDuration(t, now.AddDate(0, 1, 0), *got.SubscribedUntil, time.Second)
	assert.Equal(t, "Plus", got.PlanName)
}

func TestApplyEventDuplicateDeliveryIsNoOp(t *testing.T) {
	// Redelivering the same event id must not extend the period, even if
	// it arrives later.
	db := newTestDB(t)
	first := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	lookup := &fakeLookup{detail: &billing.SubscriptionDetail{Interval: "month"}}
	svc := newSubscriptionService(db, lookup, first)

	user := seedUser(t, db, nil)
	evt := checkoutEvent("evt_1", user.Email)

	require.NoError(t, svc.ApplyEvent(context.Background(), evt))
	until := *reload(t, db, user.ID).SubscribedUntil

	svc.now = fixedClock(first.Add(48 * time.Hour))
	require.NoError(t, svc.ApplyEvent(context.Background(), evt))

	got := reload(t, db, user.ID)
	assert.WithinDuration(t, until, *got.SubscribedUntil, time.Second)

	var count int64
	require.NoError(t, db.Model(&models.BillingEvent{}).Where("event_id = ?", "evt_1").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestApplyEventUnknownSubjectAcknowledged(t *testing.T) {
	db := newTestDB(t)
	svc := newSubscriptionService(db, &fakeLookup{}, time.Now())

	err := svc.ApplyEvent(context.Background(), checkoutEvent("evt_1", "nobody@example.com"))

	assert.NoError(t, err)
	var count int64
	require.NoError(t, db.Model(&models.BillingEvent{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestApplyEventUnknownTypeIgnored(t *testing.T) {
	db := newTestDB(t)
	svc := newSubscriptionService(db, &fakeLookup{}, time.Now())

	user := seedUser(t, db, nil)
	evt := &billing.Event{EventID: "evt_1", Type: "subscription.payment_method_updated", Subject: user.Email}

	require.NoError(t, svc.ApplyEvent(context.Background(), evt))

	got := reload(t, db, user.ID)
	assert.Equal(t, models.PlanFree, got.Plan)
	assert.Empty(t, got.LastEventID)
}

func TestApplyEventCancelAndReactivate(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	svc := newSubscriptionService(db, &fakeLookup{}, now)

	until := now.AddDate(0, 1, 0)
	user := seedUser(t, db, func(u *models.User) {
		u.Plan = models.PlanActive
		u.SubscribedUntil = &until
	})

	cancelEvt := &billing.Event{EventID: "evt_c", Type: billing.EventCancelRequested, Subject: user.Email}
	require.NoError(t, svc.ApplyEvent(context.Background(), cancelEvt))

	got := reload(t, db, user.ID)
	assert.Equal(t, models.PlanPendingCancellation, got.Plan)
	assert.WithinDuration(t, until, *got.SubscribedUntil, time.Second)

	reactivateEvt := &billing.Event{EventID: "evt_r", Type: billing.EventReactivated, Subject: user.Email}
	require.NoError(t, svc.ApplyEvent(context.Background(), reactivateEvt))

	got = reload(t, db, user.ID)
	assert.Equal(t, models.PlanActive, got.Plan)
	assert.WithinDuration(t, until, *got.SubscribedUntil, time.Second)
	assert.Equal(t, "evt_r", got.LastEventID)
}

func TestApplyEventCancelIgnoredForFreePlan(t *testing.T) {
	db := newTestDB(t)
	svc := newSubscriptionService(db, &fakeLookup{}, time.Now())

	user := seedUser(t, db, nil)
	evt := &billing.Event{EventID: "evt_c", Type: billing.EventCancelRequested, Subject: user.Email}

	require.NoError(t, svc.ApplyEvent(context.Background(), evt))
	assert.Equal(t, models.PlanFree, reload(t, db, user.ID).Plan)
}

func TestStatusAppliesLazyExpiry(t *testing.T) {
	// Pending cancellation with expiry 2025-01-01, queried at 2025-02-01:
	// the reported plan is expired and the expiry timestamp is retained.
	db := newTestDB(t)
	now := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	svc := newSubscriptionService(db, &fakeLookup{}, now)

	until := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	user := seedUser(t, db, func(u *models.User) {
		u.Plan = models.PlanPendingCancellation
		u.SubscribedUntil = &until
	})

	got, err := svc.Status(user.ID)
	require.NoError(t, err)

	assert.Equal(t, models.PlanExpired, got.Plan)
	require.NotNil(t, got.SubscribedUntil)
	assert.WithinDuration(t, until, *got.SubscribedUntil, time.Second)
	assert.Equal(t, models.PlanExpired, reload(t, db, user.ID).Plan)
}

func TestCancelCallsProcessorThenTransitions(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	lookup := &fakeLookup{}
	svc := newSubscriptionService(db, lookup, now)

	until := now.AddDate(0, 1, 0)
	ref := "sub_123"
	user := seedUser(t, db, func(u *models.User) {
		u.Plan = models.PlanActive
		u.SubscribedUntil = &until
		u.SubscriptionRef = &ref
	})

	require.NoError(t, svc.Cancel(context.Background(), user.ID))

	assert.Equal(t, []bool{true}, lookup.cancelCalls)
	assert.Equal(t, models.PlanPendingCancellation, reload(t, db, user.ID).Plan)
}

func TestCancelProcessorFailureLeavesState(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	lookup := &fakeLookup{err: billing.ErrLookupFailed}
	svc := newSubscriptionService(db, lookup, now)

	until := now.AddDate(0, 1, 0)
	ref := "sub_123"
	user := seedUser(t, db, func(u *models.User) {
		u.Plan = models.PlanActive
		u.SubscribedUntil = &until
		u.SubscriptionRef = &ref
	})

	err := svc.Cancel(context.Background(), user.ID)

	assert.ErrorIs(t, err, ErrBillingActionFailed)
	assert.Equal(t, models.PlanActive, reload(t, db, user.ID).Plan)
}

func TestCancelWithoutSubscription(t *testing.T) {
	db := newTestDB(t)
	svc := newSubscriptionService(db, &fakeLookup{}, time.Now())

	user := seedUser(t, db, nil)

	assert.ErrorIs(t, svc.Cancel(context.Background(), user.ID), ErrNoSubscription)
}

func TestReactivateRequiresPendingCancellation(t *testing.T) {
	db := newTestDB(t)
	svc := newSubscriptionService(db, &fakeLookup{}, time.Now())

	user := seedUser(t, db, nil)

	assert.ErrorIs(t, svc.Reactivate(context.Background(), user.ID), ErrNothingToReactivate)
}

func TestGrantActivatesForGivenDays(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	svc := newSubscriptionService(db, &fakeLookup{}, now)

	user := seedUser(t, db, nil)

	require.NoError(t, svc.Grant(user.ID, 30, ""))

	got := reload(t, db, user.ID)
	assert.Equal(t, models.PlanActive, got.Plan)
	assert.WithinDuration(t, now.AddDate(0, 0, 30), *got.SubscribedUntil, time.Second)
	assert.Equal(t, "Plus", got.PlanName)
}
