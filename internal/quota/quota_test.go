package quota

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var testLimits = Limits{
	FreeDaily:         1000,
	FreeMonthly:       30000,
	SubscribedMonthly: 50000,
}

func TestNormalizeResetsStaleWindows(t *testing.T) {
	now := time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC)
	u := Usage{DailyCount: 500, DailyWindow: "2025-03-14", MonthlyCount: 9000, MonthlyWindow: "2025-02"}

	got := Normalize(u, now)

	assert.Equal(t, int64(0), got.DailyCount)
	assert.Equal(t, "2025-03-15", got.DailyWindow)
	assert.Equal(t, int64(0), got.MonthlyCount)
	assert.Equal(t, "2025-03", got.MonthlyWindow)
}

func TestNormalizeKeepsCurrentWindows(t *testing.T) {
	now := time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC)
	u := Usage{DailyCount: 500, DailyWindow: "2025-03-15", MonthlyCount: 9000, MonthlyWindow: "2025-03"}

	got := Normalize(u, now)

	assert.Equal(t, u, got)
}

func TestNormalizeIdempotent(t *testing.T) {
	now := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	u := Usage{DailyCount: 123, DailyWindow: "2025-06-30", MonthlyCount: 456, MonthlyWindow: "2025-06"}

	once := Normalize(u, now)
	twice := Normalize(once, now)

	assert.Equal(t, once, twice)
}

func TestDecideFreeDailyDenied(t *testing.T) {
	// Scenario: free account at 950/1000 daily, cost 100.
	u := Usage{DailyCount: 950, MonthlyCount: 950}

	scope, allowed := Decide(u, false, 100, testLimits)

	assert.False(t, allowed)
	assert.Equal(t, ScopeDaily, scope)
}

func TestDecideFreeMonthlyDenied(t *testing.T) {
	u := Usage{DailyCount: 0, MonthlyCount: 29950}

	scope, allowed := Decide(u, false, 100, testLimits)

	assert.False(t, allowed)
	assert.Equal(t, ScopeMonthly, scope)
}

func TestDecideDailyReportedBeforeMonthly(t *testing.T) {
	// Both limits would be exceeded; daily wins the tie-break.
	u := Usage{DailyCount: 1000, MonthlyCount: 30000}

	scope, allowed := Decide(u, false, 1, testLimits)

	assert.False(t, allowed)
	assert.Equal(t, ScopeDaily, scope)
}

func TestDecideSubscribedIgnoresDaily(t *testing.T) {
	u := Usage{DailyCount: 5000, MonthlyCount: 10000}

	_, allowed := Decide(u, true, 1000, testLimits)

	assert.True(t, allowed)
}

func TestDecideSubscribedMonthlyDenied(t *testing.T) {
	u := Usage{MonthlyCount: 49000}

	scope, allowed := Decide(u, true, 1500, testLimits)

	assert.False(t, allowed)
	assert.Equal(t, ScopeMonthly, scope)
}

func TestDecideExactFitAllowed(t *testing.T) {
	u := Usage{DailyCount: 900, MonthlyCount: 900}

	_, allowed := Decide(u, false, 100, testLimits)

	assert.True(t, allowed)
}

func TestChargeIncrementsBothCounters(t *testing.T) {
	u := Usage{DailyCount: 10, MonthlyCount: 20}

	got := Charge(u, 5)

	assert.Equal(t, int64(15), got.DailyCount)
	assert.Equal(t, int64(25), got.MonthlyCount)
}
