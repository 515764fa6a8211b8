// Package quota holds the pure usage-metering policy: calendar-window
// normalization, the tiered limit table and the allow/deny decision. It has
// no I/O; services.UsageService applies it inside a per-account transaction.
package quota

import "time"

// Scope names the limit a denied request exceeded.
type Scope string

const (
	ScopeDaily   Scope = "daily"
	ScopeMonthly Scope = "monthly"
)

// Limits is the policy table. Subscribed accounts have no daily limit.
type Limits struct {
	FreeDaily         int64
	FreeMonthly       int64
	SubscribedMonthly int64
}

// Usage is the windowed counter snapshot taken from an account record.
type Usage struct {
	DailyCount    int64
	DailyWindow   string
	MonthlyCount  int64
	MonthlyWindow string
}

// DayWindow formats t's calendar date as YYYY-MM-DD in UTC.
func DayWindow(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// MonthWindow formats t's calendar month as YYYY-MM in UTC.
func MonthWindow(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// Normalize zeroes counters whose window is not the current one. It is
// idempotent: a counter already in the current window is left untouched, so
// windows only ever move forward.
func Normalize(u Usage, now time.Time) Usage {
	if day := DayWindow(now); u.DailyWindow != day {
		u.DailyCount = 0
		u.DailyWindow = day
	}
	if month := MonthWindow(now); u.MonthlyWindow != month {
		u.MonthlyCount = 0
		u.MonthlyWindow = month
	}
	return u
}

// Decide returns whether a request of the given cost fits within the limits
// for a normalized usage snapshot. For free accounts the daily limit is
// checked before the monthly one, so when both would be exceeded the daily
// scope is reported. Decide never mutates its input.
func Decide(u Usage, subscribed bool, cost int64, l Limits) (Scope, bool) {
	if subscribed {
		if u.MonthlyCount+cost > l.SubscribedMonthly {
			return ScopeMonthly, false
		}
		return "", true
	}
	if u.DailyCount+cost > l.FreeDaily {
		return ScopeDaily, false
	}
	if u.MonthlyCount+cost > l.FreeMonthly {
		return ScopeMonthly, false
	}
	return "", true
}

// Charge adds cost to both counters of an allowed request.
func Charge(u Usage, cost int64) Usage {
	u.DailyCount += cost
	u.MonthlyCount += cost
	return u
}
