// Package expiry turns an expiry date and the current time into a whole-day
// count and a freshness status.
package expiry

import (
	"time"

	"github.com/dukerupert/larder/internal/model"
)

const (
	// SoonThreshold is the largest day count still considered "expiring soon".
	SoonThreshold = 7
	// WarningThreshold is the largest day count that yields StatusWarning.
	WarningThreshold = 3
)

// Result bundles the derived values for one expiry date.
type Result struct {
	Days         int          `json:"days_until_expiry"`
	Expired      bool         `json:"expired"`
	ExpiringSoon bool         `json:"expiring_soon"`
	Status       model.Status `json:"status"`
}

// DaysUntil returns the number of calendar days from now until expiry.
// Time of day is ignored: the expiry date is taken as written in its own
// location and now is read in its location, so a date stored as UTC midnight
// keeps its calendar day for a user in any zone. Counting is done on the
// calendar, so days of 23 or 25 hours still count as one.
func DaysUntil(expiry, now time.Time) int {
	return int(civilDay(expiry).Sub(civilDay(now)).Hours() / 24)
}

func civilDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func IsExpired(days int) bool {
	return days < 0
}

func IsExpiringSoon(days int) bool {
	return days >= 0 && days <= SoonThreshold
}

// StatusFor picks the status tier; expired takes precedence over warning.
func StatusFor(days int) model.Status {
	switch {
	case IsExpired(days):
		return model.StatusExpired
	case days <= WarningThreshold:
		return model.StatusWarning
	default:
		return model.StatusGood
	}
}

// Evaluate computes every derived value for expiry at now.
func Evaluate(expiry, now time.Time) Result {
	days := DaysUntil(expiry, now)
	return Result{
		Days:         days,
		Expired:      IsExpired(days),
		ExpiringSoon: IsExpiringSoon(days),
		Status:       StatusFor(days),
	}
}

// Today returns midnight of now's calendar day as a UTC date, the form in
// which expiry dates are stored.
func Today(now time.Time) time.Time {
	return civilDay(now)
}
