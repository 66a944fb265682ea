package expiry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dukerupert/larder/internal/model"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestDaysUntil(t *testing.T) {
	now := time.Date(2024, 3, 10, 14, 30, 0, 0, time.UTC)

	tests := []struct {
		name   string
		expiry time.Time
		want   int
	}{
		{"same day", date(2024, 3, 10), 0},
		{"tomorrow", date(2024, 3, 11), 1},
		{"yesterday", date(2024, 3, 9), -1},
		{"a week out", date(2024, 3, 17), 7},
		{"month boundary", date(2024, 4, 1), 22},
		{"leap day", date(2024, 2, 29), -10},
		{"long past", date(2023, 3, 10), -366},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DaysUntil(tt.expiry, now))
		})
	}
}

func TestDaysUntil_TimeOfDayIgnored(t *testing.T) {
	expiry := date(2024, 3, 12)
	for _, hour := range []int{0, 1, 12, 23} {
		now := time.Date(2024, 3, 10, hour, 59, 59, 0, time.UTC)
		assert.Equal(t, 2, DaysUntil(expiry, now), "hour %d", hour)
	}

	lateExpiry := time.Date(2024, 3, 12, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, 2, DaysUntil(lateExpiry, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)))
}

func TestDaysUntil_DST(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	// 2024-03-10 is 23 hours long in New York.
	now := time.Date(2024, 3, 9, 22, 0, 0, 0, loc)
	assert.Equal(t, 1, DaysUntil(date(2024, 3, 10), now))
	assert.Equal(t, 2, DaysUntil(date(2024, 3, 11), now))

	// 2024-11-03 is 25 hours long.
	now = time.Date(2024, 11, 3, 0, 30, 0, 0, loc)
	assert.Equal(t, 1, DaysUntil(date(2024, 11, 4), now))
}

func TestDaysUntil_LocalEvening(t *testing.T) {
	loc := time.FixedZone("UTC-8", -8*60*60)
	// 21:00 local on the 10th is already the 11th in UTC.
	now := time.Date(2024, 3, 10, 21, 0, 0, 0, loc)
	assert.Equal(t, 0, DaysUntil(date(2024, 3, 10), now))
}

func TestPredicates(t *testing.T) {
	for d := -3; d <= 10; d++ {
		assert.Equal(t, d < 0, IsExpired(d), "expired %d", d)
		assert.Equal(t, d >= 0 && d <= 7, IsExpiringSoon(d), "soon %d", d)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		days int
		want model.Status
	}{
		{-5, model.StatusExpired},
		{-1, model.StatusExpired},
		{0, model.StatusWarning},
		{3, model.StatusWarning},
		{4, model.StatusGood},
		{30, model.StatusGood},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusFor(tt.days), "days %d", tt.days)
	}
}

func TestEvaluate(t *testing.T) {
	now := time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)

	r := Evaluate(date(2024, 3, 9), now)
	assert.Equal(t, Result{Days: -1, Expired: true, ExpiringSoon: false, Status: model.StatusExpired}, r)

	r = Evaluate(date(2024, 3, 12), now)
	assert.Equal(t, Result{Days: 2, Expired: false, ExpiringSoon: true, Status: model.StatusWarning}, r)
}

func TestToday(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*60*60)
	now := time.Date(2024, 3, 10, 2, 0, 0, 0, loc)
	assert.Equal(t, date(2024, 3, 10), Today(now))
}
