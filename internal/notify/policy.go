// Package notify decides which expiry reminder, if any, a product earns and
// shapes the message handed to delivery.
package notify

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dukerupert/larder/internal/expiry"
	"github.com/dukerupert/larder/internal/model"
)

// Tier is a reminder lead time in days.
type Tier int

const (
	TierNone Tier = 0
	Tier1    Tier = 1
	Tier3    Tier = 3
	Tier7    Tier = 7
)

// Tiers lists the reminder tiers from the longest lead time down.
var Tiers = []Tier{Tier7, Tier3, Tier1}

// Channel tags a delivery so each tier can be routed and styled apart.
func (t Tier) Channel() string {
	switch t {
	case Tier7:
		return "expiry_7_days"
	case Tier3:
		return "expiry_3_days"
	case Tier1:
		return "expiry_1_day"
	default:
		return ""
	}
}

func (t Tier) Sound() string {
	switch t {
	case Tier7:
		return "notification_7days"
	case Tier3:
		return "notification_3days"
	case Tier1:
		return "notification_1day"
	default:
		return ""
	}
}

func (t Tier) String() string {
	if t == TierNone {
		return "none"
	}
	return strconv.Itoa(int(t))
}

// band is an inclusive day-count range that qualifies for a tier.
type band struct {
	tier     Tier
	min, max int
	enabled  func(model.NotificationPreferences) bool
}

// Bands are one day wide below the tier so a sweep that runs late still
// catches the product.
var bands = []band{
	{Tier7, 6, 7, func(p model.NotificationPreferences) bool { return p.NotifySevenDays }},
	{Tier3, 2, 3, func(p model.NotificationPreferences) bool { return p.NotifyThreeDays }},
	{Tier1, 0, 1, func(p model.NotificationPreferences) bool { return p.NotifyOneDay }},
}

// ShouldNotify returns the tier p qualifies for at now, if any. At most one
// tier is ever returned.
func ShouldNotify(p model.Product, prefs model.NotificationPreferences, now time.Time) (Tier, bool) {
	return TierFor(expiry.DaysUntil(p.ExpiryDate, now), prefs)
}

// TierFor applies the bands to an already computed day count.
func TierFor(days int, prefs model.NotificationPreferences) (Tier, bool) {
	for _, b := range bands {
		if days >= b.min && days <= b.max && b.enabled(prefs) {
			return b.tier, true
		}
	}
	return TierNone, false
}

// Notification is a delivery request for one product.
type Notification struct {
	ID        int64  `json:"id"`
	ProductID int64  `json:"product_id"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	Tier      Tier   `json:"tier"`
	Days      int    `json:"days"`
	Channel   string `json:"channel"`
	Sound     string `json:"sound"`
	URL       string `json:"url"`
}

const title = "Food is expiring soon"

// Build shapes the reminder for p. The notification is keyed by the product
// ID so a repeat delivery replaces rather than duplicates it on the client.
func Build(p model.Product, tier Tier, days int) Notification {
	return Notification{
		ID:        p.ID,
		ProductID: p.ID,
		Title:     title,
		Body:      fmt.Sprintf("%s - %s", p.Name, daysText(days)),
		Tier:      tier,
		Days:      days,
		Channel:   tier.Channel(),
		Sound:     tier.Sound(),
		URL:       fmt.Sprintf("/products/%d", p.ID),
	}
}

func daysText(days int) string {
	switch {
	case days <= 0:
		return "expires today"
	case days == 1:
		return "1 day left"
	default:
		return fmt.Sprintf("%d days left", days)
	}
}
