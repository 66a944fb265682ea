package model

// NotificationPreferences holds the three independent lead-time switches.
type NotificationPreferences struct {
	NotifySevenDays bool `json:"notify_seven_days"`
	NotifyThreeDays bool `json:"notify_three_days"`
	NotifyOneDay    bool `json:"notify_one_day"`
}

// DefaultNotificationPreferences has every tier enabled.
func DefaultNotificationPreferences() NotificationPreferences {
	return NotificationPreferences{
		NotifySevenDays: true,
		NotifyThreeDays: true,
		NotifyOneDay:    true,
	}
}
