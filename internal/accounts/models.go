package accounts

import (
	"encoding/json"
	"errors"
)

var ErrNotFound = errors.New("accounts: not found")

// Account is the business that owns a provisioned phone number.
// Every call row is written under exactly one account.
type Account struct {
	ID              string `json:"id" db:"id"`
	Email           string `json:"email" db:"email"`
	BusinessName    string `json:"business_name" db:"business_name"`
	BookingLink     string `json:"booking_link,omitempty" db:"booking_link"`
	AutoSMSEnabled  bool   `json:"auto_sms_enabled" db:"auto_sms_enabled"`
	VapiPhoneNumber string `json:"vapi_phone_number,omitempty" db:"vapi_phone_number"`

	// Preferences is nil when the account never saved any.
	Preferences *NotificationPreferences `json:"notification_preferences,omitempty" db:"notification_preferences"`
}

// NotificationPreferences mirrors the jsonb column edited from the dashboard.
type NotificationPreferences struct {
	EmailAllCalls     bool `json:"email_all_calls"`
	EmailHotLeads     bool `json:"email_hot_leads"`
	EmailMissedCalls  bool `json:"email_missed_calls"`
	EmailDailySummary bool `json:"email_daily_summary"`
}

func parsePreferences(raw []byte) *NotificationPreferences {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var p NotificationPreferences
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil
	}
	return &p
}
