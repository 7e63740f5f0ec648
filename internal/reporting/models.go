package reporting

import "time"

type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Day returns the calendar day containing t, in t's location.
func Day(t time.Time) TimeRange {
	y, m, d := t.Date()
	from := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	return TimeRange{From: from, To: from.AddDate(0, 0, 1)}
}

// CallsSummaryRequest requests aggregated call metrics.
// Tenant isolation: AccountID is required.
type CallsSummaryRequest struct {
	AccountID string    `json:"account_id"`
	Range     TimeRange `json:"range"`
}

type CallsSummary struct {
	AccountID string    `json:"account_id"`
	Range     TimeRange `json:"range"`

	TotalCalls int `json:"total_calls"`
	HotLeads   int `json:"hot_leads"`

	BookedCalls  int `json:"booked_calls"`
	WaitingCalls int `json:"waiting_calls"`
	DroppedCalls int `json:"dropped_calls"`
	SpamCalls    int `json:"spam_calls"`

	HighIntent   int `json:"high_intent"`
	MediumIntent int `json:"medium_intent"`
	LowIntent    int `json:"low_intent"`

	TotalDurationSeconds   int     `json:"total_duration_seconds"`
	AverageDurationSeconds int     `json:"average_duration_seconds"`
	AverageConfidence      float64 `json:"average_confidence"`

	RecordedCalls int `json:"recorded_calls"`

	// BookingRate is booked over non-spam calls.
	BookingRate float64 `json:"booking_rate"`
}
