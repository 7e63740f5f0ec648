package calls

import (
	"encoding/json"
	"errors"
	"time"
)

// Record is one normalized call row, written once per end-of-call report.
//
// Tenancy invariant: UserID (the owning account) is required on every row.
// Optional fields are nil when extraction found nothing; the dashboard renders
// those as "not specified".
type Record struct {
	ID             string `json:"id" db:"id"`
	UserID         string `json:"user_id" db:"user_id"`
	ExternalCallID string `json:"vapi_call_id" db:"vapi_call_id"`
	PhoneNumber    string `json:"phone_number" db:"phone_number"`

	CallerName      *string `json:"caller_name" db:"caller_name"`
	DurationSeconds int     `json:"duration" db:"duration"`
	Status          Status  `json:"status" db:"status"`

	Intent     Intent  `json:"intent" db:"intent"`
	Confidence float64 `json:"confidence" db:"confidence"`
	Outcome    Outcome `json:"outcome" db:"outcome"`

	VehicleMake      *string `json:"vehicle_make" db:"vehicle_make"`
	VehicleModel     *string `json:"vehicle_model" db:"vehicle_model"`
	VehicleYear      *int    `json:"vehicle_year" db:"vehicle_year"`
	ServiceRequested *string `json:"service_requested" db:"service_requested"`
	PreferredDate    *string `json:"preferred_date" db:"preferred_date"`

	Notes        *string         `json:"notes" db:"notes"`
	Summary      *string         `json:"summary" db:"summary"`
	Transcript   json.RawMessage `json:"transcript,omitempty" db:"transcript"`
	RecordingURL *string         `json:"recording_url" db:"recording_url"`

	ContactedCount int       `json:"contacted_count" db:"contacted_count"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// Intent is the coarse likelihood that the caller converts.
// There is no "none" tier; every call gets one.
type Intent string

const (
	IntentHigh   Intent = "high"
	IntentMedium Intent = "medium"
	IntentLow    Intent = "low"
)

func (i Intent) Valid() bool {
	switch i {
	case IntentHigh, IntentMedium, IntentLow:
		return true
	default:
		return false
	}
}

// Outcome is the business disposition of the call.
type Outcome string

const (
	OutcomeBooked  Outcome = "booked"
	OutcomeWaiting Outcome = "waiting"
	OutcomeDropped Outcome = "dropped"
	OutcomeSpam    Outcome = "spam"
)

func (o Outcome) Valid() bool {
	switch o {
	case OutcomeBooked, OutcomeWaiting, OutcomeDropped, OutcomeSpam:
		return true
	default:
		return false
	}
}

// Status is how the call was handled. Rows written from vendor reports are always ai_answered;
// the other values are set by dashboard actions.
type Status string

const (
	StatusAnswered   Status = "answered"
	StatusMissed     Status = "missed"
	StatusAIAnswered Status = "ai_answered"
	StatusSpam       Status = "spam"
)

var ErrInvalidRecord = errors.New("calls: invalid record")

// Validate checks the row invariants before insert.
func (r Record) Validate() error {
	if r.ID == "" || r.UserID == "" || r.PhoneNumber == "" {
		return ErrInvalidRecord
	}
	if !r.Intent.Valid() || !r.Outcome.Valid() {
		return ErrInvalidRecord
	}
	if r.Confidence < 0 || r.Confidence > 1 {
		return ErrInvalidRecord
	}
	if r.DurationSeconds < 0 {
		return ErrInvalidRecord
	}
	return nil
}

// IsHotLead marks high-intent callers that have not booked yet.
func (r Record) IsHotLead() bool {
	return r.Intent == IntentHigh && r.Outcome != OutcomeBooked
}
