package vapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// EventEndOfCallReport is the terminal event Vapi sends once a call is over.
const EventEndOfCallReport = "end-of-call-report"

var (
	ErrMissingCall   = errors.New("no call data in webhook payload")
	ErrMalformedCall = errors.New("malformed call data in webhook payload")
)

// Webhook is the envelope posted to the assistant's server URL.
type Webhook struct {
	Message Message `json:"message"`
}

// Message carries the event type and, for call events, the call object.
// Call is kept raw so that unrelated event types never fail decoding.
type Message struct {
	Type Text            `json:"type"`
	Call json.RawMessage `json:"call"`
}

// UnmarshalJSON treats a message that is not an object as an untyped event.
func (m *Message) UnmarshalJSON(b []byte) error {
	type plain Message
	var v plain
	if isObject(b) {
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
	}
	*m = Message(v)
	return nil
}

// IsEndOfCallReport reports whether the message should produce a call record.
func (m Message) IsEndOfCallReport() bool {
	return m.Type.String() == EventEndOfCallReport
}

// DecodeCall decodes the call object.
// A missing or null call is ErrMissingCall; a call that is not an object is ErrMalformedCall.
func (m Message) DecodeCall() (*Call, error) {
	raw := strings.TrimSpace(string(m.Call))
	if raw == "" || raw == "null" {
		return nil, ErrMissingCall
	}
	if !isObject(m.Call) {
		return nil, ErrMalformedCall
	}
	var c Call
	if err := json.Unmarshal(m.Call, &c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCall, err)
	}
	return &c, nil
}

// Call is the subset of the Vapi call object this service reads.
//
// Vendor output is of unknown shape, so every field decodes leniently:
// scalars of the wrong type become text, objects of the wrong type become empty.
type Call struct {
	ID            Text        `json:"id"`
	PhoneNumberID Text        `json:"phoneNumberId"`
	Customer      Party       `json:"customer"`
	PhoneNumber   PhoneNumber `json:"phoneNumber"`
	StartedAt     Text        `json:"startedAt"`
	EndedAt       Text        `json:"endedAt"`
	Messages      Transcript  `json:"messages"`
	Transcript    Transcript  `json:"transcript"`
	Analysis      Analysis    `json:"analysis"`
	Summary       Text        `json:"summary"`
	RecordingURL  Text        `json:"recordingUrl"`
}

// Party is the remote caller.
type Party struct {
	Number Text `json:"number"`
}

func (p *Party) UnmarshalJSON(b []byte) error {
	type plain Party
	var v plain
	if isObject(b) {
		_ = json.Unmarshal(b, &v)
	}
	*p = Party(v)
	return nil
}

// PhoneNumber is the vendor-provisioned number that received the call.
type PhoneNumber struct {
	ID     Text `json:"id"`
	Number Text `json:"number"`
}

func (p *PhoneNumber) UnmarshalJSON(b []byte) error {
	type plain PhoneNumber
	var v plain
	if isObject(b) {
		_ = json.Unmarshal(b, &v)
	}
	*p = PhoneNumber(v)
	return nil
}

// Analysis is the vendor's post-call analysis block.
type Analysis struct {
	Summary        Text `json:"summary"`
	StructuredData Args `json:"structuredData"`
}

func (a *Analysis) UnmarshalJSON(b []byte) error {
	type plain Analysis
	var v plain
	if isObject(b) {
		_ = json.Unmarshal(b, &v)
	}
	*a = Analysis(v)
	return nil
}

// CustomerNumber returns the caller's number, falling back to the vendor number, then "unknown".
func (c *Call) CustomerNumber() string {
	if n := c.Customer.Number.String(); n != "" {
		return n
	}
	if n := c.PhoneNumber.Number.String(); n != "" {
		return n
	}
	return "unknown"
}

// VendorPhoneNumberID identifies the provisioned number, which is how the owning account is found.
func (c *Call) VendorPhoneNumberID() string {
	if id := c.PhoneNumberID.String(); id != "" {
		return id
	}
	return c.PhoneNumber.ID.String()
}

// SummaryText prefers the analysis summary over the top-level one.
func (c *Call) SummaryText() string {
	if s := c.Analysis.Summary.String(); s != "" {
		return s
	}
	return c.Summary.String()
}

// Conversation returns the utterances used for text heuristics:
// messages when present, otherwise the transcript.
func (c *Call) Conversation() []Utterance {
	if len(c.Messages.Utterances) > 0 {
		return c.Messages.Utterances
	}
	return c.Transcript.Utterances
}

// RawTranscript returns the JSON persisted alongside the record, or nil.
func (c *Call) RawTranscript() json.RawMessage {
	if c.Messages.Present() {
		return c.Messages.Raw
	}
	if c.Transcript.Present() {
		return c.Transcript.Raw
	}
	return nil
}
