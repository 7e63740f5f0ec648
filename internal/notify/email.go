package notify

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"strings"

	"callrecovery/internal/accounts"
	"callrecovery/internal/calls"
)

const (
	DefaultFrom         = "DetailPilot AI <noreply@detailpilot.ai>"
	DefaultDashboardURL = "https://app.detailpilot.ai/dashboard"
)

var ErrNoRecipient = errors.New("notify: account has no email")

// Email is a rendered owner notification.
type Email struct {
	From    string
	To      string
	Subject string
	HTML    string
}

// ShouldNotify applies the account's saved preferences. Accounts that never
// saved preferences get every call.
func ShouldNotify(prefs *accounts.NotificationPreferences, r calls.Record) bool {
	if prefs == nil {
		return true
	}
	switch {
	case prefs.EmailAllCalls:
		return true
	case prefs.EmailHotLeads && r.Intent == calls.IntentHigh:
		return true
	case prefs.EmailMissedCalls && r.Outcome == calls.OutcomeDropped:
		return true
	default:
		return false
	}
}

// Subject is "New Call: <caller> - <service>".
func Subject(r calls.Record) string {
	return fmt.Sprintf("New Call: %s - %s", orDefault(r.CallerName, "Unknown"), orDefault(r.ServiceRequested, "No service specified"))
}

var emailTemplate = template.Must(template.New("call").Parse(`<h2>New Call Received</h2>
<p>Hi {{.BusinessName}},</p>
<p>You just received a new call from your AI receptionist!</p>
<h3>Call Details:</h3>
<ul>
  <li><strong>Caller:</strong> {{.Caller}}</li>
  <li><strong>Phone:</strong> {{.Phone}}</li>
  <li><strong>Service:</strong> {{.Service}}</li>
  <li><strong>Vehicle:</strong> {{.Vehicle}}</li>
  <li><strong>Preferred Date:</strong> {{.PreferredDate}}</li>
  <li><strong>Duration:</strong> {{.Duration}} seconds</li>
  <li><strong>Intent:</strong> {{.Intent}}</li>
  <li><strong>Outcome:</strong> {{.Outcome}}</li>
</ul>
{{if .Notes}}<p><strong>Notes:</strong> {{.Notes}}</p>
{{end}}<p><a href="{{.DashboardURL}}">View in Dashboard</a></p>
<p>Best regards,<br>DetailPilot AI</p>
`))

type emailView struct {
	BusinessName  string
	Caller        string
	Phone         string
	Service       string
	Vehicle       string
	PreferredDate string
	Duration      int
	Intent        calls.Intent
	Outcome       calls.Outcome
	Notes         string
	DashboardURL  string
}

// Compose renders the notification for a stored call. Caller-supplied text is HTML-escaped.
func Compose(a accounts.Account, r calls.Record, from, dashboardURL string) (Email, error) {
	to := strings.TrimSpace(a.Email)
	if to == "" {
		return Email{}, ErrNoRecipient
	}
	if from == "" {
		from = DefaultFrom
	}
	if dashboardURL == "" {
		dashboardURL = DefaultDashboardURL
	}
	v := emailView{
		BusinessName:  a.BusinessName,
		Caller:        orDefault(r.CallerName, "Unknown"),
		Phone:         r.PhoneNumber,
		Service:       orDefault(r.ServiceRequested, "Not specified"),
		Vehicle:       vehicleLine(r),
		PreferredDate: orDefault(r.PreferredDate, "Not specified"),
		Duration:      r.DurationSeconds,
		Intent:        r.Intent,
		Outcome:       r.Outcome,
		Notes:         orDefault(r.Notes, ""),
		DashboardURL:  dashboardURL,
	}
	var buf bytes.Buffer
	if err := emailTemplate.Execute(&buf, v); err != nil {
		return Email{}, fmt.Errorf("notify: render: %w", err)
	}
	return Email{From: from, To: to, Subject: Subject(r), HTML: buf.String()}, nil
}

func vehicleLine(r calls.Record) string {
	parts := make([]string, 0, 3)
	if r.VehicleYear != nil {
		parts = append(parts, fmt.Sprint(*r.VehicleYear))
	}
	for _, p := range []*string{r.VehicleMake, r.VehicleModel} {
		if s := orDefault(p, ""); s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return "Not specified"
	}
	return strings.Join(parts, " ")
}

func orDefault(p *string, def string) string {
	if p == nil || strings.TrimSpace(*p) == "" {
		return def
	}
	return strings.TrimSpace(*p)
}
