package normalize

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"callrecovery/internal/calls"
	"callrecovery/internal/vapi"
)

// Normalizer turns an end-of-call report into a call record.
//
// Every field goes through the same two tiers: structured data emitted by the
// voice model first (analysis structuredData, then lead-capture function calls,
// most recent first), and a transcript heuristic second where one exists.
// All operations are total: a value that cannot be found is reported absent.
type Normalizer struct {
	h             Heuristics
	namePattern   *regexp.Regexp
	stoplist      map[string]struct{}
	customerRoles map[string]struct{}
}

var yearPattern = regexp.MustCompile(`\b(19\d{2}|20\d{2})\b`)

// New returns a normalizer holding a private copy of h.
// An empty NameLeadIns list falls back to the defaults; every other field is
// used as given, so callers loading rules from a file should Validate first.
func New(h Heuristics) *Normalizer {
	h = h.clone()
	if len(h.NameLeadIns) == 0 {
		h.NameLeadIns = DefaultHeuristics().NameLeadIns
	}
	leadIns := make([]string, 0, len(h.NameLeadIns))
	for _, l := range h.NameLeadIns {
		leadIns = append(leadIns, strings.ReplaceAll(regexp.QuoteMeta(l), " ", `\s+`))
	}
	return &Normalizer{
		h:             h,
		namePattern:   regexp.MustCompile(`(?i)\b(?:` + strings.Join(leadIns, "|") + `)\s+([a-z]{2,20})\b`),
		stoplist:      toSet(h.NameStoplist),
		customerRoles: toSet(h.CustomerRoles),
	}
}

// Heuristics returns a copy of the rules in use.
func (n *Normalizer) Heuristics() Heuristics { return n.h.clone() }

// VehicleField selects a vehicle attribute.
type VehicleField string

const (
	VehicleMake  VehicleField = "make"
	VehicleModel VehicleField = "model"
	VehicleYear  VehicleField = "year"
)

// view is the per-call state shared by all extractors.
type view struct {
	call       *vapi.Call
	text       string
	structured []vapi.Args

	duration      int
	durationKnown bool
}

func (n *Normalizer) view(c *vapi.Call) *view {
	if c == nil {
		c = &vapi.Call{}
	}
	v := &view{call: c, text: flatten(c.Conversation())}
	v.structured = n.structuredSources(c)
	v.duration, v.durationKnown = Duration(c)
	return v
}

// Normalize derives every record field. ID, UserID and CreatedAt are left to the caller.
func (n *Normalizer) Normalize(c *vapi.Call) calls.Record {
	v := n.view(c)

	r := calls.Record{
		ExternalCallID:  v.call.ID.String(),
		PhoneNumber:     v.call.CustomerNumber(),
		DurationSeconds: v.duration,
		Status:          calls.StatusAIAnswered,
		Intent:          n.intent(v),
		Confidence:      n.confidence(v),
		Outcome:         n.outcome(v),
		Transcript:      v.call.RawTranscript(),
	}
	r.CallerName = ptr(n.callerName(v))
	r.VehicleMake = ptr(n.vehicle(v, VehicleMake))
	r.VehicleModel = ptr(n.vehicle(v, VehicleModel))
	if y, ok := n.vehicleYear(v); ok {
		r.VehicleYear = &y
	}
	r.ServiceRequested = ptr(n.service(v))
	r.PreferredDate = ptr(n.preferredDate(v))
	if s := v.call.SummaryText(); s != "" {
		r.Notes = &s
		summary := s
		r.Summary = &summary
	}
	if u := v.call.RecordingURL.String(); u != "" {
		r.RecordingURL = &u
	}
	return r
}

// CallerName resolves the caller's first name, capitalized.
func (n *Normalizer) CallerName(c *vapi.Call) (string, bool) { return n.callerName(n.view(c)) }

// Intent classifies how likely the caller is to convert.
func (n *Normalizer) Intent(c *vapi.Call) calls.Intent { return n.intent(n.view(c)) }

// Confidence scores how complete the extracted record is, within [0,1].
func (n *Normalizer) Confidence(c *vapi.Call) float64 { return n.confidence(n.view(c)) }

// Outcome decides the call disposition; the first matching rule wins.
func (n *Normalizer) Outcome(c *vapi.Call) calls.Outcome { return n.outcome(n.view(c)) }

// Vehicle resolves make, model or year as text.
func (n *Normalizer) Vehicle(c *vapi.Call, f VehicleField) (string, bool) {
	v := n.view(c)
	if f == VehicleYear {
		y, ok := n.vehicleYear(v)
		if !ok {
			return "", false
		}
		return strconv.Itoa(y), true
	}
	return n.vehicle(v, f)
}

// VehicleYearOf resolves the model year.
func (n *Normalizer) VehicleYearOf(c *vapi.Call) (int, bool) { return n.vehicleYear(n.view(c)) }

// Service resolves the requested service.
func (n *Normalizer) Service(c *vapi.Call) (string, bool) { return n.service(n.view(c)) }

// PreferredDate resolves the requested date. There is no transcript fallback.
func (n *Normalizer) PreferredDate(c *vapi.Call) (string, bool) { return n.preferredDate(n.view(c)) }

// Duration is endedAt minus startedAt in whole seconds, clamped to >= 0.
// known is false when either timestamp is missing or unparsable.
func Duration(c *vapi.Call) (seconds int, known bool) {
	if c == nil {
		return 0, false
	}
	start, ok := parseTimestamp(c.StartedAt.String())
	if !ok {
		return 0, false
	}
	end, ok := parseTimestamp(c.EndedAt.String())
	if !ok {
		return 0, false
	}
	d := int(math.Floor(end.Sub(start).Seconds()))
	if d < 0 {
		d = 0
	}
	return d, true
}

func (n *Normalizer) intent(v *view) calls.Intent {
	hits := 0
	for _, kw := range n.h.IntentKeywords {
		if strings.Contains(v.text, kw) {
			hits++
		}
	}
	switch {
	case hits >= n.h.HighIntentHits:
		return calls.IntentHigh
	case hits >= n.h.MediumIntentHits:
		return calls.IntentMedium
	default:
		return calls.IntentLow
	}
}

func (n *Normalizer) confidence(v *view) float64 {
	w := n.h.Confidence
	score := 0.0
	// System prompts are not conversation.
	if v.text != "" {
		score += w.Transcript
	}
	if v.durationKnown && v.duration > w.LongCallSeconds {
		score += w.LongCall
	}
	if _, ok := n.callerName(v); ok {
		score += w.CallerName
	}
	if _, ok := n.service(v); ok {
		score += w.Service
	}
	// Round away float noise (0.3+0.3+0.2+0.2 is not exactly 1).
	score = math.Round(score*1000) / 1000
	return math.Max(0, math.Min(score, 1))
}

func (n *Normalizer) outcome(v *view) calls.Outcome {
	if containsAny(v.text, n.h.SpamKeywords) {
		return calls.OutcomeSpam
	}
	if containsAny(v.text, n.h.BookingKeywords) {
		return calls.OutcomeBooked
	}
	// A zero-length call carries no signal either way.
	if v.durationKnown && v.duration > 0 && v.duration < n.h.DroppedBelowSeconds {
		return calls.OutcomeDropped
	}
	return calls.OutcomeWaiting
}

var (
	namePaths          = [][]string{{"name"}, {"callerName"}, {"customerName"}}
	servicePaths       = [][]string{{"service"}, {"serviceRequested"}}
	preferredDatePaths = [][]string{{"preferredDate"}, {"preferred_date"}}
)

func vehiclePaths(f VehicleField) [][]string {
	key := string(f)
	return [][]string{{"vehicle", key}, {"vehicle" + strings.ToUpper(key[:1]) + key[1:]}}
}

func (n *Normalizer) callerName(v *view) (string, bool) {
	for _, src := range v.structured {
		for _, p := range namePaths {
			if s, ok := src.Lookup(p...); ok {
				if name, ok := n.acceptName(s); ok {
					return name, true
				}
			}
		}
	}
	for _, u := range v.call.Conversation() {
		if _, ok := n.customerRoles[u.Role]; !ok || u.Text == "" {
			continue
		}
		for _, m := range n.namePattern.FindAllStringSubmatch(u.Text, -1) {
			if name, ok := n.acceptName(m[1]); ok {
				return name, true
			}
		}
	}
	return "", false
}

func (n *Normalizer) acceptName(s string) (string, bool) {
	words := strings.Fields(s)
	if len(words) == 0 {
		return "", false
	}
	for i, w := range words {
		lw := strings.ToLower(w)
		if _, stop := n.stoplist[lw]; stop {
			return "", false
		}
		words[i] = capitalize(lw)
	}
	return strings.Join(words, " "), true
}

func (n *Normalizer) vehicle(v *view, f VehicleField) (string, bool) {
	return v.lookup(vehiclePaths(f))
}

func (n *Normalizer) vehicleYear(v *view) (int, bool) {
	if s, ok := v.lookup(vehiclePaths(VehicleYear)); ok {
		if y, ok := leadingInt(s); ok && y > 0 {
			return y, true
		}
	}
	if m := yearPattern.FindStringSubmatch(v.text); m != nil {
		y, _ := strconv.Atoi(m[1])
		return y, true
	}
	return 0, false
}

func (n *Normalizer) service(v *view) (string, bool) {
	if s, ok := v.lookup(servicePaths); ok {
		return s, true
	}
	for _, svc := range n.h.Services {
		if strings.Contains(v.text, svc) {
			return svc, true
		}
	}
	return "", false
}

func (n *Normalizer) preferredDate(v *view) (string, bool) {
	return v.lookup(preferredDatePaths)
}

// lookup returns the first structured value found, trying sources in precedence order.
func (v *view) lookup(paths [][]string) (string, bool) {
	for _, src := range v.structured {
		for _, p := range paths {
			if s, ok := src.Lookup(p...); ok {
				return s, true
			}
		}
	}
	return "", false
}

func (n *Normalizer) structuredSources(c *vapi.Call) []vapi.Args {
	var out []vapi.Args
	if len(c.Analysis.StructuredData) > 0 {
		out = append(out, c.Analysis.StructuredData)
	}
	conv := c.Conversation()
	for i := len(conv) - 1; i >= 0; i-- {
		fcs := conv[i].FunctionCalls
		for j := len(fcs) - 1; j >= 0; j-- {
			if len(fcs[j].Args) > 0 && strings.EqualFold(fcs[j].Name, n.h.LeadCaptureFunction) {
				out = append(out, fcs[j].Args)
			}
		}
	}
	return out
}

// flatten joins every non-system utterance, lowercased.
func flatten(conv []vapi.Utterance) string {
	var b strings.Builder
	for _, u := range conv {
		if u.Role == vapi.RoleSystem || u.Text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(strings.ToLower(u.Text))
	}
	return b.String()
}

func parseTimestamp(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil && ms > 0 {
		return time.UnixMilli(ms), true
	}
	return time.Time{}, false
}

func leadingInt(s string) (int, bool) {
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	return n, err == nil
}

func containsAny(text string, kws []string) bool {
	for _, kw := range kws {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}

func toSet(in []string) map[string]struct{} {
	out := make(map[string]struct{}, len(in))
	for _, s := range in {
		out[s] = struct{}{}
	}
	return out
}

func ptr(s string, ok bool) *string {
	if !ok {
		return nil
	}
	return &s
}
