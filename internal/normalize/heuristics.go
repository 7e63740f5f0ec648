package normalize

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Heuristics holds every tunable constant the normalizer uses.
//
// It is plain data: build it with DefaultHeuristics, optionally overlay a file
// with LoadHeuristics, and hand it to New, which keeps its own copy.
type Heuristics struct {
	// IntentKeywords are counted once each (distinct hits) over the flattened transcript.
	IntentKeywords   []string `json:"intent_keywords" yaml:"intent_keywords"`
	HighIntentHits   int      `json:"high_intent_hits" yaml:"high_intent_hits"`
	MediumIntentHits int      `json:"medium_intent_hits" yaml:"medium_intent_hits"`

	// Outcome rules, checked in order: spam, booking, short call.
	SpamKeywords        []string `json:"spam_keywords" yaml:"spam_keywords"`
	BookingKeywords     []string `json:"booking_keywords" yaml:"booking_keywords"`
	DroppedBelowSeconds int      `json:"dropped_below_seconds" yaml:"dropped_below_seconds"`

	// Services are scanned in order; the first substring hit wins.
	Services []string `json:"services" yaml:"services"`

	// NameLeadIns precede a spoken first name ("my name is", "i'm", ...).
	NameLeadIns  []string `json:"name_lead_ins" yaml:"name_lead_ins"`
	NameStoplist []string `json:"name_stoplist" yaml:"name_stoplist"`

	// CustomerRoles are the speaker roles whose utterances are scanned for a name.
	CustomerRoles []string `json:"customer_roles" yaml:"customer_roles"`

	// LeadCaptureFunction is the structured function the assistant calls with lead details.
	LeadCaptureFunction string `json:"lead_capture_function" yaml:"lead_capture_function"`

	Confidence ConfidenceWeights `json:"confidence" yaml:"confidence"`
}

// ConfidenceWeights is the additive completeness rubric. The total is capped at 1.
type ConfidenceWeights struct {
	Transcript      float64 `json:"transcript" yaml:"transcript"`
	LongCall        float64 `json:"long_call" yaml:"long_call"`
	LongCallSeconds int     `json:"long_call_seconds" yaml:"long_call_seconds"`
	CallerName      float64 `json:"caller_name" yaml:"caller_name"`
	Service         float64 `json:"service" yaml:"service"`
}

// DefaultHeuristics returns the baked-in detailing-shop rules.
func DefaultHeuristics() Heuristics {
	return Heuristics{
		IntentKeywords:      []string{"book", "schedule", "appointment", "when can", "how much", "price", "cost", "available"},
		HighIntentHits:      2,
		MediumIntentHits:    1,
		SpamKeywords:        []string{"spam", "wrong number"},
		BookingKeywords:     []string{"book", "schedule"},
		DroppedBelowSeconds: 15,
		Services:            []string{"full detail", "interior detail", "exterior detail", "ceramic coating", "paint correction"},
		NameLeadIns:         []string{"my name is", "i'm", "i’m", "im", "this is", "i am"},
		NameStoplist:        []string{"calling", "looking", "interested", "trying", "asking", "wondering"},
		CustomerRoles:       []string{"user", "customer"},
		LeadCaptureFunction: "captureLeadInfo",
		Confidence: ConfidenceWeights{
			Transcript:      0.3,
			LongCall:        0.3,
			LongCallSeconds: 30,
			CallerName:      0.2,
			Service:         0.2,
		},
	}
}

// LoadHeuristics reads a YAML or JSON file and overlays it on the defaults.
// The file may hold the fields at the top level or under a "heuristics" key.
func LoadHeuristics(path string) (Heuristics, error) {
	base := DefaultHeuristics()
	data, err := os.ReadFile(path)
	if err != nil {
		return base, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return base, errors.New("normalize: empty heuristics file")
	}

	var wrapped struct {
		Heuristics *Heuristics `json:"heuristics" yaml:"heuristics"`
	}
	var flat Heuristics
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return base, err
		}
		if wrapped.Heuristics == nil {
			if err := json.Unmarshal(data, &flat); err != nil {
				return base, err
			}
		}
	default:
		if err := yaml.Unmarshal(data, &wrapped); err != nil {
			return base, err
		}
		if wrapped.Heuristics == nil {
			if err := yaml.Unmarshal(data, &flat); err != nil {
				return base, err
			}
		}
	}
	if wrapped.Heuristics != nil {
		flat = *wrapped.Heuristics
	}
	return MergeHeuristics(base, flat), nil
}

// MergeHeuristics overlays the non-empty fields of override onto base.
func MergeHeuristics(base, override Heuristics) Heuristics {
	out := base.clone()
	if len(override.IntentKeywords) > 0 {
		out.IntentKeywords = cloneStrings(override.IntentKeywords)
	}
	if override.HighIntentHits > 0 {
		out.HighIntentHits = override.HighIntentHits
	}
	if override.MediumIntentHits > 0 {
		out.MediumIntentHits = override.MediumIntentHits
	}
	if len(override.SpamKeywords) > 0 {
		out.SpamKeywords = cloneStrings(override.SpamKeywords)
	}
	if len(override.BookingKeywords) > 0 {
		out.BookingKeywords = cloneStrings(override.BookingKeywords)
	}
	if override.DroppedBelowSeconds > 0 {
		out.DroppedBelowSeconds = override.DroppedBelowSeconds
	}
	if len(override.Services) > 0 {
		out.Services = cloneStrings(override.Services)
	}
	if len(override.NameLeadIns) > 0 {
		out.NameLeadIns = cloneStrings(override.NameLeadIns)
	}
	if len(override.NameStoplist) > 0 {
		out.NameStoplist = cloneStrings(override.NameStoplist)
	}
	if len(override.CustomerRoles) > 0 {
		out.CustomerRoles = cloneStrings(override.CustomerRoles)
	}
	if strings.TrimSpace(override.LeadCaptureFunction) != "" {
		out.LeadCaptureFunction = strings.TrimSpace(override.LeadCaptureFunction)
	}
	w := override.Confidence
	if w.Transcript > 0 {
		out.Confidence.Transcript = w.Transcript
	}
	if w.LongCall > 0 {
		out.Confidence.LongCall = w.LongCall
	}
	if w.LongCallSeconds > 0 {
		out.Confidence.LongCallSeconds = w.LongCallSeconds
	}
	if w.CallerName > 0 {
		out.Confidence.CallerName = w.CallerName
	}
	if w.Service > 0 {
		out.Confidence.Service = w.Service
	}
	return out
}

// Validate rejects rule sets that would break the record invariants.
func (h Heuristics) Validate() error {
	var errs []error
	if len(h.IntentKeywords) == 0 {
		errs = append(errs, errors.New("intent_keywords must not be empty"))
	}
	if h.MediumIntentHits <= 0 || h.HighIntentHits < h.MediumIntentHits {
		errs = append(errs, errors.New("intent thresholds must satisfy 0 < medium <= high"))
	}
	if len(h.NameLeadIns) == 0 {
		errs = append(errs, errors.New("name_lead_ins must not be empty"))
	}
	c := h.Confidence
	for _, w := range []float64{c.Transcript, c.LongCall, c.CallerName, c.Service} {
		if w < 0 || w > 1 {
			errs = append(errs, errors.New("confidence weights must be within [0,1]"))
			break
		}
	}
	return errors.Join(errs...)
}

func (h Heuristics) clone() Heuristics {
	out := h
	out.IntentKeywords = cloneStrings(h.IntentKeywords)
	out.SpamKeywords = cloneStrings(h.SpamKeywords)
	out.BookingKeywords = cloneStrings(h.BookingKeywords)
	out.Services = cloneStrings(h.Services)
	out.NameLeadIns = cloneStrings(h.NameLeadIns)
	out.NameStoplist = cloneStrings(h.NameStoplist)
	out.CustomerRoles = cloneStrings(h.CustomerRoles)
	return out
}

// cloneStrings copies, lowercases and drops repeats, keeping first-seen order.
// All matching is case-insensitive and keyword hits count distinct entries.
func cloneStrings(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
