package vapi

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"
)

// Speaker roles after normalization.
const (
	RoleAssistant = "assistant"
	RoleUser      = "user"
	RoleCustomer  = "customer"
	RoleSystem    = "system"
)

// Utterance is one speaker-tagged turn of the conversation.
type Utterance struct {
	Role          string
	Text          string
	FunctionCalls []FunctionCall
}

// FunctionCall is a structured call the voice model emitted during the turn.
type FunctionCall struct {
	Name string
	Args Args
}

// Transcript is the ordered conversation.
//
// Accepted shapes:
//   - an array of message objects ({role, message|content, functionCall, function_call, toolCalls})
//   - an array of strings, each "role: text"
//   - a single string with one "Role: text" turn per line
//
// Anything else decodes to an empty transcript. Raw keeps the original JSON for persistence.
type Transcript struct {
	Utterances []Utterance
	Raw        json.RawMessage
}

// Present reports whether the vendor sent a non-empty transcript value.
func (t Transcript) Present() bool {
	return len(t.Utterances) > 0
}

func (t *Transcript) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	*t = Transcript{}
	if len(b) == 0 {
		return nil
	}
	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
		t.Utterances = parseLines(s)
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(b, &items); err != nil {
			return nil
		}
		for _, item := range items {
			if u, ok := parseItem(item); ok {
				t.Utterances = append(t.Utterances, u)
			}
		}
	default:
		return nil
	}
	if len(t.Utterances) > 0 {
		t.Raw = append(json.RawMessage(nil), b...)
	}
	return nil
}

type rawFunctionCall struct {
	Name       Text            `json:"name"`
	Parameters json.RawMessage `json:"parameters"`
	Arguments  json.RawMessage `json:"arguments"`
}

func (f rawFunctionCall) toFunctionCall() (FunctionCall, bool) {
	name := f.Name.String()
	if name == "" {
		return FunctionCall{}, false
	}
	args := parseArgs(f.Parameters)
	if args == nil {
		args = parseArgs(f.Arguments)
	}
	return FunctionCall{Name: name, Args: args}, true
}

type rawToolCall struct {
	Function rawFunctionCall `json:"function"`
}

type rawMessage struct {
	Role         Text              `json:"role"`
	Message      Text              `json:"message"`
	Content      Text              `json:"content"`
	FunctionCall *rawFunctionCall  `json:"functionCall"`
	FunctionUS   *rawFunctionCall  `json:"function_call"`
	ToolCalls    []json.RawMessage `json:"toolCalls"`
	ToolCallsUS  []json.RawMessage `json:"tool_calls"`
}

func parseItem(item json.RawMessage) (Utterance, bool) {
	item = bytes.TrimSpace(item)
	if len(item) == 0 {
		return Utterance{}, false
	}
	switch item[0] {
	case '"':
		var s string
		if err := json.Unmarshal(item, &s); err != nil {
			return Utterance{}, false
		}
		lines := parseLines(s)
		if len(lines) == 0 {
			return Utterance{}, false
		}
		u := lines[0]
		for _, l := range lines[1:] {
			u.Text += "\n" + l.Text
		}
		return u, true
	case '{':
		var m rawMessage
		if err := json.Unmarshal(item, &m); err != nil {
			return Utterance{}, false
		}
		return m.toUtterance()
	default:
		return Utterance{}, false
	}
}

func (m rawMessage) toUtterance() (Utterance, bool) {
	u := Utterance{Role: normalizeRole(m.Role.String())}
	u.Text = m.Message.String()
	if u.Text == "" {
		u.Text = m.Content.String()
	}
	for _, fc := range []*rawFunctionCall{m.FunctionCall, m.FunctionUS} {
		if fc == nil {
			continue
		}
		if call, ok := fc.toFunctionCall(); ok {
			u.FunctionCalls = append(u.FunctionCalls, call)
		}
	}
	for _, raw := range append(m.ToolCalls, m.ToolCallsUS...) {
		var tc rawToolCall
		if !isObject(raw) || json.Unmarshal(raw, &tc) != nil {
			continue
		}
		if call, ok := tc.Function.toFunctionCall(); ok {
			u.FunctionCalls = append(u.FunctionCalls, call)
		}
	}
	if u.Text == "" && len(u.FunctionCalls) == 0 {
		return Utterance{}, false
	}
	return u, true
}

var speakerLine = regexp.MustCompile(`^\s*([A-Za-z]+)\s*:\s*(.*)$`)

func parseLines(s string) []Utterance {
	var out []Utterance
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if m := speakerLine.FindStringSubmatch(line); m != nil {
			out = append(out, Utterance{Role: normalizeRole(m[1]), Text: strings.TrimSpace(m[2])})
			continue
		}
		out = append(out, Utterance{Text: line})
	}
	return out
}

func normalizeRole(r string) string {
	r = strings.ToLower(strings.TrimSpace(r))
	switch r {
	case "ai", "bot", "agent", "assistant":
		return RoleAssistant
	default:
		return r
	}
}
