package orchestrator

import (
	"encoding/json"
	"strings"
)

// Output is a model reply in tagged form. Parsed reports whether the reply
// was a well-formed JSON object; when false, Fields is nil and only Text is
// meaningful. Callers must branch on Parsed instead of assuming shape.
type Output struct {
	Parsed bool
	Fields map[string]any
	Text   string
}

// ParseOutput attempts to read a model reply as a JSON object. Malformed
// replies degrade to a raw-text output rather than an error; models are
// allowed to ramble and the pipeline carries on with what it got.
func ParseOutput(text string) Output {
	candidate := extractJSON(text)

	var fields map[string]any
	if err := json.Unmarshal([]byte(candidate), &fields); err != nil {
		return Output{Text: text}
	}
	return Output{Parsed: true, Fields: fields, Text: text}
}

// String returns the named field as a string, or "" when absent, not a
// string, or the output is raw.
func (o Output) String(key string) string {
	if !o.Parsed {
		return ""
	}
	s, _ := o.Fields[key].(string)
	return s
}

// Bool returns the named field as a bool plus whether it was present.
func (o Output) Bool(key string) (bool, bool) {
	if !o.Parsed {
		return false, false
	}
	b, ok := o.Fields[key].(bool)
	return b, ok
}

// Has reports whether the named field is present on a parsed output.
func (o Output) Has(key string) bool {
	if !o.Parsed {
		return false
	}
	_, ok := o.Fields[key]
	return ok
}

// extractJSON strips markdown code fences and leading prose so a reply like
// "Sure! ```json\n{...}\n```" still parses.
func extractJSON(text string) string {
	s := strings.TrimSpace(text)

	if i := strings.Index(s, "```"); i >= 0 {
		s = s[i+3:]
		s = strings.TrimPrefix(s, "json")
		if j := strings.Index(s, "```"); j >= 0 {
			s = s[:j]
		}
		s = strings.TrimSpace(s)
	}

	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}
