// Package extract recovers a JSON object from free-form model output.
//
// Models tend to wrap the object they were asked for in prose or Markdown
// fences. The recovery is a first-brace/last-brace scan: everything between the
// first '{' and the last '}' (inclusive) must parse as one JSON object. Text
// holding several objects therefore fails rather than silently picking one.
package extract

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/BerylCAtieno/customer-persona-agent/internal/errs"
)

// Span returns the candidate object text of raw.
func Span(raw string) (string, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 {
		return "", &errs.MalformedResponseError{Reason: "no JSON object found in response", Raw: raw}
	}
	if end < start {
		return "", &errs.MalformedResponseError{Reason: "closing brace precedes opening brace", Raw: raw}
	}
	return raw[start : end+1], nil
}

// Object parses the JSON object embedded in raw. Numbers are kept as
// json.Number so the object round-trips exactly.
func Object(raw string) (map[string]any, error) {
	span, err := Span(raw)
	if err != nil {
		return nil, err
	}
	if !json.Valid([]byte(span)) {
		return nil, &errs.MalformedResponseError{Reason: "invalid JSON", Raw: raw}
	}
	dec := json.NewDecoder(strings.NewReader(span))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, &errs.MalformedResponseError{Reason: "invalid JSON", Raw: raw, Err: err}
	}
	return obj, nil
}

// Into decodes the JSON object embedded in raw into v.
func Into(raw string, v any) error {
	span, err := Span(raw)
	if err != nil {
		return err
	}
	if !json.Valid([]byte(span)) {
		return &errs.MalformedResponseError{Reason: "invalid JSON", Raw: raw}
	}
	if err := json.NewDecoder(bytes.NewReader([]byte(span))).Decode(v); err != nil {
		return &errs.MalformedResponseError{Reason: "unexpected JSON shape", Raw: raw, Err: err}
	}
	return nil
}
