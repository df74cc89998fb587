// ABOUTME: Tagged union for the execution backend's untyped result field
// ABOUTME: Absent, Text, or Structured JSON, with explicit rendering to text

package wolfram

import (
	"bytes"
	"encoding/json"
)

// ResultKind discriminates Result.
type ResultKind int

const (
	ResultAbsent ResultKind = iota
	ResultText
	ResultStructured
)

// Result is the backend's result value. The zero value is Absent.
type Result struct {
	kind ResultKind
	text string
	raw  json.RawMessage
}

// TextResult wraps a string result.
func TextResult(s string) Result {
	return Result{kind: ResultText, text: s}
}

// StructuredResult wraps any non-string JSON value. Null is Absent.
func StructuredResult(raw json.RawMessage) Result {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return Result{}
	}
	return Result{kind: ResultStructured, raw: append(json.RawMessage(nil), raw...)}
}

func (r Result) Kind() ResultKind { return r.kind }

func (r Result) IsAbsent() bool { return r.kind == ResultAbsent }

// Text returns the string value when the result is Text.
func (r Result) Text() (string, bool) {
	return r.text, r.kind == ResultText
}

// Raw returns the JSON value when the result is Structured.
func (r Result) Raw() (json.RawMessage, bool) {
	return r.raw, r.kind == ResultStructured
}

// String renders the result for display: text verbatim, structured values as
// indented JSON, absent as the empty string.
func (r Result) String() string {
	switch r.kind {
	case ResultText:
		return r.text
	case ResultStructured:
		var buf bytes.Buffer
		if err := json.Indent(&buf, r.raw, "", "  "); err != nil {
			return string(r.raw)
		}
		return buf.String()
	default:
		return ""
	}
}

func (r *Result) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*r = TextResult(s)
		return nil
	}
	*r = StructuredResult(b)
	return nil
}

func (r Result) MarshalJSON() ([]byte, error) {
	switch r.kind {
	case ResultText:
		return json.Marshal(r.text)
	case ResultStructured:
		return r.raw, nil
	default:
		return []byte("null"), nil
	}
}
