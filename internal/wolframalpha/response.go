// ABOUTME: Wire types for the Wolfram|Alpha full-results JSON output
// ABOUTME: Tolerates the API's habit of returning objects where arrays are expected

package wolframalpha

import (
	"bytes"
	"encoding/json"
	"maps"
	"slices"
	"strconv"
	"strings"
)

// Response is the decoded queryresult of one query.
type Response struct {
	Success     bool
	Error       *APIError
	NumPods     int
	Timing      float64
	Pods        []Pod
	Assumptions []Assumption
	Warnings    []string
}

// APIError is the error object the API returns instead of false.
type APIError struct {
	Code string
	Msg  string
}

// Pod is one titled result section.
type Pod struct {
	Title    string   `json:"title"`
	ID       string   `json:"id"`
	Scanner  string   `json:"scanner"`
	Position int      `json:"position"`
	Subpods  []Subpod `json:"subpods"`
}

// Subpod carries the plain text and image of one result cell.
type Subpod struct {
	Title     string `json:"title"`
	Plaintext string `json:"plaintext"`
	Img       *Image `json:"img,omitempty"`
}

// Image describes a rendered result image.
type Image struct {
	Src    string `json:"src"`
	Alt    string `json:"alt,omitempty"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

func (img *Image) UnmarshalJSON(b []byte) error {
	var raw struct {
		Src    string  `json:"src"`
		Alt    string  `json:"alt"`
		Width  flexInt `json:"width"`
		Height flexInt `json:"height"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*img = Image{Src: raw.Src, Alt: raw.Alt, Width: int(raw.Width), Height: int(raw.Height)}
	return nil
}

// Assumption is an interpretation the engine made about the input.
type Assumption struct {
	Type   string            `json:"type"`
	Word   string            `json:"word,omitempty"`
	Values []AssumptionValue `json:"values,omitempty"`
}

// AssumptionValue is one alternative interpretation.
type AssumptionValue struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type envelope struct {
	QueryResult rawResult `json:"queryresult"`
}

type rawResult struct {
	Success     bool            `json:"success"`
	Error       json.RawMessage `json:"error"`
	NumPods     int             `json:"numpods"`
	Timing      float64         `json:"timing"`
	Pods        []Pod           `json:"pods"`
	Assumptions json.RawMessage `json:"assumptions"`
	Warnings    json.RawMessage `json:"warnings"`
}

type rawAssumption struct {
	Type   string          `json:"type"`
	Word   string          `json:"word"`
	Values json.RawMessage `json:"values"`
}

type rawAssumptionValue struct {
	Name string `json:"name"`
	Desc string `json:"desc"`
}

func (r rawResult) toResponse() *Response {
	resp := &Response{
		Success: r.Success,
		Error:   decodeAPIError(r.Error),
		NumPods: r.NumPods,
		Timing:  r.Timing,
		Pods:    r.Pods,
	}

	for _, item := range objectOrArray(r.Assumptions) {
		var ra rawAssumption
		if err := json.Unmarshal(item, &ra); err != nil {
			continue
		}
		a := Assumption{Type: ra.Type, Word: ra.Word}
		for _, v := range objectOrArray(ra.Values) {
			var rv rawAssumptionValue
			if err := json.Unmarshal(v, &rv); err == nil && rv.Name != "" {
				a.Values = append(a.Values, AssumptionValue{Name: rv.Name, Description: rv.Desc})
			}
		}
		resp.Assumptions = append(resp.Assumptions, a)
	}

	for _, item := range objectOrArray(r.Warnings) {
		resp.Warnings = append(resp.Warnings, collectText(item)...)
	}

	return resp
}

// decodeAPIError accepts false, true, or {code, msg}.
func decodeAPIError(raw json.RawMessage) *APIError {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("false")) || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	if bytes.Equal(raw, []byte("true")) {
		return &APIError{}
	}
	var obj struct {
		Code flexString `json:"code"`
		Msg  string     `json:"msg"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return &APIError{}
	}
	return &APIError{Code: string(obj.Code), Msg: obj.Msg}
}

// objectOrArray normalizes a value that may be a single object or a list.
func objectOrArray(raw json.RawMessage) []json.RawMessage {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	if raw[0] == '[' {
		var list []json.RawMessage
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil
		}
		return list
	}
	if raw[0] == '{' {
		return []json.RawMessage{raw}
	}
	return nil
}

// collectText walks a warning object and returns every "text" string in it.
// Warnings arrive keyed by kind (spellcheck, delimiters, reinterpret, ...).
func collectText(raw json.RawMessage) []string {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	var out []string
	var walk func(any)
	walk = func(node any) {
		switch n := node.(type) {
		case map[string]any:
			if text, ok := n["text"].(string); ok && strings.TrimSpace(text) != "" {
				out = append(out, strings.TrimSpace(text))
			}
			for _, k := range slices.Sorted(maps.Keys(n)) {
				if k != "text" {
					walk(n[k])
				}
			}
		case []any:
			for _, child := range n {
				walk(child)
			}
		}
	}
	walk(v)
	return out
}

// flexInt decodes numbers that the API sometimes sends as strings.
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	*f = flexInt(n)
	return nil
}

// flexString decodes a string or a bare number.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	*f = flexString(strings.Trim(string(b), `"`))
	return nil
}
