package pagination

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNullResults is returned when a page carries "results": null. Such a page
// cannot be concatenated, so traversals stop on it.
var ErrNullResults = errors.New("page results are null")

// Page is one response unit of a paginated discovery endpoint.
type Page struct {
	// Results holds the opaque records of this page in server order.
	Results []json.RawMessage `json:"results"`

	// Next is the continuation cursor (usually a URL). Absent or falsy means last page.
	Next json.RawMessage `json:"next,omitempty"`

	// hasResults records whether the payload carried a "results" key at all.
	hasResults bool
}

// DecodePage parses a raw response body into a Page.
func DecodePage(data []byte) (*Page, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode page: %w", err)
	}

	page := &Page{Next: raw["next"]}

	if results, ok := raw["results"]; ok {
		if isNull(results) {
			return nil, fmt.Errorf("decode page: %w", ErrNullResults)
		}
		page.hasResults = true
		if err := json.Unmarshal(results, &page.Results); err != nil {
			return nil, fmt.Errorf("decode page results: %w", err)
		}
	}

	return page, nil
}

// HasResults reports whether the payload contained a results field.
func (p *Page) HasResults() bool {
	return p != nil && p.hasResults
}

// HasNext reports whether the server signalled another page.
// Mirrors JSON truthiness: null, false, "", 0, [] and {} all end the traversal.
func (p *Page) HasNext() bool {
	if p == nil {
		return false
	}
	return truthy(p.Next)
}

func truthy(v json.RawMessage) bool {
	v = bytes.TrimSpace(v)
	if len(v) == 0 || isNull(v) {
		return false
	}

	switch v[0] {
	case '"':
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return false
		}
		return s != ""
	case 't':
		return true
	case 'f':
		return false
	case '[':
		var a []json.RawMessage
		if err := json.Unmarshal(v, &a); err != nil {
			return false
		}
		return len(a) > 0
	case '{':
		var o map[string]json.RawMessage
		if err := json.Unmarshal(v, &o); err != nil {
			return false
		}
		return len(o) > 0
	default:
		var n float64
		if err := json.Unmarshal(v, &n); err != nil {
			return false
		}
		return n != 0
	}
}

func isNull(v json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}
