package pagination

import "encoding/json"

// Accumulator is the ordered record builder threaded through a traversal.
// Pages are appended once each, so the final slice is page order then in-page order.
type Accumulator struct {
	records []json.RawMessage
	pages   int
}

// NewAccumulator creates an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{records: []json.RawMessage{}}
}

// Append adds the results of one page.
func (a *Accumulator) Append(page *Page) {
	a.pages++
	if page == nil {
		return
	}
	a.records = append(a.records, page.Results...)
}

// Pages returns the number of pages appended.
func (a *Accumulator) Pages() int {
	return a.pages
}

// Records returns the collected records. Never nil.
func (a *Accumulator) Records() []json.RawMessage {
	return a.records
}
