package pagination

import (
	"encoding/json"
	"fmt"
)

// Status describes how a traversal ended.
type Status string

const (
	// StatusComplete means every page was fetched.
	StatusComplete Status = "complete"

	// StatusPartial means the traversal stopped early but kept what it collected.
	StatusPartial Status = "partial"

	// StatusFailed means the traversal hit a hard failure; collected records are not usable.
	StatusFailed Status = "failed"
)

// Result is the outcome of a traversal.
type Result struct {
	Records []json.RawMessage
	Status  Status
	Pages   int
	Err     error
}

// Strict returns the records only for a complete traversal, otherwise the cause.
func (r Result) Strict() ([]json.RawMessage, error) {
	if r.Status == StatusComplete {
		return r.Records, nil
	}
	if r.Err != nil {
		return nil, r.Err
	}
	return nil, fmt.Errorf("traversal ended with status %s", r.Status)
}

// BestEffort returns whatever records were collected, complete or not.
func (r Result) BestEffort() []json.RawMessage {
	if r.Records == nil {
		return []json.RawMessage{}
	}
	return r.Records
}

func complete(acc *Accumulator) Result {
	return Result{Records: acc.Records(), Status: StatusComplete, Pages: acc.Pages()}
}

func partial(acc *Accumulator, err error) Result {
	return Result{Records: acc.Records(), Status: StatusPartial, Pages: acc.Pages(), Err: err}
}

func failed(acc *Accumulator, err error) Result {
	return Result{Records: acc.Records(), Status: StatusFailed, Pages: acc.Pages(), Err: err}
}
