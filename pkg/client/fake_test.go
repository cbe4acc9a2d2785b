package client

import (
	"context"
	"encoding/json"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// chunkedEncodingError stands in for a transport failure type callers may match on.
type chunkedEncodingError struct{}

func (chunkedEncodingError) Error() string { return "chunked encoding error" }

type fakeCall struct {
	Method string
	Path   string
	Params url.Values
	Body   any
}

type fakeReply struct {
	resp *Response
	err  error
}

// fakeHTTP replays replies in order and repeats the last one.
type fakeHTTP struct {
	mu      sync.Mutex
	calls   []fakeCall
	replies []fakeReply
}

func newFakeHTTP(replies ...fakeReply) *fakeHTTP {
	return &fakeHTTP{replies: replies}
}

func (f *fakeHTTP) Post(ctx context.Context, path string, body any, params url.Values, timeout time.Duration) (*Response, error) {
	return f.record(ctx, fakeCall{Method: "POST", Path: path, Params: params, Body: body})
}

func (f *fakeHTTP) Get(ctx context.Context, path string, params url.Values, timeout time.Duration) (*Response, error) {
	return f.record(ctx, fakeCall{Method: "GET", Path: path, Params: params})
}

func (f *fakeHTTP) record(ctx context.Context, call fakeCall) (*Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, call)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	idx := len(f.calls) - 1
	if idx >= len(f.replies) {
		idx = len(f.replies) - 1
	}
	r := f.replies[idx]
	return r.resp, r.err
}

func (f *fakeHTTP) Calls() []fakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]fakeCall(nil), f.calls...)
}

func jsonReply(status int, body string) fakeReply {
	return fakeReply{resp: &Response{StatusCode: status, Body: []byte(body), Elapsed: 10 * time.Millisecond}}
}

func errReply(err error) fakeReply {
	return fakeReply{err: err}
}

// newTestClient builds a client whose backoff sleeps are recorded, not slept.
func newTestClient(t *testing.T, h HTTPClient) (*Client, *[]time.Duration) {
	t.Helper()

	c, err := New(DefaultConfig(h))
	require.NoError(t, err)

	var sleeps []time.Duration
	c.sleep = func(ctx context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return ctx.Err()
	}
	return c, &sleeps
}

func recordKeys(t *testing.T, records []json.RawMessage) []string {
	t.Helper()

	keys := make([]string, 0, len(records))
	for _, r := range records {
		var rec struct {
			Key string `json:"key"`
		}
		require.NoError(t, json.Unmarshal(r, &rec))
		keys = append(keys, rec.Key)
	}
	return keys
}
