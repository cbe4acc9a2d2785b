// Package testutil provides testing utilities for the discovery client.
package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"
)

// MockResponse defines the behavior for a mock discovery endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// RecordedRequest is a request seen by the mock server.
type RecordedRequest struct {
	Method string
	Path   string
	Query  map[string][]string
	Body   []byte
	Header http.Header
}

// MockDiscovery is a configurable mock discovery server for testing.
type MockDiscovery struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	requests []RecordedRequest
}

// NewMockDiscovery creates a new mock discovery server.
func NewMockDiscovery() *MockDiscovery {
	mock := &MockDiscovery{
		handlers: make(map[string]func(w http.ResponseWriter, r *http.Request)),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)

		mock.mu.Lock()
		mock.requests = append(mock.requests, RecordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.Query(),
			Body:   body,
			Header: r.Header.Clone(),
		})
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"detail": "Not found."}`))
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockDiscovery) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockDiscovery) Close() {
	m.server.Close()
}

// Reset clears recorded requests.
func (m *MockDiscovery) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = nil
}

// SetHandler sets a custom handler for a specific path.
func (m *MockDiscovery) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a fixed response for a path.
func (m *MockDiscovery) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		writeResponse(w, resp)
	})
}

// SetSequence serves the responses in order, repeating the last one once exhausted.
func (m *MockDiscovery) SetSequence(path string, resps ...MockResponse) {
	var (
		mu   sync.Mutex
		next int
	)
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		resp := resps[next]
		if next < len(resps)-1 {
			next++
		}
		mu.Unlock()
		writeResponse(w, resp)
	})
}

// SetSearchPages serves cursor pages selected by the "page" query param (1-based).
func (m *MockDiscovery) SetSearchPages(path string, pages ...[]any) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		page := 1
		if p := r.URL.Query().Get("page"); p != "" {
			page, _ = strconv.Atoi(p)
		}
		servePage(w, r, pages, page-1, fmt.Sprintf("%s?page=%d", path, page+1))
	})
}

// SetOffsetPages serves offset pages of pageSize selected by the "offset" query param.
func (m *MockDiscovery) SetOffsetPages(path string, pageSize int, pages ...[]any) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		offset := 0
		if o := r.URL.Query().Get("offset"); o != "" {
			offset, _ = strconv.Atoi(o)
		}
		servePage(w, r, pages, offset/pageSize, fmt.Sprintf("%s?offset=%d", path, offset+pageSize))
	})
}

// Requests returns a copy of the recorded requests.
func (m *MockDiscovery) Requests() []RecordedRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]RecordedRequest(nil), m.requests...)
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockDiscovery) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.requests)
}

func servePage(w http.ResponseWriter, r *http.Request, pages [][]any, idx int, nextPath string) {
	if idx < 0 || idx >= len(pages) {
		writeResponse(w, MockResponse{StatusCode: http.StatusNotFound, Body: `{"detail": "Invalid page."}`})
		return
	}

	body := map[string]any{"results": pages[idx], "next": nil}
	if idx < len(pages)-1 {
		body["next"] = "http://" + r.Host + nextPath
	}

	data, _ := json.Marshal(body)
	writeResponse(w, NewPageResponse(string(data)))
}

func writeResponse(w http.ResponseWriter, resp MockResponse) {
	if resp.Delay > 0 {
		time.Sleep(resp.Delay)
	}
	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}
	w.WriteHeader(resp.StatusCode)
	if resp.Body != "" {
		w.Write([]byte(resp.Body))
	}
}

// NewPageResponse creates a 200 OK JSON response.
func NewPageResponse(body string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       body,
		Headers:    map[string]string{"Content-Type": "application/json"},
	}
}

// NewBadRequestResponse creates a 400 response with an empty JSON object body.
func NewBadRequestResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusBadRequest,
		Body:       `{}`,
		Headers:    map[string]string{"Content-Type": "application/json"},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"detail": "Internal server error"}`,
		Headers:    map[string]string{"Content-Type": "application/json"},
	}
}

// NewThrottledResponse creates a 429 response with a Retry-After header.
func NewThrottledResponse(retryAfterSeconds int) MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"detail": "Request was throttled."}`,
		Headers: map[string]string{
			"Content-Type": "application/json",
			"Retry-After":  strconv.Itoa(retryAfterSeconds),
		},
	}
}

// NewMalformedResponse creates a 200 response whose body is not JSON.
func NewMalformedResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       `<html>gateway hiccup</html>`,
		Headers:    map[string]string{"Content-Type": "text/html"},
	}
}
