package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Sternrassler/course-discovery-client/internal/testutil"
	"github.com/Sternrassler/course-discovery-client/pkg/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupEnv points the command at the mock server and clears settings a
// developer shell might carry.
func setupEnv(t *testing.T, mock *testutil.MockDiscovery) {
	t.Helper()

	t.Setenv("DISCOVERY_BASE_URL", mock.URL())
	t.Setenv("ENTERPRISE_DISCOVERY_CLIENT_MAX_RETRIES", "0")
	t.Setenv("ENTERPRISE_DISCOVERY_CLIENT_BACKOFF_FACTOR", "0")
	t.Setenv("DISCOVERY_OAUTH_TOKEN_URL", "")
	t.Setenv("REDIS_URL", "")
	t.Setenv("METRICS_ADDR", "")
}

func decodeOutput(t *testing.T, out *bytes.Buffer) []map[string]any {
	t.Helper()

	var records []map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &records))
	return records
}

func TestHealthEndpoint(t *testing.T) {
	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()

	healthHandler(w, req)

	resp := w.Result()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	if string(body) != "OK" {
		t.Errorf("Expected body 'OK', got %s", string(body))
	}
}

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr bool
	}{
		{name: "courses", args: []string{"courses"}},
		{name: "search with filter", args: []string{"-filter", `{"content_type":"course"}`, "search"}},
		{name: "params", args: []string{"-param", "org=edX", "-param", "org=MITx", "programs"}},
		{name: "no target", args: []string{}, wantErr: true},
		{name: "two targets", args: []string{"courses", "programs"}, wantErr: true},
		{name: "bad param", args: []string{"-param", "novalue", "courses"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := parseFlags(tt.args)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, opts.args, 1)
		})
	}
}

func TestParseFlags_RepeatedParams(t *testing.T) {
	opts, err := parseFlags([]string{"-param", "org=edX", "-param", "org=MITx", "courses"})
	require.NoError(t, err)

	assert.Equal(t, []string{"edX", "MITx"}, opts.params["org"])
}

func TestRun_Courses(t *testing.T) {
	mock := testutil.NewMockDiscovery()
	defer mock.Close()
	setupEnv(t, mock)

	mock.SetOffsetPages(client.CoursesEndpoint, client.OffsetSize,
		[]any{map[string]any{"key": "edX+DemoX"}, map[string]any{"key": "MITx+6.00x"}},
	)

	var out bytes.Buffer
	err := run(context.Background(), []string{"-env-file", "", "-param", "org=edX", "courses"}, &out)
	require.NoError(t, err)

	records := decodeOutput(t, &out)
	require.Len(t, records, 2)
	assert.Equal(t, "edX+DemoX", records[0]["key"])
	assert.Equal(t, "MITx+6.00x", records[1]["key"])

	reqs := mock.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "edX", reqs[0].Query["org"][0])
	assert.Equal(t, "key", reqs[0].Query["ordering"][0])
}

func TestRun_ProgramsPartialStillWritten(t *testing.T) {
	mock := testutil.NewMockDiscovery()
	defer mock.Close()
	setupEnv(t, mock)

	mock.SetResponse(client.ProgramsEndpoint, testutil.NewMalformedResponse())

	var out bytes.Buffer
	err := run(context.Background(), []string{"-env-file", "", "programs"}, &out)
	require.NoError(t, err)

	assert.Empty(t, decodeOutput(t, &out))
	assert.Equal(t, 1, mock.GetRequestCount())
}

func TestRun_Search(t *testing.T) {
	mock := testutil.NewMockDiscovery()
	defer mock.Close()
	setupEnv(t, mock)

	mock.SetSearchPages(client.SearchAllEndpoint,
		[]any{map[string]any{"aggregation_key": "course:a"}},
		[]any{map[string]any{"aggregation_key": "course:b"}},
	)

	var out bytes.Buffer
	err := run(context.Background(), []string{"-env-file", "", "-filter", `{"content_type":"course"}`, "-catalog-query-id", "42", "search"}, &out)
	require.NoError(t, err)

	records := decodeOutput(t, &out)
	require.Len(t, records, 2)
	assert.Equal(t, "course:a", records[0]["aggregation_key"])
	assert.Equal(t, "course:b", records[1]["aggregation_key"])

	var body map[string]any
	require.NoError(t, json.Unmarshal(mock.Requests()[0].Body, &body))
	assert.Equal(t, "course", body["content_type"])
}

func TestRun_SearchFailure(t *testing.T) {
	mock := testutil.NewMockDiscovery()
	defer mock.Close()
	setupEnv(t, mock)

	mock.SetResponse(client.SearchAllEndpoint, testutil.NewMalformedResponse())

	var out bytes.Buffer
	err := run(context.Background(), []string{"-env-file", "", "search"}, &out)
	require.Error(t, err)
	assert.Empty(t, out.String())
}

func TestRun_InvalidConfiguration(t *testing.T) {
	t.Setenv("DISCOVERY_BASE_URL", "")

	var out bytes.Buffer
	err := run(context.Background(), []string{"-env-file", "", "courses"}, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DISCOVERY_BASE_URL")
}

func TestRun_BadFilter(t *testing.T) {
	mock := testutil.NewMockDiscovery()
	defer mock.Close()
	setupEnv(t, mock)

	var out bytes.Buffer
	err := run(context.Background(), []string{"-env-file", "", "-filter", "not json", "search"}, &out)
	require.Error(t, err)
	assert.Equal(t, 0, mock.GetRequestCount())
}
