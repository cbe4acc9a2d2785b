package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/Sternrassler/course-discovery-client/pkg/pagination"
)

// Discovery endpoints.
const (
	SearchAllEndpoint = "/api/v1/search/all/"
	CoursesEndpoint   = "/api/v1/courses/"
	ProgramsEndpoint  = "/api/v1/programs/"

	// OffsetSize is the page size used by the offset-paginated list endpoints.
	OffsetSize = 100

	// SearchPageSize is the page size requested from the search-all endpoint.
	SearchPageSize = 100
)

// ContentFilter is the opaque search payload POSTed to the search-all endpoint.
type ContentFilter map[string]any

// EndpointKind selects an offset-paginated list endpoint.
type EndpointKind string

const (
	EndpointCourses  EndpointKind = "courses"
	EndpointPrograms EndpointKind = "programs"
)

// listRequest returns the path and default query params for kind.
func listRequest(kind EndpointKind) (string, url.Values, error) {
	params := url.Values{}
	params.Set("ordering", "key")
	params.Set("limit", strconv.Itoa(OffsetSize))

	switch kind {
	case EndpointCourses:
		return CoursesEndpoint, params, nil
	case EndpointPrograms:
		params.Set("extended", "true")
		return ProgramsEndpoint, params, nil
	default:
		return "", nil, fmt.Errorf("%w: %q", ErrUnknownEndpoint, kind)
	}
}

func searchParams() url.Values {
	params := url.Values{}
	// only active course runs
	params.Set("exclude_expired_course_run", "true")
	params.Set("page_size", strconv.Itoa(SearchPageSize))
	// stable order across pages
	params.Set("ordering", "aggregation_key,start")
	params.Set("include_learner_pathways", "true")
	return params
}

// mergeParams copies base and lets overrides replace or extend its keys.
func mergeParams(base, overrides url.Values) url.Values {
	merged := make(url.Values, len(base)+len(overrides))
	for k, v := range base {
		merged[k] = append([]string(nil), v...)
	}
	for k, v := range overrides {
		merged[k] = append([]string(nil), v...)
	}
	return merged
}

// FetchSearchResult traverses the search-all endpoint for filter and reports the
// outcome without collapsing it to an error.
func (c *Client) FetchSearchResult(ctx context.Context, filter ContentFilter, params url.Values) pagination.Result {
	base := mergeParams(searchParams(), params)

	return pagination.Cursor(ctx, func(ctx context.Context, page int) (*pagination.Page, error) {
		pageParams := base
		if page > 1 {
			pageParams = mergeParams(base, url.Values{"page": {strconv.Itoa(page)}})
		}
		return c.retrieveSearchPage(ctx, filter, page, pageParams)
	})
}

// FetchSearch returns every search-all record matching filter, in page order.
// It fails fast: if any page cannot be retrieved the error is returned and no
// records are.
func (c *Client) FetchSearch(ctx context.Context, filter ContentFilter, params url.Values) ([]json.RawMessage, error) {
	res := c.FetchSearchResult(ctx, filter, params)

	records, err := res.Strict()
	if err != nil {
		c.logger.Error().
			Err(err).
			Int("pages", res.Pages).
			Msg("Could not retrieve content items from course-discovery")
		return nil, err
	}

	return records, nil
}

// FetchListResult traverses a list endpoint and reports the outcome.
func (c *Client) FetchListResult(ctx context.Context, kind EndpointKind, params url.Values) pagination.Result {
	path, defaults, err := listRequest(kind)
	if err != nil {
		return pagination.Result{Records: []json.RawMessage{}, Status: pagination.StatusPartial, Err: err}
	}
	base := mergeParams(defaults, params)

	res := pagination.Offset(ctx, OffsetSize, func(ctx context.Context, offset int) (*pagination.Page, error) {
		pageParams := base
		if offset > 0 {
			pageParams = mergeParams(base, url.Values{"offset": {strconv.Itoa(offset)}})
		}
		return c.retrieveListPage(ctx, path, offset, pageParams)
	})

	if res.Status == pagination.StatusPartial {
		if errors.Is(res.Err, context.Canceled) || errors.Is(res.Err, context.DeadlineExceeded) {
			c.logger.Warn().
				Err(res.Err).
				Str("kind", string(kind)).
				Int("retrieved", len(res.Records)).
				Msg("Deadline reached while traversing, already retrieved records will still be processed")
		} else {
			c.logger.Error().
				Err(res.Err).
				Str("kind", string(kind)).
				Str("params", base.Encode()).
				Int("retrieved", len(res.Records)).
				Msg("Could not get list from course-discovery")
		}
	}

	return res
}

// FetchList returns every record of a list endpoint. It is best-effort: on any
// failure or cancellation the records retrieved so far are returned.
func (c *Client) FetchList(ctx context.Context, kind EndpointKind, params url.Values) []json.RawMessage {
	return c.FetchListResult(ctx, kind, params).BestEffort()
}

// GetCourses returns all courses, best-effort.
func (c *Client) GetCourses(ctx context.Context, params url.Values) []json.RawMessage {
	return c.FetchList(ctx, EndpointCourses, params)
}

// GetPrograms returns all programs in their extended representation, best-effort.
func (c *Client) GetPrograms(ctx context.Context, params url.Values) []json.RawMessage {
	return c.FetchList(ctx, EndpointPrograms, params)
}

// retrieveListPage makes a single GET attempt. List pages are not retried.
func (c *Client) retrieveListPage(ctx context.Context, path string, offset int, params url.Values) (*pagination.Page, error) {
	c.logger.Info().Str("endpoint", path).Int("offset", offset).Msg("Retrieving list from course-discovery")

	resp, err := c.http.Get(ctx, path, params, c.config.HTTPTimeout)
	if err != nil {
		class := classifyError(ctx, err)
		discoveryErrorsTotal.WithLabelValues(string(class)).Inc()
		discoveryRequestsTotal.WithLabelValues(path, string(class)).Inc()
		return nil, &DiscoveryError{Endpoint: path, Class: class, Err: err}
	}

	discoveryRequestsTotal.WithLabelValues(path, strconv.Itoa(resp.StatusCode)).Inc()
	discoveryRequestDuration.WithLabelValues(path).Observe(resp.Elapsed.Seconds())

	if resp.StatusCode >= 400 {
		// not treated as a failure; the body decides whether traversal continues
		c.logger.Warn().Str("endpoint", path).Int("offset", offset).Int("status", resp.StatusCode).
			Msg("Unexpected status from course-discovery list endpoint")
	}

	page, err := resp.Page()
	if err != nil {
		discoveryErrorsTotal.WithLabelValues(string(ErrorClassDecode)).Inc()
		return nil, &DiscoveryError{Endpoint: path, StatusCode: resp.StatusCode, Class: ErrorClassDecode, Err: err}
	}

	return page, nil
}
