package pagination

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// Traversal modes, used as metric labels.
const (
	ModeCursor = "cursor"
	ModeOffset = "offset"
)

// ErrMissingResults is returned when the first page of an offset traversal has no results field.
var ErrMissingResults = errors.New("first page has no results field")

// CursorFetchFunc fetches the given 1-based logical page.
type CursorFetchFunc func(ctx context.Context, page int) (*Page, error)

// OffsetFetchFunc fetches the page starting at offset.
type OffsetFetchFunc func(ctx context.Context, offset int) (*Page, error)

// Cursor follows "next" cursors until exhausted. The first error is terminal and
// the result is StatusFailed; callers should use Result.Strict.
func Cursor(ctx context.Context, fetch CursorFetchFunc) Result {
	start := time.Now()
	acc := NewAccumulator()

	page := 1
	resp, err := fetch(ctx, page)
	if err != nil {
		return finish(ModeCursor, start, failed(acc, fmt.Errorf("page %d: %w", page, err)))
	}
	acc.Append(resp)
	pagesFetchedTotal.WithLabelValues(ModeCursor).Inc()

	for resp.HasNext() {
		page++
		resp, err = fetch(ctx, page)
		if err != nil {
			return finish(ModeCursor, start, failed(acc, fmt.Errorf("page %d: %w", page, err)))
		}
		acc.Append(resp)
		pagesFetchedTotal.WithLabelValues(ModeCursor).Inc()
	}

	return finish(ModeCursor, start, complete(acc))
}

// Offset walks an offset-paginated endpoint, advancing by pageSize while the
// server reports a next page. Errors and context cancellation between pages
// end the walk with StatusPartial and the records collected so far.
func Offset(ctx context.Context, pageSize int, fetch OffsetFetchFunc) Result {
	start := time.Now()
	acc := NewAccumulator()

	offset := 0
	resp, err := fetch(ctx, offset)
	if err != nil {
		return finish(ModeOffset, start, partial(acc, fmt.Errorf("offset %d: %w", offset, err)))
	}
	if !resp.HasResults() {
		return finish(ModeOffset, start, partial(acc, fmt.Errorf("offset %d: %w", offset, ErrMissingResults)))
	}
	acc.Append(resp)
	pagesFetchedTotal.WithLabelValues(ModeOffset).Inc()

	for resp.HasNext() {
		if err := ctx.Err(); err != nil {
			return finish(ModeOffset, start, partial(acc, err))
		}

		offset += pageSize
		resp, err = fetch(ctx, offset)
		if err != nil {
			return finish(ModeOffset, start, partial(acc, fmt.Errorf("offset %d: %w", offset, err)))
		}
		acc.Append(resp)
		pagesFetchedTotal.WithLabelValues(ModeOffset).Inc()
	}

	return finish(ModeOffset, start, complete(acc))
}

func finish(mode string, start time.Time, res Result) Result {
	traversalsTotal.WithLabelValues(mode, string(res.Status)).Inc()

	log.Debug().
		Str("mode", mode).
		Str("status", string(res.Status)).
		Int("pages", res.Pages).
		Int("records", len(res.Records)).
		Dur("duration", time.Since(start)).
		Msg("Traversal finished")

	return res
}
