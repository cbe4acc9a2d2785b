// Package pagination walks paginated discovery endpoints page by page.
//
// Two traversal modes are supported:
//
//   - Cursor: continue while the last page's "next" field is truthy. Used by the
//     search-all endpoint. Any page failure fails the whole traversal.
//   - Offset: advance an integer offset by a fixed page size while "next" is truthy.
//     Used by the course and program listings. A page failure or a cancelled
//     context ends the traversal with the records collected so far.
//
// Example usage:
//
//	res := pagination.Offset(ctx, 100, func(ctx context.Context, offset int) (*pagination.Page, error) {
//		return fetchCourses(ctx, offset)
//	})
//	courses := res.BestEffort()
//
// Traversals are sequential. Each call owns its Accumulator, nothing is shared
// between calls.
package pagination
