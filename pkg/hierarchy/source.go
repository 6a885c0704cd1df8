// ABOUTME: Row-source contract consumed by traversal and pagination
// ABOUTME: Implemented by the SQL and in-memory sources

package hierarchy

import (
	"context"

	"github.com/nainya/catalogtree/pkg/query"
)

// Source executes row-fetch directives against a backing store.
type Source[T any] interface {
	// FetchMany returns the records matching q, honouring order, offset,
	// limit and count-join.
	FetchMany(ctx context.Context, q query.Query) ([]T, error)
	// FetchCount returns how many records match q, ignoring offset and limit.
	FetchCount(ctx context.Context, q query.Query) (int, error)
	// FetchIDs returns the ids of the records matching q, in q's order.
	FetchIDs(ctx context.Context, q query.Query) ([]string, error)
}
