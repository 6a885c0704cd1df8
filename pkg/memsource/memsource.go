// ABOUTME: In-memory row source evaluating query directives over a slice
// ABOUTME: Backs tests and small embedded datasets; counts every call it serves

package memsource

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/nainya/catalogtree/pkg/query"
	"github.com/nainya/catalogtree/pkg/record"
)

// Getter reads one field of a record.
type Getter[T any] func(item T, field string) (any, bool)

// CountSetter stores a count-join result on a record and returns it.
type CountSetter[T any] func(item T, field string, n int) T

// Stats counts calls served by a Source.
type Stats struct {
	FetchMany  int
	FetchCount int
	FetchIDs   int
}

// Total is the number of round-trips served.
func (s Stats) Total() int {
	return s.FetchMany + s.FetchCount + s.FetchIDs
}

// Source implements hierarchy.Source over an in-memory slice. It is safe for
// concurrent use.
type Source[T any] struct {
	mu        sync.RWMutex
	items     []T
	relations map[string][]record.Row
	stats     Stats

	get      Getter[T]
	setCount CountSetter[T]
	// Err, when set, is returned by every call.
	Err error
}

// New creates a source over items.
func New[T any](items []T, get Getter[T], setCount CountSetter[T]) *Source[T] {
	return &Source[T]{
		items:     slices.Clone(items),
		relations: map[string][]record.Row{},
		get:       get,
		setCount:  setCount,
	}
}

// NewRows creates a source over loosely-typed rows.
func NewRows(rows []record.Row) *Source[record.Row] {
	return New(rows,
		func(r record.Row, field string) (any, bool) { return r.Get(field) },
		func(r record.Row, field string, n int) record.Row {
			out := r.Clone()
			out[field] = n
			return out
		})
}

// AddRelation registers join rows used by count-joins naming relation.
func (s *Source[T]) AddRelation(relation string, rows ...record.Row) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.relations[relation] = append(s.relations[relation], rows...)
}

// Insert appends items.
func (s *Source[T]) Insert(items ...T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, items...)
}

// Stats returns the calls served so far.
func (s *Source[T]) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

// ResetStats zeroes the call counters.
func (s *Source[T]) ResetStats() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats = Stats{}
}

func (s *Source[T]) FetchMany(ctx context.Context, q query.Query) ([]T, error) {
	if err := s.begin(ctx, func(st *Stats) { st.FetchMany++ }); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := s.page(q)
	if q.CountJoin == nil || s.setCount == nil {
		return items, nil
	}
	cj := q.CountJoin.WithDefaults()
	out := make([]T, len(items))
	for i, item := range items {
		out[i] = s.setCount(item, cj.CountField, s.count(cj, s.idOf(item, q.IDField)))
	}
	return out, nil
}

func (s *Source[T]) FetchCount(ctx context.Context, q query.Query) (int, error) {
	if err := s.begin(ctx, func(st *Stats) { st.FetchCount++ }); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.match(q)), nil
}

func (s *Source[T]) FetchIDs(ctx context.Context, q query.Query) ([]string, error) {
	if err := s.begin(ctx, func(st *Stats) { st.FetchIDs++ }); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := s.page(q)
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, s.idOf(item, q.IDField))
	}
	return ids, nil
}

func (s *Source[T]) begin(ctx context.Context, tick func(*Stats)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tick(&s.stats)
	return s.Err
}

func (s *Source[T]) match(q query.Query) []T {
	out := make([]T, 0)
	for _, item := range s.items {
		if q.Matches(func(field string) (any, bool) { return s.get(item, field) }) {
			out = append(out, item)
		}
	}
	return out
}

// page filters, orders and slices. Ordering is stable, so ties keep
// insertion order.
func (s *Source[T]) page(q query.Query) []T {
	items := s.match(q)
	if len(q.OrderBy) > 0 {
		slices.SortStableFunc(items, func(a, b T) int {
			for _, o := range q.OrderBy {
				av, _ := s.get(a, o.Field)
				bv, _ := s.get(b, o.Field)
				c := compareValues(av, bv)
				if o.Direction == query.Desc {
					c = -c
				}
				if c != 0 {
					return c
				}
			}
			return 0
		})
	}
	if q.Limit > 0 || q.Offset > 0 {
		items = query.Slice(items, q.Offset, q.Limit)
	}
	return items
}

func (s *Source[T]) idOf(item T, idField string) string {
	if idField == "" {
		idField = "id"
	}
	v, _ := s.get(item, idField)
	return record.StringValue(v)
}

// count emulates COUNT(DISTINCT relation.JoinField) grouped by ForeignKey.
func (s *Source[T]) count(cj query.CountJoin, id string) int {
	seen := map[string]bool{}
	for _, row := range s.relations[cj.Relation] {
		if row.String(cj.ForeignKey) != id || row.IsBlank(cj.JoinField) {
			continue
		}
		seen[row.String(cj.JoinField)] = true
	}
	return len(seen)
}

// compareValues orders nil first, numbers numerically, everything else by
// string form.
func compareValues(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	if af, ok := number(a); ok {
		if bf, ok := number(b); ok {
			return cmp.Compare(af, bf)
		}
	}
	return cmp.Compare(record.StringValue(a), record.StringValue(b))
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
