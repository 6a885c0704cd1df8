// ABOUTME: Immutable fluent builder over the pagination engine
// ABOUTME: Every method returns a new value, so a partially configured builder can be shared

package paginate

import (
	"context"
	"maps"
	"slices"

	"github.com/rs/zerolog"

	"github.com/nainya/catalogtree/pkg/hierarchy"
	"github.com/nainya/catalogtree/pkg/query"
	"github.com/nainya/catalogtree/pkg/record"
	"github.com/nainya/catalogtree/pkg/tree"
)

// Builder assembles one pagination request.
type Builder[T any] struct {
	source   hierarchy.Source[T]
	accessor tree.Accessor[T]
	// accessorFor recomputes the accessor when field names change.
	accessorFor func(tree.FieldConfig) tree.Accessor[T]

	fields     tree.FieldConfig
	where      map[string]any
	orderBy    []query.Order
	search     *SearchConfig
	count      *query.CountJoin
	pagination Pagination
	isRoot     func(T) bool
	compare    func(a, b T) int

	observer tree.Observer
	rounds   hierarchy.RoundObserver
	logger   *zerolog.Logger
	maxDepth int
}

// NewBuilder starts a builder for typed records.
func NewBuilder[T any](src hierarchy.Source[T], acc tree.Accessor[T]) Builder[T] {
	return Builder[T]{
		source:     src,
		accessor:   acc,
		fields:     tree.DefaultFields(),
		pagination: Pagination{Page: DefaultPage},
	}
}

// NewRowBuilder starts a builder for loosely-typed rows whose id and parent
// id are read by field name.
func NewRowBuilder(src hierarchy.Source[record.Row]) Builder[record.Row] {
	b := NewBuilder(src, tree.RowAccessor(tree.DefaultFields()))
	b.accessorFor = tree.RowAccessor
	return b
}

// Fields sets the id, parent id and children names.
func (b Builder[T]) Fields(idField, parentIDField, childrenField string) Builder[T] {
	b.fields = tree.FieldConfig{
		IDField:       idField,
		ParentIDField: parentIDField,
		ChildrenField: childrenField,
	}.WithDefaults()
	if b.accessorFor != nil {
		b.accessor = b.accessorFor(b.fields)
	}
	return b
}

// Where replaces the base filters.
func (b Builder[T]) Where(conditions map[string]any) Builder[T] {
	b.where = maps.Clone(conditions)
	return b
}

// OrderBy replaces the ordering.
func (b Builder[T]) OrderBy(orders ...query.Order) Builder[T] {
	b.orderBy = slices.Clone(orders)
	return b
}

// Search sets the search conditions. loadAllChildren pulls every match's
// ancestors and subtree into the result.
func (b Builder[T]) Search(conditions map[string]any, loadAllChildren bool) Builder[T] {
	b.search = &SearchConfig{
		Conditions:              maps.Clone(conditions),
		LoadAllChildrenOnSearch: loadAllChildren,
	}
	return b
}

// WithCount attaches a count-join; blank names take the defaults.
func (b Builder[T]) WithCount(cj query.CountJoin) Builder[T] {
	filled := cj.WithDefaults()
	b.count = &filled
	return b
}

// Paginate selects a page and limit. A limit of 0 returns every root.
func (b Builder[T]) Paginate(page, limit int) Builder[T] {
	b.pagination = Pagination{Page: page, Limit: limit}
	return b
}

// Page selects a page without a limit.
func (b Builder[T]) Page(page int) Builder[T] {
	return b.Paginate(page, 0)
}

// All returns every root in one page.
func (b Builder[T]) All() Builder[T] {
	return b.Paginate(DefaultPage, 0)
}

// RootCondition overrides the root predicate used during assembly.
func (b Builder[T]) RootCondition(fn func(T) bool) Builder[T] {
	b.isRoot = fn
	return b
}

// Sort orders roots and siblings after assembly.
func (b Builder[T]) Sort(cmp func(a, b T) int) Builder[T] {
	b.compare = cmp
	return b
}

// Observer receives a diagnostic for every record dropped during assembly.
func (b Builder[T]) Observer(o tree.Observer) Builder[T] {
	b.observer = o
	return b
}

// Rounds is told about each ancestor and descendant traversal round.
func (b Builder[T]) Rounds(o hierarchy.RoundObserver) Builder[T] {
	b.rounds = o
	return b
}

// Logger replaces the engine's logger for this request.
func (b Builder[T]) Logger(l zerolog.Logger) Builder[T] {
	b.logger = &l
	return b
}

// MaxDepth caps traversal rounds; 0 means unlimited.
func (b Builder[T]) MaxDepth(n int) Builder[T] {
	b.maxDepth = n
	return b
}

// Request returns the request the builder would run.
func (b Builder[T]) Request() Request[T] {
	return Request[T]{
		Pagination: b.pagination,
		Search:     b.search,
		Count:      b.count,
		Query: QueryConfig{
			BaseWhere: b.where,
			OrderBy:   b.orderBy,
		},
		IsRoot:  b.isRoot,
		Compare: b.compare,
	}
}

// Build runs the orchestration. It fails fast with ErrMissingSource or
// ErrMissingAccessor before touching the store.
func (b Builder[T]) Build(ctx context.Context) (*Result[T], error) {
	if b.source == nil {
		return nil, ErrMissingSource
	}
	if !b.accessor.Valid() {
		return nil, ErrMissingAccessor
	}
	e := NewEngine(b.source, b.accessor, b.fields)
	e.Observer = b.observer
	e.Rounds = b.rounds
	e.MaxDepth = b.maxDepth
	if b.logger != nil {
		e.Logger = *b.logger
	}
	return e.Paginate(ctx, b.Request())
}
