// ABOUTME: One-call entry points over the pagination engine
// ABOUTME: Pages an already-fetched flat result or runs the full store-backed orchestration

package paginate

import (
	"context"

	"github.com/nainya/catalogtree/pkg/hierarchy"
	"github.com/nainya/catalogtree/pkg/query"
	"github.com/nainya/catalogtree/pkg/record"
	"github.com/nainya/catalogtree/pkg/tree"
)

// FromFlat assembles an already-fetched flat row set and pages its roots in
// memory. Only nodes whose parent id is blank count as roots.
func FromFlat[T any](rows []T, acc tree.Accessor[T], p Pagination, opts tree.Options[T]) *Result[T] {
	forest := tree.Build(rows, acc, opts)
	roots := make([]*tree.Node[T], 0, len(forest))
	for _, n := range forest {
		if record.IsBlank(acc.ParentID(n.Record)) {
			roots = append(roots, n)
		}
	}
	return sliceRoots(roots, p.Normalize())
}

// AdvancedConfig is the flat configuration accepted by Advanced.
type AdvancedConfig struct {
	Fields    tree.FieldConfig
	BaseWhere map[string]any
	OrderBy   []query.Order

	SearchConditions map[string]any
	// LoadAllChildrenOnSearch defaults to true when nil.
	LoadAllChildrenOnSearch *bool

	IncludeCount bool
	// Count overrides the count-join names; blanks take the defaults.
	Count query.CountJoin
}

// Request converts the config into an engine request.
func (c AdvancedConfig) Request(p Pagination) Request[record.Row] {
	req := Request[record.Row]{
		Pagination: p,
		Query: QueryConfig{
			BaseWhere: c.BaseWhere,
			OrderBy:   c.OrderBy,
		},
	}
	if c.IncludeCount {
		cj := c.Count.WithDefaults()
		req.Count = &cj
	}
	if c.SearchConditions != nil {
		loadAll := true
		if c.LoadAllChildrenOnSearch != nil {
			loadAll = *c.LoadAllChildrenOnSearch
		}
		req.Search = &SearchConfig{
			Conditions:              c.SearchConditions,
			LoadAllChildrenOnSearch: loadAll,
		}
	}
	return req
}

// Advanced runs the full orchestration over loosely-typed rows.
func Advanced(ctx context.Context, src hierarchy.Source[record.Row], cfg AdvancedConfig, p Pagination) (*Result[record.Row], error) {
	fields := cfg.Fields.WithDefaults()
	e := NewEngine(src, tree.RowAccessor(fields), fields)
	return e.Paginate(ctx, cfg.Request(p))
}
