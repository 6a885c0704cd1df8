// ABOUTME: Tree pagination orchestration over a row source
// ABOUTME: Plain root paging with on-demand descendants, or search expanded to full structural context

package paginate

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/nainya/catalogtree/pkg/hierarchy"
	"github.com/nainya/catalogtree/pkg/normalize"
	"github.com/nainya/catalogtree/pkg/query"
	"github.com/nainya/catalogtree/pkg/record"
	"github.com/nainya/catalogtree/pkg/tree"
)

// Engine paginates a forest by root node, delivering each returned root's
// full subtree.
type Engine[T any] struct {
	Source   hierarchy.Source[T]
	Accessor tree.Accessor[T]
	Fields   tree.FieldConfig

	// Observer receives assembly diagnostics (dropped orphans).
	Observer tree.Observer
	// Rounds receives traversal round notifications.
	Rounds hierarchy.RoundObserver
	Logger zerolog.Logger

	MaxDepth    int
	BatchSize   int
	Concurrency int
}

// NewEngine creates an engine with default traversal settings.
func NewEngine[T any](src hierarchy.Source[T], acc tree.Accessor[T], fields tree.FieldConfig) *Engine[T] {
	return &Engine[T]{
		Source:      src,
		Accessor:    acc,
		Fields:      fields.WithDefaults(),
		Logger:      zerolog.Nop(),
		BatchSize:   hierarchy.DefaultBatchSize,
		Concurrency: hierarchy.DefaultConcurrency,
	}
}

// Paginate runs one request. With active search conditions and
// LoadAllChildrenOnSearch it expands every match to its ancestors and
// subtree, then pages the resulting roots in memory. Otherwise it pages root
// rows in the store and loads descendants for the returned roots only.
//
// When a walk exceeds MaxDepth, the result assembled from the records
// gathered so far is returned together with hierarchy.ErrDepthLimit.
func (e *Engine[T]) Paginate(ctx context.Context, req Request[T]) (*Result[T], error) {
	if e.Source == nil {
		return nil, ErrMissingSource
	}
	if !e.Accessor.Valid() {
		return nil, ErrMissingAccessor
	}
	p := req.Pagination.Normalize()
	searching := req.Search.Active()

	e.Logger.Debug().
		Int("page", p.Page).
		Int("limit", p.Limit).
		Bool("search", searching).
		Msg("paginate tree")

	if searching && req.Search.LoadAllChildrenOnSearch {
		return e.searchWithContext(ctx, req, p)
	}
	return e.pageRoots(ctx, req, p)
}

func (e *Engine[T]) walker(req Request[T]) *hierarchy.Walker[T] {
	w := hierarchy.NewWalker(e.Source, e.Accessor, e.Fields)
	w.BaseWhere = req.Query.BaseWhere
	w.CountJoin = req.Count
	w.MaxDepth = e.MaxDepth
	w.BatchSize = e.BatchSize
	w.Concurrency = e.Concurrency
	w.Observer = e.Rounds
	w.Logger = e.Logger
	return w
}

func (e *Engine[T]) build(items []T, req Request[T]) []*tree.Node[T] {
	return tree.Build(items, e.Accessor, tree.Options[T]{
		Fields:   e.Fields,
		IsRoot:   req.IsRoot,
		Compare:  req.Compare,
		Observer: e.Observer,
	})
}

// rootQuery selects root rows matching the base filters, plus the search
// terms when search is not expanded to structural context.
func (e *Engine[T]) rootQuery(req Request[T]) *query.Builder {
	fields := e.Fields.WithDefaults()
	qb := query.NewBuilder().
		IDField(fields.IDField).
		Filters(req.Query.BaseWhere).
		WhereBlank(fields.ParentIDField)
	if req.Search.Active() {
		qb = qb.Search(req.Search.Conditions)
	}
	return qb
}

func (e *Engine[T]) pageRoots(ctx context.Context, req Request[T], p Pagination) (*Result[T], error) {
	fields := e.Fields.WithDefaults()

	total, err := e.Source.FetchCount(ctx, e.rootQuery(req).Build())
	if err != nil {
		return nil, err
	}
	e.Logger.Debug().Int("total_roots", total).Msg("counted root records")
	if total == 0 {
		return emptyResult[T](p), nil
	}

	if p.Unlimited() {
		roots, err := e.Source.FetchMany(ctx, e.rootQuery(req).
			WithCount(req.Count).
			OrderBy(req.Query.OrderBy...).
			Build())
		if err != nil {
			return nil, err
		}
		forest, err := e.withDescendants(ctx, req, roots)
		if !partial(err) {
			return nil, err
		}
		return &Result[T]{
			Data:       forest,
			Total:      total,
			Page:       1,
			Limit:      total,
			TotalPages: TotalPages(total, 0),
		}, err
	}

	rootIDs, err := e.Source.FetchIDs(ctx, e.rootQuery(req).
		OrderBy(req.Query.OrderBy...).
		Page(p.Page, p.Limit).
		IDsOnly(fields.IDField).
		Build())
	if err != nil {
		return nil, err
	}
	e.Logger.Debug().Int("root_ids", len(rootIDs)).Int("page", p.Page).Msg("fetched root ids for page")

	result := &Result[T]{
		Data:       []*tree.Node[T]{},
		Total:      total,
		Page:       p.Page,
		Limit:      p.Limit,
		TotalPages: TotalPages(total, p.Limit),
	}
	if len(rootIDs) == 0 {
		return result, nil
	}

	roots, err := e.Source.FetchMany(ctx, query.NewBuilder().
		IDField(fields.IDField).
		WhereIn(fields.IDField, rootIDs).
		WithCount(req.Count).
		OrderBy(req.Query.OrderBy...).
		Build())
	if err != nil {
		return nil, err
	}
	forest, depthErr := e.withDescendants(ctx, req, roots)
	if !partial(depthErr) {
		return nil, depthErr
	}

	// The IN fetch does not preserve page order; restore it from rootIDs.
	byID := make(map[string]*tree.Node[T], len(forest))
	for _, n := range forest {
		byID[e.Accessor.ID(n.Record)] = n
	}
	for _, id := range rootIDs {
		if n, ok := byID[id]; ok {
			result.Data = append(result.Data, n)
		}
	}
	return result, depthErr
}

// withDescendants loads the full subtree of roots and assembles the forest.
func (e *Engine[T]) withDescendants(ctx context.Context, req Request[T], roots []T) ([]*tree.Node[T], error) {
	if len(roots) == 0 {
		return []*tree.Node[T]{}, nil
	}
	descendants, err := e.walker(req).Descendants(ctx, normalize.ExtractIDs(roots, e.Accessor.ID))
	if !partial(err) {
		return nil, err
	}
	e.Logger.Debug().
		Int("roots", len(roots)).
		Int("descendants", len(descendants)).
		Msg("assembling page forest")
	return e.build(normalize.Merge(roots, descendants), req), err
}

func (e *Engine[T]) searchWithContext(ctx context.Context, req Request[T], p Pagination) (*Result[T], error) {
	fields := e.Fields.WithDefaults()

	matches, err := e.Source.FetchMany(ctx, query.NewBuilder().
		IDField(fields.IDField).
		Filters(req.Query.BaseWhere).
		Search(req.Search.Conditions).
		WithCount(req.Count).
		OrderBy(req.Query.OrderBy...).
		Build())
	if err != nil {
		return nil, err
	}
	e.Logger.Debug().Int("matches", len(matches)).Msg("search matched records")
	if len(matches) == 0 {
		return emptyResult[T](p), nil
	}

	related, depthErr := e.walker(req).AllRelated(ctx, normalize.ExtractIDs(matches, e.Accessor.ID))
	if !partial(depthErr) {
		return nil, depthErr
	}
	unique := normalize.RemoveDuplicates(normalize.Merge(matches, related), e.Accessor.ID)

	forest := e.build(unique, req)
	roots := make([]*tree.Node[T], 0, len(forest))
	for _, n := range forest {
		if record.IsBlank(e.Accessor.ParentID(n.Record)) {
			roots = append(roots, n)
		}
	}
	e.Logger.Debug().Int("roots", len(roots)).Int("records", len(unique)).Msg("search forest assembled")
	return sliceRoots(roots, p), depthErr
}

// partial reports whether err still allows a result: nil or a depth limit.
func partial(err error) bool {
	return err == nil || errors.Is(err, hierarchy.ErrDepthLimit)
}
