// ABOUTME: Category read service built on the tree pagination engine
// ABOUTME: Paged category forests with product counts, and single-category trees

package catalog

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/rs/zerolog"

	"github.com/nainya/catalogtree/pkg/hierarchy"
	"github.com/nainya/catalogtree/pkg/paginate"
	"github.com/nainya/catalogtree/pkg/query"
	"github.com/nainya/catalogtree/pkg/sqlsource"
	"github.com/nainya/catalogtree/pkg/tree"
)

// ListParams selects one page of the category forest.
type ListParams struct {
	// TextSearch matches category names case-insensitively. Matches bring
	// their ancestors and subtrees along.
	TextSearch string
	Page       int
	Limit      int
	// Filters are equality filters on category fields.
	Filters map[string]any
}

// Options tunes traversal.
type Options struct {
	MaxDepth    int
	BatchSize   int
	Concurrency int
	Observer    tree.Observer
	Rounds      hierarchy.RoundObserver
	Logger      zerolog.Logger
}

// Service serves category trees from a SQL store.
type Service struct {
	source hierarchy.Source[Category]
	opts   Options
}

// NewService creates a service over the categories table of db.
func NewService(store *Store, opts Options, srcOpts ...sqlsource.Option) *Service {
	srcOpts = append([]sqlsource.Option{
		sqlsource.WithDialect(store.dialect),
		sqlsource.WithLogger(opts.Logger),
	}, srcOpts...)
	return &Service{
		source: sqlsource.New[Category](store.DB(), CategoriesTable, srcOpts...),
		opts:   opts,
	}
}

// NewServiceFromSource creates a service over any category row source.
func NewServiceFromSource(src hierarchy.Source[Category], opts Options) *Service {
	return &Service{source: src, opts: opts}
}

func (s *Service) engine() *paginate.Engine[Category] {
	e := paginate.NewEngine(s.source, Accessor, Fields)
	e.Observer = s.opts.Observer
	e.Rounds = s.opts.Rounds
	e.Logger = s.opts.Logger
	e.MaxDepth = s.opts.MaxDepth
	if s.opts.BatchSize > 0 {
		e.BatchSize = s.opts.BatchSize
	}
	if s.opts.Concurrency > 0 {
		e.Concurrency = s.opts.Concurrency
	}
	return e
}

func (s *Service) walker() *hierarchy.Walker[Category] {
	w := hierarchy.NewWalker(s.source, Accessor, Fields)
	w.MaxDepth = s.opts.MaxDepth
	w.Observer = s.opts.Rounds
	w.Logger = s.opts.Logger
	if s.opts.BatchSize > 0 {
		w.BatchSize = s.opts.BatchSize
	}
	if s.opts.Concurrency > 0 {
		w.Concurrency = s.opts.Concurrency
	}
	return w
}

// ListCategories returns one page of top-level categories ordered by name,
// each with its full subtree and product counts.
func (s *Service) ListCategories(ctx context.Context, p ListParams) (*paginate.Result[Category], error) {
	count := ProductCount
	req := paginate.Request[Category]{
		Pagination: paginate.Pagination{Page: p.Page, Limit: p.Limit},
		Count:      &count,
		Query: paginate.QueryConfig{
			BaseWhere: p.Filters,
			OrderBy:   []query.Order{query.OrderBy("name", query.Asc)},
		},
		IsRoot: IsTopLevel,
	}
	if text := strings.TrimSpace(p.TextSearch); text != "" {
		req.Search = &paginate.SearchConfig{
			Conditions:              map[string]any{"name": text},
			LoadAllChildrenOnSearch: true,
		}
	}

	res, err := s.engine().Paginate(ctx, req)
	if err != nil && !errors.Is(err, hierarchy.ErrDepthLimit) {
		return nil, fmt.Errorf("catalog: list categories: %w", err)
	}
	return res, err
}

// GetCategoryTree returns the whole tree containing id, rooted at its
// top-level ancestor.
func (s *Service) GetCategoryTree(ctx context.Context, id string) (*tree.Node[Category], error) {
	rootID, err := s.rootOf(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.GetCategorySubTree(ctx, rootID)
}

// HighlightedCategory is a category flagged when it is the one asked for.
type HighlightedCategory struct {
	Category
	IsTarget bool `json:"isTarget"`
}

// Highlight is the tree containing a category, with that category flagged.
type Highlight struct {
	Tree *tree.Node[HighlightedCategory] `json:"data"`
	// TargetPath lists ids from the top-level ancestor down to the target.
	TargetPath []string `json:"targetPath"`
}

// GetCategoryTreeWithHighlight returns the tree containing id with id marked
// as the target, plus the id path leading to it.
func (s *Service) GetCategoryTreeWithHighlight(ctx context.Context, id string) (*Highlight, error) {
	root, err := s.GetCategoryTree(ctx, id)
	if root == nil {
		return nil, err
	}
	forest := []*tree.Node[Category]{root}

	path := []string{}
	if tree.Find(forest, id, Accessor) != nil {
		path = tree.ParentIDs(tree.Flatten(forest), id, Accessor)
		slices.Reverse(path)
		path = append(path, id)
	}
	marked := tree.Map(forest, func(c Category) HighlightedCategory {
		return HighlightedCategory{Category: c, IsTarget: c.ID == id}
	})
	return &Highlight{Tree: marked[0], TargetPath: path}, err
}

// GetCategorySubTree returns id with its full subtree.
func (s *Service) GetCategorySubTree(ctx context.Context, id string) (*tree.Node[Category], error) {
	count := ProductCount
	top, err := s.source.FetchMany(ctx, query.NewBuilder().
		WhereIn(Fields.IDField, []string{id}).
		WithCount(&count).
		Build())
	if err != nil {
		return nil, fmt.Errorf("catalog: get category: %w", err)
	}
	if len(top) == 0 {
		return nil, fmt.Errorf("%w: category %s", ErrNotFound, id)
	}

	w := s.walker()
	w.CountJoin = &count
	descendants, err := w.Descendants(ctx, []string{id})
	if err != nil && !errors.Is(err, hierarchy.ErrDepthLimit) {
		return nil, fmt.Errorf("catalog: load subtree: %w", err)
	}

	forest := tree.Build(append(top[:1], descendants...), Accessor, tree.Options[Category]{
		Fields:   Fields,
		IsRoot:   func(c Category) bool { return c.ID == id },
		Compare:  ByName,
		Observer: s.opts.Observer,
	})
	if len(forest) == 0 {
		return nil, fmt.Errorf("%w: category %s", ErrNotFound, id)
	}
	return forest[0], err
}

// rootOf walks up from id to its top-level ancestor. On a parent cycle the
// farthest ancestor reached is used.
func (s *Service) rootOf(ctx context.Context, id string) (string, error) {
	self, err := s.source.FetchMany(ctx, query.NewBuilder().WhereIn(Fields.IDField, []string{id}).Build())
	if err != nil {
		return "", fmt.Errorf("catalog: get category: %w", err)
	}
	if len(self) == 0 {
		return "", fmt.Errorf("%w: category %s", ErrNotFound, id)
	}
	if IsTopLevel(self[0]) {
		return id, nil
	}

	ancestors, err := s.walker().Ancestors(ctx, []string{id})
	if err != nil && !errors.Is(err, hierarchy.ErrDepthLimit) {
		return "", fmt.Errorf("catalog: load ancestors: %w", err)
	}
	for _, a := range ancestors {
		if IsTopLevel(a) {
			return a.ID, nil
		}
	}
	if len(ancestors) > 0 {
		return ancestors[len(ancestors)-1].ID, nil
	}
	return id, nil
}
