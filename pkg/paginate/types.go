// ABOUTME: Request and result types for root-level tree pagination
// ABOUTME: Result is the wire contract serialized by API layers

package paginate

import (
	"errors"

	"github.com/nainya/catalogtree/pkg/query"
	"github.com/nainya/catalogtree/pkg/tree"
)

var (
	// ErrMissingSource is returned by Build when no row source was configured.
	ErrMissingSource = errors.New("paginate: row source is required")
	// ErrMissingAccessor is returned by Build when id accessors are missing.
	ErrMissingAccessor = errors.New("paginate: field accessor is required")
)

// DefaultPage is used when a request leaves the page unset.
const DefaultPage = 1

// Pagination selects a page of roots. A Limit of 0 or less returns every
// root as a single page.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// Unlimited reports whether every root should be returned.
func (p Pagination) Unlimited() bool {
	return p.Limit <= 0
}

// Normalize clamps the page to at least 1 and folds non-positive limits to 0.
func (p Pagination) Normalize() Pagination {
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	if p.Limit < 0 {
		p.Limit = 0
	}
	return p
}

// SearchConfig carries per-field search matchers (see query.ApplySearch).
type SearchConfig struct {
	Conditions map[string]any
	// LoadAllChildrenOnSearch pulls every match's ancestors and subtree into the result.
	LoadAllChildrenOnSearch bool
}

// Active reports whether the config has at least one usable condition.
func (s *SearchConfig) Active() bool {
	if s == nil || len(s.Conditions) == 0 {
		return false
	}
	return query.ApplySearch(query.Query{}, s.Conditions).HasSearch()
}

// QueryConfig holds base filters and ordering applied to every fetch.
type QueryConfig struct {
	BaseWhere map[string]any
	OrderBy   []query.Order
}

// Request is one pagination call.
type Request[T any] struct {
	Pagination Pagination
	Search     *SearchConfig
	Count      *query.CountJoin
	Query      QueryConfig

	// IsRoot overrides the default root predicate during assembly.
	IsRoot func(T) bool
	// Compare orders roots and siblings after assembly.
	Compare func(a, b T) int
}

// Result is one page of roots, each carrying its full subtree.
type Result[T any] struct {
	Data       []*tree.Node[T] `json:"data"`
	Total      int             `json:"total"`
	Page       int             `json:"page"`
	Limit      int             `json:"limit"`
	TotalPages int             `json:"totalPages"`
}

// TotalPages is ceil(total/limit); with no limit it is 1, or 0 when total is 0.
func TotalPages(total, limit int) int {
	if total <= 0 {
		return 0
	}
	if limit <= 0 {
		return 1
	}
	return (total + limit - 1) / limit
}

func emptyResult[T any](p Pagination) *Result[T] {
	return &Result[T]{
		Data:       []*tree.Node[T]{},
		Total:      0,
		Page:       p.Page,
		Limit:      p.Limit,
		TotalPages: 0,
	}
}

// sliceRoots paginates an already-assembled root list in memory.
func sliceRoots[T any](roots []*tree.Node[T], p Pagination) *Result[T] {
	total := len(roots)
	if p.Unlimited() {
		return &Result[T]{
			Data:       roots,
			Total:      total,
			Page:       1,
			Limit:      total,
			TotalPages: TotalPages(total, 0),
		}
	}
	return &Result[T]{
		Data:       query.Slice(roots, query.Offset(p.Page, p.Limit), p.Limit),
		Total:      total,
		Page:       p.Page,
		Limit:      p.Limit,
		TotalPages: TotalPages(total, p.Limit),
	}
}
