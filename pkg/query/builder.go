// ABOUTME: Directive assembly: fluent builder and Apply* helpers
// ABOUTME: Pure request shaping, nothing here executes a fetch

package query

import (
	"fmt"
	"sort"
	"strings"
)

// Builder provides a fluent interface for building a Query.
type Builder struct {
	query Query
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// From starts a builder from an existing directive.
func From(q Query) *Builder {
	return &Builder{query: q.Clone()}
}

// Where adds an equality condition (nil means IS NULL).
func (qb *Builder) Where(field string, value any) *Builder {
	qb.query.Conditions = append(qb.query.Conditions, Eq(field, value))
	return qb
}

// WhereIn adds a field IN (...) condition.
func (qb *Builder) WhereIn(field string, ids []string) *Builder {
	qb.query.Conditions = append(qb.query.Conditions, In(field, ids))
	return qb
}

// WhereBlank adds a NULL-or-empty condition.
func (qb *Builder) WhereBlank(field string) *Builder {
	qb.query.Conditions = append(qb.query.Conditions, Blank(field))
	return qb
}

// Filters adds one equality condition per map entry.
func (qb *Builder) Filters(filters map[string]any) *Builder {
	qb.query = ApplyWhere(qb.query, filters)
	return qb
}

// Search adds OR-ed search terms.
func (qb *Builder) Search(conditions map[string]any) *Builder {
	qb.query = ApplySearch(qb.query, conditions)
	return qb
}

// OrderBy appends ordering terms.
func (qb *Builder) OrderBy(orders ...Order) *Builder {
	qb.query = ApplyOrderBy(qb.query, orders...)
	return qb
}

// Page sets offset and limit from a 1-based page number.
func (qb *Builder) Page(page, limit int) *Builder {
	qb.query = ApplyPagination(qb.query, page, limit)
	return qb
}

// Limit sets the result limit.
func (qb *Builder) Limit(limit int) *Builder {
	qb.query.Limit = limit
	return qb
}

// Offset sets the result offset.
func (qb *Builder) Offset(offset int) *Builder {
	qb.query.Offset = offset
	return qb
}

// WithCount attaches a count-join.
func (qb *Builder) WithCount(cj *CountJoin) *Builder {
	qb.query = ApplyCountJoin(qb.query, cj)
	return qb
}

// IDsOnly restricts the projection to the id field.
func (qb *Builder) IDsOnly(idField string) *Builder {
	qb.query.IDsOnly = true
	qb.query.IDField = idField
	return qb
}

// IDField records the primary id field (used for grouping).
func (qb *Builder) IDField(idField string) *Builder {
	qb.query.IDField = idField
	return qb
}

// Build returns the constructed query.
func (qb *Builder) Build() Query {
	return qb.query.Clone()
}

// ApplyWhere appends one condition per filter entry, in key order. A nil
// value becomes IS NULL.
func ApplyWhere(q Query, filters map[string]any) Query {
	out := q.Clone()
	for _, field := range sortedKeys(filters) {
		out.Conditions = append(out.Conditions, Eq(field, filters[field]))
	}
	return out
}

// ApplySearch appends one search term per condition, in key order.
//
// A string value becomes a trimmed, case-insensitive substring match and is
// skipped when blank. An Exact value matches by equality. Any other value
// matches by equality too.
func ApplySearch(q Query, conditions map[string]any) Query {
	out := q.Clone()
	for _, field := range sortedKeys(conditions) {
		if term, ok := searchTerm(field, conditions[field]); ok {
			out.Search = append(out.Search, term)
		}
	}
	return out
}

func searchTerm(field string, value any) (SearchTerm, bool) {
	switch v := value.(type) {
	case nil:
		return SearchTerm{}, false
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return SearchTerm{}, false
		}
		return SearchTerm{Field: field, Pattern: trimmed}, true
	case Exact:
		if v.Value == nil {
			return SearchTerm{}, false
		}
		return SearchTerm{Field: field, Exact: true, Value: v.Value}, true
	case *Exact:
		if v == nil {
			return SearchTerm{}, false
		}
		return searchTerm(field, *v)
	default:
		return SearchTerm{Field: field, Exact: true, Value: v}, true
	}
}

// ApplyOrderBy appends ordering terms.
func ApplyOrderBy(q Query, orders ...Order) Query {
	out := q.Clone()
	for _, o := range orders {
		if o.Field == "" {
			continue
		}
		out.OrderBy = append(out.OrderBy, OrderBy(o.Field, o.Direction))
	}
	return out
}

// ApplyPagination sets offset = (page-1)*limit. Page is clamped to 1; a limit
// of 0 or less clears pagination.
func ApplyPagination(q Query, page, limit int) Query {
	out := q.Clone()
	if limit <= 0 {
		out.Offset, out.Limit = 0, 0
		return out
	}
	out.Offset = Offset(page, limit)
	out.Limit = limit
	return out
}

// ApplyCountJoin attaches cj with defaults filled in; nil removes any count-join.
func ApplyCountJoin(q Query, cj *CountJoin) Query {
	out := q.Clone()
	if cj == nil {
		out.CountJoin = nil
		return out
	}
	filled := cj.WithDefaults()
	out.CountJoin = &filled
	return out
}

// Offset converts a 1-based page to a row offset.
func Offset(page, limit int) int {
	if page < 1 {
		page = 1
	}
	return (page - 1) * limit
}

// Slice applies offset/limit pagination to an in-memory slice.
func Slice[T any](items []T, offset, limit int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}

// String renders the directive for diagnostics.
func (q Query) String() string {
	var b strings.Builder
	for i, c := range q.Conditions {
		if i > 0 {
			b.WriteString(" AND ")
		}
		switch c.Op {
		case OpIn:
			fmt.Fprintf(&b, "%s IN %v", c.Field, c.Values)
		case OpEq:
			fmt.Fprintf(&b, "%s = %v", c.Field, c.Value)
		default:
			fmt.Fprintf(&b, "%s %s", c.Field, c.Op)
		}
	}
	if len(q.Search) > 0 {
		if len(q.Conditions) > 0 {
			b.WriteString(" AND ")
		}
		b.WriteString("(")
		for i, s := range q.Search {
			if i > 0 {
				b.WriteString(" OR ")
			}
			if s.Exact {
				fmt.Fprintf(&b, "%s = %v", s.Field, s.Value)
			} else {
				fmt.Fprintf(&b, "%s ~ %q", s.Field, s.Pattern)
			}
		}
		b.WriteString(")")
	}
	for i, o := range q.OrderBy {
		if i == 0 {
			b.WriteString(" ORDER BY ")
		} else {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s %s", o.Field, o.Direction)
	}
	if q.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d OFFSET %d", q.Limit, q.Offset)
	}
	return b.String()
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
