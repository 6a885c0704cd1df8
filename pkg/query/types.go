// ABOUTME: Row-fetch directive types: filters, search terms, ordering, count-join
// ABOUTME: A Query describes what to fetch; row sources decide how to execute it

package query

// Op is the comparison applied by a Condition.
type Op int

const (
	// OpEq matches field = value.
	OpEq Op = iota
	// OpIsNull matches field IS NULL.
	OpIsNull
	// OpBlank matches field IS NULL or field = ''.
	OpBlank
	// OpIn matches field IN (values...). An empty list matches nothing.
	OpIn
)

func (o Op) String() string {
	switch o {
	case OpEq:
		return "="
	case OpIsNull:
		return "IS NULL"
	case OpBlank:
		return "IS BLANK"
	case OpIn:
		return "IN"
	default:
		return "?"
	}
}

// Condition is one AND-ed predicate.
type Condition struct {
	Field  string
	Op     Op
	Value  any
	Values []any
}

// Eq builds an equality condition; a nil value becomes IS NULL.
func Eq(field string, value any) Condition {
	if value == nil {
		return IsNull(field)
	}
	return Condition{Field: field, Op: OpEq, Value: value}
}

// IsNull builds a field IS NULL condition.
func IsNull(field string) Condition {
	return Condition{Field: field, Op: OpIsNull}
}

// Blank builds a condition matching NULL or empty-string fields.
func Blank(field string) Condition {
	return Condition{Field: field, Op: OpBlank}
}

// In builds a field IN (...) condition over string ids.
func In(field string, ids []string) Condition {
	values := make([]any, len(ids))
	for i, id := range ids {
		values[i] = id
	}
	return Condition{Field: field, Op: OpIn, Values: values}
}

// SearchTerm is one OR-ed search fragment.
type SearchTerm struct {
	Field string
	// Pattern is the trimmed substring matched case-insensitively.
	Pattern string
	// Exact switches the term to equality against Value.
	Exact bool
	Value any
}

// Exact wraps a search value that must match by equality instead of substring.
type Exact struct {
	Value any
}

// Direction is an ORDER BY direction.
type Direction string

const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

// Order is one ORDER BY term.
type Order struct {
	Field     string
	Direction Direction
}

// OrderBy builds an Order; anything other than Desc sorts ascending.
func OrderBy(field string, dir Direction) Order {
	if dir != Desc {
		dir = Asc
	}
	return Order{Field: field, Direction: dir}
}

// CountJoin attaches COUNT(DISTINCT relation.JoinField) per primary record
// under CountField, joining relation.ForeignKey to the primary id.
type CountJoin struct {
	CountField string `mapstructure:"count_field"`
	Relation   string `mapstructure:"relation"`
	JoinField  string `mapstructure:"join_field"`
	ForeignKey string `mapstructure:"foreign_key"`
}

// Defaults for the category/product count-join.
const (
	DefaultCountField = "productCount"
	DefaultRelation   = "categoryTinies"
	DefaultJoinField  = "productId"
	DefaultForeignKey = "categoryId"
)

// WithDefaults fills blank names with the category/product defaults.
func (c CountJoin) WithDefaults() CountJoin {
	if c.CountField == "" {
		c.CountField = DefaultCountField
	}
	if c.Relation == "" {
		c.Relation = DefaultRelation
	}
	if c.JoinField == "" {
		c.JoinField = DefaultJoinField
	}
	if c.ForeignKey == "" {
		c.ForeignKey = DefaultForeignKey
	}
	return c
}

// Query is a complete row-fetch directive.
type Query struct {
	// Conditions are combined with AND.
	Conditions []Condition
	// Search terms are combined with OR, and the group is AND-ed with Conditions.
	Search  []SearchTerm
	OrderBy []Order
	Offset  int
	// Limit of 0 means no limit.
	Limit     int
	CountJoin *CountJoin
	// IDsOnly restricts the projection to IDField.
	IDsOnly bool
	IDField string
}

// HasSearch reports whether the directive carries any search term.
func (q Query) HasSearch() bool {
	return len(q.Search) > 0
}

// Clone returns a deep copy safe to extend without touching q.
func (q Query) Clone() Query {
	out := q
	out.Conditions = append([]Condition(nil), q.Conditions...)
	out.Search = append([]SearchTerm(nil), q.Search...)
	out.OrderBy = append([]Order(nil), q.OrderBy...)
	if q.CountJoin != nil {
		cj := *q.CountJoin
		out.CountJoin = &cj
	}
	return out
}
