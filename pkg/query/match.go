package query

import (
	"strings"

	"github.com/nainya/catalogtree/pkg/record"
)

// Getter looks a field up on one record.
type Getter func(field string) (any, bool)

// Matches evaluates the directive's filter and search against one record.
// Values are compared through their string form so ids of mixed Go types
// still compare equal.
func (q Query) Matches(get Getter) bool {
	for _, c := range q.Conditions {
		if !c.Matches(get) {
			return false
		}
	}
	if len(q.Search) == 0 {
		return true
	}
	for _, s := range q.Search {
		if s.Matches(get) {
			return true
		}
	}
	return false
}

// Matches evaluates one condition.
func (c Condition) Matches(get Getter) bool {
	v, ok := get(c.Field)
	switch c.Op {
	case OpIsNull:
		return !ok || isNil(v)
	case OpBlank:
		return !ok || isNil(v) || record.StringValue(v) == ""
	case OpEq:
		return ok && !isNil(v) && record.StringValue(v) == record.StringValue(c.Value)
	case OpIn:
		if !ok || isNil(v) {
			return false
		}
		s := record.StringValue(v)
		for _, want := range c.Values {
			if s == record.StringValue(want) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// Matches evaluates one search term.
func (s SearchTerm) Matches(get Getter) bool {
	v, ok := get(s.Field)
	if !ok || isNil(v) {
		return false
	}
	if s.Exact {
		return record.StringValue(v) == record.StringValue(s.Value)
	}
	return strings.Contains(strings.ToLower(record.StringValue(v)), strings.ToLower(s.Pattern))
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	if p, ok := v.(*string); ok {
		return p == nil
	}
	return false
}
