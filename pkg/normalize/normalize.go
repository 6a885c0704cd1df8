// ABOUTME: Reshapes raw fetch results into record candidates
// ABOUTME: Prefix stripping, count coercion, dedup, merge, validity and grouping helpers

package normalize

import (
	"strconv"
	"strings"

	"github.com/nainya/catalogtree/pkg/query"
	"github.com/nainya/catalogtree/pkg/record"
)

// DefaultPrefix marks primary-entity columns in count-joined raw rows.
const DefaultPrefix = "entity_"

// ProcessRaw flattens count-joined rows: prefixed columns lose the prefix and
// are converted to camelCase, the count column is parsed as an int (0 when
// unparseable), and every other column is discarded. Without a count-join the
// rows are returned unchanged.
func ProcessRaw(rows []record.Row, cj *query.CountJoin, prefix string) []record.Row {
	if cj == nil {
		return rows
	}
	if prefix == "" {
		prefix = DefaultPrefix
	}
	countField := cj.WithDefaults().CountField

	out := make([]record.Row, len(rows))
	for i, raw := range rows {
		processed := make(record.Row, len(raw))
		for key, v := range raw {
			switch {
			case strings.HasPrefix(key, prefix):
				processed[ToCamel(strings.TrimPrefix(key, prefix))] = v
			case key == countField:
				processed[countField] = ParseCount(v)
			}
		}
		out[i] = processed
	}
	return out
}

// ParseCount converts an aggregate column value to an int, defaulting to 0.
func ParseCount(v any) int {
	switch x := v.(type) {
	case int:
		return x
	case int64:
		return int(x)
	case int32:
		return int(x)
	case float64:
		return int(x)
	}
	s := strings.TrimSpace(record.StringValue(v))
	end := 0
	for end < len(s) && (s[end] >= '0' && s[end] <= '9' || end == 0 && s[end] == '-') {
		end++
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}

// RemoveDuplicates keeps the first record seen per id, preserving order.
func RemoveDuplicates[T any](items []T, id func(T) string) []T {
	seen := make(map[string]struct{}, len(items))
	out := make([]T, 0, len(items))
	for _, item := range items {
		key := id(item)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, item)
	}
	return out
}

// Merge concatenates result sets.
func Merge[T any](sets ...[]T) []T {
	n := 0
	for _, s := range sets {
		n += len(s)
	}
	out := make([]T, 0, n)
	for _, s := range sets {
		out = append(out, s...)
	}
	return out
}

// FilterValid drops records whose id is blank.
func FilterValid[T any](items []T, id func(T) string) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if !record.IsBlank(id(item)) {
			out = append(out, item)
		}
	}
	return out
}

// ExtractIDs maps records to their ids, dropping blanks.
func ExtractIDs[T any](items []T, id func(T) string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s := id(item); !record.IsBlank(s) {
			out = append(out, s)
		}
	}
	return out
}

// GroupBy collects records by key, preserving input order inside each group.
func GroupBy[T any](items []T, key func(T) string) map[string][]T {
	groups := make(map[string][]T)
	for _, item := range items {
		k := key(item)
		groups[k] = append(groups[k], item)
	}
	return groups
}
