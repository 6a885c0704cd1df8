// ABOUTME: Loosely-typed row model shared by row sources and the tree engine
// ABOUTME: Value coercion helpers and decoding of rows into typed structs

package record

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
)

// Row is one record fetched from a row source, keyed by field name.
type Row map[string]any

// Get returns the raw value stored under field.
func (r Row) Get(field string) (any, bool) {
	v, ok := r[field]
	return v, ok
}

// String returns the value under field coerced to a string ("" when absent or nil).
func (r Row) String(field string) string {
	return StringValue(r[field])
}

// IsBlank reports whether field is absent, nil, or whitespace only.
func (r Row) IsBlank(field string) bool {
	return IsBlank(r[field])
}

// Clone returns a shallow copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// StringValue coerces an id-like value to its string form.
func StringValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case *string:
		if x == nil {
			return ""
		}
		return *x
	case []byte:
		return string(x)
	case int:
		return strconv.Itoa(x)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

// IsBlank reports whether v is nil or renders to a whitespace-only string.
func IsBlank(v any) bool {
	return strings.TrimSpace(StringValue(v)) == ""
}

// Decode copies a row into a typed struct. Struct fields are matched by
// their json tag, falling back to the field name.
func Decode[T any](r Row) (T, error) {
	var out T
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &out,
		TagName:          "json",
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeHookFunc(time.RFC3339Nano),
		),
	})
	if err != nil {
		return out, fmt.Errorf("record: build decoder: %w", err)
	}
	if err := dec.Decode(map[string]any(r)); err != nil {
		return out, fmt.Errorf("record: decode: %w", err)
	}
	return out, nil
}

// DecodeAll decodes every row, stopping at the first failure.
func DecodeAll[T any](rows []Row) ([]T, error) {
	out := make([]T, 0, len(rows))
	for i, r := range rows {
		v, err := Decode[T](r)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}
