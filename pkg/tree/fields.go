// ABOUTME: Field-name configuration and typed accessors for adjacency-list records
// ABOUTME: Lets one engine serve any entity shape that carries an id and a parent id

package tree

import "github.com/nainya/catalogtree/pkg/record"

// Default field names used when a FieldConfig leaves one blank.
const (
	DefaultIDField       = "id"
	DefaultParentIDField = "parentId"
	DefaultChildrenField = "children"
)

// FieldConfig names the three distinguished attributes of a record.
type FieldConfig struct {
	IDField       string `mapstructure:"id_field"`
	ParentIDField string `mapstructure:"parent_id_field"`
	ChildrenField string `mapstructure:"children_field"`
}

// DefaultFields returns {id, parentId, children}.
func DefaultFields() FieldConfig {
	return FieldConfig{
		IDField:       DefaultIDField,
		ParentIDField: DefaultParentIDField,
		ChildrenField: DefaultChildrenField,
	}
}

// WithDefaults fills every blank name with its default.
func (fc FieldConfig) WithDefaults() FieldConfig {
	if fc.IDField == "" {
		fc.IDField = DefaultIDField
	}
	if fc.ParentIDField == "" {
		fc.ParentIDField = DefaultParentIDField
	}
	if fc.ChildrenField == "" {
		fc.ChildrenField = DefaultChildrenField
	}
	return fc
}

// Accessor extracts the id and parent id of a record. ParentID returns ""
// for records without a parent.
type Accessor[T any] struct {
	ID       func(T) string
	ParentID func(T) string
}

// Valid reports whether both accessor functions are set.
func (a Accessor[T]) Valid() bool {
	return a.ID != nil && a.ParentID != nil
}

// RowAccessor reads ids out of record.Row values using the configured field names.
func RowAccessor(fc FieldConfig) Accessor[record.Row] {
	fc = fc.WithDefaults()
	return Accessor[record.Row]{
		ID:       func(r record.Row) string { return r.String(fc.IDField) },
		ParentID: func(r record.Row) string { return r.String(fc.ParentIDField) },
	}
}

// HasNoParent is the default root predicate: parent id nil, absent or empty.
func HasNoParent[T any](acc Accessor[T]) func(T) bool {
	return func(item T) bool {
		return record.IsBlank(acc.ParentID(item))
	}
}
