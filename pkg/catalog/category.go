// ABOUTME: Category model and its tree field mapping
// ABOUTME: Categories nest through parent_category_id and count products through category_tinies

package catalog

import (
	"strings"
	"time"

	"github.com/nainya/catalogtree/pkg/query"
	"github.com/nainya/catalogtree/pkg/tree"
)

// Table and relation names.
const (
	CategoriesTable     = "categories"
	ProductsTable       = "products"
	CategoryTiniesTable = "category_tinies"
)

// Category is one node of the category forest.
type Category struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	ParentCategoryID *string   `json:"parentCategoryId"`
	ProductCount     int       `json:"productCount"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// Product is a catalog item linked to categories.
type Product struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Fields is the category field mapping: children nest under subCategories.
var Fields = tree.FieldConfig{
	IDField:       "id",
	ParentIDField: "parentCategoryId",
	ChildrenField: "subCategories",
}

// Accessor reads category ids.
var Accessor = tree.Accessor[Category]{
	ID: func(c Category) string { return c.ID },
	ParentID: func(c Category) string {
		if c.ParentCategoryID == nil {
			return ""
		}
		return *c.ParentCategoryID
	},
}

// ProductCount counts distinct linked products per category.
var ProductCount = query.CountJoin{
	CountField: "productCount",
	Relation:   "categoryTinies",
	JoinField:  "productId",
	ForeignKey: "categoryId",
}

// IsTopLevel reports whether c has no parent.
func IsTopLevel(c Category) bool {
	return c.ParentCategoryID == nil || strings.TrimSpace(*c.ParentCategoryID) == ""
}

// ByName orders categories by name, then id.
func ByName(a, b Category) int {
	if c := strings.Compare(a.Name, b.Name); c != 0 {
		return c
	}
	return strings.Compare(a.ID, b.ID)
}
