// ABOUTME: Category persistence: schema bootstrap and write operations
// ABOUTME: Reads go through the tree engine; this file creates, moves, links and deletes rows

package catalog

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nainya/catalogtree/pkg/hierarchy"
	"github.com/nainya/catalogtree/pkg/sqlsource"
)

//go:embed schema.sql
var schema string

var (
	// ErrNotFound is returned when a referenced category or product does not exist.
	ErrNotFound = errors.New("catalog: not found")
	// ErrInvalidName is returned for blank names.
	ErrInvalidName = errors.New("catalog: name is required")
	// ErrCycle is returned when a move would place a category under itself
	// or one of its descendants.
	ErrCycle = errors.New("catalog: move would create a cycle")
)

// Store writes catalog rows.
type Store struct {
	db      *sql.DB
	dialect sqlsource.Dialect
	now     func() time.Time
}

// NewStore wraps an open database.
func NewStore(db *sql.DB, dialect sqlsource.Dialect) *Store {
	return &Store{db: db, dialect: dialect, now: time.Now}
}

// DB returns the underlying handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Migrate creates the catalog tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("catalog: migrate: %w", err)
		}
	}
	return nil
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format(time.RFC3339Nano)
}

// exec runs a statement whose ? markers are rewritten for the dialect.
func (s *Store) exec(ctx context.Context, stmt string, args ...any) error {
	_, err := s.db.ExecContext(ctx, s.rebind(stmt), args...)
	return err
}

func (s *Store) rebind(stmt string) string {
	if s.dialect != sqlsource.Postgres {
		return stmt
	}
	var b strings.Builder
	n := 0
	for _, r := range stmt {
		if r == '?' {
			n++
			b.WriteString(s.dialect.Placeholder(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *Store) exists(ctx context.Context, table, id string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, s.rebind("SELECT COUNT(*) FROM "+table+" WHERE id = ?"), id).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("catalog: lookup %s: %w", table, err)
	}
	return n > 0, nil
}

// CreateCategory inserts a category under parentID, or at the top level when
// parentID is nil or blank.
func (s *Store) CreateCategory(ctx context.Context, name string, parentID *string) (Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Category{}, ErrInvalidName
	}
	if parentID != nil && strings.TrimSpace(*parentID) == "" {
		parentID = nil
	}
	if parentID != nil {
		ok, err := s.exists(ctx, CategoriesTable, *parentID)
		if err != nil {
			return Category{}, err
		}
		if !ok {
			return Category{}, fmt.Errorf("%w: parent category %s", ErrNotFound, *parentID)
		}
	}

	ts := s.timestamp()
	c := Category{ID: uuid.NewString(), Name: name, ParentCategoryID: parentID}
	err := s.exec(ctx,
		"INSERT INTO categories (id, name, parent_category_id, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
		c.ID, c.Name, parentID, ts, ts)
	if err != nil {
		return Category{}, fmt.Errorf("catalog: insert category: %w", err)
	}
	c.CreatedAt, _ = time.Parse(time.RFC3339Nano, ts)
	c.UpdatedAt = c.CreatedAt
	return c, nil
}

// CreateProduct inserts a product.
func (s *Store) CreateProduct(ctx context.Context, name string) (Product, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Product{}, ErrInvalidName
	}
	ts := s.timestamp()
	p := Product{ID: uuid.NewString(), Name: name}
	err := s.exec(ctx,
		"INSERT INTO products (id, name, created_at, updated_at) VALUES (?, ?, ?, ?)",
		p.ID, p.Name, ts, ts)
	if err != nil {
		return Product{}, fmt.Errorf("catalog: insert product: %w", err)
	}
	p.CreatedAt, _ = time.Parse(time.RFC3339Nano, ts)
	p.UpdatedAt = p.CreatedAt
	return p, nil
}

// LinkProduct attaches a product to a category.
func (s *Store) LinkProduct(ctx context.Context, categoryID, productID string) error {
	for table, id := range map[string]string{CategoriesTable: categoryID, ProductsTable: productID} {
		ok, err := s.exists(ctx, table, id)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %s %s", ErrNotFound, table, id)
		}
	}
	ts := s.timestamp()
	err := s.exec(ctx,
		"INSERT INTO category_tinies (id, category_id, product_id, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
		uuid.NewString(), categoryID, productID, ts, ts)
	if err != nil {
		return fmt.Errorf("catalog: link product: %w", err)
	}
	return nil
}

// MoveCategory re-parents a category; a nil parent makes it top-level.
func (s *Store) MoveCategory(ctx context.Context, id string, parentID *string) error {
	ok, err := s.exists(ctx, CategoriesTable, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: category %s", ErrNotFound, id)
	}
	if parentID != nil {
		ok, err := s.exists(ctx, CategoriesTable, *parentID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: parent category %s", ErrNotFound, *parentID)
		}
		if err := s.checkAcyclic(ctx, id, *parentID); err != nil {
			return err
		}
	}
	err = s.exec(ctx,
		"UPDATE categories SET parent_category_id = ?, updated_at = ? WHERE id = ?",
		parentID, s.timestamp(), id)
	if err != nil {
		return fmt.Errorf("catalog: move category: %w", err)
	}
	return nil
}

// checkAcyclic fails with ErrCycle when id is parentID or one of its ancestors.
func (s *Store) checkAcyclic(ctx context.Context, id, parentID string) error {
	if id == parentID {
		return fmt.Errorf("%w: %s under itself", ErrCycle, id)
	}
	src := sqlsource.New[Category](s.db, CategoriesTable, sqlsource.WithDialect(s.dialect))
	ancestors, err := hierarchy.NewWalker(src, Accessor, Fields).Ancestors(ctx, []string{parentID})
	if err != nil {
		return fmt.Errorf("catalog: load ancestors: %w", err)
	}
	for _, a := range ancestors {
		if a.ID == id {
			return fmt.Errorf("%w: %s is an ancestor of %s", ErrCycle, id, parentID)
		}
	}
	return nil
}

// DeleteCategory removes a category. Its children move to the top level and
// its product links are removed with it.
func (s *Store) DeleteCategory(ctx context.Context, id string) error {
	ok, err := s.exists(ctx, CategoriesTable, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: category %s", ErrNotFound, id)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("catalog: delete category: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []struct {
		sql  string
		args []any
	}{
		{"UPDATE categories SET parent_category_id = NULL, updated_at = ? WHERE parent_category_id = ?", []any{s.timestamp(), id}},
		{"DELETE FROM category_tinies WHERE category_id = ?", []any{id}},
		{"DELETE FROM categories WHERE id = ?", []any{id}},
	} {
		if _, err := tx.ExecContext(ctx, s.rebind(stmt.sql), stmt.args...); err != nil {
			return fmt.Errorf("catalog: delete category: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("catalog: delete category: %w", err)
	}
	return nil
}
