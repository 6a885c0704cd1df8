// ABOUTME: Renders query directives to parameterized SQL
// ABOUTME: Identifiers are validated and quoted, every value travels as a bind argument

package sqlsource

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/nainya/catalogtree/pkg/normalize"
	"github.com/nainya/catalogtree/pkg/query"
)

var (
	// ErrUnknownColumn is returned when a directive names a field the table lacks.
	ErrUnknownColumn = errors.New("sqlsource: unknown column")
	// ErrInvalidIdentifier is returned for table or relation names that are not plain identifiers.
	ErrInvalidIdentifier = errors.New("sqlsource: invalid identifier")
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Dialect selects placeholder syntax.
type Dialect int

const (
	// SQLite uses ? placeholders.
	SQLite Dialect = iota
	// Postgres uses $n placeholders.
	Postgres
)

func (d Dialect) String() string {
	if d == Postgres {
		return "postgres"
	}
	return "sqlite"
}

// Placeholder returns the n-th (1-based) bind marker.
func (d Dialect) Placeholder(n int) string {
	if d == Postgres {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

const (
	entityAlias   = "e"
	relationAlias = "r"
)

func quote(ident string) string {
	return `"` + ident + `"`
}

// identifier converts a field or relation name to a validated snake_case
// identifier.
func identifier(name string) (string, error) {
	col := normalize.ToSnake(name)
	if !identRe.MatchString(col) {
		return "", fmt.Errorf("%w: %q", ErrInvalidIdentifier, name)
	}
	return col, nil
}

// statement accumulates SQL text and bind arguments.
type statement struct {
	dialect Dialect
	sql     strings.Builder
	args    []any
}

func (s *statement) bind(v any) string {
	s.args = append(s.args, v)
	return s.dialect.Placeholder(len(s.args))
}

// renderer turns a directive into SQL against one table.
type renderer struct {
	dialect Dialect
	table   string
	// columns lists the table's columns in declaration order.
	columns []string
	// resolve maps a field name to its column.
	resolve func(field string) (string, error)
	prefix  string
}

func (r *renderer) col(field string) (string, error) {
	c, err := r.resolve(field)
	if err != nil {
		return "", err
	}
	return entityAlias + "." + quote(c), nil
}

// where renders the WHERE clause, or nothing when q has no predicates.
func (r *renderer) where(st *statement, q query.Query) error {
	var parts []string
	for _, c := range q.Conditions {
		col, err := r.col(c.Field)
		if err != nil {
			return err
		}
		switch c.Op {
		case query.OpEq:
			parts = append(parts, col+" = "+st.bind(c.Value))
		case query.OpIsNull:
			parts = append(parts, col+" IS NULL")
		case query.OpBlank:
			parts = append(parts, "("+col+" IS NULL OR "+col+" = '')")
		case query.OpIn:
			if len(c.Values) == 0 {
				parts = append(parts, "1 = 0")
				continue
			}
			marks := make([]string, len(c.Values))
			for i, v := range c.Values {
				marks[i] = st.bind(v)
			}
			parts = append(parts, col+" IN ("+strings.Join(marks, ", ")+")")
		default:
			return fmt.Errorf("sqlsource: unsupported operator %s", c.Op)
		}
	}

	if len(q.Search) > 0 {
		ors := make([]string, 0, len(q.Search))
		for _, s := range q.Search {
			col, err := r.col(s.Field)
			if err != nil {
				return err
			}
			if s.Exact {
				ors = append(ors, col+" = "+st.bind(s.Value))
				continue
			}
			ors = append(ors, "LOWER(CAST("+col+" AS TEXT)) LIKE LOWER("+st.bind("%"+escapeLike(s.Pattern)+"%")+`) ESCAPE '\'`)
		}
		parts = append(parts, "("+strings.Join(ors, " OR ")+")")
	}

	if len(parts) > 0 {
		st.sql.WriteString(" WHERE ")
		st.sql.WriteString(strings.Join(parts, " AND "))
	}
	return nil
}

func (r *renderer) orderAndPage(st *statement, q query.Query) error {
	for i, o := range q.OrderBy {
		col, err := r.col(o.Field)
		if err != nil {
			return err
		}
		if i == 0 {
			st.sql.WriteString(" ORDER BY ")
		} else {
			st.sql.WriteString(", ")
		}
		st.sql.WriteString(col + " " + string(o.Direction))
	}
	if q.Limit > 0 {
		fmt.Fprintf(&st.sql, " LIMIT %d", q.Limit)
		if q.Offset > 0 {
			fmt.Fprintf(&st.sql, " OFFSET %d", q.Offset)
		}
	}
	return nil
}

func (r *renderer) from(st *statement) {
	st.sql.WriteString(" FROM " + quote(r.table) + " " + entityAlias)
}

// selectRows renders a row fetch. With a count-join, entity columns are
// aliased with the raw prefix and the aggregate is added under CountField.
func (r *renderer) selectRows(q query.Query) (*statement, error) {
	st := &statement{dialect: r.dialect}
	idCol, err := r.col(idFieldOf(q))
	if err != nil {
		return nil, err
	}

	if q.CountJoin == nil {
		st.sql.WriteString("SELECT ")
		if q.IDsOnly {
			st.sql.WriteString(idCol)
		} else {
			st.sql.WriteString(entityAlias + ".*")
		}
		r.from(st)
		if err := r.where(st, q); err != nil {
			return nil, err
		}
		return st, r.orderAndPage(st, q)
	}

	cj := q.CountJoin.WithDefaults()
	relation, err := identifier(cj.Relation)
	if err != nil {
		return nil, err
	}
	joinCol, err := identifier(cj.JoinField)
	if err != nil {
		return nil, err
	}
	fkCol, err := identifier(cj.ForeignKey)
	if err != nil {
		return nil, err
	}
	if !identRe.MatchString(cj.CountField) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidIdentifier, cj.CountField)
	}

	selected := make([]string, 0, len(r.columns)+1)
	grouped := make([]string, 0, len(r.columns))
	for _, c := range r.columns {
		qualified := entityAlias + "." + quote(c)
		selected = append(selected, qualified+" AS "+quote(r.prefix+c))
		grouped = append(grouped, qualified)
	}
	selected = append(selected, fmt.Sprintf("COUNT(DISTINCT %s.%s) AS %s", relationAlias, quote(joinCol), quote(cj.CountField)))

	st.sql.WriteString("SELECT " + strings.Join(selected, ", "))
	r.from(st)
	fmt.Fprintf(&st.sql, " LEFT JOIN %s %s ON %s.%s = %s", quote(relation), relationAlias, relationAlias, quote(fkCol), idCol)
	if err := r.where(st, q); err != nil {
		return nil, err
	}
	st.sql.WriteString(" GROUP BY " + strings.Join(grouped, ", "))
	return st, r.orderAndPage(st, q)
}

// selectCount renders COUNT(*) over the directive's predicates.
func (r *renderer) selectCount(q query.Query) (*statement, error) {
	st := &statement{dialect: r.dialect}
	st.sql.WriteString("SELECT COUNT(*)")
	r.from(st)
	if err := r.where(st, q); err != nil {
		return nil, err
	}
	return st, nil
}

func idFieldOf(q query.Query) string {
	if q.IDField == "" {
		return "id"
	}
	return q.IDField
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
