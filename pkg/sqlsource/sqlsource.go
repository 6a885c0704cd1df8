// ABOUTME: database/sql row source for one table of adjacency-list records
// ABOUTME: Field names map to snake_case columns; count-joined rows pass through normalization

package sqlsource

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/nainya/catalogtree/pkg/normalize"
	"github.com/nainya/catalogtree/pkg/query"
	"github.com/nainya/catalogtree/pkg/record"
)

// QueryHook is told about every statement the source executes.
type QueryHook func(operation string, duration time.Duration, rows int, err error)

type config struct {
	dialect Dialect
	logger  zerolog.Logger
	hook    QueryHook
	prefix  string
}

// Option configures a Source.
type Option func(*config)

// WithDialect selects placeholder syntax; the default is SQLite.
func WithDialect(d Dialect) Option {
	return func(c *config) { c.dialect = d }
}

// WithLogger logs every statement at debug level.
func WithLogger(l zerolog.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithQueryHook installs a per-statement callback, typically for metrics.
func WithQueryHook(h QueryHook) Option {
	return func(c *config) { c.hook = h }
}

// WithRawPrefix overrides the alias prefix for entity columns in
// count-joined fetches.
func WithRawPrefix(p string) Option {
	return func(c *config) { c.prefix = p }
}

// Source implements hierarchy.Source over a SQL table.
type Source[T any] struct {
	db     *sql.DB
	table  string
	cfg    config
	decode func(record.Row) (T, error)

	mu      sync.Mutex
	loaded  bool
	columns []string
	byName  map[string]string
}

// New creates a source decoding rows into T by json tag.
func New[T any](db *sql.DB, table string, opts ...Option) *Source[T] {
	return newSource(db, table, record.Decode[T], opts)
}

// NewRows creates a source returning loosely-typed rows keyed by camelCase
// field name.
func NewRows(db *sql.DB, table string, opts ...Option) *Source[record.Row] {
	return newSource(db, table, func(r record.Row) (record.Row, error) { return r, nil }, opts)
}

func newSource[T any](db *sql.DB, table string, decode func(record.Row) (T, error), opts []Option) *Source[T] {
	cfg := config{
		logger: zerolog.Nop(),
		prefix: normalize.DefaultPrefix,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Source[T]{db: db, table: table, cfg: cfg, decode: decode}
}

// Columns returns the table's columns in declaration order.
func (s *Source[T]) Columns(ctx context.Context) ([]string, error) {
	if err := s.init(ctx); err != nil {
		return nil, err
	}
	return slices.Clone(s.columns), nil
}

// init discovers the table's columns. Only a successful discovery is kept;
// a failed one is retried by the next call.
func (s *Source[T]) init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return nil
	}
	if !identRe.MatchString(s.table) {
		return fmt.Errorf("%w: table %q", ErrInvalidIdentifier, s.table)
	}
	rows, err := s.db.QueryContext(ctx, "SELECT * FROM "+quote(s.table)+" LIMIT 0")
	if err != nil {
		return fmt.Errorf("sqlsource: inspect %s: %w", s.table, err)
	}
	defer rows.Close()
	cols, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("sqlsource: inspect %s: %w", s.table, err)
	}
	byName := make(map[string]string, len(cols)*2)
	for _, c := range cols {
		byName[c] = c
		byName[normalize.ToCamel(c)] = c
	}
	s.columns, s.byName, s.loaded = cols, byName, true
	return nil
}

func (s *Source[T]) resolve(field string) (string, error) {
	if c, ok := s.byName[field]; ok {
		return c, nil
	}
	if c, ok := s.byName[normalize.ToSnake(field)]; ok {
		return c, nil
	}
	return "", fmt.Errorf("%w: %s.%s", ErrUnknownColumn, s.table, field)
}

func (s *Source[T]) renderer(ctx context.Context) (*renderer, error) {
	if err := s.init(ctx); err != nil {
		return nil, err
	}
	return &renderer{
		dialect: s.cfg.dialect,
		table:   s.table,
		columns: s.columns,
		resolve: s.resolve,
		prefix:  s.cfg.prefix,
	}, nil
}

// FetchMany returns the matching records decoded into T.
func (s *Source[T]) FetchMany(ctx context.Context, q query.Query) ([]T, error) {
	rows, err := s.FetchRaw(ctx, q)
	if err != nil {
		return nil, err
	}
	rows = normalize.ProcessRaw(rows, q.CountJoin, s.cfg.prefix)
	out := make([]T, 0, len(rows))
	for _, r := range rows {
		v, err := s.decode(r)
		if err != nil {
			return nil, fmt.Errorf("sqlsource: %s: %w", s.table, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// FetchRaw returns rows as scanned. Without a count-join keys are camelCase
// field names; with one they are the prefixed raw aliases plus the count
// column, ready for normalize.ProcessRaw.
func (s *Source[T]) FetchRaw(ctx context.Context, q query.Query) ([]record.Row, error) {
	r, err := s.renderer(ctx)
	if err != nil {
		return nil, err
	}
	st, err := r.selectRows(q)
	if err != nil {
		return nil, err
	}
	camel := q.CountJoin == nil

	start := time.Now()
	out, err := s.scan(ctx, st, camel)
	s.observe("fetch_many", st, start, len(out), err)
	return out, err
}

// FetchCount counts matching records, ignoring order and pagination.
func (s *Source[T]) FetchCount(ctx context.Context, q query.Query) (int, error) {
	r, err := s.renderer(ctx)
	if err != nil {
		return 0, err
	}
	st, err := r.selectCount(q)
	if err != nil {
		return 0, err
	}

	start := time.Now()
	var n int
	err = s.db.QueryRowContext(ctx, st.sql.String(), st.args...).Scan(&n)
	if err != nil {
		err = fmt.Errorf("sqlsource: count %s: %w", s.table, err)
	}
	s.observe("fetch_count", st, start, 1, err)
	return n, err
}

// FetchIDs returns the ids of matching records in directive order.
func (s *Source[T]) FetchIDs(ctx context.Context, q query.Query) ([]string, error) {
	r, err := s.renderer(ctx)
	if err != nil {
		return nil, err
	}
	idq := q.Clone()
	idq.IDsOnly = true
	idq.CountJoin = nil
	st, err := r.selectRows(idq)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	rows, err := s.scan(ctx, st, false)
	s.observe("fetch_ids", st, start, len(rows), err)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		for _, v := range row {
			ids = append(ids, record.StringValue(v))
		}
	}
	return ids, nil
}

func (s *Source[T]) scan(ctx context.Context, st *statement, camel bool) ([]record.Row, error) {
	rows, err := s.db.QueryContext(ctx, st.sql.String(), st.args...)
	if err != nil {
		return nil, fmt.Errorf("sqlsource: query %s: %w", s.table, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	keys := make([]string, len(cols))
	for i, c := range cols {
		keys[i] = c
		if camel {
			keys[i] = normalize.ToCamel(c)
		}
	}

	out := make([]record.Row, 0)
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("sqlsource: scan %s: %w", s.table, err)
		}
		row := make(record.Row, len(cols))
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			row[keys[i]] = v
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlsource: iterate %s: %w", s.table, err)
	}
	return out, nil
}

func (s *Source[T]) observe(op string, st *statement, start time.Time, n int, err error) {
	d := time.Since(start)
	ev := s.cfg.logger.Debug()
	if err != nil {
		ev = s.cfg.logger.Error().Err(err)
	}
	ev.Str("table", s.table).
		Str("operation", op).
		Str("sql", st.sql.String()).
		Int("args", len(st.args)).
		Int("rows", n).
		Dur("duration", d).
		Msg("sql statement")
	if s.cfg.hook != nil {
		s.cfg.hook(op, d, n, err)
	}
}
