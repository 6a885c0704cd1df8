// ABOUTME: Row source tests against in-memory SQLite
// ABOUTME: Column discovery, camelCase keys, count-join flattening and decoding

package sqlsource_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nainya/catalogtree/pkg/query"
	"github.com/nainya/catalogtree/pkg/sqlsource"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()
	db, err := sqlsource.OpenSQLite(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	for _, stmt := range []string{
		`CREATE TABLE nodes (id TEXT PRIMARY KEY, parent_node_id TEXT NULL, display_name TEXT NOT NULL)`,
		`CREATE TABLE node_tags (node_id TEXT NOT NULL, tag_id TEXT NOT NULL)`,
		`INSERT INTO nodes VALUES ('1', NULL, 'Root'), ('2', '1', 'Child 100%'), ('3', '', 'Other root')`,
		`INSERT INTO node_tags VALUES ('1', 'a'), ('1', 'b'), ('1', 'b'), ('2', 'a')`,
	} {
		_, err := db.ExecContext(ctx, stmt)
		require.NoError(t, err)
	}
	return db
}

func TestColumns(t *testing.T) {
	src := sqlsource.NewRows(setupDB(t), "nodes")
	cols, err := src.Columns(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "parent_node_id", "display_name"}, cols)
}

func TestCancelledDiscoveryIsRetried(t *testing.T) {
	src := sqlsource.NewRows(setupDB(t), "nodes")

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := src.FetchCount(cancelled, query.NewBuilder().Build())
	require.ErrorIs(t, err, context.Canceled)

	n, err := src.FetchCount(context.Background(), query.NewBuilder().Build())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestFetchManyCamelCasesKeys(t *testing.T) {
	src := sqlsource.NewRows(setupDB(t), "nodes")
	rows, err := src.FetchMany(context.Background(), query.NewBuilder().
		WhereBlank("parentNodeId").
		OrderBy(query.OrderBy("displayName", query.Asc)).
		Build())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Other root", rows[0]["displayName"])
	assert.Equal(t, "Root", rows[1]["displayName"])
	assert.Nil(t, rows[1]["parentNodeId"])
}

func TestSearchEscapesWildcards(t *testing.T) {
	src := sqlsource.NewRows(setupDB(t), "nodes")
	ctx := context.Background()

	n, err := src.FetchCount(ctx, query.NewBuilder().Search(map[string]any{"displayName": "100%"}).Build())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = src.FetchCount(ctx, query.NewBuilder().Search(map[string]any{"displayName": "_"}).Build())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestFetchIDsPage(t *testing.T) {
	src := sqlsource.NewRows(setupDB(t), "nodes")
	ids, err := src.FetchIDs(context.Background(), query.NewBuilder().
		OrderBy(query.OrderBy("id", query.Desc)).
		Page(1, 2).
		Build())
	require.NoError(t, err)
	assert.Equal(t, []string{"3", "2"}, ids)
}

func TestCountJoinIsFlattened(t *testing.T) {
	src := sqlsource.NewRows(setupDB(t), "nodes")
	rows, err := src.FetchMany(context.Background(), query.NewBuilder().
		WhereIn("id", []string{"1", "2", "3"}).
		WithCount(&query.CountJoin{
			CountField: "tagCount",
			Relation:   "nodeTags",
			JoinField:  "tagId",
			ForeignKey: "nodeId",
		}).
		OrderBy(query.OrderBy("id", query.Asc)).
		Build())
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "Root", rows[0]["displayName"])
	assert.Equal(t, 2, rows[0]["tagCount"])
	assert.Equal(t, 1, rows[1]["tagCount"])
	assert.Equal(t, 0, rows[2]["tagCount"])
	_, raw := rows[0]["entity_id"]
	assert.False(t, raw)
}

type node struct {
	ID           string  `json:"id"`
	ParentNodeID *string `json:"parentNodeId"`
	DisplayName  string  `json:"displayName"`
}

func TestTypedDecode(t *testing.T) {
	var ops []string
	src := sqlsource.New[node](setupDB(t), "nodes",
		sqlsource.WithQueryHook(func(op string, _ time.Duration, _ int, _ error) { ops = append(ops, op) }))

	got, err := src.FetchMany(context.Background(), query.NewBuilder().Where("id", "2").Build())
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.NotNil(t, got[0].ParentNodeID)
	assert.Equal(t, "1", *got[0].ParentNodeID)
	assert.Equal(t, "Child 100%", got[0].DisplayName)
	assert.Equal(t, []string{"fetch_many"}, ops)
}

func TestUnknownTableAndColumn(t *testing.T) {
	db := setupDB(t)
	_, err := sqlsource.NewRows(db, "nodes; DROP TABLE nodes").Columns(context.Background())
	assert.ErrorIs(t, err, sqlsource.ErrInvalidIdentifier)

	_, err = sqlsource.NewRows(db, "nodes").FetchCount(context.Background(), query.NewBuilder().Where("colour", "red").Build())
	assert.ErrorIs(t, err, sqlsource.ErrUnknownColumn)
}
