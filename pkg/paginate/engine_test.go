// ABOUTME: Tests for root paging and search expansion over an in-memory source
// ABOUTME: Covers both orchestration paths, round-trip counts and result metadata

package paginate_test

import (
	"context"
	"fmt"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nainya/catalogtree/pkg/hierarchy"
	"github.com/nainya/catalogtree/pkg/memsource"
	"github.com/nainya/catalogtree/pkg/paginate"
	"github.com/nainya/catalogtree/pkg/query"
	"github.com/nainya/catalogtree/pkg/record"
	"github.com/nainya/catalogtree/pkg/tree"
)

var acc = tree.RowAccessor(tree.DefaultFields())

func row(id string, parent any, name string) record.Row {
	return record.Row{"id": id, "parentId": parent, "name": name, "status": "active"}
}

// catalogRows is two trees and a lone root:
//
//	1 Electronics
//	├── 2 Phones
//	│   └── 4 Android phones
//	└── 3 Laptops
//	5 Garden
//	└── 6 Garden tools
//	7 Books
func catalogRows() []record.Row {
	return []record.Row{
		row("1", nil, "Electronics"),
		row("2", "1", "Phones"),
		row("3", "1", "Laptops"),
		row("4", "2", "Android phones"),
		row("5", nil, "Garden"),
		row("6", "5", "Garden tools"),
		row("7", nil, "Books"),
	}
}

func rootIDs(res *paginate.Result[record.Row]) []string {
	ids := make([]string, len(res.Data))
	for i, n := range res.Data {
		ids[i] = acc.ID(n.Record)
	}
	return ids
}

func childIDs(n *tree.Node[record.Row]) []string {
	ids := make([]string, len(n.Children))
	for i, c := range n.Children {
		ids[i] = acc.ID(c.Record)
	}
	return ids
}

func TestTwoLevelTreeFirstPage(t *testing.T) {
	src := memsource.NewRows([]record.Row{
		row("1", nil, "a"),
		row("2", "1", "b"),
		row("3", nil, "c"),
	})
	res, err := paginate.NewRowBuilder(src).Paginate(1, 1).Build(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, res.Total)
	assert.Equal(t, 1, res.Page)
	assert.Equal(t, 1, res.Limit)
	assert.Equal(t, 2, res.TotalPages)
	require.Equal(t, []string{"1"}, rootIDs(res))
	assert.Equal(t, []string{"2"}, childIDs(res.Data[0]))

	// count, page ids, page records, then one round per level below the roots
	stats := src.Stats()
	assert.Equal(t, 1, stats.FetchCount)
	assert.Equal(t, 1, stats.FetchIDs)
	assert.Equal(t, 3, stats.FetchMany)
}

func TestPagesPreserveRootOrder(t *testing.T) {
	src := memsource.NewRows(catalogRows())
	b := paginate.NewRowBuilder(src).OrderBy(query.OrderBy("name", query.Desc))

	first, err := b.Paginate(1, 2).Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"5", "1"}, rootIDs(first))
	assert.Equal(t, 3, first.Total)
	assert.Equal(t, 2, first.TotalPages)
	assert.Equal(t, []string{"2", "3"}, childIDs(first.Data[1]))

	second, err := b.Paginate(2, 2).Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"7"}, rootIDs(second))
	assert.Equal(t, 2, second.Page)

	beyond, err := b.Paginate(9, 2).Build(context.Background())
	require.NoError(t, err)
	assert.Empty(t, beyond.Data)
	assert.Equal(t, 3, beyond.Total)
}

func TestUnlimitedReturnsEveryRoot(t *testing.T) {
	src := memsource.NewRows(catalogRows())
	res, err := paginate.NewRowBuilder(src).All().Build(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, res.Page)
	assert.Equal(t, 1, res.TotalPages)
	assert.Equal(t, res.Total, len(res.Data))
	assert.Equal(t, res.Total, res.Limit)
	assert.Equal(t, 7, tree.Count(res.Data))
	// The unlimited path skips the id query.
	assert.Equal(t, 0, src.Stats().FetchIDs)
}

func TestEmptySourceResult(t *testing.T) {
	src := memsource.NewRows(nil)
	res, err := paginate.NewRowBuilder(src).Paginate(3, 10).Build(context.Background())
	require.NoError(t, err)

	assert.NotNil(t, res.Data)
	assert.Empty(t, res.Data)
	assert.Equal(t, 0, res.Total)
	assert.Equal(t, 3, res.Page)
	assert.Equal(t, 10, res.Limit)
	assert.Equal(t, 0, res.TotalPages)
	assert.Equal(t, 1, src.Stats().Total(), "only the count query runs")
}

func TestSearchPullsInAncestors(t *testing.T) {
	src := memsource.NewRows([]record.Row{
		row("1", nil, "A"),
		row("2", "1", "target"),
	})
	res, err := paginate.NewRowBuilder(src).
		Search(map[string]any{"name": "target"}, true).
		Paginate(1, 10).
		Build(context.Background())
	require.NoError(t, err)

	require.Equal(t, []string{"1"}, rootIDs(res))
	assert.Equal(t, []string{"2"}, childIDs(res.Data[0]))
	assert.Equal(t, 1, res.Total)
	assert.Equal(t, 0, src.Stats().FetchCount, "search totals come from the assembled forest")
}

func TestSearchLoadsFullSubtreesOfMatches(t *testing.T) {
	src := memsource.NewRows(catalogRows())
	res, err := paginate.NewRowBuilder(src).
		Search(map[string]any{"name": "PHONES"}, true).
		All().
		Build(context.Background())
	require.NoError(t, err)

	require.Equal(t, []string{"1"}, rootIDs(res))
	// Laptops is a sibling of a match, reached as a descendant of ancestor 1.
	assert.Equal(t, []string{"2", "3"}, childIDs(res.Data[0]))
	phones := tree.Find(res.Data, "2", acc)
	require.NotNil(t, phones)
	assert.Equal(t, []string{"4"}, childIDs(phones))
}

func TestSearchPagesRootsInMemory(t *testing.T) {
	src := memsource.NewRows(catalogRows())
	b := paginate.NewRowBuilder(src).
		Search(map[string]any{"name": "o"}, true).
		Sort(compareName)

	first, err := b.Paginate(1, 2).Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, first.Total)
	assert.Equal(t, 2, first.TotalPages)
	assert.Equal(t, []string{"7", "1"}, rootIDs(first))

	second, err := b.Paginate(2, 2).Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"5"}, rootIDs(second))
}

func compareName(a, b record.Row) int {
	if a.String("name") < b.String("name") {
		return -1
	}
	if a.String("name") > b.String("name") {
		return 1
	}
	return 0
}

func TestSearchWithoutLoadAllFiltersRoots(t *testing.T) {
	src := memsource.NewRows(catalogRows())
	res, err := paginate.NewRowBuilder(src).
		Search(map[string]any{"name": "phones"}, false).
		All().
		Build(context.Background())
	require.NoError(t, err)

	// No root is named like a phone; children are never promoted.
	assert.Empty(t, res.Data)
	assert.Equal(t, 0, res.Total)

	res, err = paginate.NewRowBuilder(src).
		Search(map[string]any{"name": "garden"}, false).
		All().
		Build(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"5"}, rootIDs(res))
	assert.Equal(t, []string{"6"}, childIDs(res.Data[0]))
}

func TestBlankSearchFallsBackToPaging(t *testing.T) {
	src := memsource.NewRows(catalogRows())
	res, err := paginate.NewRowBuilder(src).
		Search(map[string]any{"name": "   "}, true).
		Paginate(1, 2).
		Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, res.Total)
	assert.Len(t, res.Data, 2)
	assert.Equal(t, 1, src.Stats().FetchCount)
}

func TestBaseWhereAppliesToDescendants(t *testing.T) {
	rows := catalogRows()
	rows[2]["status"] = "archived" // Laptops
	src := memsource.NewRows(rows)

	res, err := paginate.NewRowBuilder(src).
		Where(map[string]any{"status": "active"}).
		All().
		Build(context.Background())
	require.NoError(t, err)

	electronics := tree.Find(res.Data, "1", acc)
	require.NotNil(t, electronics)
	assert.Equal(t, []string{"2"}, childIDs(electronics))
}

func TestCountJoinAttachesCounts(t *testing.T) {
	src := memsource.NewRows(catalogRows())
	src.AddRelation("categoryTinies",
		record.Row{"categoryId": "1", "productId": "p1"},
		record.Row{"categoryId": "1", "productId": "p2"},
		record.Row{"categoryId": "1", "productId": "p2"},
		record.Row{"categoryId": "4", "productId": "p3"},
	)
	res, err := paginate.NewRowBuilder(src).
		WithCount(query.CountJoin{
			CountField: "productCount",
			Relation:   "categoryTinies",
			JoinField:  "productId",
			ForeignKey: "categoryId",
		}).
		All().
		Build(context.Background())
	require.NoError(t, err)

	counts := map[string]any{}
	tree.Walk(res.Data, func(n *tree.Node[record.Row], _ int) bool {
		counts[acc.ID(n.Record)] = n.Record["productCount"]
		return true
	})
	assert.Equal(t, 2, counts["1"])
	assert.Equal(t, 1, counts["4"])
	assert.Equal(t, 0, counts["6"])
}

func TestDepthLimitReturnsPartialForest(t *testing.T) {
	src := memsource.NewRows(catalogRows())
	res, err := paginate.NewRowBuilder(src).MaxDepth(1).All().Build(context.Background())
	require.ErrorIs(t, err, hierarchy.ErrDepthLimit)
	require.NotNil(t, res)

	electronics := tree.Find(res.Data, "1", acc)
	require.NotNil(t, electronics)
	assert.Equal(t, []string{"2", "3"}, childIDs(electronics))
	assert.Equal(t, 2, tree.Depth(res.Data))
}

func TestFilteredAncestorsNeverPromoteMatches(t *testing.T) {
	rows := catalogRows()
	rows[0]["status"] = "archived" // Electronics
	src := memsource.NewRows(rows)

	var rec tree.Recorder
	res, err := paginate.NewRowBuilder(src).
		Where(map[string]any{"status": "active"}).
		Search(map[string]any{"name": "Android"}, true).
		Observer(&rec).
		All().
		Build(context.Background())
	require.NoError(t, err)

	// Phones lost its parent to the filter, so it and Android phones stay out.
	assert.Empty(t, res.Data)
	assert.Equal(t, 0, res.Total)
	require.Equal(t, 1, rec.Count(tree.EventOrphanDropped))
	assert.Equal(t, "2", rec.Events[0].ID)
}

func TestSourceErrorsAbort(t *testing.T) {
	src := memsource.NewRows(catalogRows())
	src.Err = fmt.Errorf("connection reset")
	res, err := paginate.NewRowBuilder(src).Paginate(1, 5).Build(context.Background())
	require.Error(t, err)
	assert.Nil(t, res)
}

func TestRoundsAreObserved(t *testing.T) {
	var dirs []hierarchy.Direction
	obs := roundFunc(func(r hierarchy.Round) { dirs = append(dirs, r.Direction) })

	src := memsource.NewRows(catalogRows())
	_, err := paginate.NewRowBuilder(src).
		Search(map[string]any{"name": "Android"}, true).
		Rounds(obs).
		All().
		Build(context.Background())
	require.NoError(t, err)
	assert.True(t, slices.Contains(dirs, hierarchy.Up))
	assert.True(t, slices.Contains(dirs, hierarchy.Down))
}

type roundFunc func(hierarchy.Round)

func (f roundFunc) RoundCompleted(r hierarchy.Round) { f(r) }
