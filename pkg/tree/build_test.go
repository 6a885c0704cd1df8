// ABOUTME: Tests for forest assembly from flat adjacency lists
// ABOUTME: Covers root classification, orphans, duplicates, sorting and round-trips

package tree

import (
	"fmt"
	"strings"
	"testing"

	"pgregory.net/rapid"

	"github.com/nainya/catalogtree/pkg/record"
)

var rows = RowAccessor(DefaultFields())

func row(id string, parent any, name string) record.Row {
	return record.Row{"id": id, "parentId": parent, "name": name}
}

func ids(forest []*Node[record.Row]) []string {
	out := make([]string, len(forest))
	for i, n := range forest {
		out[i] = n.Record.String("id")
	}
	return out
}

func TestBuildEmpty(t *testing.T) {
	forest := Build(nil, rows, Options[record.Row]{})
	if forest == nil || len(forest) != 0 {
		t.Fatalf("Expected empty non-nil forest, got %v", forest)
	}
}

func TestBuildTwoLevels(t *testing.T) {
	items := []record.Row{
		row("1", nil, "A"),
		row("2", "1", "B"),
		row("3", nil, "C"),
	}
	forest := Build(items, rows, Options[record.Row]{})

	if got := strings.Join(ids(forest), ","); got != "1,3" {
		t.Fatalf("Expected roots 1,3 in input order, got %s", got)
	}
	if len(forest[0].Children) != 1 || forest[0].Children[0].Record.String("id") != "2" {
		t.Errorf("Expected node 1 to have child 2, got %v", forest[0].Children)
	}
	if !forest[1].IsLeaf() {
		t.Errorf("Expected node 3 to be a leaf")
	}
}

func TestBuildRootClassification(t *testing.T) {
	var empty *string
	items := []record.Row{
		row("nil", nil, ""),
		row("blank", "", ""),
		row("spaces", "  ", ""),
		row("nilptr", empty, ""),
		{"id": "absent"},
	}
	forest := Build(items, rows, Options[record.Row]{})
	if len(forest) != len(items) {
		t.Fatalf("Expected every record to be a root, got %v", ids(forest))
	}
}

func TestBuildDropsOrphans(t *testing.T) {
	rec := &Recorder{}
	items := []record.Row{
		row("1", nil, "A"),
		row("2", "missing", "B"),
		row("3", "2", "C"),
	}
	forest := Build(items, rows, Options[record.Row]{Observer: rec})

	if got := strings.Join(ids(forest), ","); got != "1" {
		t.Fatalf("Orphan must not be promoted to root, got roots %s", got)
	}
	if Count(forest) != 1 {
		t.Errorf("Expected orphan subtree to be unreachable, counted %d nodes", Count(forest))
	}
	if rec.Count(EventOrphanDropped) != 1 {
		t.Errorf("Expected one orphan event, got %v", rec.Events)
	}
	if rec.Events[0].ID != "2" || rec.Events[0].ParentID != "missing" {
		t.Errorf("Unexpected orphan event %+v", rec.Events[0])
	}
}

func TestBuildDuplicatesAndInvalid(t *testing.T) {
	rec := &Recorder{}
	items := []record.Row{
		row("1", nil, "first"),
		row("1", nil, "second"),
		row("", nil, "no id"),
		{"parentId": "1"},
	}
	forest := Build(items, rows, Options[record.Row]{Observer: rec})

	if len(forest) != 1 || forest[0].Record.String("name") != "first" {
		t.Fatalf("Expected first occurrence to win, got %v", forest)
	}
	if rec.Count(EventDuplicateDropped) != 1 {
		t.Errorf("Expected one duplicate event, got %d", rec.Count(EventDuplicateDropped))
	}
	if rec.Count(EventInvalidDropped) != 2 {
		t.Errorf("Expected two invalid events, got %d", rec.Count(EventInvalidDropped))
	}
}

func TestBuildCustomFields(t *testing.T) {
	fields := FieldConfig{IDField: "key", ParentIDField: "parentCategoryId", ChildrenField: "subCategories"}
	items := []record.Row{
		{"key": "a", "parentCategoryId": nil},
		{"key": "b", "parentCategoryId": "a"},
	}
	forest := Build(items, RowAccessor(fields), Options[record.Row]{Fields: fields})

	if len(forest) != 1 || len(forest[0].Children) != 1 {
		t.Fatalf("Expected a root with one child, got %v", forest)
	}
	if forest[0].ChildrenKey() != "subCategories" {
		t.Errorf("Expected children key subCategories, got %s", forest[0].ChildrenKey())
	}
}

func TestBuildRootPredicate(t *testing.T) {
	items := []record.Row{
		row("1", nil, "A"),
		row("2", "1", "B"),
		row("3", "2", "C"),
	}
	// Rooting at 2 drops 1, which now has no parent and is not a root.
	forest := Build(items, rows, Options[record.Row]{
		IsRoot: func(r record.Row) bool { return r.String("id") == "2" },
	})
	if got := strings.Join(ids(forest), ","); got != "2" {
		t.Fatalf("Expected single root 2, got %s", got)
	}
	if len(forest[0].Children) != 1 {
		t.Errorf("Expected 3 under 2")
	}
}

func TestBuildSortsRecursively(t *testing.T) {
	items := []record.Row{
		row("r2", nil, "b"),
		row("r1", nil, "a"),
		row("c2", "r1", "z"),
		row("c1", "r1", "y"),
	}
	forest := Build(items, rows, Options[record.Row]{
		Compare: func(a, b record.Row) int { return strings.Compare(a.String("name"), b.String("name")) },
	})

	if got := strings.Join(ids(forest), ","); got != "r1,r2" {
		t.Errorf("Expected sorted roots r1,r2, got %s", got)
	}
	if got := strings.Join(ids(forest[0].Children), ","); got != "c1,c2" {
		t.Errorf("Expected sorted children c1,c2, got %s", got)
	}
}

func TestBuildTerminatesOnCycle(t *testing.T) {
	rec := &Recorder{}
	items := []record.Row{
		row("a", "b", ""),
		row("b", "a", ""),
		row("c", "a", ""),
		row("root", nil, ""),
	}
	forest := Build(items, rows, Options[record.Row]{Observer: rec})
	if got := strings.Join(ids(forest), ","); got != "root" {
		t.Errorf("Expected only the real root, got %s", got)
	}
	// The cycle is unreachable from any root.
	if Count(forest) != 1 {
		t.Errorf("Expected 1 reachable node, got %d", Count(forest))
	}
	var dropped []string
	for _, e := range rec.Events {
		if e.Kind != EventCycleDropped {
			t.Errorf("Expected only cycle events, got %s for %s", e.Kind, e.ID)
		}
		dropped = append(dropped, e.ID)
	}
	if got := strings.Join(dropped, ","); got != "a,b,c" {
		t.Errorf("Expected a,b,c reported as cycle drops, got %s", got)
	}
}

func TestBuildOrphanSubtreeIsNotACycle(t *testing.T) {
	rec := &Recorder{}
	items := []record.Row{
		row("root", nil, ""),
		row("lost", "ghost", ""),
		row("under-lost", "lost", ""),
	}
	Build(items, rows, Options[record.Row]{Observer: rec})
	if rec.Count(EventOrphanDropped) != 1 {
		t.Errorf("Expected 1 orphan event, got %d", rec.Count(EventOrphanDropped))
	}
	if rec.Count(EventCycleDropped) != 0 {
		t.Errorf("Expected no cycle events, got %d", rec.Count(EventCycleDropped))
	}
}

// acyclicRows draws a forest where every parent precedes its children, with
// the order then shuffled.
func acyclicRows(t *rapid.T) []record.Row {
	n := rapid.IntRange(0, 40).Draw(t, "n")
	items := make([]record.Row, n)
	for i := range n {
		var parent any
		if i > 0 && rapid.Bool().Draw(t, fmt.Sprintf("has_parent_%d", i)) {
			parent = fmt.Sprint(rapid.IntRange(0, i-1).Draw(t, fmt.Sprintf("parent_%d", i)))
		}
		items[i] = row(fmt.Sprint(i), parent, "")
	}
	perm := rapid.Permutation(items).Draw(t, "order")
	return perm
}

func TestBuildFlattenRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		items := acyclicRows(t)
		flat := Flatten(Build(items, rows, Options[record.Row]{}))

		if len(flat) != len(items) {
			t.Fatalf("flattened %d records, want %d", len(flat), len(items))
		}
		seen := map[string]int{}
		for _, r := range flat {
			seen[r.String("id")]++
		}
		for _, r := range items {
			if seen[r.String("id")] != 1 {
				t.Fatalf("id %s appears %d times", r.String("id"), seen[r.String("id")])
			}
		}
	})
}

func TestBuildNeverPromotesOrphans(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		items := acyclicRows(t)
		if len(items) == 0 {
			return
		}
		victim := rapid.IntRange(0, len(items)-1).Draw(t, "victim")
		items[victim] = row(items[victim].String("id"), "ghost", "")

		for _, n := range Build(items, rows, Options[record.Row]{}) {
			if !record.IsBlank(n.Record["parentId"]) {
				t.Fatalf("root %s has parent %v", n.Record.String("id"), n.Record["parentId"])
			}
		}
	})
}
