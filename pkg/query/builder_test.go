// ABOUTME: Tests for directive assembly and in-memory matching
// ABOUTME: Verifies filters, search normalization, ordering, pagination and count-joins

package query

import (
	"testing"
)

func TestApplyWhereSortedAndNull(t *testing.T) {
	q := ApplyWhere(Query{}, map[string]any{"status": "active", "deletedAt": nil})

	if len(q.Conditions) != 2 {
		t.Fatalf("Expected 2 conditions, got %d", len(q.Conditions))
	}
	if q.Conditions[0].Field != "deletedAt" || q.Conditions[0].Op != OpIsNull {
		t.Errorf("Expected deletedAt IS NULL first, got %+v", q.Conditions[0])
	}
	if q.Conditions[1].Field != "status" || q.Conditions[1].Op != OpEq || q.Conditions[1].Value != "active" {
		t.Errorf("Expected status = active, got %+v", q.Conditions[1])
	}
}

func TestApplySearchTrimsAndSkipsBlank(t *testing.T) {
	q := ApplySearch(Query{}, map[string]any{
		"name":         "  shirt ",
		"description":  "   ",
		"code":         nil,
		"parentId":     Exact{Value: "42"},
		"productCount": 3,
	})

	if len(q.Search) != 3 {
		t.Fatalf("Expected 3 search terms, got %+v", q.Search)
	}
	byField := map[string]SearchTerm{}
	for _, s := range q.Search {
		byField[s.Field] = s
	}
	if s := byField["name"]; s.Exact || s.Pattern != "shirt" {
		t.Errorf("Expected trimmed substring term, got %+v", s)
	}
	if s := byField["parentId"]; !s.Exact || s.Value != "42" {
		t.Errorf("Expected exact term, got %+v", s)
	}
	if s := byField["productCount"]; !s.Exact || s.Value != 3 {
		t.Errorf("Expected non-string value to match exactly, got %+v", s)
	}
	if _, ok := byField["description"]; ok {
		t.Errorf("Whitespace-only search must be a no-op")
	}
}

func TestApplyPagination(t *testing.T) {
	tests := []struct {
		page, limit    int
		offset, wantLi int
	}{
		{1, 10, 0, 10},
		{3, 10, 20, 10},
		{0, 10, 0, 10},
		{-2, 5, 0, 5},
		{4, 0, 0, 0},
		{4, -1, 0, 0},
	}
	for _, tt := range tests {
		q := ApplyPagination(Query{}, tt.page, tt.limit)
		if q.Offset != tt.offset || q.Limit != tt.wantLi {
			t.Errorf("page=%d limit=%d: got offset=%d limit=%d, want %d/%d",
				tt.page, tt.limit, q.Offset, q.Limit, tt.offset, tt.wantLi)
		}
	}
}

func TestApplyCountJoinDefaults(t *testing.T) {
	q := ApplyCountJoin(Query{}, &CountJoin{CountField: "items"})
	if q.CountJoin == nil {
		t.Fatal("Expected count-join")
	}
	want := CountJoin{CountField: "items", Relation: "categoryTinies", JoinField: "productId", ForeignKey: "categoryId"}
	if *q.CountJoin != want {
		t.Errorf("Expected %+v, got %+v", want, *q.CountJoin)
	}
	if ApplyCountJoin(q, nil).CountJoin != nil {
		t.Errorf("nil must clear the count-join")
	}
}

func TestBuilderDoesNotAlias(t *testing.T) {
	base := NewBuilder().Where("status", "active").Build()
	extended := From(base).WhereBlank("parentId").Build()

	if len(base.Conditions) != 1 {
		t.Errorf("From must copy, base now has %d conditions", len(base.Conditions))
	}
	if len(extended.Conditions) != 2 {
		t.Errorf("Expected 2 conditions, got %d", len(extended.Conditions))
	}
}

func TestBuilderIDsOnly(t *testing.T) {
	q := NewBuilder().
		WhereIn("id", []string{"a", "b"}).
		OrderBy(OrderBy("name", "desc"), OrderBy("", Asc)).
		Page(2, 5).
		IDsOnly("id").
		Build()

	if !q.IDsOnly || q.IDField != "id" {
		t.Errorf("Expected id projection, got %+v", q)
	}
	if len(q.OrderBy) != 1 || q.OrderBy[0].Direction != Asc {
		t.Errorf("Unknown directions fall back to ASC and blank fields are skipped, got %+v", q.OrderBy)
	}
	if q.Offset != 5 || q.Limit != 5 {
		t.Errorf("Expected offset 5 limit 5, got %d/%d", q.Offset, q.Limit)
	}
	if got := q.String(); got != "id IN [a b] ORDER BY name ASC LIMIT 5 OFFSET 5" {
		t.Errorf("Unexpected rendering %q", got)
	}
}

func TestSlice(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	if got := Slice(items, 2, 2); len(got) != 2 || got[0] != 3 {
		t.Errorf("Expected [3 4], got %v", got)
	}
	if got := Slice(items, 4, 10); len(got) != 1 {
		t.Errorf("Expected [5], got %v", got)
	}
	if got := Slice(items, 9, 2); len(got) != 0 {
		t.Errorf("Expected empty page past the end, got %v", got)
	}
	if got := Slice(items, 0, 0); len(got) != 5 {
		t.Errorf("Limit 0 returns the rest, got %v", got)
	}
}
