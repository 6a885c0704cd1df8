package tree

import (
	"errors"
	"testing"

	"github.com/goccy/go-json"

	"github.com/nainya/catalogtree/pkg/record"
)

type category struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	ParentID *string `json:"parentCategoryId"`
}

func TestNodeMarshalSplicesChildren(t *testing.T) {
	forest := sampleForest()
	b, err := json.Marshal(forest[1])
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("Invalid JSON %s: %v", b, err)
	}
	if got["id"] != "5" || got["name"] != "Garden" {
		t.Errorf("Record fields missing: %s", b)
	}
	kids, ok := got["children"].([]any)
	if !ok || len(kids) != 0 {
		t.Errorf("Expected empty children array, got %s", b)
	}
}

func TestNodeMarshalTypedRecords(t *testing.T) {
	parent := "c1"
	acc := Accessor[category]{
		ID: func(c category) string { return c.ID },
		ParentID: func(c category) string {
			if c.ParentID == nil {
				return ""
			}
			return *c.ParentID
		},
	}
	forest := Build([]category{
		{ID: "c1", Name: "Clothing"},
		{ID: "c2", Name: "Shirts", ParentID: &parent},
	}, acc, Options[category]{Fields: FieldConfig{ChildrenField: "subCategories"}})

	b, err := MarshalForest(forest)
	if err != nil {
		t.Fatalf("MarshalForest failed: %v", err)
	}
	want := `[{"id":"c1","name":"Clothing","parentCategoryId":null,"subCategories":[{"id":"c2","name":"Shirts","parentCategoryId":"c1","subCategories":[]}]}]`
	if string(b) != want {
		t.Errorf("Unexpected encoding\n got: %s\nwant: %s", b, want)
	}
}

func TestNodeMarshalEmptyForest(t *testing.T) {
	b, err := MarshalForest[record.Row](nil)
	if err != nil || string(b) != "[]" {
		t.Errorf("Expected [], got %s (%v)", b, err)
	}
}

func TestNodeMarshalRejectsNonObjects(t *testing.T) {
	n := NewNode("scalar", "")
	if _, err := n.MarshalJSON(); !errors.Is(err, ErrNotObject) {
		t.Errorf("Expected ErrNotObject, got %v", err)
	}
}
