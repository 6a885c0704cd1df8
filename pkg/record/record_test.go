package record

import (
	"testing"
	"time"
)

type category struct {
	ID           string     `json:"id"`
	Parent       *string    `json:"parentCategoryId"`
	ProductCount int        `json:"productCount"`
	CreatedAt    time.Time  `json:"createdAt"`
	DeletedAt    *time.Time `json:"deletedAt"`
}

func TestStringValue(t *testing.T) {
	s := "x"
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"a", "a"},
		{&s, "x"},
		{(*string)(nil), ""},
		{[]byte("b"), "b"},
		{42, "42"},
		{int64(-3), "-3"},
		{1.5, "1.5"},
		{float64(7), "7"},
		{true, "true"},
	}
	for _, tt := range tests {
		if got := StringValue(tt.in); got != tt.want {
			t.Errorf("StringValue(%#v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsBlank(t *testing.T) {
	r := Row{"a": nil, "b": "", "c": "  ", "d": "x", "e": 0}
	for _, f := range []string{"a", "b", "c", "missing"} {
		if !r.IsBlank(f) {
			t.Errorf("Expected %s to be blank", f)
		}
	}
	for _, f := range []string{"d", "e"} {
		if r.IsBlank(f) {
			t.Errorf("Expected %s to be set", f)
		}
	}
}

func TestDecode(t *testing.T) {
	c, err := Decode[category](Row{
		"id":               "c1",
		"parentCategoryId": "p1",
		"productCount":     int64(3),
		"createdAt":        "2024-05-01T10:00:00Z",
		"deletedAt":        nil,
		"ignored":          "x",
	})
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if c.ID != "c1" || c.Parent == nil || *c.Parent != "p1" || c.ProductCount != 3 {
		t.Errorf("Unexpected decode %+v", c)
	}
	if !c.CreatedAt.Equal(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("Expected parsed timestamp, got %v", c.CreatedAt)
	}
	if c.DeletedAt != nil {
		t.Errorf("Expected nil DeletedAt")
	}
}

func TestDecodeNullParent(t *testing.T) {
	c, err := Decode[category](Row{"id": "root", "parentCategoryId": nil})
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if c.Parent != nil {
		t.Errorf("Expected nil parent, got %q", *c.Parent)
	}
}

func TestDecodeAllReportsRow(t *testing.T) {
	_, err := DecodeAll[category]([]Row{{"id": "ok"}, {"productCount": "not a number"}})
	if err == nil {
		t.Fatal("Expected decode error")
	}
}

func TestClone(t *testing.T) {
	r := Row{"id": "1"}
	c := r.Clone()
	c["id"] = "2"
	if r.String("id") != "1" {
		t.Errorf("Clone must not alias")
	}
}
