package query

import (
	"reflect"
	"testing"
	"time"
)

func TestNewTable_WithHeader(t *testing.T) {
	table := NewTable("books", [][]any{
		{"id", " title "},
		{1, "Dune"},
		{int64(2)},
		{"", nil},
		{nil},
	}, true)

	if table.Name != "BOOKS" {
		t.Errorf("Name = %q, want BOOKS", table.Name)
	}
	if !reflect.DeepEqual(table.Header(), []string{"id", "title"}) {
		t.Errorf("Header() = %v", table.Header())
	}
	if table.RowCount() != 2 {
		t.Fatalf("RowCount() = %d, want 2 (trailing blank rows trimmed)", table.RowCount())
	}
	if !reflect.DeepEqual(table.Row(0), []any{1.0, "Dune"}) {
		t.Errorf("Row(0) = %#v", table.Row(0))
	}
	if !reflect.DeepEqual(table.Row(1), []any{2.0, ""}) {
		t.Errorf("Row(1) = %#v, want padded row", table.Row(1))
	}
	if v := table.Value(5, 0); v != nil {
		t.Errorf("Value(5, 0) = %v, want nil", v)
	}
}

func TestNewTable_WithoutHeader(t *testing.T) {
	table := NewTable("t", [][]any{{"a", 1}, {"b", 2, true}}, false)
	if !reflect.DeepEqual(table.Header(), []string{"A", "B", "C"}) {
		t.Errorf("Header() = %v, want column letters", table.Header())
	}
	if table.RowCount() != 2 {
		t.Errorf("RowCount() = %d, want 2", table.RowCount())
	}
}

func TestSchema_Lookup(t *testing.T) {
	table := NewTable("books", [][]any{{"id", "Title", "author_id"}}, true).WithAlias("b")

	tests := []struct {
		name string
		want int
		ok   bool
	}{
		{"id", 0, true},
		{"TITLE", 1, true},
		{"title", 1, true},
		{"books.title", 1, true},
		{"B.TITLE", 1, true},
		{"b . author_id", 2, true},
		{"`b`.`author_id`", 2, true},
		{"authors.id", 0, false},
		{"price", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			col, ok := table.Schema().Column(tt.name)
			if ok != tt.ok || (ok && col != tt.want) {
				t.Errorf("Column(%q) = %d, %v; want %d, %v", tt.name, col, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestTable_ExtendedNames(t *testing.T) {
	table := NewTable("books", [][]any{{"id", "title"}}, true)
	if got := table.ExtendedNames(); !reflect.DeepEqual(got, []string{"BOOKS.id", "BOOKS.title"}) {
		t.Errorf("ExtendedNames() = %v", got)
	}
	aliased := table.WithAlias("b")
	if got := aliased.ExtendedNames(); !reflect.DeepEqual(got, []string{"B.id", "B.title"}) {
		t.Errorf("aliased ExtendedNames() = %v", got)
	}
	if table.Alias != "" {
		t.Error("WithAlias modified the original table")
	}
}

func TestColumnLetters(t *testing.T) {
	tests := []struct {
		col  int
		want string
	}{
		{0, "A"},
		{1, "B"},
		{25, "Z"},
		{26, "AA"},
		{27, "AB"},
		{701, "ZZ"},
		{702, "AAA"},
	}

	for _, tt := range tests {
		if got := columnLetters(tt.col); got != tt.want {
			t.Errorf("columnLetters(%d) = %q, want %q", tt.col, got, tt.want)
		}
	}
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"books.title", "BOOKS.TITLE"},
		{" Books . Title ", "BOOKS.TITLE"},
		{"[order id]", "ORDERID"},
		{"CONCAT(a, ' x ')", "CONCAT(A,' x ')"},
	}

	for _, tt := range tests {
		if got := normalizeName(tt.input); got != tt.want {
			t.Errorf("normalizeName(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  string
	}{
		{"nil", nil, ""},
		{"string", "x", "x"},
		{"whole float", 3.0, "3"},
		{"fraction", 2.5, "2.5"},
		{"int", 42, "42"},
		{"bool", true, "true"},
		{"date", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), "2024-01-02"},
		{"datetime", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), "2024-01-02 03:04:05"},
		{"bytes", []byte("raw"), "raw"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatValue(tt.input); got != tt.want {
				t.Errorf("FormatValue(%v) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestBindData(t *testing.T) {
	binds := NewBindData("a", 2)
	if n := binds.Add(true); n != 3 {
		t.Errorf("Add() = %d, want 3", n)
	}
	if v, err := binds.Get(2); err != nil || v != 2.0 {
		t.Errorf("Get(2) = %v, %v; want 2", v, err)
	}

	clone := binds.Clone()
	clone.Set(5, "x")
	if binds.Len() != 3 || clone.Len() != 5 {
		t.Errorf("Len() = %d and clone %d, want 3 and 5", binds.Len(), clone.Len())
	}
	if v, _ := clone.Get(4); v != nil {
		t.Errorf("clone.Get(4) = %v, want nil gap", v)
	}
	if _, err := binds.Get(4); err == nil {
		t.Error("Get(4) beyond the bound values should fail")
	}
	if _, err := binds.Get(0); err == nil {
		t.Error("Get(0) should fail")
	}
}
