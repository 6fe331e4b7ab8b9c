package query

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestCompare_Numbers(t *testing.T) {
	tests := []struct {
		name     string
		left     any
		operator string
		right    any
		want     bool
	}{
		{"float equal", 30.0, "=", 30.0, true},
		{"double equals", 30.0, "==", 30.0, true},
		{"not equal", 30.0, "<>", 25.0, true},
		{"bang not equal", 30.0, "!=", 30.0, false},
		{"less", 25.0, "<", 30.0, true},
		{"greater", 35.0, ">", 30.0, true},
		{"less equal same", 30.0, "<=", 30.0, true},
		{"greater equal less", 25.0, ">=", 30.0, false},
		{"int vs float", 30, "=", 30.0, true},
		{"numeric string vs number", "11", "=", 11.0, true},
		{"numeric strings compare numerically", "9", "<", "10", true},
		{"epsilon equality", 0.1 + 0.2, "=", 0.3, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := compare(tt.operator, tt.left, tt.right)
			if err != nil {
				t.Fatalf("compare() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("compare(%q, %v, %v) = %v, want %v", tt.operator, tt.left, tt.right, got, tt.want)
			}
		})
	}
}

func TestCompare_Strings(t *testing.T) {
	tests := []struct {
		name     string
		left     any
		operator string
		right    any
		want     bool
	}{
		{"equal", "alice", "=", "alice", true},
		{"case sensitive", "Alice", "=", "alice", false},
		{"less", "alice", "<", "bob", true},
		{"null equals blank", nil, "=", "", true},
		{"text vs number", "abc", ">", 5.0, true},
		{"dates", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), "<", "2024-02-01", true},
		{"bools", false, "<", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := compare(tt.operator, tt.left, tt.right)
			if err != nil {
				t.Fatalf("compare() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("compare(%q, %v, %v) = %v, want %v", tt.operator, tt.left, tt.right, got, tt.want)
			}
		})
	}
}

func TestCompare_Operators(t *testing.T) {
	tests := []struct {
		name     string
		left     any
		operator string
		right    any
		want     bool
	}{
		{"like prefix", "Dune", "LIKE", "D%", true},
		{"like is case insensitive", "dune", "like", "D%", true},
		{"like single char", "cat", "LIKE", "c_t", true},
		{"like no match", "Emma", "LIKE", "D%", false},
		{"not like", "Emma", "NOT LIKE", "D%", true},
		{"in list", 2.0, "IN", []any{1.0, "2", 3.0}, true},
		{"in list miss", 4.0, "IN", []any{1.0, 2.0}, false},
		{"not in list", 4.0, "NOT IN", []any{1.0, 2.0}, true},
		{"in empty list", 1.0, "IN", []any{}, false},
		{"is null", nil, "IS", nil, true},
		{"blank is null", "", "IS", nil, true},
		{"value is not null", "x", "IS NOT", nil, true},
		{"is value", true, "IS", true, true},
		{"exists", "", "EXISTS", []any{"x"}, true},
		{"exists empty", "", "EXISTS", []any{}, false},
		{"not exists", "", "NOT EXISTS", []any{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := compare(tt.operator, tt.left, tt.right)
			if err != nil {
				t.Fatalf("compare() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("compare(%q, %v, %v) = %v, want %v", tt.operator, tt.left, tt.right, got, tt.want)
			}
		})
	}

	if _, err := compare("~", 1.0, 1.0); !errors.Is(err, ErrInvalidOperator) {
		t.Errorf("compare(~) error = %v, want ErrInvalidOperator", err)
	}
}

func TestMatchLike(t *testing.T) {
	tests := []struct {
		str, pattern string
		want         bool
	}{
		{"abc", "abc", true},
		{"abc", "%", true},
		{"", "%", true},
		{"abc", "a%", true},
		{"abc", "%c", true},
		{"abc", "%b%", true},
		{"abc", "a_c", true},
		{"abc", "a_", false},
		{"aXbXc", "a%b%c", true},
		{"abcbc", "%bc", true},
		{"ab", "a%b%c", false},
	}

	for _, tt := range tests {
		t.Run(tt.str+" LIKE "+tt.pattern, func(t *testing.T) {
			if got := matchLike(tt.str, tt.pattern); got != tt.want {
				t.Errorf("matchLike(%q, %q) = %v, want %v", tt.str, tt.pattern, got, tt.want)
			}
		})
	}
}

func TestCompareValues_TotalOrder(t *testing.T) {
	values := []any{
		nil, "", 2.0, "10", 10.0, -1, math.NaN(), "1a", "b", "B",
		true, false, "TRUE", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), "2024-02-01",
	}

	sign := func(n int) int {
		switch {
		case n < 0:
			return -1
		case n > 0:
			return 1
		}
		return 0
	}
	for _, a := range values {
		for _, b := range values {
			if ab, ba := sign(compareValues(a, b)), sign(compareValues(b, a)); ab != -ba {
				t.Errorf("compareValues(%v, %v) = %d but reversed = %d", a, b, ab, ba)
			}
			for _, c := range values {
				if compareValues(a, b) <= 0 && compareValues(b, c) <= 0 && compareValues(a, c) > 0 {
					t.Errorf("order is not transitive: %v <= %v <= %v but %v > %v", a, b, c, a, c)
				}
			}
		}
	}
}

func TestCompareValues_Ranks(t *testing.T) {
	ordered := []any{
		"", -1.0, 2.0, "10",
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), "2024-02-01",
		false, "true",
		"1a", "B", "b",
	}
	for i := 0; i+1 < len(ordered); i++ {
		if got := compareValues(ordered[i], ordered[i+1]); got >= 0 {
			t.Errorf("compareValues(%v, %v) = %d, want < 0", ordered[i], ordered[i+1], got)
		}
	}
}

func TestTruthy(t *testing.T) {
	tests := []struct {
		input any
		want  bool
	}{
		{nil, false},
		{"", false},
		{"0", false},
		{"false", false},
		{"x", true},
		{0.0, false},
		{2.0, true},
		{true, true},
		{time.Now(), true},
	}

	for _, tt := range tests {
		if got := truthy(tt.input); got != tt.want {
			t.Errorf("truthy(%v) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestRowKey(t *testing.T) {
	if rowKey([]any{"11", "a"}) != rowKey([]any{11.0, "a"}) {
		t.Error("numeric string and number should share a row key")
	}
	if rowKey([]any{"a", "b"}) == rowKey([]any{"ab", ""}) {
		t.Error("row keys of different rows collide")
	}
}
