package output

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"testing"
	"time"
)

func TestJSONFormatter_Format(t *testing.T) {
	var buf bytes.Buffer
	header := []string{"id", "name", "score", "active", "note", "born"}
	rows := [][]any{
		{1.0, "alice", 95.5, true, nil, time.Date(1990, 1, 2, 0, 0, 0, 0, time.UTC)},
		{2.0, "bob", 70.0, false, "x"},
	}
	if err := NewJSONFormatter(&buf).Format(header, rows); err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	want := `{"id":1,"name":"alice","score":95.5,"active":true,"note":null,"born":"1990-01-02"}` + "\n" +
		`{"id":2,"name":"bob","score":70,"active":false,"note":"x","born":null}` + "\n"
	if buf.String() != want {
		t.Errorf("Format() =\n%s\nwant\n%s", buf.String(), want)
	}
}

func TestJSONFormatter_ValidLines(t *testing.T) {
	var buf bytes.Buffer
	header := []string{"id", "id", "quote \"k\""}
	rows := [][]any{{1.0, 2.0, math.Inf(1)}}
	if err := NewJSONFormatter(&buf).Format(header, rows); err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("Format() produced %d lines, want 1", len(lines))
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &obj); err != nil {
		t.Fatalf("line is not valid JSON: %v", err)
	}
	if obj["id"] != 1.0 || obj["id_2"] != 2.0 {
		t.Errorf("duplicate titles = %v, want id and id_2", obj)
	}
	if _, ok := obj[`quote "k"`].(string); !ok {
		t.Errorf("infinite value should be rendered as text: %v", obj)
	}
}

func TestJSONFormatter_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := NewJSONFormatter(&buf).Format([]string{"id"}, nil); err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("Format() output = %q, want empty", buf.String())
	}
}
