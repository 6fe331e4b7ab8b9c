package reader

import (
	"path/filepath"
	"testing"
)

func schemaByName(t *testing.T, path string) map[string]SchemaInfo {
	t.Helper()
	infos, err := ExtractSchemaInfo(path)
	if err != nil {
		t.Fatalf("ExtractSchemaInfo() error = %v", err)
	}
	fields := make(map[string]SchemaInfo, len(infos))
	for _, info := range infos {
		fields[info.Name] = info
	}
	return fields
}

func TestExtractSchemaInfo_PrimitiveTypes(t *testing.T) {
	type Row struct {
		ID       int64   `parquet:"id"`
		Name     string  `parquet:"name"`
		Age      int32   `parquet:"age"`
		Score    float64 `parquet:"score"`
		Ratio    float32 `parquet:"ratio"`
		Active   bool    `parquet:"active"`
		Optional *string `parquet:"optional,optional"`
	}

	path := filepath.Join(t.TempDir(), "types.parquet")
	writeParquet(t, path, []Row{{ID: 1, Name: "Alice", Age: 30, Score: 95.5, Active: true}})

	fields := schemaByName(t, path)
	if len(fields) != 7 {
		t.Errorf("ExtractSchemaInfo() returned %d fields, want 7", len(fields))
	}

	tests := []struct {
		name     string
		wantType string
		physical string
	}{
		{"id", "INT64", "INT64"},
		{"name", "STRING", "BYTE_ARRAY"},
		{"age", "INT32", "INT32"},
		{"score", "FLOAT64", "DOUBLE"},
		{"ratio", "FLOAT32", "FLOAT"},
		{"active", "BOOLEAN", "BOOLEAN"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, ok := fields[tt.name]
			if !ok {
				t.Fatalf("%s not found in schema", tt.name)
			}
			if info.Type != tt.wantType || info.PhysicalType != tt.physical {
				t.Errorf("%s = %s/%s, want %s/%s", tt.name, info.Type, info.PhysicalType, tt.wantType, tt.physical)
			}
		})
	}

	if !fields["id"].Required {
		t.Error("id should be required")
	}
	if !fields["optional"].Optional {
		t.Error("optional should be optional")
	}
}

func TestExtractSchemaInfo_NestedAndRepeated(t *testing.T) {
	type Address struct {
		Street string `parquet:"street"`
		City   string `parquet:"city"`
	}
	type Row struct {
		ID      int64    `parquet:"id"`
		Address Address  `parquet:"address"`
		Tags    []string `parquet:"tags"`
	}

	path := filepath.Join(t.TempDir(), "nested.parquet")
	writeParquet(t, path, []Row{{ID: 1, Address: Address{Street: "1 Main", City: "X"}, Tags: []string{"a"}}})

	fields := schemaByName(t, path)
	for _, name := range []string{"address.street", "address.city"} {
		if _, ok := fields[name]; !ok {
			t.Errorf("%s not found in schema", name)
		}
	}
	if !fields["tags"].Repeated {
		t.Error("tags should be repeated")
	}
	if fields["id"].Repeated {
		t.Error("id should not be repeated")
	}
}

func TestExtractSchemaInfo_GlobUsesFirstMatch(t *testing.T) {
	dir := t.TempDir()
	writeParquet(t, filepath.Join(dir, "a.parquet"), []bookRow{{ID: 1}})
	writeParquet(t, filepath.Join(dir, "b.parquet"), []bookRow{{ID: 2}})

	infos, err := ExtractSchemaInfo(filepath.Join(dir, "*.parquet"))
	if err != nil {
		t.Fatalf("ExtractSchemaInfo() error = %v", err)
	}
	if len(infos) != 3 {
		t.Errorf("ExtractSchemaInfo() returned %d fields, want 3", len(infos))
	}

	if _, err := ExtractSchemaInfo(filepath.Join(dir, "*.none")); err == nil {
		t.Error("ExtractSchemaInfo() expected error when nothing matches")
	}
	if _, err := ExtractSchemaInfo(filepath.Join(dir, "missing.parquet")); err == nil {
		t.Error("ExtractSchemaInfo() expected error for a missing file")
	}
}

func TestSchemaTable(t *testing.T) {
	rows := SchemaTable([]SchemaInfo{
		{Name: "id", Type: "INT64", PhysicalType: "INT64", Required: true},
		{Name: "name", Type: "STRING", PhysicalType: "BYTE_ARRAY", LogicalType: "STRING", Optional: true},
	})
	if len(rows) != 3 {
		t.Fatalf("SchemaTable() returned %d rows, want 3", len(rows))
	}
	if len(rows[0]) != len(SchemaHeader) || rows[0][0] != "name" {
		t.Errorf("header = %v", rows[0])
	}
	if rows[2][0] != "name" || rows[2][5] != true {
		t.Errorf("row = %v", rows[2])
	}
}
