package reader

import (
	"fmt"

	"github.com/parquet-go/parquet-go"
)

// SchemaInfo describes one leaf column of a parquet file.
type SchemaInfo struct {
	Name         string `json:"name"`
	Type         string `json:"type"`
	PhysicalType string `json:"physical_type"`
	LogicalType  string `json:"logical_type"`
	Required     bool   `json:"required"`
	Optional     bool   `json:"optional"`
	Repeated     bool   `json:"repeated"`
}

// SchemaHeader is the header row of SchemaTable.
var SchemaHeader = []string{"name", "type", "physical_type", "logical_type", "required", "optional", "repeated"}

var physicalNames = map[parquet.Kind]string{
	parquet.Boolean:           "BOOLEAN",
	parquet.Int32:             "INT32",
	parquet.Int64:             "INT64",
	parquet.Int96:             "INT96",
	parquet.Float:             "FLOAT",
	parquet.Double:            "DOUBLE",
	parquet.ByteArray:         "BYTE_ARRAY",
	parquet.FixedLenByteArray: "FIXED_LEN_BYTE_ARRAY",
}

// friendlyLogical maps logical type names that are shown as is.
var friendlyLogical = map[string]string{
	"STRING": "STRING", "UTF8": "STRING", "ENUM": "ENUM", "UUID": "UUID",
	"DATE": "DATE", "TIME": "TIME", "TIMESTAMP": "TIMESTAMP",
	"DECIMAL": "DECIMAL", "JSON": "JSON", "BSON": "BSON",
}

// ExtractSchemaInfo reads the schema of a parquet file. A glob pattern
// reads the schema of its first match. Nested leaves use dotted names.
func ExtractSchemaInfo(path string) ([]SchemaInfo, error) {
	if isGlob(path) {
		matches, err := expandGlob(path)
		if err != nil {
			return nil, err
		}
		path = matches[0]
	}

	r, err := NewReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer func() { _ = r.Close() }()

	var infos []SchemaInfo
	for _, field := range r.Schema().Fields() {
		infos = appendFieldInfo(infos, field, "", false)
	}
	return infos, nil
}

// appendFieldInfo adds the leaves under field. Repetition of any ancestor
// marks its leaves repeated.
func appendFieldInfo(infos []SchemaInfo, field parquet.Field, prefix string, parentRepeated bool) []SchemaInfo {
	name := field.Name()
	if prefix != "" {
		name = prefix + "." + name
	}
	repeated := parentRepeated || field.Repeated()

	if children := field.Fields(); len(children) > 0 {
		for _, child := range children {
			infos = appendFieldInfo(infos, child, name, repeated)
		}
		return infos
	}

	return append(infos, SchemaInfo{
		Name:         name,
		Type:         friendlyType(field),
		PhysicalType: physicalType(field),
		LogicalType:  logicalType(field),
		Required:     field.Required(),
		Optional:     field.Optional(),
		Repeated:     repeated,
	})
}

func physicalType(field parquet.Field) string {
	if field.Type() == nil {
		return "GROUP"
	}
	if name, ok := physicalNames[field.Type().Kind()]; ok {
		return name
	}
	return "UNKNOWN"
}

func logicalType(field parquet.Field) string {
	if field.Type() == nil || field.Type().LogicalType() == nil {
		return ""
	}
	return field.Type().LogicalType().String()
}

// friendlyType prefers the logical type and falls back to the physical
// one, naming floats by width.
func friendlyType(field parquet.Field) string {
	if field.Type() == nil {
		return "GROUP"
	}
	if name, ok := friendlyLogical[logicalType(field)]; ok {
		return name
	}
	switch field.Type().Kind() {
	case parquet.Float:
		return "FLOAT32"
	case parquet.Double:
		return "FLOAT64"
	}
	return physicalType(field)
}

// SchemaTable renders schema information as a table with SchemaHeader as
// row 0, so it can be queried like data.
func SchemaTable(infos []SchemaInfo) [][]any {
	rows := make([][]any, 0, len(infos)+1)
	rows = append(rows, toRow(SchemaHeader))
	for _, info := range infos {
		rows = append(rows, []any{
			info.Name, info.Type, info.PhysicalType, info.LogicalType,
			info.Required, info.Optional, info.Repeated,
		})
	}
	return rows
}
