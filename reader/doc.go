// Package reader loads data files into the 2-D tables the query engine
// consumes: row 0 holds the column names and every following row holds
// one record.
//
// # Formats
//
// Parquet files are read with github.com/parquet-go/parquet-go. Nested
// groups are flattened into dotted column names and repeated fields are
// rendered as JSON text. CSV and TSV files are read with encoding/csv;
// cells that look like numbers become float64 unless they carry a leading
// zero.
//
//	data, err := reader.Load("books.csv", reader.Options{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	db := query.New().AddTableData("books", data.Rows, data.HasHeader)
//
// # Multi-file Operations
//
// A parquet path may be a glob pattern. All matching files are read into
// one table whose header is the union of their columns, with the source
// path of every row in the _file column:
//
//	rows, err := reader.ReadMultipleFiles("data/2024-*.parquet")
//
// # Schema Introspection
//
// ExtractSchemaInfo lists the leaf columns of a parquet file and
// SchemaTable turns that list into a table, so a schema can be filtered
// with SQL like any other data.
package reader
