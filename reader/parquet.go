package reader

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"
)

// FileColumn names the column added to rows read through a glob pattern.
const FileColumn = "_file"

// maxFiles caps the number of files a glob pattern may expand to.
const maxFiles = 1000

// Reader reads a parquet file into a table of rows.
//
// It keeps both the OS file handle and the parquet file handle so Close can
// release them.
type Reader struct {
	file    *os.File
	pqFile  *parquet.File
	columns []column
}

// column is one flattened leaf of a parquet schema. Groups are flattened
// into dotted names; repeated fields stay whole and read as JSON text.
type column struct {
	name string
	path []string
}

// NewReader opens a parquet file.
//
// Example:
//
//	r, err := reader.NewReader("books.parquet")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer r.Close()
func NewReader(path string) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	stat, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	pqFile, err := parquet.OpenFile(file, stat.Size())
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}

	return &Reader{
		file:    file,
		pqFile:  pqFile,
		columns: schemaColumns(pqFile.Schema().Fields(), nil),
	}, nil
}

func schemaColumns(fields []parquet.Field, prefix []string) []column {
	var cols []column
	for _, f := range fields {
		path := append(slices.Clone(prefix), f.Name())
		if !f.Leaf() && !f.Repeated() {
			cols = append(cols, schemaColumns(f.Fields(), path)...)
			continue
		}
		cols = append(cols, column{name: strings.Join(path, "."), path: path})
	}
	return cols
}

// Header returns the column names in schema order.
func (r *Reader) Header() []string {
	names := make([]string, len(r.columns))
	for i, c := range r.columns {
		names[i] = c.name
	}
	return names
}

// ReadAll reads the whole file. Row 0 of the result is the header.
func (r *Reader) ReadAll() ([][]any, error) {
	header := r.Header()
	out := [][]any{toRow(header)}

	pr := parquet.NewReader(r.pqFile)
	defer func() { _ = pr.Close() }()

	for {
		record := make(map[string]any)
		if err := pr.Read(&record); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("failed to read row: %w", err)
		}
		row := make([]any, len(r.columns))
		for i, c := range r.columns {
			row[i] = cellValue(lookupPath(record, c.path))
		}
		out = append(out, row)
	}
	return out, nil
}

// Schema returns the parquet file schema.
func (r *Reader) Schema() *parquet.Schema {
	return r.pqFile.Schema()
}

// Close releases the file handle. It is safe to call more than once.
func (r *Reader) Close() error {
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

// ReadParquet reads a single parquet file. Row 0 is the header.
func ReadParquet(path string) ([][]any, error) {
	r, err := NewReader(path)
	if err != nil {
		return nil, err
	}
	rows, readErr := r.ReadAll()
	closeErr := r.Close()
	if readErr != nil {
		return nil, readErr
	}
	if closeErr != nil {
		return nil, fmt.Errorf("failed to close %s: %w", path, closeErr)
	}
	return rows, nil
}

// ReadMultipleFiles reads every parquet file matching a glob pattern into
// one table. The header is the union of the files' columns in order of
// first appearance, and each row carries its source path in FileColumn.
// A pattern without wildcards reads that single file with no FileColumn.
func ReadMultipleFiles(pattern string) ([][]any, error) {
	if !isGlob(pattern) {
		return ReadParquet(pattern)
	}

	matches, err := expandGlob(pattern)
	if err != nil {
		return nil, err
	}

	type fileRow struct {
		cells []any
		path  string
	}

	var header []string
	index := make(map[string]int)
	var rows []fileRow
	for _, path := range matches {
		table, err := ReadParquet(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}

		positions := make([]int, len(table[0]))
		for i, name := range table[0] {
			key := name.(string)
			pos, ok := index[key]
			if !ok {
				pos = len(header)
				index[key] = pos
				header = append(header, key)
			}
			positions[i] = pos
		}

		for _, src := range table[1:] {
			cells := make([]any, len(header))
			for i, v := range src {
				cells[positions[i]] = v
			}
			rows = append(rows, fileRow{cells: cells, path: path})
		}
	}

	// rows read before a later file widened the header are padded so that
	// FileColumn stays last
	out := make([][]any, 0, len(rows)+1)
	out = append(out, toRow(append(slices.Clone(header), FileColumn)))
	for _, r := range rows {
		row := make([]any, len(header)+1)
		copy(row, r.cells)
		row[len(header)] = r.path
		out = append(out, row)
	}
	return out, nil
}

func isGlob(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[")
}

func expandGlob(pattern string) ([]string, error) {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid glob pattern: %w", err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no files match pattern: %s", pattern)
	}
	if len(matches) > maxFiles {
		return nil, fmt.Errorf("glob pattern matched too many files (%d), maximum is %d", len(matches), maxFiles)
	}
	return matches, nil
}

// lookupPath descends nested records along path. It stops early at a
// value that is not a record and returns that value whole.
func lookupPath(record map[string]any, path []string) any {
	var v any = record
	for _, key := range path {
		m, ok := v.(map[string]any)
		if !ok {
			return v
		}
		v = m[key]
	}
	return v
}

// cellValue converts a decoded parquet value into an engine cell.
func cellValue(v any) any {
	switch val := v.(type) {
	case []byte:
		return string(val)
	case nil, time.Time:
		return v
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(data)
	}
	return v
}

func toRow(names []string) []any {
	row := make([]any, len(names))
	for i, name := range names {
		row[i] = name
	}
	return row
}
