package query

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// derivedTableName is the reserved name of a join result.
const derivedTableName = "DERIVEDTABLE"

// Table is an immutable row store with a header row. Aliasing and joins
// produce new tables that share row storage.
type Table struct {
	Name    string
	Alias   string
	header  []string
	rows    [][]any
	schema  *Schema
	derived bool
}

// NewTable wraps a 2-D array. Row 0 is the header when hasHeader is true;
// otherwise spreadsheet column letters are used. Rows are padded to the
// header width, trailing blank rows are trimmed and integers are
// normalized to float64.
func NewTable(name string, data [][]any, hasHeader bool) *Table {
	width := 0
	for _, row := range data {
		width = max(width, len(row))
	}

	var header []string
	body := data
	if hasHeader && len(data) > 0 {
		header = make([]string, width)
		for i := range header {
			if i < len(data[0]) {
				header[i] = strings.TrimSpace(FormatValue(data[0][i]))
			}
		}
		body = data[1:]
	} else {
		header = make([]string, width)
		for i := range header {
			header[i] = columnLetters(i)
		}
	}

	rows := make([][]any, len(body))
	for i, src := range body {
		row := make([]any, width)
		for j := range row {
			if j < len(src) {
				row[j] = normalizeValue(src[j])
			} else {
				row[j] = ""
			}
		}
		rows[i] = row
	}
	for len(rows) > 0 && blankRow(rows[len(rows)-1]) {
		rows = rows[:len(rows)-1]
	}

	t := &Table{Name: strings.ToUpper(name), header: header, rows: rows}
	t.schema = newSchema(t)
	return t
}

// newDerivedTable builds a join result whose header is already in extended
// notation.
func newDerivedTable(header []string, rows [][]any) *Table {
	return newTableRaw(derivedTableName, header, rows, true)
}

// newTableRaw wraps engine-produced rows as they are.
func newTableRaw(name string, header []string, rows [][]any, derived bool) *Table {
	t := &Table{Name: strings.ToUpper(name), header: header, rows: rows, derived: derived}
	t.schema = newSchema(t)
	return t
}

// dualTable is the source of a SELECT without FROM: one row, no columns.
func dualTable() *Table {
	return newTableRaw("DUAL", nil, [][]any{{}}, false)
}

// WithAlias returns a copy of the table answering to alias. Row storage is
// shared.
func (t *Table) WithAlias(alias string) *Table {
	c := *t
	c.Alias = strings.ToUpper(alias)
	c.schema = newSchema(&c)
	return &c
}

// Header returns the column titles.
func (t *Table) Header() []string { return t.header }

// Width returns the number of columns.
func (t *Table) Width() int { return len(t.header) }

// RowCount returns the number of data rows.
func (t *Table) RowCount() int { return len(t.rows) }

// Row returns data row i.
func (t *Table) Row(i int) []any { return t.rows[i] }

// Value returns the cell at data row i, column col. Out of range reads
// return nil.
func (t *Table) Value(i, col int) any {
	if i < 0 || i >= len(t.rows) || col < 0 || col >= len(t.rows[i]) {
		return nil
	}
	return t.rows[i][col]
}

// Schema returns the table's name-to-column map.
func (t *Table) Schema() *Schema { return t.schema }

// ExtendedNames returns the alias- or table-qualified column titles used
// for join headers.
func (t *Table) ExtendedNames() []string {
	if t.derived {
		return t.header
	}
	prefix := t.Name
	if t.Alias != "" {
		prefix = t.Alias
	}
	names := make([]string, len(t.header))
	for i, title := range t.header {
		names[i] = prefix + "." + title
	}
	return names
}

// answersTo reports whether name is the table's name or alias.
func (t *Table) answersTo(name string) bool {
	name = strings.ToUpper(name)
	return name == t.Name || (t.Alias != "" && name == t.Alias)
}

// Schema maps normalized column names to column indexes. Every column is
// reachable by its bare title, TABLE.title and ALIAS.title; the first
// registration of a name wins.
type Schema struct {
	columns map[string]int
	names   [][]string
}

func newSchema(t *Table) *Schema {
	s := &Schema{columns: make(map[string]int), names: make([][]string, len(t.header))}
	for col, title := range t.header {
		norm := normalizeName(title)
		variants := []string{norm}
		if bare := bareName(norm); bare != norm {
			variants = append(variants, bare)
		}
		var qualified []string
		for _, v := range variants {
			qualified = append(qualified, t.Name+"."+v)
			if t.Alias != "" {
				qualified = append(qualified, t.Alias+"."+v)
			}
		}
		for _, name := range append(variants, qualified...) {
			if _, taken := s.columns[name]; !taken {
				s.columns[name] = col
			}
			s.names[col] = append(s.names[col], name)
		}
	}
	return s
}

// Column returns the index of a column by any of its names.
func (s *Schema) Column(name string) (int, bool) {
	col, ok := s.columns[normalizeName(name)]
	return col, ok
}

// Names returns every normalized name column col answers to.
func (s *Schema) Names(col int) []string {
	return s.names[col]
}

// normalizeName upper-cases a column reference and strips whitespace
// outside quotes, so `Books.Title`, `BOOKS.TITLE` and `books . title`
// compare equal.
func normalizeName(name string) string {
	var b strings.Builder
	var quote rune
	for _, r := range name {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
			b.WriteRune(r)
		case r == '\'' || r == '"':
			quote = r
			b.WriteRune(r)
		case r == '`' || r == '[' || r == ']':
		case unicode.IsSpace(r):
		default:
			b.WriteRune(unicode.ToUpper(r))
		}
	}
	return b.String()
}

// bareName strips the qualifier of a simple qualified identifier:
// T.COL -> COL. Anything that is not a plain dotted identifier is
// returned unchanged.
func bareName(norm string) string {
	dot := strings.LastIndexByte(norm, '.')
	if dot <= 0 || dot == len(norm)-1 {
		return norm
	}
	for _, r := range norm {
		if !(r == '.' || r == '_' || r == '$' || r == '#' || unicode.IsLetter(r) || unicode.IsDigit(r)) {
			return norm
		}
	}
	return norm[dot+1:]
}

// columnLetters returns the spreadsheet letters for a 0-based column.
func columnLetters(i int) string {
	var letters []byte
	for i++; i > 0; i = (i - 1) / 26 {
		letters = append([]byte{byte('A' + (i-1)%26)}, letters...)
	}
	return string(letters)
}

func blankRow(row []any) bool {
	for _, v := range row {
		if !isBlank(v) {
			return false
		}
	}
	return true
}

// normalizeValue converts loader types to the engine's cell types.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case nil, string, float64, bool, time.Time:
		return v
	case []byte:
		return string(val)
	case *time.Time:
		if val == nil {
			return nil
		}
		return *val
	case time.Duration:
		return val.String()
	default:
		if f, ok := toFloat64(v); ok {
			return f
		}
		return FormatValue(v)
	}
}

// FormatValue renders a cell as text: NULL is empty, numbers use the
// shortest exact form, dates use ISO layouts.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case time.Time:
		if val.Hour() == 0 && val.Minute() == 0 && val.Second() == 0 && val.Nanosecond() == 0 {
			return val.Format("2006-01-02")
		}
		return val.Format("2006-01-02 15:04:05")
	case []byte:
		return string(val)
	default:
		if f, ok := toFloat64(v); ok {
			return strconv.FormatFloat(f, 'f', -1, 64)
		}
		if s, ok := v.(interface{ String() string }); ok {
			return s.String()
		}
		return fmt.Sprint(v)
	}
}
