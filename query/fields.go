package query

import (
	"fmt"
	"strconv"
	"strings"
)

// TableField is one logical column in play for a SELECT. It starts out
// pointing at its source table and is re-pointed at each join result.
type TableField struct {
	table  *Table
	column int

	origin    *Table
	originCol int
	names     []string
}

// Table returns the table the field currently reads from.
func (f *TableField) Table() *Table { return f.table }

// Names returns every normalized name the field answers to.
func (f *TableField) Names() []string { return f.names }

func (f *TableField) value(row int) any {
	return f.table.Value(row, f.column)
}

// title is the header the field gets from a * expansion.
func (f *TableField) title(extended bool) string {
	if extended {
		return f.origin.ExtendedNames()[f.originCol]
	}
	return f.origin.Header()[f.originCol]
}

// TableFields is the field directory of one SELECT: every column of the
// FROM table and all JOIN tables, reachable by each of its names. Names of
// earlier tables shadow identical names of later ones.
type TableFields struct {
	tables []*Table
	fields []*TableField
	byName map[string]*TableField
}

func newTableFields(tables ...*Table) *TableFields {
	d := &TableFields{byName: make(map[string]*TableField)}
	for _, t := range tables {
		d.addTable(t)
	}
	return d
}

func (d *TableFields) addTable(t *Table) {
	for _, known := range d.tables {
		if known == t {
			return
		}
	}
	d.tables = append(d.tables, t)
	for col := 0; col < t.Width(); col++ {
		f := &TableField{table: t, column: col, origin: t, originCol: col}
		for _, name := range t.Schema().Names(col) {
			f.names = append(f.names, name)
			if _, taken := d.byName[name]; !taken {
				d.byName[name] = f
			}
		}
		d.fields = append(d.fields, f)
	}
}

// lookup resolves a column reference, ignoring case and whitespace.
func (d *TableFields) lookup(name string) *TableField {
	return d.byName[normalizeName(name)]
}

// repoint moves every field reading from left or right onto derived, whose
// columns are left's followed by right's.
func (d *TableFields) repoint(left, right, derived *Table) {
	for _, f := range d.fields {
		switch f.table {
		case left:
			f.table = derived
		case right:
			f.table = derived
			f.column += left.Width()
		}
	}
}

// selectColumn is one output column of a SELECT. Temp columns feed ORDER BY
// and HAVING and are dropped before the result is returned.
type selectColumn struct {
	title string
	text  string
	expr  Expr
	field *TableField
	temp  bool
}

// selectColumns classifies the SELECT list: * expansions, direct field
// references, constants, calculated formulas and sub-selects.
func (ex *executor) selectColumns(stmt *Select, fields *TableFields) ([]*selectColumn, error) {
	joined := len(stmt.Joins) > 0
	var columns []*selectColumn
	for _, item := range stmt.Fields {
		if item.Sub != nil {
			columns = append(columns, &selectColumn{
				title: item.Title(),
				text:  normalizeName(item.Expr),
				expr:  &subqueryExpr{stmt: item.Sub},
			})
			continue
		}

		expr := strings.TrimSpace(item.Expr)
		if expr == "*" || strings.HasSuffix(expr, ".*") {
			expanded, err := fields.expandStar(strings.TrimSuffix(strings.TrimSuffix(expr, "*"), "."), joined)
			if err != nil {
				return nil, err
			}
			columns = append(columns, expanded...)
			continue
		}

		col, err := ex.newColumn(item.Expr, fields)
		if err != nil {
			return nil, err
		}
		col.title = item.Title()
		columns = append(columns, col)
	}
	return columns, nil
}

// newColumn compiles a column expression and checks its field references.
func (ex *executor) newColumn(text string, fields *TableFields) (*selectColumn, error) {
	compiled, err := ex.compile(text)
	if err != nil {
		return nil, err
	}
	for _, name := range fieldNames(compiled) {
		if fields.lookup(name) == nil {
			return nil, fmt.Errorf("%w: %s", ErrUnknownField, name)
		}
	}
	col := &selectColumn{title: text, text: normalizeName(text), expr: compiled}
	if f, ok := compiled.(*fieldExpr); ok {
		col.field = fields.lookup(f.name)
	}
	return col, nil
}

// expandStar returns one column per field of the qualified table, or of
// every table when qualifier is empty.
func (d *TableFields) expandStar(qualifier string, joined bool) ([]*selectColumn, error) {
	var columns []*selectColumn
	for _, f := range d.fields {
		if qualifier != "" && !f.origin.answersTo(qualifier) {
			continue
		}
		columns = append(columns, &selectColumn{
			title: f.title(joined),
			text:  f.names[0],
			expr:  &boundField{field: f},
			field: f,
		})
	}
	if qualifier != "" && len(columns) == 0 {
		return nil, fmt.Errorf("%w: %s.*", ErrUnknownTable, qualifier)
	}
	return columns, nil
}

// matchColumn finds the column an ORDER BY or HAVING reference names: a
// 1-based position, a title or alias, the column's expression text, or
// the same underlying field. It returns -1 when nothing matches.
func matchColumn(columns []*selectColumn, fields *TableFields, ref string) int {
	ref = strings.TrimSpace(ref)
	if n, err := strconv.Atoi(ref); err == nil {
		visible := 0
		for i, col := range columns {
			if col.temp {
				continue
			}
			visible++
			if visible == n {
				return i
			}
		}
		return -1
	}

	norm := normalizeName(ref)
	for i, col := range columns {
		if normalizeName(col.title) == norm {
			return i
		}
	}
	for i, col := range columns {
		if col.text == norm {
			return i
		}
	}
	if f := fields.lookup(ref); f != nil {
		for i, col := range columns {
			if col.field == f {
				return i
			}
		}
	}
	return -1
}

// columnFor returns the index of the column matching ref, appending a temp
// column when none does.
func (ex *executor) columnFor(columns []*selectColumn, fields *TableFields, ref string) ([]*selectColumn, int, error) {
	if i := matchColumn(columns, fields, ref); i >= 0 {
		return columns, i, nil
	}
	col, err := ex.newColumn(ref, fields)
	if err != nil {
		return nil, 0, err
	}
	col.temp = true
	columns = append(columns, col)
	return columns, len(columns) - 1, nil
}
