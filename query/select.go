package query

import (
	"fmt"
	"maps"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// executor is the context of one Execute call: an immutable table
// snapshot, its own bind data and the caches scoped to this execution.
type executor struct {
	tables  map[string]*Table
	binds   *BindData
	exprs   map[string]Expr
	plans   map[planKey]*subPlan
	results map[*Select]*resultSet
}

func newExecutor(tables map[string]*Table, binds *BindData) *executor {
	return &executor{
		tables:  tables,
		binds:   binds,
		exprs:   make(map[string]Expr),
		plans:   make(map[planKey]*subPlan),
		results: make(map[*Select]*resultSet),
	}
}

// child creates the context for a nested execution. The table snapshot is
// copied only when tables are added; compiled expressions are shared.
func (ex *executor) child(binds *BindData, extra ...*Table) *executor {
	tables := ex.tables
	if len(extra) > 0 {
		tables = maps.Clone(ex.tables)
		for _, t := range extra {
			tables[t.Name] = t
		}
	}
	c := newExecutor(tables, binds)
	c.exprs = ex.exprs
	return c
}

// compile returns the compiled form of an expression, memoized per text.
func (ex *executor) compile(text string) (Expr, error) {
	if e, ok := ex.exprs[text]; ok {
		return e, nil
	}
	e, err := compileExpr(text)
	if err != nil {
		return nil, err
	}
	ex.exprs[text] = e
	return e, nil
}

// executeStatement runs a statement and its chained set operations.
func (ex *executor) executeStatement(stmt *Select) (*resultSet, error) {
	result, err := ex.executeSelect(stmt)
	if err != nil {
		return nil, err
	}
	for _, op := range stmt.SetOps {
		right, err := ex.executeStatement(op.Right)
		if err != nil {
			return nil, err
		}
		result, err = applySetOp(op.Kind, result, right)
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

// executeSelect runs one SELECT: resolve tables, join, filter, group,
// HAVING, DISTINCT, order and limit.
func (ex *executor) executeSelect(stmt *Select) (*resultSet, error) {
	if stmt.Pivot != "" {
		expanded, err := ex.expandPivot(stmt)
		if err != nil {
			return nil, err
		}
		stmt = expanded
	}

	primary, err := ex.resolveSource(stmt.From, false)
	if err != nil {
		return nil, err
	}
	sources := []*Table{primary}
	for i := range stmt.Joins {
		t, err := ex.resolveSource(&stmt.Joins[i].Source, true)
		if err != nil {
			return nil, err
		}
		sources = append(sources, t)
	}
	fields := newTableFields(sources...)

	columns, err := ex.selectColumns(stmt, fields)
	if err != nil {
		return nil, err
	}

	working := primary
	for i, j := range stmt.Joins {
		working, err = ex.join(working, sources[i+1], j, fields)
		if err != nil {
			return nil, err
		}
	}

	rows, err := ex.filter(working, fields, stmt.Where)
	if err != nil {
		return nil, fmt.Errorf("WHERE: %w", err)
	}

	visible := len(columns)
	type orderKey struct {
		col  int
		desc bool
	}
	var orderKeys []orderKey
	for _, item := range stmt.OrderBy {
		var col int
		columns, col, err = ex.columnFor(columns, fields, item.Expr)
		if err != nil {
			return nil, fmt.Errorf("ORDER BY %s: %w", item.Expr, err)
		}
		orderKeys = append(orderKeys, orderKey{col: col, desc: item.Desc})
	}

	var having Condition
	if stmt.Having != nil {
		having, columns, err = ex.havingCondition(stmt.Having, columns, fields)
		if err != nil {
			return nil, fmt.Errorf("HAVING: %w", err)
		}
	}

	grouped := len(stmt.GroupBy) > 0 || stmt.Having != nil
	for _, col := range columns {
		grouped = grouped || hasAggregate(col.expr)
	}

	var out [][]any
	if grouped {
		groups, err := ex.groupRows(rows, stmt.GroupBy, fields)
		if err != nil {
			return nil, err
		}
		for _, g := range groups {
			env := &evalEnv{ex: ex, fields: fields, row: -1, group: g}
			if len(g) > 0 {
				env.row = g[0]
			}
			record, err := evalColumns(columns, env)
			if err != nil {
				return nil, err
			}
			out = append(out, record)
		}
	} else {
		for _, r := range rows {
			record, err := evalColumns(columns, &evalEnv{ex: ex, fields: fields, row: r})
			if err != nil {
				return nil, err
			}
			out = append(out, record)
		}
	}

	if having != nil {
		out, err = ex.applyHaving(out, len(columns), having)
		if err != nil {
			return nil, fmt.Errorf("HAVING: %w", err)
		}
	}

	if stmt.Distinct {
		out = distinctRows(out, visible)
	}

	if len(orderKeys) > 0 {
		sort.SliceStable(out, func(a, b int) bool {
			for _, k := range orderKeys {
				c := compareValues(out[a][k.col], out[b][k.col])
				if k.desc {
					c = -c
				}
				if c != 0 {
					return c < 0
				}
			}
			return false
		})
	}

	titles := make([]string, visible)
	for i := range titles {
		titles[i] = columns[i].title
	}
	for i, row := range out {
		out[i] = row[:visible]
	}
	return &resultSet{titles: titles, rows: applyLimit(out, stmt.Limit)}, nil
}

func evalColumns(columns []*selectColumn, env *evalEnv) ([]any, error) {
	record := make([]any, len(columns))
	for i, col := range columns {
		v, err := col.expr.eval(env)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", col.title, err)
		}
		record[i] = v
	}
	return record, nil
}

// applyLimit applies OFFSET and LIMIT.
func applyLimit(rows [][]any, limit *Limit) [][]any {
	if limit == nil {
		return rows
	}
	if limit.Offset >= len(rows) {
		return rows[:0]
	}
	rows = rows[limit.Offset:]
	if limit.Count >= 0 && limit.Count < len(rows) {
		rows = rows[:limit.Count]
	}
	return rows
}

// resolveSource materializes a FROM or JOIN source. Join sources are always
// fresh copies so a table joined to itself yields distinct fields.
func (ex *executor) resolveSource(ref *TableRef, join bool) (*Table, error) {
	if ref == nil {
		return dualTable(), nil
	}
	if ref.Sub != nil {
		rs, err := ex.child(ex.binds.Clone()).executeStatement(ref.Sub)
		if err != nil {
			return nil, fmt.Errorf("derived table %s: %w", ref.Alias, err)
		}
		return newTableRaw(ref.Alias, rs.titles, rs.rows, false), nil
	}
	t, ok := ex.tables[ref.Table]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, ref.Table)
	}
	if ref.Alias != "" || join {
		t = t.WithAlias(ref.Alias)
	}
	return t, nil
}

// filter returns the indexes of the rows of t that satisfy cond.
func (ex *executor) filter(t *Table, fields *TableFields, cond Condition) ([]int, error) {
	rows := make([]int, 0, t.RowCount())
	if cond == nil {
		for r := 0; r < t.RowCount(); r++ {
			rows = append(rows, r)
		}
		return rows, nil
	}
	if err := ex.checkCondition(cond, fields); err != nil {
		return nil, err
	}
	for r := 0; r < t.RowCount(); r++ {
		ok, err := ex.evalCondition(cond, &evalEnv{ex: ex, fields: fields, row: r})
		if err != nil {
			return nil, err
		}
		if ok {
			rows = append(rows, r)
		}
	}
	return rows, nil
}

// checkCondition reports unknown fields before any row is read.
func (ex *executor) checkCondition(cond Condition, fields *TableFields) error {
	var check func(op Operand) error
	check = func(op Operand) error {
		switch o := op.(type) {
		case ColumnRef:
			if fields.lookup(o.Name) == nil {
				return fmt.Errorf("%w: %s", ErrUnknownField, o.Name)
			}
		case Calculated:
			if fields.lookup(o.Expr) != nil {
				return nil
			}
			e, err := ex.compile(o.Expr)
			if err != nil {
				return err
			}
			for _, name := range fieldNames(e) {
				if fields.lookup(name) == nil {
					return fmt.Errorf("%w: %s", ErrUnknownField, name)
				}
			}
		case ValueList:
			for _, item := range o.Items {
				if err := check(item); err != nil {
					return err
				}
			}
		}
		return nil
	}
	return walkCondition(cond, func(l *Leaf) error {
		if err := check(l.Left); err != nil {
			return err
		}
		return check(l.Right)
	})
}

func walkCondition(cond Condition, visit func(*Leaf) error) error {
	switch c := cond.(type) {
	case *Leaf:
		return visit(c)
	case *Logic:
		for _, term := range c.Terms {
			if err := walkCondition(term, visit); err != nil {
				return err
			}
		}
	}
	return nil
}

// evalCondition evaluates a condition tree for one row.
func (ex *executor) evalCondition(cond Condition, env *evalEnv) (bool, error) {
	switch c := cond.(type) {
	case *Logic:
		and := strings.EqualFold(c.Op, "AND")
		for _, term := range c.Terms {
			ok, err := ex.evalCondition(term, env)
			if err != nil {
				return false, err
			}
			if ok != and {
				return ok, nil
			}
		}
		return and, nil
	case *Leaf:
		left, err := ex.operandValue(c.Left, env, c.Op)
		if err != nil {
			return false, err
		}
		right, err := ex.operandValue(c.Right, env, c.Op)
		if err != nil {
			return false, err
		}
		return compare(c.Op, left, right)
	}
	return false, fmt.Errorf("%w: empty condition", ErrSyntax)
}

// operandValue resolves an operand for the row in env. Sub-selects yield
// their first column as a list for IN and EXISTS, and their first cell
// otherwise.
func (ex *executor) operandValue(op Operand, env *evalEnv, cmp string) (any, error) {
	switch o := op.(type) {
	case ColumnRef:
		f := env.fields.lookup(o.Name)
		if f == nil {
			return nil, fmt.Errorf("%w: %s", ErrUnknownField, o.Name)
		}
		return env.valueOf(f), nil
	case Literal:
		return o.Value, nil
	case BindRef:
		return ex.binds.Get(o.Index)
	case SubQuery:
		rs, err := ex.runSubquery(o.Stmt, env)
		if err != nil {
			return nil, err
		}
		switch strings.ToUpper(cmp) {
		case "IN", "NOT IN", "EXISTS", "NOT EXISTS":
			return rs.column(0), nil
		}
		return rs.scalar(), nil
	case Calculated:
		if f := env.fields.lookup(o.Expr); f != nil {
			return env.valueOf(f), nil
		}
		e, err := ex.compile(o.Expr)
		if err != nil {
			return nil, err
		}
		return e.eval(env)
	case ValueList:
		values := make([]any, len(o.Items))
		for i, item := range o.Items {
			v, err := ex.operandValue(item, env, "=")
			if err != nil {
				return nil, err
			}
			values[i] = v
		}
		return values, nil
	}
	return nil, fmt.Errorf("%w: unsupported operand %T", ErrSyntax, op)
}

// havingCondition maps every column reference of a HAVING condition onto
// a result column, adding temp columns for references outside the SELECT
// list, and rewrites the references to the columns' positional names.
func (ex *executor) havingCondition(cond Condition, columns []*selectColumn, fields *TableFields) (Condition, []*selectColumn, error) {
	var rewrite func(op Operand) (Operand, error)
	rewrite = func(op Operand) (Operand, error) {
		var ref string
		switch o := op.(type) {
		case ColumnRef:
			ref = o.Name
		case Calculated:
			ref = o.Expr
		case ValueList:
			out := ValueList{Items: make([]Operand, len(o.Items))}
			for i, item := range o.Items {
				r, err := rewrite(item)
				if err != nil {
					return nil, err
				}
				out.Items[i] = r
			}
			return out, nil
		default:
			return op, nil
		}
		var col int
		var err error
		columns, col, err = ex.columnFor(columns, fields, ref)
		if err != nil {
			return nil, err
		}
		return ColumnRef{Name: columnLetters(col)}, nil
	}

	var build func(c Condition) (Condition, error)
	build = func(c Condition) (Condition, error) {
		switch n := c.(type) {
		case *Logic:
			out := &Logic{Op: n.Op, Terms: make([]Condition, len(n.Terms))}
			for i, term := range n.Terms {
				t, err := build(term)
				if err != nil {
					return nil, err
				}
				out.Terms[i] = t
			}
			return out, nil
		case *Leaf:
			left, err := rewrite(n.Left)
			if err != nil {
				return nil, err
			}
			right, err := rewrite(n.Right)
			if err != nil {
				return nil, err
			}
			return &Leaf{Op: n.Op, Left: left, Right: right}, nil
		}
		return c, nil
	}

	out, err := build(cond)
	return out, columns, err
}

// applyHaving filters folded records by running
// SELECT * FROM <synthetic table> WHERE <having> on them.
func (ex *executor) applyHaving(records [][]any, width int, having Condition) ([][]any, error) {
	header := make([]string, width)
	for i := range header {
		header[i] = columnLetters(i)
	}
	name := "HAVING_" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	table := newTableRaw(name, header, records, false)

	stmt := &Select{
		Fields: []SelectField{{Expr: "*"}},
		From:   &TableRef{Table: name},
		Where:  having,
	}
	rs, err := ex.child(ex.binds.Clone(), table).executeStatement(stmt)
	if err != nil {
		return nil, err
	}
	return rs.rows, nil
}
