package query

import (
	"fmt"
	"math"
	"time"
)

// evalEnv is the row scope an expression is evaluated in. When group is
// set, aggregates fold over its rows and plain fields read the group's
// first row. During a join, fields of rightTable read rightRow.
type evalEnv struct {
	ex     *executor
	fields *TableFields
	row    int
	group  []int

	rightTable *Table
	rightRow   int
}

// atRow returns a scope for a single row of the same tables.
func (env *evalEnv) atRow(row int) *evalEnv {
	return &evalEnv{ex: env.ex, fields: env.fields, row: row, rightTable: env.rightTable, rightRow: env.rightRow}
}

func (env *evalEnv) valueOf(f *TableField) any {
	if env.rightTable != nil && f.table == env.rightTable {
		return f.value(env.rightRow)
	}
	if env.row < 0 {
		return nil
	}
	return f.value(env.row)
}

// boundField reads a field resolved ahead of time.
type boundField struct{ field *TableField }

func (e *boundField) eval(env *evalEnv) (any, error) {
	return env.valueOf(e.field), nil
}

func (e *literalExpr) eval(*evalEnv) (any, error) {
	return e.value, nil
}

func (e *fieldExpr) eval(env *evalEnv) (any, error) {
	f := env.fields.lookup(e.name)
	if f == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownField, e.name)
	}
	return env.valueOf(f), nil
}

func (e *bindExpr) eval(env *evalEnv) (any, error) {
	return env.ex.binds.Get(e.index)
}

func (e *callExpr) eval(env *evalEnv) (any, error) {
	if isAggregateFunction(e.name) {
		return env.aggregate(e)
	}
	args := make([]any, len(e.args))
	for i, arg := range e.args {
		v, err := arg.eval(env)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	v, err := e.fn.Evaluate(args)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEvaluation, err)
	}
	return normalizeValue(v), nil
}

func (e *unaryExpr) eval(env *evalEnv) (any, error) {
	v, err := e.operand.eval(env)
	if err != nil {
		return nil, err
	}
	if e.op == "NOT" {
		return !truthy(v), nil
	}
	if isBlank(v) {
		return nil, nil
	}
	f, ok := toNumber(v)
	if !ok {
		return nil, fmt.Errorf("%w: cannot negate %q", ErrEvaluation, FormatValue(v))
	}
	return -f, nil
}

func (e *binaryExpr) eval(env *evalEnv) (any, error) {
	left, err := e.left.eval(env)
	if err != nil {
		return nil, err
	}
	switch e.op {
	case "AND":
		if !truthy(left) {
			return false, nil
		}
		right, err := e.right.eval(env)
		if err != nil {
			return nil, err
		}
		return truthy(right), nil
	case "OR":
		if truthy(left) {
			return true, nil
		}
		right, err := e.right.eval(env)
		if err != nil {
			return nil, err
		}
		return truthy(right), nil
	}

	right, err := e.right.eval(env)
	if err != nil {
		return nil, err
	}
	if _, ok := fieldComparisons[e.op]; ok {
		return compare(e.op, left, right)
	}
	return arith(e.op, left, right)
}

// arith applies a math operator. + adds numbers and concatenates anything
// else; || always concatenates. NULL operands yield NULL.
func arith(op string, left, right any) (any, error) {
	if op == "||" {
		return FormatValue(left) + FormatValue(right), nil
	}
	if isBlank(left) || isBlank(right) {
		return nil, nil
	}

	l, lok := toNumber(left)
	r, rok := toNumber(right)
	if t, ok := left.(time.Time); ok && rok && (op == "+" || op == "-") {
		if op == "-" {
			r = -r
		}
		return t.AddDate(0, 0, int(r)), nil
	}
	if op == "+" && (!lok || !rok) {
		return FormatValue(left) + FormatValue(right), nil
	}
	if !lok || !rok {
		return nil, fmt.Errorf("%w: %q %s %q: operands must be numeric", ErrEvaluation, FormatValue(left), op, FormatValue(right))
	}

	switch op {
	case "+":
		return l + r, nil
	case "-":
		return l - r, nil
	case "*":
		return l * r, nil
	case "/":
		if r == 0 {
			return nil, fmt.Errorf("%w: division by zero", ErrEvaluation)
		}
		return l / r, nil
	case "%":
		if r == 0 {
			return nil, fmt.Errorf("%w: division by zero", ErrEvaluation)
		}
		return math.Mod(l, r), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrInvalidOperator, op)
}

func (e *caseExpr) eval(env *evalEnv) (any, error) {
	var subject any
	if e.operand != nil {
		v, err := e.operand.eval(env)
		if err != nil {
			return nil, err
		}
		subject = v
	}
	for _, w := range e.whens {
		cond, err := w.cond.eval(env)
		if err != nil {
			return nil, err
		}
		matched := truthy(cond)
		if e.operand != nil {
			matched = compareValues(subject, cond) == 0
		}
		if matched {
			return w.result.eval(env)
		}
	}
	if e.elseExpr != nil {
		return e.elseExpr.eval(env)
	}
	return nil, nil
}

func (e *inExpr) eval(env *evalEnv) (any, error) {
	v, err := e.operand.eval(env)
	if err != nil {
		return nil, err
	}
	var items []any
	if e.sub != nil {
		rs, err := env.ex.runSubquery(e.sub, env)
		if err != nil {
			return nil, err
		}
		items = rs.column(0)
	} else {
		for _, item := range e.list {
			iv, err := item.eval(env)
			if err != nil {
				return nil, err
			}
			items = append(items, iv)
		}
	}
	return inList(v, items) != e.not, nil
}

func (e *isNullExpr) eval(env *evalEnv) (any, error) {
	v, err := e.operand.eval(env)
	if err != nil {
		return nil, err
	}
	return isBlank(v) != e.not, nil
}

func (e *subqueryExpr) eval(env *evalEnv) (any, error) {
	rs, err := env.ex.runSubquery(e.stmt, env)
	if err != nil {
		return nil, err
	}
	return rs.scalar(), nil
}

func (e *existsExpr) eval(env *evalEnv) (any, error) {
	rs, err := env.ex.runSubquery(e.stmt, env)
	if err != nil {
		return nil, err
	}
	return (len(rs.rows) > 0) != e.not, nil
}
