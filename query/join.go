package query

import (
	"fmt"
	"sort"
)

// side tells which join input an ON operand reads from.
type side int

const (
	sideConst side = iota
	sideLeft
	sideRight
	sideBoth
)

// join materializes left JOIN right into a new derived table and re-points
// every field at it.
func (ex *executor) join(left, right *Table, j Join, fields *TableFields) (*Table, error) {
	matches, err := ex.joinMatches(left, right, j.On, fields)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", j.Kind, j.Source.Table, err)
	}

	header := make([]string, 0, left.Width()+right.Width())
	header = append(header, left.ExtendedNames()...)
	header = append(header, right.ExtendedNames()...)

	pair := func(l, r int) []any {
		row := make([]any, 0, len(header))
		row = appendCells(row, left, l)
		return appendCells(row, right, r)
	}

	var rows [][]any
	switch j.Kind {
	case InnerJoin:
		for l, rs := range matches {
			for _, r := range rs {
				rows = append(rows, pair(l, r))
			}
		}
	case LeftJoin, FullJoin:
		matched := make([]bool, right.RowCount())
		for l, rs := range matches {
			if len(rs) == 0 {
				rows = append(rows, pair(l, -1))
				continue
			}
			for _, r := range rs {
				matched[r] = true
				rows = append(rows, pair(l, r))
			}
		}
		if j.Kind == FullJoin {
			for r, seen := range matched {
				if !seen {
					rows = append(rows, pair(-1, r))
				}
			}
		}
	case RightJoin:
		byRight := make([][]int, right.RowCount())
		for l, rs := range matches {
			for _, r := range rs {
				byRight[r] = append(byRight[r], l)
			}
		}
		for r, ls := range byRight {
			if len(ls) == 0 {
				rows = append(rows, pair(-1, r))
				continue
			}
			for _, l := range ls {
				rows = append(rows, pair(l, r))
			}
		}
	}

	derived := newDerivedTable(header, rows)
	fields.repoint(left, right, derived)
	return derived, nil
}

// appendCells appends row i of t, or blanks for the unmatched marker -1.
func appendCells(dst []any, t *Table, i int) []any {
	if i < 0 {
		for j := 0; j < t.Width(); j++ {
			dst = append(dst, "")
		}
		return dst
	}
	return append(dst, t.Row(i)...)
}

// joinMatches returns, for every left row, the sorted right rows the
// condition accepts.
func (ex *executor) joinMatches(left, right *Table, cond Condition, fields *TableFields) ([][]int, error) {
	switch c := cond.(type) {
	case *Logic:
		var result [][]int
		for i, term := range c.Terms {
			m, err := ex.joinMatches(left, right, term, fields)
			if err != nil {
				return nil, err
			}
			if i == 0 {
				result = m
				continue
			}
			for l := range result {
				if c.Op == "AND" {
					result[l] = intersectSorted(result[l], m[l])
				} else {
					result[l] = unionSorted(result[l], m[l])
				}
			}
		}
		return result, nil
	case *Leaf:
		return ex.leafMatches(left, right, c, fields)
	}
	return nil, fmt.Errorf("%w: missing ON condition", ErrInvalidJoin)
}

// leafMatches evaluates one ON comparison. An equality between a left-only
// and a right-only operand uses a hash of the right keys built once; any
// other comparison tests every pair.
func (ex *executor) leafMatches(left, right *Table, leaf *Leaf, fields *TableFields) ([][]int, error) {
	if _, ok := fieldComparisons[leaf.Op]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidOperator, leaf.Op)
	}
	ls, err := ex.operandSide(leaf.Left, left, right, fields)
	if err != nil {
		return nil, err
	}
	rs, err := ex.operandSide(leaf.Right, left, right, fields)
	if err != nil {
		return nil, err
	}

	lOperand, rOperand, op := leaf.Left, leaf.Right, leaf.Op
	if ls == sideRight && rs == sideLeft {
		if flipped, ok := flipOperator(op); ok {
			lOperand, rOperand, op = rOperand, lOperand, flipped
			ls, rs = rs, ls
		}
	}

	leftEnv := func(l int) *evalEnv {
		return &evalEnv{ex: ex, fields: fields, row: l, rightTable: right, rightRow: -1}
	}
	rightEnv := func(r int) *evalEnv {
		return &evalEnv{ex: ex, fields: fields, row: -1, rightTable: right, rightRow: r}
	}

	matches := make([][]int, left.RowCount())

	// Blank keys never satisfy an ON equality.
	equality := op == "=" || op == "=="
	if equality && ls == sideLeft && rs == sideRight {
		index := make(map[string][]int)
		for r := 0; r < right.RowCount(); r++ {
			v, err := ex.operandValue(rOperand, rightEnv(r), op)
			if err != nil {
				return nil, err
			}
			if isBlank(v) {
				continue
			}
			key := keyString(v)
			index[key] = append(index[key], r)
		}
		for l := range matches {
			v, err := ex.operandValue(lOperand, leftEnv(l), op)
			if err != nil {
				return nil, err
			}
			if isBlank(v) {
				continue
			}
			matches[l] = index[keyString(v)]
		}
		return matches, nil
	}

	for l := range matches {
		for r := 0; r < right.RowCount(); r++ {
			env := &evalEnv{ex: ex, fields: fields, row: l, rightTable: right, rightRow: r}
			lv, err := ex.operandValue(lOperand, env, op)
			if err != nil {
				return nil, err
			}
			rv, err := ex.operandValue(rOperand, env, op)
			if err != nil {
				return nil, err
			}
			if equality && (isBlank(lv) || isBlank(rv)) {
				continue
			}
			ok, err := compare(op, lv, rv)
			if err != nil {
				return nil, err
			}
			if ok {
				matches[l] = append(matches[l], r)
			}
		}
	}
	return matches, nil
}

// operandSide resolves which join input an ON operand reads from. Fields
// of tables joined later belong to neither input.
func (ex *executor) operandSide(op Operand, left, right *Table, fields *TableFields) (side, error) {
	var names []string
	switch o := op.(type) {
	case ColumnRef:
		names = []string{o.Name}
	case Calculated:
		if fields.lookup(o.Expr) != nil {
			names = []string{o.Expr}
			break
		}
		e, err := ex.compile(o.Expr)
		if err != nil {
			return sideConst, err
		}
		names = fieldNames(e)
	case ValueList:
		s := sideConst
		for _, item := range o.Items {
			is, err := ex.operandSide(item, left, right, fields)
			if err != nil {
				return sideConst, err
			}
			s = mergeSide(s, is)
		}
		return s, nil
	default:
		return sideConst, nil
	}

	s := sideConst
	for _, name := range names {
		f := fields.lookup(name)
		if f == nil {
			return sideConst, fmt.Errorf("%w: unknown field %s in ON condition", ErrInvalidJoin, name)
		}
		switch f.table {
		case right:
			s = mergeSide(s, sideRight)
		case left:
			s = mergeSide(s, sideLeft)
		default:
			return sideConst, fmt.Errorf("%w: %s is not joined yet", ErrInvalidJoin, name)
		}
	}
	return s, nil
}

func mergeSide(a, b side) side {
	switch {
	case a == sideConst:
		return b
	case b == sideConst || a == b:
		return a
	default:
		return sideBoth
	}
}

// flipOperator returns the operator that holds with operands swapped.
func flipOperator(op string) (string, bool) {
	switch op {
	case "=", "==", "<>", "!=":
		return op, true
	case "<":
		return ">", true
	case ">":
		return "<", true
	case "<=":
		return ">=", true
	case ">=":
		return "<=", true
	}
	return op, false
}

func intersectSorted(a, b []int) []int {
	var out []int
	for i, j := 0, 0; i < len(a) && j < len(b); {
		switch {
		case a[i] == b[j]:
			out = append(out, a[i])
			i++
			j++
		case a[i] < b[j]:
			i++
		default:
			j++
		}
	}
	return out
}

func unionSorted(a, b []int) []int {
	out := append(append([]int(nil), a...), b...)
	sort.Ints(out)
	n := 0
	for i, v := range out {
		if i == 0 || v != out[n-1] {
			out[n] = v
			n++
		}
	}
	return out[:n]
}
