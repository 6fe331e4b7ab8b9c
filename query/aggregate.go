package query

import (
	"fmt"
	"sort"
	"strings"
)

// isAggregateFunction checks if a function name is an aggregate
func isAggregateFunction(name string) bool {
	switch strings.ToUpper(name) {
	case "SUM", "COUNT", "MIN", "MAX", "AVG", "GROUP_CONCAT":
		return true
	}
	return false
}

// groupRows sorts rows on the GROUP BY keys and collects rows with equal
// key values into one group, in sorted order. The sort runs once per key
// from the last key to the first, so the stable result is ordered by the
// first key, then the second.
// Without keys every row forms one group, even when there are none.
func (ex *executor) groupRows(rows []int, keys []string, fields *TableFields) ([][]int, error) {
	if len(keys) == 0 {
		return [][]int{rows}, nil
	}

	exprs := make([]Expr, len(keys))
	for k, key := range keys {
		col, err := ex.newColumn(key, fields)
		if err != nil {
			return nil, fmt.Errorf("GROUP BY %s: %w", key, err)
		}
		if hasAggregate(col.expr) {
			return nil, fmt.Errorf("%w: aggregate in GROUP BY %s", ErrInvalidAggregate, key)
		}
		exprs[k] = col.expr
	}

	values := make([][]any, len(rows))
	for i, row := range rows {
		env := &evalEnv{ex: ex, fields: fields, row: row}
		values[i] = make([]any, len(exprs))
		for k, e := range exprs {
			v, err := e.eval(env)
			if err != nil {
				return nil, err
			}
			values[i][k] = v
		}
	}

	order := make([]int, len(rows))
	for i := range order {
		order[i] = i
	}
	for k := len(keys) - 1; k >= 0; k-- {
		sort.SliceStable(order, func(a, b int) bool {
			return compareValues(values[order[a]][k], values[order[b]][k]) < 0
		})
	}

	var groups [][]int
	index := make(map[string]int)
	for _, i := range order {
		key := rowKey(values[i])
		g, ok := index[key]
		if !ok {
			g = len(groups)
			index[key] = g
			groups = append(groups, nil)
		}
		groups[g] = append(groups[g], rows[i])
	}
	return groups, nil
}

// aggregate folds an aggregate call over the current group. NULL, blank
// and 'null' values are skipped.
func (env *evalEnv) aggregate(c *callExpr) (any, error) {
	if env.group == nil {
		return nil, fmt.Errorf("%w: %s is not allowed here", ErrInvalidAggregate, c.name)
	}
	if c.star {
		return float64(len(env.group)), nil
	}

	var values []any
	seen := make(map[string]bool)
	for _, row := range env.group {
		v, err := c.args[0].eval(env.atRow(row))
		if err != nil {
			return nil, err
		}
		if isNullSentinel(v) {
			continue
		}
		if c.distinct {
			key := keyString(v)
			if seen[key] {
				continue
			}
			seen[key] = true
		}
		values = append(values, v)
	}

	switch c.name {
	case "COUNT":
		return float64(len(values)), nil
	case "SUM", "AVG":
		sum := 0.0
		for _, v := range values {
			f, ok := toNumber(v)
			if !ok {
				return nil, fmt.Errorf("%w: %s of non-numeric value %q", ErrEvaluation, c.name, FormatValue(v))
			}
			sum += f
		}
		if c.name == "SUM" {
			return sum, nil
		}
		if len(values) == 0 {
			return nil, nil
		}
		return sum / float64(len(values)), nil
	case "MIN", "MAX":
		var best any
		for i, v := range values {
			cmp := compareValues(v, best)
			if i == 0 || (c.name == "MIN" && cmp < 0) || (c.name == "MAX" && cmp > 0) {
				best = v
			}
		}
		return best, nil
	case "GROUP_CONCAT":
		parts := make([]string, len(values))
		for i, v := range values {
			parts[i] = FormatValue(v)
		}
		sort.Strings(parts)
		return strings.Join(parts, ","), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrInvalidAggregate, c.name)
}
