package query

import "fmt"

// resultSet is the output of one SELECT: column titles and data rows.
type resultSet struct {
	titles []string
	rows   [][]any
}

// scalar returns the first cell of the first row, or nil.
func (rs *resultSet) scalar() any {
	if len(rs.rows) == 0 || len(rs.rows[0]) == 0 {
		return nil
	}
	return rs.rows[0][0]
}

// column returns column i of every row.
func (rs *resultSet) column(i int) []any {
	values := make([]any, len(rs.rows))
	for r, row := range rs.rows {
		if i < len(row) {
			values[r] = row[i]
		}
	}
	return values
}

// applySetOp combines two results. Rows compare by row key.
func applySetOp(kind SetOpKind, left, right *resultSet) (*resultSet, error) {
	if len(left.titles) != len(right.titles) {
		return nil, fmt.Errorf("%w: %s of %d and %d columns", ErrColumnCount, kind, len(left.titles), len(right.titles))
	}

	out := &resultSet{titles: left.titles}
	switch kind {
	case UnionAll:
		out.rows = append(append(out.rows, left.rows...), right.rows...)
		return out, nil
	case Union:
		out.rows = distinctRows(append(append([][]any(nil), left.rows...), right.rows...), -1)
		return out, nil
	}

	inRight := make(map[string]bool, len(right.rows))
	for _, row := range right.rows {
		inRight[rowKey(row)] = true
	}
	keep := kind == Intersect
	var rows [][]any
	for _, row := range left.rows {
		if inRight[rowKey(row)] == keep {
			rows = append(rows, row)
		}
	}
	out.rows = distinctRows(rows, -1)
	return out, nil
}

// distinctRows removes duplicate rows, keeping first occurrences. Only the
// first width columns form the key; -1 means all of them.
func distinctRows(rows [][]any, width int) [][]any {
	seen := make(map[string]bool, len(rows))
	out := rows[:0:0]
	for _, row := range rows {
		keyCols := row
		if width >= 0 && width < len(row) {
			keyCols = row[:width]
		}
		key := rowKey(keyCols)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, row)
	}
	return out
}
