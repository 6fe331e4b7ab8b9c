package query

import (
	"fmt"
	"strings"
)

// expandPivot rewrites a PIVOT statement into a plain GROUP BY statement.
// Every aggregate column becomes one column per distinct pivot value:
// AGG(CASE WHEN pivot = 'v' THEN arg ELSE 'null' END), titled "v title".
func (ex *executor) expandPivot(stmt *Select) (*Select, error) {
	if len(stmt.GroupBy) == 0 {
		return nil, fmt.Errorf("%w: PIVOT requires GROUP BY", ErrSyntax)
	}

	distinct := &Select{
		Distinct: true,
		Fields:   []SelectField{{Expr: stmt.Pivot}},
		From:     stmt.From,
		Joins:    stmt.Joins,
		Where:    stmt.Where,
		OrderBy:  []OrderItem{{Expr: stmt.Pivot}},
	}
	values, err := ex.executeSelect(distinct)
	if err != nil {
		return nil, fmt.Errorf("PIVOT %s: %w", stmt.Pivot, err)
	}

	out := *stmt
	out.Pivot = ""
	out.Fields = nil
	for _, field := range stmt.Fields {
		name, distinctArg, arg, ok := splitAggregate(field.Expr)
		if !ok || field.Sub != nil {
			out.Fields = append(out.Fields, field)
			continue
		}
		if arg == "*" {
			arg = "1"
		}
		for _, row := range values.rows {
			v := FormatValue(row[0])
			var b strings.Builder
			b.WriteString(name + "(")
			if distinctArg {
				b.WriteString("DISTINCT ")
			}
			fmt.Fprintf(&b, "CASE WHEN %s = %s THEN %s ELSE 'null' END)", stmt.Pivot, quoteString(v), arg)
			out.Fields = append(out.Fields, SelectField{
				Expr:  b.String(),
				Alias: v + " " + field.Title(),
			})
		}
	}
	return &out, nil
}

// splitAggregate splits text of the form AGG([DISTINCT] arg) into its
// parts. It reports false for anything else, including expressions that
// merely contain an aggregate.
func splitAggregate(text string) (name string, distinct bool, arg string, ok bool) {
	tokens, err := Tokenize(text)
	if err != nil || len(tokens) < 4 {
		return "", false, "", false
	}
	tokens = tokens[:len(tokens)-1]
	if tokens[0].Type != TokenWord || !isAggregateFunction(tokens[0].Value) || tokens[1].Type != TokenLeftParen {
		return "", false, "", false
	}
	if matchParen(tokens, 1) != len(tokens)-1 {
		return "", false, "", false
	}
	inner := tokens[2 : len(tokens)-1]
	if len(inner) == 0 {
		return "", false, "", false
	}
	if inner[0].is("DISTINCT") {
		distinct = true
		inner = inner[1:]
		if len(inner) == 0 {
			return "", false, "", false
		}
	}
	return strings.ToUpper(tokens[0].Value), distinct, text[inner[0].Pos:inner[len(inner)-1].End], true
}
