package query

import (
	"strconv"
	"strings"
)

// JoinKind identifies the join algorithm variant.
type JoinKind int

const (
	InnerJoin JoinKind = iota
	LeftJoin
	RightJoin
	FullJoin
)

func (k JoinKind) String() string {
	switch k {
	case LeftJoin:
		return "LEFT JOIN"
	case RightJoin:
		return "RIGHT JOIN"
	case FullJoin:
		return "FULL JOIN"
	default:
		return "INNER JOIN"
	}
}

// SetOpKind identifies a set operation between two SELECT results.
type SetOpKind int

const (
	Union SetOpKind = iota
	UnionAll
	Intersect
	Except
)

func (k SetOpKind) String() string {
	switch k {
	case UnionAll:
		return "UNION ALL"
	case Intersect:
		return "INTERSECT"
	case Except:
		return "EXCEPT"
	default:
		return "UNION"
	}
}

// Select is a parsed SELECT statement. SetOps chain further statements
// onto this one, applied left to right.
type Select struct {
	Distinct bool
	Fields   []SelectField
	From     *TableRef
	Joins    []Join
	Where    Condition
	GroupBy  []string
	Having   Condition
	OrderBy  []OrderItem
	Limit    *Limit
	Pivot    string
	SetOps   []SetOp
}

// SelectField is one item of the SELECT list. Expr holds the item's source
// text; Sub is set when the item is a parenthesized sub-select.
type SelectField struct {
	Expr  string
	Alias string
	Sub   *Select
}

// Title is the column header the field produces.
func (f SelectField) Title() string {
	if f.Alias != "" {
		return f.Alias
	}
	return f.Expr
}

// TableRef names a table or a derived sub-select. Table and Alias are
// upper-cased; a derived table takes its alias as its name.
type TableRef struct {
	Table string
	Alias string
	Sub   *Select
}

// Join is one JOIN clause.
type Join struct {
	Kind   JoinKind
	Source TableRef
	On     Condition
}

// OrderItem is one ORDER BY key.
type OrderItem struct {
	Expr string
	Desc bool
}

// Limit holds LIMIT/OFFSET. Count is -1 when only OFFSET was given.
type Limit struct {
	Offset int
	Count  int
}

// SetOp attaches a right-hand statement with its combining operator.
type SetOp struct {
	Kind  SetOpKind
	Right *Select
}

// Condition is a WHERE, HAVING or ON predicate tree: either a *Leaf or
// a *Logic node.
type Condition interface {
	condition()
	String() string
}

// Leaf compares two operands.
type Leaf struct {
	Op    string
	Left  Operand
	Right Operand
}

// Logic joins two or more conditions with AND or OR.
type Logic struct {
	Op    string
	Terms []Condition
}

func (*Leaf) condition()  {}
func (*Logic) condition() {}

// Operand is one side of a Leaf.
type Operand interface {
	operand()
	String() string
}

// ColumnRef references a column by name, optionally table-qualified.
type ColumnRef struct{ Name string }

// Literal is a constant: nil, string, float64 or bool.
type Literal struct{ Value any }

// BindRef references a bind variable by its 1-based index.
type BindRef struct{ Index int }

// SubQuery is a nested SELECT.
type SubQuery struct{ Stmt *Select }

// Calculated is a scalar expression evaluated per row.
type Calculated struct{ Expr string }

// ValueList is the right side of IN (a, b, ...).
type ValueList struct{ Items []Operand }

func (ColumnRef) operand()  {}
func (Literal) operand()    {}
func (BindRef) operand()    {}
func (SubQuery) operand()   {}
func (Calculated) operand() {}
func (ValueList) operand()  {}

func (c ColumnRef) String() string  { return c.Name }
func (b BindRef) String() string    { return "?" + strconv.Itoa(b.Index) }
func (s SubQuery) String() string   { return "(" + s.Stmt.String() + ")" }
func (c Calculated) String() string { return c.Expr }

func (l Literal) String() string {
	return literalSQL(l.Value)
}

func (v ValueList) String() string {
	items := make([]string, len(v.Items))
	for i, item := range v.Items {
		items[i] = item.String()
	}
	return "(" + strings.Join(items, ", ") + ")"
}

func literalSQL(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case bool:
		if val {
			return "TRUE"
		}
		return "FALSE"
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case string:
		return quoteString(val)
	default:
		return quoteString(FormatValue(v))
	}
}

func quoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func (l *Leaf) String() string {
	if l.Op == "EXISTS" || l.Op == "NOT EXISTS" {
		return l.Op + " " + l.Right.String()
	}
	return l.Left.String() + " " + l.Op + " " + l.Right.String()
}

func (l *Logic) String() string {
	parts := make([]string, len(l.Terms))
	for i, term := range l.Terms {
		if _, nested := term.(*Logic); nested {
			parts[i] = "(" + term.String() + ")"
		} else {
			parts[i] = term.String()
		}
	}
	return strings.Join(parts, " "+l.Op+" ")
}

// String regenerates SQL text for the statement. Parsing the result yields
// an equivalent statement.
func (s *Select) String() string {
	var b strings.Builder
	b.WriteString("SELECT ")
	if s.Distinct {
		b.WriteString("DISTINCT ")
	}
	for i, f := range s.Fields {
		if i > 0 {
			b.WriteString(", ")
		}
		if f.Sub != nil && f.Expr == "" {
			b.WriteString("(" + f.Sub.String() + ")")
		} else {
			b.WriteString(f.Expr)
		}
		if f.Alias != "" {
			b.WriteString(" AS " + aliasSQL(f.Alias))
		}
	}
	if s.From != nil {
		b.WriteString(" FROM " + s.From.String())
	}
	for _, j := range s.Joins {
		b.WriteString(" " + j.Kind.String() + " " + j.Source.String())
		if j.On != nil {
			b.WriteString(" ON " + j.On.String())
		}
	}
	if s.Where != nil {
		b.WriteString(" WHERE " + s.Where.String())
	}
	if len(s.GroupBy) > 0 {
		b.WriteString(" GROUP BY " + strings.Join(s.GroupBy, ", "))
	}
	if s.Having != nil {
		b.WriteString(" HAVING " + s.Having.String())
	}
	if s.Pivot != "" {
		b.WriteString(" PIVOT " + s.Pivot)
	}
	if len(s.OrderBy) > 0 {
		items := make([]string, len(s.OrderBy))
		for i, o := range s.OrderBy {
			items[i] = o.Expr
			if o.Desc {
				items[i] += " DESC"
			}
		}
		b.WriteString(" ORDER BY " + strings.Join(items, ", "))
	}
	if s.Limit != nil {
		if s.Limit.Count >= 0 {
			b.WriteString(" LIMIT " + strconv.Itoa(s.Limit.Count))
		}
		if s.Limit.Offset > 0 {
			b.WriteString(" OFFSET " + strconv.Itoa(s.Limit.Offset))
		}
	}
	for _, op := range s.SetOps {
		b.WriteString(" " + op.Kind.String() + " ")
		if len(op.Right.SetOps) > 0 {
			b.WriteString("(" + op.Right.String() + ")")
		} else {
			b.WriteString(op.Right.String())
		}
	}
	return b.String()
}

func (t *TableRef) String() string {
	if t.Sub != nil {
		return "(" + t.Sub.String() + ") AS " + t.Alias
	}
	if t.Alias != "" {
		return t.Table + " AS " + t.Alias
	}
	return t.Table
}

func aliasSQL(alias string) string {
	for i, r := range alias {
		if !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || i > 0 && r >= '0' && r <= '9') {
			return quoteString(alias)
		}
	}
	if isKeyword(alias) {
		return quoteString(alias)
	}
	return alias
}
