package query

import (
	"errors"
	"reflect"
	"testing"
)

func TestParse_SelectStar(t *testing.T) {
	got, err := Parse("SELECT * FROM t")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	want := &Select{
		Fields: []SelectField{{Expr: "*"}},
		From:   &TableRef{Table: "T"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Parse() = %#v, want %#v", got, want)
	}
}

func TestParse_SelectList(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		fields   []SelectField
		distinct bool
	}{
		{
			name:   "explicit and implicit aliases",
			query:  "SELECT a AS x, b y, COUNT(*) n FROM t",
			fields: []SelectField{{Expr: "a", Alias: "x"}, {Expr: "b", Alias: "y"}, {Expr: "COUNT(*)", Alias: "n"}},
		},
		{
			name:   "string alias",
			query:  "SELECT price * 2 AS 'double price' FROM t",
			fields: []SelectField{{Expr: "price * 2", Alias: "double price"}},
		},
		{
			name:     "distinct",
			query:    "SELECT DISTINCT a, b FROM t",
			fields:   []SelectField{{Expr: "a"}, {Expr: "b"}},
			distinct: true,
		},
		{
			name:   "function with commas",
			query:  "SELECT CONCAT(a, ', ', b) FROM t",
			fields: []SelectField{{Expr: "CONCAT(a, ', ', b)"}},
		},
		{
			name:   "case with alias",
			query:  "SELECT CASE WHEN a > 1 THEN 'x' ELSE 'y' END label FROM t",
			fields: []SelectField{{Expr: "CASE WHEN a > 1 THEN 'x' ELSE 'y' END", Alias: "label"}},
		},
		{
			name:   "qualified star",
			query:  "SELECT b.*, a.name FROM t",
			fields: []SelectField{{Expr: "b.*"}, {Expr: "a.name"}},
		},
		{
			name:   "bind resolved in text",
			query:  "SELECT a + ? FROM t",
			fields: []SelectField{{Expr: "a + ?1"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt, err := Parse(tt.query)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if !reflect.DeepEqual(stmt.Fields, tt.fields) {
				t.Errorf("Fields = %#v, want %#v", stmt.Fields, tt.fields)
			}
			if stmt.Distinct != tt.distinct {
				t.Errorf("Distinct = %v, want %v", stmt.Distinct, tt.distinct)
			}
		})
	}
}

func TestParse_ScalarSubSelectField(t *testing.T) {
	stmt, err := Parse("SELECT name, (SELECT COUNT(*) FROM books) AS total FROM authors")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(stmt.Fields) != 2 || stmt.Fields[1].Sub == nil {
		t.Fatalf("Fields = %#v, want a sub-select second field", stmt.Fields)
	}
	if stmt.Fields[1].Alias != "total" || stmt.Fields[1].Sub.From.Table != "BOOKS" {
		t.Errorf("sub-select field = %#v", stmt.Fields[1])
	}
}

func TestParse_From(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  TableRef
	}{
		{"plain", "SELECT * FROM books", TableRef{Table: "BOOKS"}},
		{"alias", "SELECT * FROM books b", TableRef{Table: "BOOKS", Alias: "B"}},
		{"as alias", "SELECT * FROM books AS b", TableRef{Table: "BOOKS", Alias: "B"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt, err := Parse(tt.query)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if !reflect.DeepEqual(*stmt.From, tt.want) {
				t.Errorf("From = %#v, want %#v", *stmt.From, tt.want)
			}
		})
	}
}

func TestParse_DerivedTable(t *testing.T) {
	stmt, err := Parse("SELECT d.a FROM (SELECT a FROM t WHERE a > 1) AS d")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if stmt.From.Table != "D" || stmt.From.Alias != "D" || stmt.From.Sub == nil {
		t.Fatalf("From = %#v, want derived table D", stmt.From)
	}
	if stmt.From.Sub.Where == nil {
		t.Error("derived table lost its WHERE clause")
	}

	_, err = Parse("SELECT * FROM (SELECT a FROM t)")
	if !errors.Is(err, ErrMissingAlias) {
		t.Errorf("Parse() without alias error = %v, want ErrMissingAlias", err)
	}
}

func TestParse_Joins(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []Join
	}{
		{
			name:  "bare join is inner",
			query: "SELECT * FROM books JOIN authors ON books.author_id = authors.id",
			want: []Join{{
				Kind:   InnerJoin,
				Source: TableRef{Table: "AUTHORS"},
				On:     &Leaf{Op: "=", Left: ColumnRef{Name: "books.author_id"}, Right: ColumnRef{Name: "authors.id"}},
			}},
		},
		{
			name:  "left outer join with alias",
			query: "SELECT * FROM books b LEFT OUTER JOIN authors a ON b.author_id = a.id",
			want: []Join{{
				Kind:   LeftJoin,
				Source: TableRef{Table: "AUTHORS", Alias: "A"},
				On:     &Leaf{Op: "=", Left: ColumnRef{Name: "b.author_id"}, Right: ColumnRef{Name: "a.id"}},
			}},
		},
		{
			name:  "chained joins",
			query: "SELECT * FROM a RIGHT JOIN b ON a.x = b.x FULL JOIN c ON b.y = c.y AND c.z > 1",
			want: []Join{
				{
					Kind:   RightJoin,
					Source: TableRef{Table: "B"},
					On:     &Leaf{Op: "=", Left: ColumnRef{Name: "a.x"}, Right: ColumnRef{Name: "b.x"}},
				},
				{
					Kind:   FullJoin,
					Source: TableRef{Table: "C"},
					On: &Logic{Op: "AND", Terms: []Condition{
						&Leaf{Op: "=", Left: ColumnRef{Name: "b.y"}, Right: ColumnRef{Name: "c.y"}},
						&Leaf{Op: ">", Left: ColumnRef{Name: "c.z"}, Right: Literal{Value: 1.0}},
					}},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt, err := Parse(tt.query)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if !reflect.DeepEqual(stmt.Joins, tt.want) {
				t.Errorf("Joins = %v, want %v", stmt.Joins, tt.want)
			}
		})
	}
}

func TestParse_Conditions(t *testing.T) {
	a := ColumnRef{Name: "a"}
	tests := []struct {
		name  string
		where string
		want  Condition
	}{
		{
			name:  "simple",
			where: "a = 1",
			want:  &Leaf{Op: "=", Left: a, Right: Literal{Value: 1.0}},
		},
		{
			name:  "string and bind",
			where: "a <> 'x' OR a = ?",
			want: &Logic{Op: "OR", Terms: []Condition{
				&Leaf{Op: "<>", Left: a, Right: Literal{Value: "x"}},
				&Leaf{Op: "=", Left: a, Right: BindRef{Index: 1}},
			}},
		},
		{
			name:  "flattened and chain",
			where: "a = 1 AND b = 2 AND c = 3",
			want: &Logic{Op: "AND", Terms: []Condition{
				&Leaf{Op: "=", Left: a, Right: Literal{Value: 1.0}},
				&Leaf{Op: "=", Left: ColumnRef{Name: "b"}, Right: Literal{Value: 2.0}},
				&Leaf{Op: "=", Left: ColumnRef{Name: "c"}, Right: Literal{Value: 3.0}},
			}},
		},
		{
			name:  "parenthesized group",
			where: "(a = 1 OR a = 2) AND b = 3",
			want: &Logic{Op: "AND", Terms: []Condition{
				&Logic{Op: "OR", Terms: []Condition{
					&Leaf{Op: "=", Left: a, Right: Literal{Value: 1.0}},
					&Leaf{Op: "=", Left: a, Right: Literal{Value: 2.0}},
				}},
				&Leaf{Op: "=", Left: ColumnRef{Name: "b"}, Right: Literal{Value: 3.0}},
			}},
		},
		{
			name:  "between",
			where: "a BETWEEN 1 AND 5",
			want: &Logic{Op: "AND", Terms: []Condition{
				&Leaf{Op: ">=", Left: a, Right: Literal{Value: 1.0}},
				&Leaf{Op: "<=", Left: a, Right: Literal{Value: 5.0}},
			}},
		},
		{
			name:  "not between",
			where: "a NOT BETWEEN 1 AND 5",
			want: &Logic{Op: "OR", Terms: []Condition{
				&Leaf{Op: "<", Left: a, Right: Literal{Value: 1.0}},
				&Leaf{Op: ">", Left: a, Right: Literal{Value: 5.0}},
			}},
		},
		{
			name:  "in list",
			where: "a IN (1, 'x', ?3)",
			want: &Leaf{Op: "IN", Left: a, Right: ValueList{Items: []Operand{
				Literal{Value: 1.0}, Literal{Value: "x"}, BindRef{Index: 3},
			}}},
		},
		{
			name:  "not in list",
			where: "a NOT IN (-1)",
			want:  &Leaf{Op: "NOT IN", Left: a, Right: ValueList{Items: []Operand{Literal{Value: -1.0}}}},
		},
		{
			name:  "is not null",
			where: "a IS NOT NULL",
			want:  &Leaf{Op: "IS NOT", Left: a, Right: Literal{Value: nil}},
		},
		{
			name:  "like",
			where: "a NOT LIKE 'D%'",
			want:  &Leaf{Op: "NOT LIKE", Left: a, Right: Literal{Value: "D%"}},
		},
		{
			name:  "calculated operands",
			where: "a + 1 > LEN(b)",
			want:  &Leaf{Op: ">", Left: Calculated{Expr: "a + 1"}, Right: Calculated{Expr: "LEN(b)"}},
		},
		{
			name:  "in sub-select",
			where: "a IN (SELECT id FROM u)",
			want: &Leaf{Op: "IN", Left: a, Right: SubQuery{Stmt: &Select{
				Fields: []SelectField{{Expr: "id"}},
				From:   &TableRef{Table: "U"},
			}}},
		},
		{
			name:  "not exists",
			where: "NOT EXISTS (SELECT id FROM u)",
			want: &Leaf{Op: "NOT EXISTS", Left: Literal{Value: ""}, Right: SubQuery{Stmt: &Select{
				Fields: []SelectField{{Expr: "id"}},
				From:   &TableRef{Table: "U"},
			}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt, err := Parse("SELECT * FROM t WHERE " + tt.where)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if !reflect.DeepEqual(stmt.Where, tt.want) {
				t.Errorf("Where = %v, want %v", stmt.Where, tt.want)
			}
		})
	}
}

func TestParse_GroupOrderLimit(t *testing.T) {
	stmt, err := Parse("SELECT a, SUM(b) FROM t GROUP BY a HAVING SUM(b) > 10 ORDER BY a DESC, 2 LIMIT 1, 2")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if !reflect.DeepEqual(stmt.GroupBy, []string{"a"}) {
		t.Errorf("GroupBy = %v", stmt.GroupBy)
	}
	wantHaving := &Leaf{Op: ">", Left: Calculated{Expr: "SUM(b)"}, Right: Literal{Value: 10.0}}
	if !reflect.DeepEqual(stmt.Having, wantHaving) {
		t.Errorf("Having = %v, want %v", stmt.Having, wantHaving)
	}
	wantOrder := []OrderItem{{Expr: "a", Desc: true}, {Expr: "2"}}
	if !reflect.DeepEqual(stmt.OrderBy, wantOrder) {
		t.Errorf("OrderBy = %v, want %v", stmt.OrderBy, wantOrder)
	}
	if !reflect.DeepEqual(stmt.Limit, &Limit{Offset: 1, Count: 2}) {
		t.Errorf("Limit = %v, want offset 1 count 2", stmt.Limit)
	}
}

func TestParse_LimitForms(t *testing.T) {
	tests := []struct {
		query string
		want  Limit
	}{
		{"SELECT a FROM t LIMIT 2", Limit{Offset: 0, Count: 2}},
		{"SELECT a FROM t LIMIT 1, 2", Limit{Offset: 1, Count: 2}},
		{"SELECT a FROM t LIMIT 5 OFFSET 10", Limit{Offset: 10, Count: 5}},
		{"SELECT a FROM t OFFSET 3", Limit{Offset: 3, Count: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			stmt, err := Parse(tt.query)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if *stmt.Limit != tt.want {
				t.Errorf("Limit = %+v, want %+v", *stmt.Limit, tt.want)
			}
		})
	}
}

func TestParse_SetOperations(t *testing.T) {
	stmt, err := Parse("SELECT a FROM t UNION ALL SELECT a FROM u EXCEPT SELECT a FROM v")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(stmt.SetOps) != 2 {
		t.Fatalf("SetOps = %v, want 2 operations", stmt.SetOps)
	}
	if stmt.SetOps[0].Kind != UnionAll || stmt.SetOps[0].Right.From.Table != "U" {
		t.Errorf("SetOps[0] = %v UNION ALL U", stmt.SetOps[0])
	}
	if stmt.SetOps[1].Kind != Except || stmt.SetOps[1].Right.From.Table != "V" {
		t.Errorf("SetOps[1] = %v, want EXCEPT V", stmt.SetOps[1])
	}

	nested, err := Parse("SELECT a FROM t WHERE a IN (SELECT a FROM u UNION SELECT a FROM v)")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(nested.SetOps) != 0 {
		t.Error("UNION inside a sub-select split the outer statement")
	}
}

func TestParse_Pivot(t *testing.T) {
	stmt, err := Parse("SELECT region, SUM(amount) FROM sales GROUP BY region PIVOT quarter")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if stmt.Pivot != "quarter" {
		t.Errorf("Pivot = %q, want quarter", stmt.Pivot)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		wantErr error
	}{
		{"not a select", "DELETE FROM t", ErrSyntax},
		{"empty", "   ", ErrSyntax},
		{"empty where", "SELECT a FROM t WHERE", ErrSyntax},
		{"duplicate where", "SELECT a FROM t WHERE a = 1 WHERE b = 2", ErrSyntax},
		{"bad limit", "SELECT a FROM t LIMIT x", ErrSyntax},
		{"negative limit", "SELECT a FROM t LIMIT -1", ErrSyntax},
		{"join without on", "SELECT a FROM t JOIN u", ErrSyntax},
		{"missing operator", "SELECT a FROM t WHERE a", ErrSyntax},
		{"between without and", "SELECT a FROM t WHERE a BETWEEN 1 OR 2", ErrSyntax},
		{"set op without right side", "SELECT a FROM t UNION", ErrSyntax},
		{"derived without alias", "SELECT a FROM (SELECT a FROM t)", ErrMissingAlias},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.query)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Parse(%q) error = %v, want %v", tt.query, err, tt.wantErr)
			}
		})
	}
}

func TestParse_RoundTrip(t *testing.T) {
	queries := []string{
		"SELECT * FROM t",
		"SELECT DISTINCT a AS x, b FROM t WHERE a > 1 ORDER BY a DESC LIMIT 3",
		"SELECT b.title, a.name FROM books b LEFT JOIN authors a ON b.author_id = a.id WHERE a.name LIKE 'A%'",
		"SELECT a FROM t WHERE x = 1 OR a BETWEEN 1 AND 5",
		"SELECT a FROM t WHERE a IN (1, 'two', ?2) AND b IS NOT NULL",
		"SELECT a FROM t WHERE EXISTS (SELECT id FROM u WHERE u.id = t.a)",
		"SELECT a, COUNT(*) AS n FROM t GROUP BY a HAVING COUNT(*) > 1 ORDER BY n",
		"SELECT a FROM t UNION SELECT a FROM u UNION ALL SELECT a FROM v",
		"SELECT d.a FROM (SELECT a FROM t) AS d LIMIT 2 OFFSET 4",
		"SELECT region, SUM(amount) FROM sales GROUP BY region PIVOT quarter",
		"SELECT name, (SELECT COUNT(*) FROM u) AS total FROM t",
		"SELECT 'it''s' AS 'odd name', -2.5 FROM t WHERE a <> 'x'",
	}

	for _, query := range queries {
		t.Run(query, func(t *testing.T) {
			first, err := Parse(query)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			text := first.String()
			second, err := Parse(text)
			if err != nil {
				t.Fatalf("Parse(%q) error = %v", text, err)
			}
			if !reflect.DeepEqual(first, second) {
				t.Errorf("round trip through %q changed the statement:\n got %v\nwant %v", text, second, first)
			}
		})
	}
}
