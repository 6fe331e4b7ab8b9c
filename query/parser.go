package query

import (
	"fmt"
	"strconv"
	"strings"
)

// Parser turns a token stream into a Select statement. Clauses are located
// on the base bracket depth of each statement, so keywords inside nested
// sub-selects never split the outer statement.
type Parser struct {
	input  string
	tokens []Token
	depth  *ExpressionDepthCounter
}

// NewParser creates a new parser over tokens produced from input.
func NewParser(input string, tokens []Token) *Parser {
	return &Parser{
		input:  input,
		tokens: tokens,
		depth:  NewExpressionDepthCounter(),
	}
}

// Parse parses a SQL SELECT statement.
func Parse(sql string) (*Select, error) {
	if err := ValidateQuery(sql); err != nil {
		return nil, err
	}
	tokens, err := Tokenize(sql)
	if err != nil {
		return nil, err
	}
	p := NewParser(sql, tokens)
	body := tokens[:len(tokens)-1] // drop EOF
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: empty statement", ErrSyntax)
	}
	return p.parseStatement(body)
}

// text returns the source text covered by toks. Bind variables are written
// with their resolved ?N index.
func (p *Parser) text(toks []Token) string {
	if len(toks) == 0 {
		return ""
	}
	var b strings.Builder
	last := toks[0].Pos
	for _, t := range toks {
		if t.Type == TokenBind {
			b.WriteString(p.input[last:t.Pos])
			b.WriteString(t.Value)
			last = t.End
		}
	}
	b.WriteString(p.input[last:toks[len(toks)-1].End])
	return b.String()
}

// parseStatement parses a statement that may chain set operations.
func (p *Parser) parseStatement(toks []Token) (*Select, error) {
	if err := p.depth.Enter(); err != nil {
		return nil, err
	}
	defer p.depth.Exit()

	for isWrapped(toks) {
		toks = toks[1 : len(toks)-1]
	}
	if len(toks) == 0 {
		return nil, fmt.Errorf("%w: empty statement", ErrSyntax)
	}

	base := baseDepth(toks)
	type branch struct {
		kind SetOpKind
		toks []Token
	}
	var branches []branch
	start, kind := 0, Union
	for i := 0; i < len(toks); i++ {
		t := toks[i]
		if t.Depth != base || t.Type != TokenWord {
			continue
		}
		var next SetOpKind
		width := 1
		switch {
		case t.is("UNION"):
			next = Union
			if i+1 < len(toks) && toks[i+1].is("ALL") {
				next, width = UnionAll, 2
			}
		case t.is("INTERSECT"):
			next = Intersect
		case t.is("EXCEPT"):
			next = Except
		default:
			continue
		}
		branches = append(branches, branch{kind: kind, toks: toks[start:i]})
		start, kind = i+width, next
		i += width - 1
	}
	branches = append(branches, branch{kind: kind, toks: toks[start:]})

	if len(branches) == 1 {
		return p.parseSimple(toks)
	}

	first, err := p.parseStatement(branches[0].toks)
	if err != nil {
		return nil, err
	}
	for _, br := range branches[1:] {
		if len(br.toks) == 0 {
			return nil, fmt.Errorf("%w: missing statement after %s", ErrSyntax, br.kind)
		}
		right, err := p.parseStatement(br.toks)
		if err != nil {
			return nil, err
		}
		first.SetOps = append(first.SetOps, SetOp{Kind: br.kind, Right: right})
	}
	return first, nil
}

// clause is a located clause keyword and the tokens that follow it.
type clause struct {
	keyword string
	kind    JoinKind
	body    []Token
}

// matchClause reports the clause keyword starting at toks[i] and how many
// tokens it spans. The longest keyword wins: LEFT OUTER JOIN over JOIN.
func matchClause(toks []Token, i int) (string, JoinKind, int) {
	at := func(k int, kw string) bool {
		return i+k < len(toks) && toks[i+k].Depth == toks[i].Depth && toks[i+k].is(kw)
	}
	switch {
	case at(0, "SELECT"):
		return "SELECT", 0, 1
	case at(0, "FROM"):
		return "FROM", 0, 1
	case at(0, "WHERE"):
		return "WHERE", 0, 1
	case at(0, "HAVING"):
		return "HAVING", 0, 1
	case at(0, "LIMIT"):
		return "LIMIT", 0, 1
	case at(0, "OFFSET"):
		return "OFFSET", 0, 1
	case at(0, "PIVOT"):
		return "PIVOT", 0, 1
	case at(0, "GROUP") && at(1, "BY"):
		return "GROUP BY", 0, 2
	case at(0, "ORDER") && at(1, "BY"):
		return "ORDER BY", 0, 2
	case at(0, "JOIN"):
		return "JOIN", InnerJoin, 1
	case at(0, "INNER") && at(1, "JOIN"):
		return "JOIN", InnerJoin, 2
	}
	kinds := map[string]JoinKind{"LEFT": LeftJoin, "RIGHT": RightJoin, "FULL": FullJoin}
	for word, kind := range kinds {
		if !at(0, word) {
			continue
		}
		if at(1, "JOIN") {
			return "JOIN", kind, 2
		}
		if at(1, "OUTER") && at(2, "JOIN") {
			return "JOIN", kind, 3
		}
	}
	return "", 0, 0
}

// splitClauses locates clause keywords on the base depth of a simple
// statement and slices the tokens between them.
func splitClauses(toks []Token) ([]clause, error) {
	if !toks[0].is("SELECT") {
		return nil, fmt.Errorf("%w: unrecognized clause keyword %q", ErrSyntax, toks[0].Value)
	}
	base := toks[0].Depth
	var clauses []clause
	seen := make(map[string]bool)
	i := 0
	for i < len(toks) {
		keyword, kind, width := "", JoinKind(0), 0
		if toks[i].Depth == base && toks[i].Type == TokenWord {
			keyword, kind, width = matchClause(toks, i)
		}
		if width == 0 {
			clauses[len(clauses)-1].body = append(clauses[len(clauses)-1].body, toks[i])
			i++
			continue
		}
		if keyword != "JOIN" {
			if seen[keyword] {
				return nil, fmt.Errorf("%w: duplicate %s clause", ErrSyntax, keyword)
			}
			seen[keyword] = true
		}
		clauses = append(clauses, clause{keyword: keyword, kind: kind})
		i += width
	}
	return clauses, nil
}

// parseSimple parses a single SELECT without set operations.
func (p *Parser) parseSimple(toks []Token) (*Select, error) {
	clauses, err := splitClauses(toks)
	if err != nil {
		return nil, err
	}

	stmt := &Select{}
	for _, c := range clauses {
		if len(c.body) == 0 {
			return nil, fmt.Errorf("%w: empty %s clause", ErrSyntax, c.keyword)
		}
		switch c.keyword {
		case "SELECT":
			err = p.parseSelectList(stmt, c.body)
		case "FROM":
			stmt.From, err = p.parseTableRef(c.body, "FROM")
		case "JOIN":
			var join *Join
			join, err = p.parseJoin(c.kind, c.body)
			if join != nil {
				stmt.Joins = append(stmt.Joins, *join)
			}
		case "WHERE":
			stmt.Where, err = p.parseCondition(c.body)
		case "HAVING":
			stmt.Having, err = p.parseCondition(c.body)
		case "GROUP BY":
			stmt.GroupBy, err = p.parseGroupBy(c.body)
		case "ORDER BY":
			stmt.OrderBy, err = p.parseOrderBy(c.body)
		case "LIMIT":
			err = p.parseLimit(stmt, c.body)
		case "OFFSET":
			err = p.parseOffset(stmt, c.body)
		case "PIVOT":
			stmt.Pivot = p.text(c.body)
		}
		if err != nil {
			return nil, err
		}
	}
	return stmt, nil
}

// isSubSelect reports whether toks is a parenthesized SELECT.
func isSubSelect(toks []Token) bool {
	return isWrapped(toks) && len(toks) > 2 && toks[1].is("SELECT")
}

func (p *Parser) parseSelectList(stmt *Select, toks []Token) error {
	if toks[0].is("DISTINCT") {
		stmt.Distinct = true
		toks = toks[1:]
	} else if toks[0].is("ALL") {
		toks = toks[1:]
	}
	if len(toks) == 0 {
		return fmt.Errorf("%w: empty SELECT list", ErrSyntax)
	}

	for _, item := range splitTopLevel(toks) {
		if len(item) == 0 {
			return fmt.Errorf("%w: empty item in SELECT list", ErrSyntax)
		}
		field, err := p.parseSelectItem(item)
		if err != nil {
			return err
		}
		stmt.Fields = append(stmt.Fields, field)
	}
	return nil
}

func (p *Parser) parseSelectItem(toks []Token) (SelectField, error) {
	var field SelectField
	n := len(toks)
	last := toks[n-1]

	switch {
	case n >= 3 && toks[n-2].is("AS") && (last.Type == TokenWord || last.Type == TokenString):
		field.Alias = last.Value
		toks = toks[:n-2]
	case n >= 2 && last.Type == TokenWord && (last.Quoted || !isKeyword(last.Value)) && !strings.Contains(last.Value, "."):
		prev := toks[n-2]
		switch prev.Type {
		case TokenOperator, TokenMath, TokenComma, TokenLeftParen:
		default:
			if prev.Type != TokenWord || !isKeyword(prev.Value) || prev.is("END") {
				field.Alias = last.Value
				toks = toks[:n-1]
			}
		}
	}

	field.Expr = p.text(toks)
	if isSubSelect(toks) {
		sub, err := p.parseStatement(toks)
		if err != nil {
			return field, err
		}
		field.Sub = sub
	}
	return field, nil
}

// parseTableRef parses `name [[AS] alias]` or `(SELECT ...) [AS] alias`.
func (p *Parser) parseTableRef(toks []Token, clauseName string) (*TableRef, error) {
	ref := &TableRef{}
	var rest []Token

	if toks[0].Type == TokenLeftParen {
		end := matchParen(toks, 0)
		if end < 0 {
			return nil, fmt.Errorf("%w: unbalanced '(' in %s clause", ErrSyntax, clauseName)
		}
		sub, err := p.parseStatement(toks[:end+1])
		if err != nil {
			return nil, err
		}
		ref.Sub = sub
		rest = toks[end+1:]
	} else {
		if toks[0].Type != TokenWord {
			return nil, fmt.Errorf("%w: expected table name in %s clause, got %q", ErrSyntax, clauseName, toks[0].Value)
		}
		ref.Table = strings.ToUpper(toks[0].Value)
		rest = toks[1:]
	}

	if len(rest) > 0 && rest[0].is("AS") {
		rest = rest[1:]
		if len(rest) == 0 {
			return nil, fmt.Errorf("%w: missing alias after AS in %s clause", ErrSyntax, clauseName)
		}
	}
	switch len(rest) {
	case 0:
	case 1:
		if rest[0].Type != TokenWord && rest[0].Type != TokenString {
			return nil, fmt.Errorf("%w: invalid alias %q in %s clause", ErrSyntax, rest[0].Value, clauseName)
		}
		ref.Alias = strings.ToUpper(rest[0].Value)
	default:
		return nil, fmt.Errorf("%w: unexpected %q in %s clause", ErrSyntax, rest[1].Value, clauseName)
	}

	if ref.Sub != nil {
		if ref.Alias == "" {
			return nil, fmt.Errorf("%w: sub-select in %s clause", ErrMissingAlias, clauseName)
		}
		ref.Table = ref.Alias
	}
	return ref, nil
}

func (p *Parser) parseJoin(kind JoinKind, toks []Token) (*Join, error) {
	base := baseDepth(toks)
	on := -1
	for i, t := range toks {
		if t.Depth == base && t.is("ON") {
			on = i
			break
		}
	}
	if on <= 0 || on == len(toks)-1 {
		return nil, fmt.Errorf("%w: %s requires an ON condition", ErrSyntax, kind)
	}

	source, err := p.parseTableRef(toks[:on], kind.String())
	if err != nil {
		return nil, err
	}
	cond, err := p.parseCondition(toks[on+1:])
	if err != nil {
		return nil, err
	}
	return &Join{Kind: kind, Source: *source, On: cond}, nil
}

func (p *Parser) parseGroupBy(toks []Token) ([]string, error) {
	var keys []string
	for _, item := range splitTopLevel(toks) {
		if len(item) == 0 {
			return nil, fmt.Errorf("%w: empty GROUP BY item", ErrSyntax)
		}
		keys = append(keys, p.text(item))
	}
	return keys, nil
}

func (p *Parser) parseOrderBy(toks []Token) ([]OrderItem, error) {
	var items []OrderItem
	for _, item := range splitTopLevel(toks) {
		if len(item) == 0 {
			return nil, fmt.Errorf("%w: empty ORDER BY item", ErrSyntax)
		}
		var o OrderItem
		if last := item[len(item)-1]; last.is("DESC") || last.is("ASC") {
			o.Desc = last.is("DESC")
			item = item[:len(item)-1]
			if len(item) == 0 {
				return nil, fmt.Errorf("%w: ORDER BY %s without expression", ErrSyntax, last.Value)
			}
		}
		o.Expr = p.text(item)
		items = append(items, o)
	}
	return items, nil
}

func parseCount(t Token, clauseName string) (int, error) {
	n, err := strconv.Atoi(t.Value)
	if t.Type != TokenNumber || err != nil || n < 0 {
		return 0, fmt.Errorf("%w: invalid %s value %q", ErrSyntax, clauseName, t.Value)
	}
	return n, nil
}

// parseLimit accepts `LIMIT n` and `LIMIT offset, n`.
func (p *Parser) parseLimit(stmt *Select, toks []Token) error {
	if stmt.Limit == nil {
		stmt.Limit = &Limit{Count: -1}
	}
	switch {
	case len(toks) == 1:
		n, err := parseCount(toks[0], "LIMIT")
		if err != nil {
			return err
		}
		stmt.Limit.Count = n
	case len(toks) == 3 && toks[1].Type == TokenComma:
		offset, err := parseCount(toks[0], "LIMIT")
		if err != nil {
			return err
		}
		n, err := parseCount(toks[2], "LIMIT")
		if err != nil {
			return err
		}
		stmt.Limit.Offset, stmt.Limit.Count = offset, n
	default:
		return fmt.Errorf("%w: malformed LIMIT %q", ErrSyntax, p.text(toks))
	}
	return nil
}

func (p *Parser) parseOffset(stmt *Select, toks []Token) error {
	if len(toks) != 1 {
		return fmt.Errorf("%w: malformed OFFSET %q", ErrSyntax, p.text(toks))
	}
	n, err := parseCount(toks[0], "OFFSET")
	if err != nil {
		return err
	}
	if stmt.Limit == nil {
		stmt.Limit = &Limit{Count: -1}
	}
	stmt.Limit.Offset = n
	return nil
}
