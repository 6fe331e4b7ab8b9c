package query

import (
	"fmt"
	"strconv"
	"strings"
)

// condParser is a recursive descent parser over the tokens of one
// condition: LogicalExpr -> CondExpr (AND|OR CondExpr)*.
type condParser struct {
	p    *Parser
	toks []Token
	pos  int
	base int
}

// parseCondition parses a WHERE, HAVING or ON condition.
func (p *Parser) parseCondition(toks []Token) (Condition, error) {
	c := &condParser{p: p, toks: toks, base: baseDepth(toks)}
	cond, err := c.parseOr()
	if err != nil {
		return nil, err
	}
	if !c.atEnd() {
		return nil, fmt.Errorf("%w: unexpected %q in condition", ErrSyntax, c.current().Value)
	}
	return cond, nil
}

func (c *condParser) atEnd() bool {
	return c.pos >= len(c.toks)
}

func (c *condParser) current() Token {
	if c.atEnd() {
		return Token{Type: TokenEOF}
	}
	return c.toks[c.pos]
}

func (c *condParser) peek() Token {
	if c.pos+1 >= len(c.toks) {
		return Token{Type: TokenEOF}
	}
	return c.toks[c.pos+1]
}

func (c *condParser) advance() {
	c.pos++
}

// parseOr parses OR expressions (lowest precedence)
func (c *condParser) parseOr() (Condition, error) {
	if err := c.p.depth.Enter(); err != nil {
		return nil, err
	}
	defer c.p.depth.Exit()

	left, err := c.parseAnd()
	if err != nil {
		return nil, err
	}
	terms := []Condition{left}
	for c.current().is("OR") {
		c.advance()
		right, err := c.parseAnd()
		if err != nil {
			return nil, err
		}
		terms = append(terms, right)
	}
	return flatten("OR", terms), nil
}

// parseAnd parses AND expressions
func (c *condParser) parseAnd() (Condition, error) {
	left, err := c.parseConditionExpr()
	if err != nil {
		return nil, err
	}
	terms := []Condition{left}
	for c.current().is("AND") {
		c.advance()
		right, err := c.parseConditionExpr()
		if err != nil {
			return nil, err
		}
		terms = append(terms, right)
	}
	return flatten("AND", terms), nil
}

// flatten builds a Logic node, splicing in nested nodes of the same operator.
func flatten(op string, terms []Condition) Condition {
	if len(terms) == 1 {
		return terms[0]
	}
	node := &Logic{Op: op}
	for _, term := range terms {
		if nested, ok := term.(*Logic); ok && nested.Op == op {
			node.Terms = append(node.Terms, nested.Terms...)
			continue
		}
		node.Terms = append(node.Terms, term)
	}
	return node
}

// group returns the tokens of the parenthesized group starting at the
// current token, and advances past it.
func (c *condParser) group() ([]Token, error) {
	if c.current().Type != TokenLeftParen {
		return nil, fmt.Errorf("%w: expected '(' but got %q", ErrSyntax, c.current().Value)
	}
	end := matchParen(c.toks, c.pos)
	if end < 0 {
		return nil, fmt.Errorf("%w: unbalanced '(' in condition", ErrSyntax)
	}
	toks := c.toks[c.pos : end+1]
	c.pos = end + 1
	return toks, nil
}

func (c *condParser) parseConditionExpr() (Condition, error) {
	tok := c.current()

	if tok.is("EXISTS") || (tok.is("NOT") && c.peek().is("EXISTS")) {
		op := "EXISTS"
		if tok.is("NOT") {
			op = "NOT EXISTS"
			c.advance()
		}
		c.advance()
		toks, err := c.group()
		if err != nil {
			return nil, err
		}
		if !isSubSelect(toks) {
			return nil, fmt.Errorf("%w: %s requires a sub-select", ErrSyntax, op)
		}
		stmt, err := c.p.parseStatement(toks)
		if err != nil {
			return nil, err
		}
		return &Leaf{Op: op, Left: Literal{Value: ""}, Right: SubQuery{Stmt: stmt}}, nil
	}

	if tok.Type == TokenLeftParen {
		end := matchParen(c.toks, c.pos)
		if end > 0 && groupHasCondition(c.toks[c.pos+1:end]) && !isOperatorToken(c.tokenAt(end+1)) {
			inner := c.toks[c.pos+1 : end]
			c.pos = end + 1
			return c.p.parseCondition(inner)
		}
	}

	left, err := c.parseOperand()
	if err != nil {
		return nil, err
	}

	op, err := c.parseOperator()
	if err != nil {
		return nil, err
	}

	switch op {
	case "BETWEEN", "NOT BETWEEN":
		low, err := c.parseOperand()
		if err != nil {
			return nil, err
		}
		if !c.current().is("AND") {
			return nil, fmt.Errorf("%w: %s requires AND", ErrSyntax, op)
		}
		c.advance()
		high, err := c.parseOperand()
		if err != nil {
			return nil, err
		}
		if op == "BETWEEN" {
			return &Logic{Op: "AND", Terms: []Condition{
				&Leaf{Op: ">=", Left: left, Right: low},
				&Leaf{Op: "<=", Left: left, Right: high},
			}}, nil
		}
		return &Logic{Op: "OR", Terms: []Condition{
			&Leaf{Op: "<", Left: left, Right: low},
			&Leaf{Op: ">", Left: left, Right: high},
		}}, nil

	case "IN", "NOT IN":
		toks, err := c.group()
		if err != nil {
			return nil, err
		}
		right, err := c.inList(toks)
		if err != nil {
			return nil, err
		}
		return &Leaf{Op: op, Left: left, Right: right}, nil
	}

	right, err := c.parseOperand()
	if err != nil {
		return nil, err
	}
	return &Leaf{Op: op, Left: left, Right: right}, nil
}

func (c *condParser) tokenAt(i int) Token {
	if i >= len(c.toks) {
		return Token{Type: TokenEOF}
	}
	return c.toks[i]
}

func isOperatorToken(t Token) bool {
	return t.Type == TokenOperator || t.Type == TokenMath
}

// inList converts the group after IN into a ValueList or a SubQuery.
func (c *condParser) inList(toks []Token) (Operand, error) {
	if isSubSelect(toks) {
		stmt, err := c.p.parseStatement(toks)
		if err != nil {
			return nil, err
		}
		return SubQuery{Stmt: stmt}, nil
	}
	inner := toks[1 : len(toks)-1]
	list := ValueList{}
	if len(inner) == 0 {
		return list, nil
	}
	for _, item := range splitTopLevel(inner) {
		if len(item) == 0 {
			return nil, fmt.Errorf("%w: empty item in IN list", ErrSyntax)
		}
		operand, err := c.p.operandFromTokens(item)
		if err != nil {
			return nil, err
		}
		list.Items = append(list.Items, operand)
	}
	return list, nil
}

// parseOperator reads a comparison operator. Adjacent operator words
// concatenate: IS NOT, NOT IN, NOT LIKE, NOT BETWEEN.
func (c *condParser) parseOperator() (string, error) {
	tok := c.current()
	switch {
	case tok.Type == TokenOperator:
		c.advance()
		return tok.Value, nil
	case tok.is("IS"):
		c.advance()
		if c.current().is("NOT") {
			c.advance()
			return "IS NOT", nil
		}
		return "IS", nil
	case tok.is("NOT"):
		next := c.peek()
		for _, word := range []string{"IN", "LIKE", "BETWEEN"} {
			if next.is(word) {
				c.advance()
				c.advance()
				return "NOT " + word, nil
			}
		}
	case tok.is("IN"), tok.is("LIKE"), tok.is("BETWEEN"):
		c.advance()
		return strings.ToUpper(tok.Value), nil
	}
	if tok.Type == TokenEOF {
		return "", fmt.Errorf("%w: condition is missing an operator", ErrSyntax)
	}
	return "", fmt.Errorf("%w: expected operator but got %q", ErrSyntax, tok.Value)
}

var operandStopWords = map[string]bool{
	"AND": true, "OR": true, "IS": true, "NOT": true, "IN": true, "LIKE": true, "BETWEEN": true,
}

// parseOperand consumes tokens up to the next comparison operator or logic
// word on the base depth. CASE ... END spans are consumed whole.
func (c *condParser) parseOperand() (Operand, error) {
	start := c.pos
	cases := 0
	for !c.atEnd() {
		t := c.current()
		if t.Depth == c.base {
			switch {
			case t.is("CASE"):
				cases++
			case t.is("END") && cases > 0:
				cases--
			case cases > 0:
			case t.Type == TokenOperator, t.Type == TokenComma:
				goto done
			case t.Type == TokenWord && !t.Quoted && operandStopWords[strings.ToUpper(t.Value)]:
				goto done
			}
		}
		c.advance()
	}
done:
	if c.pos == start {
		if c.atEnd() {
			return nil, fmt.Errorf("%w: condition is missing an operand", ErrSyntax)
		}
		return nil, fmt.Errorf("%w: expected operand but got %q", ErrSyntax, c.current().Value)
	}
	return c.p.operandFromTokens(c.toks[start:c.pos])
}

// operandFromTokens classifies an operand span.
func (p *Parser) operandFromTokens(toks []Token) (Operand, error) {
	if len(toks) == 1 {
		t := toks[0]
		switch t.Type {
		case TokenWord:
			switch {
			case t.is("NULL"):
				return Literal{Value: nil}, nil
			case t.is("TRUE"):
				return Literal{Value: true}, nil
			case t.is("FALSE"):
				return Literal{Value: false}, nil
			}
			return ColumnRef{Name: t.Value}, nil
		case TokenNumber:
			f, err := strconv.ParseFloat(t.Value, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: invalid number %q", ErrSyntax, t.Value)
			}
			return Literal{Value: f}, nil
		case TokenString:
			return Literal{Value: t.Value}, nil
		case TokenBind:
			n, err := bindIndex(t)
			if err != nil {
				return nil, err
			}
			return BindRef{Index: n}, nil
		}
	}
	if len(toks) == 2 && toks[0].Type == TokenMath && toks[0].Value == "-" && toks[1].Type == TokenNumber {
		f, err := strconv.ParseFloat(toks[1].Value, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid number %q", ErrSyntax, toks[1].Value)
		}
		return Literal{Value: -f}, nil
	}
	if isSubSelect(toks) {
		stmt, err := p.parseStatement(toks)
		if err != nil {
			return nil, err
		}
		return SubQuery{Stmt: stmt}, nil
	}
	return Calculated{Expr: p.text(toks)}, nil
}

// groupHasCondition reports whether the contents of a bracket group form a
// condition rather than a scalar expression.
func groupHasCondition(toks []Token) bool {
	if len(toks) == 0 || toks[0].is("SELECT") {
		return false
	}
	base := baseDepth(toks)
	cases := 0
	for _, t := range toks {
		if t.Depth != base {
			continue
		}
		switch {
		case t.is("CASE"):
			cases++
		case t.is("END"):
			cases--
		case cases > 0:
		case t.Type == TokenOperator:
			return true
		case t.Type == TokenWord && !t.Quoted:
			switch strings.ToUpper(t.Value) {
			case "AND", "OR", "IN", "LIKE", "IS", "BETWEEN", "EXISTS", "NOT":
				return true
			}
		}
	}
	return false
}
