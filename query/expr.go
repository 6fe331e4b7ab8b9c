package query

import (
	"fmt"
	"strconv"
	"strings"
)

// Expr is a compiled scalar expression evaluated against a row scope.
type Expr interface {
	eval(env *evalEnv) (any, error)
}

type literalExpr struct{ value any }

type fieldExpr struct{ name string }

type bindExpr struct{ index int }

type callExpr struct {
	name     string
	fn       Function
	args     []Expr
	distinct bool
	star     bool
}

type unaryExpr struct {
	op      string
	operand Expr
}

type binaryExpr struct {
	op          string
	left, right Expr
}

type whenClause struct {
	cond, result Expr
}

type caseExpr struct {
	operand  Expr
	whens    []whenClause
	elseExpr Expr
}

type inExpr struct {
	operand Expr
	list    []Expr
	sub     *Select
	not     bool
}

type isNullExpr struct {
	operand Expr
	not     bool
}

type subqueryExpr struct{ stmt *Select }

type existsExpr struct {
	stmt *Select
	not  bool
}

// compileExpr parses expression text into an Expr tree.
func compileExpr(text string) (Expr, error) {
	tokens, err := Tokenize(text)
	if err != nil {
		return nil, fmt.Errorf("expression %q: %w", text, err)
	}
	ep := &exprParser{p: NewParser(text, tokens), toks: tokens[:len(tokens)-1]}
	if len(ep.toks) == 0 {
		return nil, fmt.Errorf("%w: empty expression", ErrSyntax)
	}
	e, err := ep.parseOr()
	if err != nil {
		return nil, fmt.Errorf("expression %q: %w", text, err)
	}
	if !ep.atEnd() {
		return nil, fmt.Errorf("%w: unexpected %q in expression %q", ErrSyntax, ep.current().Value, text)
	}
	return e, nil
}

// exprParser parses expressions by precedence climbing:
// OR < AND < NOT < comparison < additive < multiplicative < unary.
type exprParser struct {
	p    *Parser
	toks []Token
	pos  int
}

func (ep *exprParser) atEnd() bool { return ep.pos >= len(ep.toks) }

func (ep *exprParser) current() Token {
	if ep.atEnd() {
		return Token{Type: TokenEOF}
	}
	return ep.toks[ep.pos]
}

func (ep *exprParser) peek() Token {
	if ep.pos+1 >= len(ep.toks) {
		return Token{Type: TokenEOF}
	}
	return ep.toks[ep.pos+1]
}

func (ep *exprParser) advance() { ep.pos++ }

func (ep *exprParser) expect(tokType TokenType) error {
	if ep.current().Type != tokType {
		return fmt.Errorf("%w: expected %s but got %q", ErrSyntax, tokType, ep.current().Value)
	}
	ep.advance()
	return nil
}

func (ep *exprParser) expectWord(word string) error {
	if !ep.current().is(word) {
		return fmt.Errorf("%w: expected %s but got %q", ErrSyntax, word, ep.current().Value)
	}
	ep.advance()
	return nil
}

func (ep *exprParser) parseOr() (Expr, error) {
	if err := ep.p.depth.Enter(); err != nil {
		return nil, err
	}
	defer ep.p.depth.Exit()

	left, err := ep.parseAnd()
	if err != nil {
		return nil, err
	}
	for ep.current().is("OR") {
		ep.advance()
		right, err := ep.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &binaryExpr{op: "OR", left: left, right: right}
	}
	return left, nil
}

func (ep *exprParser) parseAnd() (Expr, error) {
	left, err := ep.parseNot()
	if err != nil {
		return nil, err
	}
	for ep.current().is("AND") {
		ep.advance()
		right, err := ep.parseNot()
		if err != nil {
			return nil, err
		}
		left = &binaryExpr{op: "AND", left: left, right: right}
	}
	return left, nil
}

func (ep *exprParser) parseNot() (Expr, error) {
	if ep.current().is("NOT") && !ep.peek().is("EXISTS") {
		ep.advance()
		operand, err := ep.parseNot()
		if err != nil {
			return nil, err
		}
		return &unaryExpr{op: "NOT", operand: operand}, nil
	}
	return ep.parseComparison()
}

func (ep *exprParser) parseComparison() (Expr, error) {
	left, err := ep.parseAdditive()
	if err != nil {
		return nil, err
	}

	tok := ep.current()
	not := false
	if tok.is("NOT") && (ep.peek().is("LIKE") || ep.peek().is("IN") || ep.peek().is("BETWEEN")) {
		not = true
		ep.advance()
		tok = ep.current()
	}

	switch {
	case tok.Type == TokenOperator:
		ep.advance()
		right, err := ep.parseAdditive()
		if err != nil {
			return nil, err
		}
		return &binaryExpr{op: tok.Value, left: left, right: right}, nil

	case tok.is("LIKE"):
		ep.advance()
		right, err := ep.parseAdditive()
		if err != nil {
			return nil, err
		}
		op := "LIKE"
		if not {
			op = "NOT LIKE"
		}
		return &binaryExpr{op: op, left: left, right: right}, nil

	case tok.is("IS"):
		ep.advance()
		isNot := false
		if ep.current().is("NOT") {
			isNot = true
			ep.advance()
		}
		if err := ep.expectWord("NULL"); err != nil {
			return nil, err
		}
		return &isNullExpr{operand: left, not: isNot}, nil

	case tok.is("BETWEEN"):
		ep.advance()
		low, err := ep.parseAdditive()
		if err != nil {
			return nil, err
		}
		if err := ep.expectWord("AND"); err != nil {
			return nil, err
		}
		high, err := ep.parseAdditive()
		if err != nil {
			return nil, err
		}
		if not {
			return &binaryExpr{op: "OR",
				left:  &binaryExpr{op: "<", left: left, right: low},
				right: &binaryExpr{op: ">", left: left, right: high},
			}, nil
		}
		return &binaryExpr{op: "AND",
			left:  &binaryExpr{op: ">=", left: left, right: low},
			right: &binaryExpr{op: "<=", left: left, right: high},
		}, nil

	case tok.is("IN"):
		ep.advance()
		return ep.parseInList(left, not)
	}
	return left, nil
}

func (ep *exprParser) parseInList(operand Expr, not bool) (Expr, error) {
	if ep.current().Type != TokenLeftParen {
		return nil, fmt.Errorf("%w: IN requires a list", ErrSyntax)
	}
	end := matchParen(ep.toks, ep.pos)
	group := ep.toks[ep.pos : end+1]
	if isSubSelect(group) {
		stmt, err := ep.p.parseStatement(group)
		if err != nil {
			return nil, err
		}
		ep.pos = end + 1
		return &inExpr{operand: operand, sub: stmt, not: not}, nil
	}

	ep.advance()
	e := &inExpr{operand: operand, not: not}
	for ep.current().Type != TokenRightParen {
		item, err := ep.parseOr()
		if err != nil {
			return nil, err
		}
		e.list = append(e.list, item)
		if ep.current().Type == TokenComma {
			ep.advance()
		} else if ep.current().Type != TokenRightParen {
			return nil, fmt.Errorf("%w: expected ',' or ')' in IN list", ErrSyntax)
		}
	}
	ep.advance()
	return e, nil
}

func (ep *exprParser) parseAdditive() (Expr, error) {
	left, err := ep.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for tok := ep.current(); tok.Type == TokenMath && (tok.Value == "+" || tok.Value == "-" || tok.Value == "||"); tok = ep.current() {
		ep.advance()
		right, err := ep.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &binaryExpr{op: tok.Value, left: left, right: right}
	}
	return left, nil
}

func (ep *exprParser) parseMultiplicative() (Expr, error) {
	left, err := ep.parseUnary()
	if err != nil {
		return nil, err
	}
	for tok := ep.current(); tok.Type == TokenMath && (tok.Value == "*" || tok.Value == "/" || tok.Value == "%"); tok = ep.current() {
		ep.advance()
		right, err := ep.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &binaryExpr{op: tok.Value, left: left, right: right}
	}
	return left, nil
}

func (ep *exprParser) parseUnary() (Expr, error) {
	tok := ep.current()
	if tok.Type == TokenMath && (tok.Value == "-" || tok.Value == "+") {
		if err := ep.p.depth.Enter(); err != nil {
			return nil, err
		}
		defer ep.p.depth.Exit()
		ep.advance()
		operand, err := ep.parseUnary()
		if err != nil {
			return nil, err
		}
		if lit, ok := operand.(*literalExpr); ok {
			if f, ok := lit.value.(float64); ok {
				if tok.Value == "-" {
					f = -f
				}
				return &literalExpr{value: f}, nil
			}
		}
		if tok.Value == "+" {
			return operand, nil
		}
		return &unaryExpr{op: "-", operand: operand}, nil
	}
	return ep.parsePrimary()
}

func (ep *exprParser) parsePrimary() (Expr, error) {
	tok := ep.current()

	switch tok.Type {
	case TokenNumber:
		ep.advance()
		f, err := strconv.ParseFloat(tok.Value, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid number %q", ErrSyntax, tok.Value)
		}
		return &literalExpr{value: f}, nil

	case TokenString:
		ep.advance()
		return &literalExpr{value: tok.Value}, nil

	case TokenBind:
		ep.advance()
		n, err := bindIndex(tok)
		if err != nil {
			return nil, err
		}
		return &bindExpr{index: n}, nil

	case TokenLeftParen:
		end := matchParen(ep.toks, ep.pos)
		if end < 0 {
			return nil, fmt.Errorf("%w: unbalanced '('", ErrSyntax)
		}
		if group := ep.toks[ep.pos : end+1]; isSubSelect(group) {
			stmt, err := ep.p.parseStatement(group)
			if err != nil {
				return nil, err
			}
			ep.pos = end + 1
			return &subqueryExpr{stmt: stmt}, nil
		}
		ep.advance()
		inner, err := ep.parseOr()
		if err != nil {
			return nil, err
		}
		if err := ep.expect(TokenRightParen); err != nil {
			return nil, err
		}
		return inner, nil

	case TokenWord:
		switch {
		case tok.is("NULL"):
			ep.advance()
			return &literalExpr{value: nil}, nil
		case tok.is("TRUE"):
			ep.advance()
			return &literalExpr{value: true}, nil
		case tok.is("FALSE"):
			ep.advance()
			return &literalExpr{value: false}, nil
		case tok.is("CASE"):
			return ep.parseCase()
		case tok.is("EXISTS") || tok.is("NOT") && ep.peek().is("EXISTS"):
			return ep.parseExists()
		case !tok.Quoted && ep.peek().Type == TokenLeftParen:
			return ep.parseCall()
		}
		ep.advance()
		return &fieldExpr{name: tok.Value}, nil
	}

	if tok.Type == TokenEOF {
		return nil, fmt.Errorf("%w: unexpected end of expression", ErrSyntax)
	}
	return nil, fmt.Errorf("%w: unexpected %q", ErrSyntax, tok.Value)
}

func (ep *exprParser) parseExists() (Expr, error) {
	not := ep.current().is("NOT")
	if not {
		ep.advance()
	}
	ep.advance() // EXISTS
	if ep.current().Type != TokenLeftParen {
		return nil, fmt.Errorf("%w: EXISTS requires a sub-select", ErrSyntax)
	}
	end := matchParen(ep.toks, ep.pos)
	group := ep.toks[ep.pos : end+1]
	if !isSubSelect(group) {
		return nil, fmt.Errorf("%w: EXISTS requires a sub-select", ErrSyntax)
	}
	stmt, err := ep.p.parseStatement(group)
	if err != nil {
		return nil, err
	}
	ep.pos = end + 1
	return &existsExpr{stmt: stmt, not: not}, nil
}

// parseCase parses both CASE WHEN c THEN r ... and CASE x WHEN v THEN r ...
func (ep *exprParser) parseCase() (Expr, error) {
	ep.advance() // CASE
	e := &caseExpr{}
	if !ep.current().is("WHEN") {
		operand, err := ep.parseOr()
		if err != nil {
			return nil, err
		}
		e.operand = operand
	}
	for ep.current().is("WHEN") {
		ep.advance()
		cond, err := ep.parseOr()
		if err != nil {
			return nil, err
		}
		if err := ep.expectWord("THEN"); err != nil {
			return nil, err
		}
		result, err := ep.parseOr()
		if err != nil {
			return nil, err
		}
		e.whens = append(e.whens, whenClause{cond: cond, result: result})
	}
	if len(e.whens) == 0 {
		return nil, fmt.Errorf("%w: CASE requires at least one WHEN", ErrSyntax)
	}
	if ep.current().is("ELSE") {
		ep.advance()
		elseExpr, err := ep.parseOr()
		if err != nil {
			return nil, err
		}
		e.elseExpr = elseExpr
	}
	if err := ep.expectWord("END"); err != nil {
		return nil, err
	}
	return e, nil
}

// typeArgFunctions take a bare type name as their second argument.
var typeArgFunctions = map[string]bool{"CONVERT": true, "CAST": true}

func (ep *exprParser) parseCall() (Expr, error) {
	name := strings.ToUpper(ep.current().Value)
	ep.advance()
	ep.advance() // (

	call := &callExpr{name: name}
	if ep.current().is("DISTINCT") {
		call.distinct = true
		ep.advance()
	}
	if ep.current().Type == TokenMath && ep.current().Value == "*" && ep.peek().Type == TokenRightParen {
		call.star = true
		ep.advance()
	}

	for ep.current().Type != TokenRightParen {
		if ep.atEnd() {
			return nil, fmt.Errorf("%w: unterminated call to %s", ErrSyntax, name)
		}
		if typeArgFunctions[name] && len(call.args) == 1 && ep.current().Type == TokenWord && !ep.current().is("NULL") {
			call.args = append(call.args, &literalExpr{value: strings.ToUpper(ep.current().Value)})
			ep.advance()
			ep.skipTypeSize()
		} else {
			arg, err := ep.parseOr()
			if err != nil {
				return nil, err
			}
			call.args = append(call.args, arg)
		}
		switch {
		case ep.current().Type == TokenComma:
			ep.advance()
		case name == "CAST" && ep.current().is("AS"):
			ep.advance()
			if ep.current().Type != TokenWord {
				return nil, fmt.Errorf("%w: CAST requires a type name", ErrSyntax)
			}
		case ep.current().Type != TokenRightParen:
			return nil, fmt.Errorf("%w: expected ',' or ')' in call to %s, got %q", ErrSyntax, name, ep.current().Value)
		}
	}
	ep.advance() // )

	return call.resolve()
}

// skipTypeSize skips a length specifier such as VARCHAR(20).
func (ep *exprParser) skipTypeSize() {
	if ep.current().Type == TokenLeftParen {
		if end := matchParen(ep.toks, ep.pos); end > 0 {
			ep.pos = end + 1
		}
	}
}

// resolve validates the call against the aggregate set or the function
// registry, and rewrites IF/IIF into CASE.
func (c *callExpr) resolve() (Expr, error) {
	if isAggregateFunction(c.name) {
		if c.star && c.name != "COUNT" {
			return nil, fmt.Errorf("%w: %s(*)", ErrInvalidAggregate, c.name)
		}
		if !c.star && len(c.args) != 1 {
			return nil, fmt.Errorf("%w: %s takes exactly one argument", ErrSyntax, c.name)
		}
		return c, nil
	}
	if c.star || c.distinct {
		return nil, fmt.Errorf("%w: %s is not an aggregate", ErrInvalidAggregate, c.name)
	}

	switch c.name {
	case "IF", "IIF":
		if len(c.args) != 3 {
			return nil, fmt.Errorf("%w: %s takes 3 arguments, got %d", ErrSyntax, c.name, len(c.args))
		}
		return &caseExpr{
			whens:    []whenClause{{cond: c.args[0], result: c.args[1]}},
			elseExpr: c.args[2],
		}, nil
	}

	fn, ok := GetGlobalRegistry().Get(c.name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFunction, c.name)
	}
	if len(c.args) < fn.MinArity() || (fn.MaxArity() >= 0 && len(c.args) > fn.MaxArity()) {
		return nil, fmt.Errorf("%w: wrong number of arguments to %s: %d", ErrSyntax, c.name, len(c.args))
	}
	c.fn = fn
	return c, nil
}

// walkExpr visits e and its children depth first. Sub-selects are not
// entered.
func walkExpr(e Expr, visit func(Expr)) {
	if e == nil {
		return
	}
	visit(e)
	switch n := e.(type) {
	case *callExpr:
		for _, arg := range n.args {
			walkExpr(arg, visit)
		}
	case *unaryExpr:
		walkExpr(n.operand, visit)
	case *binaryExpr:
		walkExpr(n.left, visit)
		walkExpr(n.right, visit)
	case *caseExpr:
		walkExpr(n.operand, visit)
		for _, w := range n.whens {
			walkExpr(w.cond, visit)
			walkExpr(w.result, visit)
		}
		walkExpr(n.elseExpr, visit)
	case *inExpr:
		walkExpr(n.operand, visit)
		for _, item := range n.list {
			walkExpr(item, visit)
		}
	case *isNullExpr:
		walkExpr(n.operand, visit)
	}
}

// hasAggregate reports whether e folds rows.
func hasAggregate(e Expr) bool {
	found := false
	walkExpr(e, func(n Expr) {
		if call, ok := n.(*callExpr); ok && isAggregateFunction(call.name) {
			found = true
		}
	})
	return found
}

// fieldNames lists the column references in e.
func fieldNames(e Expr) []string {
	var names []string
	walkExpr(e, func(n Expr) {
		if f, ok := n.(*fieldExpr); ok {
			names = append(names, f.name)
		}
	})
	return names
}
