package query

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// TokenType represents the type of a token
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenWord
	TokenNumber
	TokenString
	TokenOperator   // = == <> != < > <= >=
	TokenMath       // + - * / % ||
	TokenComma      // ,
	TokenLeftParen  // (
	TokenRightParen // )
	TokenBind       // ? or ?N
	TokenError
)

func (t TokenType) String() string {
	switch t {
	case TokenEOF:
		return "end of statement"
	case TokenWord:
		return "word"
	case TokenNumber:
		return "number"
	case TokenString:
		return "string"
	case TokenOperator:
		return "operator"
	case TokenMath:
		return "math operator"
	case TokenComma:
		return "','"
	case TokenLeftParen:
		return "'('"
	case TokenRightParen:
		return "')'"
	case TokenBind:
		return "bind variable"
	default:
		return "invalid token"
	}
}

// Token represents a lexical token. Pos and End are byte offsets into the
// statement text. Depth is the bracket depth the token sits at; a pair of
// matching parentheses share the depth of their surroundings.
type Token struct {
	Type   TokenType
	Value  string
	Pos    int
	End    int
	Depth  int
	Quoted bool // word came from `...` or [...]
}

// is reports whether the token is the given keyword (case-insensitive).
func (t Token) is(keyword string) bool {
	return t.Type == TokenWord && !t.Quoted && strings.EqualFold(t.Value, keyword)
}

// Lexer tokenizes SQL query strings
type Lexer struct {
	input string
	pos   int // offset of ch
	next  int // offset after ch
	ch    rune
	depth int
}

// NewLexer creates a new lexer
func NewLexer(input string) *Lexer {
	l := &Lexer{input: input}
	l.readChar()
	return l
}

// readChar reads the next character
func (l *Lexer) readChar() {
	l.pos = l.next
	if l.next >= len(l.input) {
		l.ch = 0
		return
	}
	r, w := utf8.DecodeRuneInString(l.input[l.next:])
	l.ch = r
	l.next += w
}

// peekChar looks at the next character without advancing
func (l *Lexer) peekChar() rune {
	if l.next >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.next:])
	return r
}

// skipWhitespace skips whitespace and -- line comments
func (l *Lexer) skipWhitespace() {
	for {
		switch {
		case unicode.IsSpace(l.ch):
			l.readChar()
		case l.ch == '-' && l.peekChar() == '-':
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
		default:
			return
		}
	}
}

// readString reads a quoted string. A doubled quote is an escaped quote.
func (l *Lexer) readString(quote rune) (string, bool) {
	var result strings.Builder
	l.readChar() // skip opening quote

	for l.ch != 0 {
		if l.ch == quote {
			if l.peekChar() == quote {
				result.WriteRune(quote)
				l.readChar()
				l.readChar()
				continue
			}
			l.readChar() // skip closing quote
			return result.String(), true
		}
		if l.ch == '\\' && (l.peekChar() == quote || l.peekChar() == '\\') {
			l.readChar()
		}
		result.WriteRune(l.ch)
		l.readChar()
	}
	return result.String(), false
}

// readQuotedIdent reads `name` or [name]
func (l *Lexer) readQuotedIdent(closing rune) (string, bool) {
	var result strings.Builder
	l.readChar()
	for l.ch != closing && l.ch != 0 {
		result.WriteRune(l.ch)
		l.readChar()
	}
	if l.ch != closing {
		return result.String(), false
	}
	l.readChar()
	return result.String(), true
}

// readNumber reads a number
func (l *Lexer) readNumber() string {
	start := l.pos
	for unicode.IsDigit(l.ch) || l.ch == '.' {
		l.readChar()
	}
	if (l.ch == 'e' || l.ch == 'E') && (unicode.IsDigit(l.peekChar()) || l.peekChar() == '-' || l.peekChar() == '+') {
		l.readChar()
		if l.ch == '-' || l.ch == '+' {
			l.readChar()
		}
		for unicode.IsDigit(l.ch) {
			l.readChar()
		}
	}
	return l.input[start:l.pos]
}

// readIdentifier reads an identifier, including qualified names such as
// books.id and alias.*
func (l *Lexer) readIdentifier() string {
	start := l.pos
	for unicode.IsLetter(l.ch) || unicode.IsDigit(l.ch) || l.ch == '_' || l.ch == '$' || l.ch == '#' || l.ch == '.' {
		if l.ch == '.' && l.peekChar() == '*' {
			l.readChar()
			l.readChar()
			break
		}
		l.readChar()
	}
	return l.input[start:l.pos]
}

// NextToken returns the next token
func (l *Lexer) NextToken() Token {
	l.skipWhitespace()

	start := l.pos
	tok := Token{Pos: start, Depth: l.depth}

	switch l.ch {
	case 0, ';':
		// text after the first unquoted ';' is discarded
		tok.Type = TokenEOF
		return tok
	case '=':
		tok.Type, tok.Value = TokenOperator, "="
		l.readChar()
		if l.ch == '=' {
			tok.Value = "=="
			l.readChar()
		}
	case '!':
		if l.peekChar() == '=' {
			l.readChar()
			l.readChar()
			tok.Type, tok.Value = TokenOperator, "!="
		} else {
			tok.Type, tok.Value = TokenError, "!"
			l.readChar()
		}
	case '<':
		l.readChar()
		tok.Type, tok.Value = TokenOperator, "<"
		switch l.ch {
		case '=':
			tok.Value = "<="
			l.readChar()
		case '>':
			tok.Value = "<>"
			l.readChar()
		}
	case '>':
		l.readChar()
		tok.Type, tok.Value = TokenOperator, ">"
		if l.ch == '=' {
			tok.Value = ">="
			l.readChar()
		}
	case '+', '-', '*', '/', '%':
		tok.Type, tok.Value = TokenMath, string(l.ch)
		l.readChar()
	case '|':
		if l.peekChar() == '|' {
			l.readChar()
			l.readChar()
			tok.Type, tok.Value = TokenMath, "||"
		} else {
			tok.Type, tok.Value = TokenError, "|"
			l.readChar()
		}
	case '\'', '"':
		value, ok := l.readString(l.ch)
		if !ok {
			tok.Type, tok.Value = TokenError, "unterminated string"
		} else {
			tok.Type, tok.Value = TokenString, value
		}
	case '`':
		value, ok := l.readQuotedIdent('`')
		tok.Type, tok.Value, tok.Quoted = TokenWord, value, true
		if !ok {
			tok.Type, tok.Value = TokenError, "unterminated identifier"
		}
	case '[':
		value, ok := l.readQuotedIdent(']')
		tok.Type, tok.Value, tok.Quoted = TokenWord, value, true
		if !ok {
			tok.Type, tok.Value = TokenError, "unterminated identifier"
		}
	case ',':
		tok.Type, tok.Value = TokenComma, ","
		l.readChar()
	case '(':
		tok.Type, tok.Value = TokenLeftParen, "("
		l.depth++
		l.readChar()
	case ')':
		l.depth--
		tok.Type, tok.Value, tok.Depth = TokenRightParen, ")", l.depth
		l.readChar()
	case '?':
		l.readChar()
		digits := l.pos
		for unicode.IsDigit(l.ch) {
			l.readChar()
		}
		tok.Type, tok.Value = TokenBind, "?"+l.input[digits:l.pos]
	default:
		switch {
		case unicode.IsDigit(l.ch) || (l.ch == '.' && unicode.IsDigit(l.peekChar())):
			tok.Type, tok.Value = TokenNumber, l.readNumber()
		case unicode.IsLetter(l.ch) || l.ch == '_' || l.ch == '@' || l.ch == '#':
			if l.ch == '@' {
				l.readChar()
			}
			tok.Type, tok.Value = TokenWord, l.readIdentifier()
			if l.input[start] == '@' {
				tok.Value = l.input[start:l.pos]
			}
		default:
			tok.Type, tok.Value = TokenError, string(l.ch)
			l.readChar()
		}
	}

	tok.End = l.pos
	return tok
}

// Tokenize returns all tokens from the input. Bare ? bind variables are
// numbered left to right so every bind token carries an explicit ?N index.
func Tokenize(input string) ([]Token, error) {
	lexer := NewLexer(input)
	var tokens []Token
	binds := 0

	for {
		tok := lexer.NextToken()
		switch tok.Type {
		case TokenError:
			return nil, fmt.Errorf("%w: invalid character %q at offset %d", ErrSyntax, tok.Value, tok.Pos)
		case TokenBind:
			if tok.Value == "?" {
				binds++
				tok.Value = "?" + strconv.Itoa(binds)
			}
		case TokenRightParen:
			if tok.Depth < 0 {
				return nil, fmt.Errorf("%w: unbalanced ')' at offset %d", ErrSyntax, tok.Pos)
			}
		}
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF {
			break
		}
	}
	if lexer.depth != 0 {
		return nil, fmt.Errorf("%w: unbalanced '('", ErrSyntax)
	}
	if err := ValidateTokens(tokens); err != nil {
		return nil, err
	}
	return tokens, nil
}

// bindIndex returns the 1-based index of a ?N bind token.
func bindIndex(tok Token) (int, error) {
	n, err := strconv.Atoi(strings.TrimPrefix(tok.Value, "?"))
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: invalid bind variable %q", ErrSyntax, tok.Value)
	}
	return n, nil
}

// matchParen returns the index of the ')' matching the '(' at toks[open],
// or -1.
func matchParen(toks []Token, open int) int {
	depth := toks[open].Depth
	for i := open + 1; i < len(toks); i++ {
		if toks[i].Type == TokenRightParen && toks[i].Depth == depth {
			return i
		}
	}
	return -1
}

// baseDepth is the shallowest depth in a token span.
func baseDepth(toks []Token) int {
	if len(toks) == 0 {
		return 0
	}
	d := toks[0].Depth
	for _, t := range toks[1:] {
		if t.Depth < d {
			d = t.Depth
		}
	}
	return d
}

// isWrapped reports whether the span is a single parenthesized group.
func isWrapped(toks []Token) bool {
	return len(toks) >= 2 && toks[0].Type == TokenLeftParen && matchParen(toks, 0) == len(toks)-1
}

// splitTopLevel splits a span on commas at its base depth.
func splitTopLevel(toks []Token) [][]Token {
	if len(toks) == 0 {
		return nil
	}
	base := baseDepth(toks)
	var parts [][]Token
	start := 0
	for i, t := range toks {
		if t.Type == TokenComma && t.Depth == base {
			parts = append(parts, toks[start:i])
			start = i + 1
		}
	}
	return append(parts, toks[start:])
}

var reservedWords = map[string]bool{
	"SELECT": true, "FROM": true, "WHERE": true, "AND": true, "OR": true, "AS": true,
	"GROUP": true, "BY": true, "HAVING": true, "ORDER": true, "ASC": true, "DESC": true,
	"LIMIT": true, "OFFSET": true, "IN": true, "LIKE": true, "BETWEEN": true, "IS": true,
	"NOT": true, "NULL": true, "DISTINCT": true, "CASE": true, "WHEN": true, "THEN": true,
	"ELSE": true, "END": true, "EXISTS": true, "JOIN": true, "INNER": true, "LEFT": true,
	"RIGHT": true, "FULL": true, "OUTER": true, "ON": true, "UNION": true, "ALL": true,
	"INTERSECT": true, "EXCEPT": true, "PIVOT": true,
}

// isKeyword checks if a word is a reserved SQL keyword
func isKeyword(s string) bool {
	return reservedWords[strings.ToUpper(s)]
}
