package query

import (
	"errors"
	"fmt"
)

// Validation limits that keep a single statement from exhausting the process.
const (
	// MaxQueryLength is the maximum allowed query string length (1MB)
	MaxQueryLength = 1024 * 1024

	// MaxTokens is the maximum number of tokens in a query
	MaxTokens = 20000

	// MaxExpressionDepth is the maximum nesting depth for conditions and expressions
	MaxExpressionDepth = 100
)

var (
	// ErrQueryTooLong is returned when query exceeds MaxQueryLength
	ErrQueryTooLong = errors.New("query too long")

	// ErrTooManyTokens is returned when query has too many tokens
	ErrTooManyTokens = errors.New("too many tokens in query")

	// ErrExpressionTooDeep is returned when expression nesting exceeds limit
	ErrExpressionTooDeep = errors.New("expression nesting too deep")
)

// Parse errors.
var (
	// ErrSyntax covers malformed statements: unknown clause keywords,
	// unbalanced brackets, malformed LIMIT or function arguments.
	ErrSyntax = errors.New("syntax error")

	// ErrMissingAlias is returned when a sub-select in FROM or JOIN has no alias
	ErrMissingAlias = errors.New("derived table requires an alias")
)

// Binding errors.
var (
	ErrUnknownTable = errors.New("unknown table")
	ErrUnknownField = errors.New("unknown field")
	ErrBindCount    = errors.New("bind variable has no value")
	ErrInvalidJoin  = errors.New("invalid JOIN condition")
)

// Execution errors.
var (
	ErrInvalidOperator  = errors.New("invalid operator")
	ErrInvalidAggregate = errors.New("invalid aggregate")
	ErrUnknownFunction  = errors.New("unknown function")
	ErrColumnCount      = errors.New("set operation column count mismatch")
	ErrEvaluation       = errors.New("evaluation failed")
)

// ValidateQuery performs size validation on query input
func ValidateQuery(query string) error {
	if len(query) > MaxQueryLength {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrQueryTooLong, len(query), MaxQueryLength)
	}
	return nil
}

// ValidateTokens validates token count
func ValidateTokens(tokens []Token) error {
	if len(tokens) > MaxTokens {
		return fmt.Errorf("%w: %d tokens (max %d)", ErrTooManyTokens, len(tokens), MaxTokens)
	}
	return nil
}

// ExpressionDepthCounter tracks expression nesting depth
type ExpressionDepthCounter struct {
	depth    int
	maxDepth int
}

// NewExpressionDepthCounter creates a new depth counter
func NewExpressionDepthCounter() *ExpressionDepthCounter {
	return &ExpressionDepthCounter{depth: 0, maxDepth: MaxExpressionDepth}
}

// Enter increments depth and returns error if limit exceeded
func (c *ExpressionDepthCounter) Enter() error {
	c.depth++
	if c.depth > c.maxDepth {
		return fmt.Errorf("%w: %d (max %d)", ErrExpressionTooDeep, c.depth, c.maxDepth)
	}
	return nil
}

// Exit decrements depth
func (c *ExpressionDepthCounter) Exit() {
	c.depth--
}
