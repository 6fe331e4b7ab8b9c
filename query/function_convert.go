package query

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Type Conversion Functions

// ConvertFunc converts a value to a named type: CONVERT(value, type). It is
// also registered as CAST, whose "value AS type" form compiles to the same
// call.
type ConvertFunc struct{}

func (f *ConvertFunc) Name() string  { return "CONVERT" }
func (f *ConvertFunc) MinArity() int { return 2 }
func (f *ConvertFunc) MaxArity() int { return 2 }
func (f *ConvertFunc) Evaluate(args []any) (any, error) {
	value := args[0]
	typeName := strings.ToUpper(valueToString(args[1]))
	if value == nil {
		return nil, nil
	}

	switch typeName {
	case "INT", "INTEGER", "SIGNED", "UNSIGNED", "BIGINT":
		num, err := valueToNumber(value)
		if err != nil {
			return nil, fmt.Errorf("CONVERT: %w", err)
		}
		return math.Trunc(num), nil
	case "FLOAT", "DOUBLE", "DECIMAL", "NUMERIC", "REAL", "NUMBER":
		num, err := valueToNumber(value)
		if err != nil {
			return nil, fmt.Errorf("CONVERT: %w", err)
		}
		return num, nil
	case "CHAR", "VARCHAR", "NVARCHAR", "TEXT", "STRING":
		return valueToString(value), nil
	case "DATE", "DATETIME", "TIMESTAMP":
		t, err := dateArg("CONVERT", value)
		if err != nil {
			return nil, err
		}
		if typeName == "DATE" {
			return truncateDay(t), nil
		}
		return t, nil
	case "BOOL", "BOOLEAN":
		if b, ok := value.(bool); ok {
			return b, nil
		}
		if num, ok := toNumber(value); ok {
			return num != 0, nil
		}
		b, err := strconv.ParseBool(valueToString(value))
		if err != nil {
			return nil, fmt.Errorf("CONVERT: cannot convert %q to BOOL", valueToString(value))
		}
		return b, nil
	default:
		return nil, fmt.Errorf("CONVERT: unknown type: %s", typeName)
	}
}

// Conditional Functions

// CoalesceFunc returns the first non-null argument
type CoalesceFunc struct{}

func (f *CoalesceFunc) Name() string  { return "COALESCE" }
func (f *CoalesceFunc) MinArity() int { return 1 }
func (f *CoalesceFunc) MaxArity() int { return -1 }
func (f *CoalesceFunc) Evaluate(args []any) (any, error) {
	for _, arg := range args {
		if !isBlank(arg) {
			return arg, nil
		}
	}
	return nil, nil
}

// NullIfFunc returns NULL when both arguments are equal, otherwise the first
type NullIfFunc struct{}

func (f *NullIfFunc) Name() string  { return "NULLIF" }
func (f *NullIfFunc) MinArity() int { return 2 }
func (f *NullIfFunc) MaxArity() int { return 2 }
func (f *NullIfFunc) Evaluate(args []any) (any, error) {
	if compareValues(args[0], args[1]) == 0 {
		return nil, nil
	}
	return args[0], nil
}

// IsNullFunc returns the replacement when the value is NULL or blank
type IsNullFunc struct{}

func (f *IsNullFunc) Name() string  { return "ISNULL" }
func (f *IsNullFunc) MinArity() int { return 2 }
func (f *IsNullFunc) MaxArity() int { return 2 }
func (f *IsNullFunc) Evaluate(args []any) (any, error) {
	if isBlank(args[0]) {
		return args[1], nil
	}
	return args[0], nil
}
