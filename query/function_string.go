package query

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// String Functions

var (
	upperCaser = cases.Upper(language.Und)
	lowerCaser = cases.Lower(language.Und)
	titleCaser = cases.Title(language.Und)
)

// UpperFunc converts a string to uppercase
type UpperFunc struct{}

func (f *UpperFunc) Name() string  { return "UPPER" }
func (f *UpperFunc) MinArity() int { return 1 }
func (f *UpperFunc) MaxArity() int { return 1 }
func (f *UpperFunc) Evaluate(args []any) (any, error) {
	return upperCaser.String(valueToString(args[0])), nil
}

// LowerFunc converts a string to lowercase
type LowerFunc struct{}

func (f *LowerFunc) Name() string  { return "LOWER" }
func (f *LowerFunc) MinArity() int { return 1 }
func (f *LowerFunc) MaxArity() int { return 1 }
func (f *LowerFunc) Evaluate(args []any) (any, error) {
	return lowerCaser.String(valueToString(args[0])), nil
}

// InitCapFunc upper-cases the first letter of every word
type InitCapFunc struct{}

func (f *InitCapFunc) Name() string  { return "INITCAP" }
func (f *InitCapFunc) MinArity() int { return 1 }
func (f *InitCapFunc) MaxArity() int { return 1 }
func (f *InitCapFunc) Evaluate(args []any) (any, error) {
	return titleCaser.String(valueToString(args[0])), nil
}

// ConcatFunc concatenates multiple strings
type ConcatFunc struct{}

func (f *ConcatFunc) Name() string  { return "CONCAT" }
func (f *ConcatFunc) MinArity() int { return 1 }
func (f *ConcatFunc) MaxArity() int { return -1 } // variadic
func (f *ConcatFunc) Evaluate(args []any) (any, error) {
	var builder strings.Builder
	for _, arg := range args {
		builder.WriteString(valueToString(arg))
	}
	return builder.String(), nil
}

// ConcatWSFunc joins its arguments with a separator, skipping NULLs
type ConcatWSFunc struct{}

func (f *ConcatWSFunc) Name() string  { return "CONCAT_WS" }
func (f *ConcatWSFunc) MinArity() int { return 2 }
func (f *ConcatWSFunc) MaxArity() int { return -1 }
func (f *ConcatWSFunc) Evaluate(args []any) (any, error) {
	parts := make([]string, 0, len(args)-1)
	for _, arg := range args[1:] {
		if arg == nil {
			continue
		}
		parts = append(parts, valueToString(arg))
	}
	return strings.Join(parts, valueToString(args[0])), nil
}

// LengthFunc returns the number of characters in a string
type LengthFunc struct{}

func (f *LengthFunc) Name() string  { return "LENGTH" }
func (f *LengthFunc) MinArity() int { return 1 }
func (f *LengthFunc) MaxArity() int { return 1 }
func (f *LengthFunc) Evaluate(args []any) (any, error) {
	return float64(utf8.RuneCountInString(valueToString(args[0]))), nil
}

// LenFunc returns the length of a string, ignoring trailing spaces
type LenFunc struct{}

func (f *LenFunc) Name() string  { return "LEN" }
func (f *LenFunc) MinArity() int { return 1 }
func (f *LenFunc) MaxArity() int { return 1 }
func (f *LenFunc) Evaluate(args []any) (any, error) {
	return float64(utf8.RuneCountInString(strings.TrimRight(valueToString(args[0]), " "))), nil
}

// TrimFunc trims whitespace from both ends of a string
type TrimFunc struct{}

func (f *TrimFunc) Name() string  { return "TRIM" }
func (f *TrimFunc) MinArity() int { return 1 }
func (f *TrimFunc) MaxArity() int { return 1 }
func (f *TrimFunc) Evaluate(args []any) (any, error) {
	return strings.TrimSpace(valueToString(args[0])), nil
}

// LTrimFunc trims whitespace from the left side of a string
type LTrimFunc struct{}

func (f *LTrimFunc) Name() string  { return "LTRIM" }
func (f *LTrimFunc) MinArity() int { return 1 }
func (f *LTrimFunc) MaxArity() int { return 1 }
func (f *LTrimFunc) Evaluate(args []any) (any, error) {
	return strings.TrimLeft(valueToString(args[0]), " \t\n\r"), nil
}

// RTrimFunc trims whitespace from the right side of a string
type RTrimFunc struct{}

func (f *RTrimFunc) Name() string  { return "RTRIM" }
func (f *RTrimFunc) MinArity() int { return 1 }
func (f *RTrimFunc) MaxArity() int { return 1 }
func (f *RTrimFunc) Evaluate(args []any) (any, error) {
	return strings.TrimRight(valueToString(args[0]), " \t\n\r"), nil
}

// LeftFunc returns the leftmost n characters
type LeftFunc struct{}

func (f *LeftFunc) Name() string  { return "LEFT" }
func (f *LeftFunc) MinArity() int { return 2 }
func (f *LeftFunc) MaxArity() int { return 2 }
func (f *LeftFunc) Evaluate(args []any) (any, error) {
	runes := []rune(valueToString(args[0]))
	n, err := valueToInt(args[1])
	if err != nil {
		return nil, fmt.Errorf("LEFT: length: %w", err)
	}
	n = min(max(n, 0), len(runes))
	return string(runes[:n]), nil
}

// RightFunc returns the rightmost n characters
type RightFunc struct{}

func (f *RightFunc) Name() string  { return "RIGHT" }
func (f *RightFunc) MinArity() int { return 2 }
func (f *RightFunc) MaxArity() int { return 2 }
func (f *RightFunc) Evaluate(args []any) (any, error) {
	runes := []rune(valueToString(args[0]))
	n, err := valueToInt(args[1])
	if err != nil {
		return nil, fmt.Errorf("RIGHT: length: %w", err)
	}
	n = min(max(n, 0), len(runes))
	return string(runes[len(runes)-n:]), nil
}

// SubstringFunc extracts a substring (1-indexed, SQL style)
type SubstringFunc struct{}

func (f *SubstringFunc) Name() string  { return "SUBSTRING" }
func (f *SubstringFunc) MinArity() int { return 2 }
func (f *SubstringFunc) MaxArity() int { return 3 }
func (f *SubstringFunc) Evaluate(args []any) (any, error) {
	runes := []rune(valueToString(args[0]))
	start, err := valueToInt(args[1])
	if err != nil {
		return nil, fmt.Errorf("SUBSTRING: start: %w", err)
	}
	startIdx := start - 1 // SQL uses 1-based indexing
	if startIdx < 0 {
		startIdx = 0
	}
	if startIdx >= len(runes) {
		return "", nil
	}

	if len(args) == 3 {
		length, err := valueToInt(args[2])
		if err != nil {
			return nil, fmt.Errorf("SUBSTRING: length: %w", err)
		}
		if length < 0 {
			return "", nil
		}
		return string(runes[startIdx:min(startIdx+length, len(runes))]), nil
	}
	return string(runes[startIdx:]), nil
}

// SubstringIndexFunc returns the text before the count-th delimiter, or
// after the count-th delimiter from the end when count is negative
type SubstringIndexFunc struct{}

func (f *SubstringIndexFunc) Name() string  { return "SUBSTRING_INDEX" }
func (f *SubstringIndexFunc) MinArity() int { return 3 }
func (f *SubstringIndexFunc) MaxArity() int { return 3 }
func (f *SubstringIndexFunc) Evaluate(args []any) (any, error) {
	str, delim := valueToString(args[0]), valueToString(args[1])
	count, err := valueToInt(args[2])
	if err != nil {
		return nil, fmt.Errorf("SUBSTRING_INDEX: count: %w", err)
	}
	if delim == "" || count == 0 {
		return "", nil
	}
	parts := strings.Split(str, delim)
	if count > 0 {
		if count >= len(parts) {
			return str, nil
		}
		return strings.Join(parts[:count], delim), nil
	}
	if -count >= len(parts) {
		return str, nil
	}
	return strings.Join(parts[len(parts)+count:], delim), nil
}

// ReplaceFunc replaces occurrences of a substring
type ReplaceFunc struct{}

func (f *ReplaceFunc) Name() string  { return "REPLACE" }
func (f *ReplaceFunc) MinArity() int { return 3 }
func (f *ReplaceFunc) MaxArity() int { return 3 }
func (f *ReplaceFunc) Evaluate(args []any) (any, error) {
	return strings.ReplaceAll(valueToString(args[0]), valueToString(args[1]), valueToString(args[2])), nil
}

// ReplicateFunc repeats a string n times
type ReplicateFunc struct{}

func (f *ReplicateFunc) Name() string  { return "REPLICATE" }
func (f *ReplicateFunc) MinArity() int { return 2 }
func (f *ReplicateFunc) MaxArity() int { return 2 }
func (f *ReplicateFunc) Evaluate(args []any) (any, error) {
	n, err := valueToInt(args[1])
	if err != nil {
		return nil, fmt.Errorf("REPLICATE: count: %w", err)
	}
	if n <= 0 {
		return "", nil
	}
	return strings.Repeat(valueToString(args[0]), n), nil
}

// ReverseFunc reverses a string
type ReverseFunc struct{}

func (f *ReverseFunc) Name() string  { return "REVERSE" }
func (f *ReverseFunc) MinArity() int { return 1 }
func (f *ReverseFunc) MaxArity() int { return 1 }
func (f *ReverseFunc) Evaluate(args []any) (any, error) {
	runes := []rune(valueToString(args[0]))
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return string(runes), nil
}

// SpaceFunc returns n spaces
type SpaceFunc struct{}

func (f *SpaceFunc) Name() string  { return "SPACE" }
func (f *SpaceFunc) MinArity() int { return 1 }
func (f *SpaceFunc) MaxArity() int { return 1 }
func (f *SpaceFunc) Evaluate(args []any) (any, error) {
	n, err := valueToInt(args[0])
	if err != nil {
		return nil, fmt.Errorf("SPACE: %w", err)
	}
	return strings.Repeat(" ", max(n, 0)), nil
}

// StuffFunc deletes length characters at start and inserts a replacement
type StuffFunc struct{}

func (f *StuffFunc) Name() string  { return "STUFF" }
func (f *StuffFunc) MinArity() int { return 4 }
func (f *StuffFunc) MaxArity() int { return 4 }
func (f *StuffFunc) Evaluate(args []any) (any, error) {
	runes := []rune(valueToString(args[0]))
	start, err := valueToInt(args[1])
	if err != nil {
		return nil, fmt.Errorf("STUFF: start: %w", err)
	}
	length, err := valueToInt(args[2])
	if err != nil {
		return nil, fmt.Errorf("STUFF: length: %w", err)
	}
	if start < 1 || start > len(runes) || length < 0 {
		return nil, nil
	}
	end := min(start-1+length, len(runes))
	return string(runes[:start-1]) + valueToString(args[3]) + string(runes[end:]), nil
}

// CharIndexFunc returns the 1-based position of a substring, or 0
type CharIndexFunc struct{}

func (f *CharIndexFunc) Name() string  { return "CHARINDEX" }
func (f *CharIndexFunc) MinArity() int { return 2 }
func (f *CharIndexFunc) MaxArity() int { return 3 }
func (f *CharIndexFunc) Evaluate(args []any) (any, error) {
	needle := []rune(valueToString(args[0]))
	haystack := []rune(valueToString(args[1]))
	from := 0
	if len(args) == 3 {
		start, err := valueToInt(args[2])
		if err != nil {
			return nil, fmt.Errorf("CHARINDEX: start: %w", err)
		}
		from = max(start-1, 0)
	}
	return float64(runeIndex(haystack, needle, from) + 1), nil
}

// InstrFunc returns the 1-based position of a substring, or 0
type InstrFunc struct{}

func (f *InstrFunc) Name() string  { return "INSTR" }
func (f *InstrFunc) MinArity() int { return 2 }
func (f *InstrFunc) MaxArity() int { return 2 }
func (f *InstrFunc) Evaluate(args []any) (any, error) {
	return float64(runeIndex([]rune(valueToString(args[0])), []rune(valueToString(args[1])), 0) + 1), nil
}

// runeIndex is strings.Index over runes starting at from; -1 when absent.
func runeIndex(haystack, needle []rune, from int) int {
	if from > len(haystack) {
		return -1
	}
	i := strings.Index(string(haystack[from:]), string(needle))
	if i < 0 {
		return -1
	}
	return from + utf8.RuneCountInString(string(haystack[from:])[:i])
}
