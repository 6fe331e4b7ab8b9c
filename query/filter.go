package query

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// comparison evaluates one condition operator against two resolved
// operand values.
type comparison func(left, right any) (bool, error)

// fieldComparisons maps every condition operator to its predicate.
var fieldComparisons = map[string]comparison{
	"=":  func(l, r any) (bool, error) { return compareValues(l, r) == 0, nil },
	"==": func(l, r any) (bool, error) { return compareValues(l, r) == 0, nil },
	"<>": func(l, r any) (bool, error) { return compareValues(l, r) != 0, nil },
	"!=": func(l, r any) (bool, error) { return compareValues(l, r) != 0, nil },
	"<":  func(l, r any) (bool, error) { return compareValues(l, r) < 0, nil },
	">":  func(l, r any) (bool, error) { return compareValues(l, r) > 0, nil },
	"<=": func(l, r any) (bool, error) { return compareValues(l, r) <= 0, nil },
	">=": func(l, r any) (bool, error) { return compareValues(l, r) >= 0, nil },
	"LIKE": func(l, r any) (bool, error) {
		return matchLike(strings.ToUpper(FormatValue(l)), strings.ToUpper(FormatValue(r))), nil
	},
	"NOT LIKE": func(l, r any) (bool, error) {
		return !matchLike(strings.ToUpper(FormatValue(l)), strings.ToUpper(FormatValue(r))), nil
	},
	"IN": func(l, r any) (bool, error) { return inList(l, r), nil },
	"NOT IN": func(l, r any) (bool, error) {
		return !inList(l, r), nil
	},
	"IS": func(l, r any) (bool, error) {
		if r == nil {
			return isBlank(l), nil
		}
		return compareValues(l, r) == 0, nil
	},
	"IS NOT": func(l, r any) (bool, error) {
		if r == nil {
			return !isBlank(l), nil
		}
		return compareValues(l, r) != 0, nil
	},
	"EXISTS":     func(_, r any) (bool, error) { return listLen(r) > 0, nil },
	"NOT EXISTS": func(_, r any) (bool, error) { return listLen(r) == 0, nil },
}

// compare applies a condition operator.
func compare(op string, left, right any) (bool, error) {
	fn, ok := fieldComparisons[strings.ToUpper(op)]
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrInvalidOperator, op)
	}
	return fn(left, right)
}

func inList(v, list any) bool {
	items, ok := list.([]any)
	if !ok {
		return compareValues(v, list) == 0
	}
	for _, item := range items {
		if compareValues(v, item) == 0 {
			return true
		}
	}
	return false
}

func listLen(v any) int {
	if items, ok := v.([]any); ok {
		return len(items)
	}
	if isBlank(v) {
		return 0
	}
	return 1
}

// isBlank reports whether a cell is NULL or empty.
func isBlank(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}

// isNullSentinel reports whether a value is skipped by aggregates.
func isNullSentinel(v any) bool {
	if isBlank(v) {
		return true
	}
	s, ok := v.(string)
	return ok && strings.EqualFold(s, "null")
}

// toFloat64 converts numeric Go types to float64
func toFloat64(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int8:
		return float64(val), true
	case int16:
		return float64(val), true
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	case uint:
		return float64(val), true
	case uint8:
		return float64(val), true
	case uint16:
		return float64(val), true
	case uint32:
		return float64(val), true
	case uint64:
		return float64(val), true
	default:
		return 0, false
	}
}

// toNumber is toFloat64 that also accepts numeric strings.
func toNumber(v any) (float64, bool) {
	if f, ok := toFloat64(v); ok {
		return f, true
	}
	s, ok := v.(string)
	if !ok {
		return 0, false
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// compareNumbers orders two floats, treating values within a relative
// epsilon as equal. NaN sorts before every other number.
func compareNumbers(left, right float64) int {
	if lNaN, rNaN := math.IsNaN(left), math.IsNaN(right); lNaN || rNaN {
		switch {
		case lNaN && rNaN:
			return 0
		case lNaN:
			return -1
		default:
			return 1
		}
	}
	const epsilon = 1e-9
	diff := math.Abs(left - right)
	threshold := epsilon * max(1.0, math.Abs(left), math.Abs(right))
	switch {
	case diff < threshold:
		return 0
	case left < right:
		return -1
	default:
		return 1
	}
}

// Value ranks for compareValues. Values of different ranks never compare
// equal and order by rank.
const (
	rankBlank = iota
	rankNumber
	rankDate
	rankBool
	rankText
)

// rankValue classifies a cell for ordering and returns its comparable
// form: float64, time.Time, bool or string.
func rankValue(v any) (int, any) {
	switch val := v.(type) {
	case nil:
		return rankBlank, ""
	case time.Time:
		return rankDate, val
	case bool:
		return rankBool, val
	case string:
		if val == "" {
			return rankBlank, ""
		}
		if f, ok := toNumber(val); ok {
			return rankNumber, f
		}
		if t, ok := parseDate(val); ok {
			return rankDate, t
		}
		switch {
		case strings.EqualFold(val, "true"):
			return rankBool, true
		case strings.EqualFold(val, "false"):
			return rankBool, false
		}
		return rankText, val
	}
	if f, ok := toFloat64(v); ok {
		return rankNumber, f
	}
	return rankText, FormatValue(v)
}

// compareValues is a total order over cell values. NULL and blank come
// first, then numbers (numeric strings included), dates, booleans and
// finally other text. Values of the same rank compare by their kind.
func compareValues(a, b any) int {
	aRank, aVal := rankValue(a)
	bRank, bVal := rankValue(b)
	if aRank != bRank {
		if aRank < bRank {
			return -1
		}
		return 1
	}

	switch aRank {
	case rankNumber:
		return compareNumbers(aVal.(float64), bVal.(float64))
	case rankDate:
		return aVal.(time.Time).Compare(bVal.(time.Time))
	case rankBool:
		aBool, bBool := aVal.(bool), bVal.(bool)
		switch {
		case aBool == bBool:
			return 0
		case !aBool:
			return -1
		default:
			return 1
		}
	case rankText:
		return strings.Compare(aVal.(string), bVal.(string))
	}
	return 0
}

// truthy converts a value to a condition result.
func truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return val != "" && val != "0" && !strings.EqualFold(val, "false")
	default:
		if f, ok := toFloat64(v); ok {
			return f != 0
		}
		return true
	}
}

// keyString renders a value for hashing; numbers and numeric strings share
// one key space so 11 and "11" collide.
func keyString(v any) string {
	if f, ok := toNumber(v); ok {
		return "n:" + strconv.FormatFloat(f, 'g', -1, 64)
	}
	return "s:" + FormatValue(v)
}

// rowKey builds a key identifying a row's values.
func rowKey(values []any) string {
	var key strings.Builder
	for i, v := range values {
		if i > 0 {
			key.WriteString("\x00||\x00") // Use unlikely separator to avoid collisions
		}
		key.WriteString(keyString(v))
	}
	return key.String()
}

// matchLike matches SQL LIKE patterns: % matches any run of characters and
// _ matches exactly one.
func matchLike(str, pattern string) bool {
	s, p := []rune(str), []rune(pattern)
	si, pi := 0, 0
	star, mark := -1, 0
	for si < len(s) {
		switch {
		case pi < len(p) && (p[pi] == '_' || p[pi] == s[si]):
			si++
			pi++
		case pi < len(p) && p[pi] == '%':
			star, mark = pi, si
			pi++
		case star >= 0:
			pi = star + 1
			mark++
			si = mark
		default:
			return false
		}
	}
	for pi < len(p) && p[pi] == '%' {
		pi++
	}
	return pi == len(p)
}
