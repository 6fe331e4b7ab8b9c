package query

import (
	"fmt"
	"math"
	"time"
)

// Date/Time Functions

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"01/02/2006",
}

// parseDate reads a time.Time or a date string in one of the accepted
// layouts.
func parseDate(v any) (time.Time, bool) {
	switch val := v.(type) {
	case time.Time:
		return val, true
	case string:
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, val); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

func dateArg(fn string, v any) (time.Time, error) {
	t, ok := parseDate(v)
	if !ok {
		return time.Time{}, fmt.Errorf("%s: not a date: %q", fn, FormatValue(v))
	}
	return t, nil
}

// truncateDay drops the clock part of t.
func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// NowFunc returns the current timestamp
type NowFunc struct{}

func (f *NowFunc) Name() string  { return "NOW" }
func (f *NowFunc) MinArity() int { return 0 }
func (f *NowFunc) MaxArity() int { return 0 }
func (f *NowFunc) Evaluate(_ []any) (any, error) {
	return time.Now(), nil
}

// CurDateFunc returns today's date at midnight
type CurDateFunc struct{}

func (f *CurDateFunc) Name() string  { return "CURDATE" }
func (f *CurDateFunc) MinArity() int { return 0 }
func (f *CurDateFunc) MaxArity() int { return 0 }
func (f *CurDateFunc) Evaluate(_ []any) (any, error) {
	return truncateDay(time.Now()), nil
}

// DayFunc returns the day of the month
type DayFunc struct{}

func (f *DayFunc) Name() string  { return "DAY" }
func (f *DayFunc) MinArity() int { return 1 }
func (f *DayFunc) MaxArity() int { return 1 }
func (f *DayFunc) Evaluate(args []any) (any, error) {
	t, err := dateArg("DAY", args[0])
	if err != nil {
		return nil, err
	}
	return float64(t.Day()), nil
}

// MonthFunc returns the month number
type MonthFunc struct{}

func (f *MonthFunc) Name() string  { return "MONTH" }
func (f *MonthFunc) MinArity() int { return 1 }
func (f *MonthFunc) MaxArity() int { return 1 }
func (f *MonthFunc) Evaluate(args []any) (any, error) {
	t, err := dateArg("MONTH", args[0])
	if err != nil {
		return nil, err
	}
	return float64(t.Month()), nil
}

// YearFunc returns the year
type YearFunc struct{}

func (f *YearFunc) Name() string  { return "YEAR" }
func (f *YearFunc) MinArity() int { return 1 }
func (f *YearFunc) MaxArity() int { return 1 }
func (f *YearFunc) Evaluate(args []any) (any, error) {
	t, err := dateArg("YEAR", args[0])
	if err != nil {
		return nil, err
	}
	return float64(t.Year()), nil
}

// DayNameFunc returns the weekday name
type DayNameFunc struct{}

func (f *DayNameFunc) Name() string  { return "DAYNAME" }
func (f *DayNameFunc) MinArity() int { return 1 }
func (f *DayNameFunc) MaxArity() int { return 1 }
func (f *DayNameFunc) Evaluate(args []any) (any, error) {
	t, err := dateArg("DAYNAME", args[0])
	if err != nil {
		return nil, err
	}
	return t.Weekday().String(), nil
}

// DateDiffFunc returns the number of days from the second date to the first
type DateDiffFunc struct{}

func (f *DateDiffFunc) Name() string  { return "DATEDIFF" }
func (f *DateDiffFunc) MinArity() int { return 2 }
func (f *DateDiffFunc) MaxArity() int { return 2 }
func (f *DateDiffFunc) Evaluate(args []any) (any, error) {
	end, err := dateArg("DATEDIFF", args[0])
	if err != nil {
		return nil, err
	}
	start, err := dateArg("DATEDIFF", args[1])
	if err != nil {
		return nil, err
	}
	return math.Round(truncateDay(end).Sub(truncateDay(start)).Hours() / 24), nil
}

// AddDateFunc adds a number of days to a date
type AddDateFunc struct{}

func (f *AddDateFunc) Name() string  { return "ADDDATE" }
func (f *AddDateFunc) MinArity() int { return 2 }
func (f *AddDateFunc) MaxArity() int { return 2 }
func (f *AddDateFunc) Evaluate(args []any) (any, error) {
	t, err := dateArg("ADDDATE", args[0])
	if err != nil {
		return nil, err
	}
	days, err := valueToInt(args[1])
	if err != nil {
		return nil, fmt.Errorf("ADDDATE: days: %w", err)
	}
	return t.AddDate(0, 0, days), nil
}
