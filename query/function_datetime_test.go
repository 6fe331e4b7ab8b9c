package query

import (
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name   string
		input  any
		want   time.Time
		wantOK bool
	}{
		{"date", "2024-03-15", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), true},
		{"datetime", "2024-03-15 10:30:00", time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC), true},
		{"iso", "2024-03-15T10:30:00", time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC), true},
		{"rfc3339", "2024-03-15T10:30:00Z", time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC), true},
		{"us", "03/15/2024", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), true},
		{"time value", time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), true},
		{"not a date", "hello", time.Time{}, false},
		{"number", 12.0, time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseDate(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("parseDate(%v) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if ok && !got.Equal(tt.want) {
				t.Errorf("parseDate(%v) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestDatePartFuncs(t *testing.T) {
	runFuncCases(t, &DayFunc{}, []funcCase{
		{"day", []any{"2024-03-15"}, 15.0, false},
		{"invalid", []any{"soon"}, nil, true},
	})
	runFuncCases(t, &MonthFunc{}, []funcCase{
		{"month", []any{"2024-03-15"}, 3.0, false},
	})
	runFuncCases(t, &YearFunc{}, []funcCase{
		{"year", []any{time.Date(1999, 12, 31, 0, 0, 0, 0, time.UTC)}, 1999.0, false},
	})
	runFuncCases(t, &DayNameFunc{}, []funcCase{
		{"friday", []any{"2024-03-15"}, "Friday", false},
	})
}

func TestDateArithmeticFuncs(t *testing.T) {
	runFuncCases(t, &DateDiffFunc{}, []funcCase{
		{"forward", []any{"2024-03-15", "2024-03-01"}, 14.0, false},
		{"backward", []any{"2024-03-01", "2024-03-15"}, -14.0, false},
		{"ignores clock", []any{"2024-03-02 23:00:00", "2024-03-01 01:00:00"}, 1.0, false},
	})
	runFuncCases(t, &AddDateFunc{}, []funcCase{
		{"add", []any{"2024-02-28", 2.0}, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), false},
		{"subtract", []any{"2024-03-01", -1.0}, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), false},
	})
}

func TestCurrentDateFuncs(t *testing.T) {
	got, err := (&CurDateFunc{}).Evaluate(nil)
	if err != nil {
		t.Fatalf("CURDATE: unexpected error: %v", err)
	}
	d := got.(time.Time)
	if d.Hour() != 0 || d.Minute() != 0 || d.Second() != 0 {
		t.Errorf("CURDATE() = %v, want midnight", d)
	}

	before := time.Now()
	got, err = (&NowFunc{}).Evaluate(nil)
	if err != nil {
		t.Fatalf("NOW: unexpected error: %v", err)
	}
	if got.(time.Time).Before(before) {
		t.Errorf("NOW() = %v, earlier than %v", got, before)
	}
}
