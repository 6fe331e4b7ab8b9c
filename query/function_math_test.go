package query

import (
	"math"
	"testing"
)

func TestAbsFunc(t *testing.T) {
	runFuncCases(t, &AbsFunc{}, []funcCase{
		{"positive", []any{5.0}, 5.0, false},
		{"negative", []any{-5.5}, 5.5, false},
		{"numeric string", []any{"-3"}, 3.0, false},
		{"null is zero", []any{nil}, 0.0, false},
		{"non-numeric", []any{"abc"}, nil, true},
	})
}

func TestRoundingFuncs(t *testing.T) {
	runFuncCases(t, &RoundFunc{}, []funcCase{
		{"no decimals", []any{3.7}, 4.0, false},
		{"two decimals", []any{2.456, 2.0}, 2.46, false},
		{"numeric string", []any{"2.5"}, 3.0, false},
	})
	runFuncCases(t, &FloorFunc{}, []funcCase{
		{"positive", []any{3.7}, 3.0, false},
		{"negative", []any{-3.2}, -4.0, false},
	})
	runFuncCases(t, &CeilingFunc{}, []funcCase{
		{"positive", []any{3.2}, 4.0, false},
		{"negative", []any{-3.7}, -3.0, false},
	})
	runFuncCases(t, &SignFunc{}, []funcCase{
		{"positive", []any{9.0}, 1.0, false},
		{"zero", []any{0.0}, 0.0, false},
		{"negative", []any{-2.0}, -1.0, false},
	})
}

func TestPowerAndRootFuncs(t *testing.T) {
	runFuncCases(t, &PowerFunc{}, []funcCase{
		{"square", []any{3.0, 2.0}, 9.0, false},
		{"fraction", []any{4.0, 0.5}, 2.0, false},
	})
	runFuncCases(t, &SqrtFunc{}, []funcCase{
		{"perfect", []any{16.0}, 4.0, false},
		{"negative", []any{-1.0}, nil, true},
	})
	runFuncCases(t, &ModFunc{}, []funcCase{
		{"remainder", []any{10.0, 3.0}, 1.0, false},
		{"by zero", []any{10.0, 0.0}, nil, true},
	})
}

func TestLogFuncs(t *testing.T) {
	runFuncCases(t, &LogFunc{}, []funcCase{
		{"natural", []any{1.0}, 0.0, false},
		{"base 2", []any{2.0, 8.0}, 3.0, false},
		{"non-positive", []any{0.0}, nil, true},
	})
	runFuncCases(t, &Log10Func{}, []funcCase{
		{"one", []any{1.0}, 0.0, false},
		{"negative", []any{-10.0}, nil, true},
	})
	runFuncCases(t, &ExpFunc{}, []funcCase{
		{"zero", []any{0.0}, 1.0, false},
	})
}

func TestTrigFuncs(t *testing.T) {
	registry := GetGlobalRegistry()
	tests := []struct {
		fn   string
		args []any
		want float64
	}{
		{"SIN", []any{0.0}, 0},
		{"COS", []any{0.0}, 1},
		{"TAN", []any{0.0}, 0},
		{"ASIN", []any{1.0}, math.Pi / 2},
		{"ACOS", []any{1.0}, 0},
		{"ATAN", []any{1.0}, math.Pi / 4},
		{"ATAN2", []any{1.0, 1.0}, math.Pi / 4},
		{"DEGREES", []any{math.Pi}, 180},
		{"RADIANS", []any{180.0}, math.Pi},
		{"PI", nil, math.Pi},
	}

	for _, tt := range tests {
		t.Run(tt.fn, func(t *testing.T) {
			fn, ok := registry.Get(tt.fn)
			if !ok {
				t.Fatalf("%s is not registered", tt.fn)
			}
			got, err := fn.Evaluate(tt.args)
			if err != nil {
				t.Fatalf("%s: unexpected error: %v", tt.fn, err)
			}
			if math.Abs(got.(float64)-tt.want) > 1e-9 {
				t.Errorf("%s(%v) = %v, want %v", tt.fn, tt.args, got, tt.want)
			}
		})
	}

	asin, _ := registry.Get("ASIN")
	if _, err := asin.Evaluate([]any{2.0}); err == nil {
		t.Error("ASIN(2) should fail")
	}
}

func TestRandFunc(t *testing.T) {
	fn := &RandFunc{}
	for i := 0; i < 100; i++ {
		got, err := fn.Evaluate(nil)
		if err != nil {
			t.Fatalf("RAND: unexpected error: %v", err)
		}
		if f := got.(float64); f < 0 || f >= 1 {
			t.Fatalf("RAND() = %v, want [0, 1)", f)
		}
	}
}
