package query

import (
	"fmt"
	"math"
	"math/rand"
)

// Math Functions

// AbsFunc returns the absolute value of a number
type AbsFunc struct{}

func (f *AbsFunc) Name() string  { return "ABS" }
func (f *AbsFunc) MinArity() int { return 1 }
func (f *AbsFunc) MaxArity() int { return 1 }
func (f *AbsFunc) Evaluate(args []any) (any, error) {
	return unaryMath("ABS", args, math.Abs)
}

// RoundFunc rounds a number to the specified number of decimal places
type RoundFunc struct{}

func (f *RoundFunc) Name() string  { return "ROUND" }
func (f *RoundFunc) MinArity() int { return 1 }
func (f *RoundFunc) MaxArity() int { return 2 }
func (f *RoundFunc) Evaluate(args []any) (any, error) {
	nums, err := numberArgs("ROUND", args)
	if err != nil {
		return nil, err
	}

	// Default to 0 decimal places
	decimals := 0.0
	if len(nums) == 2 {
		decimals = math.Trunc(nums[1])
	}

	multiplier := math.Pow(10, decimals)
	return math.Round(nums[0]*multiplier) / multiplier, nil
}

// FloorFunc returns the largest integer less than or equal to a number
type FloorFunc struct{}

func (f *FloorFunc) Name() string  { return "FLOOR" }
func (f *FloorFunc) MinArity() int { return 1 }
func (f *FloorFunc) MaxArity() int { return 1 }
func (f *FloorFunc) Evaluate(args []any) (any, error) {
	return unaryMath("FLOOR", args, math.Floor)
}

// CeilingFunc returns the smallest integer greater than or equal to a number
type CeilingFunc struct{}

func (f *CeilingFunc) Name() string  { return "CEILING" }
func (f *CeilingFunc) MinArity() int { return 1 }
func (f *CeilingFunc) MaxArity() int { return 1 }
func (f *CeilingFunc) Evaluate(args []any) (any, error) {
	return unaryMath("CEILING", args, math.Ceil)
}

// PowerFunc raises a number to a power
type PowerFunc struct{}

func (f *PowerFunc) Name() string  { return "POWER" }
func (f *PowerFunc) MinArity() int { return 2 }
func (f *PowerFunc) MaxArity() int { return 2 }
func (f *PowerFunc) Evaluate(args []any) (any, error) {
	nums, err := numberArgs("POWER", args)
	if err != nil {
		return nil, err
	}
	return math.Pow(nums[0], nums[1]), nil
}

// SqrtFunc returns the square root of a number
type SqrtFunc struct{}

func (f *SqrtFunc) Name() string  { return "SQRT" }
func (f *SqrtFunc) MinArity() int { return 1 }
func (f *SqrtFunc) MaxArity() int { return 1 }
func (f *SqrtFunc) Evaluate(args []any) (any, error) {
	nums, err := numberArgs("SQRT", args)
	if err != nil {
		return nil, err
	}
	if nums[0] < 0 {
		return nil, fmt.Errorf("SQRT: cannot take square root of negative number")
	}
	return math.Sqrt(nums[0]), nil
}

// LogFunc returns the natural logarithm, or the logarithm in a given base
// when called as LOG(base, x)
type LogFunc struct{}

func (f *LogFunc) Name() string  { return "LOG" }
func (f *LogFunc) MinArity() int { return 1 }
func (f *LogFunc) MaxArity() int { return 2 }
func (f *LogFunc) Evaluate(args []any) (any, error) {
	nums, err := numberArgs("LOG", args)
	if err != nil {
		return nil, err
	}
	x := nums[len(nums)-1]
	if x <= 0 {
		return nil, fmt.Errorf("LOG: argument must be positive")
	}
	if len(nums) == 1 {
		return math.Log(x), nil
	}
	if nums[0] <= 0 || nums[0] == 1 {
		return nil, fmt.Errorf("LOG: invalid base %v", nums[0])
	}
	return math.Log(x) / math.Log(nums[0]), nil
}

// Log10Func returns the base-10 logarithm
type Log10Func struct{}

func (f *Log10Func) Name() string  { return "LOG10" }
func (f *Log10Func) MinArity() int { return 1 }
func (f *Log10Func) MaxArity() int { return 1 }
func (f *Log10Func) Evaluate(args []any) (any, error) {
	nums, err := numberArgs("LOG10", args)
	if err != nil {
		return nil, err
	}
	if nums[0] <= 0 {
		return nil, fmt.Errorf("LOG10: argument must be positive")
	}
	return math.Log10(nums[0]), nil
}

// ExpFunc returns e raised to a power
type ExpFunc struct{}

func (f *ExpFunc) Name() string  { return "EXP" }
func (f *ExpFunc) MinArity() int { return 1 }
func (f *ExpFunc) MaxArity() int { return 1 }
func (f *ExpFunc) Evaluate(args []any) (any, error) {
	return unaryMath("EXP", args, math.Exp)
}

// ModFunc returns the remainder of a division
type ModFunc struct{}

func (f *ModFunc) Name() string  { return "MOD" }
func (f *ModFunc) MinArity() int { return 2 }
func (f *ModFunc) MaxArity() int { return 2 }
func (f *ModFunc) Evaluate(args []any) (any, error) {
	nums, err := numberArgs("MOD", args)
	if err != nil {
		return nil, err
	}
	if nums[1] == 0 {
		return nil, fmt.Errorf("MOD: division by zero")
	}
	return math.Mod(nums[0], nums[1]), nil
}

// SignFunc returns -1, 0 or 1
type SignFunc struct{}

func (f *SignFunc) Name() string  { return "SIGN" }
func (f *SignFunc) MinArity() int { return 1 }
func (f *SignFunc) MaxArity() int { return 1 }
func (f *SignFunc) Evaluate(args []any) (any, error) {
	return unaryMath("SIGN", args, func(x float64) float64 {
		switch {
		case x > 0:
			return 1
		case x < 0:
			return -1
		}
		return 0
	})
}

// PiFunc returns π
type PiFunc struct{}

func (f *PiFunc) Name() string  { return "PI" }
func (f *PiFunc) MinArity() int { return 0 }
func (f *PiFunc) MaxArity() int { return 0 }
func (f *PiFunc) Evaluate(_ []any) (any, error) {
	return math.Pi, nil
}

// RandFunc returns a random number in [0, 1)
type RandFunc struct{}

func (f *RandFunc) Name() string  { return "RAND" }
func (f *RandFunc) MinArity() int { return 0 }
func (f *RandFunc) MaxArity() int { return 0 }
func (f *RandFunc) Evaluate(_ []any) (any, error) {
	return rand.Float64(), nil
}

// trigFunc is a one-argument function over math.
type trigFunc struct {
	name string
	fn   func(float64) float64
}

func (f *trigFunc) Name() string  { return f.name }
func (f *trigFunc) MinArity() int { return 1 }
func (f *trigFunc) MaxArity() int { return 1 }
func (f *trigFunc) Evaluate(args []any) (any, error) {
	result, err := unaryMath(f.name, args, f.fn)
	if err != nil {
		return nil, err
	}
	if math.IsNaN(result.(float64)) {
		return nil, fmt.Errorf("%s: argument out of range", f.name)
	}
	return result, nil
}

var trigFunctions = []Function{
	&trigFunc{name: "SIN", fn: math.Sin},
	&trigFunc{name: "COS", fn: math.Cos},
	&trigFunc{name: "TAN", fn: math.Tan},
	&trigFunc{name: "ASIN", fn: math.Asin},
	&trigFunc{name: "ACOS", fn: math.Acos},
	&trigFunc{name: "ATAN", fn: math.Atan},
}

// Atan2Func returns the arc tangent of y/x
type Atan2Func struct{}

func (f *Atan2Func) Name() string  { return "ATAN2" }
func (f *Atan2Func) MinArity() int { return 2 }
func (f *Atan2Func) MaxArity() int { return 2 }
func (f *Atan2Func) Evaluate(args []any) (any, error) {
	nums, err := numberArgs("ATAN2", args)
	if err != nil {
		return nil, err
	}
	return math.Atan2(nums[0], nums[1]), nil
}

// DegreesFunc converts radians to degrees
type DegreesFunc struct{}

func (f *DegreesFunc) Name() string  { return "DEGREES" }
func (f *DegreesFunc) MinArity() int { return 1 }
func (f *DegreesFunc) MaxArity() int { return 1 }
func (f *DegreesFunc) Evaluate(args []any) (any, error) {
	return unaryMath("DEGREES", args, func(x float64) float64 { return x * 180 / math.Pi })
}

// RadiansFunc converts degrees to radians
type RadiansFunc struct{}

func (f *RadiansFunc) Name() string  { return "RADIANS" }
func (f *RadiansFunc) MinArity() int { return 1 }
func (f *RadiansFunc) MaxArity() int { return 1 }
func (f *RadiansFunc) Evaluate(args []any) (any, error) {
	return unaryMath("RADIANS", args, func(x float64) float64 { return x * math.Pi / 180 })
}

func unaryMath(name string, args []any, fn func(float64) float64) (any, error) {
	nums, err := numberArgs(name, args)
	if err != nil {
		return nil, err
	}
	return fn(nums[0]), nil
}
