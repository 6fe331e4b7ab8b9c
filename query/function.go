package query

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// Function represents a scalar function that can be evaluated
type Function interface {
	// Name returns the function name (case-insensitive)
	Name() string
	// MinArity returns the minimum number of arguments
	MinArity() int
	// MaxArity returns the maximum number of arguments (-1 for unlimited)
	MaxArity() int
	// Evaluate evaluates the function with the given arguments
	Evaluate(args []any) (any, error)
}

// FunctionRegistry manages function lookup and registration
type FunctionRegistry struct {
	mu        sync.RWMutex
	functions map[string]Function
}

// NewFunctionRegistry creates a new function registry
func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{
		functions: make(map[string]Function),
	}
}

// Register registers a function
func (r *FunctionRegistry) Register(f Function) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.functions[strings.ToUpper(f.Name())] = f
}

// RegisterAlias registers f under an additional name.
func (r *FunctionRegistry) RegisterAlias(name string, f Function) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.functions[strings.ToUpper(name)] = f
}

// Get retrieves a function by name (case-insensitive)
func (r *FunctionRegistry) Get(name string) (Function, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, exists := r.functions[strings.ToUpper(name)]
	return f, exists
}

// globalRegistry is the default function registry
var globalRegistry *FunctionRegistry

func init() {
	globalRegistry = NewFunctionRegistry()

	// String functions
	globalRegistry.Register(&UpperFunc{})
	globalRegistry.Register(&LowerFunc{})
	globalRegistry.Register(&InitCapFunc{})
	globalRegistry.Register(&ConcatFunc{})
	globalRegistry.Register(&ConcatWSFunc{})
	globalRegistry.Register(&LengthFunc{})
	globalRegistry.Register(&LenFunc{})
	globalRegistry.Register(&TrimFunc{})
	globalRegistry.Register(&LTrimFunc{})
	globalRegistry.Register(&RTrimFunc{})
	globalRegistry.Register(&LeftFunc{})
	globalRegistry.Register(&RightFunc{})
	globalRegistry.Register(&SubstringFunc{})
	globalRegistry.RegisterAlias("SUBSTR", &SubstringFunc{})
	globalRegistry.RegisterAlias("MID", &SubstringFunc{})
	globalRegistry.Register(&SubstringIndexFunc{})
	globalRegistry.Register(&ReplaceFunc{})
	globalRegistry.Register(&ReplicateFunc{})
	globalRegistry.Register(&ReverseFunc{})
	globalRegistry.Register(&SpaceFunc{})
	globalRegistry.Register(&StuffFunc{})
	globalRegistry.Register(&CharIndexFunc{})
	globalRegistry.Register(&InstrFunc{})

	// Math functions
	globalRegistry.Register(&AbsFunc{})
	globalRegistry.Register(&CeilingFunc{})
	globalRegistry.RegisterAlias("CEIL", &CeilingFunc{})
	globalRegistry.Register(&FloorFunc{})
	globalRegistry.Register(&RoundFunc{})
	globalRegistry.Register(&PowerFunc{})
	globalRegistry.RegisterAlias("POW", &PowerFunc{})
	globalRegistry.Register(&SqrtFunc{})
	globalRegistry.Register(&LogFunc{})
	globalRegistry.Register(&Log10Func{})
	globalRegistry.Register(&ExpFunc{})
	globalRegistry.Register(&ModFunc{})
	globalRegistry.Register(&SignFunc{})
	globalRegistry.Register(&PiFunc{})
	globalRegistry.Register(&RandFunc{})
	for _, f := range trigFunctions {
		globalRegistry.Register(f)
	}
	globalRegistry.Register(&Atan2Func{})
	globalRegistry.Register(&DegreesFunc{})
	globalRegistry.Register(&RadiansFunc{})

	// Date/time functions
	globalRegistry.Register(&NowFunc{})
	globalRegistry.Register(&CurDateFunc{})
	globalRegistry.Register(&DayFunc{})
	globalRegistry.Register(&MonthFunc{})
	globalRegistry.Register(&YearFunc{})
	globalRegistry.Register(&DayNameFunc{})
	globalRegistry.Register(&DateDiffFunc{})
	globalRegistry.Register(&AddDateFunc{})

	// Conversion and conditional functions
	globalRegistry.Register(&ConvertFunc{})
	globalRegistry.RegisterAlias("CAST", &ConvertFunc{})
	globalRegistry.Register(&CoalesceFunc{})
	globalRegistry.Register(&NullIfFunc{})
	globalRegistry.Register(&IsNullFunc{})
}

// GetGlobalRegistry returns the global function registry
func GetGlobalRegistry() *FunctionRegistry {
	return globalRegistry
}

// valueToString renders an argument as text; NULL becomes "".
func valueToString(v any) string {
	return FormatValue(v)
}

// valueToNumber converts an argument to a number. NULL and blank are 0.
func valueToNumber(v any) (float64, error) {
	if isBlank(v) {
		return 0, nil
	}
	if f, ok := toNumber(v); ok {
		return f, nil
	}
	if b, ok := v.(bool); ok {
		if b {
			return 1, nil
		}
		return 0, nil
	}
	return 0, fmt.Errorf("cannot convert %q to number", FormatValue(v))
}

// valueToInt converts an argument to an integer position or count.
func valueToInt(v any) (int, error) {
	f, err := valueToNumber(v)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}

// numberArgs converts every argument of fn to a number.
func numberArgs(fn string, args []any) ([]float64, error) {
	nums := make([]float64, len(args))
	for i, arg := range args {
		n, err := valueToNumber(arg)
		if err != nil {
			if len(args) == 1 {
				return nil, fmt.Errorf("%s: %w", fn, err)
			}
			return nil, fmt.Errorf("%s: argument %s: %w", fn, strconv.Itoa(i+1), err)
		}
		nums[i] = n
	}
	return nums, nil
}
