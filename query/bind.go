package query

import "fmt"

// BindData holds bind variable values. Index 1 is the first value.
type BindData struct {
	values []any
}

// NewBindData creates bind data from values in order.
func NewBindData(values ...any) *BindData {
	b := &BindData{}
	for _, v := range values {
		b.Add(v)
	}
	return b
}

// Add appends a value and returns its 1-based index.
func (b *BindData) Add(v any) int {
	b.values = append(b.values, normalizeValue(v))
	return len(b.values)
}

// Set stores v at a 1-based index, growing the store as needed.
func (b *BindData) Set(i int, v any) {
	for len(b.values) < i {
		b.values = append(b.values, nil)
	}
	b.values[i-1] = v
}

// Get returns the value at a 1-based index.
func (b *BindData) Get(i int) (any, error) {
	if i < 1 || i > len(b.values) {
		return nil, fmt.Errorf("%w: ?%d (have %d values)", ErrBindCount, i, len(b.values))
	}
	return b.values[i-1], nil
}

// Len returns the number of values.
func (b *BindData) Len() int { return len(b.values) }

// Clone copies the bind data so nested executions cannot disturb the
// caller's positions.
func (b *BindData) Clone() *BindData {
	return &BindData{values: append([]any(nil), b.values...)}
}
