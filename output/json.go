package output

import (
	"bufio"
	"encoding/json"
	"io"
	"math"
	"strconv"

	"github.com/vegasq/tabsql/query"
)

// JSONFormatter outputs rows as JSON Lines: one object per row with keys in
// column order.
type JSONFormatter struct {
	writer io.Writer
}

// NewJSONFormatter creates a new JSON Lines formatter
func NewJSONFormatter(w io.Writer) *JSONFormatter {
	return &JSONFormatter{writer: w}
}

// SetOutput sets the output writer
func (j *JSONFormatter) SetOutput(w io.Writer) {
	j.writer = w
}

// Format writes one JSON object per row. Repeated titles get a numeric
// suffix so every key is unique.
func (j *JSONFormatter) Format(header []string, rows [][]any) error {
	keys := make([][]byte, len(header))
	for i, name := range uniqueKeys(header) {
		key, err := json.Marshal(name)
		if err != nil {
			return err
		}
		keys[i] = key
	}

	bw := bufio.NewWriter(j.writer)
	for _, row := range rows {
		bw.WriteByte('{')
		for i, key := range keys {
			if i > 0 {
				bw.WriteByte(',')
			}
			bw.Write(key)
			bw.WriteByte(':')

			var v any
			if i < len(row) {
				v = row[i]
			}
			data, err := json.Marshal(jsonValue(v))
			if err != nil {
				return err
			}
			bw.Write(data)
		}
		bw.WriteString("}\n")
	}
	return bw.Flush()
}

// jsonValue keeps finite numbers, booleans and null native and renders
// every other cell as its text form.
func jsonValue(v any) any {
	switch val := v.(type) {
	case nil, bool, string:
		return val
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return query.FormatValue(val)
		}
		return val
	}
	return query.FormatValue(v)
}

func uniqueKeys(header []string) []string {
	seen := make(map[string]int, len(header))
	out := make([]string, len(header))
	for i, name := range header {
		seen[name]++
		if n := seen[name]; n > 1 {
			name += "_" + strconv.Itoa(n)
		}
		out[i] = name
	}
	return out
}
