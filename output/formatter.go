package output

import (
	"fmt"
	"io"
	"strings"
)

// Formatter writes a query result to an output.
//
// Implementers must provide Format to render the result in their format
// and SetOutput to change the output destination.
type Formatter interface {
	// Format writes the column titles and data rows.
	Format(header []string, rows [][]any) error

	// SetOutput changes the output writer.
	SetOutput(w io.Writer)
}

// Names lists the formats New accepts.
var Names = []string{"table", "csv", "json"}

// New returns the formatter registered under name.
func New(name string, w io.Writer) (Formatter, error) {
	switch strings.ToLower(name) {
	case "", "table":
		return NewTableFormatter(w), nil
	case "csv":
		return NewCSVFormatter(w), nil
	case "json", "jsonl":
		return NewJSONFormatter(w), nil
	}
	return nil, fmt.Errorf("unknown output format %q (want %s)", name, strings.Join(Names, ", "))
}
