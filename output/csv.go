package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/vegasq/tabsql/query"
)

// CSVFormatter outputs rows as CSV with a header line.
type CSVFormatter struct {
	writer io.Writer
}

// NewCSVFormatter creates a new CSV formatter
func NewCSVFormatter(w io.Writer) *CSVFormatter {
	return &CSVFormatter{writer: w}
}

// SetOutput sets the output writer
func (c *CSVFormatter) SetOutput(w io.Writer) {
	c.writer = w
}

// Format writes the header line followed by one line per row. Nothing is
// written for a result without columns.
func (c *CSVFormatter) Format(header []string, rows [][]any) error {
	csvWriter := csv.NewWriter(c.writer)

	if len(header) > 0 {
		titles := make([]string, len(header))
		for i, title := range header {
			titles[i] = sanitizeCell(title)
		}
		if err := csvWriter.Write(titles); err != nil {
			return err
		}

		record := make([]string, len(header))
		for _, row := range rows {
			for i := range record {
				record[i] = ""
				if i < len(row) {
					record[i] = formatValue(row[i])
				}
			}
			if err := csvWriter.Write(record); err != nil {
				return err
			}
		}
	}

	csvWriter.Flush()
	if err := csvWriter.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV writer: %w", err)
	}
	return nil
}

// formatValue converts a cell to CSV text. Only text cells are sanitized;
// a negative number is not a formula.
func formatValue(v any) string {
	if s, ok := v.(string); ok {
		return sanitizeCell(s)
	}
	return query.FormatValue(v)
}

// sanitizeCell guards against CSV injection by quoting text that a
// spreadsheet would treat as a formula.
func sanitizeCell(val string) string {
	if val == "" {
		return val
	}
	switch val[0] {
	case '=', '+', '-', '@', '\t', '\r', '\n', '|':
		return "'" + strings.ReplaceAll(val, "'", "''")
	}
	return val
}
