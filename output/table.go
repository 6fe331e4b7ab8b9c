package output

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/vegasq/tabsql/query"
)

// TableFormatter outputs rows as an aligned text table followed by a row
// count.
type TableFormatter struct {
	writer io.Writer
}

// NewTableFormatter creates a new text table formatter
func NewTableFormatter(w io.Writer) *TableFormatter {
	return &TableFormatter{writer: w}
}

// SetOutput sets the output writer
func (f *TableFormatter) SetOutput(w io.Writer) {
	f.writer = w
}

// Format renders the table. Titles are printed as given.
func (f *TableFormatter) Format(header []string, rows [][]any) error {
	table := tablewriter.NewWriter(f.writer)
	table.SetHeader(header)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	for _, row := range rows {
		record := make([]string, len(header))
		for i := range record {
			if i < len(row) {
				record[i] = query.FormatValue(row[i])
			}
		}
		table.Append(record)
	}
	table.Render()

	noun := "rows"
	if len(rows) == 1 {
		noun = "row"
	}
	_, err := fmt.Fprintf(f.writer, "(%d %s)\n", len(rows), noun)
	return err
}
