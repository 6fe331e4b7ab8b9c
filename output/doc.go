// Package output renders query results.
//
// Every formatter takes the column titles and the data rows of a result
// and writes them to an io.Writer. Cells are rendered with
// query.FormatValue, so NULL prints as an empty string and whole numbers
// print without a fraction.
//
// # Supported Formats
//
//   - table: an aligned text table (github.com/olekukonko/tablewriter)
//     followed by a row count
//   - csv: comma-separated values with a header line; text that a
//     spreadsheet would run as a formula is prefixed with a quote
//   - json: JSON Lines, one object per row with keys in column order
//
// # Basic Usage
//
//	titles, rows, err := db.Query("SELECT * FROM books")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	formatter, err := output.New("csv", os.Stdout)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := formatter.Format(titles, rows); err != nil {
//	    log.Fatal(err)
//	}
//
// SetOutput redirects a formatter, for example to a file.
package output
