package reader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ReadCSV reads a delimited text file. Every line becomes a row, the first
// one included, so the caller decides whether it is a header.
func ReadCSV(path string, comma rune) ([][]any, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	rows, err := DecodeCSV(file, comma)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rows, nil
}

// DecodeCSV reads delimited text from r. Cells that look like numbers are
// converted to float64; everything else stays a string.
func DecodeCSV(r io.Reader, comma rune) ([][]any, error) {
	cr := csv.NewReader(r)
	cr.Comma = comma
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var rows [][]any
	for {
		record, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("failed to read csv: %w", err)
		}
		if len(rows) == 0 && len(record) > 0 {
			record[0] = strings.TrimPrefix(record[0], "\ufeff")
		}
		row := make([]any, len(record))
		for i, field := range record {
			row[i] = inferCell(field)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// inferCell converts numeric text to float64. Codes with leading zeros
// such as "007" stay text.
func inferCell(field string) any {
	s := strings.TrimSpace(field)
	if s == "" {
		return ""
	}
	if hasLeadingZero(s) {
		return field
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return field
	}
	// ParseFloat also accepts "Inf", "NaN" and hex forms
	if strings.ContainsAny(s, "xXnNiI") {
		return field
	}
	return f
}

func hasLeadingZero(s string) bool {
	s = strings.TrimLeft(s, "+-")
	return len(s) > 1 && s[0] == '0' && s[1] != '.'
}
