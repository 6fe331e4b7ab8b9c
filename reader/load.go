package reader

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Format is an input file format.
type Format string

const (
	FormatParquet Format = "parquet"
	FormatCSV     Format = "csv"
	FormatTSV     Format = "tsv"
)

// ParseFormat validates a format name. The empty name means "detect from
// the file extension".
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(name))); f {
	case "", FormatParquet, FormatCSV, FormatTSV:
		return f, nil
	}
	return "", fmt.Errorf("unsupported format %q (want parquet, csv or tsv)", name)
}

// DetectFormat picks a format from the file extension. Glob patterns are
// judged by their extension too.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet", ".pq":
		return FormatParquet, nil
	case ".csv":
		return FormatCSV, nil
	case ".tsv", ".tab":
		return FormatTSV, nil
	}
	return "", fmt.Errorf("cannot detect format of %s", path)
}

// Options control how Load reads a file.
type Options struct {
	// Format overrides extension detection.
	Format Format
	// NoHeader marks the first line of a CSV or TSV file as data. Parquet
	// files always have a header.
	NoHeader bool
}

// Data is a loaded table ready to hand to the query engine.
type Data struct {
	Rows      [][]any
	HasHeader bool
}

// Load reads a parquet, CSV or TSV file. Parquet paths may be glob
// patterns; see ReadMultipleFiles.
func Load(path string, opts Options) (*Data, error) {
	format := opts.Format
	if format == "" {
		var err error
		if format, err = DetectFormat(path); err != nil {
			return nil, err
		}
	}

	switch format {
	case FormatParquet:
		rows, err := ReadMultipleFiles(path)
		if err != nil {
			return nil, err
		}
		return &Data{Rows: rows, HasHeader: true}, nil
	case FormatCSV, FormatTSV:
		comma := ','
		if format == FormatTSV {
			comma = '\t'
		}
		rows, err := ReadCSV(path, comma)
		if err != nil {
			return nil, err
		}
		return &Data{Rows: rows, HasHeader: !opts.NoHeader}, nil
	}
	return nil, fmt.Errorf("unsupported format %q", format)
}
