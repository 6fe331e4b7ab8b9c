// Package config loads the YAML catalog that tells the tabsql CLI which
// tables to register and how to present results.
//
//	tables:
//	  books:   {path: books.csv}
//	  authors: {path: authors.parquet}
//	  codes:
//	    columns: [code, label]
//	    rows:
//	      - [a, Alpha]
//	binds: ["11"]
//	format: table
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vegasq/tabsql/output"
	"github.com/vegasq/tabsql/query"
	"github.com/vegasq/tabsql/reader"
)

// Catalog is a parsed catalog file.
type Catalog struct {
	Tables map[string]TableSource `yaml:"tables"`
	Binds  []any                  `yaml:"binds"`
	Format string                 `yaml:"format"`
}

// TableSource is either a file reference or inline data.
type TableSource struct {
	Path   string `yaml:"path"`
	Format string `yaml:"format"`
	// Header defaults to true for files. Parquet files always have one.
	Header *bool `yaml:"header"`

	Columns []string `yaml:"columns"`
	Rows    [][]any  `yaml:"rows"`
}

// Load reads and validates a catalog file. Relative table paths are
// resolved against the catalog's directory.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	dir := filepath.Dir(path)
	for name, src := range c.Tables {
		if src.Path != "" && !filepath.IsAbs(src.Path) {
			src.Path = filepath.Join(dir, src.Path)
			c.Tables[name] = src
		}
	}
	return c, nil
}

// Parse decodes and validates catalog YAML.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks table definitions and the output format.
func (c *Catalog) Validate() error {
	if c.Format != "" && !slices.Contains(output.Names, strings.ToLower(c.Format)) {
		return fmt.Errorf("unknown output format %q", c.Format)
	}
	for _, name := range c.TableNames() {
		src := c.Tables[name]
		switch {
		case strings.TrimSpace(name) == "":
			return errors.New("table with empty name")
		case src.Path != "" && src.Rows != nil:
			return fmt.Errorf("table %s: path and rows are mutually exclusive", name)
		case src.Path == "" && src.Columns == nil && src.Rows == nil:
			return fmt.Errorf("table %s: needs a path or inline rows", name)
		}
		if _, err := reader.ParseFormat(src.Format); err != nil {
			return fmt.Errorf("table %s: %w", name, err)
		}
	}
	return nil
}

// TableNames returns the catalog's table names sorted.
func (c *Catalog) TableNames() []string {
	names := make([]string, 0, len(c.Tables))
	for name := range c.Tables {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Register loads every table into db and appends the catalog's bind
// values.
func (c *Catalog) Register(db *query.Sql) error {
	for _, name := range c.TableNames() {
		rows, hasHeader, err := c.Tables[name].load()
		if err != nil {
			return fmt.Errorf("table %s: %w", name, err)
		}
		db.AddTableData(name, rows, hasHeader)
	}
	for _, v := range c.Binds {
		db.AddBindParameter(v)
	}
	return nil
}

func (src TableSource) load() ([][]any, bool, error) {
	if src.Path == "" {
		if src.Columns == nil {
			return src.Rows, false, nil
		}
		header := make([]any, len(src.Columns))
		for i, col := range src.Columns {
			header[i] = col
		}
		return append([][]any{header}, src.Rows...), true, nil
	}

	format, err := reader.ParseFormat(src.Format)
	if err != nil {
		return nil, false, err
	}
	data, err := reader.Load(src.Path, reader.Options{
		Format:   format,
		NoHeader: src.Header != nil && !*src.Header,
	})
	if err != nil {
		return nil, false, err
	}
	return data.Rows, data.HasHeader, nil
}
