package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/vegasq/tabsql/internal/config"
	"github.com/vegasq/tabsql/output"
	"github.com/vegasq/tabsql/query"
	"github.com/vegasq/tabsql/reader"
)

// listFlag collects a repeatable string flag.
type listFlag []string

func (l *listFlag) String() string { return strings.Join(*l, ",") }

func (l *listFlag) Set(v string) error {
	*l = append(*l, v)
	return nil
}

type options struct {
	config      string
	tables      listFlag
	binds       listFlag
	query       string
	format      string
	noHeader    bool
	interactive bool
	verbose     bool
	schema      bool
	files       []string
	formatSet   bool
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	opts := &options{}
	fs := flag.NewFlagSet("tabsql", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.config, "config", "", "YAML catalog of tables")
	fs.Var(&opts.tables, "t", "Register a table as name=path (repeatable)")
	fs.Var(&opts.binds, "bind", "Value for the next ? placeholder (repeatable)")
	fs.StringVar(&opts.query, "q", "", "SQL query to run")
	fs.StringVar(&opts.format, "f", "table", "Output format: "+strings.Join(output.Names, ", "))
	fs.BoolVar(&opts.noHeader, "noheader", false, "Treat the first line of CSV/TSV files as data")
	fs.BoolVar(&opts.interactive, "i", false, "Start the interactive shell after loading tables")
	fs.BoolVar(&opts.verbose, "v", false, "Log loading progress to stderr")
	fs.BoolVar(&opts.schema, "schema", false, "Show the schema of the parquet file argument as a table named schema")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: tabsql [options] [file ...]\n\n")
		fmt.Fprintf(stderr, "Run SQL SELECT statements over parquet, CSV and TSV files.\n")
		fmt.Fprintf(stderr, "Each file argument becomes a table named after the file.\n\n")
		fmt.Fprintf(stderr, "IMPORTANT: All flags must come BEFORE file arguments.\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  tabsql -q \"SELECT * FROM books WHERE price > 8\" books.csv\n")
		fmt.Fprintf(stderr, "  tabsql -t b=books.parquet -t a=authors.csv -q \"SELECT b.title, a.name FROM b JOIN a ON b.author_id = a.id\"\n")
		fmt.Fprintf(stderr, "  tabsql -config catalog.yaml -i\n")
		fmt.Fprintf(stderr, "  tabsql -schema -q \"SELECT name FROM schema WHERE type = 'STRING'\" events.parquet\n")
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "f" {
			opts.formatSet = true
		}
	})
	opts.files = fs.Args()

	if opts.schema && len(opts.files) != 1 {
		return nil, errors.New("-schema needs exactly one parquet file argument")
	}
	return opts, nil
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	logger := log.New(io.Discard, "tabsql: ", log.LstdFlags)
	if opts.verbose {
		logger.SetOutput(stderr)
	}

	db := query.New()
	format, err := loadTables(db, opts, logger)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	formatter, err := output.New(format, stdout)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	if opts.query != "" {
		if err := execute(db, opts.query, formatter); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		if !opts.interactive {
			return 0
		}
	}

	if opts.schema && !opts.interactive {
		if err := execute(db, "SELECT * FROM schema", formatter); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	if err := startShell(db, formatter, format, stdout, stderr); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// loadTables registers the catalog, -t tables, file arguments and bind
// values. It returns the output format to use.
func loadTables(db *query.Sql, opts *options, logger *log.Logger) (string, error) {
	format := opts.format

	if opts.config != "" {
		catalog, err := config.Load(opts.config)
		if err != nil {
			return "", err
		}
		if err := catalog.Register(db); err != nil {
			return "", err
		}
		logger.Printf("loaded catalog %s with %d tables", opts.config, len(catalog.Tables))
		if catalog.Format != "" && !opts.formatSet {
			format = catalog.Format
		}
	}

	files := opts.files
	if opts.schema {
		infos, err := reader.ExtractSchemaInfo(files[0])
		if err != nil {
			return "", err
		}
		db.AddTableData("schema", reader.SchemaTable(infos), true)
		logger.Printf("registered schema of %s", files[0])
		files = nil
	}

	sources := make([][2]string, 0, len(opts.tables)+len(files))
	for _, def := range opts.tables {
		name, path, ok := strings.Cut(def, "=")
		if !ok || strings.TrimSpace(name) == "" || path == "" {
			return "", fmt.Errorf("invalid -t %q, want name=path", def)
		}
		sources = append(sources, [2]string{strings.TrimSpace(name), path})
	}
	for _, path := range files {
		sources = append(sources, [2]string{tableName(path), path})
	}

	for _, src := range sources {
		data, err := reader.Load(src[1], reader.Options{NoHeader: opts.noHeader})
		if err != nil {
			return "", fmt.Errorf("table %s: %w", src[0], err)
		}
		db.AddTableData(src[0], data.Rows, data.HasHeader)
		logger.Printf("registered table %s from %s (%d rows)", src[0], src[1], len(data.Rows))
	}

	for _, v := range opts.binds {
		db.AddBindParameter(v)
	}
	return format, nil
}

// tableName derives a table name from a file path: the base name up to
// the first dot, with characters a SQL word cannot hold replaced.
func tableName(path string) string {
	base := filepath.Base(path)
	if i := strings.IndexByte(base, '.'); i > 0 {
		base = base[:i]
	}
	return strings.Map(func(r rune) rune {
		if r == '_' || r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' {
			return r
		}
		return '_'
	}, base)
}

func execute(db *query.Sql, sql string, formatter output.Formatter) error {
	titles, rows, err := db.Query(sql)
	if err != nil {
		return err
	}
	return formatter.Format(titles, rows)
}
