package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"

	"github.com/vegasq/tabsql/output"
	"github.com/vegasq/tabsql/query"
)

const (
	prompt     = "tabsql> "
	contPrompt = "   ...> "
)

// lineReader is the part of *readline.Instance the shell uses.
type lineReader interface {
	Readline() (string, error)
	SetPrompt(prompt string)
}

// shell reads statements terminated by ';' and dot commands.
type shell struct {
	db        *query.Sql
	in        lineReader
	out       io.Writer
	errOut    io.Writer
	formatter output.Formatter
}

func startShell(db *query.Sql, formatter output.Formatter, format string, stdout, stderr io.Writer) error {
	cfg := &readline.Config{
		Prompt:            prompt,
		InterruptPrompt:   "^C",
		EOFPrompt:         ".quit",
		HistorySearchFold: true,
		Stdout:            stdout,
		Stderr:            stderr,
		AutoComplete: readline.NewPrefixCompleter(
			readline.PcItem(".tables"),
			readline.PcItem(".schema", readline.PcItemDynamic(func(string) []string {
				return db.Tables()
			})),
			readline.PcItem(".format",
				readline.PcItem("table"), readline.PcItem("csv"), readline.PcItem("json")),
			readline.PcItem(".help"),
			readline.PcItem(".quit"),
		),
	}
	if home, err := os.UserHomeDir(); err == nil {
		cfg.HistoryFile = filepath.Join(home, ".tabsql_history")
	}

	rl, err := readline.NewEx(cfg)
	if err != nil {
		return fmt.Errorf("failed to start shell: %w", err)
	}
	defer func() { _ = rl.Close() }()

	fmt.Fprintf(stdout, "tabsql: %d tables loaded, output format %s. Type .help for commands.\n", len(db.Tables()), format)
	sh := &shell{db: db, in: rl, out: stdout, errOut: stderr, formatter: formatter}
	return sh.run()
}

// run loops until .quit, end of input, or an interrupt on an empty line.
func (s *shell) run() error {
	var buf strings.Builder
	for {
		if buf.Len() == 0 {
			s.in.SetPrompt(prompt)
		} else {
			s.in.SetPrompt(contPrompt)
		}

		line, err := s.in.Readline()
		switch {
		case errors.Is(err, readline.ErrInterrupt):
			if buf.Len() == 0 {
				return nil
			}
			buf.Reset()
			continue
		case errors.Is(err, io.EOF):
			if strings.TrimSpace(buf.String()) != "" {
				s.exec(buf.String())
			}
			return nil
		case err != nil:
			return err
		}

		trimmed := strings.TrimSpace(line)
		if buf.Len() == 0 {
			if trimmed == "" {
				continue
			}
			if strings.HasPrefix(trimmed, ".") {
				if s.command(trimmed) {
					return nil
				}
				continue
			}
		}

		buf.WriteString(line)
		buf.WriteByte('\n')
		if strings.HasSuffix(trimmed, ";") {
			s.exec(buf.String())
			buf.Reset()
		}
	}
}

func (s *shell) exec(sql string) {
	if err := execute(s.db, sql, s.formatter); err != nil {
		fmt.Fprintf(s.errOut, "Error: %v\n", err)
	}
}

// command runs a dot command and reports whether the shell should exit.
func (s *shell) command(line string) bool {
	fields := strings.Fields(line)
	switch strings.ToLower(fields[0]) {
	case ".quit", ".exit":
		return true
	case ".tables":
		for _, name := range s.db.Tables() {
			t, _ := s.db.Table(name)
			fmt.Fprintf(s.out, "%s (%d rows)\n", name, t.RowCount())
		}
	case ".schema":
		if len(fields) != 2 {
			fmt.Fprintln(s.errOut, "Usage: .schema TABLE")
			break
		}
		t, ok := s.db.Table(fields[1])
		if !ok {
			fmt.Fprintf(s.errOut, "Error: %v: %s\n", query.ErrUnknownTable, fields[1])
			break
		}
		fmt.Fprintln(s.out, strings.Join(t.Header(), ", "))
	case ".format":
		if len(fields) != 2 {
			fmt.Fprintf(s.errOut, "Usage: .format %s\n", strings.Join(output.Names, "|"))
			break
		}
		f, err := output.New(fields[1], s.out)
		if err != nil {
			fmt.Fprintf(s.errOut, "Error: %v\n", err)
			break
		}
		s.formatter = f
	case ".help":
		fmt.Fprintln(s.out, "End SQL statements with ';'. Commands:")
		fmt.Fprintln(s.out, "  .tables            list tables")
		fmt.Fprintln(s.out, "  .schema TABLE      show the columns of a table")
		fmt.Fprintln(s.out, "  .format NAME       switch output format")
		fmt.Fprintln(s.out, "  .quit              leave the shell")
	default:
		fmt.Fprintf(s.errOut, "Unknown command %s, try .help\n", fields[0])
	}
	return false
}
