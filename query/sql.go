package query

import (
	"maps"
	"slices"
	"strings"
)

// Sql is the engine's entry point: it holds named tables and bind values
// and executes statements against them. Each Execute works on its own
// snapshot, so a configured Sql may be shared by goroutines as long as no
// goroutine modifies it.
type Sql struct {
	tables       map[string]*Table
	binds        *BindData
	columnTitles bool
}

// New creates an empty Sql.
func New() *Sql {
	return &Sql{tables: make(map[string]*Table), binds: NewBindData()}
}

// AddTableData registers rows under a table name. Row 0 is the header when
// hasHeader is true. Table names are case-insensitive.
func (s *Sql) AddTableData(name string, rows [][]any, hasHeader bool) *Sql {
	s.tables[strings.ToUpper(name)] = NewTable(name, rows, hasHeader)
	return s
}

// AddTable registers an existing table.
func (s *Sql) AddTable(t *Table) *Sql {
	s.tables[t.Name] = t
	return s
}

// Table returns a registered table.
func (s *Sql) Table(name string) (*Table, bool) {
	t, ok := s.tables[strings.ToUpper(name)]
	return t, ok
}

// Tables returns the registered table names in order.
func (s *Sql) Tables() []string {
	names := make([]string, 0, len(s.tables))
	for name := range s.tables {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// AddBindParameter appends a value for the next ? placeholder.
func (s *Sql) AddBindParameter(v any) *Sql {
	s.binds.Add(v)
	return s
}

// ClearBindParameters removes all bind values.
func (s *Sql) ClearBindParameters() *Sql {
	s.binds = NewBindData()
	return s
}

// EnableColumnTitle makes Execute prepend a row of column titles.
func (s *Sql) EnableColumnTitle(on bool) *Sql {
	s.columnTitles = on
	return s
}

// Execute parses and runs a statement.
func (s *Sql) Execute(sql string) ([][]any, error) {
	stmt, err := Parse(sql)
	if err != nil {
		return nil, err
	}
	return s.ExecuteStatement(stmt)
}

// ExecuteStatement runs a parsed statement.
func (s *Sql) ExecuteStatement(stmt *Select) ([][]any, error) {
	ex := newExecutor(maps.Clone(s.tables), s.binds.Clone())
	rs, err := ex.executeStatement(stmt)
	if err != nil {
		return nil, err
	}

	out := make([][]any, 0, len(rs.rows)+1)
	if s.columnTitles {
		header := make([]any, len(rs.titles))
		for i, title := range rs.titles {
			header[i] = title
		}
		out = append(out, header)
	}
	return append(out, rs.rows...), nil
}

// Query runs a statement and returns its column titles and data rows
// separately.
func (s *Sql) Query(sql string) ([]string, [][]any, error) {
	stmt, err := Parse(sql)
	if err != nil {
		return nil, nil, err
	}
	rs, err := newExecutor(maps.Clone(s.tables), s.binds.Clone()).executeStatement(stmt)
	if err != nil {
		return nil, nil, err
	}
	return rs.titles, rs.rows, nil
}
