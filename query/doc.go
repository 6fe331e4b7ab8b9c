// Package query implements an in-memory SQL SELECT engine over tables of
// plain Go values.
//
// Tables are two-dimensional slices of cells, each cell being nil, a
// string, a float64, a bool or a time.Time. The engine supports:
//   - SELECT lists with expressions, aliases, DISTINCT and t.* expansion
//   - WHERE conditions with AND/OR/NOT, LIKE, IN, BETWEEN, IS [NOT] NULL
//     and EXISTS
//   - INNER, LEFT, RIGHT and FULL joins
//   - GROUP BY with SUM, COUNT, MIN, MAX, AVG and GROUP_CONCAT, and HAVING
//   - ORDER BY, LIMIT and OFFSET
//   - UNION, UNION ALL, INTERSECT and EXCEPT
//   - PIVOT over a grouped query
//   - scalar, IN and EXISTS subqueries, correlated or not
//   - ? and ?N bind parameters
//   - a registry of scalar functions (string, math, date, conversion)
//
// # Basic Usage
//
//	db := query.New()
//	db.AddTableData("books", [][]any{
//	    {"id", "title", "author_id"},
//	    {"1", "Dune", "7"},
//	}, true)
//	db.AddBindParameter("7")
//
//	rows, err := db.Execute("SELECT title FROM books WHERE author_id = ?")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Execute returns only data rows unless EnableColumnTitle is set. Query
// returns the titles and the rows separately.
//
// # Parsing
//
// Parse turns a statement into a *Select whose String method regenerates
// equivalent SQL. A parsed statement can be executed repeatedly with
// ExecuteStatement.
//
// # Errors
//
// Failures wrap one of the package's sentinel errors (ErrSyntax,
// ErrUnknownTable, ErrUnknownField and so on) and can be tested with
// errors.Is.
package query
