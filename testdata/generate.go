//go:build ignore

// Generates a small sample library for trying the CLI:
//
//	go run testdata/generate.go
//	tabsql -config testdata/library.yaml -i
package main

import (
	"encoding/csv"
	"log"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"
)

type Book struct {
	ID       int64   `parquet:"id"`
	Title    string  `parquet:"title"`
	AuthorID int64   `parquet:"author_id"`
	Price    float64 `parquet:"price"`
	Year     int32   `parquet:"year"`
}

var books = []Book{
	{ID: 1, Title: "Dune", AuthorID: 1, Price: 9.5, Year: 1965},
	{ID: 2, Title: "Emma", AuthorID: 2, Price: 7, Year: 1815},
	{ID: 3, Title: "Persuasion", AuthorID: 2, Price: 8, Year: 1817},
	{ID: 4, Title: "The Hobbit", AuthorID: 3, Price: 11.25, Year: 1937},
	{ID: 5, Title: "Children of Dune", AuthorID: 1, Price: 8.75, Year: 1976},
}

var authors = [][]string{
	{"id", "name", "country"},
	{"1", "Herbert", "US"},
	{"2", "Austen", "UK"},
	{"3", "Tolkien", "UK"},
	{"4", "Le Guin", "US"},
}

const catalog = `tables:
  books: {path: books.parquet}
  authors: {path: authors.csv}
  genres:
    columns: [book_id, genre]
    rows:
      - [1, scifi]
      - [2, romance]
      - [3, romance]
      - [4, fantasy]
      - [5, scifi]
format: table
`

func main() {
	dir := "testdata"
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}

	if err := writeBooks(filepath.Join(dir, "books.parquet")); err != nil {
		log.Fatal(err)
	}
	if err := writeAuthors(filepath.Join(dir, "authors.csv")); err != nil {
		log.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "library.yaml"), []byte(catalog), 0o644); err != nil {
		log.Fatal(err)
	}

	log.Printf("Generated sample library in %s", dir)
}

func writeBooks(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := parquet.NewGenericWriter[Book](file)
	if _, err := writer.Write(books); err != nil {
		return err
	}
	return writer.Close()
}

func writeAuthors(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.WriteAll(authors); err != nil {
		return err
	}
	return file.Sync()
}
