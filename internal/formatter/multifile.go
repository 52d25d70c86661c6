package formatter

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/tordrt/json2relcsv/internal/schema"
)

// DefaultWorkers is the number of table files written concurrently when unset
const DefaultWorkers = 4

// MultiFileFormatter writes one CSV file per table into a directory
type MultiFileFormatter struct {
	OutputDir string
	Workers   int
	Tables    []string // when set, only these tables are written

	// Written lists the files of the last Format call, in model order
	Written []WrittenFile
}

// WrittenFile describes one CSV file produced by Format
type WrittenFile struct {
	Table string
	Path  string
	Rows  int
	Bytes int64
}

// NewMultiFileFormatter creates a new multi-file formatter
func NewMultiFileFormatter(outputDir string, workers int) *MultiFileFormatter {
	return &MultiFileFormatter{
		OutputDir: outputDir,
		Workers:   workers,
	}
}

// Format writes the tables to <OutputDir>/<table>.csv. Files already written
// stay on disk when a later one fails.
func (f *MultiFileFormatter) Format(s *schema.Schema) error {
	f.Written = nil

	// Create output directory if it doesn't exist
	if err := os.MkdirAll(f.OutputDir, 0755); err != nil {
		return &IOError{Path: f.OutputDir, Err: err}
	}

	tables := SelectTables(s, f.Tables)
	paths, err := f.filePaths(tables)
	if err != nil {
		return err
	}

	workers := f.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}

	written := make([]WrittenFile, len(tables))
	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(workers)

	for i, table := range tables {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			n, err := writeTableFile(paths[i], table)
			if err != nil {
				return err
			}
			written[i] = WrittenFile{Table: table.Name, Path: paths[i], Rows: len(table.Rows), Bytes: n}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	f.Written = written
	return nil
}

// TotalBytes returns the size of all files written by the last Format call
func (f *MultiFileFormatter) TotalBytes() int64 {
	var n int64
	for _, w := range f.Written {
		n += w.Bytes
	}
	return n
}

// filePaths maps each table to its file and rejects two tables sharing one
func (f *MultiFileFormatter) filePaths(tables []*schema.Table) ([]string, error) {
	paths := make([]string, len(tables))
	owners := make(map[string]string, len(tables))

	for i, table := range tables {
		name := FileName(table.Name)
		key := strings.ToLower(name)
		path := filepath.Join(f.OutputDir, name)
		if other, ok := owners[key]; ok {
			return nil, &IOError{Path: path, Err: fmt.Errorf("%w: %s and %s", ErrFileNameCollision, other, table.Name)}
		}
		owners[key] = table.Name
		paths[i] = path
	}
	return paths, nil
}

// writeTableFile writes a single table to its own file
func writeTableFile(path string, table *schema.Table) (int64, error) {
	file, err := os.Create(path)
	if err != nil {
		return 0, &IOError{Path: path, Err: err}
	}

	cw := &countingWriter{w: file}
	if err := WriteCSV(cw, table); err != nil {
		_ = file.Close()
		return cw.n, &IOError{Path: path, Err: err}
	}
	if err := file.Close(); err != nil {
		return cw.n, &IOError{Path: path, Err: err}
	}
	return cw.n, nil
}

// WriteCSV writes the header and rows of a table as RFC 4180 CSV
func WriteCSV(w io.Writer, table *schema.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(table.ColumnNames()); err != nil {
		return err
	}
	for _, row := range table.Rows {
		if err := cw.Write(row.Values); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// SelectTables returns the tables of s named in names, in model order, or all
// tables when names is empty. Unknown names are ignored.
func SelectTables(s *schema.Schema, names []string) []*schema.Table {
	want := includeSet(names)
	if want == nil {
		return s.Tables
	}
	var out []*schema.Table
	for _, t := range s.Tables {
		if want[t.Name] {
			out = append(out, t)
		}
	}
	return out
}

// FileName returns the CSV file name for a table. Path separators, control
// characters and characters rejected by common filesystems become "_".
func FileName(table string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r < 0x20, r == 0x7f:
			return '_'
		case strings.ContainsRune(`/\:*?"<>|`, r):
			return '_'
		}
		return r
	}, table)
	if name == "." || name == ".." {
		name = strings.Repeat("_", len(name))
	}
	return name + ".csv"
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
