package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/tordrt/json2relcsv/internal/schema"
)

// TextFormatter describes the inferred schema as compact text
type TextFormatter struct {
	writer io.Writer
	Tables []string // when set, only these tables are described
}

// NewTextFormatter creates a new text formatter
func NewTextFormatter(w io.Writer) *TextFormatter {
	return &TextFormatter{writer: w}
}

// Format writes the schema in compact text format
func (f *TextFormatter) Format(s *schema.Schema) error {
	for i, table := range SelectTables(s, f.Tables) {
		if i > 0 {
			_, _ = fmt.Fprintln(f.writer) // Blank line between tables
		}

		if err := f.formatTable(table); err != nil {
			return err
		}
	}
	return nil
}

func (f *TextFormatter) formatTable(table *schema.Table) error {
	// Table header with primary key
	pkStr := ""
	if len(table.PrimaryKey) > 0 {
		pkStr = fmt.Sprintf(" (PK: %s)", strings.Join(table.PrimaryKey, ", "))
	}
	_, err := fmt.Fprintf(f.writer, "TABLE %s%s [%s, %s]\n",
		table.Name, pkStr, table.Kind, plural(len(table.Rows), "row"))
	if err != nil {
		return err
	}

	// Columns
	for _, col := range table.Columns {
		_, _ = fmt.Fprintf(f.writer, "  %s\n", f.formatColumn(col))
	}

	// Relations
	if len(table.Relations) > 0 {
		_, _ = fmt.Fprintln(f.writer)
		_, _ = fmt.Fprintln(f.writer, "  RELATIONS:")
		for _, rel := range table.Relations {
			_, _ = fmt.Fprintf(f.writer, "    %s → %s.%s (%s)\n",
				rel.SourceColumn, rel.TargetTable, rel.TargetColumn, rel.Cardinality)
		}
	}

	// Indexes
	if len(table.Indexes) > 0 {
		_, _ = fmt.Fprintln(f.writer)
		_, _ = fmt.Fprintln(f.writer, "  INDEXES:")
		for _, idx := range table.Indexes {
			unique := ""
			if idx.IsUnique {
				unique = " UNIQUE"
			}
			_, _ = fmt.Fprintf(f.writer, "    %s (%s)%s\n", idx.Name, strings.Join(idx.Columns, ", "), unique)
		}
	}

	return nil
}

func (f *TextFormatter) formatColumn(col schema.Column) string {
	parts := []string{col.Name + ":", col.Type}

	switch col.Kind {
	case schema.PrimaryKey:
		parts = append(parts, "PK")
	case schema.ForeignKey:
		parts = append(parts, "FK")
	case schema.Sequence:
		parts = append(parts, "POSITION")
	}

	if !col.Nullable {
		parts = append(parts, "NOT NULL")
	}

	// Renamed data columns keep their source key
	if col.Source != "" && col.Source != col.Name {
		parts = append(parts, fmt.Sprintf("(from key %q)", col.Source))
	}

	return strings.Join(parts, " ")
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
