package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/tordrt/json2relcsv/internal/graph"
	"github.com/tordrt/json2relcsv/internal/schema"
)

// MarkdownFormatter describes the inferred schema as markdown
type MarkdownFormatter struct {
	writer io.Writer
	Tables []string // when set, only these tables are described
}

// NewMarkdownFormatter creates a new markdown formatter
func NewMarkdownFormatter(w io.Writer) *MarkdownFormatter {
	return &MarkdownFormatter{writer: w}
}

// Format writes the schema in markdown format
func (f *MarkdownFormatter) Format(s *schema.Schema) error {
	_, err := fmt.Fprintln(f.writer, "# Inferred Schema")
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(f.writer)

	tables := SelectTables(s, f.Tables)
	rows := 0
	for _, table := range tables {
		rows += len(table.Rows)
	}
	_, _ = fmt.Fprintf(f.writer, "%s, %s.\n\n", plural(len(tables), "table"), plural(rows, "row"))
	if roots := graph.Build(s, includeSet(f.Tables)).Roots(); len(roots) > 0 {
		_, _ = fmt.Fprintf(f.writer, "Top-level: %s.\n\n", strings.Join(roots, ", "))
	}

	for _, table := range tables {
		f.formatTable(table, s)
	}
	return nil
}

func (f *MarkdownFormatter) formatTable(table *schema.Table, s *schema.Schema) {
	// Table header
	_, _ = fmt.Fprintf(f.writer, "## %s\n\n", table.Name)
	_, _ = fmt.Fprintf(f.writer, "_%s table, %s_\n\n", table.Kind, plural(len(table.Rows), "row"))

	// Columns
	_, _ = fmt.Fprintln(f.writer, "### Columns")
	_, _ = fmt.Fprintln(f.writer)

	for _, col := range table.Columns {
		constraintStr := f.formatConstraints(col, table.PrimaryKey)
		if constraintStr != "" {
			_, _ = fmt.Fprintf(f.writer, "- **%s:** %s, %s\n", col.Name, col.Type, constraintStr)
		} else {
			_, _ = fmt.Fprintf(f.writer, "- **%s:** %s\n", col.Name, col.Type)
		}
	}
	_, _ = fmt.Fprintln(f.writer)

	// Relations
	if len(table.Relations) > 0 {
		_, _ = fmt.Fprintln(f.writer, "### References")
		_, _ = fmt.Fprintln(f.writer)
		for _, rel := range table.Relations {
			_, _ = fmt.Fprintf(f.writer, "- %s → %s.%s (%s)\n",
				rel.SourceColumn,
				rel.TargetTable,
				rel.TargetColumn,
				rel.Cardinality)
		}
		_, _ = fmt.Fprintln(f.writer)
	}

	// Incoming relationships
	incomingRels := findIncomingRelations(table.Name, s)
	if len(incomingRels) > 0 {
		_, _ = fmt.Fprintln(f.writer, "### Referenced by")
		_, _ = fmt.Fprintln(f.writer)
		for _, rel := range incomingRels {
			_, _ = fmt.Fprintf(f.writer, "- %s.%s → %s\n", rel.SourceTable, rel.SourceColumn, rel.TargetColumn)
		}
		_, _ = fmt.Fprintln(f.writer)
	}

	// Indexes
	if len(table.Indexes) > 0 {
		_, _ = fmt.Fprintln(f.writer, "### Indexes")
		_, _ = fmt.Fprintln(f.writer)
		for _, idx := range table.Indexes {
			unique := ""
			if idx.IsUnique {
				unique = ", unique"
			}
			_, _ = fmt.Fprintf(f.writer, "- %s on (%s)%s\n", idx.Name, strings.Join(idx.Columns, ", "), unique)
		}
		_, _ = fmt.Fprintln(f.writer)
	}
}

func (f *MarkdownFormatter) formatConstraints(col schema.Column, primaryKey []string) string {
	var constraints []string

	// Check if this column is part of the primary key
	for _, pk := range primaryKey {
		if pk == col.Name {
			constraints = append(constraints, "PK")
			break
		}
	}

	switch col.Kind {
	case schema.ForeignKey:
		constraints = append(constraints, "FK")
	case schema.Sequence:
		constraints = append(constraints, "array position")
	}

	if !col.Nullable {
		constraints = append(constraints, "NOT NULL")
	}

	if col.Source != "" && col.Source != col.Name {
		constraints = append(constraints, fmt.Sprintf("from key `%s`", col.Source))
	}

	return strings.Join(constraints, ", ")
}

// IncomingRelation represents a relationship pointing to this table
type IncomingRelation struct {
	SourceTable  string
	SourceColumn string
	TargetTable  string
	TargetColumn string
}

// findIncomingRelations finds all foreign keys pointing to this table
func findIncomingRelations(tableName string, s *schema.Schema) []IncomingRelation {
	var incoming []IncomingRelation

	for _, table := range s.Tables {
		for _, rel := range table.Relations {
			if rel.TargetTable == tableName {
				incoming = append(incoming, IncomingRelation{
					SourceTable:  table.Name,
					SourceColumn: rel.SourceColumn,
					TargetTable:  rel.TargetTable,
					TargetColumn: rel.TargetColumn,
				})
			}
		}
	}

	return incoming
}
