package formatter

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/tordrt/json2relcsv/internal/db"
	"github.com/tordrt/json2relcsv/internal/schema"
)

// CopyFormatter writes the model as a PostgreSQL script: table DDL followed by
// one COPY block per table, all inside a single transaction
type CopyFormatter struct {
	writer io.Writer
}

// NewCopyFormatter creates a new COPY script formatter
func NewCopyFormatter(w io.Writer) *CopyFormatter {
	return &CopyFormatter{writer: w}
}

// Format writes the script. Tables come in model order, which has every
// parent before its children.
func (f *CopyFormatter) Format(s *schema.Schema) error {
	w := bufio.NewWriter(f.writer)

	_, _ = fmt.Fprintln(w, "BEGIN;")
	_, _ = fmt.Fprintln(w)

	for _, table := range s.Tables {
		_, _ = fmt.Fprintf(w, "%s;\n", db.Postgres.CreateTable(table))
		for _, stmt := range db.Postgres.CreateIndexes(table) {
			_, _ = fmt.Fprintf(w, "%s;\n", stmt)
		}
		_, _ = fmt.Fprintln(w)
	}

	for _, table := range s.Tables {
		f.writeTableData(w, table)
	}

	_, _ = fmt.Fprintln(w, "COMMIT;")
	return w.Flush()
}

// writeTableData writes a COPY block for a single table
func (f *CopyFormatter) writeTableData(w io.Writer, table *schema.Table) {
	if len(table.Rows) == 0 {
		return
	}

	cols := make([]string, len(table.Columns))
	for i, c := range table.Columns {
		cols[i] = db.Postgres.Quote(c.Name)
	}
	_, _ = fmt.Fprintf(w, "COPY %s (%s) FROM stdin;\n",
		db.Postgres.Quote(table.Name), strings.Join(cols, ", "))

	vals := make([]string, len(table.Columns))
	for _, row := range table.Rows {
		for i, v := range row.Values {
			if v == "" && table.Columns[i].Type == schema.TypeID {
				vals[i] = `\N`
				continue
			}
			vals[i] = EscapeCopyValue(v)
		}
		_, _ = fmt.Fprintln(w, strings.Join(vals, "\t"))
	}

	_, _ = fmt.Fprintln(w, `\.`)
	_, _ = fmt.Fprintln(w)
}

// EscapeCopyValue applies COPY text format escaping
func EscapeCopyValue(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
