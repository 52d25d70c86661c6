// Package formatter projects a finished model onto text: CSV files, a
// PostgreSQL COPY script and human-readable schema descriptions.
package formatter

import (
	"fmt"
	"io"

	"github.com/tordrt/json2relcsv/internal/graph"
	"github.com/tordrt/json2relcsv/internal/schema"
)

// Description formats accepted by NewDescriber
const (
	FormatText     = "text"
	FormatMarkdown = "markdown"
	FormatMermaid  = "mermaid"
)

// Formatter writes a model somewhere
type Formatter interface {
	Format(s *schema.Schema) error
}

// MermaidFormatter writes the foreign key graph as a Mermaid diagram
type MermaidFormatter struct {
	writer io.Writer
	Tables []string // when set, only these tables and the keys between them are drawn
}

// NewMermaidFormatter creates a new Mermaid formatter
func NewMermaidFormatter(w io.Writer) *MermaidFormatter {
	return &MermaidFormatter{writer: w}
}

// Format writes the diagram
func (f *MermaidFormatter) Format(s *schema.Schema) error {
	g := graph.Build(s, includeSet(f.Tables))
	for _, name := range f.Tables {
		if !g.Has(name) {
			return fmt.Errorf("unknown table %q", name)
		}
	}
	return graph.WriteMermaid(f.writer, g)
}

// NewDescriber returns the schema description formatter for format. A
// non-empty tables limits the description to those tables.
func NewDescriber(format string, w io.Writer, tables []string) (Formatter, error) {
	switch format {
	case FormatText:
		f := NewTextFormatter(w)
		f.Tables = tables
		return f, nil
	case FormatMarkdown:
		f := NewMarkdownFormatter(w)
		f.Tables = tables
		return f, nil
	case FormatMermaid:
		f := NewMermaidFormatter(w)
		f.Tables = tables
		return f, nil
	default:
		return nil, fmt.Errorf("unknown describe format %q (want %s, %s or %s)",
			format, FormatText, FormatMarkdown, FormatMermaid)
	}
}

func includeSet(names []string) map[string]bool {
	if len(names) == 0 {
		return nil
	}
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}
