package graph

import (
	"fmt"
	"io"
	"strings"
)

// WriteMermaid writes the graph in Mermaid format to w.
// Each connected component is a subgraph; edges point from child to parent
// and are labelled with the FK column.
func WriteMermaid(w io.Writer, g *Graph) error {
	components := FindComponents(g)

	if _, err := fmt.Fprintln(w, "graph TD"); err != nil {
		return err
	}

	for i, comp := range components {
		var b strings.Builder
		fmt.Fprintf(&b, "    subgraph component_%d\n", i+1)

		tableSet := make(map[string]bool, len(comp.Tables))
		for _, t := range comp.Tables {
			tableSet[t] = true
		}

		for _, edge := range g.Edges {
			if !tableSet[edge.ChildTable] {
				continue
			}
			fmt.Fprintf(&b, "        %s -->|%s| %s\n",
				mermaidNode(edge.ChildTable), edge.Column, mermaidNode(edge.ParentTable))
		}

		// Standalone nodes (tables with no edges in this component)
		for _, t := range comp.Tables {
			if !hasEdge(g, t, tableSet) {
				fmt.Fprintf(&b, "        %s\n", mermaidNode(t))
			}
		}

		b.WriteString("    end\n")
		if i < len(components)-1 {
			b.WriteString("\n")
		}

		if _, err := io.WriteString(w, b.String()); err != nil {
			return err
		}
	}

	return nil
}

// mermaidNode renders a table as a node. Names outside [A-Za-z0-9_] get a
// sanitized ID and a quoted label.
func mermaidNode(name string) string {
	id := mermaidID(name)
	if id == name {
		return id
	}
	return fmt.Sprintf("%s[%q]", id, name)
}

// mermaidID converts a table name to a Mermaid-safe node ID.
func mermaidID(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		}
		return '_'
	}, name)
}

func hasEdge(g *Graph, table string, componentTables map[string]bool) bool {
	for _, edge := range g.Edges {
		if edge.ChildTable == table && componentTables[edge.ParentTable] {
			return true
		}
		if edge.ParentTable == table && componentTables[edge.ChildTable] {
			return true
		}
	}
	return false
}
