package graph

import (
	"github.com/tordrt/json2relcsv/internal/schema"
)

// Edge represents a directed edge from child to parent (FK direction).
type Edge struct {
	ChildTable  string
	ParentTable string
	Column      string // FK column on the child
}

// Graph is a directed graph built from the backward foreign keys of a model.
type Graph struct {
	// Tables lists table names in model order
	Tables []string

	// Edges are FK edges (child → parent)
	Edges []Edge

	// Children maps parent name → list of child names
	Children map[string][]string

	// Parents maps child name → list of parent names
	Parents map[string][]string

	// adjacency for undirected connectivity
	Adjacency map[string]map[string]bool

	known map[string]bool
}

// Build constructs a directed graph from a model. When include is non-nil
// only the tables it names are kept; FKs to tables outside the kept set are
// ignored.
func Build(s *schema.Schema, include map[string]bool) *Graph {
	g := &Graph{
		Children:  make(map[string][]string),
		Parents:   make(map[string][]string),
		Adjacency: make(map[string]map[string]bool),
		known:     make(map[string]bool),
	}

	for _, tbl := range s.Tables {
		if include != nil && !include[tbl.Name] {
			continue
		}
		g.Tables = append(g.Tables, tbl.Name)
		g.Adjacency[tbl.Name] = make(map[string]bool)
		g.known[tbl.Name] = true
	}

	for _, tbl := range s.Tables {
		if !g.known[tbl.Name] {
			continue
		}
		for _, rel := range tbl.Relations {
			if !g.known[rel.TargetTable] {
				continue // parent table not in scope
			}
			g.Edges = append(g.Edges, Edge{
				ChildTable:  tbl.Name,
				ParentTable: rel.TargetTable,
				Column:      rel.SourceColumn,
			})
			g.Children[rel.TargetTable] = append(g.Children[rel.TargetTable], tbl.Name)
			g.Parents[tbl.Name] = append(g.Parents[tbl.Name], rel.TargetTable)
			g.Adjacency[tbl.Name][rel.TargetTable] = true
			g.Adjacency[rel.TargetTable][tbl.Name] = true
		}
	}

	return g
}

// Has reports whether the graph contains the named table.
func (g *Graph) Has(name string) bool {
	return g.known[name]
}

// Roots returns tables that have no outgoing FK edges (no parents).
func (g *Graph) Roots() []string {
	var roots []string
	for _, name := range g.Tables {
		if len(g.Parents[name]) == 0 {
			roots = append(roots, name)
		}
	}
	return roots
}
