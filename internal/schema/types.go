package schema

import (
	"fmt"
	"strconv"
)

// Logical SQL types of generated columns
const (
	TypeID   = "BIGINT"
	TypeText = "TEXT"
)

// Reserved column names
const (
	IDColumn        = "id"
	SequenceColumn  = "seq"
	ItemIndexColumn = "item_index"
	ValueColumn     = "value"
)

// Schema represents the inferred relational model, tables in creation order
type Schema struct {
	Tables []*Table
}

// Table returns the table with the given name, or nil
func (s *Schema) Table(name string) *Table {
	for _, t := range s.Tables {
		if t.Name == name {
			return t
		}
	}
	return nil
}

// RowCount returns the number of rows across all tables
func (s *Schema) RowCount() int {
	n := 0
	for _, t := range s.Tables {
		n += len(t.Rows)
	}
	return n
}

// TableKind distinguishes object tables from scalar-array junction tables
type TableKind uint8

const (
	ObjectTable TableKind = iota
	JunctionTable
)

func (k TableKind) String() string {
	if k == JunctionTable {
		return "junction"
	}
	return "object"
}

// Table represents one relation collecting all rows that share a name path
type Table struct {
	Name       string
	Kind       TableKind
	Columns    []Column
	Relations  []Relation
	Indexes    []Index
	PrimaryKey []string
	Rows       []Row

	byName   map[string]int
	bySource map[string]int
}

// ColumnKind is the role a column plays in its table
type ColumnKind uint8

const (
	PrimaryKey ColumnKind = iota
	ForeignKey
	Sequence
	Scalar
)

func (k ColumnKind) String() string {
	switch k {
	case PrimaryKey:
		return "pk"
	case ForeignKey:
		return "fk"
	case Sequence:
		return "seq"
	default:
		return "data"
	}
}

// Column represents a table column
type Column struct {
	Name       string
	Kind       ColumnKind
	References string // referenced table, ForeignKey only
	Source     string // JSON key feeding a Scalar column
	Type       string
	Nullable   bool
}

// Relation represents a foreign key relationship
type Relation struct {
	TargetTable  string
	TargetColumn string
	SourceColumn string
	Cardinality  string // always N:1, child rows point at their parent
}

// Index represents a database index
type Index struct {
	Name     string
	Columns  []string
	IsUnique bool
}

// Row is one materialized record; Values is aligned with the table's columns
type Row struct {
	ID     uint64
	Values []string
}

// ColumnNames returns the column names in order
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Column returns the position of the named column
func (t *Table) Column(name string) (int, bool) {
	i, ok := t.byName[name]
	return i, ok
}

// SourceColumn returns the position of the scalar column fed by a JSON key
func (t *Table) SourceColumn(key string) (int, bool) {
	i, ok := t.bySource[key]
	return i, ok
}

// ForeignKey returns the position of the backward foreign key column, if any
func (t *Table) ForeignKey() (int, bool) {
	for i, c := range t.Columns {
		if c.Kind == ForeignKey {
			return i, true
		}
	}
	return 0, false
}

// SequenceColumn returns the position of the seq or item_index column, if any
func (t *Table) SequenceColumn() (int, bool) {
	for i, c := range t.Columns {
		if c.Kind == Sequence {
			return i, true
		}
	}
	return 0, false
}

// Parent returns the table referenced by the backward foreign key, or ""
func (t *Table) Parent() string {
	if i, ok := t.ForeignKey(); ok {
		return t.Columns[i].References
	}
	return ""
}

// NewRow returns a row for id with every value empty except the primary key
func (t *Table) NewRow(id uint64) Row {
	values := make([]string, len(t.Columns))
	values[0] = strconv.FormatUint(id, 10)
	return Row{ID: id, Values: values}
}

// Append adds a fully materialized row
func (t *Table) Append(row Row) error {
	if len(row.Values) != len(t.Columns) {
		return fmt.Errorf("table %s: row %d has %d values, want %d",
			t.Name, row.ID, len(row.Values), len(t.Columns))
	}
	t.Rows = append(t.Rows, row)
	return nil
}

func (t *Table) addColumn(c Column) {
	if t.byName == nil {
		t.byName = make(map[string]int)
		t.bySource = make(map[string]int)
	}
	t.byName[c.Name] = len(t.Columns)
	if c.Kind == Scalar && c.Source != "" {
		t.bySource[c.Source] = len(t.Columns)
	}
	t.Columns = append(t.Columns, c)
}
