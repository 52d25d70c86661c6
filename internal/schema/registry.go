package schema

import (
	"errors"
	"fmt"
	"hash/fnv"
)

// MaxIdentifierLength is the longest index name emitted. PostgreSQL truncates
// identifiers beyond 63 bytes and MySQL rejects names beyond 64.
const MaxIdentifierLength = 63

var (
	// ErrTableExists is returned when a table name is created twice.
	ErrTableExists = errors.New("table already exists")
	// ErrUnknownParent is returned when a foreign key targets a table that was not created yet.
	ErrUnknownParent = errors.New("parent table does not exist")
)

// Registry owns the table definitions of one conversion and fixes their
// column signatures on creation. Registration order is output order.
type Registry struct {
	tables []*Table
	byName map[string]*Table
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*Table)}
}

// Resolve returns the table registered under name
func (r *Registry) Resolve(name string) (*Table, bool) {
	t, ok := r.byName[name]
	return t, ok
}

// Create registers an object table. parentTable is the table its rows point
// back to, or "" for none. Scalar keys that clash with an allocated column
// name get a trailing underscore until unique.
func (r *Registry) Create(name, parentTable string, hasSequence bool, scalarKeys []string) (*Table, error) {
	t, err := r.newTable(name, ObjectTable, parentTable)
	if err != nil {
		return nil, err
	}

	if hasSequence {
		t.addColumn(Column{Name: SequenceColumn, Kind: Sequence, Type: TypeID, Nullable: true})
	}
	for _, key := range scalarKeys {
		col := key
		for {
			if _, taken := t.byName[col]; !taken {
				break
			}
			col += "_"
		}
		t.addColumn(Column{Name: col, Kind: Scalar, Source: key, Type: TypeText, Nullable: true})
	}

	r.register(t)
	return t, nil
}

// CreateJunction registers a table holding the elements of a scalar array:
// id, optional <parent>_id, item_index, value.
func (r *Registry) CreateJunction(name, parentTable string) (*Table, error) {
	t, err := r.newTable(name, JunctionTable, parentTable)
	if err != nil {
		return nil, err
	}

	t.addColumn(Column{Name: ItemIndexColumn, Kind: Sequence, Type: TypeID})
	t.addColumn(Column{Name: ValueColumn, Kind: Scalar, Type: TypeText, Nullable: true})

	r.register(t)
	return t, nil
}

// Schema returns the model built so far
func (r *Registry) Schema() *Schema {
	tables := make([]*Table, len(r.tables))
	copy(tables, r.tables)
	return &Schema{Tables: tables}
}

func (r *Registry) newTable(name string, kind TableKind, parentTable string) (*Table, error) {
	if _, ok := r.byName[name]; ok {
		return nil, fmt.Errorf("%w: %s", ErrTableExists, name)
	}
	if parentTable != "" {
		if _, ok := r.byName[parentTable]; !ok {
			return nil, fmt.Errorf("%w: %s (referenced by %s)", ErrUnknownParent, parentTable, name)
		}
	}

	t := &Table{Name: name, Kind: kind, PrimaryKey: []string{IDColumn}}
	t.addColumn(Column{Name: IDColumn, Kind: PrimaryKey, Type: TypeID})

	if parentTable != "" {
		fk := ForeignKeyColumn(parentTable)
		t.addColumn(Column{Name: fk, Kind: ForeignKey, References: parentTable, Type: TypeID, Nullable: true})
		t.Relations = append(t.Relations, Relation{
			TargetTable:  parentTable,
			TargetColumn: IDColumn,
			SourceColumn: fk,
			Cardinality:  "N:1",
		})
		t.Indexes = append(t.Indexes, Index{Name: IndexName(name, fk), Columns: []string{fk}})
	}
	return t, nil
}

func (r *Registry) register(t *Table) {
	r.tables = append(r.tables, t)
	r.byName[t.Name] = t
}

// IndexName names the index of column on table. Names longer than
// MaxIdentifierLength are cut and suffixed with a hash of the full name so
// distinct tables keep distinct indexes.
func IndexName(table, column string) string {
	name := "idx_" + table + "_" + column
	if len(name) <= MaxIdentifierLength {
		return name
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	suffix := fmt.Sprintf("_%08x", h.Sum32())
	return name[:MaxIdentifierLength-len(suffix)] + suffix
}

// ChildName names the table reached from parent through key
func ChildName(parent, key string) string {
	return parent + "_" + key
}

// ForeignKeyColumn names the backward foreign key column pointing at parent
func ForeignKeyColumn(parent string) string {
	return parent + "_" + IDColumn
}
