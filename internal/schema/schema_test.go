package schema

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDAllocator(t *testing.T) {
	var ids IDAllocator
	assert.Equal(t, uint64(0), ids.Last())
	assert.Equal(t, uint64(1), ids.Next())
	assert.Equal(t, uint64(2), ids.Next())
	assert.Equal(t, uint64(3), ids.Next())
	assert.Equal(t, uint64(3), ids.Last())
}

func TestRegistryCreate(t *testing.T) {
	r := NewRegistry()

	root, err := r.Create("root", "", false, []string{"orderId"})
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "orderId"}, root.ColumnNames())
	assert.Empty(t, root.Relations)
	assert.Equal(t, "", root.Parent())

	items, err := r.Create("root_items", "root", true, []string{"sku", "qty"})
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "root_id", "seq", "sku", "qty"}, items.ColumnNames())
	assert.Equal(t, "root", items.Parent())

	require.Len(t, items.Relations, 1)
	assert.Equal(t, Relation{TargetTable: "root", TargetColumn: "id", SourceColumn: "root_id", Cardinality: "N:1"}, items.Relations[0])
	require.Len(t, items.Indexes, 1)
	assert.Equal(t, "idx_root_items_root_id", items.Indexes[0].Name)

	fk, ok := items.ForeignKey()
	require.True(t, ok)
	assert.Equal(t, 1, fk)
	seq, ok := items.SequenceColumn()
	require.True(t, ok)
	assert.Equal(t, 2, seq)
	qty, ok := items.SourceColumn("qty")
	require.True(t, ok)
	assert.Equal(t, 4, qty)

	got, ok := r.Resolve("root_items")
	require.True(t, ok)
	assert.Same(t, items, got)

	_, ok = r.Resolve("missing")
	assert.False(t, ok)
}

func TestIndexName(t *testing.T) {
	assert.Equal(t, "idx_root_items_root_id", IndexName("root_items", "root_id"))

	parent := "root" + strings.Repeat("_level", 10)
	fk := ForeignKeyColumn(parent)
	a := IndexName(parent+"_alpha", fk)
	b := IndexName(parent+"_bravo", fk)
	assert.LessOrEqual(t, len(a), MaxIdentifierLength)
	assert.LessOrEqual(t, len(b), MaxIdentifierLength)
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, "idx_root_level_"))
	assert.Equal(t, a, IndexName(parent+"_alpha", fk))

	r := NewRegistry()
	_, err := r.Create(parent, "", false, nil)
	require.NoError(t, err)
	deep, err := r.Create(parent+"_alpha", parent, false, nil)
	require.NoError(t, err)
	require.Len(t, deep.Indexes, 1)
	assert.Equal(t, a, deep.Indexes[0].Name)
}

func TestRegistryRenamesCollidingKeys(t *testing.T) {
	r := NewRegistry()
	_, err := r.Create("root", "", false, nil)
	require.NoError(t, err)

	tbl, err := r.Create("root_a", "root", true, []string{"id", "root_id", "seq", "name", "id_"})
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "root_id", "seq", "id_", "root_id_", "seq_", "name", "id__"}, tbl.ColumnNames())

	i, ok := tbl.SourceColumn("id")
	require.True(t, ok)
	assert.Equal(t, "id_", tbl.Columns[i].Name)
	i, ok = tbl.SourceColumn("id_")
	require.True(t, ok)
	assert.Equal(t, "id__", tbl.Columns[i].Name)
}

func TestRegistryErrors(t *testing.T) {
	r := NewRegistry()
	_, err := r.Create("root", "", false, nil)
	require.NoError(t, err)

	_, err = r.Create("root", "", false, nil)
	assert.ErrorIs(t, err, ErrTableExists)

	_, err = r.CreateJunction("root", "")
	assert.ErrorIs(t, err, ErrTableExists)

	_, err = r.Create("orphan", "nowhere", false, nil)
	assert.ErrorIs(t, err, ErrUnknownParent)

	_, ok := r.Resolve("orphan")
	assert.False(t, ok, "failed create must not register")
}

func TestRegistryJunction(t *testing.T) {
	r := NewRegistry()
	_, err := r.Create("root", "", false, []string{"movie"})
	require.NoError(t, err)

	j, err := r.CreateJunction("root_genres", "root")
	require.NoError(t, err)
	assert.Equal(t, JunctionTable, j.Kind)
	assert.Equal(t, []string{"id", "root_id", "item_index", "value"}, j.ColumnNames())

	top, err := r.CreateJunction("root_items", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "item_index", "value"}, top.ColumnNames())

	s := r.Schema()
	require.Len(t, s.Tables, 3)
	assert.Equal(t, "root", s.Tables[0].Name)
	assert.Equal(t, "root_genres", s.Tables[1].Name)
	assert.Same(t, j, s.Table("root_genres"))
	assert.Nil(t, s.Table("nope"))
}

func TestAppend(t *testing.T) {
	r := NewRegistry()
	tbl, err := r.Create("root", "", false, []string{"a"})
	require.NoError(t, err)

	row := tbl.NewRow(1)
	assert.Equal(t, []string{"1", ""}, row.Values)
	require.NoError(t, tbl.Append(row))

	err = tbl.Append(Row{ID: 2, Values: []string{"2"}})
	assert.Error(t, err)
	assert.Len(t, tbl.Rows, 1)
}

func buildValidSchema(t *testing.T) *Schema {
	t.Helper()
	r := NewRegistry()
	root, err := r.Create("root", "", false, []string{"orderId"})
	require.NoError(t, err)
	items, err := r.Create("root_items", "root", true, []string{"sku"})
	require.NoError(t, err)

	require.NoError(t, root.Append(Row{ID: 1, Values: []string{"1", "7"}}))
	require.NoError(t, items.Append(Row{ID: 2, Values: []string{"2", "1", "0", "X1"}}))
	require.NoError(t, items.Append(Row{ID: 3, Values: []string{"3", "1", "1", "Y9"}}))
	return r.Schema()
}

func TestVerify(t *testing.T) {
	s := buildValidSchema(t)
	require.NoError(t, s.Verify())
	assert.Equal(t, 3, s.RowCount())
}

func TestVerifyDetectsViolations(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(s *Schema)
	}{
		{"duplicate id", func(s *Schema) {
			s.Tables[1].Rows[1] = Row{ID: 2, Values: []string{"2", "1", "1", "Y9"}}
		}},
		{"gap in ids", func(s *Schema) {
			s.Tables[1].Rows[1] = Row{ID: 5, Values: []string{"5", "1", "1", "Y9"}}
		}},
		{"dangling fk", func(s *Schema) {
			s.Tables[1].Rows[0].Values[1] = "3"
		}},
		{"fk not numeric", func(s *Schema) {
			s.Tables[1].Rows[0].Values[1] = "x"
		}},
		{"short row", func(s *Schema) {
			s.Tables[0].Rows[0].Values = []string{"1"}
		}},
		{"id text mismatch", func(s *Schema) {
			s.Tables[0].Rows[0].Values[0] = "9"
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := buildValidSchema(t)
			tt.mutate(s)
			assert.ErrorIs(t, s.Verify(), ErrInvalidModel)
		})
	}
}

func TestVerifyParentAllocatedFirst(t *testing.T) {
	r := NewRegistry()
	root, err := r.Create("root", "", false, nil)
	require.NoError(t, err)
	child, err := r.Create("root_c", "root", false, nil)
	require.NoError(t, err)

	require.NoError(t, child.Append(Row{ID: 1, Values: []string{"1", "2"}}))
	require.NoError(t, root.Append(Row{ID: 2, Values: []string{"2"}}))

	assert.ErrorIs(t, r.Schema().Verify(), ErrInvalidModel)
}
