package infer

import (
	"fmt"
	"strconv"

	"github.com/tordrt/json2relcsv/internal/diag"
	"github.com/tordrt/json2relcsv/internal/schema"
	"github.com/tordrt/json2relcsv/internal/value"
)

// materialize resolves every column of the row created for obj: primary key,
// backward foreign key, array position and scalar values. Columns the object
// has no value for stay "". The row is complete when this returns; nested
// members never write back into it.
func (e *Engine) materialize(tbl *schema.Table, id uint64, parent link, seq int, obj value.Value) schema.Row {
	row := tbl.NewRow(id)
	e.setParent(tbl, row, parent)
	e.setPosition(tbl, row, seq, schema.SequenceColumn)

	for i := 0; i < obj.Len(); i++ {
		m := obj.Member(i)
		if !m.Value.IsScalar() {
			continue
		}
		col, ok := tbl.SourceColumn(m.Key)
		if !ok {
			e.push(segment{key: m.Key, index: -1})
			e.warn(diag.ExtraKey, tbl.Name, fmt.Sprintf("key %q has no column; value dropped", m.Key))
			e.pop()
			continue
		}
		row.Values[col] = m.Value.Text()
	}
	return row
}

// materializeItem builds the junction row for the scalar element at index.
func (e *Engine) materializeItem(tbl *schema.Table, id uint64, parent link, index int, item value.Value) schema.Row {
	row := tbl.NewRow(id)
	e.setParent(tbl, row, parent)
	e.setPosition(tbl, row, index, schema.ItemIndexColumn)
	if col, ok := tbl.Column(schema.ValueColumn); ok {
		row.Values[col] = item.Text()
	}
	return row
}

func (e *Engine) setParent(tbl *schema.Table, row schema.Row, parent link) {
	if parent.table == "" {
		return
	}
	col, ok := tbl.ForeignKey()
	if !ok || tbl.Columns[col].References != parent.table {
		e.warn(diag.MissingColumn, tbl.Name,
			fmt.Sprintf("no foreign key column to %s; link dropped", parent.table))
		return
	}
	row.Values[col] = strconv.FormatUint(parent.id, 10)
}

func (e *Engine) setPosition(tbl *schema.Table, row schema.Row, pos int, name string) {
	if pos < 0 {
		return
	}
	col, ok := tbl.SequenceColumn()
	if !ok {
		e.warn(diag.MissingColumn, tbl.Name, fmt.Sprintf("no %s column; position dropped", name))
		return
	}
	row.Values[col] = strconv.Itoa(pos)
}
