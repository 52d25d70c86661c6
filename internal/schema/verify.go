package schema

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrInvalidModel is wrapped by every Verify failure.
var ErrInvalidModel = errors.New("invalid model")

// Verify checks the structural guarantees of a finished model: one primary
// key column first in every table, rows as wide as their table, ids unique
// and exactly 1..N, and every foreign key pointing at an existing parent row
// allocated before the child.
func (s *Schema) Verify() error {
	ids := make(map[uint64]string, s.RowCount())
	tables := make(map[string]*Table, len(s.Tables))

	for _, t := range s.Tables {
		if len(t.Columns) == 0 || t.Columns[0].Kind != PrimaryKey {
			return fmt.Errorf("%w: table %s: first column is not the primary key", ErrInvalidModel, t.Name)
		}
		for _, c := range t.Columns[1:] {
			if c.Kind == PrimaryKey {
				return fmt.Errorf("%w: table %s: more than one primary key column", ErrInvalidModel, t.Name)
			}
		}
		for _, row := range t.Rows {
			if len(row.Values) != len(t.Columns) {
				return fmt.Errorf("%w: table %s: row %d has %d values, want %d",
					ErrInvalidModel, t.Name, row.ID, len(row.Values), len(t.Columns))
			}
			if row.Values[0] != strconv.FormatUint(row.ID, 10) {
				return fmt.Errorf("%w: table %s: row %d has id column %q", ErrInvalidModel, t.Name, row.ID, row.Values[0])
			}
			if other, dup := ids[row.ID]; dup {
				return fmt.Errorf("%w: id %d used by %s and %s", ErrInvalidModel, row.ID, other, t.Name)
			}
			ids[row.ID] = t.Name
		}
		tables[t.Name] = t
	}

	for id := uint64(1); id <= uint64(len(ids)); id++ {
		if _, ok := ids[id]; !ok {
			return fmt.Errorf("%w: ids are not contiguous, %d is missing", ErrInvalidModel, id)
		}
	}

	for _, t := range s.Tables {
		for ci, c := range t.Columns {
			if c.Kind != ForeignKey {
				continue
			}
			if _, ok := tables[c.References]; !ok {
				return fmt.Errorf("%w: table %s: %s references unknown table %s",
					ErrInvalidModel, t.Name, c.Name, c.References)
			}
			for _, row := range t.Rows {
				raw := row.Values[ci]
				if raw == "" {
					continue
				}
				ref, err := strconv.ParseUint(raw, 10, 64)
				if err != nil {
					return fmt.Errorf("%w: table %s: row %d: bad %s %q", ErrInvalidModel, t.Name, row.ID, c.Name, raw)
				}
				if ids[ref] != c.References {
					return fmt.Errorf("%w: table %s: row %d: %s=%d is not a row of %s",
						ErrInvalidModel, t.Name, row.ID, c.Name, ref, c.References)
				}
				if ref >= row.ID {
					return fmt.Errorf("%w: table %s: row %d: parent %d was not allocated first",
						ErrInvalidModel, t.Name, row.ID, ref)
				}
			}
		}
	}

	return nil
}
