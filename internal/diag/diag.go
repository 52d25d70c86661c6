// Package diag collects the non-fatal conditions met while converting a
// document. Fatal conditions are returned as errors instead.
package diag

import (
	"fmt"
	"strings"
)

// Warning codes.
const (
	// ExtraKey: an object reached a reused table with a key the table has no column for.
	ExtraKey = "W001"
	// NonObjectElement: an object array held an element that is not an object.
	NonObjectElement = "W002"
	// NonScalarElement: a scalar array held an object or array element.
	NonScalarElement = "W003"
	// ShapeConflict: a table name was reached as both an object table and a junction table.
	ShapeConflict = "W004"
	// MissingColumn: a row carried a value for a key or sequence column its table lacks.
	MissingColumn = "W005"
)

// Diagnostic is a single recorded condition.
type Diagnostic struct {
	// Code identifies the kind of condition.
	Code string
	// Message is the human-readable description.
	Message string
	// Table is the table involved, if any.
	Table string
	// Path is the JSON path of the value involved, if any.
	Path string
	// Count is how many times the condition occurred; at least 1.
	Count int
}

// String returns a formatted diagnostic line.
func (d Diagnostic) String() string {
	var prefix []string
	if d.Table != "" {
		prefix = append(prefix, "["+d.Table+"]")
	}
	if d.Path != "" {
		prefix = append(prefix, d.Path)
	}

	msg := d.Message
	if d.Code != "" {
		msg = fmt.Sprintf("[%s] %s", d.Code, msg)
	}
	if d.Count > 1 {
		msg = fmt.Sprintf("%s (x%d)", msg, d.Count)
	}

	if len(prefix) > 0 {
		return strings.Join(prefix, " ") + ": " + msg
	}
	return msg
}

// Diagnostics is an ordered set of warnings. The zero value is ready to use.
//
// Warnings with the same code, table and message are folded into a single
// entry whose Count grows; the first occurrence's path is kept.
type Diagnostics struct {
	Warnings []Diagnostic
	index    map[string]int
}

// AddWarning records a warning and reports whether it is the first of its kind.
func (d *Diagnostics) AddWarning(code, message, table, path string) bool {
	return d.add(Diagnostic{Code: code, Message: message, Table: table, Path: path, Count: 1})
}

func (d *Diagnostics) add(w Diagnostic) bool {
	key := w.Code + "\x00" + w.Table + "\x00" + w.Message
	if i, ok := d.index[key]; ok {
		d.Warnings[i].Count += w.Count
		return false
	}
	if d.index == nil {
		d.index = make(map[string]int)
	}
	d.index[key] = len(d.Warnings)
	d.Warnings = append(d.Warnings, w)
	return true
}

// HasWarnings returns true if any warning was recorded.
func (d *Diagnostics) HasWarnings() bool {
	return len(d.Warnings) > 0
}

// Count returns the number of occurrences recorded under code, or under all
// codes when code is empty.
func (d *Diagnostics) Count(code string) int {
	n := 0
	for _, w := range d.Warnings {
		if code == "" || w.Code == code {
			n += w.Count
		}
	}
	return n
}

// Merge appends other's warnings, folding duplicates.
func (d *Diagnostics) Merge(other *Diagnostics) {
	if other == nil {
		return
	}
	for _, w := range other.Warnings {
		d.add(w)
	}
}
