// Package infer walks a value tree and builds the relational model: one
// table per name path, globally unique row ids and backward foreign keys
// from every child row to the row it was found in.
package infer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tordrt/json2relcsv/internal/diag"
	"github.com/tordrt/json2relcsv/internal/schema"
	"github.com/tordrt/json2relcsv/internal/value"
)

const (
	// DefaultMaxDepth bounds container nesting when Options.MaxDepth is unset.
	DefaultMaxDepth = 512

	// RootTable names the table of the document root object.
	RootTable = "root"
	// RootArrayKey is the key used to name the table of a top-level array.
	RootArrayKey = "items"
)

// Options configures a conversion.
type Options struct {
	// MaxDepth is the deepest allowed object/array nesting, root being 1.
	MaxDepth int
	// BareRootNames names children of the root table after their key alone
	// ("genres" instead of "root_genres").
	BareRootNames bool
	// Logger receives table creation at debug level and warnings. Nil
	// discards everything.
	Logger *slog.Logger
}

// Result is a finished model together with the warnings raised building it.
type Result struct {
	Schema      *schema.Schema
	Diagnostics diag.Diagnostics
}

// link identifies the row a child row points back to. A zero link means
// the child has no parent row.
type link struct {
	table string
	id    uint64
}

// Engine performs one conversion. It is not safe for concurrent use.
type Engine struct {
	opts  Options
	log   *slog.Logger
	reg   *schema.Registry
	ids   schema.IDAllocator
	diags diag.Diagnostics
	path  path
}

// New creates an engine. Each Run starts from an empty model.
func New(opts Options) *Engine {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Engine{opts: opts, log: log}
}

// Run converts a whole document. On error no model is returned.
func Run(root value.Value, opts Options) (*Result, error) {
	return New(opts).Run(root)
}

// Run converts root into a model. The root must be an object or an array;
// a top-level array is treated as the "items" member of an absent root row.
func (e *Engine) Run(root value.Value) (*Result, error) {
	e.reg = schema.NewRegistry()
	e.ids = schema.IDAllocator{}
	e.diags = diag.Diagnostics{}
	e.path = e.path[:0]

	var err error
	switch root.Kind() {
	case value.Object:
		_, err = e.visitObject(root, RootTable, link{}, -1, 1)
	case value.Array:
		err = e.visitArray(root, e.childName(RootTable, RootArrayKey), link{}, 1)
	default:
		err = &PathError{Path: "$", Err: fmt.Errorf("%w, got %s", ErrUnsupportedRoot, root.Kind())}
	}
	if err != nil {
		return nil, err
	}

	model := e.reg.Schema()
	if err := model.Verify(); err != nil {
		return nil, fmt.Errorf("failed to verify model: %w", err)
	}

	e.log.Debug("model built",
		"tables", len(model.Tables),
		"rows", model.RowCount(),
		"warnings", e.diags.Count(""))

	return &Result{Schema: model, Diagnostics: e.diags}, nil
}

// visitObject creates the row for obj in table name and recurses into its
// nested members. seq is the array position of obj, or -1 when obj is not an
// array element. It returns the new row id, or 0 if obj was skipped.
func (e *Engine) visitObject(obj value.Value, name string, parent link, seq, depth int) (uint64, error) {
	if depth > e.opts.MaxDepth {
		return 0, e.fail(fmt.Errorf("%w (limit %d)", ErrDepthExceeded, e.opts.MaxDepth))
	}

	scalarKeys := make([]string, 0, obj.Len())
	for i := 0; i < obj.Len(); i++ {
		m := obj.Member(i)
		if m.Key == "" {
			e.push(segment{key: m.Key, index: -1})
			return 0, e.fail(fmt.Errorf("%w: empty key", ErrMalformedKey))
		}
		if m.Value.IsScalar() {
			scalarKeys = append(scalarKeys, m.Key)
		}
	}

	tbl, ok := e.reg.Resolve(name)
	if !ok {
		var err error
		tbl, err = e.reg.Create(name, parent.table, seq >= 0, scalarKeys)
		if err != nil {
			return 0, e.fail(fmt.Errorf("failed to create table: %w", err))
		}
		e.log.Debug("table created", "table", name, "parent", parent.table, "columns", len(tbl.Columns))
	} else if tbl.Kind != schema.ObjectTable {
		e.warn(diag.ShapeConflict, tbl.Name,
			fmt.Sprintf("object reached %s table; subtree skipped", tbl.Kind))
		return 0, nil
	}

	id := e.ids.Next()
	row := e.materialize(tbl, id, parent, seq, obj)
	self := link{table: name, id: id}

	for i := 0; i < obj.Len(); i++ {
		m := obj.Member(i)
		if m.Value.IsScalar() {
			continue
		}

		e.push(segment{key: m.Key, index: -1})
		child := e.childName(name, m.Key)
		var err error
		if m.Value.Kind() == value.Object {
			_, err = e.visitObject(m.Value, child, self, -1, depth+1)
		} else {
			err = e.visitArray(m.Value, child, self, depth+1)
		}
		if err != nil {
			return 0, err
		}
		e.pop()
	}

	if err := tbl.Append(row); err != nil {
		return 0, e.fail(err)
	}
	return id, nil
}

// visitArray emits the elements of arr into table name. The first element
// decides the table shape: objects make an object table with a seq column,
// anything else a junction table of scalar values.
func (e *Engine) visitArray(arr value.Value, name string, parent link, depth int) error {
	if depth > e.opts.MaxDepth {
		return e.fail(fmt.Errorf("%w (limit %d)", ErrDepthExceeded, e.opts.MaxDepth))
	}
	if arr.Len() == 0 {
		return nil
	}

	if arr.Item(0).Kind() != value.Object {
		return e.visitScalarArray(arr, name, parent)
	}

	for i, item := range arr.Items() {
		e.push(segment{index: i})
		if item.Kind() != value.Object {
			e.warn(diag.NonObjectElement, name,
				fmt.Sprintf("%s element in object array skipped", item.Kind()))
		} else if _, err := e.visitObject(item, name, parent, i, depth+1); err != nil {
			return err
		}
		e.pop()
	}
	return nil
}

func (e *Engine) visitScalarArray(arr value.Value, name string, parent link) error {
	tbl, ok := e.reg.Resolve(name)
	if !ok {
		var err error
		tbl, err = e.reg.CreateJunction(name, parent.table)
		if err != nil {
			return e.fail(fmt.Errorf("failed to create table: %w", err))
		}
		e.log.Debug("junction table created", "table", name, "parent", parent.table)
	} else if tbl.Kind != schema.JunctionTable {
		e.warn(diag.ShapeConflict, tbl.Name,
			fmt.Sprintf("scalar array reached %s table; array skipped", tbl.Kind))
		return nil
	}

	for i, item := range arr.Items() {
		e.push(segment{index: i})
		if !item.IsScalar() {
			e.warn(diag.NonScalarElement, name,
				fmt.Sprintf("%s element in scalar array skipped", item.Kind()))
			e.pop()
			continue
		}

		row := e.materializeItem(tbl, e.ids.Next(), parent, i, item)
		if err := tbl.Append(row); err != nil {
			return e.fail(err)
		}
		e.pop()
	}
	return nil
}

// childName names the table of key under table. A bare child named like
// the root table keeps its prefix.
func (e *Engine) childName(table, key string) string {
	if e.opts.BareRootNames && table == RootTable && key != RootTable {
		return key
	}
	return schema.ChildName(table, key)
}

func (e *Engine) push(s segment) { e.path = append(e.path, s) }

func (e *Engine) pop() { e.path = e.path[:len(e.path)-1] }

func (e *Engine) fail(err error) error {
	return &PathError{Path: e.path.String(), Err: err}
}

// warn records a warning at the current path. The first occurrence of each
// warning is logged at warn level, repeats at debug level.
func (e *Engine) warn(code, table, msg string) {
	p := e.path.String()
	level := slog.LevelDebug
	if e.diags.AddWarning(code, msg, table, p) {
		level = slog.LevelWarn
	}
	e.log.Log(context.Background(), level, msg, "code", code, "table", table, "path", p)
}
