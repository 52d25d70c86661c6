// Package value holds the immutable document tree that the converter walks.
//
// A Value is one of null, bool, number, string, object or array. Objects keep
// their members in input order. Containers never expose their backing slices,
// so a tree built by the parser cannot be changed by the code that reads it.
package value

import (
	"errors"
	"iter"
	"math"
	"strconv"
)

// ErrDepthExceeded is returned when a document nests deeper than the
// configured maximum. Both the parser and the inference engine use it.
var ErrDepthExceeded = errors.New("maximum nesting depth exceeded")

// Kind identifies the variant held by a Value.
type Kind uint8

const (
	Null Kind = iota
	Bool
	Number
	String
	Object
	Array
)

// String returns the lower-case name of the kind.
func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Bool:
		return "bool"
	case Number:
		return "number"
	case String:
		return "string"
	case Object:
		return "object"
	case Array:
		return "array"
	default:
		return "unknown"
	}
}

// Member is a single key/value pair of an object.
type Member struct {
	Key   string
	Value Value
}

// Value is a node of the document tree. The zero Value is null.
type Value struct {
	kind    Kind
	b       bool
	n       float64
	s       string
	members []Member
	items   []Value
}

// NewNull returns a null value.
func NewNull() Value { return Value{} }

// NewBool returns a boolean value.
func NewBool(b bool) Value { return Value{kind: Bool, b: b} }

// NewNumber returns a numeric value.
func NewNumber(n float64) Value { return Value{kind: Number, n: n} }

// NewString returns a string value.
func NewString(s string) Value { return Value{kind: String, s: s} }

// NewObject returns an object holding a copy of members, in order.
func NewObject(members ...Member) Value {
	m := make([]Member, len(members))
	copy(m, members)
	return Value{kind: Object, members: m}
}

// NewArray returns an array holding a copy of items, in order.
func NewArray(items ...Value) Value {
	it := make([]Value, len(items))
	copy(it, items)
	return Value{kind: Array, items: it}
}

// Kind reports which variant v holds.
func (v Value) Kind() Kind { return v.kind }

// IsScalar reports whether v is null, bool, number or string.
func (v Value) IsScalar() bool { return v.kind != Object && v.kind != Array }

// Bool returns the boolean payload; false for other kinds.
func (v Value) Bool() bool { return v.b }

// Number returns the numeric payload; 0 for other kinds.
func (v Value) Number() float64 { return v.n }

// Str returns the string payload; "" for other kinds.
func (v Value) Str() string { return v.s }

// Len returns the number of members or items of a container, 0 for scalars.
func (v Value) Len() int {
	switch v.kind {
	case Object:
		return len(v.members)
	case Array:
		return len(v.items)
	}
	return 0
}

// Member returns the i-th member of an object.
func (v Value) Member(i int) Member { return v.members[i] }

// Item returns the i-th element of an array.
func (v Value) Item(i int) Value { return v.items[i] }

// Members iterates over object members in input order.
func (v Value) Members() iter.Seq2[string, Value] {
	return func(yield func(string, Value) bool) {
		for _, m := range v.members {
			if !yield(m.Key, m.Value) {
				return
			}
		}
	}
}

// Items iterates over array elements with their positions.
func (v Value) Items() iter.Seq2[int, Value] {
	return func(yield func(int, Value) bool) {
		for i, it := range v.items {
			if !yield(i, it) {
				return
			}
		}
	}
}

// Text returns the canonical text of a scalar: "" for null, "true"/"false"
// for booleans, the shortest round-trippable decimal for numbers and the raw
// text for strings. Containers render as "".
func (v Value) Text() string {
	switch v.kind {
	case Bool:
		if v.b {
			return "true"
		}
		return "false"
	case Number:
		return FormatNumber(v.n)
	case String:
		return v.s
	}
	return ""
}

// FormatNumber renders n the way JSON serializers usually do: fixed notation
// for magnitudes in [1e-6, 1e21), exponent notation otherwise, and always the
// shortest digits that parse back to n.
func FormatNumber(n float64) string {
	if n == 0 {
		return "0"
	}
	abs := math.Abs(n)
	if abs >= 1e-6 && abs < 1e21 {
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
	return strconv.FormatFloat(n, 'g', -1, 64)
}
