// Package parser turns JSON text into a value tree.
//
// It is a thin layer over encoding/json's token stream that keeps object
// members in input order, rejects duplicate keys and reports every failure
// with a line and column.
package parser

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"unicode/utf8"

	"github.com/tordrt/json2relcsv/internal/value"
)

// DefaultMaxDepth bounds container nesting when Options.MaxDepth is unset.
const DefaultMaxDepth = 512

// Options configures parsing.
type Options struct {
	// MaxDepth is the deepest allowed object/array nesting; the document
	// root counts as depth 1. Zero or negative means DefaultMaxDepth.
	MaxDepth int
}

// Error describes malformed input. Line and Column are 1-based; Column
// counts runes, not bytes.
type Error struct {
	Line   int
	Column int
	Msg    string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("parse error at line %d, column %d: %s", e.Line, e.Column, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

type parser struct {
	data     []byte
	dec      *json.Decoder
	maxDepth int
}

// Parse decodes exactly one JSON document from data.
func Parse(data []byte, opts Options) (value.Value, error) {
	maxDepth := opts.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return value.Value{}, &Error{Line: 1, Column: 1, Msg: "empty input"}
	}

	p := &parser{
		data:     data,
		dec:      json.NewDecoder(bytes.NewReader(data)),
		maxDepth: maxDepth,
	}
	p.dec.UseNumber()

	root, err := p.parseValue(1)
	if err != nil {
		return value.Value{}, err
	}

	offset := skipSpace(data, p.dec.InputOffset())
	if _, err := p.dec.Token(); err != io.EOF {
		if err != nil {
			return value.Value{}, p.tokenError(err)
		}
		return value.Value{}, p.errorAt(offset, "unexpected data after top-level value", nil)
	}

	return root, nil
}

func (p *parser) parseValue(depth int) (value.Value, error) {
	start := skipSpace(p.data, p.dec.InputOffset())
	tok, err := p.dec.Token()
	if err != nil {
		return value.Value{}, p.tokenError(err)
	}

	switch t := tok.(type) {
	case json.Delim:
		if depth > p.maxDepth {
			return value.Value{}, p.errorAt(start,
				fmt.Sprintf("nesting deeper than %d levels", p.maxDepth), value.ErrDepthExceeded)
		}
		switch t {
		case '{':
			return p.parseObject(depth)
		case '[':
			return p.parseArray(depth)
		}
		return value.Value{}, p.errorAt(start, fmt.Sprintf("unexpected %q", rune(t)), nil)
	case string:
		return value.NewString(t), nil
	case json.Number:
		n, err := strconv.ParseFloat(t.String(), 64)
		if err != nil {
			return value.Value{}, p.errorAt(start, fmt.Sprintf("number %s out of range", t), nil)
		}
		return value.NewNumber(n), nil
	case bool:
		return value.NewBool(t), nil
	case nil:
		return value.NewNull(), nil
	}

	return value.Value{}, p.errorAt(start, fmt.Sprintf("unexpected token %v", tok), nil)
}

func (p *parser) parseObject(depth int) (value.Value, error) {
	var members []value.Member
	seen := make(map[string]struct{})

	for p.dec.More() {
		keyStart := skipSpace(p.data, p.dec.InputOffset())
		tok, err := p.dec.Token()
		if err != nil {
			return value.Value{}, p.tokenError(err)
		}
		key, ok := tok.(string)
		if !ok {
			return value.Value{}, p.errorAt(keyStart, "object key must be a string", nil)
		}
		if _, dup := seen[key]; dup {
			return value.Value{}, p.errorAt(keyStart, fmt.Sprintf("duplicate key %q", key), nil)
		}
		seen[key] = struct{}{}

		v, err := p.parseValue(depth + 1)
		if err != nil {
			return value.Value{}, err
		}
		members = append(members, value.Member{Key: key, Value: v})
	}

	if _, err := p.dec.Token(); err != nil {
		return value.Value{}, p.tokenError(err)
	}
	return value.NewObject(members...), nil
}

func (p *parser) parseArray(depth int) (value.Value, error) {
	var items []value.Value

	for p.dec.More() {
		v, err := p.parseValue(depth + 1)
		if err != nil {
			return value.Value{}, err
		}
		items = append(items, v)
	}

	if _, err := p.dec.Token(); err != nil {
		return value.Value{}, p.tokenError(err)
	}
	return value.NewArray(items...), nil
}

// tokenError converts a decoder failure into a positioned Error.
func (p *parser) tokenError(err error) error {
	var syn *json.SyntaxError
	if errors.As(err, &syn) {
		return p.errorAt(syn.Offset, syn.Error(), nil)
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return p.errorAt(int64(len(p.data)), "unexpected end of input", nil)
	}
	return p.errorAt(p.dec.InputOffset(), err.Error(), nil)
}

func (p *parser) errorAt(offset int64, msg string, cause error) *Error {
	line, col := Position(p.data, offset)
	return &Error{Line: line, Column: col, Msg: msg, Err: cause}
}

// Position converts a byte offset in data into a 1-based line and column.
func Position(data []byte, offset int64) (line, col int) {
	if offset < 0 {
		offset = 0
	}
	if offset > int64(len(data)) {
		offset = int64(len(data))
	}
	prefix := data[:offset]
	line = bytes.Count(prefix, []byte{'\n'}) + 1
	lineStart := bytes.LastIndexByte(prefix, '\n') + 1
	col = utf8.RuneCount(prefix[lineStart:]) + 1
	return line, col
}

// skipSpace advances offset past whitespace and the separators the decoder
// consumes implicitly, so positions point at the next token.
func skipSpace(data []byte, offset int64) int64 {
	for offset < int64(len(data)) {
		switch data[offset] {
		case ' ', '\t', '\r', '\n', ',', ':':
			offset++
		default:
			return offset
		}
	}
	return offset
}
