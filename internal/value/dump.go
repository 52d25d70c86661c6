package value

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

// Dump writes v to w as indented pseudo-JSON, two spaces per level.
// Strings are quoted with Go escaping and numbers use their canonical text.
func Dump(w io.Writer, v Value) error {
	bw := bufio.NewWriter(w)
	dump(bw, v, 0)
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}
	return bw.Flush()
}

func dump(w *bufio.Writer, v Value, depth int) {
	switch v.kind {
	case Null:
		_, _ = w.WriteString("null")
	case String:
		_, _ = w.WriteString(strconv.Quote(v.s))
	case Bool, Number:
		_, _ = w.WriteString(v.Text())
	case Object:
		if len(v.members) == 0 {
			_, _ = w.WriteString("{}")
			return
		}
		_, _ = w.WriteString("{\n")
		for i, m := range v.members {
			indent(w, depth+1)
			_, _ = w.WriteString(strconv.Quote(m.Key))
			_, _ = w.WriteString(": ")
			dump(w, m.Value, depth+1)
			if i < len(v.members)-1 {
				_ = w.WriteByte(',')
			}
			_ = w.WriteByte('\n')
		}
		indent(w, depth)
		_ = w.WriteByte('}')
	case Array:
		if len(v.items) == 0 {
			_, _ = w.WriteString("[]")
			return
		}
		_, _ = w.WriteString("[\n")
		for i, it := range v.items {
			indent(w, depth+1)
			dump(w, it, depth+1)
			if i < len(v.items)-1 {
				_ = w.WriteByte(',')
			}
			_ = w.WriteByte('\n')
		}
		indent(w, depth)
		_ = w.WriteByte(']')
	}
}

func indent(w *bufio.Writer, depth int) {
	_, _ = w.WriteString(strings.Repeat("  ", depth))
}
