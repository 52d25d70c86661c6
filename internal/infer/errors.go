package infer

import (
	"errors"
	"fmt"

	"github.com/tordrt/json2relcsv/internal/value"
)

var (
	// ErrMalformedKey is returned for an object key that cannot name a column.
	ErrMalformedKey = errors.New("malformed object key")
	// ErrUnsupportedRoot is returned when the document root is a scalar or null.
	ErrUnsupportedRoot = errors.New("document root must be an object or an array")
	// ErrDepthExceeded is returned when the tree nests deeper than Options.MaxDepth.
	ErrDepthExceeded = value.ErrDepthExceeded
)

// PathError records the location in the document of a fatal error.
type PathError struct {
	Path string
	Err  error
}

func (e *PathError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *PathError) Unwrap() error { return e.Err }
