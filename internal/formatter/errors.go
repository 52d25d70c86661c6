package formatter

import (
	"errors"
	"fmt"
)

// ErrFileNameCollision is returned when two tables map to the same output file
var ErrFileNameCollision = errors.New("tables map to the same file name")

// IOError is an output write failure for a specific path
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("failed to write %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }
