package tensor

import (
	"errors"
	"fmt"
)

// ErrShape is returned when tensor shapes are invalid or incompatible.
var ErrShape = errors.New("tensor: shape mismatch")

// IndexError reports a lookup index outside [0, Size).
type IndexError struct {
	Index int64
	Size  int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("tensor: index %d out of range [0, %d)", e.Index, e.Size)
}

func shapeErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrShape, fmt.Sprintf(format, args...))
}
