package tensor

import (
	"slices"

	"github.com/hupe1980/embfuse/internal/math32"
)

// Add returns a + b. Shapes must be identical.
func Add(a, b *Dense) (*Dense, error) {
	if !slices.Equal(a.shape, b.shape) {
		return nil, shapeErr("add %v and %v", a.shape, b.shape)
	}
	out := Zeros(a.shape...)
	math32.Add(out.data, a.data, b.data)
	return out, nil
}

// Concat joins a and b along the last axis. Leading axes must agree.
func Concat(a, b *Dense) (*Dense, error) {
	if !SameLeading(a.shape, b.shape) {
		return nil, shapeErr("concat %v and %v", a.shape, b.shape)
	}
	da, db := a.LastDim(), b.LastDim()
	out := Zeros(WithLast(a.shape[:len(a.shape)-1], da+db)...)
	for r := 0; r < a.Rows(); r++ {
		dst := out.Row(r)
		copy(dst[:da], a.Row(r))
		copy(dst[da:], b.Row(r))
	}
	return out, nil
}

// Split cuts t along the last axis into [:at] and [at:].
func Split(t *Dense, at int) (*Dense, *Dense, error) {
	d := t.LastDim()
	if at <= 0 || at >= d {
		return nil, nil, shapeErr("split %v at %d", t.shape, at)
	}
	lead := t.shape[:len(t.shape)-1]
	left := Zeros(WithLast(lead, at)...)
	right := Zeros(WithLast(lead, d-at)...)
	for r := 0; r < t.Rows(); r++ {
		row := t.Row(r)
		copy(left.Row(r), row[:at])
		copy(right.Row(r), row[at:])
	}
	return left, right, nil
}
