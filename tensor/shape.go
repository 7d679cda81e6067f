package tensor

import "slices"

// IsValidShape reports whether shape has rank >= 1 and only positive dims.
func IsValidShape(shape []int) bool {
	if len(shape) == 0 {
		return false
	}
	for _, d := range shape {
		if d <= 0 {
			return false
		}
	}
	return true
}

// Numel returns the number of elements of shape.
func Numel(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

// WithLast returns a copy of shape with dim appended as a new trailing axis.
func WithLast(shape []int, dim int) []int {
	out := make([]int, len(shape), len(shape)+1)
	copy(out, shape)
	return append(out, dim)
}

// SameLeading reports whether a and b agree on every axis but the last.
func SameLeading(a, b []int) bool {
	if len(a) != len(b) || len(a) == 0 {
		return false
	}
	return slices.Equal(a[:len(a)-1], b[:len(b)-1])
}
