package tensor

import (
	"slices"
)

// IDs is a contiguous row-major tensor of integer feature IDs.
type IDs struct {
	shape []int
	data  []int64
}

// NewIDs wraps data (without copying). With no shape, the tensor is 1-D.
func NewIDs(data []int64, shape ...int) (*IDs, error) {
	if len(shape) == 0 {
		shape = []int{len(data)}
	}
	if !IsValidShape(shape) {
		return nil, shapeErr("invalid shape %v", shape)
	}
	if Numel(shape) != len(data) {
		return nil, shapeErr("%d ids do not fit shape %v", len(data), shape)
	}
	return &IDs{shape: slices.Clone(shape), data: data}, nil
}

// MustIDs is like NewIDs but panics on error. Intended for tests and literals.
func MustIDs(data []int64, shape ...int) *IDs {
	ids, err := NewIDs(data, shape...)
	if err != nil {
		panic(err)
	}
	return ids
}

// Shape returns a copy of the tensor shape.
func (t *IDs) Shape() []int { return slices.Clone(t.shape) }

// Rank returns the number of axes.
func (t *IDs) Rank() int { return len(t.shape) }

// Size returns the number of IDs.
func (t *IDs) Size() int { return len(t.data) }

// Data returns the backing slice.
func (t *IDs) Data() []int64 { return t.data }

// Gather selects sub-tensors along axis 0.
func (t *IDs) Gather(index []int) (*IDs, error) {
	stride := len(t.data) / t.shape[0]
	shape := slices.Clone(t.shape)
	shape[0] = len(index)
	if !IsValidShape(shape) {
		return nil, shapeErr("empty gather")
	}
	out := make([]int64, 0, len(index)*stride)
	for _, i := range index {
		if i < 0 || i >= t.shape[0] {
			return nil, &IndexError{Index: int64(i), Size: t.shape[0]}
		}
		out = append(out, t.data[i*stride:(i+1)*stride]...)
	}
	return &IDs{shape: shape, data: out}, nil
}
