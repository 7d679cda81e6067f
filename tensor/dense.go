package tensor

import (
	"fmt"
	"slices"
	"strings"
)

// Dense is a contiguous row-major float32 tensor.
type Dense struct {
	shape []int
	data  []float32
}

// Zeros allocates a zero-filled tensor. It panics on an invalid shape.
func Zeros(shape ...int) *Dense {
	if !IsValidShape(shape) {
		panic(fmt.Sprintf("tensor: invalid shape %v", shape))
	}
	return &Dense{shape: slices.Clone(shape), data: make([]float32, Numel(shape))}
}

// FromSlice wraps data (without copying) in a tensor of the given shape.
func FromSlice(data []float32, shape ...int) (*Dense, error) {
	if !IsValidShape(shape) {
		return nil, shapeErr("invalid shape %v", shape)
	}
	if Numel(shape) != len(data) {
		return nil, shapeErr("%d elements do not fit shape %v", len(data), shape)
	}
	return &Dense{shape: slices.Clone(shape), data: data}, nil
}

// FromRows builds a rank-2 tensor from equally sized rows.
func FromRows(rows [][]float32) (*Dense, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, shapeErr("empty rows")
	}
	dim := len(rows[0])
	data := make([]float32, 0, len(rows)*dim)
	for i, r := range rows {
		if len(r) != dim {
			return nil, shapeErr("row %d has %d values, want %d", i, len(r), dim)
		}
		data = append(data, r...)
	}
	return &Dense{shape: []int{len(rows), dim}, data: data}, nil
}

// Shape returns a copy of the tensor shape.
func (t *Dense) Shape() []int { return slices.Clone(t.shape) }

// Rank returns the number of axes.
func (t *Dense) Rank() int { return len(t.shape) }

// Dim returns the size of axis i.
func (t *Dense) Dim(i int) int { return t.shape[i] }

// Size returns the number of elements.
func (t *Dense) Size() int { return len(t.data) }

// LastDim returns the size of the trailing (feature) axis.
func (t *Dense) LastDim() int { return t.shape[len(t.shape)-1] }

// Rows returns the number of trailing-axis vectors.
func (t *Dense) Rows() int { return len(t.data) / t.LastDim() }

// Data returns the backing slice. Mutating it mutates the tensor.
func (t *Dense) Data() []float32 { return t.data }

// Row returns a view of the i-th trailing-axis vector.
func (t *Dense) Row(i int) []float32 {
	d := t.LastDim()
	return t.data[i*d : (i+1)*d : (i+1)*d]
}

// Clone returns a deep copy.
func (t *Dense) Clone() *Dense {
	return &Dense{shape: slices.Clone(t.shape), data: slices.Clone(t.data)}
}

// Reshape returns a view sharing storage with a new shape.
func (t *Dense) Reshape(shape ...int) (*Dense, error) {
	if !IsValidShape(shape) || Numel(shape) != len(t.data) {
		return nil, shapeErr("cannot reshape %v to %v", t.shape, shape)
	}
	return &Dense{shape: slices.Clone(shape), data: t.data}, nil
}

// Equal reports whether t and o have identical shapes and values.
func (t *Dense) Equal(o *Dense) bool {
	return slices.Equal(t.shape, o.shape) && slices.Equal(t.data, o.data)
}

// Gather selects sub-tensors along axis 0.
func (t *Dense) Gather(index []int) (*Dense, error) {
	stride := len(t.data) / t.shape[0]
	shape := slices.Clone(t.shape)
	shape[0] = len(index)
	if !IsValidShape(shape) {
		return nil, shapeErr("empty gather")
	}
	out := make([]float32, 0, len(index)*stride)
	for _, i := range index {
		if i < 0 || i >= t.shape[0] {
			return nil, &IndexError{Index: int64(i), Size: t.shape[0]}
		}
		out = append(out, t.data[i*stride:(i+1)*stride]...)
	}
	return &Dense{shape: shape, data: out}, nil
}

func (t *Dense) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Dense%v[", t.shape)
	const limit = 8
	for i, v := range t.data {
		if i == limit {
			sb.WriteString(" ...")
			break
		}
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%g", v)
	}
	sb.WriteByte(']')
	return sb.String()
}
