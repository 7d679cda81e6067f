package nn

import (
	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/embfuse/internal/math32"
	"github.com/hupe1980/embfuse/tensor"
)

// Parameter is a tensor with a gradient buffer.
//
// Row-sparse parameters (lookup tables) track which rows hold a non-zero
// gradient so optimizers and ZeroGrad only visit those rows.
type Parameter struct {
	Name  string
	Value *tensor.Dense
	Grad  *tensor.Dense

	requiresGrad bool
	dirty        *roaring.Bitmap // nil for dense parameters
}

// NewParameter wraps value as a trainable dense parameter.
func NewParameter(name string, value *tensor.Dense) *Parameter {
	return &Parameter{
		Name:         name,
		Value:        value,
		Grad:         tensor.Zeros(value.Shape()...),
		requiresGrad: true,
	}
}

// NewRowSparseParameter wraps a rank-2 value whose gradients arrive per row.
func NewRowSparseParameter(name string, value *tensor.Dense) *Parameter {
	p := NewParameter(name, value)
	p.dirty = roaring.New()
	return p
}

// RequiresGrad reports whether the parameter is trainable.
func (p *Parameter) RequiresGrad() bool { return p.requiresGrad }

// SetRequiresGrad freezes (false) or unfreezes (true) the parameter.
// Freezing discards any pending gradient.
func (p *Parameter) SetRequiresGrad(v bool) {
	if !v {
		p.ZeroGrad()
	}
	p.requiresGrad = v
}

// RowSparse reports whether gradients are tracked per row.
func (p *Parameter) RowSparse() bool { return p.dirty != nil }

// DirtyRows returns the number of rows holding a pending gradient.
func (p *Parameter) DirtyRows() int {
	if p.dirty == nil {
		return 0
	}
	return int(p.dirty.GetCardinality())
}

// Replace swaps the parameter's value and resets its gradient.
func (p *Parameter) Replace(value *tensor.Dense) {
	p.Value = value
	p.Grad = tensor.Zeros(value.Shape()...)
	if p.dirty != nil {
		p.dirty.Clear()
	}
}

// AccumulateRow adds g to the gradient of row i.
func (p *Parameter) AccumulateRow(i int, g []float32) {
	if !p.requiresGrad {
		return
	}
	math32.AddInPlace(p.Grad.Row(i), g)
	if p.dirty != nil {
		p.dirty.Add(uint32(i))
	}
}

// Accumulate adds g to the whole gradient buffer.
func (p *Parameter) Accumulate(g []float32) {
	if !p.requiresGrad {
		return
	}
	math32.AddInPlace(p.Grad.Data(), g)
}

// ForEachRow calls fn for each row that must be visited by an optimizer:
// dirty rows for row-sparse parameters, every row otherwise.
func (p *Parameter) ForEachRow(fn func(row int)) {
	if p.dirty != nil {
		p.dirty.Iterate(func(x uint32) bool {
			fn(int(x))
			return true
		})
		return
	}
	for r := 0; r < p.Value.Rows(); r++ {
		fn(r)
	}
}

// ZeroGrad clears the gradient buffer.
func (p *Parameter) ZeroGrad() {
	if p.dirty == nil {
		math32.Zero(p.Grad.Data())
		return
	}
	p.dirty.Iterate(func(x uint32) bool {
		math32.Zero(p.Grad.Row(int(x)))
		return true
	})
	p.dirty.Clear()
}
