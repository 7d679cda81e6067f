package nn

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/hupe1980/embfuse/internal/math32"
	"github.com/hupe1980/embfuse/tensor"
)

var _ Projection = (*Linear)(nil)

// Linear is the CPU affine projection y = W x + b with W stored row-major as
// (out, in).
type Linear struct {
	weight *Parameter
	bias   *Parameter
	in     int
	out    int
}

// NewLinear allocates an in -> out projection with weights and bias drawn
// from U(-1/sqrt(in), 1/sqrt(in)).
func NewLinear(name string, in, out int, rng *rand.Rand) (*Linear, error) {
	if in <= 0 || out <= 0 {
		return nil, fmt.Errorf("nn: invalid linear size %d -> %d", in, out)
	}
	bound := float32(1 / math.Sqrt(float64(in)))
	uniform := func(t *tensor.Dense) {
		data := t.Data()
		for i := range data {
			data[i] = bound * (2*rng.Float32() - 1)
		}
	}

	w := tensor.Zeros(out, in)
	b := tensor.Zeros(out)
	uniform(w)
	uniform(b)

	return &Linear{
		weight: NewParameter(name+".weight", w),
		bias:   NewParameter(name+".bias", b),
		in:     in,
		out:    out,
	}, nil
}

// Forward implements Projection.
func (l *Linear) Forward(x *tensor.Dense) (*tensor.Dense, error) {
	if x.LastDim() != l.in {
		return nil, fmt.Errorf("%w: linear expects trailing dim %d, got %v", tensor.ErrShape, l.in, x.Shape())
	}
	shape := x.Shape()
	y := tensor.Zeros(tensor.WithLast(shape[:len(shape)-1], l.out)...)
	w := l.weight.Value
	b := l.bias.Value.Data()
	for r := 0; r < x.Rows(); r++ {
		xr, yr := x.Row(r), y.Row(r)
		for o := range yr {
			yr[o] = math32.Dot(w.Row(o), xr) + b[o]
		}
	}
	return y, nil
}

// Backward implements Projection.
func (l *Linear) Backward(x, grad *tensor.Dense) (*tensor.Dense, error) {
	if x.LastDim() != l.in || grad.LastDim() != l.out || x.Rows() != grad.Rows() {
		return nil, fmt.Errorf("%w: linear backward x=%v grad=%v", tensor.ErrShape, x.Shape(), grad.Shape())
	}
	dx := tensor.Zeros(x.Shape()...)
	w := l.weight.Value
	for r := 0; r < x.Rows(); r++ {
		xr, gr, dxr := x.Row(r), grad.Row(r), dx.Row(r)
		for o, g := range gr {
			if g == 0 {
				continue
			}
			l.weight.AccumulateRow(o, scaled(xr, g))
			math32.Axpy(g, w.Row(o), dxr)
		}
		l.bias.Accumulate(gr)
	}
	return dx, nil
}

// Parameters implements Projection.
func (l *Linear) Parameters() []*Parameter { return []*Parameter{l.weight, l.bias} }

// InDim implements Projection.
func (l *Linear) InDim() int { return l.in }

// OutDim implements Projection.
func (l *Linear) OutDim() int { return l.out }

// Weight returns the (out, in) weight parameter.
func (l *Linear) Weight() *Parameter { return l.weight }

// Bias returns the bias parameter.
func (l *Linear) Bias() *Parameter { return l.bias }

func scaled(v []float32, s float32) []float32 {
	out := make([]float32, len(v))
	math32.Axpy(s, v, out)
	return out
}
