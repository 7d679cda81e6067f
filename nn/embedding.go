package nn

import (
	"fmt"
	"math/rand"
	"slices"

	"github.com/hupe1980/embfuse/tensor"
)

var _ Lookup = (*Embedding)(nil)

// Embedding is the CPU lookup table.
type Embedding struct {
	weight     *Parameter
	dim        int
	paddingIdx int // -1 when unset
}

// NewEmbedding allocates a (vocab, dim) table initialized from N(0, 1).
// The padding row, if any, starts at zero.
func NewEmbedding(name string, vocab, dim int, paddingIdx *int, rng *rand.Rand) (*Embedding, error) {
	if vocab <= 0 || dim <= 0 {
		return nil, fmt.Errorf("nn: invalid embedding size (%d, %d)", vocab, dim)
	}
	pad := -1
	if paddingIdx != nil {
		if *paddingIdx < 0 || *paddingIdx >= vocab {
			return nil, fmt.Errorf("nn: padding_idx %d out of range [0, %d)", *paddingIdx, vocab)
		}
		pad = *paddingIdx
	}

	w := tensor.Zeros(vocab, dim)
	data := w.Data()
	for i := range data {
		data[i] = float32(rng.NormFloat64())
	}
	if pad >= 0 {
		clear(w.Row(pad))
	}

	return &Embedding{
		weight:     NewRowSparseParameter(name, w),
		dim:        dim,
		paddingIdx: pad,
	}, nil
}

// Forward implements Lookup.
func (e *Embedding) Forward(ids *tensor.IDs) (*tensor.Dense, error) {
	w := e.weight.Value
	vocab := w.Dim(0)

	out := tensor.Zeros(tensor.WithLast(ids.Shape(), e.dim)...)
	for i, id := range ids.Data() {
		if id < 0 || id >= int64(vocab) {
			return nil, &tensor.IndexError{Index: id, Size: vocab}
		}
		copy(out.Row(i), w.Row(int(id)))
	}
	return out, nil
}

// Backward implements Lookup.
func (e *Embedding) Backward(ids *tensor.IDs, grad *tensor.Dense) error {
	if !e.weight.RequiresGrad() {
		return nil
	}
	if !slices.Equal(grad.Shape(), tensor.WithLast(ids.Shape(), e.dim)) {
		return fmt.Errorf("%w: embedding grad %v for ids %v", tensor.ErrShape, grad.Shape(), ids.Shape())
	}
	vocab := e.weight.Value.Dim(0)
	for i, id := range ids.Data() {
		if id < 0 || id >= int64(vocab) {
			return &tensor.IndexError{Index: id, Size: vocab}
		}
		if int(id) == e.paddingIdx {
			continue
		}
		e.weight.AccumulateRow(int(id), grad.Row(i))
	}
	return nil
}

// Load implements Lookup.
func (e *Embedding) Load(weights *tensor.Dense) error {
	if weights.Rank() != 2 || weights.LastDim() != e.dim {
		return fmt.Errorf("%w: cannot load %v into embedding of width %d", tensor.ErrShape, weights.Shape(), e.dim)
	}
	if e.paddingIdx >= weights.Dim(0) {
		return fmt.Errorf("%w: padding_idx %d outside %d loaded rows", tensor.ErrShape, e.paddingIdx, weights.Dim(0))
	}
	e.weight.Replace(weights)
	return nil
}

// Weight implements Lookup.
func (e *Embedding) Weight() *Parameter { return e.weight }

// Dim implements Lookup.
func (e *Embedding) Dim() int { return e.dim }

// PaddingIdx implements Lookup.
func (e *Embedding) PaddingIdx() (int, bool) { return e.paddingIdx, e.paddingIdx >= 0 }
