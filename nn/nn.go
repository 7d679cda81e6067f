package nn

import "github.com/hupe1980/embfuse/tensor"

// Lookup is an embedding table of shape (vocab, dim) indexed by feature ID.
type Lookup interface {
	// Forward gathers one row per ID. The output shape is ids.Shape() + [Dim()].
	Forward(ids *tensor.IDs) (*tensor.Dense, error)

	// Backward accumulates grad (shaped like the Forward output) into the
	// table's gradient buffer. Padding rows never receive gradient and a table
	// that does not require gradients ignores the call.
	Backward(ids *tensor.IDs, grad *tensor.Dense) error

	// Load replaces the table's weights wholesale. The weights must be rank 2
	// with a trailing dimension equal to Dim().
	Load(weights *tensor.Dense) error

	// Weight returns the table parameter.
	Weight() *Parameter

	// Dim returns the embedding width.
	Dim() int

	// PaddingIdx returns the padding row, if configured.
	PaddingIdx() (int, bool)
}

// Projection is an affine map applied to the trailing axis.
type Projection interface {
	// Forward maps x (..., InDim()) to (..., OutDim()).
	Forward(x *tensor.Dense) (*tensor.Dense, error)

	// Backward accumulates parameter gradients for the Forward call on x and
	// returns the gradient with respect to x.
	Backward(x, grad *tensor.Dense) (*tensor.Dense, error)

	// Parameters returns the projection's parameters.
	Parameters() []*Parameter

	InDim() int
	OutDim() int
}

// Factory allocates runtime primitives.
type Factory interface {
	// NewLookup allocates a (vocab, dim) table with the runtime's default
	// initialization. If paddingIdx is non-nil that row starts at zero.
	NewLookup(name string, vocab, dim int, paddingIdx *int) (Lookup, error)

	// NewProjection allocates an in -> out affine projection.
	NewProjection(name string, in, out int) (Projection, error)
}
