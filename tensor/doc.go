// Package tensor provides the dense float32 tensors and integer ID tensors that
// flow through the fusion layers.
//
// Tensors are row-major and contiguous. The trailing axis of a Dense tensor is
// the feature axis; all leading axes form the batch shape. Most operations
// treat a Dense tensor as Rows() vectors of length LastDim().
package tensor
