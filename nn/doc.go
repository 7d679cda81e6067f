// Package nn defines the trainable primitives the fusion layer is built on and
// ships a small CPU implementation of them.
//
// The fusion layer only depends on the Lookup, Projection and Factory
// interfaces; any runtime able to provide an embedding lookup table and a
// linear projection with gradient buffers can be plugged in.
//
// The CPU runtime keeps gradients explicitly: Backward accumulates into each
// Parameter's Grad buffer and an optimizer such as SGD applies and clears
// them. Lookup tables are row-sparse: only rows that received a gradient are
// touched by the optimizer.
package nn
