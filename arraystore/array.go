package arraystore

import (
	"encoding/binary"
	"fmt"
	"math"
	"slices"

	"github.com/hupe1980/embfuse/internal/f16"
	"github.com/hupe1980/embfuse/tensor"
)

// Array is a decoded array. Raw holds the little-endian element bytes.
type Array struct {
	Name  string
	DType DType
	Shape []int
	Raw   []byte
}

// Numel returns the number of elements.
func (a *Array) Numel() int { return tensor.Numel(a.Shape) }

// Float32 decodes a F32 or F16 array. F16 values are widened exactly.
func (a *Array) Float32() ([]float32, error) {
	out := make([]float32, a.Numel())
	switch a.DType {
	case F32:
		for i := range out {
			out[i] = math.Float32frombits(binary.LittleEndian.Uint32(a.Raw[4*i:]))
		}
	case F16:
		f16.DecodeLE(out, a.Raw)
	default:
		return nil, fmt.Errorf("%w: %q is %s, want a float dtype", ErrDType, a.Name, a.DType)
	}
	return out, nil
}

// Int64 decodes an I64 array.
func (a *Array) Int64() ([]int64, error) {
	if a.DType != I64 {
		return nil, fmt.Errorf("%w: %q is %s, want I64", ErrDType, a.Name, a.DType)
	}
	out := make([]int64, a.Numel())
	for i := range out {
		out[i] = int64(binary.LittleEndian.Uint64(a.Raw[8*i:]))
	}
	return out, nil
}

// Tensor returns a float array as a dense tensor of the stored shape.
func (a *Array) Tensor() (*tensor.Dense, error) {
	data, err := a.Float32()
	if err != nil {
		return nil, err
	}
	return tensor.FromSlice(data, slices.Clone(a.Shape)...)
}

func encodeFloat32(src []float32) []byte {
	out := make([]byte, 4*len(src))
	for i, v := range src {
		binary.LittleEndian.PutUint32(out[4*i:], math.Float32bits(v))
	}
	return out
}

func encodeFloat16(src []float32) []byte {
	out := make([]byte, 2*len(src))
	f16.EncodeLE(out, src)
	return out
}

func encodeInt64(src []int64) []byte {
	out := make([]byte, 8*len(src))
	for i, v := range src {
		binary.LittleEndian.PutUint64(out[8*i:], uint64(v))
	}
	return out
}
