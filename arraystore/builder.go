package arraystore

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"slices"

	"github.com/hupe1980/embfuse/blobstore"
	"github.com/hupe1980/embfuse/codec"
	"github.com/hupe1980/embfuse/tensor"
)

type pendingArray struct {
	name  string
	dtype DType
	shape []int
	raw   []byte
}

// Builder accumulates arrays and serializes them as a store.
type Builder struct {
	codec       codec.Codec
	compression Compression
	arrays      []pendingArray
	names       map[string]struct{}
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithCompression sets the payload compression. Defaults to none.
func WithCompression(c Compression) BuilderOption {
	return func(b *Builder) { b.compression = c }
}

// WithCodec sets the header codec. It must be a JSON codec.
func WithCodec(c codec.Codec) BuilderOption {
	return func(b *Builder) { b.codec = c }
}

// NewBuilder creates an empty Builder.
func NewBuilder(opts ...BuilderOption) *Builder {
	b := &Builder{
		codec:       codec.Default,
		compression: CompressionNone,
		names:       make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Builder) add(name string, dtype DType, shape []int, n int, raw func() []byte) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidArray)
	}
	if _, dup := b.names[name]; dup {
		return fmt.Errorf("%w: duplicate name %q", ErrInvalidArray, name)
	}
	if !tensor.IsValidShape(shape) {
		return fmt.Errorf("%w: %q has invalid shape %v", ErrInvalidArray, name, shape)
	}
	if tensor.Numel(shape) != n {
		return fmt.Errorf("%w: %q has %d values for shape %v", ErrInvalidArray, name, n, shape)
	}
	b.names[name] = struct{}{}
	b.arrays = append(b.arrays, pendingArray{name: name, dtype: dtype, shape: slices.Clone(shape), raw: raw()})
	return nil
}

// AddFloat32 adds a float32 array.
func (b *Builder) AddFloat32(name string, shape []int, data []float32) error {
	return b.add(name, F32, shape, len(data), func() []byte { return encodeFloat32(data) })
}

// AddFloat16 adds data narrowed to float16 (round to nearest even).
func (b *Builder) AddFloat16(name string, shape []int, data []float32) error {
	return b.add(name, F16, shape, len(data), func() []byte { return encodeFloat16(data) })
}

// AddInt64 adds an int64 array.
func (b *Builder) AddInt64(name string, shape []int, data []int64) error {
	return b.add(name, I64, shape, len(data), func() []byte { return encodeInt64(data) })
}

// AddTensor adds a dense tensor as a float32 array.
func (b *Builder) AddTensor(name string, t *tensor.Dense) error {
	return b.AddFloat32(name, t.Shape(), t.Data())
}

// Len returns the number of arrays added so far.
func (b *Builder) Len() int { return len(b.arrays) }

// WriteTo serializes the store to w.
func (b *Builder) WriteTo(w io.Writer) (int64, error) {
	if b.codec == nil || b.codec.Name() == (codec.YAML{}).Name() {
		return 0, fmt.Errorf("%w: header codec must be JSON", ErrUnsupported)
	}

	h := header{Codec: b.codec.Name(), Arrays: make(map[string]Info, len(b.arrays))}
	payloads := make([][]byte, len(b.arrays))

	var off int64
	for i, a := range b.arrays {
		data, used, err := compress(a.raw, b.compression)
		if err != nil {
			return 0, fmt.Errorf("array %q: %w", a.name, err)
		}
		payloads[i] = data
		h.Arrays[a.name] = Info{
			DType:       a.dtype,
			Shape:       a.shape,
			Compression: used,
			Offset:      off,
			Length:      int64(len(data)),
			RawLength:   int64(len(a.raw)),
		}
		off += int64(len(data))
	}

	raw, err := b.codec.Marshal(h)
	if err != nil {
		return 0, err
	}

	var pre [preambleSize]byte
	copy(pre[:4], magic)
	binary.LittleEndian.PutUint16(pre[4:], version)
	binary.LittleEndian.PutUint16(pre[6:], 0)
	binary.LittleEndian.PutUint64(pre[8:], uint64(len(raw)))

	var total int64
	for _, chunk := range append([][]byte{pre[:], raw}, payloads...) {
		n, err := w.Write(chunk)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// Bytes serializes the store into memory.
func (b *Builder) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := b.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save writes the store to name in store. The blob is written with a single
// Put so readers never observe a partial store.
func (b *Builder) Save(ctx context.Context, store blobstore.BlobStore, name string) error {
	data, err := b.Bytes()
	if err != nil {
		return err
	}
	return store.Put(ctx, name, data)
}
