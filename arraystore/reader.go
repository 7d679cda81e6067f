package arraystore

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/hupe1980/embfuse/blobstore"
	"github.com/hupe1980/embfuse/codec"
)

// Reader gives keyed access to the arrays of one store.
// It is safe for concurrent use.
type Reader struct {
	blob    blobstore.Blob
	header  header
	dataOff int64
}

// Open opens the store named name in store.
func Open(ctx context.Context, store blobstore.BlobStore, name string) (*Reader, error) {
	blob, err := store.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	r, err := NewReader(ctx, blob)
	if err != nil {
		_ = blob.Close()
		return nil, err
	}
	return r, nil
}

// NewReader decodes the preamble and header of blob. The Reader takes
// ownership of blob.
func NewReader(ctx context.Context, blob blobstore.Blob) (*Reader, error) {
	size := blob.Size()
	if size < preambleSize {
		return nil, fmt.Errorf("%w: %d bytes is shorter than the preamble", ErrCorrupt, size)
	}

	var pre [preambleSize]byte
	if err := readFull(ctx, blob, pre[:], 0); err != nil {
		return nil, err
	}
	if string(pre[:4]) != magic {
		return nil, fmt.Errorf("%w: bad magic %q", ErrCorrupt, pre[:4])
	}
	if v := binary.LittleEndian.Uint16(pre[4:]); v != version {
		return nil, fmt.Errorf("%w: version %d", ErrUnsupported, v)
	}
	if flags := binary.LittleEndian.Uint16(pre[6:]); flags != 0 {
		return nil, fmt.Errorf("%w: flags %#x", ErrUnsupported, flags)
	}

	headerLen := binary.LittleEndian.Uint64(pre[8:])
	if headerLen > maxHeaderSize || int64(headerLen) > size-preambleSize {
		return nil, fmt.Errorf("%w: header length %d exceeds store size %d", ErrCorrupt, headerLen, size)
	}

	raw := make([]byte, headerLen)
	if err := readFull(ctx, blob, raw, preambleSize); err != nil {
		return nil, err
	}

	// Every supported header codec is JSON, so the default codec decodes all
	// of them; the recorded name is still validated.
	var h header
	if err := codec.Default.Unmarshal(raw, &h); err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrCorrupt, err)
	}
	if _, ok := codec.ByName(h.Codec); !ok || h.Codec == (codec.YAML{}).Name() {
		return nil, fmt.Errorf("%w: header codec %q", ErrUnsupported, h.Codec)
	}

	dataOff := preambleSize + int64(headerLen)
	if err := h.validate(size - dataOff); err != nil {
		return nil, err
	}

	return &Reader{blob: blob, header: h, dataOff: dataOff}, nil
}

// Keys returns the sorted array names.
func (r *Reader) Keys() []string {
	return slices.Sorted(maps.Keys(r.header.Arrays))
}

// Codec returns the name of the codec the header was written with.
func (r *Reader) Codec() string { return r.header.Codec }

// Info returns the description of the array stored under key.
func (r *Reader) Info(key string) (Info, error) {
	info, ok := r.header.Arrays[key]
	if !ok {
		return Info{}, fmt.Errorf("%w: %q", ErrKeyNotFound, key)
	}
	info.Shape = slices.Clone(info.Shape)
	return info, nil
}

// Read loads and decompresses the array stored under key.
func (r *Reader) Read(ctx context.Context, key string) (*Array, error) {
	info, err := r.Info(key)
	if err != nil {
		return nil, err
	}

	payload, err := r.payload(ctx, info)
	if err != nil {
		return nil, err
	}

	raw, err := decompress(payload, info.Compression, info.RawLength)
	if err != nil {
		return nil, fmt.Errorf("array %q: %w", key, err)
	}

	return &Array{Name: key, DType: info.DType, Shape: info.Shape, Raw: raw}, nil
}

func (r *Reader) payload(ctx context.Context, info Info) ([]byte, error) {
	off := r.dataOff + info.Offset
	if m, ok := r.blob.(blobstore.Mappable); ok && info.Compression == CompressionNone {
		data, err := m.Bytes()
		if err != nil {
			return nil, err
		}
		// Copy so the array outlives the mapping.
		return slices.Clone(data[off : off+info.Length]), nil
	}
	buf := make([]byte, info.Length)
	if err := readFull(ctx, r.blob, buf, off); err != nil {
		return nil, err
	}
	return buf, nil
}

// Close releases the underlying blob.
func (r *Reader) Close() error {
	return r.blob.Close()
}

func readFull(ctx context.Context, b blobstore.Blob, p []byte, off int64) error {
	if len(p) == 0 {
		return nil
	}
	n, err := b.ReadAt(ctx, p, off)
	if n == len(p) && (err == nil || errors.Is(err, io.EOF)) {
		return nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: short read at offset %d (%d of %d bytes)", ErrCorrupt, off, n, len(p))
	}
	return err
}
