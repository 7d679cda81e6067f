package arraystore

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/hupe1980/embfuse/tensor"
)

const (
	magic        = "EKAS"
	version      = 1
	preambleSize = 16

	// maxHeaderSize bounds the header allocation for corrupt inputs.
	maxHeaderSize = 64 << 20

	// lz4MaxRatio is the largest expansion an LZ4 block can encode.
	lz4MaxRatio = 255
	// zstdMaxRatio bounds zstd expansion: an RLE block of 4 bytes decodes to
	// at most 128 KiB.
	zstdMaxRatio = 128 << 10 / 4
)

var (
	// ErrKeyNotFound is returned when a store has no array with the requested key.
	ErrKeyNotFound = errors.New("arraystore: key not found")
	// ErrCorrupt is returned when a store cannot be decoded.
	ErrCorrupt = errors.New("arraystore: corrupt store")
	// ErrUnsupported is returned for unknown versions, flags, dtypes or codecs.
	ErrUnsupported = errors.New("arraystore: unsupported")
	// ErrInvalidArray is returned by the Builder for malformed arrays.
	ErrInvalidArray = errors.New("arraystore: invalid array")
	// ErrDType is returned when an array is read as the wrong element type.
	ErrDType = errors.New("arraystore: wrong dtype")
)

// DType is the element type of an array.
type DType string

const (
	F32 DType = "F32"
	F16 DType = "F16"
	I64 DType = "I64"
)

// Size returns the element size in bytes, or 0 for unknown dtypes.
func (d DType) Size() int {
	switch d {
	case F32:
		return 4
	case F16:
		return 2
	case I64:
		return 8
	default:
		return 0
	}
}

// IsFloat reports whether d holds floating point values.
func (d DType) IsFloat() bool { return d == F32 || d == F16 }

// Compression is the payload compression of an array.
type Compression string

const (
	CompressionNone Compression = "none"
	CompressionLZ4  Compression = "lz4"
	CompressionZSTD Compression = "zstd"
)

// ParseCompression parses a compression name. The empty string means none.
func ParseCompression(s string) (Compression, error) {
	switch c := Compression(strings.ToLower(s)); c {
	case "", CompressionNone:
		return CompressionNone, nil
	case CompressionLZ4, CompressionZSTD:
		return c, nil
	default:
		return "", fmt.Errorf("%w: compression %q", ErrUnsupported, s)
	}
}

// Info describes one stored array.
type Info struct {
	DType       DType       `json:"dtype"`
	Shape       []int       `json:"shape"`
	Compression Compression `json:"compression"`
	Offset      int64       `json:"offset"`
	Length      int64       `json:"length"`
	RawLength   int64       `json:"raw_length"`
}

// Numel returns the number of elements.
func (i Info) Numel() int { return tensor.Numel(i.Shape) }

type header struct {
	Codec  string          `json:"codec"`
	Arrays map[string]Info `json:"arrays"`
}

func (h *header) validate(payloadSize int64) error {
	for name, info := range h.Arrays {
		if name == "" {
			return fmt.Errorf("%w: empty array name", ErrCorrupt)
		}
		size := info.DType.Size()
		if size == 0 {
			return fmt.Errorf("%w: array %q has dtype %q", ErrUnsupported, name, info.DType)
		}
		if _, err := ParseCompression(string(info.Compression)); err != nil {
			return err
		}
		if !tensor.IsValidShape(info.Shape) {
			return fmt.Errorf("%w: array %q has invalid shape %v", ErrCorrupt, name, info.Shape)
		}
		raw, ok := rawSize(info.Shape, size)
		if !ok {
			return fmt.Errorf("%w: array %q shape %v overflows", ErrCorrupt, name, info.Shape)
		}
		if info.RawLength != raw {
			return fmt.Errorf("%w: array %q raw length %d does not match shape %v", ErrCorrupt, name, info.RawLength, info.Shape)
		}
		if info.Offset < 0 || info.Length < 0 || info.Offset > payloadSize || info.Length > payloadSize-info.Offset {
			return fmt.Errorf("%w: array %q range of %d bytes at offset %d outside payload of %d bytes", ErrCorrupt, name, info.Length, info.Offset, payloadSize)
		}
		switch info.Compression {
		case CompressionNone, "":
			if info.Length != info.RawLength {
				return fmt.Errorf("%w: array %q stores %d raw bytes, want %d", ErrCorrupt, name, info.Length, info.RawLength)
			}
		case CompressionLZ4:
			if info.RawLength/lz4MaxRatio > info.Length {
				return fmt.Errorf("%w: array %q cannot expand %d lz4 bytes to %d", ErrCorrupt, name, info.Length, info.RawLength)
			}
		case CompressionZSTD:
			if info.RawLength/zstdMaxRatio > info.Length {
				return fmt.Errorf("%w: array %q cannot expand %d zstd bytes to %d", ErrCorrupt, name, info.Length, info.RawLength)
			}
		}
	}
	return nil
}

// rawSize returns the byte size of an array of shape with elements of size
// bytes. It reports false when the size does not fit in an int. Every axis
// must be positive.
func rawSize(shape []int, size int) (int64, bool) {
	n := int64(size)
	for _, d := range shape {
		if int64(d) > math.MaxInt64/n {
			return 0, false
		}
		n *= int64(d)
	}
	return n, n <= math.MaxInt
}
