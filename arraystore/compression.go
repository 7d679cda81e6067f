package arraystore

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() (*zstd.Encoder, error) {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder), nil
	}
	return zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
}

func getZstdDecoder() (*zstd.Decoder, error) {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder), nil
	}
	return zstd.NewReader(nil)
}

// compress returns the encoded payload and the compression actually used.
// Payloads that do not shrink by at least 10% are stored raw.
func compress(data []byte, c Compression) ([]byte, Compression, error) {
	if c == CompressionNone || len(data) == 0 {
		return data, CompressionNone, nil
	}

	var out []byte
	switch c {
	case CompressionLZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, buf, nil)
		if err != nil {
			return nil, "", err
		}
		// n == 0 means incompressible.
		out = buf[:n]
	case CompressionZSTD:
		enc, err := getZstdEncoder()
		if err != nil {
			return nil, "", err
		}
		out = enc.EncodeAll(data, nil)
		zstdEncoderPool.Put(enc)
	default:
		return nil, "", fmt.Errorf("%w: compression %q", ErrUnsupported, c)
	}

	if len(out) == 0 || float64(len(out)) > float64(len(data))*0.9 {
		return data, CompressionNone, nil
	}
	return out, c, nil
}

func decompress(data []byte, c Compression, rawLength int64) ([]byte, error) {
	switch c {
	case CompressionNone, "":
		if int64(len(data)) != rawLength {
			return nil, fmt.Errorf("%w: payload is %d bytes, want %d", ErrCorrupt, len(data), rawLength)
		}
		return data, nil
	case CompressionLZ4:
		out := make([]byte, rawLength)
		n, err := lz4.UncompressBlock(data, out)
		if err != nil {
			return nil, fmt.Errorf("%w: lz4: %v", ErrCorrupt, err)
		}
		if int64(n) != rawLength {
			return nil, fmt.Errorf("%w: lz4 decoded %d bytes, want %d", ErrCorrupt, n, rawLength)
		}
		return out, nil
	case CompressionZSTD:
		dec, err := getZstdDecoder()
		if err != nil {
			return nil, err
		}
		defer zstdDecoderPool.Put(dec)

		var fh zstd.Header
		if err := fh.Decode(data); err != nil {
			return nil, fmt.Errorf("%w: zstd: %v", ErrCorrupt, err)
		}
		if fh.HasFCS && fh.FrameContentSize != uint64(rawLength) {
			return nil, fmt.Errorf("%w: zstd frame holds %d bytes, want %d", ErrCorrupt, fh.FrameContentSize, rawLength)
		}

		out, err := dec.DecodeAll(data, make([]byte, 0, rawLength))
		if err != nil {
			return nil, fmt.Errorf("%w: zstd: %v", ErrCorrupt, err)
		}
		if int64(len(out)) != rawLength {
			return nil, fmt.Errorf("%w: zstd decoded %d bytes, want %d", ErrCorrupt, len(out), rawLength)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: compression %q", ErrUnsupported, c)
	}
}
