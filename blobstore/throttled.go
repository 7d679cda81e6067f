package blobstore

import (
	"context"
	"io"

	"github.com/hupe1980/embfuse/resource"
)

// ThrottledStore charges every read against a resource.Controller's IO limit.
// Writes, deletes and listings pass through unchanged.
type ThrottledStore struct {
	BlobStore
	rc *resource.Controller
}

// NewThrottledStore wraps inner. A nil controller disables throttling.
func NewThrottledStore(inner BlobStore, rc *resource.Controller) *ThrottledStore {
	return &ThrottledStore{BlobStore: inner, rc: rc}
}

// Open opens a throttled blob.
func (s *ThrottledStore) Open(ctx context.Context, name string) (Blob, error) {
	b, err := s.BlobStore.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	return &throttledBlob{Blob: b, rc: s.rc}, nil
}

type throttledBlob struct {
	Blob
	rc *resource.Controller
}

func (b *throttledBlob) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if err := b.rc.AcquireIO(ctx, len(p)); err != nil {
		return 0, err
	}
	return b.Blob.ReadAt(ctx, p, off)
}

func (b *throttledBlob) ReadRange(ctx context.Context, off, length int64) (io.ReadCloser, error) {
	rc, err := b.Blob.ReadRange(ctx, off, length)
	if err != nil {
		return nil, err
	}
	return &throttledReadCloser{
		Reader: resource.NewRateLimitedReader(ctx, rc, b.rc),
		closer: rc,
	}, nil
}

// throttledBlob deliberately does not implement Mappable: ReadAll falls back
// to ReadAt so the bytes are charged.

type throttledReadCloser struct {
	io.Reader
	closer io.Closer
}

func (r *throttledReadCloser) Close() error {
	return r.closer.Close()
}
