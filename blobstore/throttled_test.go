package blobstore

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/embfuse/resource"
)

func TestThrottledStore(t *testing.T) {
	inner := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, inner.Put(ctx, "blob", []byte("0123456789")))

	rc := resource.NewController(resource.Config{IOLimitBytesPerSec: 1 << 20})
	store := NewThrottledStore(inner, rc)

	blob, err := store.Open(ctx, "blob")
	require.NoError(t, err)
	defer blob.Close()

	_, ok := blob.(Mappable)
	assert.False(t, ok)

	data, err := ReadAll(ctx, blob)
	require.NoError(t, err)
	assert.Equal(t, "0123456789", string(data))

	r, err := blob.ReadRange(ctx, 2, 3)
	require.NoError(t, err)
	part, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	assert.Equal(t, "234", string(part))

	_, err = store.Open(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestThrottledStore_CanceledRead(t *testing.T) {
	inner := NewMemoryStore()
	require.NoError(t, inner.Put(context.Background(), "blob", make([]byte, 64)))

	// Burst of 1 byte/s: a 64 byte read cannot complete before the deadline.
	rc := resource.NewController(resource.Config{IOLimitBytesPerSec: 1})
	store := NewThrottledStore(inner, rc)

	blob, err := store.Open(context.Background(), "blob")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = blob.ReadAt(ctx, make([]byte, 64), 0)
	assert.Error(t, err)
}
