package embfuse

import (
	"context"
	"path/filepath"

	"github.com/hupe1980/embfuse/arraystore"
	"github.com/hupe1980/embfuse/blobstore"
	"github.com/hupe1980/embfuse/tensor"
)

// ArrayLoader reads the array stored under key in the store at path.
type ArrayLoader interface {
	Load(ctx context.Context, path, key string) (*tensor.Dense, error)
}

// ArrayLoaderFunc adapts a function to ArrayLoader.
type ArrayLoaderFunc func(ctx context.Context, path, key string) (*tensor.Dense, error)

// Load implements ArrayLoader.
func (f ArrayLoaderFunc) Load(ctx context.Context, path, key string) (*tensor.Dense, error) {
	return f(ctx, path, key)
}

// StoreLoader reads keyed-array stores. With a nil Store, path is a local
// file.
type StoreLoader struct {
	Store blobstore.BlobStore
}

// Load implements ArrayLoader. The store is opened and closed on every call.
func (l *StoreLoader) Load(ctx context.Context, path, key string) (*tensor.Dense, error) {
	store, name := l.Store, path
	if store == nil {
		store, name = blobstore.NewLocalStore(filepath.Dir(path)), filepath.Base(path)
	}

	r, err := arraystore.Open(ctx, store, name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Close() }()

	arr, err := r.Read(ctx, key)
	if err != nil {
		return nil, err
	}
	return arr.Tensor()
}
