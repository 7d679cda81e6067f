package dataloader

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/embfuse/arraystore"
	"github.com/hupe1980/embfuse/blobstore"
	"github.com/hupe1980/embfuse/resource"
)

var testMap = FeatureMap{Features: []string{"item_id", "tags"}, Labels: []string{"click"}}

// writeBlock stores rows [first, first+n): item_id = row, tags = (row, row+1),
// click = row.
func writeBlock(t *testing.T, store blobstore.BlobStore, name string, first, n int) {
	t.Helper()

	items := make([]int64, n)
	tags := make([]int64, 2*n)
	clicks := make([]float32, n)
	for i := range n {
		row := first + i
		items[i] = int64(row)
		tags[2*i], tags[2*i+1] = int64(row), int64(row+1)
		clicks[i] = float32(row)
	}

	b := arraystore.NewBuilder(arraystore.WithCompression(arraystore.CompressionZSTD))
	require.NoError(t, b.AddInt64("item_id", []int{n}, items))
	require.NoError(t, b.AddInt64("tags", []int{n, 2}, tags))
	require.NoError(t, b.AddFloat32("click", []int{n}, clicks))
	require.NoError(t, b.Save(context.Background(), store, name))
}

func collect(t *testing.T, d *DataLoader) []*Batch {
	t.Helper()
	var out []*Batch
	for batch, err := range d.Iter(context.Background()) {
		require.NoError(t, err)
		out = append(out, batch)
	}
	return out
}

func TestGlob_SortsByPartNumber(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	for _, name := range []string{"train_part_10.ekas", "train_part_2.ekas", "train_part_1.ekas", "test_part_1.ekas", "train_part_3.txt"} {
		require.NoError(t, store.Put(ctx, name, []byte("x")))
	}

	blocks, err := Glob(ctx, store, "train_part_*.ekas")
	require.NoError(t, err)
	assert.Equal(t, []string{"train_part_1.ekas", "train_part_2.ekas", "train_part_10.ekas"}, blocks)

	blocks, err = Glob(ctx, store, "valid_part_*.ekas")
	require.NoError(t, err)
	assert.Empty(t, blocks)

	_, err = Glob(ctx, store, "train_[")
	require.Error(t, err)
}

func TestGlob_UnnumberedBlocks(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	require.NoError(t, store.Put(ctx, "train_a.ekas", []byte("x")))
	require.NoError(t, store.Put(ctx, "train_b.ekas", []byte("x")))

	_, err := Glob(ctx, store, "train_*.ekas")
	require.ErrorIs(t, err, ErrInvalidBlock)
}

func TestPartNumber(t *testing.T) {
	n, err := PartNumber("data/train_part_12.ekas")
	require.NoError(t, err)
	assert.Equal(t, 12, n)

	n, err = PartNumber("test_part_3")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	_, err = PartNumber("train.ekas")
	require.Error(t, err)
}

func TestDataLoader_CountsAndBatches(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	writeBlock(t, store, "train_part_1.ekas", 0, 5)
	writeBlock(t, store, "train_part_2.ekas", 5, 3)

	d, err := New(ctx, store, testMap, []string{"train_part_1.ekas", "train_part_2.ekas"}, WithBatchSize(2))
	require.NoError(t, err)

	assert.Equal(t, 2, d.NumBlocks())
	assert.Equal(t, 8, d.NumSamples())
	// ceil(5/2) + ceil(3/2)
	assert.Equal(t, 5, d.NumBatches())
	assert.Equal(t, 2, d.BatchSize())

	batches := collect(t, d)
	require.Len(t, batches, d.NumBatches())

	sizes := make([]int, len(batches))
	var items []int64
	for i, b := range batches {
		sizes[i] = b.Size
		items = append(items, b.IDs["item_id"].Data()...)

		assert.Equal(t, []int{b.Size}, b.IDs["item_id"].Shape())
		assert.Equal(t, []int{b.Size, 2}, b.IDs["tags"].Shape())
		assert.Equal(t, []int{b.Size, 1}, b.Labels["click"].Shape())
	}
	assert.Equal(t, []int{2, 2, 1, 2, 1}, sizes)
	assert.Equal(t, []int64{0, 1, 2, 3, 4, 5, 6, 7}, items)
}

func TestDataLoader_RowsStayAligned(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	writeBlock(t, store, "train_part_1.ekas", 0, 7)
	writeBlock(t, store, "train_part_2.ekas", 7, 6)

	d, err := New(ctx, store, testMap, []string{"train_part_1.ekas", "train_part_2.ekas"},
		WithBatchSize(4), WithShuffle(true), WithSeed(1))
	require.NoError(t, err)

	var items []int64
	for _, b := range collect(t, d) {
		ids := b.IDs["item_id"].Data()
		tags := b.IDs["tags"].Data()
		clicks := b.Labels["click"].Data()
		for i, id := range ids {
			assert.Equal(t, id, tags[2*i])
			assert.Equal(t, id+1, tags[2*i+1])
			assert.Equal(t, float32(id), clicks[i])
		}
		items = append(items, ids...)
	}

	slices.Sort(items)
	want := make([]int64, 13)
	for i := range want {
		want[i] = int64(i)
	}
	assert.Equal(t, want, items)
}

func TestDataLoader_ShuffleIsSeeded(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	for i := range 4 {
		writeBlock(t, store, fmt.Sprintf("train_part_%d.ekas", i+1), 10*i, 10)
	}
	blocks, err := Glob(ctx, store, "train_part_*")
	require.NoError(t, err)

	order := func(seed int64) []int64 {
		d, err := New(ctx, store, testMap, blocks, WithBatchSize(3), WithShuffle(true), WithSeed(seed))
		require.NoError(t, err)
		var items []int64
		for _, b := range collect(t, d) {
			items = append(items, b.IDs["item_id"].Data()...)
		}
		return items
	}

	assert.Equal(t, order(42), order(42))
}

func TestDataLoader_EarlyBreak(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	writeBlock(t, store, "train_part_1.ekas", 0, 10)

	d, err := New(ctx, store, testMap, []string{"train_part_1.ekas"}, WithBatchSize(2))
	require.NoError(t, err)

	n := 0
	for _, err := range d.Iter(ctx) {
		require.NoError(t, err)
		n++
		if n == 2 {
			break
		}
	}
	assert.Equal(t, 2, n)
}

func TestDataLoader_Errors(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	writeBlock(t, store, "train_part_1.ekas", 0, 4)

	t.Run("missing block", func(t *testing.T) {
		_, err := New(ctx, store, testMap, []string{"train_part_9.ekas"})
		require.ErrorIs(t, err, blobstore.ErrNotFound)
	})

	t.Run("missing label", func(t *testing.T) {
		fm := FeatureMap{Features: []string{"item_id"}, Labels: []string{"buy"}}
		_, err := New(ctx, store, fm, []string{"train_part_1.ekas"})
		require.ErrorIs(t, err, arraystore.ErrKeyNotFound)
	})

	t.Run("no labels", func(t *testing.T) {
		_, err := New(ctx, store, FeatureMap{Features: []string{"item_id"}}, nil)
		require.ErrorIs(t, err, ErrInvalidBlock)
	})

	t.Run("duplicate column", func(t *testing.T) {
		fm := FeatureMap{Features: []string{"click"}, Labels: []string{"click"}}
		_, err := New(ctx, store, fm, nil)
		require.ErrorIs(t, err, ErrInvalidBlock)
	})

	t.Run("missing feature surfaces during iteration", func(t *testing.T) {
		fm := FeatureMap{Features: []string{"user_id"}, Labels: []string{"click"}}
		d, err := New(ctx, store, fm, []string{"train_part_1.ekas"})
		require.NoError(t, err)

		var iterErr error
		for _, err := range d.Iter(ctx) {
			iterErr = err
		}
		require.ErrorIs(t, iterErr, arraystore.ErrKeyNotFound)
	})

	t.Run("row mismatch", func(t *testing.T) {
		b := arraystore.NewBuilder()
		require.NoError(t, b.AddInt64("item_id", []int{3}, []int64{1, 2, 3}))
		require.NoError(t, b.AddFloat32("click", []int{2}, []float32{0, 1}))
		require.NoError(t, b.Save(ctx, store, "bad_part_1.ekas"))

		fm := FeatureMap{Features: []string{"item_id"}, Labels: []string{"click"}}
		d, err := New(ctx, store, fm, []string{"bad_part_1.ekas"})
		require.NoError(t, err)

		var iterErr error
		for _, err := range d.Iter(ctx) {
			iterErr = err
		}
		require.ErrorIs(t, iterErr, ErrInvalidBlock)
	})

	t.Run("canceled", func(t *testing.T) {
		d, err := New(ctx, store, testMap, []string{"train_part_1.ekas"})
		require.NoError(t, err)

		cctx, cancel := context.WithCancel(ctx)
		cancel()
		var iterErr error
		for _, err := range d.Iter(cctx) {
			iterErr = err
		}
		require.True(t, errors.Is(iterErr, context.Canceled))
	})
}

func TestDataLoader_ResourceController(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	var blocks []string
	for i := range 6 {
		name := fmt.Sprintf("train_part_%d.ekas", i+1)
		writeBlock(t, store, name, 3*i, 3)
		blocks = append(blocks, name)
	}

	rc := resource.NewController(resource.Config{MaxBackgroundWorkers: 2})
	d, err := New(ctx, store, testMap, blocks, WithResourceController(rc), WithBatchSize(3))
	require.NoError(t, err)
	assert.Equal(t, 18, d.NumSamples())
	assert.Equal(t, 6, d.NumBatches())

	// All slots are released after counting.
	assert.True(t, rc.TryAcquireBackground())
	assert.True(t, rc.TryAcquireBackground())
}
