// Package dataloader streams training batches out of block files.
//
// A split (train, valid or test) is a set of arraystore blobs named like
// "train_part_1.ekas", "train_part_2.ekas", ... Each block holds one I64
// array per feature and one float array per label, all with the same
// leading (row) dimension.
package dataloader

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"math/rand"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/embfuse"
	"github.com/hupe1980/embfuse/arraystore"
	"github.com/hupe1980/embfuse/blobstore"
	"github.com/hupe1980/embfuse/resource"
	"github.com/hupe1980/embfuse/tensor"
)

var (
	// ErrNoBlocks is returned when a required split matches no blob.
	ErrNoBlocks = errors.New("invalid data files or paths")
	// ErrInvalidBlock is returned for blocks that cannot be batched.
	ErrInvalidBlock = errors.New("dataloader: invalid block")
)

// FeatureMap names the columns read from every block.
type FeatureMap struct {
	Features []string
	// Labels must not be empty; the first label counts the rows of a block.
	Labels []string
}

func (fm FeatureMap) validate() error {
	if len(fm.Labels) == 0 {
		return fmt.Errorf("%w: feature map has no labels", ErrInvalidBlock)
	}
	seen := make(map[string]struct{}, len(fm.Features)+len(fm.Labels))
	for _, name := range slices.Concat(fm.Features, fm.Labels) {
		if _, dup := seen[name]; dup {
			return fmt.Errorf("%w: column %q listed twice", ErrInvalidBlock, name)
		}
		seen[name] = struct{}{}
	}
	return nil
}

// Batch is a slice of rows from one block.
type Batch struct {
	// IDs holds one tensor per feature with the stored trailing shape.
	IDs map[string]*tensor.IDs
	// Labels holds one (rows, k) tensor per label; 1-D labels become (rows, 1).
	Labels map[string]*tensor.Dense
	Size   int
}

// defaultCountWorkers bounds concurrent header reads without a controller.
const defaultCountWorkers = 16

type options struct {
	batchSize int
	shuffle   bool
	seed      int64
	rc        *resource.Controller
	logger    *embfuse.Logger
}

// Option configures a DataLoader.
type Option func(*options)

// WithBatchSize sets the number of rows per batch. Defaults to 32.
func WithBatchSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.batchSize = n
		}
	}
}

// WithShuffle shuffles the block order and the rows within each block on
// every pass.
func WithShuffle(shuffle bool) Option {
	return func(o *options) {
		o.shuffle = shuffle
	}
}

// WithSeed seeds the shuffle.
func WithSeed(seed int64) Option {
	return func(o *options) {
		o.seed = seed
	}
}

// WithResourceController bounds concurrent block inspection by rc's
// background slots.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.rc = rc
	}
}

// WithLogger configures structured logging.
func WithLogger(l *embfuse.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		batchSize: 32,
		seed:      2024,
		logger:    embfuse.NoopLogger(),
	}
	for _, fn := range optFns {
		fn(&o)
	}
	return o
}

// DataLoader iterates the batches of an ordered list of blocks.
type DataLoader struct {
	store  blobstore.BlobStore
	fm     FeatureMap
	blocks []string
	opts   options

	mu  sync.Mutex
	rng *rand.Rand

	numSamples int
	numBatches int
}

// New inspects every block header and counts samples and batches.
func New(ctx context.Context, store blobstore.BlobStore, fm FeatureMap, blocks []string, optFns ...Option) (*DataLoader, error) {
	if err := fm.validate(); err != nil {
		return nil, err
	}
	o := applyOptions(optFns)

	d := &DataLoader{
		store:  store,
		fm:     fm,
		blocks: slices.Clone(blocks),
		opts:   o,
		rng:    rand.New(rand.NewSource(o.seed)), // nolint gosec
	}
	if err := d.count(ctx); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *DataLoader) count(ctx context.Context) error {
	rows := make([]int, len(d.blocks))

	limit := d.opts.rc.MaxBackgroundWorkers()
	if limit <= 0 {
		limit = defaultCountWorkers
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, name := range d.blocks {
		g.Go(func() error {
			if err := d.opts.rc.AcquireBackground(ctx); err != nil {
				return err
			}
			defer d.opts.rc.ReleaseBackground()

			n, err := d.blockRows(ctx, name)
			if err != nil {
				return err
			}
			rows[i] = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, n := range rows {
		d.numSamples += n
		d.numBatches += (n + d.opts.batchSize - 1) / d.opts.batchSize
	}
	return nil
}

func (d *DataLoader) blockRows(ctx context.Context, name string) (int, error) {
	r, err := arraystore.Open(ctx, d.store, name)
	if err != nil {
		return 0, fmt.Errorf("dataloader: block %q: %w", name, err)
	}
	defer r.Close()

	info, err := r.Info(d.fm.Labels[0])
	if err != nil {
		return 0, fmt.Errorf("dataloader: block %q: %w", name, err)
	}
	return info.Shape[0], nil
}

// NumBlocks returns the number of blocks.
func (d *DataLoader) NumBlocks() int { return len(d.blocks) }

// NumSamples returns the total number of rows.
func (d *DataLoader) NumSamples() int { return d.numSamples }

// NumBatches returns the number of batches of one pass.
func (d *DataLoader) NumBatches() int { return d.numBatches }

// Blocks returns the block names in load order (before shuffling).
func (d *DataLoader) Blocks() []string { return slices.Clone(d.blocks) }

// BatchSize returns the configured batch size.
func (d *DataLoader) BatchSize() int { return d.opts.batchSize }

// Iter returns one pass over all batches. Blocks are loaded one at a time.
// Iteration stops at the first error, which is yielded with a nil batch.
func (d *DataLoader) Iter(ctx context.Context) iter.Seq2[*Batch, error] {
	return func(yield func(*Batch, error) bool) {
		order := slices.Clone(d.blocks)
		if d.opts.shuffle {
			d.shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
		}

		for _, name := range order {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}

			blk, err := d.loadBlock(ctx, name)
			if err != nil {
				yield(nil, err)
				return
			}

			index := make([]int, blk.rows)
			for i := range index {
				index[i] = i
			}
			if d.opts.shuffle {
				d.shuffle(len(index), func(i, j int) { index[i], index[j] = index[j], index[i] })
			}

			for start := 0; start < blk.rows; start += d.opts.batchSize {
				end := min(start+d.opts.batchSize, blk.rows)
				batch, err := blk.batch(index[start:end])
				if err != nil {
					yield(nil, fmt.Errorf("dataloader: block %q: %w", name, err))
					return
				}
				if !yield(batch, nil) {
					return
				}
			}
		}
	}
}

func (d *DataLoader) shuffle(n int, swap func(i, j int)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rng.Shuffle(n, swap)
}

type block struct {
	rows   int
	ids    map[string]*tensor.IDs
	labels map[string]*tensor.Dense
}

func (d *DataLoader) loadBlock(ctx context.Context, name string) (*block, error) {
	r, err := arraystore.Open(ctx, d.store, name)
	if err != nil {
		return nil, fmt.Errorf("dataloader: block %q: %w", name, err)
	}
	defer r.Close()

	blk := &block{
		ids:    make(map[string]*tensor.IDs, len(d.fm.Features)),
		labels: make(map[string]*tensor.Dense, len(d.fm.Labels)),
	}

	for i, label := range d.fm.Labels {
		arr, err := r.Read(ctx, label)
		if err != nil {
			return nil, fmt.Errorf("dataloader: block %q: %w", name, err)
		}
		if i == 0 {
			blk.rows = arr.Shape[0]
		}
		if err := blk.checkRows(name, arr); err != nil {
			return nil, err
		}
		values, err := arr.Float32()
		if err != nil {
			return nil, fmt.Errorf("dataloader: block %q: %w", name, err)
		}
		shape := arr.Shape
		if len(shape) == 1 {
			shape = []int{shape[0], 1}
		}
		t, err := tensor.FromSlice(values, shape...)
		if err != nil {
			return nil, fmt.Errorf("dataloader: block %q: label %q: %w", name, label, err)
		}
		blk.labels[label] = t
	}

	for _, feature := range d.fm.Features {
		arr, err := r.Read(ctx, feature)
		if err != nil {
			return nil, fmt.Errorf("dataloader: block %q: %w", name, err)
		}
		if err := blk.checkRows(name, arr); err != nil {
			return nil, err
		}
		values, err := arr.Int64()
		if err != nil {
			return nil, fmt.Errorf("dataloader: block %q: %w", name, err)
		}
		ids, err := tensor.NewIDs(values, arr.Shape...)
		if err != nil {
			return nil, fmt.Errorf("dataloader: block %q: feature %q: %w", name, feature, err)
		}
		blk.ids[feature] = ids
	}

	d.opts.logger.Debug("block loaded", "block", name, "rows", blk.rows)
	return blk, nil
}

func (b *block) checkRows(name string, arr *arraystore.Array) error {
	if arr.Shape[0] != b.rows {
		return fmt.Errorf("%w: %q: column %q has %d rows, want %d", ErrInvalidBlock, name, arr.Name, arr.Shape[0], b.rows)
	}
	return nil
}

func (b *block) batch(index []int) (*Batch, error) {
	out := &Batch{
		IDs:    make(map[string]*tensor.IDs, len(b.ids)),
		Labels: make(map[string]*tensor.Dense, len(b.labels)),
		Size:   len(index),
	}
	for name, ids := range b.ids {
		g, err := ids.Gather(index)
		if err != nil {
			return nil, err
		}
		out.IDs[name] = g
	}
	for name, t := range b.labels {
		g, err := t.Gather(index)
		if err != nil {
			return nil, err
		}
		out.Labels[name] = g
	}
	return out, nil
}
