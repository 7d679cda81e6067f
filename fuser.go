package embfuse

import (
	"context"
	"fmt"
	"slices"
	"sync/atomic"
	"time"

	"github.com/hupe1980/embfuse/nn"
	"github.com/hupe1980/embfuse/resource"
	"github.com/hupe1980/embfuse/tensor"
)

// PretrainedEmbedding fuses a pretrained table with an ID table.
//
// Apply is safe for concurrent use. Backward and optimizer steps mutate
// gradients and weights and must not run concurrently with Apply.
type PretrainedEmbedding struct {
	cfg  Config
	mode Mode

	pretrained nn.Lookup
	id         nn.Lookup     // nil in init mode
	projA      nn.Projection // sum mode with differing widths
	projB      nn.Projection // concat mode
	fusion     fusion

	logger  *Logger
	metrics MetricsCollector

	rc       *resource.Controller
	reserved int64
	closed   atomic.Bool
}

// New builds a PretrainedEmbedding and loads its pretrained table.
//
// It returns a *ConfigError for invalid settings, a *StorageError when the
// store or the feature's array cannot be read and a *ShapeMismatchError when
// the stored width differs from PretrainDim.
func New(ctx context.Context, cfg Config, optFns ...Option) (*PretrainedEmbedding, error) {
	o := applyOptions(optFns)

	mode, err := cfg.validate(o.strictDims)
	if err != nil {
		return nil, err
	}
	if o.factory == nil {
		o.factory = nn.NewCPU(featureSeed(o.seed, cfg.FeatureName))
	}
	if cfg.Feature.PaddingIdx != nil {
		pad := *cfg.Feature.PaddingIdx
		cfg.Feature.PaddingIdx = &pad
	}

	logger := o.logger.WithFeature(cfg.FeatureName)
	if mode == ModeInit && cfg.PretrainDim != cfg.EmbeddingDim {
		logger.WarnContext(ctx, "init mode keeps the pretrained width",
			"pretrain_dim", cfg.PretrainDim,
			"embedding_dim", cfg.EmbeddingDim,
		)
	}

	e := &PretrainedEmbedding{
		cfg:     cfg,
		mode:    mode,
		logger:  logger,
		metrics: o.metricsCollector,
		rc:      o.rc,
	}

	vocab, pad := cfg.Feature.VocabSize, cfg.Feature.PaddingIdx

	e.pretrained, err = o.factory.NewLookup(cfg.FeatureName+".pretrained", vocab, cfg.PretrainDim, pad)
	if err != nil {
		return nil, &ConfigError{Feature: cfg.FeatureName, Reason: "allocate pretrained table: " + err.Error(), cause: err}
	}
	if err := e.load(ctx, o.loader); err != nil {
		return nil, err
	}

	if mode != ModeInit {
		e.id, err = o.factory.NewLookup(cfg.FeatureName+".id", vocab, cfg.EmbeddingDim, pad)
		if err != nil {
			_ = e.Close()
			return nil, &ConfigError{Feature: cfg.FeatureName, Reason: "allocate id table: " + err.Error(), cause: err}
		}
	}

	switch mode {
	case ModeInit:
		e.fusion = initFusion{pretrained: e.pretrained}
	case ModeSum:
		if cfg.PretrainDim != cfg.EmbeddingDim {
			e.projA, err = o.factory.NewProjection(cfg.FeatureName+".proj_a", cfg.PretrainDim, cfg.EmbeddingDim)
		}
		e.fusion = sumFusion{pretrained: e.pretrained, id: e.id, proj: e.projA}
	case ModeConcat:
		e.projB, err = o.factory.NewProjection(cfg.FeatureName+".proj_b", cfg.PretrainDim+cfg.EmbeddingDim, cfg.EmbeddingDim)
		e.fusion = concatFusion{pretrained: e.pretrained, id: e.id, proj: e.projB}
	}
	if err != nil {
		_ = e.Close()
		return nil, &ConfigError{Feature: cfg.FeatureName, Reason: "allocate projection: " + err.Error(), cause: err}
	}

	logger.LogBuild(ctx, mode, e.OutputDim(), e.projA != nil || e.projB != nil)
	return e, nil
}

// load reads the feature's array, zeroes the padding row and installs it as
// the pretrained table.
func (e *PretrainedEmbedding) load(ctx context.Context, loader ArrayLoader) (err error) {
	start := time.Now()
	cfg := e.cfg
	var rows int
	var bytes int64

	defer func() {
		e.metrics.RecordLoad(cfg.FeatureName, bytes, time.Since(start), err)
		e.logger.LogLoad(ctx, cfg.PretrainedPath, rows, cfg.PretrainDim, cfg.Feature.FreezeEmb, time.Since(start), err)
	}()

	weights, err := loader.Load(ctx, cfg.PretrainedPath, cfg.FeatureName)
	if err != nil {
		return &StorageError{Path: cfg.PretrainedPath, Key: cfg.FeatureName, cause: err}
	}
	if weights.Rank() != 2 {
		return &StorageError{
			Path:  cfg.PretrainedPath,
			Key:   cfg.FeatureName,
			cause: fmt.Errorf("%w: stored array has shape %v, want (rows, dim)", tensor.ErrShape, weights.Shape()),
		}
	}
	if weights.LastDim() != cfg.PretrainDim {
		return &ShapeMismatchError{Feature: cfg.FeatureName, Expected: cfg.PretrainDim, Actual: weights.LastDim()}
	}

	rows = weights.Dim(0)
	if rows != cfg.Feature.VocabSize {
		e.logger.WarnContext(ctx, "stored rows differ from vocab_size",
			"rows", rows,
			"vocab_size", cfg.Feature.VocabSize,
		)
	}
	if p := cfg.Feature.PaddingIdx; p != nil {
		if *p >= rows {
			return configErr(cfg.FeatureName, "padding_idx", "%d outside the %d stored rows", *p, rows)
		}
		clear(weights.Row(*p))
	}

	size := int64(weights.Size()) * 4
	if err := e.rc.AcquireMemory(ctx, size); err != nil {
		return fmt.Errorf("embfuse: feature %q: reserve %d bytes: %w", cfg.FeatureName, size, err)
	}
	if err := e.pretrained.Load(weights); err != nil {
		e.rc.ReleaseMemory(size)
		return &StorageError{Path: cfg.PretrainedPath, Key: cfg.FeatureName, cause: err}
	}
	e.reserved, bytes = size, size

	if cfg.Feature.FreezeEmb {
		e.pretrained.Weight().SetRequiresGrad(false)
	}
	return nil
}

// Apply looks up ids and fuses the embeddings. The result has shape
// ids.Shape() + [OutputDim()].
func (e *PretrainedEmbedding) Apply(ids *tensor.IDs) (*tensor.Dense, error) {
	if e.closed.Load() {
		return nil, ErrClosed
	}
	if ids == nil {
		return nil, fmt.Errorf("embfuse: feature %q: %w: nil ids", e.cfg.FeatureName, tensor.ErrShape)
	}

	start := time.Now()
	out, err := e.fusion.forward(ids)
	elapsed := time.Since(start)
	e.metrics.RecordApply(ids.Size(), elapsed, err)
	e.logger.LogApply(ids.Size(), elapsed, err)
	if err != nil {
		return nil, fmt.Errorf("embfuse: feature %q: %w", e.cfg.FeatureName, err)
	}
	return out, nil
}

// Backward accumulates the gradient of a loss with respect to the output of
// Apply(ids) into the gradient buffers of the trainable parameters.
func (e *PretrainedEmbedding) Backward(ids *tensor.IDs, gradOut *tensor.Dense) error {
	if e.closed.Load() {
		return ErrClosed
	}
	if ids == nil || gradOut == nil {
		return fmt.Errorf("embfuse: feature %q: %w: nil input", e.cfg.FeatureName, tensor.ErrShape)
	}
	if want := tensor.WithLast(ids.Shape(), e.OutputDim()); !slices.Equal(gradOut.Shape(), want) {
		return fmt.Errorf("embfuse: feature %q: %w: gradient %v, want %v", e.cfg.FeatureName, tensor.ErrShape, gradOut.Shape(), want)
	}

	start := time.Now()
	err := e.fusion.backward(ids, gradOut)
	e.metrics.RecordBackward(ids.Size(), time.Since(start), err)
	if err != nil {
		return fmt.Errorf("embfuse: feature %q: %w", e.cfg.FeatureName, err)
	}
	return nil
}

// Parameters returns the trainable parameters. A frozen pretrained table is
// not included.
func (e *PretrainedEmbedding) Parameters() []*nn.Parameter {
	return e.fusion.parameters()
}

// Mode returns the fusion mode.
func (e *PretrainedEmbedding) Mode() Mode { return e.mode }

// OutputDim returns the trailing dimension of Apply's output.
func (e *PretrainedEmbedding) OutputDim() int { return e.fusion.outputDim() }

// FeatureName returns the feature this module embeds.
func (e *PretrainedEmbedding) FeatureName() string { return e.cfg.FeatureName }

// Config returns the configuration the module was built from.
func (e *PretrainedEmbedding) Config() Config { return e.cfg }

// Frozen reports whether the pretrained table is excluded from training.
func (e *PretrainedEmbedding) Frozen() bool { return !e.pretrained.Weight().RequiresGrad() }

// PretrainedTable returns the pretrained lookup table.
func (e *PretrainedEmbedding) PretrainedTable() nn.Lookup { return e.pretrained }

// IDTable returns the ID lookup table, or nil in init mode.
func (e *PretrainedEmbedding) IDTable() nn.Lookup { return e.id }

// ProjectionA returns the pretrain_dim -> embedding_dim projection used in
// sum mode, or nil.
func (e *PretrainedEmbedding) ProjectionA() nn.Projection { return e.projA }

// ProjectionB returns the concat projection, or nil.
func (e *PretrainedEmbedding) ProjectionB() nn.Projection { return e.projB }

// Close releases the memory reserved for the pretrained table. It is
// idempotent.
func (e *PretrainedEmbedding) Close() error {
	if e.closed.Swap(true) {
		return nil
	}
	e.rc.ReleaseMemory(e.reserved)
	e.reserved = 0
	return nil
}
