package embfuse

import (
	"hash/fnv"
	"log/slog"

	"github.com/hupe1980/embfuse/blobstore"
	"github.com/hupe1980/embfuse/nn"
	"github.com/hupe1980/embfuse/resource"
)

type options struct {
	logger           *Logger
	metricsCollector MetricsCollector
	store            blobstore.BlobStore
	loader           ArrayLoader
	factory          nn.Factory
	seed             int64
	strictDims       bool
	rc               *resource.Controller
}

// Option configures New.
type Option func(*options)

func applyOptions(optFns []Option) options {
	o := options{
		logger:           NoopLogger(),
		metricsCollector: NoopMetricsCollector{},
		seed:             2024,
	}
	for _, fn := range optFns {
		fn(&o)
	}
	if o.loader == nil {
		o.loader = &StoreLoader{Store: o.store}
	}
	return o
}

// featureSeed mixes the feature name into seed so features built with the
// same options start from different weights.
func featureSeed(seed int64, feature string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(feature))
	return seed ^ int64(h.Sum64())
}

// WithLogger configures structured logging. Pass nil to keep the no-op logger.
//
// Example:
//
//	emb, _ := embfuse.New(ctx, cfg, embfuse.WithLogger(embfuse.NewJSONLogger(slog.LevelDebug)))
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetricsCollector configures a metrics collector.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &embfuse.BasicMetricsCollector{}
//	emb, _ := embfuse.New(ctx, cfg, embfuse.WithMetricsCollector(metrics))
//	fmt.Println(metrics.GetStats().ApplyCount)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithBlobStore reads the pretrained path as a blob name in store instead of
// a local file path. Ignored when WithArrayLoader is also given.
func WithBlobStore(store blobstore.BlobStore) Option {
	return func(o *options) {
		o.store = store
	}
}

// WithArrayLoader replaces the keyed-array store reader.
func WithArrayLoader(l ArrayLoader) Option {
	return func(o *options) {
		o.loader = l
	}
}

// WithFactory injects the tensor runtime used to allocate tables and
// projections. Defaults to an nn.CPU seeded from WithSeed and the feature
// name.
func WithFactory(f nn.Factory) Option {
	return func(o *options) {
		o.factory = f
	}
}

// WithSeed seeds the default CPU runtime. Each feature derives its own
// stream from the seed and its name.
func WithSeed(seed int64) Option {
	return func(o *options) {
		o.seed = seed
	}
}

// WithStrictDims rejects init mode when pretrain_dim differs from
// embedding_dim. By default the mismatch is only logged and the output width
// is pretrain_dim.
func WithStrictDims() Option {
	return func(o *options) {
		o.strictDims = true
	}
}

// WithResourceController reserves the pretrained table's memory from rc.
// The reservation is released by Close.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.rc = rc
	}
}

// WithLogLevel installs a text logger on stderr at the given level.
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}
