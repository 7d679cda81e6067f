// Package embfuse fuses a pretrained feature embedding with a from-scratch ID
// embedding, the building block CTR and recommendation models use to inject
// externally trained item or user vectors.
//
// A PretrainedEmbedding owns a pretrained lookup table, loaded once from a
// keyed-array store, and combines it with an ID table according to one of
// three modes:
//
//   - init: the pretrained vector is the output.
//   - sum: the pretrained vector, projected to embedding_dim when the widths
//     differ, is added to the ID vector.
//   - concat: both vectors are concatenated and projected to embedding_dim.
//
// # Quick Start
//
//	pad := 0
//	emb, err := embfuse.New(ctx, embfuse.Config{
//	    FeatureName:    "item_id",
//	    Feature:        embfuse.FeatureSpec{VocabSize: 10000, FreezeEmb: true, PaddingIdx: &pad},
//	    PretrainedPath: "data/pretrained.ekas",
//	    EmbeddingDim:   16,
//	    PretrainDim:    64,
//	    Usage:          "sum",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer emb.Close()
//
//	out, err := emb.Apply(tensor.MustIDs([]int64{3, 17, 0}))
//
// # Storage
//
// By default the pretrained path is read from the local file system. Any
// blobstore.BlobStore (S3, MinIO, in-memory) can be injected with
// WithBlobStore, in which case the path names a blob in that store.
//
// # Runtime
//
// Tables and projections are allocated through an nn.Factory. The default is
// the seeded CPU runtime from package nn; other runtimes plug in with
// WithFactory.
//
// # Training
//
// Backward routes an upstream gradient into the parameter gradient buffers.
// A frozen pretrained table never accumulates gradient and is not returned by
// Parameters, so an optimizer step leaves it unchanged.
package embfuse
