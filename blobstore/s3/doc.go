// Package s3 provides an S3 implementation of the blobstore.BlobStore interface.
//
// # Usage
//
//	store, err := s3.New(ctx, "ml-artifacts",
//	    s3.WithPrefix("pretrained/"),
//	    s3.WithRegion("eu-central-1"),
//	)
//
//	emb, err := embfuse.New(ctx, cfg, embfuse.WithBlobStore(store))
//
// # Features
//
//   - Range reads for partial fetches of array payloads
//   - Multipart uploads when authoring large stores
//   - Automatic pagination for listing data blocks
//   - Configurable prefix for multi-tenant isolation
package s3
