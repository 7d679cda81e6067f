// Package minio provides a BlobStore implementation using the MinIO client.
//
// It works with MinIO and other S3-compatible systems (Ceph, SeaweedFS,
// Garage) without pulling in the AWS SDK.
//
//	store, err := minio.New("localhost:9000", "minioadmin", "minioadmin", "ml", minio.WithPrefix("pretrained/"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	emb, err := embfuse.New(ctx, cfg, embfuse.WithBlobStore(store))
package minio
