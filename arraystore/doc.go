// Package arraystore reads and writes keyed-array stores: a single blob
// holding named, row-major arrays of float32, float16 or int64 values.
//
// Layout (little-endian):
//
//	magic "EKAS" | version u16 | flags u16 | header length u64 | header | payload
//
// The header is a JSON document describing every array (dtype, shape,
// compression and its byte range within the payload). Payloads are stored
// raw or compressed with LZ4 or ZSTD.
//
// Pretrained embedding tables are stored as 2-D float arrays keyed by the
// feature name:
//
//	b := arraystore.NewBuilder(arraystore.WithCompression(arraystore.CompressionZSTD))
//	_ = b.AddFloat32("item_id", []int{vocab, dim}, rows)
//	_ = b.Save(ctx, store, "pretrained.ekas")
//
//	r, _ := arraystore.Open(ctx, store, "pretrained.ekas")
//	defer r.Close()
//	arr, _ := r.Read(ctx, "item_id")
//	table, _ := arr.Tensor()
package arraystore
