package embfuse_test

import (
	"context"
	"fmt"
	"log"

	"github.com/hupe1980/embfuse"
	"github.com/hupe1980/embfuse/arraystore"
	"github.com/hupe1980/embfuse/blobstore"
	"github.com/hupe1980/embfuse/nn"
	"github.com/hupe1980/embfuse/tensor"
)

func Example() {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	// A pretrained table for item_id: 4 items, 3 dims.
	b := arraystore.NewBuilder()
	if err := b.AddFloat32("item_id", []int{4, 3}, []float32{
		9, 9, 9,
		1, 0, 0,
		0, 1, 0,
		0, 0, 1,
	}); err != nil {
		log.Fatal(err)
	}
	if err := b.Save(ctx, store, "pretrained.ekas"); err != nil {
		log.Fatal(err)
	}

	pad := 0
	emb, err := embfuse.New(ctx, embfuse.Config{
		FeatureName:    "item_id",
		Feature:        embfuse.FeatureSpec{VocabSize: 4, FreezeEmb: true, PaddingIdx: &pad},
		PretrainedPath: "pretrained.ekas",
		EmbeddingDim:   3,
		PretrainDim:    3,
		Usage:          "init",
	}, embfuse.WithBlobStore(store))
	if err != nil {
		log.Fatal(err)
	}
	defer emb.Close()

	out, err := emb.Apply(tensor.MustIDs([]int64{2, 0}))
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(out.Shape())
	fmt.Println(out.Row(0), out.Row(1))
	fmt.Println(emb.Frozen(), len(emb.Parameters()))
	// Output:
	// [2 3]
	// [0 1 0] [0 0 0]
	// true 0
}

func ExampleNew_concat() {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	b := arraystore.NewBuilder(arraystore.WithCompression(arraystore.CompressionLZ4))
	if err := b.AddFloat32("user_id", []int{10, 8}, make([]float32, 80)); err != nil {
		log.Fatal(err)
	}
	if err := b.Save(ctx, store, "users.ekas"); err != nil {
		log.Fatal(err)
	}

	emb, err := embfuse.New(ctx, embfuse.Config{
		FeatureName:    "user_id",
		Feature:        embfuse.FeatureSpec{VocabSize: 10},
		PretrainedPath: "users.ekas",
		EmbeddingDim:   4,
		PretrainDim:    8,
		Usage:          "concat",
	}, embfuse.WithBlobStore(store), embfuse.WithFactory(nn.NewCPU(42)))
	if err != nil {
		log.Fatal(err)
	}
	defer emb.Close()

	ids := tensor.MustIDs([]int64{1, 2, 3, 4, 5, 6}, 2, 3)
	out, err := emb.Apply(ids)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(emb.Mode(), out.Shape(), emb.ProjectionB().InDim())
	// Output:
	// concat [2 3 4] 12
}
