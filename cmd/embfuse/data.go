package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/hupe1980/embfuse/blobstore"
	"github.com/hupe1980/embfuse/config"
	"github.com/hupe1980/embfuse/dataloader"
)

func dataCmd() *cobra.Command {
	var (
		configPath string
		stage      string
		dir        string
	)

	cmd := &cobra.Command{
		Use:   "data",
		Short: "Count the samples and batches of the data splits in a model config",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			st, err := dataloader.ParseStage(stage)
			if err != nil {
				return err
			}
			model, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if model.Data == nil {
				return errors.New("model config has no data section")
			}
			env, err := loadEnv()
			if err != nil {
				return err
			}

			store, err := env.BlobStore(ctx)
			if err != nil {
				return err
			}
			if store == nil {
				store = blobstore.NewLocalStore(dir)
			}
			rc := env.ResourceController()
			if env.IOLimit > 0 {
				store = blobstore.NewThrottledStore(store, rc)
			}

			fm := dataloader.FeatureMap{Features: model.FeatureNames(), Labels: model.Data.Labels}
			splits, err := dataloader.Load(ctx, store, fm, st, dataloader.Patterns{
				Train: model.Data.TrainData,
				Valid: model.Data.ValidData,
				Test:  model.Data.TestData,
			},
				dataloader.WithBatchSize(model.Data.BatchSizeOrDefault()),
				dataloader.WithShuffle(model.Data.Shuffle),
				dataloader.WithSeed(env.Seed),
				dataloader.WithResourceController(rc),
				dataloader.WithLogger(env.Logger()),
			)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printSplit(out, "train", splits.Train)
			printSplit(out, "valid", splits.Valid)
			printSplit(out, "test", splits.Test)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "model.yaml", "Path to the model config")
	cmd.Flags().StringVar(&stage, "stage", "both", "Splits to load: both, train, test")
	cmd.Flags().StringVar(&dir, "dir", ".", "Directory holding the blocks when no blob store is configured")

	return cmd
}

func printSplit(out io.Writer, name string, d *dataloader.DataLoader) {
	if d == nil {
		return
	}
	fmt.Fprintf(out, "%s: samples=%d blocks=%d batches=%d\n", name, d.NumSamples(), d.NumBlocks(), d.NumBatches())
}
