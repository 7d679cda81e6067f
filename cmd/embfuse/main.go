// Package main is the entry point for the embfuse CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hupe1980/embfuse/blobstore"
	"github.com/hupe1980/embfuse/config"
)

// Version information set via ldflags during build.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "embfuse",
		Short: "Pretrained embedding stores and fusion",
		Long: `embfuse builds keyed-array stores of pretrained embeddings and fuses them
with trainable ID embeddings.

Environment variables:
  EMBFUSE_STORE        Blob store: local, s3, minio (default: local)
  EMBFUSE_ROOT         Root directory of the local store
  EMBFUSE_BUCKET       S3 or MinIO bucket
  EMBFUSE_PREFIX       Key prefix inside the bucket
  EMBFUSE_ENDPOINT     MinIO host or custom S3 endpoint
  EMBFUSE_ACCESS_KEY   MinIO access key
  EMBFUSE_SECRET_KEY   MinIO secret key
  EMBFUSE_REGION       Bucket region
  EMBFUSE_SECURE       Use TLS for MinIO (default: false)
  EMBFUSE_LOG_LEVEL    Log level: DEBUG, INFO, WARN, ERROR (default: INFO)
  EMBFUSE_LOG_FORMAT   Log format: text, json (default: text)
  EMBFUSE_SEED         Seed for ID tables and projections (default: 2024)
  EMBFUSE_MEMORY_LIMIT Byte budget for pretrained tables (default: unlimited)
  EMBFUSE_IO_LIMIT     Blob read limit in bytes/s (default: unlimited)
  EMBFUSE_WORKERS      Concurrent block reads (default: 1)`,
		SilenceUsage: true,
	}

	cmd.AddCommand(packCmd())
	cmd.AddCommand(inspectCmd())
	cmd.AddCommand(applyCmd())
	cmd.AddCommand(dataCmd())
	cmd.AddCommand(versionCmd())

	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "embfuse version %s\n", version)
			fmt.Fprintf(out, "  commit: %s\n", commit)
			fmt.Fprintf(out, "  built:  %s\n", date)
		},
	}
}

// loadEnv loads EMBFUSE_* settings.
func loadEnv() (config.Env, error) {
	env, err := config.LoadEnv()
	if err != nil {
		return config.Env{}, fmt.Errorf("load environment: %w", err)
	}
	return env, nil
}

// resolveStore returns the configured blob store and the blob name for path.
// Without a remote store or EMBFUSE_ROOT, path is a local file and its
// directory becomes the store root.
func resolveStore(ctx context.Context, env config.Env, path string) (blobstore.BlobStore, string, error) {
	store, err := env.BlobStore(ctx)
	if err != nil {
		return nil, "", err
	}
	if store != nil {
		return store, path, nil
	}
	return blobstore.NewLocalStore(filepath.Dir(path)), filepath.Base(path), nil
}
