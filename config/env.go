package config

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kelseyhightower/envconfig"

	"github.com/hupe1980/embfuse"
	"github.com/hupe1980/embfuse/blobstore"
	"github.com/hupe1980/embfuse/blobstore/minio"
	"github.com/hupe1980/embfuse/blobstore/s3"
	"github.com/hupe1980/embfuse/resource"
)

// EnvPrefix is the prefix of every environment variable read by LoadEnv.
const EnvPrefix = "EMBFUSE"

// Env holds environment-based configuration.
// Field names map to environment variables with the EMBFUSE_ prefix removed.
type Env struct {
	// Store selects the blob store backing pretrained paths (local, s3 or minio).
	// Env: STORE (default: local)
	Store string `envconfig:"STORE" default:"local"`

	// Root is the directory of the local store. Empty means paths are used as given.
	// Env: ROOT
	Root string `envconfig:"ROOT"`

	// Bucket is the S3 or MinIO bucket.
	// Env: BUCKET
	Bucket string `envconfig:"BUCKET"`

	// Prefix is prepended to every blob name in the bucket.
	// Env: PREFIX
	Prefix string `envconfig:"PREFIX"`

	// Endpoint is the MinIO host or a custom S3 endpoint URL.
	// Env: ENDPOINT
	Endpoint string `envconfig:"ENDPOINT"`

	// AccessKey is the MinIO access key.
	// Env: ACCESS_KEY
	AccessKey string `envconfig:"ACCESS_KEY"`

	// SecretKey is the MinIO secret key.
	// Env: SECRET_KEY
	SecretKey string `envconfig:"SECRET_KEY"`

	// Region is the bucket region.
	// Env: REGION
	Region string `envconfig:"REGION"`

	// Secure enables TLS for MinIO.
	// Env: SECURE (default: false)
	Secure bool `envconfig:"SECURE" default:"false"`

	// LogLevel is the log verbosity level.
	// Env: LOG_LEVEL (default: INFO)
	LogLevel string `envconfig:"LOG_LEVEL" default:"INFO"`

	// LogFormat is the log output format (text or json).
	// Env: LOG_FORMAT (default: text)
	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`

	// Seed seeds the ID tables and projections.
	// Env: SEED (default: 2024)
	Seed int64 `envconfig:"SEED" default:"2024"`

	// MemoryLimit caps the bytes held by pretrained tables. 0 means unlimited.
	// Env: MEMORY_LIMIT (default: 0)
	MemoryLimit int64 `envconfig:"MEMORY_LIMIT" default:"0"`

	// IOLimit caps blob reads in bytes per second. 0 means unlimited.
	// Env: IO_LIMIT (default: 0)
	IOLimit int64 `envconfig:"IO_LIMIT" default:"0"`

	// Workers is the number of blocks the dataloader inspects concurrently.
	// Env: WORKERS (default: 1)
	Workers int `envconfig:"WORKERS" default:"1"`
}

// LoadEnv loads configuration from EMBFUSE_* environment variables.
func LoadEnv() (Env, error) {
	var env Env
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return Env{}, fmt.Errorf("config: environment: %w", err)
	}
	return env, nil
}

// Level parses LogLevel. Unknown values select info.
func (e Env) Level() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(e.LogLevel))); err != nil {
		return slog.LevelInfo
	}
	return level
}

// Logger builds the logger selected by LogFormat and LogLevel.
func (e Env) Logger() *embfuse.Logger {
	if strings.EqualFold(strings.TrimSpace(e.LogFormat), "json") {
		return embfuse.NewJSONLogger(e.Level())
	}
	return embfuse.NewTextLogger(e.Level())
}

// ResourceController builds the controller for MemoryLimit, IOLimit and
// Workers.
func (e Env) ResourceController() *resource.Controller {
	return resource.NewController(resource.Config{
		MemoryLimitBytes:     e.MemoryLimit,
		MaxBackgroundWorkers: int64(e.Workers),
		IOLimitBytesPerSec:   e.IOLimit,
	})
}

// BlobStore builds the store selected by Store. A local store without Root
// returns nil, so pretrained paths are read as plain file paths.
func (e Env) BlobStore(ctx context.Context) (blobstore.BlobStore, error) {
	switch strings.ToLower(strings.TrimSpace(e.Store)) {
	case "", "local":
		if e.Root == "" {
			return nil, nil
		}
		return blobstore.NewLocalStore(e.Root), nil
	case "s3":
		if e.Bucket == "" {
			return nil, fmt.Errorf("config: %s_BUCKET is required for the s3 store", EnvPrefix)
		}
		opts := []s3.Option{s3.WithPrefix(e.Prefix)}
		if e.Region != "" {
			opts = append(opts, s3.WithRegion(e.Region))
		}
		if e.Endpoint != "" {
			opts = append(opts, s3.WithEndpoint(e.Endpoint))
		}
		store, err := s3.New(ctx, e.Bucket, opts...)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "minio":
		if e.Bucket == "" || e.Endpoint == "" {
			return nil, fmt.Errorf("config: %s_BUCKET and %s_ENDPOINT are required for the minio store", EnvPrefix, EnvPrefix)
		}
		opts := []minio.Option{minio.WithPrefix(e.Prefix)}
		if e.Secure {
			opts = append(opts, minio.WithSecure())
		}
		if e.Region != "" {
			opts = append(opts, minio.WithRegion(e.Region))
		}
		store, err := minio.New(e.Endpoint, e.AccessKey, e.SecretKey, e.Bucket, opts...)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("config: unknown store %q (want local, s3 or minio)", e.Store)
	}
}

// Options translates the environment into embfuse options. rc may be nil.
// With an IO limit the store is wrapped in a blobstore.ThrottledStore.
func (e Env) Options(ctx context.Context, rc *resource.Controller) ([]embfuse.Option, error) {
	store, err := e.BlobStore(ctx)
	if err != nil {
		return nil, err
	}
	opts := []embfuse.Option{
		embfuse.WithLogger(e.Logger()),
		embfuse.WithSeed(e.Seed),
	}
	if rc != nil {
		opts = append(opts, embfuse.WithResourceController(rc))
		if store != nil && e.IOLimit > 0 {
			store = blobstore.NewThrottledStore(store, rc)
		}
	}
	if store != nil {
		opts = append(opts, embfuse.WithBlobStore(store))
	}
	return opts, nil
}
