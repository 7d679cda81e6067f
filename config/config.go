// Package config loads model configuration documents and environment
// overrides for the embfuse CLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/hupe1980/embfuse"
	"github.com/hupe1980/embfuse/codec"
)

// Default values. Struct tag defaults in env.go must match these.
const (
	DefaultStore        = "local"
	DefaultLogLevel     = "INFO"
	DefaultLogFormat    = "text"
	DefaultSeed         = 2024
	DefaultWorkers      = 1
	DefaultBatchSize    = 32
	DefaultPretrainMode = "init"
)

// ErrInvalidModel is wrapped by every structural model error.
var ErrInvalidModel = errors.New("config: invalid model")

// Feature is one entry of the feature map.
type Feature struct {
	Name       string `yaml:"name"`
	VocabSize  int    `yaml:"vocab_size"`
	FreezeEmb  bool   `yaml:"freeze_emb"`
	PaddingIdx *int   `yaml:"padding_idx,omitempty"`

	PretrainDim   int    `yaml:"pretrain_dim"`
	PretrainUsage string `yaml:"pretrain_usage,omitempty"`
	// PretrainedPath overrides the model-level store for this feature.
	PretrainedPath string `yaml:"pretrained_path,omitempty"`
}

// Data names the block files read by the dataloader package.
// Each pattern is a glob over blob names such as "train_part_*.ekas".
type Data struct {
	TrainData string   `yaml:"train_data,omitempty"`
	ValidData string   `yaml:"valid_data,omitempty"`
	TestData  string   `yaml:"test_data,omitempty"`
	Labels    []string `yaml:"labels"`
	BatchSize int      `yaml:"batch_size,omitempty"`
	Shuffle   bool     `yaml:"shuffle"`
}

// Model is the top-level configuration document.
type Model struct {
	EmbeddingDim   int       `yaml:"embedding_dim"`
	PretrainedPath string    `yaml:"pretrained_path,omitempty"`
	Features       []Feature `yaml:"features"`
	Data           *Data     `yaml:"data,omitempty"`
}

// Load reads and validates the YAML document at path. Pretrained paths are
// used as written: local paths relative to the working directory, or blob
// names when a remote store is configured.
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return m, nil
}

// Parse decodes and validates a YAML document.
func Parse(data []byte) (*Model, error) {
	var m Model
	if err := (codec.YAML{}).Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks the structure of the document and every feature entry.
func (m *Model) Validate() error {
	if len(m.Features) == 0 {
		return fmt.Errorf("%w: no features", ErrInvalidModel)
	}
	seen := make(map[string]struct{}, len(m.Features))
	for _, f := range m.Features {
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("%w: duplicate feature %q", ErrInvalidModel, f.Name)
		}
		seen[f.Name] = struct{}{}
	}
	for _, cfg := range m.FuserConfigs() {
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	if d := m.Data; d != nil {
		if d.BatchSize < 0 {
			return fmt.Errorf("%w: batch_size must not be negative, got %d", ErrInvalidModel, d.BatchSize)
		}
		if len(d.Labels) == 0 {
			return fmt.Errorf("%w: data section needs at least one label", ErrInvalidModel)
		}
	}
	return nil
}

// FuserConfigs returns one embfuse.Config per feature, in document order.
func (m *Model) FuserConfigs() []embfuse.Config {
	out := make([]embfuse.Config, 0, len(m.Features))
	for _, f := range m.Features {
		path := f.PretrainedPath
		if path == "" {
			path = m.PretrainedPath
		}
		usage := f.PretrainUsage
		if strings.TrimSpace(usage) == "" {
			usage = DefaultPretrainMode
		}
		out = append(out, embfuse.Config{
			FeatureName: f.Name,
			Feature: embfuse.FeatureSpec{
				VocabSize:  f.VocabSize,
				FreezeEmb:  f.FreezeEmb,
				PaddingIdx: f.PaddingIdx,
			},
			PretrainedPath: path,
			EmbeddingDim:   m.EmbeddingDim,
			PretrainDim:    f.PretrainDim,
			Usage:          usage,
		})
	}
	return out
}

// FeatureNames returns the feature names in document order.
func (m *Model) FeatureNames() []string {
	names := make([]string, len(m.Features))
	for i, f := range m.Features {
		names[i] = f.Name
	}
	return names
}

// BatchSizeOrDefault returns the configured batch size or DefaultBatchSize.
func (d *Data) BatchSizeOrDefault() int {
	if d == nil || d.BatchSize == 0 {
		return DefaultBatchSize
	}
	return d.BatchSize
}
