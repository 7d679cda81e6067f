package embfuse

// FeatureSpec is the per-feature part of the feature map.
type FeatureSpec struct {
	// VocabSize is the number of distinct IDs, padding included.
	VocabSize int
	// FreezeEmb keeps the pretrained table fixed during training.
	FreezeEmb bool
	// PaddingIdx, if set, is the row that is always zero.
	PaddingIdx *int
}

// Config describes one PretrainedEmbedding.
type Config struct {
	// FeatureName is also the key of the array in the store.
	FeatureName string
	Feature     FeatureSpec
	// PretrainedPath is a local file path, or a blob name with WithBlobStore.
	PretrainedPath string
	EmbeddingDim   int
	PretrainDim    int
	// Usage is the fusion mode: "init" (default), "sum" or "concat".
	Usage string
}

func (c Config) validate(strict bool) (Mode, error) {
	name := c.FeatureName

	mode, err := ParseMode(c.Usage)
	if err != nil {
		return 0, &ConfigError{Feature: name, Field: "pretrain_usage", Reason: err.Error(), cause: err}
	}
	if name == "" {
		return 0, configErr(name, "name", "must not be empty")
	}
	if c.Feature.VocabSize <= 0 {
		return 0, configErr(name, "vocab_size", "must be positive, got %d", c.Feature.VocabSize)
	}
	if c.EmbeddingDim <= 0 {
		return 0, configErr(name, "embedding_dim", "must be positive, got %d", c.EmbeddingDim)
	}
	if c.PretrainDim <= 0 {
		return 0, configErr(name, "pretrain_dim", "must be positive, got %d", c.PretrainDim)
	}
	if c.PretrainedPath == "" {
		return 0, configErr(name, "pretrained_path", "must not be empty")
	}
	if p := c.Feature.PaddingIdx; p != nil && (*p < 0 || *p >= c.Feature.VocabSize) {
		return 0, configErr(name, "padding_idx", "%d outside [0, %d)", *p, c.Feature.VocabSize)
	}
	if strict && mode == ModeInit && c.PretrainDim != c.EmbeddingDim {
		return 0, configErr(name, "pretrain_dim", "init mode requires pretrain_dim (%d) == embedding_dim (%d)", c.PretrainDim, c.EmbeddingDim)
	}
	return mode, nil
}

// Validate checks cfg without touching storage.
func (c Config) Validate() error {
	_, err := c.validate(false)
	return err
}
