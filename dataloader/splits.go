package dataloader

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/hupe1980/embfuse/blobstore"
)

// Stage selects which splits Load builds.
type Stage int

const (
	// StageBoth builds train, valid and test loaders.
	StageBoth Stage = iota
	// StageTrain builds train and valid loaders.
	StageTrain
	// StageTest builds the test loader.
	StageTest
)

// ParseStage parses "both", "train" or "test".
func ParseStage(s string) (Stage, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "both":
		return StageBoth, nil
	case "train":
		return StageTrain, nil
	case "test":
		return StageTest, nil
	default:
		return 0, fmt.Errorf("dataloader: unknown stage %q (want both, train or test)", s)
	}
}

func (s Stage) String() string {
	switch s {
	case StageBoth:
		return "both"
	case StageTrain:
		return "train"
	case StageTest:
		return "test"
	default:
		return fmt.Sprintf("Stage(%d)", int(s))
	}
}

// Patterns holds the block patterns of each split, in Glob syntax.
type Patterns struct {
	Train string
	Valid string
	Test  string
}

// Splits holds the loaders built by Load. Unused splits are nil.
type Splits struct {
	Train *DataLoader
	Valid *DataLoader
	Test  *DataLoader
}

// Load discovers the blocks of every split needed by stage and counts them.
//
// The train split is required for StageBoth and StageTrain and the test split
// is required when a test pattern is set; an empty match returns ErrNoBlocks.
// A valid pattern may match nothing. Valid and test loaders never shuffle.
func Load(ctx context.Context, store blobstore.BlobStore, fm FeatureMap, stage Stage, p Patterns, optFns ...Option) (*Splits, error) {
	o := applyOptions(optFns)
	evalOpts := append(slices.Clone(optFns), WithShuffle(false))

	var s Splits
	if stage == StageBoth || stage == StageTrain {
		train, err := loadSplit(ctx, store, fm, "train", p.Train, true, optFns)
		if err != nil {
			return nil, err
		}
		s.Train = train

		if p.Valid != "" {
			valid, err := loadSplit(ctx, store, fm, "valid", p.Valid, false, evalOpts)
			if err != nil {
				return nil, err
			}
			s.Valid = valid
		}
	}

	if (stage == StageBoth || stage == StageTest) && p.Test != "" {
		test, err := loadSplit(ctx, store, fm, "test", p.Test, true, evalOpts)
		if err != nil {
			return nil, err
		}
		s.Test = test
	}

	o.logger.InfoContext(ctx, "loading data done", "stage", stage.String())
	return &s, nil
}

func loadSplit(ctx context.Context, store blobstore.BlobStore, fm FeatureMap, split, pattern string, required bool, optFns []Option) (*DataLoader, error) {
	if pattern == "" {
		return nil, fmt.Errorf("%s split: %w", split, ErrNoBlocks)
	}
	blocks, err := Glob(ctx, store, pattern)
	if err != nil {
		return nil, err
	}
	if len(blocks) == 0 && required {
		return nil, fmt.Errorf("%s split %q: %w", split, pattern, ErrNoBlocks)
	}

	d, err := New(ctx, store, fm, blocks, optFns...)
	if err != nil {
		return nil, err
	}
	d.opts.logger.InfoContext(ctx, "split loaded",
		"split", split,
		"samples", d.NumSamples(),
		"blocks", d.NumBlocks(),
	)
	return d, nil
}
