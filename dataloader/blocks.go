package dataloader

import (
	"context"
	"fmt"
	"path"
	"slices"
	"strconv"
	"strings"

	"github.com/hupe1980/embfuse/blobstore"
)

// Glob returns the blob names in store matching pattern (path.Match syntax).
// More than one match is ordered by part number: "train_part_2.ekas" sorts
// before "train_part_10.ekas".
func Glob(ctx context.Context, store blobstore.BlobStore, pattern string) ([]string, error) {
	if _, err := path.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("dataloader: pattern %q: %w", pattern, err)
	}

	prefix := pattern
	if i := strings.IndexAny(pattern, `*?[\`); i >= 0 {
		prefix = pattern[:i]
	}
	names, err := store.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("dataloader: list %q: %w", prefix, err)
	}

	var blocks []string
	for _, name := range names {
		if ok, _ := path.Match(pattern, name); ok {
			blocks = append(blocks, name)
		}
	}
	if len(blocks) > 1 {
		if err := sortByPart(blocks); err != nil {
			return nil, err
		}
	}
	return blocks, nil
}

// PartNumber extracts N from names like "xx_part_N.ext".
func PartNumber(name string) (int, error) {
	base := path.Base(name)
	tail := base[strings.LastIndexByte(base, '_')+1:]
	if i := strings.IndexByte(tail, '.'); i >= 0 {
		tail = tail[:i]
	}
	n, err := strconv.Atoi(tail)
	if err != nil {
		return 0, fmt.Errorf("%w: %q has no part number", ErrInvalidBlock, name)
	}
	return n, nil
}

func sortByPart(names []string) error {
	parts := make(map[string]int, len(names))
	for _, name := range names {
		n, err := PartNumber(name)
		if err != nil {
			return err
		}
		parts[name] = n
	}
	slices.SortStableFunc(names, func(a, b string) int {
		return parts[a] - parts[b]
	})
	return nil
}
