package embfuse

import (
	"errors"
	"fmt"
)

var (
	// ErrConfig is matched by every *ConfigError.
	ErrConfig = errors.New("embfuse: invalid configuration")
	// ErrStorage is matched by every *StorageError.
	ErrStorage = errors.New("embfuse: storage error")
	// ErrShapeMismatch is matched by every *ShapeMismatchError.
	ErrShapeMismatch = errors.New("embfuse: shape mismatch")
	// ErrClosed is returned when using a closed PretrainedEmbedding.
	ErrClosed = errors.New("embfuse: closed")
)

// ConfigError indicates an invalid fuser configuration.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ConfigError struct {
	Feature string
	Field   string
	Reason  string
	cause   error
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("embfuse: feature %q: %s", e.Feature, e.Reason)
	}
	return fmt.Sprintf("embfuse: feature %q: %s: %s", e.Feature, e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error { return e.cause }

// Is makes errors.Is(err, ErrConfig) report true.
func (e *ConfigError) Is(target error) bool { return target == ErrConfig }

// StorageError indicates that the pretrained array could not be loaded.
//
// The original underlying error (blobstore.ErrNotFound,
// arraystore.ErrKeyNotFound, arraystore.ErrCorrupt, ...) can be accessed via
// errors.Unwrap.
type StorageError struct {
	Path  string
	Key   string
	cause error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("embfuse: load %q from %s: %v", e.Key, e.Path, e.cause)
}

func (e *StorageError) Unwrap() error { return e.cause }

// Is makes errors.Is(err, ErrStorage) report true.
func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// ShapeMismatchError indicates that the stored embedding width differs from
// the configured pretrain_dim.
type ShapeMismatchError struct {
	Feature  string
	Expected int
	Actual   int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("%s's pretrain_dim is not correct: expected %d, got %d", e.Feature, e.Expected, e.Actual)
}

// Is makes errors.Is(err, ErrShapeMismatch) report true.
func (e *ShapeMismatchError) Is(target error) bool { return target == ErrShapeMismatch }

func configErr(feature, field, format string, args ...any) *ConfigError {
	return &ConfigError{Feature: feature, Field: field, Reason: fmt.Sprintf(format, args...)}
}
