package embfuse

import (
	"fmt"
	"strings"
)

// Mode selects how the pretrained and ID embeddings are fused.
type Mode int

const (
	// ModeInit outputs the pretrained embedding alone.
	ModeInit Mode = iota
	// ModeSum adds the (optionally projected) pretrained embedding to the ID embedding.
	ModeSum
	// ModeConcat concatenates both embeddings and projects them to embedding_dim.
	ModeConcat
)

// ParseMode parses a pretrain_usage value. The empty string selects ModeInit.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "init":
		return ModeInit, nil
	case "sum":
		return ModeSum, nil
	case "concat":
		return ModeConcat, nil
	default:
		return 0, fmt.Errorf("unknown pretrain_usage %q (want init, sum or concat)", s)
	}
}

func (m Mode) String() string {
	switch m {
	case ModeInit:
		return "init"
	case ModeSum:
		return "sum"
	case ModeConcat:
		return "concat"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}
