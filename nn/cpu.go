package nn

import (
	"math/rand"
	"sync"
)

var _ Factory = (*CPU)(nil)

// CPU is the default Factory. Allocations draw from a seeded RNG so model
// construction is reproducible.
type CPU struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewCPU returns a CPU factory seeded with seed.
func NewCPU(seed int64) *CPU {
	return &CPU{rng: rand.New(rand.NewSource(seed))} // nolint gosec
}

// NewLookup implements Factory.
func (c *CPU) NewLookup(name string, vocab, dim int, paddingIdx *int) (Lookup, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return NewEmbedding(name, vocab, dim, paddingIdx, c.rng)
}

// NewProjection implements Factory.
func (c *CPU) NewProjection(name string, in, out int) (Projection, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return NewLinear(name, in, out, c.rng)
}
