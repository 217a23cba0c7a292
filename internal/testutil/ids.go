package testutil

import (
	"fmt"
	"sync"
)

// SequenceGenerator produces ids "<prefix>-0001", "<prefix>-0002", ...
//
// Unlike notify.FixedGenerator it never runs out, which suits scenarios
// whose write count is not known up front. The same scenario with a fresh
// SequenceGenerator produces byte-identical traces.
//
// Thread-safety: SequenceGenerator is safe for concurrent use.
type SequenceGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequenceGenerator creates a generator. An empty prefix uses "change".
func NewSequenceGenerator(prefix string) *SequenceGenerator {
	if prefix == "" {
		prefix = "change"
	}
	return &SequenceGenerator{prefix: prefix}
}

// Generate returns the next id.
func (g *SequenceGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}
