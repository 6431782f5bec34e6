package testutil

import (
	"fmt"
	"sync"
)

// FixedRunIDs generates predictable run ids: prefix-1, prefix-2, ...
//
// This enables golden comparison of recorded run history. Implements
// store.RunIDGenerator.
//
// Thread-safety: safe for concurrent use.
type FixedRunIDs struct {
	mu     sync.Mutex
	prefix string
	seq    int
}

// NewFixedRunIDs creates a generator. If prefix is empty, "run" is used.
func NewFixedRunIDs(prefix string) *FixedRunIDs {
	if prefix == "" {
		prefix = "run"
	}
	return &FixedRunIDs{prefix: prefix}
}

// Generate returns the next id.
func (g *FixedRunIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	return fmt.Sprintf("%s-%d", g.prefix, g.seq)
}

// Reset restarts the sequence, so a scenario can be replayed with
// identical ids.
func (g *FixedRunIDs) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq = 0
}
