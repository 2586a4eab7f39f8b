// Package testutil provides deterministic generators for tests.
package testutil

import (
	"fmt"
	"sync"
	"time"
)

// FixedGenerator returns predetermined identifiers for testing.
//
// This enables deterministic test execution: tests provide a known sequence
// of ids and assert exact record contents.
//
// Thread-safety: safe for concurrent use via internal mutex.
type FixedGenerator struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedGenerator creates a generator that returns ids in order.
//
// Example:
//
//	gen := testutil.NewFixedGenerator("batch-1", "insp-1")
//	gen.Generate() // "batch-1"
//	gen.Generate() // "insp-1"
//	gen.Generate() // panic: all ids exhausted
func NewFixedGenerator(ids ...string) *FixedGenerator {
	return &FixedGenerator{ids: ids}
}

// Generate returns the next predetermined id.
// Panics if all ids have been consumed - fail-fast for test misconfiguration.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.ids) {
		panic("FixedGenerator: all ids exhausted")
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}

// SeqGenerator returns ids with a prefix and an incrementing counter:
// "insp-1", "insp-2", ... Useful when a test doesn't care about exact ids
// but needs them unique. Safe for concurrent use.
type SeqGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSeqGenerator creates a SeqGenerator with the given prefix.
func NewSeqGenerator(prefix string) *SeqGenerator {
	return &SeqGenerator{prefix: prefix}
}

// Generate returns the next id in the sequence.
func (g *SeqGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}

// FixedTime returns a now-func pinned to a known instant so timestamps in
// assertions are stable.
func FixedTime(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
