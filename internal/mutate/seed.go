// Package mutate implements the deterministic artifact transforms used for
// anti-memorization (seeded geometry/order randomization of SPICE netlists)
// and injected-bug scenarios (single polarity-swap fault injection across
// the three artifact grammars).
//
// Every transform is a pure function of (text, seed): no shared state, no
// I/O, safe to call from any number of workers without synchronization.
package mutate

import (
	"fmt"
	"hash/fnv"
)

// DeriveSeed folds stable run inputs into a 64-bit seed. The purpose tag
// ("randomize", "bug") keeps independent mutation streams disjoint: the same
// item and question never share a seed across purposes.
func DeriveSeed(itemSeed int64, itemName, questionID, purpose string) int64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%d|%s|%s|%s", itemSeed, itemName, questionID, purpose)
	return int64(h.Sum64())
}
