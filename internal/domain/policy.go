package domain

import "math/rand"

// chooseMutator draws a mutator uniformly from entries. A drawn special
// mutator is only accepted with probability specialChance; on rejection the
// draw starts over, the special mutator included. entries always holds the
// non-special built-ins, so the loop ends.
func chooseMutator(rng *rand.Rand, entries []mutatorEntry, specialChance float64) mutatorEntry {
	for {
		entry := entries[rng.Intn(len(entries))]
		if !entry.special {
			return entry
		}

		if rng.Float64() < specialChance {
			return entry
		}
	}
}
