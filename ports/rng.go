package ports

import (
	"math/rand"
)

// RNGPort provides seeded random number generation for deterministic
// operations. Every repetition (split, permutation) receives its own stream;
// a shared mutable generator is never handed to concurrent workers.
type RNGPort interface {
	// SeededStream creates a deterministic generator for a named operation.
	SeededStream(name string, seed int64) *rand.Rand

	// Stream derives a deterministic generator for a specific stage and
	// repetition, so identical runs replay identical permutations.
	Stream(runID, stageName string, repetition int, baseSeed int64) *rand.Rand
}
