package resampling

import (
	"math/rand"
)

// Streams implements ports.RNGPort. Every repetition gets its own generator
// derived deterministically from the base seed, so repetitions are
// independently reproducible and parallelizable without shared mutable
// state.
type Streams struct{}

// NewStreams creates the stream factory.
func NewStreams() *Streams {
	return &Streams{}
}

// SeededStream creates a deterministic generator for a named operation.
func (s *Streams) SeededStream(name string, seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed + int64(hashString(name))))
}

// Stream derives a generator for a specific stage and repetition.
func (s *Streams) Stream(runID, stageName string, repetition int, baseSeed int64) *rand.Rand {
	seed := baseSeed
	if runID != "" {
		seed += int64(hashString(runID))
	}
	if stageName != "" {
		seed += int64(hashString(stageName))
	}
	seed += int64(repetition) * 0x9E3779B9
	return rand.New(rand.NewSource(seed))
}

// hashString creates a simple hash for deterministic seeding (djb2).
func hashString(s string) uint32 {
	var hash uint32 = 5381
	for _, c := range s {
		hash = ((hash << 5) + hash) + uint32(c)
	}
	return hash
}
