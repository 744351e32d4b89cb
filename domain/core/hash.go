package core

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Hash represents a cryptographic hash
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// IsEmpty checks if the hash is empty
func (h Hash) IsEmpty() bool {
	return h == ""
}

// Equals checks if two hashes are equal
func (h Hash) Equals(other Hash) bool {
	return h == other
}

// ComputeConfigHash produces a deterministic hash of ordered key/value pairs.
// Callers must pass pairs in a stable order; the hash is order-sensitive.
func ComputeConfigHash(pairs ...string) Hash {
	var data strings.Builder
	for _, p := range pairs {
		data.WriteString(p)
		data.WriteString("|")
	}
	return NewHash([]byte(data.String()))
}

// ComputeRunFingerprint combines the inputs that determine a run's output.
// Two runs with equal fingerprints must have produced identical score series.
func ComputeRunFingerprint(configHash Hash, seed int64, scoreDigest string) Hash {
	return NewHash([]byte(fmt.Sprintf("%s|%d|%s", configHash, seed, scoreDigest)))
}
