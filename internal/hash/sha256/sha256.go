// Package sha256 fingerprints snapshot bodies.
package sha256

import (
	"crypto/sha256"
	"encoding/hex"
)

// Prefix marks the digest algorithm in returned hashes.
const Prefix = "sha256:"

// Hasher returns "sha256:<hex>" digests.
type Hasher struct{}

// New returns a Hasher.
func New() Hasher {
	return Hasher{}
}

// Hash digests data.
func (Hasher) Hash(data []byte) (string, error) {
	sum := sha256.Sum256(data)
	return Prefix + hex.EncodeToString(sum[:]), nil
}
