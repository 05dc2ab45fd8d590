// Package digest computes stable content hashes used as deduplication
// identities across notepub. Two payloads with the same bytes always map to
// the same digest, so upload queues and blob stores can treat the digest as
// the content's address.
package digest

import (
	"crypto/sha256"
	"encoding/hex"
)

// Sum returns the SHA-256 hex digest of b.
func Sum(b []byte) string {
	h := sha256.Sum256(b)
	return hex.EncodeToString(h[:])
}

// SumString returns the SHA-256 hex digest of s.
func SumString(s string) string {
	return Sum([]byte(s))
}
