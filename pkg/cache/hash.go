package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// FormatVersion is bumped whenever the encoded reduction changes shape, so
// stale entries from older builds become misses.
const FormatVersion = 1

// hashKey generates a cache key by hashing the components.
// The key format is: prefix:hash(parts...)
func hashKey(prefix string, parts ...any) string {
	data, _ := json.Marshal(parts)
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%s:%s", prefix, hex.EncodeToString(hash[:]))
}

// Hash computes a SHA-256 hash of the input data.
// Returns the full 64-character hex string.
func Hash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// ReductionKey returns the cache key for the reduction of a document whose
// bytes hash to docHash.
func ReductionKey(docHash string) string {
	return hashKey("reduction", FormatVersion, docHash)
}
