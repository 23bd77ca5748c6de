// Package cache memoizes formatter output keyed by a digest of its input.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache stores values by key. Implementations are safe for concurrent use.
type Cache interface {
	// Get returns the value stored under key. The bool reports whether it
	// was present.
	Get(key string) (string, bool, error)

	// Put stores value under key, replacing any previous value.
	Put(key, value string) error

	// Prune removes entries last used before the cutoff and reports how
	// many were removed.
	Prune(before time.Time) (int, error)

	Close() error
}

// Key derives a cache key from parts. Each part is length-prefixed, so
// ("ab", "c") and ("a", "bc") produce different keys.
func Key(parts ...string) string {
	h := sha256.New()
	var size [8]byte
	for _, p := range parts {
		n := uint64(len(p))
		for i := range size {
			size[i] = byte(n >> (8 * i))
		}
		h.Write(size[:])
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}
