package util

import (
	"crypto/rand"
	"encoding/binary"
	"time"
)

// --------------------------------------------------------------------------
// Seeds
// --------------------------------------------------------------------------

// GenerateSeed returns a random seed for key hashing. Each backend uses its own
// seed so that the key to shard mapping cannot be predicted by clients.
func GenerateSeed() uint64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		// fall back to the clock, the seed only needs to differ between instances
		return uint64(time.Now().UnixNano())
	}
	return binary.LittleEndian.Uint64(b[:])
}

// --------------------------------------------------------------------------
// Hash Functions
// --------------------------------------------------------------------------

// UintKey is the hashed form of a string key
type UintKey uint64

// HashString hashes s with the seeded FNV-1a algorithm.
func HashString(s string, seed uint64) UintKey {
	const (
		offset64 = 14695981039346656037
		prime64  = 1099511628211
	)

	hash := uint64(offset64) ^ seed
	for i := 0; i < len(s); i++ {
		hash ^= uint64(s[i])
		hash *= prime64
	}
	return UintKey(hash)
}

// ShardIndex maps a hashed key onto one of n shards. The low bits of FNV-1a are
// weaker, so the higher bits are used.
func ShardIndex(key UintKey, n int) int {
	return int((uint64(key) >> 7) % uint64(n))
}
