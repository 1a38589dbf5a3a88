package internal

import (
	"sync"

	"github.com/ValentinKolb/rKV/lib/resp"
	"github.com/ValentinKolb/rKV/lib/util"
	"github.com/puzpuzpuz/xsync/v3"
)

// --------------------------------------------------------------------------
// Bucket Type (value of a hash or set key)
// --------------------------------------------------------------------------

// Bucket is the collection stored under a single hash or set key. One lock
// guards all items of the key.
type Bucket[V any] struct {
	sync.RWMutex
	Items map[string]V
}

// NewBucket returns an empty bucket
func NewBucket[V any]() *Bucket[V] {
	return &Bucket[V]{Items: make(map[string]V)}
}

// --------------------------------------------------------------------------
// Shard Type (partition of the backend)
// --------------------------------------------------------------------------

// Shard holds the three tables for all keys that hash into it
type Shard struct {
	Strings *xsync.MapOf[string, resp.Frame]
	Hashes  *xsync.MapOf[string, *Bucket[resp.Frame]]
	Sets    *xsync.MapOf[string, *Bucket[struct{}]]
}

// NewShard creates an empty shard
func NewShard() *Shard {
	return &Shard{
		Strings: xsync.NewMapOf[string, resp.Frame](),
		Hashes:  xsync.NewMapOf[string, *Bucket[resp.Frame]](),
		Sets:    xsync.NewMapOf[string, *Bucket[struct{}]](),
	}
}

// Size returns the number of keys in all three tables
func (s *Shard) Size() int {
	return s.Strings.Size() + s.Hashes.Size() + s.Sets.Size()
}

// GetShard returns the shard responsible for key
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func GetShard[T any](key util.UintKey, shards []*T) *T {
	return shards[util.ShardIndex(key, len(shards))]
}
