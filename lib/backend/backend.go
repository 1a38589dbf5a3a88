package backend

import (
	"runtime"

	"github.com/ValentinKolb/rKV/lib/backend/internal"
	"github.com/ValentinKolb/rKV/lib/resp"
	"github.com/ValentinKolb/rKV/lib/util"
	"github.com/lni/dragonboat/v4/logger"
)

// Logger is the logger of the backend package
var Logger = logger.GetLogger("backend")

// --------------------------------------------------------------------------
// Options
// --------------------------------------------------------------------------

// Options configures a backend during initialization
type Options struct {
	NumShards int // Number of shards (<= 0 = runtime.NumCPU())
}

// DefaultOptions returns the default backend options
func DefaultOptions() *Options {
	return &Options{
		NumShards: runtime.NumCPU(),
	}
}

// --------------------------------------------------------------------------
// Core Backend Structure
// --------------------------------------------------------------------------

// shardedBackend spreads keys over a fixed number of shards by seeded hash
type shardedBackend struct {
	seed   uint64
	shards []*internal.Shard
}

// NewBackend creates a new backend with the given options (optional)
//
// Thread-safety: This function is not thread-safe and should only be called once
// during initialization.
func NewBackend(opts *Options) IBackend {
	if opts == nil {
		opts = DefaultOptions()
	}
	numShards := opts.NumShards
	if numShards <= 0 {
		numShards = runtime.NumCPU()
	}

	shards := make([]*internal.Shard, numShards)
	for i := range shards {
		shards[i] = internal.NewShard()
	}

	Logger.Debugf("created backend with %d shards", numShards)

	return &shardedBackend{
		seed:   util.GenerateSeed(),
		shards: shards,
	}
}

// shard returns the shard responsible for key
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (b *shardedBackend) shard(key string) *internal.Shard {
	return internal.GetShard(util.HashString(key, b.seed), b.shards)
}

// --------------------------------------------------------------------------
// String Table
// --------------------------------------------------------------------------

// Get returns the value stored for key
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (b *shardedBackend) Get(key string) (resp.Frame, bool) {
	return b.shard(key).Strings.Load(key)
}

// Set stores value for key
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (b *shardedBackend) Set(key string, value resp.Frame) {
	b.shard(key).Strings.Store(key, value)
}

// --------------------------------------------------------------------------
// Hash Table
// --------------------------------------------------------------------------

// HGet returns the value of a single field
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (b *shardedBackend) HGet(key, field string) (resp.Frame, bool) {
	bucket, ok := b.shard(key).Hashes.Load(key)
	if !ok {
		return nil, false
	}

	bucket.RLock()
	defer bucket.RUnlock()
	value, ok := bucket.Items[field]
	return value, ok
}

// HMGet returns the values of several fields under one read lock
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (b *shardedBackend) HMGet(key string, fields []string) []resp.Frame {
	values := make([]resp.Frame, len(fields))

	bucket, ok := b.shard(key).Hashes.Load(key)
	if !ok {
		return values
	}

	bucket.RLock()
	defer bucket.RUnlock()
	for i, field := range fields {
		values[i] = bucket.Items[field]
	}
	return values
}

// HSet stores value in a field, creating the hash on first write
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (b *shardedBackend) HSet(key, field string, value resp.Frame) {
	bucket, _ := b.shard(key).Hashes.LoadOrCompute(key, internal.NewBucket[resp.Frame])

	bucket.Lock()
	defer bucket.Unlock()
	bucket.Items[field] = value
}

// HGetAll copies all fields of a hash
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (b *shardedBackend) HGetAll(key string) map[string]resp.Frame {
	bucket, ok := b.shard(key).Hashes.Load(key)
	if !ok {
		return nil
	}

	bucket.RLock()
	defer bucket.RUnlock()
	snapshot := make(map[string]resp.Frame, len(bucket.Items))
	for field, value := range bucket.Items {
		snapshot[field] = value
	}
	return snapshot
}

// --------------------------------------------------------------------------
// Set Table
// --------------------------------------------------------------------------

// AddMember inserts member, creating the set on first write
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (b *shardedBackend) AddMember(key, member string) bool {
	bucket, _ := b.shard(key).Sets.LoadOrCompute(key, internal.NewBucket[struct{}])

	bucket.Lock()
	defer bucket.Unlock()
	if _, exists := bucket.Items[member]; exists {
		return false
	}
	bucket.Items[member] = struct{}{}
	return true
}

// IsMember tests set membership
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (b *shardedBackend) IsMember(key, member string) bool {
	bucket, ok := b.shard(key).Sets.Load(key)
	if !ok {
		return false
	}

	bucket.RLock()
	defer bucket.RUnlock()
	_, exists := bucket.Items[member]
	return exists
}

// --------------------------------------------------------------------------
// Meta Operations
// --------------------------------------------------------------------------

// Info counts keys per table and rates the shard distribution
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (b *shardedBackend) Info() Info {
	info := Info{NumShards: len(b.shards)}
	sizes := make([]float64, len(b.shards))

	for i, shard := range b.shards {
		info.Strings += shard.Strings.Size()
		info.Hashes += shard.Hashes.Size()
		info.Sets += shard.Sets.Size()
		sizes[i] = float64(shard.Size())
	}

	info.Distribution = util.NewDistributionStats(sizes)
	return info
}
