// Package backend provides the concurrent in-memory store that serves all rKV
// connections.
//
// The store keeps three independent tables:
//   - Strings: key -> value frame (last write wins)
//   - Hashes:  key -> field -> value frame
//   - Sets:    key -> set of member strings
//
// Key Components:
//
//   - IBackend Interface: The operations the command layer needs (Get, Set,
//     HGet, HMGet, HSet, HGetAll, AddMember, IsMember) plus Info for
//     monitoring.
//
//   - Sharding: Keys are hashed with a per-instance seed (seeded FNV-1a) and
//     mapped onto a fixed number of shards, by default one per CPU. Every
//     shard holds one xsync.MapOf per table, so operations on different keys
//     never wait for each other.
//
//   - Buckets: The value of a hash or set key is a bucket with its own
//     sync.RWMutex. Writers to different fields of the same key serialize,
//     readers of the same key run in parallel.
//
// Note on Lifetime:
//   - Entries are created on first write and never expire or get deleted.
//     A bucket, once created, stays valid for the life of the backend, which
//     is why it can be used outside of the shard map's own locking.
//   - Values are stored as given. Callers must not modify a frame after
//     handing it to the backend.
package backend
