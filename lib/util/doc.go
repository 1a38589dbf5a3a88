// Package util holds small helpers shared by the backend: seeded key hashing
// for shard selection and statistics describing how keys spread over shards.
package util
