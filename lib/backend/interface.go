package backend

import (
	"github.com/ValentinKolb/rKV/lib/resp"
	"github.com/ValentinKolb/rKV/lib/util"
)

// --------------------------------------------------------------------------
// Types
// --------------------------------------------------------------------------

// Info describes the current state of a backend. Key counts are estimates
// while writes are in flight.
type Info struct {
	NumShards    int                    `json:"num_shards"`
	Strings      int                    `json:"strings"`
	Hashes       int                    `json:"hashes"`
	Sets         int                    `json:"sets"`
	Distribution util.DistributionStats `json:"distribution"`
}

// Keys returns the total number of keys over all tables
func (i Info) Keys() int {
	return i.Strings + i.Hashes + i.Sets
}

// --------------------------------------------------------------------------
// Backend Interface
// --------------------------------------------------------------------------

// IBackend is the shared store behind all connections. It holds three
// independent tables (strings, hashes, sets). A key used in one table does not
// exist in the others. Keys are created on first write and never removed.
//
// All methods are safe for concurrent use. Within a key the last completed
// write wins.
type IBackend interface {

	// --------------------------------------------------------------------------
	// String Table
	// --------------------------------------------------------------------------

	// Get returns the value stored for key and whether it exists
	Get(key string) (value resp.Frame, ok bool)

	// Set stores value for key, replacing any previous value
	Set(key string, value resp.Frame)

	// --------------------------------------------------------------------------
	// Hash Table
	// --------------------------------------------------------------------------

	// HGet returns the value of field in the hash stored at key
	HGet(key, field string) (value resp.Frame, ok bool)

	// HMGet returns the values of several fields in request order. Missing
	// fields (or a missing key) yield nil entries.
	HMGet(key string, fields []string) []resp.Frame

	// HSet stores value in field of the hash at key, creating the hash if needed
	HSet(key, field string, value resp.Frame)

	// HGetAll returns a snapshot of all fields of the hash at key. The returned
	// map is owned by the caller. A missing key yields nil.
	HGetAll(key string) map[string]resp.Frame

	// --------------------------------------------------------------------------
	// Set Table
	// --------------------------------------------------------------------------

	// AddMember inserts member into the set at key, creating the set if needed.
	// It reports whether the member was new.
	AddMember(key, member string) (added bool)

	// IsMember reports whether member is in the set at key
	IsMember(key, member string) bool

	// --------------------------------------------------------------------------
	// Meta Operations
	// --------------------------------------------------------------------------

	// Info returns size and distribution information
	Info() Info
}
