package backend

import (
	"fmt"
	"sync"
	"testing"

	"github.com/ValentinKolb/rKV/lib/resp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBackend() IBackend {
	return NewBackend(&Options{NumShards: 4})
}

func TestNewBackend_Defaults(t *testing.T) {
	b := NewBackend(nil)
	assert.Equal(t, DefaultOptions().NumShards, b.Info().NumShards)

	b = NewBackend(&Options{NumShards: 0})
	assert.Greater(t, b.Info().NumShards, 0)
}

func TestStrings(t *testing.T) {
	b := newTestBackend()

	_, ok := b.Get("missing")
	assert.False(t, ok)

	b.Set("key", resp.NewBulkString("v1"))
	b.Set("key", resp.NewBulkString("v2"))
	value, ok := b.Get("key")
	require.True(t, ok)
	assert.Equal(t, resp.NewBulkString("v2"), value)

	// any frame can be stored
	b.Set("int", resp.Integer(5))
	value, _ = b.Get("int")
	assert.Equal(t, resp.Integer(5), value)
}

func TestHashes(t *testing.T) {
	b := newTestBackend()

	_, ok := b.HGet("map", "hello")
	assert.False(t, ok)
	assert.Nil(t, b.HGetAll("map"))

	b.HSet("map", "hello", resp.NewBulkString("world"))
	b.HSet("map", "hello1", resp.NewBulkString("world1"))

	value, ok := b.HGet("map", "hello")
	require.True(t, ok)
	assert.Equal(t, resp.NewBulkString("world"), value)

	values := b.HMGet("map", []string{"hello1", "nope", "hello"})
	assert.Equal(t, []resp.Frame{resp.NewBulkString("world1"), nil, resp.NewBulkString("world")}, values)
	assert.Equal(t, []resp.Frame{nil, nil}, b.HMGet("other", []string{"a", "b"}))

	all := b.HGetAll("map")
	assert.Equal(t, map[string]resp.Frame{
		"hello":  resp.NewBulkString("world"),
		"hello1": resp.NewBulkString("world1"),
	}, all)
}

func TestHGetAll_IsSnapshot(t *testing.T) {
	b := newTestBackend()
	b.HSet("map", "a", resp.Integer(1))

	snapshot := b.HGetAll("map")
	b.HSet("map", "b", resp.Integer(2))
	snapshot["c"] = resp.Integer(3)

	assert.Len(t, snapshot, 2)
	assert.Len(t, b.HGetAll("map"), 2)
	_, ok := b.HGet("map", "c")
	assert.False(t, ok)
}

func TestSets(t *testing.T) {
	b := newTestBackend()

	assert.False(t, b.IsMember("set", "a"))
	assert.True(t, b.AddMember("set", "a"))
	assert.False(t, b.AddMember("set", "a"))
	assert.True(t, b.IsMember("set", "a"))
	assert.False(t, b.IsMember("set", "b"))
}

func TestTablesAreIndependent(t *testing.T) {
	b := newTestBackend()
	b.Set("key", resp.OK)

	_, ok := b.HGet("key", "field")
	assert.False(t, ok)
	assert.False(t, b.IsMember("key", "OK"))

	info := b.Info()
	assert.Equal(t, 1, info.Strings)
	assert.Equal(t, 0, info.Hashes)
	assert.Equal(t, 0, info.Sets)
}

func TestInfo(t *testing.T) {
	b := newTestBackend()
	for i := 0; i < 100; i++ {
		b.Set(fmt.Sprintf("s%d", i), resp.OK)
		b.HSet(fmt.Sprintf("h%d", i), "f", resp.OK)
		b.AddMember(fmt.Sprintf("m%d", i), "x")
	}

	info := b.Info()
	assert.Equal(t, 4, info.NumShards)
	assert.Equal(t, 100, info.Strings)
	assert.Equal(t, 100, info.Hashes)
	assert.Equal(t, 100, info.Sets)
	assert.Equal(t, 300, info.Keys())
	assert.Equal(t, 75.0, info.Distribution.Mean)
}

// --------------------------------------------------------------------------
// Concurrency
// --------------------------------------------------------------------------

func TestConcurrent_DisjointKeys(t *testing.T) {
	const writers = 64
	b := newTestBackend()

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("key-%d", i)
			b.Set(key, resp.Integer(i))
			b.HSet(key, "field", resp.Integer(i))
			b.AddMember(key, key)
		}(i)
	}
	wg.Wait()

	for i := 0; i < writers; i++ {
		key := fmt.Sprintf("key-%d", i)
		value, ok := b.Get(key)
		require.True(t, ok)
		assert.Equal(t, resp.Integer(i), value)

		value, ok = b.HGet(key, "field")
		require.True(t, ok)
		assert.Equal(t, resp.Integer(i), value)

		assert.True(t, b.IsMember(key, key))
	}
}

func TestConcurrent_SameKey(t *testing.T) {
	const writers = 64
	b := newTestBackend()

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b.Set("shared", resp.Integer(i))
			b.HSet("hash", "field", resp.Integer(i))
		}(i)
	}
	wg.Wait()

	// exactly one of the written values survives
	for _, read := range []func() (resp.Frame, bool){
		func() (resp.Frame, bool) { return b.Get("shared") },
		func() (resp.Frame, bool) { return b.HGet("hash", "field") },
	} {
		value, ok := read()
		require.True(t, ok)
		i, isInt := value.(resp.Integer)
		require.True(t, isInt)
		assert.GreaterOrEqual(t, int(i), 0)
		assert.Less(t, int(i), writers)
	}
}

func TestConcurrent_FieldsOfOneHash(t *testing.T) {
	const writers = 32
	b := newTestBackend()

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			b.HSet("hash", fmt.Sprintf("f%d", i), resp.Integer(i))
			b.AddMember("set", fmt.Sprintf("m%d", i))
		}(i)
		go func() {
			defer wg.Done()
			_ = b.HGetAll("hash")
			_ = b.IsMember("set", "m0")
		}()
	}
	wg.Wait()

	assert.Len(t, b.HGetAll("hash"), writers)
	for i := 0; i < writers; i++ {
		assert.True(t, b.IsMember("set", fmt.Sprintf("m%d", i)))
	}
}

func BenchmarkSetGet(b *testing.B) {
	backend := NewBackend(nil)
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			key := fmt.Sprintf("key-%d", i%1024)
			backend.Set(key, resp.Integer(i))
			backend.Get(key)
			i++
		}
	})
}
