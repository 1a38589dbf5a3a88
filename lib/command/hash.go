package command

import (
	"bytes"
	"fmt"
	"maps"
	"slices"

	"github.com/ValentinKolb/rKV/lib/backend"
	"github.com/ValentinKolb/rKV/lib/resp"
)

// sortToken is the optional trailing argument of HGETALL
const sortToken = "sort"

// HGet reads one field of a hash: HGET key field
type HGet struct {
	Key   string
	Field string
}

// HMGet reads several fields of a hash: HMGET key field [field ...]
type HMGet struct {
	Key    string
	Fields []string
}

// HSet writes one field of a hash: HSET key field value
type HSet struct {
	Key   string
	Field string
	Value resp.Frame
}

// HGetAll reads a whole hash: HGETALL key [SORT]
type HGetAll struct {
	Key  string
	Sort bool
}

func (HGet) Name() string    { return "hget" }
func (HMGet) Name() string   { return "hmget" }
func (HSet) Name() string    { return "hset" }
func (HGetAll) Name() string { return "hgetall" }

// --------------------------------------------------------------------------
// Execution
// --------------------------------------------------------------------------

// Execute returns the field value or Null
func (c HGet) Execute(b backend.IBackend) resp.Frame {
	if value, ok := b.HGet(c.Key, c.Field); ok {
		return value
	}
	return resp.Null{}
}

// Execute returns one element per requested field, Null for missing ones
func (c HMGet) Execute(b backend.IBackend) resp.Frame {
	values := b.HMGet(c.Key, c.Fields)
	out := make(resp.Array, len(values))
	for i, value := range values {
		if value == nil {
			value = resp.Null{}
		}
		out[i] = value
	}
	return out
}

// Execute stores the field and returns OK
func (c HSet) Execute(b backend.IBackend) resp.Frame {
	b.HSet(c.Key, c.Field, c.Value)
	return resp.OK
}

// Execute returns field, value, field, value, ... A missing key yields an
// empty array.
func (c HGetAll) Execute(b backend.IBackend) resp.Frame {
	snapshot := b.HGetAll(c.Key)

	fields := make([]string, 0, len(snapshot))
	for field := range maps.Keys(snapshot) {
		fields = append(fields, field)
	}
	if c.Sort {
		slices.Sort(fields)
	}

	out := make(resp.Array, 0, 2*len(fields))
	for _, field := range fields {
		out = append(out, resp.NewBulkString(field), snapshot[field])
	}
	return out
}

// --------------------------------------------------------------------------
// Parsing
// --------------------------------------------------------------------------

func parseHGet(_ Parser, args []resp.Frame) (Command, error) {
	s, err := stringArgs(args, "key", "field")
	if err != nil {
		return nil, err
	}
	return HGet{Key: s[0], Field: s[1]}, nil
}

func parseHMGet(_ Parser, args []resp.Frame) (Command, error) {
	key, err := stringArg(args[0], "key")
	if err != nil {
		return nil, err
	}

	fields := make([]string, len(args)-1)
	for i, arg := range args[1:] {
		if fields[i], err = stringArg(arg, fmt.Sprintf("field %d", i+1)); err != nil {
			return nil, err
		}
	}
	return HMGet{Key: key, Fields: fields}, nil
}

func parseHSet(_ Parser, args []resp.Frame) (Command, error) {
	s, err := stringArgs(args, "key", "field")
	if err != nil {
		return nil, err
	}
	return HSet{Key: s[0], Field: s[1], Value: args[2]}, nil
}

func parseHGetAll(p Parser, args []resp.Frame) (Command, error) {
	key, err := stringArg(args[0], "key")
	if err != nil {
		return nil, err
	}

	cmd := HGetAll{Key: key, Sort: p.SortHGetAll}
	if len(args) == 2 {
		token, ok := args[1].(resp.BulkString)
		if !ok || !bytes.EqualFold(token, []byte(sortToken)) {
			return nil, invalidArgument("hgetall only accepts SORT after the key")
		}
		cmd.Sort = true
	}
	return cmd, nil
}
