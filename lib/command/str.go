package command

import (
	"github.com/ValentinKolb/rKV/lib/backend"
	"github.com/ValentinKolb/rKV/lib/resp"
)

// Get reads a value from the string table: GET key
type Get struct {
	Key string
}

// Set writes a value to the string table: SET key value. The value is stored
// as sent, whatever its frame type.
type Set struct {
	Key   string
	Value resp.Frame
}

func (Get) Name() string { return "get" }
func (Set) Name() string { return "set" }

// Execute returns the stored value or Null
func (c Get) Execute(b backend.IBackend) resp.Frame {
	if value, ok := b.Get(c.Key); ok {
		return value
	}
	return resp.Null{}
}

// Execute stores the value and returns OK
func (c Set) Execute(b backend.IBackend) resp.Frame {
	b.Set(c.Key, c.Value)
	return resp.OK
}

func parseGet(_ Parser, args []resp.Frame) (Command, error) {
	key, err := stringArg(args[0], "key")
	if err != nil {
		return nil, err
	}
	return Get{Key: key}, nil
}

func parseSet(_ Parser, args []resp.Frame) (Command, error) {
	key, err := stringArg(args[0], "key")
	if err != nil {
		return nil, err
	}
	return Set{Key: key, Value: args[1]}, nil
}
