package command

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ValentinKolb/rKV/lib/backend"
	"github.com/ValentinKolb/rKV/lib/resp"
)

// --------------------------------------------------------------------------
// Command Interface
// --------------------------------------------------------------------------

// Command is a parsed request. It is built from one array frame and executed
// once.
type Command interface {
	// Name returns the lower case command name ("get", "hset", ...)
	Name() string

	// Execute runs the command against the backend and returns the reply frame.
	// Execute never fails: lookups of missing keys produce null replies.
	Execute(b backend.IBackend) resp.Frame
}

// --------------------------------------------------------------------------
// Command Table
// --------------------------------------------------------------------------

// entry describes how to parse a command. args holds the frames after the name.
type entry struct {
	minArgs int
	maxArgs int // -1 = no upper bound
	parse   func(p Parser, args []resp.Frame) (Command, error)
}

var table = map[string]entry{
	"get":       {1, 1, parseGet},
	"set":       {2, 2, parseSet},
	"hget":      {2, 2, parseHGet},
	"hmget":     {2, -1, parseHMGet},
	"hset":      {3, 3, parseHSet},
	"hgetall":   {1, 2, parseHGetAll},
	"sismember": {2, 2, parseSisMember},
	"addmember": {2, 2, parseAddMember},
	"echo":      {1, 1, parseEcho},
}

// Names returns the names of all supported commands
func Names() []string {
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	return names
}

// --------------------------------------------------------------------------
// Parser
// --------------------------------------------------------------------------

// Parser turns frames into commands. The zero value parses commands exactly
// as sent by the client.
type Parser struct {
	// SortHGetAll makes every HGETALL reply sorted by field, as if the client
	// had sent the SORT token.
	SortHGetAll bool
}

// FromFrame parses f with the zero Parser
func FromFrame(f resp.Frame) (Command, error) {
	return Parser{}.FromFrame(f)
}

// FromArray parses a with the zero Parser
func FromArray(a resp.Array) (Command, error) {
	return Parser{}.FromArray(a)
}

// FromFrame parses a command. Only non-null arrays are commands.
func (p Parser) FromFrame(f resp.Frame) (Command, error) {
	a, ok := f.(resp.Array)
	if !ok || a.IsNull() {
		return nil, invalidCommand("command must be an array")
	}
	return p.FromArray(a)
}

// FromArray parses a command from its frames. Names are matched case
// insensitively; an unknown name yields Unrecognized and no error.
func (p Parser) FromArray(a resp.Array) (Command, error) {
	if len(a) == 0 {
		return nil, invalidCommand("command must have a bulk string as the first argument")
	}
	first, ok := a[0].(resp.BulkString)
	if !ok || first.IsNull() {
		return nil, invalidCommand("command must have a bulk string as the first argument")
	}

	name := string(bytes.ToLower(first))
	e, ok := table[name]
	if !ok {
		return Unrecognized{Command: name}, nil
	}

	if err := validateCommand(a, []string{name}, e.minArgs, e.maxArgs); err != nil {
		return nil, err
	}
	return e.parse(p, a[1:])
}

// --------------------------------------------------------------------------
// Helper Functions
// --------------------------------------------------------------------------

// validateCommand checks that frames starts with the given name tokens and
// holds between minArgs and maxArgs further elements.
func validateCommand(frames resp.Array, names []string, minArgs, maxArgs int) error {
	cmd := strings.Join(names, " ")
	args := len(frames) - len(names)

	if args < minArgs {
		return invalidCommand(fmt.Sprintf("%s command must have at least %d argument(s)", cmd, minArgs))
	}
	if maxArgs >= 0 && args > maxArgs {
		return invalidCommand(fmt.Sprintf("%s command must have at most %d argument(s)", cmd, maxArgs))
	}

	for i, name := range names {
		token, ok := frames[i].(resp.BulkString)
		if !ok || token.IsNull() {
			return invalidCommand("command must have a bulk string as the first argument")
		}
		if !bytes.EqualFold(token, []byte(name)) {
			return invalidCommand(fmt.Sprintf("expected %s, got %s", name, token))
		}
	}
	return nil
}

// stringArg converts a bulk string argument to text
func stringArg(f resp.Frame, argName string) (string, error) {
	b, ok := f.(resp.BulkString)
	if !ok || b.IsNull() {
		return "", invalidArgument(fmt.Sprintf("invalid %s argument", argName))
	}
	if !utf8.Valid(b) {
		return "", &Error{Kind: Utf8Error, Msg: fmt.Sprintf("%s is not valid UTF-8", argName)}
	}
	return string(b), nil
}

// stringArgs converts consecutive arguments, stopping at the first error
func stringArgs(frames []resp.Frame, argNames ...string) ([]string, error) {
	out := make([]string, len(argNames))
	for i, argName := range argNames {
		s, err := stringArg(frames[i], argName)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}
