package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/ValentinKolb/rKV/lib/resp"
	"github.com/ValentinKolb/rKV/rpc/common"
	"github.com/ValentinKolb/rKV/rpc/transport"
	pool "github.com/jolestar/go-commons-pool/v2"
	"github.com/lni/dragonboat/v4/logger"
)

// Logger is the logger of the client package
var Logger = logger.GetLogger("client")

var (
	// ErrServer is wrapped by errors replied by the server ("-ERR ...")
	ErrServer = errors.New("server error")

	// ErrUnexpectedReply is returned when a reply does not match the command
	ErrUnexpectedReply = errors.New("unexpected reply")
)

// FieldValue is one field of a hash
type FieldValue struct {
	Field string
	Value string
}

// RESPClient sends commands to an rKV server over a pool of connections.
// It is safe for concurrent use; concurrent calls use different connections.
type RESPClient struct {
	config common.ClientConfig
	pool   *pool.ObjectPool
}

// NewRESPClient creates a new client. One connection is opened right away, so
// an unreachable server is reported here.
//
// Usage:
//
//	c, err := client.NewRESPClient(
//		common.DefaultClientConfig(),
//		tcp.NewTCPClientTransport(),
//	)
//	if err != nil {
//		panic(err)
//	}
//	defer c.Close()
//
//	err = c.Set(ctx, "hello", "world")
func NewRESPClient(config common.ClientConfig, transport transport.IRPCClientTransport) (*RESPClient, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.Timeout())
	defer cancel()

	c := &RESPClient{
		config: config,
		pool:   newConnPool(context.Background(), config, transport),
	}

	conn, err := c.borrow(ctx)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.release(ctx, conn, nil)

	return c, nil
}

// Close closes all connections
func (c *RESPClient) Close() {
	c.pool.Close(context.Background())
}

// --------------------------------------------------------------------------
// Raw Requests
// --------------------------------------------------------------------------

// Do sends one request frame and returns the reply frame. Error replies are
// returned as frames, not as errors.
func (c *RESPClient) Do(ctx context.Context, req resp.Frame) (resp.Frame, error) {
	replies, err := c.Pipeline(ctx, req)
	if err != nil {
		return nil, err
	}
	return replies[0], nil
}

// Pipeline sends all requests in one write over one connection and returns the
// replies in request order
func (c *RESPClient) Pipeline(ctx context.Context, reqs ...resp.Frame) ([]resp.Frame, error) {
	if len(reqs) == 0 {
		return nil, nil
	}

	conn, err := c.borrow(ctx)
	if err != nil {
		return nil, err
	}
	replies, err := conn.Pipeline(ctx, reqs)
	c.release(ctx, conn, err)
	return replies, err
}

// Command sends a command given as text tokens
func (c *RESPClient) Command(ctx context.Context, tokens ...string) (resp.Frame, error) {
	return c.Do(ctx, NewCommand(tokens...))
}

// NewCommand builds the request array for a command given as text tokens
func NewCommand(tokens ...string) resp.Array {
	a := make(resp.Array, len(tokens))
	for i, token := range tokens {
		a[i] = resp.NewBulkString(token)
	}
	return a
}

// --------------------------------------------------------------------------
// Typed Commands
// --------------------------------------------------------------------------

// Get returns the value of key. ok is false if the key does not exist.
func (c *RESPClient) Get(ctx context.Context, key string) (value string, ok bool, err error) {
	reply, err := c.command(ctx, "get", key)
	if err != nil {
		return "", false, err
	}
	return optionalString(reply)
}

// Set stores value at key
func (c *RESPClient) Set(ctx context.Context, key, value string) error {
	reply, err := c.command(ctx, "set", key, value)
	if err != nil {
		return err
	}
	return expectOK(reply)
}

// HGet returns the value of field in the hash at key
func (c *RESPClient) HGet(ctx context.Context, key, field string) (value string, ok bool, err error) {
	reply, err := c.command(ctx, "hget", key, field)
	if err != nil {
		return "", false, err
	}
	return optionalString(reply)
}

// HSet stores value in field of the hash at key
func (c *RESPClient) HSet(ctx context.Context, key, field, value string) error {
	reply, err := c.command(ctx, "hset", key, field, value)
	if err != nil {
		return err
	}
	return expectOK(reply)
}

// HMGet returns the values of fields in the hash at key. Missing fields are nil.
func (c *RESPClient) HMGet(ctx context.Context, key string, fields ...string) ([]*string, error) {
	reply, err := c.command(ctx, "hmget", append([]string{key}, fields...)...)
	if err != nil {
		return nil, err
	}
	a, ok := reply.(resp.Array)
	if !ok || len(a) != len(fields) {
		return nil, unexpected(reply)
	}

	values := make([]*string, len(a))
	for i, f := range a {
		value, ok, err := optionalString(f)
		if err != nil {
			return nil, err
		}
		if ok {
			values[i] = &value
		}
	}
	return values, nil
}

// HGetAll returns all fields of the hash at key, sorted by field if sort is set
// (or if the server sorts every HGETALL)
func (c *RESPClient) HGetAll(ctx context.Context, key string, sort bool) ([]FieldValue, error) {
	tokens := []string{key}
	if sort {
		tokens = append(tokens, "sort")
	}
	reply, err := c.command(ctx, "hgetall", tokens...)
	if err != nil {
		return nil, err
	}
	a, ok := reply.(resp.Array)
	if !ok || len(a)%2 != 0 {
		return nil, unexpected(reply)
	}

	out := make([]FieldValue, 0, len(a)/2)
	for i := 0; i < len(a); i += 2 {
		field, ok := a[i].(resp.BulkString)
		if !ok {
			return nil, unexpected(a[i])
		}
		value, ok := a[i+1].(resp.BulkString)
		if !ok {
			return nil, unexpected(a[i+1])
		}
		out = append(out, FieldValue{Field: field.String(), Value: value.String()})
	}
	return out, nil
}

// SIsMember reports whether member is in the set at key
func (c *RESPClient) SIsMember(ctx context.Context, key, member string) (bool, error) {
	reply, err := c.command(ctx, "sismember", key, member)
	if err != nil {
		return false, err
	}
	n, ok := reply.(resp.Integer)
	if !ok {
		return false, unexpected(reply)
	}
	return n == 1, nil
}

// AddMember adds member to the set at key
func (c *RESPClient) AddMember(ctx context.Context, key, member string) error {
	reply, err := c.command(ctx, "addmember", key, member)
	if err != nil {
		return err
	}
	if _, ok := reply.(resp.Integer); !ok {
		return unexpected(reply)
	}
	return nil
}

// Echo returns message as echoed by the server
func (c *RESPClient) Echo(ctx context.Context, message string) (string, error) {
	reply, err := c.command(ctx, "echo", message)
	if err != nil {
		return "", err
	}
	value, ok, err := optionalString(reply)
	if err == nil && !ok {
		err = unexpected(reply)
	}
	return value, err
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// command sends a command and turns error replies into errors
func (c *RESPClient) command(ctx context.Context, name string, args ...string) (resp.Frame, error) {
	reply, err := c.Do(ctx, NewCommand(append([]string{name}, args...)...))
	if err != nil {
		return nil, err
	}
	if e, ok := reply.(resp.SimpleError); ok {
		return nil, fmt.Errorf("%w: %s", ErrServer, string(e))
	}
	return reply, nil
}

func (c *RESPClient) borrow(ctx context.Context) (transport.IRPCClientConn, error) {
	obj, err := c.pool.BorrowObject(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get connection: %w", err)
	}
	return obj.(transport.IRPCClientConn), nil
}

// release returns conn to the pool, or removes it if the request failed
func (c *RESPClient) release(ctx context.Context, conn transport.IRPCClientConn, reqErr error) {
	if reqErr != nil || !conn.Healthy() {
		if err := c.pool.InvalidateObject(context.Background(), conn); err != nil {
			Logger.Warningf("failed to invalidate connection: %v", err)
		}
		return
	}
	if err := c.pool.ReturnObject(ctx, conn); err != nil {
		Logger.Warningf("failed to return connection: %v", err)
	}
}

// optionalString converts a bulk string or null reply
func optionalString(f resp.Frame) (string, bool, error) {
	switch v := f.(type) {
	case resp.Null:
		return "", false, nil
	case resp.BulkString:
		if v.IsNull() {
			return "", false, nil
		}
		return v.String(), true, nil
	case resp.SimpleString:
		return string(v), true, nil
	default:
		return "", false, unexpected(f)
	}
}

func expectOK(f resp.Frame) error {
	if s, ok := f.(resp.SimpleString); !ok || s != resp.OK {
		return unexpected(f)
	}
	return nil
}

func unexpected(f resp.Frame) error {
	return fmt.Errorf("%w: %q", ErrUnexpectedReply, resp.Encode(f))
}
