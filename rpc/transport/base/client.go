package base

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/ValentinKolb/rKV/lib/resp"
	"github.com/ValentinKolb/rKV/rpc/common"
	"github.com/ValentinKolb/rKV/rpc/transport"
)

const clientReadBufferSize = 16 * 1024

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IClientConnector defines the interface for transport-specific connection operations
type IClientConnector interface {
	// Connect establishes a single connection to endpoint
	Connect(endpoint string, timeout time.Duration) (net.Conn, error)

	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string
}

// -----------------------------------------------------------
// Client Transport
// -----------------------------------------------------------

// clientTransport opens connections with its connector
type clientTransport struct {
	connector IClientConnector
}

// NewBaseClientTransport creates a new client transport for the given connector
func NewBaseClientTransport(connector IClientConnector) transport.IRPCClientTransport {
	return &clientTransport{connector: connector}
}

func (t *clientTransport) Connect(config common.ClientConfig) (transport.IRPCClientConn, error) {
	conn, err := t.connector.Connect(config.Endpoint, config.Timeout())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s via %s: %w", config.Endpoint, t.connector.GetName(), err)
	}
	return NewClientConn(conn, config.Timeout()), nil
}

// -----------------------------------------------------------
// Client Connection
// -----------------------------------------------------------

// clientConn sends requests over a single connection. Requests are
// serialized; replies are matched to requests by order.
type clientConn struct {
	mu      sync.Mutex
	conn    net.Conn
	timeout time.Duration
	pending bytes.Buffer
	buf     []byte
	broken  bool
}

// NewClientConn wraps an established connection. timeout bounds every
// request (0 = only the context deadline applies).
func NewClientConn(conn net.Conn, timeout time.Duration) transport.IRPCClientConn {
	return &clientConn{
		conn:    conn,
		timeout: timeout,
		buf:     make([]byte, clientReadBufferSize),
	}
}

func (c *clientConn) Do(ctx context.Context, req resp.Frame) (resp.Frame, error) {
	replies, err := c.Pipeline(ctx, []resp.Frame{req})
	if err != nil {
		return nil, err
	}
	return replies[0], nil
}

func (c *clientConn) Pipeline(ctx context.Context, reqs []resp.Frame) ([]resp.Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.broken {
		return nil, errors.New("connection is broken")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := c.conn.SetDeadline(c.deadline(ctx)); err != nil {
		c.broken = true
		return nil, err
	}

	var out []byte
	for _, req := range reqs {
		out = resp.AppendFrame(out, req)
	}
	if _, err := c.conn.Write(out); err != nil {
		c.broken = true
		return nil, fmt.Errorf("failed to write request: %w", err)
	}

	replies := make([]resp.Frame, 0, len(reqs))
	for len(replies) < len(reqs) {
		f, err := resp.Decode(&c.pending)
		if err == nil {
			replies = append(replies, f)
			continue
		}
		if !errors.Is(err, resp.ErrNotComplete) {
			c.broken = true
			return nil, err
		}

		n, err := c.conn.Read(c.buf)
		c.pending.Write(c.buf[:n])
		if err != nil {
			c.broken = true
			return nil, fmt.Errorf("failed to read reply: %w", err)
		}
	}
	return replies, nil
}

func (c *clientConn) Healthy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.broken
}

func (c *clientConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.broken = true
	return c.conn.Close()
}

// deadline returns the earlier of the context deadline and the timeout
func (c *clientConn) deadline(ctx context.Context) time.Time {
	var deadline time.Time
	if c.timeout > 0 {
		deadline = time.Now().Add(c.timeout)
	}
	if d, ok := ctx.Deadline(); ok && (deadline.IsZero() || d.Before(deadline)) {
		deadline = d
	}
	return deadline
}
