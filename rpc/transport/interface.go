package transport

import (
	"context"
	"net"

	"github.com/ValentinKolb/rKV/lib/resp"
	"github.com/ValentinKolb/rKV/rpc/common"
)

// --------------------------------------------------------------------------
// Server Transport
// --------------------------------------------------------------------------

// ServerHandleFunc handles one decoded request frame and returns the reply.
// It is called sequentially per connection, in the order the requests arrived.
type ServerHandleFunc func(req resp.Frame) resp.Frame

// IConnObserver is notified about connection events. It is used for metrics
// and must not block.
type IConnObserver interface {
	// ConnOpened is called after a connection was accepted
	ConnOpened(id string)
	// ConnClosed is called after a connection was closed
	ConnClosed(id string)
	// ProtocolError is called when a connection is closed because of
	// malformed input
	ProtocolError(id string, err error)
}

// IRPCServerTransport accepts connections and serves RESP requests on them
type IRPCServerTransport interface {
	// RegisterHandler registers the request handler. It must be called before
	// Listen or Serve.
	RegisterHandler(handler ServerHandleFunc)

	// RegisterObserver registers an observer for connection events (optional)
	RegisterObserver(observer IConnObserver)

	// Listen creates a listener for config.Endpoint and serves it until ctx
	// is cancelled
	Listen(ctx context.Context, config common.ServerConfig) error

	// Serve serves connections of an existing listener until ctx is cancelled.
	// On cancellation the listener is closed, open connections finish the
	// requests already read and Serve returns nil.
	Serve(ctx context.Context, listener net.Listener, config common.ServerConfig) error
}

// --------------------------------------------------------------------------
// Client Transport
// --------------------------------------------------------------------------

// IRPCClientConn is a single client connection
type IRPCClientConn interface {
	// Do sends one request and waits for its reply
	Do(ctx context.Context, req resp.Frame) (resp.Frame, error)

	// Pipeline sends all requests in one write and returns the replies in
	// request order
	Pipeline(ctx context.Context, reqs []resp.Frame) ([]resp.Frame, error)

	// Healthy reports whether the connection can still be used. A connection
	// becomes unhealthy after any I/O or protocol error.
	Healthy() bool

	// Close closes the connection
	Close() error
}

// IRPCClientTransport opens client connections
type IRPCClientTransport interface {
	// Connect dials config.Endpoint and returns a new connection
	Connect(config common.ClientConfig) (IRPCClientConn, error)
}
