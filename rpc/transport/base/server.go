package base

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/ValentinKolb/rKV/lib/resp"
	"github.com/ValentinKolb/rKV/lib/resp/batch"
	"github.com/ValentinKolb/rKV/rpc/common"
	"github.com/ValentinKolb/rKV/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/oklog/ulid/v2"
	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/time/rate"
)

// Logger is the logger of the transport layer
var Logger = logger.GetLogger("transport")

var (
	// protocolErrorReply is sent before a connection is closed because of
	// malformed input
	protocolErrorReply = resp.SimpleError("ERR Protocol error")

	// errPendingLimit is reported when a client sends more unparsed data than
	// allowed
	errPendingLimit = fmt.Errorf("%w: pending data exceeds limit", resp.ErrMalformed)
)

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IServerConnector defines the interface for transport-specific server operations
type IServerConnector interface {
	// Listen creates a listener and returns it
	Listen(config common.ServerConfig) (net.Listener, error)

	// UpgradeConnection applies socket specific settings to an accepted connection
	UpgradeConnection(conn net.Conn, config common.ServerConfig) error

	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string
}

// -----------------------------------------------------------
// Server Transport
// -----------------------------------------------------------

// serverTransport implements the socket independent server loop
type serverTransport struct {
	connector IServerConnector
	handler   transport.ServerHandleFunc
	observer  transport.IConnObserver

	// set by Serve
	config     common.ServerConfig
	decode     resp.DecodeFunc
	bufferPool *sync.Pool

	conns *xsync.MapOf[string, net.Conn] // open connections by id
	wg    sync.WaitGroup
}

// NewBaseServerTransport creates a new server transport for the given connector
func NewBaseServerTransport(connector IServerConnector) transport.IRPCServerTransport {
	return &serverTransport{
		connector: connector,
		observer:  noopObserver{},
		conns:     xsync.NewMapOf[string, net.Conn](),
	}
}

// DecoderFor returns the decode function selected by the configuration
func DecoderFor(decoder common.DecoderType) resp.DecodeFunc {
	if decoder == common.DecoderBatch {
		return batch.Decode
	}
	return resp.Decode
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCServerTransport)
// --------------------------------------------------------------------------

func (t *serverTransport) RegisterHandler(handler transport.ServerHandleFunc) {
	t.handler = handler
}

func (t *serverTransport) RegisterObserver(observer transport.IConnObserver) {
	if observer == nil {
		observer = noopObserver{}
	}
	t.observer = observer
}

func (t *serverTransport) Listen(ctx context.Context, config common.ServerConfig) error {
	listener, err := t.connector.Listen(config)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}
	return t.Serve(ctx, listener, config)
}

func (t *serverTransport) Serve(ctx context.Context, listener net.Listener, config common.ServerConfig) error {
	if t.handler == nil {
		_ = listener.Close()
		return errors.New("no handler registered")
	}

	t.config = config
	t.decode = DecoderFor(config.Decoder)
	bufferSize := config.ReadBufferSize()
	t.bufferPool = &sync.Pool{
		New: func() interface{} {
			buf := make([]byte, bufferSize)
			return &buf
		},
	}

	Logger.Infof("Starting %s server on %s (decoder: %s)", t.connector.GetName(), listener.Addr(), config.Decoder)

	// stop accepting and wake up blocked reads on shutdown
	stopped := make(chan struct{})
	defer close(stopped)
	go func() {
		select {
		case <-ctx.Done():
			Logger.Infof("Shutting down %s server, %d open connections", t.connector.GetName(), t.conns.Size())
			_ = listener.Close()
			t.conns.Range(func(_ string, conn net.Conn) bool {
				_ = conn.SetReadDeadline(time.Now())
				return true
			})
		case <-stopped:
		}
	}()

	var acceptErr error
	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				Logger.Warningf("Temporary accept error: %v", err)
				time.Sleep(10 * time.Millisecond)
				continue
			}
			acceptErr = fmt.Errorf("accept failed: %w", err)
			break
		}

		if err := t.connector.UpgradeConnection(conn, config); err != nil {
			Logger.Warningf("Failed to upgrade connection from %s: %v", conn.RemoteAddr(), err)
		}

		t.wg.Add(1)
		go func() {
			defer t.wg.Done()
			t.handleConnection(ctx, conn)
		}()
	}

	// wait for all connections to finish
	t.wg.Wait()
	return acceptErr
}

// --------------------------------------------------------------------------
// Connection Handling
// --------------------------------------------------------------------------

// handleConnection serves one connection until the client disconnects, the
// input is malformed or the server shuts down
func (t *serverTransport) handleConnection(ctx context.Context, conn net.Conn) {
	id := newConnID()
	t.conns.Store(id, conn)
	t.observer.ConnOpened(id)
	Logger.Debugf("[%s] connection from %s opened", id, conn.RemoteAddr())

	defer func() {
		t.conns.Delete(id)
		_ = conn.Close()
		t.observer.ConnClosed(id)
		Logger.Debugf("[%s] connection closed", id)
	}()

	var limiter *rate.Limiter
	if t.config.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(t.config.RateLimit), t.config.RateLimit)
	}

	buf := t.bufferPool.Get().(*[]byte)
	defer t.bufferPool.Put(buf)

	var (
		pending bytes.Buffer // received but not yet decoded
		out     []byte       // encoded replies of one read
		timeout = t.config.Timeout()
	)

	for {
		if timeout > 0 {
			if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
				Logger.Errorf("[%s] failed to set read deadline: %v", id, err)
				return
			}
		}
		// checked after the deadline was set, so a concurrent shutdown
		// cannot be overwritten
		if ctx.Err() != nil {
			return
		}

		n, readErr := conn.Read(*buf)
		if n > 0 {
			pending.Write((*buf)[:n])
		}

		// decode and execute everything that is complete
		var procErr error
		out, procErr = t.processPending(ctx, &pending, out[:0], limiter)
		if procErr == nil {
			procErr = t.checkPending(&pending)
		}

		if len(out) > 0 {
			if err := t.write(conn, out); err != nil {
				Logger.Warningf("[%s] failed to write replies: %v", id, err)
				return
			}
		}

		if procErr != nil {
			if errors.Is(procErr, resp.ErrMalformed) {
				Logger.Warningf("[%s] closing connection: %v", id, procErr)
				t.observer.ProtocolError(id, procErr)
				_ = t.write(conn, resp.Encode(protocolErrorReply))
			}
			return
		}

		if readErr != nil {
			switch {
			case ctx.Err() != nil:
				// shutdown
			case errors.Is(readErr, io.EOF):
				Logger.Debugf("[%s] connection closed by client", id)
			case isTimeout(readErr):
				Logger.Debugf("[%s] idle timeout", id)
			default:
				Logger.Warningf("[%s] read error: %v", id, readErr)
			}
			return
		}
	}
}

// processPending decodes all complete frames in pending, runs the handler for
// each of them and appends the encoded replies to out
func (t *serverTransport) processPending(ctx context.Context, pending *bytes.Buffer, out []byte, limiter *rate.Limiter) ([]byte, error) {
	for {
		req, err := t.decode(pending)
		if errors.Is(err, resp.ErrNotComplete) {
			return out, nil
		}
		if err != nil {
			return out, err
		}

		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return out, err
			}
		}

		out = resp.AppendFrame(out, t.handler(req))
	}
}

// checkPending rejects connections whose unparsed data is malformed, exceeds
// the limit or announces a frame larger than the limit. The batch decoder
// reports malformed input as incomplete, so the grammar is checked here too.
func (t *serverTransport) checkPending(pending *bytes.Buffer) error {
	if pending.Len() == 0 {
		return nil
	}
	n, err := resp.ExpectLength(pending.Bytes())
	if errors.Is(err, resp.ErrMalformed) {
		return err
	}

	limit := t.config.MaxPendingBytes()
	if limit <= 0 {
		return nil
	}
	if pending.Len() > limit || (err == nil && n > limit) {
		return errPendingLimit
	}
	return nil
}

// write sends data with the configured write deadline
func (t *serverTransport) write(conn net.Conn, data []byte) error {
	if timeout := t.config.Timeout(); timeout > 0 {
		if err := conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
			return err
		}
	}
	_, err := conn.Write(data)
	return err
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// newConnID returns a sortable unique connection id
func newConnID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

type noopObserver struct{}

func (noopObserver) ConnOpened(string)           {}
func (noopObserver) ConnClosed(string)           {}
func (noopObserver) ProtocolError(string, error) {}
