package base

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ValentinKolb/rKV/lib/resp"
	"github.com/ValentinKolb/rKV/lib/resp/batch"
	"github.com/ValentinKolb/rKV/rpc/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// loopbackConnector listens on a random local TCP port
type loopbackConnector struct{}

func (loopbackConnector) GetName() string { return "loopback" }

func (loopbackConnector) Listen(common.ServerConfig) (net.Listener, error) {
	return net.Listen("tcp", "127.0.0.1:0")
}

func (loopbackConnector) UpgradeConnection(net.Conn, common.ServerConfig) error { return nil }

func (loopbackConnector) Connect(endpoint string, timeout time.Duration) (net.Conn, error) {
	return net.DialTimeout("tcp", endpoint, timeout)
}

// countingObserver records connection events
type countingObserver struct {
	mu                     sync.Mutex
	opened, closed, errors int
}

func (o *countingObserver) ConnOpened(string) { o.mu.Lock(); o.opened++; o.mu.Unlock() }
func (o *countingObserver) ConnClosed(string) { o.mu.Lock(); o.closed++; o.mu.Unlock() }
func (o *countingObserver) ProtocolError(string, error) {
	o.mu.Lock()
	o.errors++
	o.mu.Unlock()
}

func (o *countingObserver) counts() (int, int, int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.opened, o.closed, o.errors
}

// echoHandler replies with the request
func echoHandler(req resp.Frame) resp.Frame { return req }

// serve starts an echo server and returns its address and a stop function
func serve(t *testing.T, config common.ServerConfig, observer *countingObserver) (string, func()) {
	t.Helper()

	listener, err := loopbackConnector{}.Listen(config)
	require.NoError(t, err)

	st := NewBaseServerTransport(loopbackConnector{})
	st.RegisterHandler(echoHandler)
	st.RegisterObserver(observer)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- st.Serve(ctx, listener, config) }()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			cancel()
			select {
			case err := <-done:
				assert.NoError(t, err)
			case <-time.After(5 * time.Second):
				t.Error("server did not stop")
			}
		})
	}
	t.Cleanup(stop)
	return listener.Addr().String(), stop
}

func testConfig() common.ServerConfig {
	config := common.DefaultServerConfig()
	config.TimeoutSecond = 10
	return config
}

func connect(t *testing.T, addr string) *clientConn {
	t.Helper()
	ct := NewBaseClientTransport(loopbackConnector{})
	cfg := common.DefaultClientConfig()
	cfg.Endpoint = addr
	conn, err := ct.Connect(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn.(*clientConn)
}

// --------------------------------------------------------------------------
// Tests
// --------------------------------------------------------------------------

func TestDecoderFor(t *testing.T) {
	data := "+OK\r\n"
	for _, decoder := range []common.DecoderType{common.DecoderIncremental, common.DecoderBatch} {
		buf := bytesBuffer(data)
		f, err := DecoderFor(decoder)(buf)
		require.NoError(t, err)
		assert.Equal(t, resp.OK, f)
	}

	// the batch decoder is selected by name
	_, err := DecoderFor(common.DecoderBatch)(bytesBuffer("$abc\r\n"))
	assert.ErrorIs(t, err, resp.ErrNotComplete)
	_, err = batch.Decode(bytesBuffer("$abc\r\n"))
	assert.ErrorIs(t, err, resp.ErrNotComplete)
}

func TestServe_NoHandler(t *testing.T) {
	listener, err := loopbackConnector{}.Listen(testConfig())
	require.NoError(t, err)

	err = NewBaseServerTransport(loopbackConnector{}).Serve(context.Background(), listener, testConfig())
	assert.Error(t, err)
}

func TestRoundTrip(t *testing.T) {
	for _, decoder := range []common.DecoderType{common.DecoderIncremental, common.DecoderBatch} {
		t.Run(string(decoder), func(t *testing.T) {
			config := testConfig()
			config.Decoder = decoder
			addr, _ := serve(t, config, &countingObserver{})
			conn := connect(t, addr)

			reqs := []resp.Frame{
				resp.NewSimpleString("a"),
				resp.Integer(-7),
				resp.NewBulkString(""),
				resp.BulkString(nil),
				resp.NewArray(resp.NewBulkString("x"), resp.Boolean(true)),
				resp.Map{"k": resp.Double(1.5)},
				resp.Null{},
			}
			replies, err := conn.Pipeline(context.Background(), reqs)
			require.NoError(t, err)
			assert.Equal(t, reqs, replies)

			reply, err := conn.Do(context.Background(), resp.NewBulkString("single"))
			require.NoError(t, err)
			assert.Equal(t, resp.NewBulkString("single"), reply)
			assert.True(t, conn.Healthy())
		})
	}
}

func TestLargeFrameSpanningReads(t *testing.T) {
	config := testConfig()
	config.ReadBufferKB = 1
	addr, _ := serve(t, config, &countingObserver{})
	conn := connect(t, addr)

	large := make([]byte, 256*1024)
	for i := range large {
		large[i] = byte('a' + i%26)
	}
	reply, err := conn.Do(context.Background(), resp.BulkString(large))
	require.NoError(t, err)
	assert.Equal(t, resp.BulkString(large), reply)
}

func TestProtocolErrorClosesConnection(t *testing.T) {
	for _, decoder := range []common.DecoderType{common.DecoderIncremental, common.DecoderBatch} {
		inputs := map[string]string{
			"bad integer": ":12a\r\n",
			"bad length":  "$abc\r\n",
			"too deep":    strings.Repeat("*1\r\n", resp.MaxNestingDepth+1),
		}
		for name, input := range inputs {
			t.Run(string(decoder)+"/"+name, func(t *testing.T) {
				observer := &countingObserver{}
				config := testConfig()
				config.Decoder = decoder
				addr, _ := serve(t, config, observer)

				conn, err := net.Dial("tcp", addr)
				require.NoError(t, err)
				defer conn.Close()
				require.NoError(t, conn.SetDeadline(time.Now().Add(5*time.Second)))

				_, err = conn.Write([]byte(input))
				require.NoError(t, err)

				// closed right away, not after the idle timeout
				out, err := io.ReadAll(conn)
				require.NoError(t, err)
				assert.Equal(t, "-ERR Protocol error\r\n", string(out))

				assert.Eventually(t, func() bool {
					opened, closed, errs := observer.counts()
					return opened == 1 && closed == 1 && errs == 1
				}, time.Second, 10*time.Millisecond)
			})
		}
	}
}

func TestRateLimit(t *testing.T) {
	config := testConfig()
	config.RateLimit = 20
	addr, _ := serve(t, config, &countingObserver{})
	conn := connect(t, addr)

	// the burst is served right away, the rest at 20 per second
	reqs := make([]resp.Frame, 30)
	for i := range reqs {
		reqs[i] = resp.Integer(i)
	}
	start := time.Now()
	replies, err := conn.Pipeline(context.Background(), reqs)
	require.NoError(t, err)
	assert.Equal(t, reqs, replies)
	assert.GreaterOrEqual(t, time.Since(start), 400*time.Millisecond)
}

func TestShutdownClosesIdleConnections(t *testing.T) {
	observer := &countingObserver{}
	addr, stop := serve(t, testConfig(), observer)
	conn := connect(t, addr)

	_, err := conn.Do(context.Background(), resp.OK)
	require.NoError(t, err)

	stop()

	opened, closed, _ := observer.counts()
	assert.Equal(t, 1, opened)
	assert.Equal(t, 1, closed)

	_, err = conn.Do(context.Background(), resp.OK)
	assert.Error(t, err)
	assert.False(t, conn.Healthy())
}

func TestClientConn_BrokenAfterError(t *testing.T) {
	server, client := net.Pipe()
	conn := NewClientConn(client, time.Second)

	// reply with garbage
	go func() {
		buf := make([]byte, 64)
		_, _ = server.Read(buf)
		_, _ = server.Write([]byte("?\r\n"))
	}()

	_, err := conn.Do(context.Background(), resp.OK)
	assert.ErrorIs(t, err, resp.ErrMalformed)
	assert.False(t, conn.Healthy())

	_, err = conn.Do(context.Background(), resp.OK)
	assert.Error(t, err)
	_ = server.Close()
	_ = conn.Close()
}

func TestClientConn_ContextDeadline(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	conn := NewClientConn(client, 0)
	defer conn.Close()

	// the server reads but never replies
	go func() { _, _ = io.Copy(io.Discard, server) }()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := conn.Do(ctx, resp.OK)
	require.Error(t, err)
	var netErr net.Error
	assert.True(t, errors.As(err, &netErr) && netErr.Timeout())
}

func bytesBuffer(s string) *bytes.Buffer { return bytes.NewBufferString(s) }
