package server

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ValentinKolb/rKV/lib/resp"
	"github.com/ValentinKolb/rKV/rpc/common"
	"github.com/ValentinKolb/rKV/rpc/transport/tcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func testConfig(decoder common.DecoderType) common.ServerConfig {
	config := common.DefaultServerConfig()
	config.Endpoint = "127.0.0.1:0"
	config.Decoder = decoder
	config.Shards = 4
	config.TimeoutSecond = 10
	return config
}

// startServer serves a new server on a loopback listener. The returned stop
// function cancels the server and waits for Serve to return.
func startServer(t *testing.T, config common.ServerConfig) (*RESPServer, string, func() error) {
	t.Helper()

	listener, err := net.Listen("tcp", config.Endpoint)
	require.NoError(t, err)

	s := NewRESPServer(config, tcp.NewTCPServerTransport())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.ServeListener(ctx, listener) }()

	stopped := false
	stop := func() error {
		if stopped {
			return nil
		}
		stopped = true
		cancel()
		select {
		case err := <-done:
			return err
		case <-time.After(5 * time.Second):
			return errors.New("server did not stop")
		}
	}
	t.Cleanup(func() { _ = stop() })

	return s, listener.Addr().String(), stop
}

func dial(t *testing.T, addr string) net.Conn {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr, time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, conn.SetDeadline(time.Now().Add(5*time.Second)))
	return conn
}

// request encodes a command from text tokens
func request(tokens ...string) []byte {
	a := make(resp.Array, len(tokens))
	for i, token := range tokens {
		a[i] = resp.NewBulkString(token)
	}
	return resp.Encode(a)
}

// readReplies reads until n frames are decoded
func readReplies(t *testing.T, conn net.Conn, n int) []resp.Frame {
	t.Helper()

	var (
		pending bytes.Buffer
		replies []resp.Frame
		buf     = make([]byte, 4096)
	)
	for len(replies) < n {
		f, err := resp.Decode(&pending)
		if err == nil {
			replies = append(replies, f)
			continue
		}
		require.ErrorIs(t, err, resp.ErrNotComplete)

		read, err := conn.Read(buf)
		pending.Write(buf[:read])
		require.NoError(t, err)
	}
	assert.Zero(t, pending.Len(), "unexpected trailing data")
	return replies
}

// --------------------------------------------------------------------------
// Handler
// --------------------------------------------------------------------------

func TestHandle(t *testing.T) {
	s := NewRESPServer(testConfig(common.DecoderIncremental), tcp.NewTCPServerTransport())

	get := resp.NewArray(resp.NewBulkString("get"), resp.NewBulkString("hello"))
	assert.Equal(t, resp.Null{}, s.Handle(get))

	set := resp.NewArray(resp.NewBulkString("SET"), resp.NewBulkString("hello"), resp.NewBulkString("world"))
	assert.Equal(t, resp.OK, s.Handle(set))
	assert.Equal(t, resp.NewBulkString("world"), s.Handle(get))

	// not an array
	reply := s.Handle(resp.NewSimpleString("get"))
	require.IsType(t, resp.SimpleError(""), reply)
	assert.True(t, strings.HasPrefix(string(reply.(resp.SimpleError)), "ERR invalid command"))

	// unknown commands are acknowledged
	assert.Equal(t, resp.OK, s.Handle(resp.NewArray(resp.NewBulkString("ping"))))
}

func TestHandle_HGetAllSortFromConfig(t *testing.T) {
	config := testConfig(common.DecoderIncremental)
	config.HGetAllSort = true
	s := NewRESPServer(config, tcp.NewTCPServerTransport())

	s.Backend().HSet("map", "b", resp.NewBulkString("2"))
	s.Backend().HSet("map", "a", resp.NewBulkString("1"))

	reply := s.Handle(resp.NewArray(resp.NewBulkString("hgetall"), resp.NewBulkString("map")))
	assert.Equal(t, resp.NewArray(
		resp.NewBulkString("a"), resp.NewBulkString("1"),
		resp.NewBulkString("b"), resp.NewBulkString("2"),
	), reply)
}

// --------------------------------------------------------------------------
// End to end
// --------------------------------------------------------------------------

func TestServer_PipelinedRepliesInOrder(t *testing.T) {
	for _, decoder := range []common.DecoderType{common.DecoderIncremental, common.DecoderBatch} {
		t.Run(string(decoder), func(t *testing.T) {
			_, addr, _ := startServer(t, testConfig(decoder))
			conn := dial(t, addr)

			var pipeline []byte
			pipeline = append(pipeline, request("get", "hello")...)
			pipeline = append(pipeline, request("set", "hello", "world")...)
			pipeline = append(pipeline, request("get", "hello")...)
			pipeline = append(pipeline, request("hset", "map", "hello1", "world1")...)
			pipeline = append(pipeline, request("hset", "map", "hello", "world")...)
			pipeline = append(pipeline, request("hgetall", "map", "sort")...)
			pipeline = append(pipeline, request("addmember", "s", "m")...)
			pipeline = append(pipeline, request("sismember", "s", "m")...)
			pipeline = append(pipeline, request("echo", "hi")...)
			_, err := conn.Write(pipeline)
			require.NoError(t, err)

			replies := readReplies(t, conn, 9)
			assert.Equal(t, []resp.Frame{
				resp.Null{},
				resp.OK,
				resp.NewBulkString("world"),
				resp.OK,
				resp.OK,
				resp.NewArray(
					resp.NewBulkString("hello"), resp.NewBulkString("world"),
					resp.NewBulkString("hello1"), resp.NewBulkString("world1"),
				),
				resp.Integer(1),
				resp.Integer(1),
				resp.NewBulkString("hi"),
			}, replies)
		})
	}
}

func TestServer_SplitFrames(t *testing.T) {
	_, addr, _ := startServer(t, testConfig(common.DecoderIncremental))
	conn := dial(t, addr)

	req := request("echo", "split")
	for _, b := range req {
		_, err := conn.Write([]byte{b})
		require.NoError(t, err)
	}

	assert.Equal(t, []resp.Frame{resp.NewBulkString("split")}, readReplies(t, conn, 1))
}

func TestServer_CommandErrorKeepsConnection(t *testing.T) {
	_, addr, _ := startServer(t, testConfig(common.DecoderIncremental))
	conn := dial(t, addr)

	_, err := conn.Write([]byte("*1\r\n$3\r\nget\r\n"))
	require.NoError(t, err)
	replies := readReplies(t, conn, 1)
	require.IsType(t, resp.SimpleError(""), replies[0])
	assert.Contains(t, string(replies[0].(resp.SimpleError)), "get command must have at least 1 argument(s)")

	// connection still usable
	_, err = conn.Write(request("echo", "still here"))
	require.NoError(t, err)
	assert.Equal(t, []resp.Frame{resp.NewBulkString("still here")}, readReplies(t, conn, 1))
}

func TestServer_MalformedFrameClosesConnection(t *testing.T) {
	for _, decoder := range []common.DecoderType{common.DecoderIncremental, common.DecoderBatch} {
		t.Run(string(decoder), func(t *testing.T) {
			s, addr, _ := startServer(t, testConfig(decoder))
			conn := dial(t, addr)

			_, err := conn.Write([]byte("$abc\r\n"))
			require.NoError(t, err)

			data, err := io.ReadAll(conn)
			require.NoError(t, err)
			assert.Equal(t, "-ERR Protocol error\r\n", string(data))

			assert.Eventually(t, func() bool {
				return s.metrics.protocolErrors.Get() == 1
			}, time.Second, 10*time.Millisecond)
		})
	}
}

func TestServer_RepliesBeforeMalformedFrame(t *testing.T) {
	_, addr, _ := startServer(t, testConfig(common.DecoderIncremental))
	conn := dial(t, addr)

	data := append(request("echo", "first"), []byte("#x\r\n")...)
	_, err := conn.Write(data)
	require.NoError(t, err)

	out, err := io.ReadAll(conn)
	require.NoError(t, err)
	assert.Equal(t, "$5\r\nfirst\r\n-ERR Protocol error\r\n", string(out))
}

func TestServer_PendingLimit(t *testing.T) {
	config := testConfig(common.DecoderIncremental)
	config.ReadBufferKB = 1
	config.MaxPendingKB = 1
	_, addr, _ := startServer(t, config)
	conn := dial(t, addr)

	// announces a bulk string larger than the limit
	_, err := conn.Write([]byte("$4096\r\n"))
	require.NoError(t, err)

	out, err := io.ReadAll(conn)
	require.NoError(t, err)
	assert.Equal(t, "-ERR Protocol error\r\n", string(out))
}

func TestServer_SharedBackend(t *testing.T) {
	_, addr, _ := startServer(t, testConfig(common.DecoderIncremental))
	a := dial(t, addr)
	b := dial(t, addr)

	_, err := a.Write(request("set", "k", "from a"))
	require.NoError(t, err)
	readReplies(t, a, 1)

	_, err = b.Write(request("get", "k"))
	require.NoError(t, err)
	assert.Equal(t, []resp.Frame{resp.NewBulkString("from a")}, readReplies(t, b, 1))
}

func TestServer_GracefulShutdown(t *testing.T) {
	s, addr, stop := startServer(t, testConfig(common.DecoderIncremental))
	conn := dial(t, addr)

	_, err := conn.Write(request("echo", "hi"))
	require.NoError(t, err)
	readReplies(t, conn, 1)

	assert.Eventually(t, func() bool {
		return s.metrics.active.Value() == 1
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, stop())

	// the open connection is closed by the server
	_, err = io.ReadAll(conn)
	require.NoError(t, err)
	assert.Equal(t, int64(0), s.metrics.active.Value())

	// no new connections are accepted
	_, err = net.DialTimeout("tcp", addr, 200*time.Millisecond)
	assert.Error(t, err)
}

// --------------------------------------------------------------------------
// Metrics
// --------------------------------------------------------------------------

func TestMetricsEndpoint(t *testing.T) {
	s := NewRESPServer(testConfig(common.DecoderIncremental), tcp.NewTCPServerTransport())

	s.Handle(resp.NewArray(resp.NewBulkString("set"), resp.NewBulkString("k"), resp.NewBulkString("v")))
	s.Handle(resp.NewArray(resp.NewBulkString("get"), resp.NewBulkString("k")))
	s.Handle(resp.NewArray(resp.NewBulkString("get")))

	srv := httptest.NewServer(s.metrics.handler())
	defer srv.Close()

	res, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	text := string(body)

	assert.Contains(t, text, `rkv_commands_total{cmd="get"} 1`)
	assert.Contains(t, text, `rkv_commands_total{cmd="set"} 1`)
	assert.Contains(t, text, "rkv_command_errors_total 1")
	assert.Contains(t, text, "rkv_connections_active 0")
	assert.Contains(t, text, `rkv_backend_keys{table="strings"} 1`)
	assert.Contains(t, text, "rkv_command_duration_seconds_count 2")

	res2, err := http.Post(srv.URL+"/metrics", "text/plain", nil)
	require.NoError(t, err)
	res2.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, res2.StatusCode)
}
