package client

import (
	"context"
	"net"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ValentinKolb/rKV/lib/resp"
	"github.com/ValentinKolb/rKV/rpc/common"
	"github.com/ValentinKolb/rKV/rpc/server"
	"github.com/ValentinKolb/rKV/rpc/transport"
	"github.com/ValentinKolb/rKV/rpc/transport/tcp"
	"github.com/ValentinKolb/rKV/rpc/transport/unix"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startServer serves a new rKV server and returns its address
func startServer(t *testing.T, network, endpoint string, st transport.IRPCServerTransport) string {
	t.Helper()

	listener, err := net.Listen(network, endpoint)
	require.NoError(t, err)

	config := common.DefaultServerConfig()
	config.Endpoint = endpoint
	config.Shards = 2
	s := server.NewRESPServer(config, st)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.ServeListener(ctx, listener)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	return listener.Addr().String()
}

func newTestClient(t *testing.T) *RESPClient {
	t.Helper()
	addr := startServer(t, "tcp", "127.0.0.1:0", tcp.NewTCPServerTransport())

	config := common.DefaultClientConfig()
	config.Endpoint = addr
	config.PoolSize = 2

	c, err := NewRESPClient(config, tcp.NewTCPClientTransport())
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func ctx(t *testing.T) context.Context {
	c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return c
}

// --------------------------------------------------------------------------
// Tests
// --------------------------------------------------------------------------

func TestNewRESPClient_InvalidConfig(t *testing.T) {
	config := common.DefaultClientConfig()
	config.PoolSize = 0
	_, err := NewRESPClient(config, tcp.NewTCPClientTransport())
	assert.ErrorContains(t, err, "pool-size")
}

func TestNewRESPClient_Unreachable(t *testing.T) {
	// reserve a port and free it again
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	require.NoError(t, listener.Close())

	config := common.DefaultClientConfig()
	config.Endpoint = addr
	config.TimeoutSecond = 1
	_, err = NewRESPClient(config, tcp.NewTCPClientTransport())
	assert.Error(t, err)
}

func TestClient_Strings(t *testing.T) {
	c := newTestClient(t)

	_, ok, err := c.Get(ctx(t), "hello")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx(t), "hello", "world"))
	value, ok, err := c.Get(ctx(t), "hello")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "world", value)
}

func TestClient_Hashes(t *testing.T) {
	c := newTestClient(t)

	require.NoError(t, c.HSet(ctx(t), "map", "hello1", "world1"))
	require.NoError(t, c.HSet(ctx(t), "map", "hello", "world"))

	value, ok, err := c.HGet(ctx(t), "map", "hello")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "world", value)

	values, err := c.HMGet(ctx(t), "map", "hello", "missing", "hello1")
	require.NoError(t, err)
	require.Len(t, values, 3)
	assert.Equal(t, "world", *values[0])
	assert.Nil(t, values[1])
	assert.Equal(t, "world1", *values[2])

	fields, err := c.HGetAll(ctx(t), "map", true)
	require.NoError(t, err)
	assert.Equal(t, []FieldValue{{"hello", "world"}, {"hello1", "world1"}}, fields)

	fields, err = c.HGetAll(ctx(t), "missing", false)
	require.NoError(t, err)
	assert.Empty(t, fields)
}

func TestClient_Sets(t *testing.T) {
	c := newTestClient(t)

	ok, err := c.SIsMember(ctx(t), "s", "m")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.AddMember(ctx(t), "s", "m"))
	ok, err = c.SIsMember(ctx(t), "s", "m")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestClient_EchoAndRaw(t *testing.T) {
	c := newTestClient(t)

	msg, err := c.Echo(ctx(t), "hi")
	require.NoError(t, err)
	assert.Equal(t, "hi", msg)

	reply, err := c.Command(ctx(t), "PING")
	require.NoError(t, err)
	assert.Equal(t, resp.OK, reply)
}

func TestClient_ServerError(t *testing.T) {
	c := newTestClient(t)

	_, err := c.command(ctx(t), "get")
	assert.ErrorIs(t, err, ErrServer)

	// error replies are plain frames on the raw interface
	reply, err := c.Command(ctx(t), "get")
	require.NoError(t, err)
	assert.IsType(t, resp.SimpleError(""), reply)

	// the connection is still usable
	require.NoError(t, c.Set(ctx(t), "k", "v"))
}

func TestClient_Pipeline(t *testing.T) {
	c := newTestClient(t)

	replies, err := c.Pipeline(ctx(t),
		NewCommand("set", "k", "v"),
		NewCommand("get", "k"),
		NewCommand("echo", "done"),
	)
	require.NoError(t, err)
	assert.Equal(t, []resp.Frame{resp.OK, resp.NewBulkString("v"), resp.NewBulkString("done")}, replies)

	replies, err = c.Pipeline(ctx(t))
	require.NoError(t, err)
	assert.Empty(t, replies)
}

func TestClient_Concurrent(t *testing.T) {
	c := newTestClient(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				assert.NoError(t, c.AddMember(ctx(t), "set", "m"))
				ok, err := c.SIsMember(ctx(t), "set", "m")
				assert.NoError(t, err)
				assert.True(t, ok)
			}
		}(i)
	}
	wg.Wait()
}

func TestClient_UnixTransport(t *testing.T) {
	socket := filepath.Join(t.TempDir(), "rkv.sock")
	startServer(t, "unix", socket, unix.NewUnixServerTransport())

	config := common.DefaultClientConfig()
	config.Endpoint = socket
	config.Transport = common.TransportUnix

	c, err := NewRESPClient(config, unix.NewUnixClientTransport())
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Set(ctx(t), "hello", "unix"))
	value, _, err := c.Get(ctx(t), "hello")
	require.NoError(t, err)
	assert.Equal(t, "unix", value)
}

func TestConnFactory_ValidateObject(t *testing.T) {
	addr := startServer(t, "tcp", "127.0.0.1:0", tcp.NewTCPServerTransport())
	config := common.DefaultClientConfig()
	config.Endpoint = addr

	f := &connFactory{config: config, transport: tcp.NewTCPClientTransport()}
	obj, err := f.MakeObject(ctx(t))
	require.NoError(t, err)
	assert.True(t, f.ValidateObject(ctx(t), obj))

	require.NoError(t, f.DestroyObject(ctx(t), obj))
	assert.False(t, f.ValidateObject(ctx(t), obj))
}
