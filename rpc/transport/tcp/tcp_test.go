package tcp

import (
	"context"
	"testing"

	"github.com/ValentinKolb/rKV/lib/resp"
	"github.com/ValentinKolb/rKV/rpc/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTCPTransport(t *testing.T) {
	config := common.DefaultServerConfig()
	config.Endpoint = "127.0.0.1:0"

	listener, err := (&serverConnector{}).Listen(config)
	require.NoError(t, err)

	st := NewTCPServerTransport()
	st.RegisterHandler(func(req resp.Frame) resp.Frame { return req })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- st.Serve(ctx, listener, config) }()
	defer func() {
		cancel()
		assert.NoError(t, <-done)
	}()

	clientConfig := common.DefaultClientConfig()
	clientConfig.Endpoint = listener.Addr().String()
	conn, err := NewTCPClientTransport().Connect(clientConfig)
	require.NoError(t, err)
	defer conn.Close()

	reply, err := conn.Do(context.Background(), resp.NewBulkString("tcp"))
	require.NoError(t, err)
	assert.Equal(t, resp.NewBulkString("tcp"), reply)
}

func TestTCPClient_ConnectFails(t *testing.T) {
	config := common.DefaultClientConfig()
	config.Endpoint = "127.0.0.1:1"
	config.TimeoutSecond = 1

	_, err := NewTCPClientTransport().Connect(config)
	assert.ErrorContains(t, err, "via tcp")
}
