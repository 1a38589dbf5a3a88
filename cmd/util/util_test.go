package util

import (
	"strings"
	"testing"

	"github.com/ValentinKolb/rKV/rpc/common"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapString(t *testing.T) {
	text := "The address of the rKV server (host:port for tcp, socket path for unix)"
	wrapped := WrapString(text)

	for _, line := range strings.Split(wrapped, "\n") {
		assert.LessOrEqual(t, len(line), Wrap)
	}
	assert.Equal(t, text, strings.ReplaceAll(wrapped, "\n", " "))
	assert.Equal(t, "", WrapString(""))
}

func TestGetClientConfig(t *testing.T) {
	t.Cleanup(viper.Reset)
	t.Setenv("RKV_POOL_SIZE", "7")

	cmd := &cobra.Command{Use: "test"}
	cmd.PersistentFlags().String("transport", "tcp", "")
	SetupClientFlags(cmd)
	require.NoError(t, cmd.ParseFlags([]string{"--endpoint", "example:1234"}))

	InitConfig()
	require.NoError(t, BindCommandFlags(cmd))

	config := GetClientConfig()
	assert.Equal(t, "example:1234", config.Endpoint)
	assert.Equal(t, common.TransportTCP, config.Transport)
	assert.Equal(t, common.DefaultClientConfig().TimeoutSecond, config.TimeoutSecond)
	assert.Equal(t, 7, config.PoolSize)
	assert.NoError(t, config.Validate())
}

func TestGetTransport(t *testing.T) {
	for _, tt := range []common.TransportType{common.TransportTCP, common.TransportUnix} {
		st, err := GetServerTransport(tt)
		require.NoError(t, err)
		assert.NotNil(t, st)

		ct, err := GetClientTransport(tt)
		require.NoError(t, err)
		assert.NotNil(t, ct)
	}

	_, err := GetServerTransport("http")
	assert.Error(t, err)
	_, err = GetClientTransport("http")
	assert.Error(t, err)
}
