package serve

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	cmdUtil "github.com/ValentinKolb/rKV/cmd/util"
	"github.com/ValentinKolb/rKV/rpc/common"
	"github.com/ValentinKolb/rKV/rpc/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	serveCmdConfig = &common.ServerConfig{}
	ServeCmd       = &cobra.Command{
		Use:     "serve",
		Short:   "Start the rKV server",
		Long:    `Start the rKV server with the specified configuration. The configuration can be set via command line flags or environment variables. The format of the environment variables is RKV_<flag> (e.g. RKV_RATE_LIMIT=1000)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(cmdUtil.InitConfig)

	defaults := common.DefaultServerConfig()

	// add flags
	key := "endpoint"
	ServeCmd.PersistentFlags().String(key, defaults.Endpoint, cmdUtil.WrapString("The address on which the server will listen (e.g. 0.0.0.0:6379 for tcp, /tmp/rkv.sock for unix)"))

	key = "decoder"
	ServeCmd.PersistentFlags().String(key, string(defaults.Decoder), cmdUtil.WrapString("RESP decoder to use: incremental (frame by frame) or batch (probe the frame length first, then parse)"))

	key = "shards"
	ServeCmd.PersistentFlags().Int(key, defaults.Shards, cmdUtil.WrapString("Number of backend shards (0 = one per CPU)"))

	key = "hgetall-sort"
	ServeCmd.PersistentFlags().Bool(key, defaults.HGetAllSort, cmdUtil.WrapString("Sort every HGETALL reply by field, even without the SORT token"))

	key = "timeout"
	ServeCmd.PersistentFlags().Int64(key, defaults.TimeoutSecond, cmdUtil.WrapString("Idle timeout in seconds after which a connection without requests is closed (0 = never)"))

	key = "rate-limit"
	ServeCmd.PersistentFlags().Int(key, defaults.RateLimit, cmdUtil.WrapString("Maximum commands per second per connection (0 = unlimited)"))

	key = "read-buffer"
	ServeCmd.PersistentFlags().Int(key, defaults.ReadBufferKB, cmdUtil.WrapString("Size of the per connection read buffer (in KB)"))

	key = "max-pending"
	ServeCmd.PersistentFlags().Int(key, defaults.MaxPendingKB, cmdUtil.WrapString("Maximum unparsed data per connection (in KB). Connections sending larger frames are closed"))

	key = "metrics-endpoint"
	ServeCmd.PersistentFlags().String(key, defaults.MetricsEndpoint, cmdUtil.WrapString("Address of the HTTP endpoint serving /metrics in Prometheus format (e.g. localhost:9100, empty = disabled)"))
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := cmdUtil.BindCommandFlags(cmd); err != nil {
		return err
	}

	serveCmdConfig.Endpoint = viper.GetString("endpoint")
	serveCmdConfig.Transport = common.TransportType(viper.GetString("transport"))
	serveCmdConfig.Decoder = common.DecoderType(viper.GetString("decoder"))
	serveCmdConfig.Shards = viper.GetInt("shards")
	serveCmdConfig.HGetAllSort = viper.GetBool("hgetall-sort")
	serveCmdConfig.TimeoutSecond = viper.GetInt64("timeout")
	serveCmdConfig.RateLimit = viper.GetInt("rate-limit")
	serveCmdConfig.ReadBufferKB = viper.GetInt("read-buffer")
	serveCmdConfig.MaxPendingKB = viper.GetInt("max-pending")
	serveCmdConfig.MetricsEndpoint = viper.GetString("metrics-endpoint")
	serveCmdConfig.LogLevel = viper.GetString("log-level")

	if err := serveCmdConfig.Validate(); err != nil {
		return err
	}
	return common.InitLoggers(serveCmdConfig.LogLevel)
}

// run starts the rKV server and blocks until SIGINT or SIGTERM
func run(_ *cobra.Command, _ []string) error {
	t, err := cmdUtil.GetServerTransport(serveCmdConfig.Transport)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serv := server.NewRESPServer(*serveCmdConfig, t)
	if err := serv.Serve(ctx); err != nil {
		return err
	}

	server.Logger.Infof("rKV server stopped")
	return nil
}
