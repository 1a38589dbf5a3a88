package cli

import (
	"context"

	"github.com/ValentinKolb/rKV/cmd/util"
	"github.com/ValentinKolb/rKV/rpc/client"
	"github.com/ValentinKolb/rKV/rpc/common"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	rkvClient    *client.RESPClient
	clientConfig *common.ClientConfig

	// CliCommands represents the client command group
	CliCommands = &cobra.Command{
		Use:                "cli",
		Short:              "Send commands to an rKV server",
		PersistentPreRunE:  setupClient,
		PersistentPostRunE: closeClient,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add connection flags
	util.SetupClientFlags(CliCommands)

	// Add subcommands
	CliCommands.AddCommand(getCmd)
	CliCommands.AddCommand(setCmd)
	CliCommands.AddCommand(hgetCmd)
	CliCommands.AddCommand(hsetCmd)
	CliCommands.AddCommand(hmgetCmd)
	CliCommands.AddCommand(hgetallCmd)
	CliCommands.AddCommand(sismemberCmd)
	CliCommands.AddCommand(addmemberCmd)
	CliCommands.AddCommand(echoCmd)
	CliCommands.AddCommand(rawCmd)
	CliCommands.AddCommand(perfTestCmd)
}

// setupClient connects the client to the server
func setupClient(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}
	if err := common.InitLoggers(viper.GetString("log-level")); err != nil {
		return err
	}

	clientConfig = util.GetClientConfig()
	if err := clientConfig.Validate(); err != nil {
		return err
	}

	t, err := util.GetClientTransport(clientConfig.Transport)
	if err != nil {
		return err
	}

	rkvClient, err = client.NewRESPClient(*clientConfig, t)
	return err
}

func closeClient(*cobra.Command, []string) error {
	if rkvClient != nil {
		rkvClient.Close()
	}
	return nil
}

// requestContext bounds a single command by the configured timeout
func requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), clientConfig.Timeout())
}
