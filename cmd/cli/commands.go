package cli

import (
	"fmt"

	"github.com/ValentinKolb/rKV/rpc/client"
	"github.com/spf13/cobra"
)

var (
	getCmd = &cobra.Command{
		Use:   "get [key]",
		Short: "Gets the value of a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := requestContext()
			defer cancel()

			value, ok, err := rkvClient.Get(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Println(formatOptional(value, ok))
			return nil
		},
	}
	setCmd = &cobra.Command{
		Use:   "set [key] [value]",
		Short: "Sets the value for a key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := requestContext()
			defer cancel()

			if err := rkvClient.Set(ctx, args[0], args[1]); err != nil {
				return err
			}
			fmt.Println("OK")
			return nil
		},
	}
	hgetCmd = &cobra.Command{
		Use:   "hget [key] [field]",
		Short: "Gets the value of a field of a hash",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := requestContext()
			defer cancel()

			value, ok, err := rkvClient.HGet(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Println(formatOptional(value, ok))
			return nil
		},
	}
	hsetCmd = &cobra.Command{
		Use:   "hset [key] [field] [value]",
		Short: "Sets the value of a field of a hash",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := requestContext()
			defer cancel()

			if err := rkvClient.HSet(ctx, args[0], args[1], args[2]); err != nil {
				return err
			}
			fmt.Println("OK")
			return nil
		},
	}
	hmgetCmd = &cobra.Command{
		Use:   "hmget [key] [field...]",
		Short: "Gets the values of several fields of a hash",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := requestContext()
			defer cancel()

			values, err := rkvClient.HMGet(ctx, args[0], args[1:]...)
			if err != nil {
				return err
			}
			for i, value := range values {
				if value == nil {
					fmt.Printf("%d) %s\n", i+1, formatOptional("", false))
				} else {
					fmt.Printf("%d) %s\n", i+1, formatOptional(*value, true))
				}
			}
			return nil
		},
	}
	hgetallCmd = &cobra.Command{
		Use:   "hgetall [key]",
		Short: "Gets all fields and values of a hash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := requestContext()
			defer cancel()

			sort, _ := cmd.Flags().GetBool("sort")
			fields, err := rkvClient.HGetAll(ctx, args[0], sort)
			if err != nil {
				return err
			}
			fmt.Print(formatFields(fields))
			return nil
		},
	}
	sismemberCmd = &cobra.Command{
		Use:   "sismember [key] [member]",
		Short: "Checks if a member is in a set",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := requestContext()
			defer cancel()

			ok, err := rkvClient.SIsMember(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Println(ok)
			return nil
		},
	}
	addmemberCmd = &cobra.Command{
		Use:   "addmember [key] [member]",
		Short: "Adds a member to a set",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := requestContext()
			defer cancel()

			if err := rkvClient.AddMember(ctx, args[0], args[1]); err != nil {
				return err
			}
			fmt.Println("OK")
			return nil
		},
	}
	echoCmd = &cobra.Command{
		Use:   "echo [message]",
		Short: "Echoes a message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := requestContext()
			defer cancel()

			msg, err := rkvClient.Echo(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Println(msg)
			return nil
		},
	}
	rawCmd = &cobra.Command{
		Use:   "raw [command] [args...]",
		Short: "Sends any command and prints the raw reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := requestContext()
			defer cancel()

			reply, err := rkvClient.Do(ctx, client.NewCommand(args...))
			if err != nil {
				return err
			}
			fmt.Println(FormatFrame(reply))
			return nil
		},
	}
)

func init() {
	hgetallCmd.Flags().Bool("sort", false, "Sort the reply by field")
}
