package cli

import (
	"fmt"
	"os"

	"github.com/rookgm/brewtrack/internal/client"
	"github.com/spf13/cobra"
)

// environment fallbacks for global flags
const (
	EnvServer = "BREWTRACK_SERVER"
	EnvToken  = "BREWTRACK_TOKEN"
)

const defaultServer = "http://localhost:8080"

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Server string
	Token  string
}

// Client returns API client for the configured server
func (o *RootOptions) Client() *client.Client {
	return client.NewClient(o.Server, o.Token)
}

// requireToken fails commands that need a signed-in viewer
func (o *RootOptions) requireToken() error {
	if o.Token == "" {
		return fmt.Errorf("no token: run `brewtrack-cli login` or set %s", EnvToken)
	}
	return nil
}

// NewRootCommand creates the root command for the brewtrack CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "brewtrack-cli",
		Short: "brewtrack - café order tracking",
		Long:  "Place café orders, move them through the kitchen and watch their status change live.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// environment fills flags that were not given
			if !cmd.Flags().Changed("server") {
				if v := os.Getenv(EnvServer); v != "" {
					opts.Server = v
				}
			}
			if !cmd.Flags().Changed("token") {
				if v := os.Getenv(EnvToken); v != "" {
					opts.Token = v
				}
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	cmd.PersistentFlags().StringVarP(&opts.Server, "server", "s", defaultServer, "server base URL (env "+EnvServer+")")
	cmd.PersistentFlags().StringVarP(&opts.Token, "token", "t", "", "bearer token (env "+EnvToken+")")

	// Add subcommands
	cmd.AddCommand(NewLoginCommand(opts))
	cmd.AddCommand(NewTokenCommand(opts))
	cmd.AddCommand(NewPlaceCommand(opts))
	cmd.AddCommand(NewWatchCommand(opts))
	cmd.AddCommand(NewAdvanceCommand(opts))
	cmd.AddCommand(NewItemCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewRemoveCommand(opts))

	return cmd
}
