package cli

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/rookgm/brewtrack/internal/auth"
	"github.com/rookgm/brewtrack/internal/service"
	"github.com/spf13/cobra"
)

// LoginOptions holds flags for the login command.
type LoginOptions struct {
	*RootOptions
	Name string
}

// NewLoginCommand creates the login command.
func NewLoginCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LoginOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in as a customer",
		Long: `Sign in under a display name and print the customer token.

Examples:
  brewtrack-cli login --name Mina
  export BREWTRACK_TOKEN=$(brewtrack-cli login --name Mina)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := opts.Client().SignIn(cmd.Context(), opts.Name)
			if err != nil {
				return fmt.Errorf("sign in: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.Name, "name", "n", "", "display name (required)")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

// TokenOptions holds flags for the token command.
type TokenOptions struct {
	*RootOptions
	Key     string
	Subject string
	TTL     time.Duration
}

// NewTokenCommand creates the token command, minting staff tokens with the server key.
func NewTokenCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TokenOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a staff token",
		Long: `Mint a staff token signed with the server's hex HMAC key.

Examples:
  brewtrack-cli token --key $TOKEN_KEY --subject barista`,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := hex.DecodeString(opts.Key)
			if err != nil {
				return fmt.Errorf("key must be hex: %w", err)
			}
			sessions := service.NewSessionService(auth.NewAuthToken(key, opts.TTL))
			token, err := sessions.IssueStaff(opts.Subject)
			if err != nil {
				return fmt.Errorf("issue staff token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.Key, "key", "k", "", "hex HMAC key the server verifies with (required)")
	_ = cmd.MarkFlagRequired("key")
	cmd.Flags().StringVar(&opts.Subject, "subject", "", "staff subject, random if empty")
	cmd.Flags().DurationVar(&opts.TTL, "ttl", auth.DefaultTokenTTL, "token lifetime")

	return cmd
}
