package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"groceryFulfillment/internal/auth"
)

var (
	tokenUser  string
	tokenEmail string
	tokenKind  string
	tokenTTL   time.Duration
)

// grocery token — mint a bearer token for local testing.
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a signed bearer token for a user",
	RunE: func(cmd *cobra.Command, args []string) error {
		if tokenUser == "" {
			return fmt.Errorf("--user is required")
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ttl := cfg.Auth.TokenTTL
		if tokenTTL > 0 {
			ttl = tokenTTL
		}
		tok, err := auth.IssueToken(cfg.Auth.JWTSecret, tokenUser, tokenEmail, tokenKind, ttl)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenUser, "user", "", "user id carried as the token subject")
	tokenCmd.Flags().StringVar(&tokenEmail, "email", "", "sign-in email")
	tokenCmd.Flags().StringVar(&tokenKind, "kind", auth.KindCustomer, "customer or admin")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "token lifetime, e.g. 1h (defaults to JWT_TTL)")
}
