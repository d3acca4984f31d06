package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"groceryFulfillment/internal/config"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var devMode bool

var rootCmd = &cobra.Command{
	Use:           "grocery",
	Short:         "Grocery order fulfillment back-office",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&devMode, "dev", false, "fall back to a development JWT secret when JWT_SECRET is unset")

	rootCmd.AddCommand(serveCmd)

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(migrateRollbackCmd)
	rootCmd.AddCommand(migrateStatusCmd)

	rootCmd.AddCommand(tokenCmd)
}

func loadConfig() (*config.Config, error) {
	if devMode {
		return config.LoadWithDefaults()
	}
	return config.Load()
}
