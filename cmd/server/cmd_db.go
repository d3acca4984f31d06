package main

import (
	"database/sql"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"groceryFulfillment/internal/config"
	"groceryFulfillment/internal/db"
)

// connectDB opens the configured store without migrating it. JWT_SECRET is
// irrelevant here, so the development fallback is always used.
func connectDB() (*sql.DB, error) {
	cfg, err := config.LoadWithDefaults()
	if err != nil {
		return nil, err
	}
	return db.Connect(cfg.Database.Path)
}

// grocery migrate
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run all pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := connectDB()
		if err != nil {
			return err
		}
		defer d.Close()
		fmt.Fprintln(cmd.OutOrStdout(), "Running migrations…")
		return db.Migrate(d)
	},
}

// grocery migrate:rollback
var migrateRollbackCmd = &cobra.Command{
	Use:   "migrate:rollback",
	Short: "Roll back the most recent migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := connectDB()
		if err != nil {
			return err
		}
		defer d.Close()
		fmt.Fprintln(cmd.OutOrStdout(), "Rolling back last migration…")
		return db.RollbackLast(d)
	},
}

// grocery migrate:status
var migrateStatusCmd = &cobra.Command{
	Use:   "migrate:status",
	Short: "Show the status of each migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := connectDB()
		if err != nil {
			return err
		}
		defer d.Close()
		states, err := db.Status(d)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "VERSION\tNAME\tAPPLIED")
		for _, s := range states {
			fmt.Fprintf(w, "%04d\t%s\t%t\n", s.Version, s.Name, s.Applied)
		}
		return w.Flush()
	},
}
