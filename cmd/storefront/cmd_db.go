package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/shashiranjanraj/storefront/config"
	"github.com/shashiranjanraj/storefront/database/seeders"
	"github.com/shashiranjanraj/storefront/pkg/database"
	"github.com/shashiranjanraj/storefront/pkg/migration"
)

// openDB loads config and opens the database without the rest of the app.
func openDB(ctx context.Context) (*gorm.DB, error) {
	if err := config.Load(); err != nil {
		return nil, err
	}
	return database.Open(ctx, config.DatabaseDriver(), config.DatabaseDSN(), database.Options{})
}

func withDB(fn func(cmd *cobra.Command, db *gorm.DB) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		db, err := openDB(cmd.Context())
		if err != nil {
			return err
		}
		defer database.Close(db) //nolint:errcheck
		return fn(cmd, db)
	}
}

// storefront migrate
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run all pending database migrations",
	RunE: withDB(func(cmd *cobra.Command, db *gorm.DB) error {
		n, err := migration.New(db, cmd.OutOrStdout()).Run(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d migration(s) applied\n", n)
		return nil
	}),
}

// storefront migrate:rollback
var migrateRollbackCmd = &cobra.Command{
	Use:   "migrate:rollback",
	Short: "Roll back the last batch of migrations",
	RunE: withDB(func(cmd *cobra.Command, db *gorm.DB) error {
		n, err := migration.New(db, cmd.OutOrStdout()).Rollback(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d migration(s) rolled back\n", n)
		return nil
	}),
}

// storefront migrate:status
var migrateStatusCmd = &cobra.Command{
	Use:   "migrate:status",
	Short: "Show the status of each migration",
	RunE: withDB(func(cmd *cobra.Command, db *gorm.DB) error {
		rows, err := migration.New(db, cmd.OutOrStdout()).Status()
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "MIGRATION\tBATCH\tRAN")
		for _, r := range rows {
			batch, ran := "-", "no"
			if r.Ran {
				batch, ran = fmt.Sprint(r.Batch), "yes"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", r.Name, batch, ran)
		}
		return w.Flush()
	}),
}

// storefront seed
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the admin user and a sample catalogue",
	RunE: withDB(func(cmd *cobra.Command, db *gorm.DB) error {
		fmt.Fprintln(cmd.OutOrStdout(), "Running seeders…")
		return seeders.RunAll(cmd.Context(), db, cmd.OutOrStdout())
	}),
}
