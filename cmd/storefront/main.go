// Command storefront serves the storefront API and manages its database.
//
//	storefront serve
//	storefront migrate
//	storefront seed
//	storefront user:promote admin@example.com
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	// Migrations and seeders register themselves from init().
	_ "github.com/shashiranjanraj/storefront/database/migrations"
	_ "github.com/shashiranjanraj/storefront/database/seeders"
)

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "storefront",
	Short:         "Storefront API server and tooling",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(routeListCmd)

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(migrateRollbackCmd)
	rootCmd.AddCommand(migrateStatusCmd)
	rootCmd.AddCommand(seedCmd)

	rootCmd.AddCommand(userPromoteCmd)
}
