package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shashiranjanraj/storefront/internal/app"
)

// storefront user:promote <email>
var userPromoteCmd = &cobra.Command{
	Use:   "user:promote <email>",
	Short: "Give an existing user the admin role",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := app.Boot(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		u, err := a.Admin.Promote(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("promote %s: %w", args[0], err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s (#%d) is now an admin\n", u.Email, u.ID)
		return nil
	},
}
