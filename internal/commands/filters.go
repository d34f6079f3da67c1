package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newFiltersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "filters",
		Short: "Show the remembered list filters",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			printFilters(cmd.OutOrStdout(), a.svc.Store().Filters(), a.svc.Store().UserID())
			return nil
		}),
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Restore the default filters",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			a.svc.Store().ResetFilters()
			fmt.Fprintln(cmd.OutOrStdout(), "✅ Filters reset.")
			return nil
		}),
	})
	return cmd
}
