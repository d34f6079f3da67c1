package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <task_id>",
		Aliases: []string{"delete"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			ctx, cancel := a.context(cmd.Context())
			defer cancel()

			if err := a.svc.DeleteTask(ctx, args[0]); err != nil {
				return taskError(args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "🗑️  Deleted task %s\n", args[0])
			return nil
		}),
	}
}
