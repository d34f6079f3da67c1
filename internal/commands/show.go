package commands

import (
	"time"

	"github.com/spf13/cobra"
)

func newShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <task_id>",
		Short: "Show one task",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			ctx, cancel := a.context(cmd.Context())
			defer cancel()

			task, err := a.svc.GetTask(ctx, args[0])
			if err != nil {
				return taskError(args[0], err)
			}
			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				return writeJSON(cmd.OutOrStdout(), task)
			}
			printTask(cmd.OutOrStdout(), *task, time.Now())
			return nil
		}),
	}
	cmd.Flags().Bool("json", false, "JSON output")
	return cmd
}
