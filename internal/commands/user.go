package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newUserCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "user [user_id]",
		Short: "Show or switch the active user",
		Long: `Without arguments, print the user id sent with every request.
With an id, switch to that user and remember it for later runs.`,
		Args: cobra.MaximumNArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			if len(args) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), a.client.UserID())
				return nil
			}
			if err := a.svc.SwitchUser(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ Switched to user %s\n", args[0])
			return nil
		}),
	}
}
