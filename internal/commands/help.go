package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newHelpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "help [command]",
		Short: "Show comprehensive help for taskdeck",
		Long:  `Display detailed help for all taskdeck commands and flags, or for one command.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				target, _, err := cmd.Root().Find(args)
				if err != nil || target == nil || target == cmd.Root() {
					return fmt.Errorf("unknown help topic %q", args)
				}
				return target.Help()
			}
			showCustomHelp(cmd)
			return nil
		},
	}
}

func showCustomHelp(cmd *cobra.Command) {
	fmt.Fprint(cmd.OutOrStdout(), `
 _            _       _           _
| |_ __ _ ___| | ____| | ___  ___| | __
| __/ _' / __| |/ / _' |/ _ \/ __| |/ /
| || (_| \__ \   < (_| |  __/ (__|   <
 \__\__,_|___/_|\_\__,_|\___|\___|_|\_\

taskdeck - terminal client for your task service

COMMANDS:

  ls                      Browse tasks in the interactive list
    -s, --sort            created_at|priority|due_date|category
    --created-from/-to    Created date range (used with created_at)
    --due-from/-to        Due date range (used with due_date)
    -p, --page            Page number, starting at 1
    --page-size           Tasks per page (1-100, default 9)
    --no-ui               Simple text output
    --json                JSON output

    Quick actions:
      ↑/↓           Navigate tasks
      ←/→           Previous/next page
      enter         Open task details
      n             New task
      e             Edit selected task
      d             Delete selected task
      s             Cycle sort order
      r             Reset filters
      ctrl+r        Refresh from the server
      esc/q         Close details / quit

  add <title>             Create a task with smart parsing
    -c, --category        work|personal|health|education|shopping
    --priority            1-5 or very-low|low|medium|high|very-high
    --due                 Due date (dd/mm/yyyy, yyyy-mm-dd, 3 days, tomorrow)
    -i, --interactive     Open the form

    Smart syntax:
      #category     Set category
      +priority     Set priority
      due:3days     Set due date

    Example:
      taskdeck add "Renew passport #personal +high due:2weeks"

  show <id>               Show one task (--json)
  edit <id>               Edit a task in the form, or with --title, --category, --priority, --due
  rm <id>                 Delete a task
  cal                     Month calendar of due dates (--month yyyy-mm, --day <date>)
  filters                 Show remembered filters
  filters reset           Restore default filters
  user [id]               Show or switch the active user
  watch                   Reprint the list periodically (--every 30s)
  version                 Show version information
  help [command]          Show this help, or help for one command

GLOBAL FLAGS:
  --api-url               Task service base URL
  --user                  User id for this run only
  -v, --verbose           Log requests and retries to stderr

CONFIGURATION:
  ~/.taskdeck/config.yaml, a .env file or TASKDECK_* environment variables.

`)
}
