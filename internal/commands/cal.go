package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/balkashynov/taskdeck/internal/filter"
	"github.com/balkashynov/taskdeck/internal/parser"
	"github.com/balkashynov/taskdeck/internal/tui"
)

func newCalendarCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "cal",
		Aliases: []string{"calendar"},
		Short:   "Show tasks on a month calendar",
		Long: `Show a month calendar with the number of tasks due on each day.

  taskdeck cal                    - this month
  taskdeck cal --month 2024-03    - March 2024
  taskdeck cal --day tomorrow     - the tasks due tomorrow`,
		Args: cobra.NoArgs,
		RunE: withApp(runCalendar),
	}
	cmd.Flags().StringP("month", "m", "", "Month to show as yyyy-mm (default: current month)")
	cmd.Flags().StringP("day", "d", "", "List the tasks due on this day instead")
	return cmd
}

func runCalendar(cmd *cobra.Command, args []string, a *app) error {
	now := time.Now()

	month := now
	if v, _ := cmd.Flags().GetString("month"); v != "" {
		m, err := time.ParseInLocation("2006-01", v, now.Location())
		if err != nil {
			return fmt.Errorf("invalid month %q: use yyyy-mm", v)
		}
		month = m
	}

	var day *time.Time
	if v, _ := cmd.Flags().GetString("day"); v != "" {
		d, err := parser.ParseFilterDateAt(v, now)
		if err != nil {
			return fmt.Errorf("--day: %w", err)
		}
		day = d
	}

	ctx, cancel := a.context(cmd.Context())
	defer cancel()
	tasks, err := a.svc.TasksByDueDate(ctx)
	if err != nil {
		return fmt.Errorf("fetching tasks: %w", err)
	}

	out := cmd.OutOrStdout()
	if day != nil {
		dayTasks := filter.TasksOnDay(tasks, *day)
		fmt.Fprintf(out, "📅 %s: %d task(s)\n", day.Format("Monday 02/01/2006"), len(dayTasks))
		if len(dayTasks) > 0 {
			fmt.Fprintln(out)
			printTaskTable(out, dayTasks, now)
		}
		return nil
	}

	fmt.Fprint(out, tui.RenderMonth(filter.Month(tasks, month), month, now))
	return nil
}
