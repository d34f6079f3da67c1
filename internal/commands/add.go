package commands

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/balkashynov/taskdeck/internal/models"
	"github.com/balkashynov/taskdeck/internal/parser"
	"github.com/balkashynov/taskdeck/internal/tui"
)

func newAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add [task title]",
		Short: "Add a new task",
		Long: `Add a new task.

Modes:
  Interactive: taskdeck add -i (or just 'taskdeck add' with no arguments)
  Quick: taskdeck add "Task title" (with optional flags)
  Smart parsing: taskdeck add "Book dentist #health +high due:tomorrow"

Smart parsing syntax:
  #category   - work, personal, health, education or shopping
  +priority   - 1-5 or very-low, low, medium, high, very-high
  due:3days   - Due date (dd/mm/yyyy, yyyy-mm-dd, X days, X hours, X weeks, today, tomorrow)

Without a category the task is personal, without a priority it is medium
and without a due date it is due at the end of today.`,
		Args: cobra.ArbitraryArgs,
		RunE: withApp(runAdd),
	}

	cmd.Flags().BoolP("interactive", "i", false, "Interactive mode with TUI")
	cmd.Flags().StringP("category", "c", "", "Category: work, personal, health, education, shopping")
	cmd.Flags().String("priority", "", "Priority: 1-5 or very-low, low, medium, high, very-high")
	cmd.Flags().String("due", "", "Due date: dd/mm/yyyy [hh:mm], yyyy-mm-dd, X days, X hours, X weeks")
	return cmd
}

func runAdd(cmd *cobra.Command, args []string, a *app) error {
	interactive, _ := cmd.Flags().GetBool("interactive")
	if len(args) == 0 {
		interactive = true
	}

	parsed := parser.ParseTitle(strings.Join(args, " "))
	if interactive {
		return runInteractiveAdd(cmd, a, prefillFromParsed(cmd, parsed))
	}

	if len(parsed.Errors) > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "⚠️  Found issues with parsing: %s\n", strings.Join(parsed.Errors, ", "))
		fmt.Fprintln(cmd.OutOrStdout(), "Opening interactive mode for confirmation...")
		return runInteractiveAdd(cmd, a, prefillFromParsed(cmd, parsed))
	}

	req, err := createRequest(cmd, parsed, time.Now())
	if err != nil {
		return err
	}

	ctx, cancel := a.context(cmd.Context())
	defer cancel()
	task, err := a.svc.CreateTask(ctx, req)
	if err != nil {
		return fmt.Errorf("creating task: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✅ Created task %s: %s\n", task.ID, task.Title)
	fmt.Fprintf(cmd.OutOrStdout(), "  Category: %s\n", task.Category.Label())
	fmt.Fprintf(cmd.OutOrStdout(), "  Priority: %s\n", models.PriorityLabel(task.Priority))
	fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", parser.FormatDueDate(task.DueDate, time.Now()))
	return nil
}

func runInteractiveAdd(cmd *cobra.Command, a *app, prefill tui.FormValues) error {
	task, err := tui.RunTaskForm(a.svc, nil, prefill)
	if err != nil {
		return err
	}
	if task == nil {
		fmt.Fprintln(cmd.OutOrStdout(), "❌ Task creation cancelled.")
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✅ New task %q added - ID: %s\n", task.Title, task.ID)
	return nil
}

// prefillFromParsed seeds the form from smart syntax; explicit flags win
func prefillFromParsed(cmd *cobra.Command, parsed parser.ParsedTask) tui.FormValues {
	values := tui.FormValues{Title: parsed.Title}
	if parsed.Category != "" {
		values.Category = strings.ToLower(string(parsed.Category))
	}
	if parsed.Priority > 0 {
		values.Priority = strconv.Itoa(parsed.Priority)
	}
	if parsed.DueDate != nil {
		values.DueDate = parsed.DueDate.Format("02/01/2006 15:04")
	}

	if v, _ := cmd.Flags().GetString("category"); v != "" {
		values.Category = v
	}
	if v, _ := cmd.Flags().GetString("priority"); v != "" {
		values.Priority = v
	}
	if v, _ := cmd.Flags().GetString("due"); v != "" {
		values.DueDate = v
	}
	return values
}

// createRequest merges parsed smart syntax, flags and defaults
func createRequest(cmd *cobra.Command, parsed parser.ParsedTask, now time.Time) (models.CreateTaskRequest, error) {
	req := models.CreateTaskRequest{
		Title:    parsed.Title,
		Priority: 3,
		Category: models.CategoryPersonal,
	}
	if parsed.Category != "" {
		req.Category = parsed.Category
	}
	if parsed.Priority > 0 {
		req.Priority = parsed.Priority
	}
	if parsed.DueDate != nil {
		req.DueDate = *parsed.DueDate
	} else {
		due, _ := parser.ParseDueDateAt("today", now)
		req.DueDate = due
	}

	if v, _ := cmd.Flags().GetString("category"); v != "" {
		c, ok := models.ParseCategory(v)
		if !ok {
			return req, fmt.Errorf("invalid category %q: use work, personal, health, education or shopping", v)
		}
		req.Category = c
	}
	if v, _ := cmd.Flags().GetString("priority"); v != "" {
		p, err := parser.ParsePriority(v)
		if err != nil {
			return req, fmt.Errorf("invalid priority %q: %w", v, err)
		}
		req.Priority = p
	}
	if v, _ := cmd.Flags().GetString("due"); v != "" {
		due, err := parser.ParseDueDateAt(v, now)
		if err != nil {
			return req, fmt.Errorf("error parsing due date: %w", err)
		}
		req.DueDate = due
	}

	if err := models.ValidateCreate(req); err != nil {
		return req, err
	}
	return req, nil
}
