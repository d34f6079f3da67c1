package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/balkashynov/taskdeck/internal/api"
	"github.com/balkashynov/taskdeck/internal/models"
	"github.com/balkashynov/taskdeck/internal/parser"
	"github.com/balkashynov/taskdeck/internal/tui"
)

func newEditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit <task_id>",
		Short: "Edit an existing task",
		Long: `Edit an existing task.

With flags only the given fields change. Without flags the interactive
form opens with the current task data.

Usage:
  taskdeck edit 42                      - Edit task 42 in the form
  taskdeck edit 42 --priority high      - Raise the priority of task 42`,
		Args: cobra.ExactArgs(1),
		RunE: withApp(runEdit),
	}

	cmd.Flags().String("title", "", "New title")
	cmd.Flags().StringP("category", "c", "", "New category")
	cmd.Flags().String("priority", "", "New priority: 1-5 or a label")
	cmd.Flags().String("due", "", "New due date")
	return cmd
}

func runEdit(cmd *cobra.Command, args []string, a *app) error {
	id := args[0]
	ctx, cancel := a.context(cmd.Context())
	defer cancel()

	req, err := updateRequest(cmd, time.Now())
	if err != nil {
		return err
	}

	if req.IsEmpty() {
		task, err := a.svc.GetTask(ctx, id)
		if err != nil {
			return taskError(id, err)
		}
		updated, err := tui.RunTaskForm(a.svc, task, tui.FormValues{})
		if err != nil {
			return err
		}
		if updated == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "❌ Edit cancelled.")
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✅ Task %s saved: %s\n", updated.ID, updated.Title)
		return nil
	}

	task, err := a.svc.UpdateTask(ctx, id, req)
	if err != nil {
		return taskError(id, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✅ Updated task %s\n", task.ID)
	printTask(cmd.OutOrStdout(), *task, time.Now())
	return nil
}

// updateRequest holds only the fields whose flags were passed
func updateRequest(cmd *cobra.Command, now time.Time) (models.UpdateTaskRequest, error) {
	var req models.UpdateTaskRequest
	flags := cmd.Flags()

	if flags.Changed("title") {
		v, _ := flags.GetString("title")
		req.Title = &v
	}
	if flags.Changed("category") {
		v, _ := flags.GetString("category")
		c, ok := models.ParseCategory(v)
		if !ok {
			return req, fmt.Errorf("invalid category %q: use work, personal, health, education or shopping", v)
		}
		req.Category = &c
	}
	if flags.Changed("priority") {
		v, _ := flags.GetString("priority")
		p, err := parser.ParsePriority(v)
		if err != nil {
			return req, fmt.Errorf("invalid priority %q: %w", v, err)
		}
		req.Priority = &p
	}
	if flags.Changed("due") {
		v, _ := flags.GetString("due")
		due, err := parser.ParseDueDateAt(v, now)
		if err != nil {
			return req, fmt.Errorf("error parsing due date: %w", err)
		}
		req.DueDate = &due
	}

	if err := models.ValidateUpdate(req); err != nil {
		return req, err
	}
	return req, nil
}

// taskError turns a 404 into a readable message
func taskError(id string, err error) error {
	if api.IsNotFound(err) {
		return fmt.Errorf("task %s not found", id)
	}
	return err
}
