package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/balkashynov/taskdeck/internal/models"
	"github.com/balkashynov/taskdeck/internal/parser"
	"github.com/balkashynov/taskdeck/internal/store"
	"github.com/balkashynov/taskdeck/internal/tui"
)

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List tasks",
		Long: `List tasks page by page, newest first by default.

Filter flags are remembered for the next run. Only the date range that
matches the sort order applies: created dates for created_at, due dates
for due_date. Changing the sort order clears the other range.

Dates accept dd/mm/yyyy, yyyy-mm-dd, today, yesterday or tomorrow. Pass an
empty value to clear a bound, e.g. --due-from "".`,
		Args: cobra.NoArgs,
		RunE: withApp(runList),
	}

	cmd.Flags().StringP("sort", "s", "", "Sort by: created_at, priority, due_date or category")
	cmd.Flags().String("created-from", "", "Only tasks created on or after this day")
	cmd.Flags().String("created-to", "", "Only tasks created on or before this day")
	cmd.Flags().String("due-from", "", "Only tasks due on or after this day")
	cmd.Flags().String("due-to", "", "Only tasks due on or before this day")
	cmd.Flags().StringSlice("categories", nil, "Remember a category selection (comma-separated)")
	cmd.Flags().IntP("page", "p", 0, "Page number, starting at 1")
	cmd.Flags().Int("page-size", 0, "Tasks per page (1-100)")
	cmd.Flags().Bool("json", false, "JSON output")
	cmd.Flags().Bool("no-ui", false, "Simple text output")
	return cmd
}

func runList(cmd *cobra.Command, args []string, a *app) error {
	patch, changed, err := filterPatchFromFlags(cmd, time.Now())
	if err != nil {
		return err
	}
	if changed {
		if err := a.svc.Store().SetFilters(patch); err != nil {
			return err
		}
	}

	asJSON, _ := cmd.Flags().GetBool("json")
	noUI, _ := cmd.Flags().GetBool("no-ui")
	if !asJSON && !noUI {
		return tui.RunList(a.svc)
	}

	ctx, cancel := a.context(cmd.Context())
	defer cancel()

	page, err := a.svc.VisibleTasks(ctx)
	if err != nil {
		return fmt.Errorf("fetching tasks: %w", err)
	}

	if asJSON {
		return writeJSON(cmd.OutOrStdout(), pageJSON{
			Tasks:      page.Items,
			Page:       page.Page,
			PageSize:   page.PageSize,
			TotalPages: page.TotalPages,
			Total:      page.FilteredCount,
		})
	}
	printPage(cmd.OutOrStdout(), page, time.Now())
	return nil
}

// filterPatchFromFlags turns the flags the user actually passed into a
// store patch; changed is false when no filter flag was given
func filterPatchFromFlags(cmd *cobra.Command, now time.Time) (store.FilterPatch, bool, error) {
	var patch store.FilterPatch
	flags := cmd.Flags()
	changed := false

	if flags.Changed("sort") {
		v, _ := flags.GetString("sort")
		sortBy, ok := models.ParseSortBy(v)
		if !ok {
			return patch, false, fmt.Errorf("invalid sort %q: use created_at, priority, due_date or category", v)
		}
		patch.SortBy = &sortBy
		changed = true
	}

	dates := []struct {
		flag string
		dst  **store.DateValue
	}{
		{"created-from", &patch.CreatedDateFrom},
		{"created-to", &patch.CreatedDateTo},
		{"due-from", &patch.DueDateFrom},
		{"due-to", &patch.DueDateTo},
	}
	for _, d := range dates {
		if !flags.Changed(d.flag) {
			continue
		}
		v, _ := flags.GetString(d.flag)
		t, err := parser.ParseFilterDateAt(v, now)
		if err != nil {
			return patch, false, fmt.Errorf("--%s: %w", d.flag, err)
		}
		if t == nil {
			*d.dst = store.ClearDate()
		} else {
			*d.dst = store.Date(*t)
		}
		changed = true
	}

	if flags.Changed("categories") {
		names, _ := flags.GetStringSlice("categories")
		categories := make([]models.Category, 0, len(names))
		for _, name := range names {
			c, ok := models.ParseCategory(name)
			if !ok {
				return patch, false, fmt.Errorf("invalid category %q", name)
			}
			categories = append(categories, c)
		}
		patch.Categories = &categories
		changed = true
	}

	if flags.Changed("page") {
		page, _ := flags.GetInt("page")
		if page < 1 {
			return patch, false, fmt.Errorf("--page starts at 1")
		}
		zeroBased := page - 1
		patch.Page = &zeroBased
		changed = true
	}

	if flags.Changed("page-size") {
		size, _ := flags.GetInt("page-size")
		patch.PageSize = &size
		changed = true
	}

	return patch, changed, nil
}
