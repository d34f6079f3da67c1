package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/balkashynov/taskdeck/internal/filter"
	"github.com/balkashynov/taskdeck/internal/models"
	"github.com/balkashynov/taskdeck/internal/parser"
	"github.com/balkashynov/taskdeck/internal/store"
)

// pageJSON is the --json shape of a listed page
type pageJSON struct {
	Tasks      []models.Task `json:"tasks"`
	Page       int           `json:"page"`
	PageSize   int           `json:"pageSize"`
	TotalPages int           `json:"totalPages"`
	Total      int           `json:"total"`
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printTaskTable(w io.Writer, tasks []models.Task, now time.Time) {
	idWidth := 4
	for _, t := range tasks {
		idWidth = max(idWidth, len(t.ID))
	}

	fmt.Fprintf(w, "%-*s %-40s %-10s %-10s %s\n", idWidth, "ID", "TITLE", "CATEGORY", "PRIORITY", "DUE")
	fmt.Fprintln(w, strings.Repeat("-", idWidth+80))

	for _, task := range tasks {
		title := task.Title
		if r := []rune(title); len(r) > 38 {
			title = string(r[:35]) + "..."
		}
		fmt.Fprintf(w, "%-*s %-40s %-10s %-10s %s\n",
			idWidth, task.ID,
			title,
			task.Category.Label(),
			models.PriorityLabel(task.Priority),
			dueLabel(task, now))
	}
}

func dueLabel(task models.Task, now time.Time) string {
	local := task.DueDate.In(now.Location())
	if task.IsOverdue(now) {
		return "OVERDUE " + local.Format("02/01/2006")
	}
	return local.Format("02/01/2006 15:04")
}

func printPage(w io.Writer, page filter.Page, now time.Time) {
	if page.FilteredCount == 0 {
		fmt.Fprintln(w, "No tasks found. Use 'taskdeck add \"task title\"' to create one.")
		return
	}
	printTaskTable(w, page.Items, now)
	fmt.Fprintf(w, "\nPage %d/%d (%d tasks)\n", page.Page+1, max(page.TotalPages, 1), page.FilteredCount)
}

func printTask(w io.Writer, task models.Task, now time.Time) {
	fmt.Fprintf(w, "📋 %s\n", task.Title)
	fmt.Fprintf(w, "  ID:       %s\n", task.ID)
	fmt.Fprintf(w, "  Category: %s\n", task.Category.Label())
	fmt.Fprintf(w, "  Priority: %s (%d)\n", models.PriorityLabel(task.Priority), task.Priority)
	fmt.Fprintf(w, "  %s\n", parser.FormatDueDate(task.DueDate, now))
	fmt.Fprintf(w, "  Created:  %s\n", task.CreatedAt.Local().Format("02/01/2006 15:04"))
	fmt.Fprintf(w, "  Updated:  %s\n", task.UpdatedAt.Local().Format("02/01/2006 15:04"))
}

func printFilters(w io.Writer, f store.FilterState, userID string) {
	date := func(t *time.Time) string {
		if t == nil {
			return "-"
		}
		return t.Format("02/01/2006")
	}
	fmt.Fprintf(w, "User:         %s\n", userID)
	fmt.Fprintf(w, "Sort:         %s\n", f.SortBy)
	fmt.Fprintf(w, "Created from: %s\n", date(f.CreatedDateFrom))
	fmt.Fprintf(w, "Created to:   %s\n", date(f.CreatedDateTo))
	fmt.Fprintf(w, "Due from:     %s\n", date(f.DueDateFrom))
	fmt.Fprintf(w, "Due to:       %s\n", date(f.DueDateTo))
	fmt.Fprintf(w, "Page:         %d (size %d)\n", f.Page+1, f.PageSize)
	if len(f.Categories) > 0 {
		names := make([]string, 0, len(f.Categories))
		for _, c := range f.Categories {
			names = append(names, c.Label())
		}
		fmt.Fprintf(w, "Categories:   %s\n", strings.Join(names, ", "))
	}
}
