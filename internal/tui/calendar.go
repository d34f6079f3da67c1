package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/balkashynov/taskdeck/internal/filter"
)

const calendarCellWidth = 6

// RenderMonth draws a month grid. Each day shows its date and the number of
// tasks due; today is highlighted and days holding an overdue task are red.
func RenderMonth(weeks [][]filter.Day, month, now time.Time) string {
	var b strings.Builder

	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(ColorAccentMain)).
		Width(calendarCellWidth * 7).
		Align(lipgloss.Center).
		Render(month.Format("January 2006"))
	b.WriteString(title)
	b.WriteString("\n")

	header := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorAccentBright))
	for _, name := range []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"} {
		b.WriteString(header.Render(padRight(name, calendarCellWidth)))
	}
	b.WriteString("\n")

	for _, week := range weeks {
		for _, day := range week {
			b.WriteString(renderDayCell(day, now))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func renderDayCell(day filter.Day, now time.Time) string {
	text := fmt.Sprintf("%2d", day.Date.Day())
	if n := len(day.Tasks); n > 0 {
		text += fmt.Sprintf("·%d", n)
	}
	text = padRight(text, calendarCellWidth)

	style := lipgloss.NewStyle().Foreground(lipgloss.Color(ColorPrimaryText))
	switch {
	case !day.InMonth:
		style = style.Foreground(lipgloss.Color(ColorDisabledText))
	case hasOverdue(day, now):
		style = style.Foreground(lipgloss.Color(ColorError))
	case len(day.Tasks) > 0:
		style = style.Foreground(lipgloss.Color(ColorAccentBright))
	}
	if sameDate(day.Date, now) {
		style = style.Bold(true).Underline(true)
	}
	return style.Render(text)
}

func hasOverdue(day filter.Day, now time.Time) bool {
	for _, t := range day.Tasks {
		if t.IsOverdue(now) {
			return true
		}
	}
	return false
}

func sameDate(a, b time.Time) bool {
	b = b.In(a.Location())
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}
