package filter

import (
	"time"

	"github.com/balkashynov/taskdeck/internal/models"
)

// Day is one calendar cell
type Day struct {
	Date    time.Time
	InMonth bool
	Tasks   []models.Task
}

// TasksOnDay returns the tasks due on day's calendar date, judged in day's location
func TasksOnDay(tasks []models.Task, day time.Time) []models.Task {
	out := []models.Task{}
	for _, t := range tasks {
		if sameDay(t.DueDate.In(day.Location()), day) {
			out = append(out, t)
		}
	}
	return out
}

// Month lays out the Sunday-first weeks covering month's month, each day
// carrying the tasks due on it. Days outside the month are included with
// InMonth false so every week is complete.
func Month(tasks []models.Task, month time.Time) [][]Day {
	loc := month.Location()
	first := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, loc)
	last := first.AddDate(0, 1, -1)

	start := first.AddDate(0, 0, -int(first.Weekday()))
	end := last.AddDate(0, 0, int(time.Saturday-last.Weekday()))

	byDay := map[string][]models.Task{}
	for _, t := range tasks {
		key := t.DueDate.In(loc).Format(time.DateOnly)
		byDay[key] = append(byDay[key], t)
	}

	var weeks [][]Day
	var week []Day
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		dayTasks := byDay[d.Format(time.DateOnly)]
		if dayTasks == nil {
			dayTasks = []models.Task{}
		}
		week = append(week, Day{
			Date:    d,
			InMonth: d.Month() == first.Month(),
			Tasks:   dayTasks,
		})
		if len(week) == 7 {
			weeks = append(weeks, week)
			week = nil
		}
	}
	return weeks
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
