package filter

import (
	"time"

	"github.com/balkashynov/taskdeck/internal/models"
)

// Criteria holds the active date bounds. A nil bound imposes nothing.
// Bounds are day-level: From covers its whole day from 00:00:00.000 and To
// up to 23:59:59.999, in the bound's own location.
type Criteria struct {
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	DueFrom     *time.Time
	DueTo       *time.Time
}

// IsZero reports whether no bound is set
func (c Criteria) IsZero() bool {
	return c.CreatedFrom == nil && c.CreatedTo == nil && c.DueFrom == nil && c.DueTo == nil
}

// Apply returns the tasks matching every active bound, in input order.
// tasks is not modified.
func Apply(tasks []models.Task, c Criteria) []models.Task {
	out := make([]models.Task, 0, len(tasks))
	if c.IsZero() {
		return append(out, tasks...)
	}

	for _, t := range tasks {
		if !within(t.CreatedAt, c.CreatedFrom, c.CreatedTo) {
			continue
		}
		if !within(t.DueDate, c.DueFrom, c.DueTo) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func within(t time.Time, from, to *time.Time) bool {
	if from != nil && t.Before(StartOfDay(*from)) {
		return false
	}
	if to != nil && t.After(EndOfDay(*to)) {
		return false
	}
	return true
}

// StartOfDay returns 00:00:00.000 of t's day in t's location
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// EndOfDay returns 23:59:59.999 of t's day in t's location
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), t.Location())
}

// Page is one slice of a filtered list
type Page struct {
	Items         []models.Task
	Page          int
	PageSize      int
	TotalPages    int
	FilteredCount int
}

// HasNext reports whether a later page exists
func (p Page) HasNext() bool {
	return p.Page+1 < p.TotalPages
}

// HasPrev reports whether an earlier page exists
func (p Page) HasPrev() bool {
	return p.Page > 0
}

// Paginate returns items [page*pageSize, page*pageSize+pageSize) clipped to
// the list. A page past the end is empty; pageSize below 1 is treated as 1.
func Paginate(tasks []models.Task, page, pageSize int) Page {
	if pageSize < 1 {
		pageSize = 1
	}
	if page < 0 {
		page = 0
	}

	count := len(tasks)
	p := Page{
		Page:          page,
		PageSize:      pageSize,
		TotalPages:    (count + pageSize - 1) / pageSize,
		FilteredCount: count,
	}

	start := page * pageSize
	if start >= count {
		p.Items = []models.Task{}
		return p
	}
	end := min(start+pageSize, count)
	p.Items = append([]models.Task(nil), tasks[start:end]...)
	return p
}
