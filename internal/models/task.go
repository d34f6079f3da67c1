package models

import (
	"strings"
	"time"
)

// Category is the fixed set of task categories the API accepts
type Category string

const (
	CategoryWork      Category = "WORK"
	CategoryPersonal  Category = "PERSONAL"
	CategoryHealth    Category = "HEALTH"
	CategoryEducation Category = "EDUCATION"
	CategoryShopping  Category = "SHOPPING"
)

// Categories lists every category in display order
var Categories = []Category{
	CategoryWork,
	CategoryPersonal,
	CategoryHealth,
	CategoryEducation,
	CategoryShopping,
}

// Label returns the title-cased category name ("WORK" -> "Work")
func (c Category) Label() string {
	s := string(c)
	if s == "" {
		return ""
	}
	return s[:1] + strings.ToLower(s[1:])
}

// Valid reports whether c is one of the known categories
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// ParseCategory accepts any casing of a category name
func ParseCategory(s string) (Category, bool) {
	c := Category(strings.ToUpper(strings.TrimSpace(s)))
	return c, c.Valid()
}

// SortBy selects the server-side ordering of task lists
type SortBy string

const (
	SortByCreatedAt SortBy = "CREATED_AT"
	SortByPriority  SortBy = "PRIORITY"
	SortByDueDate   SortBy = "DUE_DATE"
	SortByCategory  SortBy = "CATEGORY"
)

// SortOrders lists every sort criterion in the order the UI cycles through them
var SortOrders = []SortBy{SortByCreatedAt, SortByPriority, SortByDueDate, SortByCategory}

// Valid reports whether s is a known sort criterion
func (s SortBy) Valid() bool {
	for _, known := range SortOrders {
		if s == known {
			return true
		}
	}
	return false
}

// ParseSortBy accepts "due_date", "due-date", "DUE_DATE" and similar spellings
func ParseSortBy(s string) (SortBy, bool) {
	normalized := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_"))
	sb := SortBy(normalized)
	return sb, sb.Valid()
}

const (
	MinPriority = 1
	MaxPriority = 5

	MaxTitleLength = 255

	MinPageSize = 1
	MaxPageSize = 100
)

var priorityLabels = map[int]string{
	1: "Very Low",
	2: "Low",
	3: "Medium",
	4: "High",
	5: "Very High",
}

// PriorityLabel returns the human label for a priority, "Unknown" when out of range
func PriorityLabel(priority int) string {
	if label, ok := priorityLabels[priority]; ok {
		return label
	}
	return "Unknown"
}

// Task is a validated task as returned by the API
type Task struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Title     string    `json:"title"`
	Priority  int       `json:"priority"`
	DueDate   time.Time `json:"dueDate"`
	Category  Category  `json:"category"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// IsOverdue reports whether the due date is before now
func (t Task) IsOverdue(now time.Time) bool {
	return t.DueDate.Before(now)
}

// CreateTaskRequest holds the data needed to create a new task
type CreateTaskRequest struct {
	Title    string    `json:"title" validate:"required,max=255"`
	Priority int       `json:"priority" validate:"min=1,max=5"`
	DueDate  time.Time `json:"dueDate" validate:"required"`
	Category Category  `json:"category" validate:"required,category"`
}

// UpdateTaskRequest is a partial update.
// nil pointer => "no change"
type UpdateTaskRequest struct {
	Title    *string    `json:"title,omitempty" validate:"omitnil,min=1,max=255"`
	Priority *int       `json:"priority,omitempty" validate:"omitnil,min=1,max=5"`
	DueDate  *time.Time `json:"dueDate,omitempty"`
	Category *Category  `json:"category,omitempty" validate:"omitnil,category"`
}

// IsEmpty reports whether the update would change nothing
func (r UpdateTaskRequest) IsEmpty() bool {
	return r.Title == nil && r.Priority == nil && r.DueDate == nil && r.Category == nil
}

// TaskQueryParams selects a page of the task list. Nil/empty fields use the server default.
type TaskQueryParams struct {
	SortBy SortBy `json:"sortBy,omitempty" validate:"omitempty,sortby"`
	Page   *int   `json:"page,omitempty" validate:"omitempty,min=0"`
	Size   *int   `json:"size,omitempty" validate:"omitempty,min=1,max=100"`
}

// TasksResponse is the list endpoint envelope
type TasksResponse struct {
	Tasks []Task `json:"tasks"`
	Total int    `json:"total"`
	Page  *int   `json:"page,omitempty"`
	Size  *int   `json:"size,omitempty"`
}

// IntPtr is a small helper for building query params and patches
func IntPtr(v int) *int {
	return &v
}
