package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/balkashynov/taskdeck/internal/models"
)

var (
	categoryRegex = regexp.MustCompile(`(?:^|\s)#([A-Za-z_]+)`)
	priorityRegex = regexp.MustCompile(`(?:^|\s)\+([A-Za-z0-9_-]+)`)
	dueRegex      = regexp.MustCompile(`(?:^|\s)due:(\S+)`)
)

// ParsedTask represents a task parsed from natural language
type ParsedTask struct {
	Title    string
	Category models.Category // empty when not given
	Priority int             // 0 when not given
	DueDate  *time.Time
	Errors   []string
}

// ParseTitle extracts metadata from a task title using natural syntax
// Syntax: "Task title #work +high due:3days"
func ParseTitle(input string) ParsedTask {
	return ParseTitleAt(input, time.Now())
}

// ParseTitleAt is ParseTitle with relative due dates resolved against now
func ParseTitleAt(input string, now time.Time) ParsedTask {
	result := ParsedTask{
		Title:  input,
		Errors: []string{},
	}

	// Extract category (#work, #Personal)
	if m := categoryRegex.FindStringSubmatch(input); m != nil {
		if c, ok := models.ParseCategory(m[1]); ok {
			result.Category = c
		} else {
			result.Errors = append(result.Errors, fmt.Sprintf("Invalid category '%s'. Use: %s", m[1], categoryNames()))
		}
		input = categoryRegex.ReplaceAllString(input, " ")
	}

	// Extract priority (+high, +3, +very-low, etc.)
	if m := priorityRegex.FindStringSubmatch(input); m != nil {
		if p, err := ParsePriority(m[1]); err == nil {
			result.Priority = p
		} else {
			result.Errors = append(result.Errors, fmt.Sprintf("Invalid priority '%s'. %s", m[1], err))
		}
		input = priorityRegex.ReplaceAllString(input, " ")
	}

	// Extract due date (due:3days, due:15/12/2024, etc.)
	if m := dueRegex.FindStringSubmatch(input); m != nil {
		dueDate, err := ParseDueDateAt(m[1], now)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Invalid due date '%s': %s", m[1], err))
		} else {
			result.DueDate = &dueDate
		}
		input = dueRegex.ReplaceAllString(input, " ")
	}

	// Clean up the title (remove extra spaces)
	result.Title = strings.Join(strings.Fields(input), " ")

	return result
}

var priorityNames = map[string]int{
	"verylow":  1,
	"lowest":   1,
	"low":      2,
	"medium":   3,
	"med":      3,
	"high":     4,
	"veryhigh": 5,
	"highest":  5,
	"urgent":   5,
}

// ParsePriority accepts 1-5 or a label such as "low", "very-high" or "urgent"
func ParsePriority(s string) (int, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if n, err := strconv.Atoi(s); err == nil {
		if n < models.MinPriority || n > models.MaxPriority {
			return 0, fmt.Errorf("priority must be between %d and %d", models.MinPriority, models.MaxPriority)
		}
		return n, nil
	}

	key := strings.NewReplacer("-", "", "_", "", " ", "").Replace(s)
	if n, ok := priorityNames[key]; ok {
		return n, nil
	}
	return 0, fmt.Errorf("use 1-5, very-low, low, medium, high or very-high")
}

func categoryNames() string {
	names := make([]string, 0, len(models.Categories))
	for _, c := range models.Categories {
		names = append(names, strings.ToLower(string(c)))
	}
	return strings.Join(names, ", ")
}
