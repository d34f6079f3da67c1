package parser

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/balkashynov/taskdeck/internal/models"
)

var (
	dayMonthYearRegex = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})(?:\s+(\d{1,2}):(\d{2}))?$`)
	isoDateRegex      = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)
	relativeRegex     = regexp.MustCompile(`^(\d+)\s*(hour|hours|h|day|days|d|week|weeks|w)$`)
)

const (
	minYear = 2000
	maxYear = 2100
)

// ParseDueDate parses various due date formats
// Supported formats:
// - dd/mm/yyyy, optionally followed by HH:MM (e.g., "15/12/2024", "15/12/2024 09:30")
// - yyyy-mm-dd (e.g., "2024-12-15")
// - RFC 3339 or yyyy-mm-ddTHH:MM (e.g., "2024-12-15T09:30:00Z")
// - X hours / X days / X weeks (e.g., "24 hours", "3days", "2 weeks")
// - today, tomorrow
//
// Dates without a time of day are due at 23:59:59 local time.
func ParseDueDate(input string) (time.Time, error) {
	return ParseDueDateAt(input, time.Now())
}

// ParseDueDateAt is ParseDueDate relative to now
func ParseDueDateAt(input string, now time.Time) (time.Time, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return time.Time{}, fmt.Errorf("due date is required")
	}

	switch strings.ToLower(input) {
	case "today":
		return endOfDay(now), nil
	case "tomorrow":
		return endOfDay(now.AddDate(0, 0, 1)), nil
	}

	// Try dd/mm/yyyy format first
	if day, ok, err := parseDayMonthYear(input, now.Location()); ok {
		return day, err
	}

	if day, ok, err := parseISODate(input, now.Location()); ok {
		if err != nil {
			return time.Time{}, err
		}
		return endOfDay(day), nil
	}

	// Try relative time formats
	if dueDate, ok, err := parseRelativeTime(input, now); ok {
		return dueDate, err
	}

	if ts, err := models.ParseTimestamp(input); err == nil {
		return ts, nil
	}

	return time.Time{}, fmt.Errorf("invalid date format. Use: dd/mm/yyyy, yyyy-mm-dd, X days, X hours, X weeks, today or tomorrow")
}

// ParseFilterDate parses a day-level filter bound. Empty input means no bound.
// Accepts dd/mm/yyyy, yyyy-mm-dd, today, yesterday and tomorrow; the result is
// midnight local time.
func ParseFilterDate(input string) (*time.Time, error) {
	return ParseFilterDateAt(input, time.Now())
}

// ParseFilterDateAt is ParseFilterDate relative to now
func ParseFilterDateAt(input string, now time.Time) (*time.Time, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, nil
	}

	var day time.Time
	switch strings.ToLower(input) {
	case "today":
		day = startOfDay(now)
	case "yesterday":
		day = startOfDay(now.AddDate(0, 0, -1))
	case "tomorrow":
		day = startOfDay(now.AddDate(0, 0, 1))
	default:
		d, ok, err := parseISODate(input, now.Location())
		if !ok {
			d, ok, err = parseDayMonthYear(input, now.Location())
		}
		if !ok {
			return nil, fmt.Errorf("invalid date %q. Use: dd/mm/yyyy, yyyy-mm-dd, today, yesterday or tomorrow", input)
		}
		if err != nil {
			return nil, err
		}
		day = startOfDay(d)
	}
	return &day, nil
}

// parseDayMonthYear parses dd/mm/yyyy[ HH:MM]; ok reports whether the input
// had that shape at all
func parseDayMonthYear(input string, loc *time.Location) (time.Time, bool, error) {
	matches := dayMonthYearRegex.FindStringSubmatch(input)
	if matches == nil {
		return time.Time{}, false, nil
	}

	day, _ := strconv.Atoi(matches[1])
	month, _ := strconv.Atoi(matches[2])
	year, _ := strconv.Atoi(matches[3])
	hour, minute, sec := 23, 59, 59
	if matches[4] != "" {
		hour, _ = strconv.Atoi(matches[4])
		minute, _ = strconv.Atoi(matches[5])
		sec = 0
		if hour > 23 || minute > 59 {
			return time.Time{}, true, fmt.Errorf("invalid time %s:%s", matches[4], matches[5])
		}
	}

	t, err := buildDate(year, month, day, hour, minute, sec, loc)
	return t, true, err
}

func parseISODate(input string, loc *time.Location) (time.Time, bool, error) {
	matches := isoDateRegex.FindStringSubmatch(input)
	if matches == nil {
		return time.Time{}, false, nil
	}
	year, _ := strconv.Atoi(matches[1])
	month, _ := strconv.Atoi(matches[2])
	day, _ := strconv.Atoi(matches[3])

	t, err := buildDate(year, month, day, 0, 0, 0, loc)
	return t, true, err
}

func buildDate(year, month, day, hour, minute, sec int, loc *time.Location) (time.Time, error) {
	// Validate date ranges
	if day < 1 || day > 31 {
		return time.Time{}, fmt.Errorf("day must be between 1 and 31")
	}
	if month < 1 || month > 12 {
		return time.Time{}, fmt.Errorf("month must be between 1 and 12")
	}
	if year < minYear || year > maxYear {
		return time.Time{}, fmt.Errorf("year must be between %d and %d", minYear, maxYear)
	}

	t := time.Date(year, time.Month(month), day, hour, minute, sec, 0, loc)

	// Check if date is valid (handles leap years, etc.)
	if t.Day() != day || t.Month() != time.Month(month) || t.Year() != year {
		return time.Time{}, fmt.Errorf("invalid date")
	}
	return t, nil
}

// parseRelativeTime parses relative time formats like "3 days", "24 hours", etc.
func parseRelativeTime(input string, now time.Time) (time.Time, bool, error) {
	matches := relativeRegex.FindStringSubmatch(strings.ToLower(input))
	if matches == nil {
		return time.Time{}, false, nil
	}

	amount, err := strconv.Atoi(matches[1])
	if err != nil {
		return time.Time{}, true, fmt.Errorf("invalid number")
	}

	switch matches[2] {
	case "hour", "hours", "h":
		if amount < 1 || amount > 8760 { // Max 1 year in hours
			return time.Time{}, true, fmt.Errorf("hours must be between 1 and 8760")
		}
		return now.Add(time.Duration(amount) * time.Hour), true, nil

	case "day", "days", "d":
		if amount < 1 || amount > 365 { // Max 1 year in days
			return time.Time{}, true, fmt.Errorf("days must be between 1 and 365")
		}
		return endOfDay(now.AddDate(0, 0, amount)), true, nil

	default:
		if amount < 1 || amount > 52 { // Max 1 year in weeks
			return time.Time{}, true, fmt.Errorf("weeks must be between 1 and 52")
		}
		return endOfDay(now.AddDate(0, 0, amount*7)), true, nil
	}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// endOfDay is the due time used when only a date is given
func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, t.Location())
}

// FormatDueDate formats a due date for display relative to now
func FormatDueDate(dueDate, now time.Time) string {
	if dueDate.IsZero() {
		return ""
	}

	// Calculate calendar days difference
	local := dueDate.In(now.Location())
	daysDiff := int(math.Round(startOfDay(local).Sub(startOfDay(now)).Hours() / 24))

	// Always show the actual date to avoid confusion
	dateStr := local.Format("02/01/2006")

	switch {
	case local.Before(now) && daysDiff <= 0:
		return fmt.Sprintf("⚠️ OVERDUE (%s)", dateStr)
	case daysDiff == 0:
		return fmt.Sprintf("🔥 Due today (%s)", dateStr)
	case daysDiff == 1:
		return fmt.Sprintf("📅 Due tomorrow (%s)", dateStr)
	case daysDiff <= 7:
		return fmt.Sprintf("📅 Due %s (in %d days)", dateStr, daysDiff)
	default:
		return fmt.Sprintf("📅 Due %s", dateStr)
	}
}
