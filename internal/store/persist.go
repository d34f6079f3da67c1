package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/balkashynov/taskdeck/internal/models"
)

// persistedEntry is the on-disk envelope: {"state":{...},"version":0}
type persistedEntry struct {
	State   persistedState `json:"state"`
	Version int            `json:"version"`
}

type persistedState struct {
	Filters persistedFilters `json:"filters"`
	UserID  string           `json:"userId"`
}

// persistedFilters holds dates as ISO strings
type persistedFilters struct {
	SortBy          models.SortBy     `json:"sortBy"`
	Categories      []models.Category `json:"categories"`
	CreatedDateFrom *string           `json:"createdDateFrom"`
	CreatedDateTo   *string           `json:"createdDateTo"`
	DueDateFrom     *string           `json:"dueDateFrom"`
	DueDateTo       *string           `json:"dueDateTo"`
	Page            *int              `json:"page"`
	PageSize        *int              `json:"pageSize"`
}

func encodeEntry(f FilterState, userID string) (string, error) {
	entry := persistedEntry{
		State: persistedState{
			Filters: persistedFilters{
				SortBy:          f.SortBy,
				Categories:      f.Categories,
				CreatedDateFrom: isoString(f.CreatedDateFrom),
				CreatedDateTo:   isoString(f.CreatedDateTo),
				DueDateFrom:     isoString(f.DueDateFrom),
				DueDateTo:       isoString(f.DueDateTo),
				Page:            models.IntPtr(f.Page),
				PageSize:        models.IntPtr(f.PageSize),
			},
			UserID: userID,
		},
		Version: storageVersion,
	}
	b, err := json.Marshal(entry)
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", StorageName, err)
	}
	return string(b), nil
}

// decodeEntry parses a stored entry, turning date strings back into times.
// Missing fields keep their defaults.
func decodeEntry(raw string) (FilterState, string, error) {
	var entry persistedEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return FilterState{}, "", fmt.Errorf("decode %s: %w", StorageName, err)
	}
	if entry.Version != storageVersion {
		return FilterState{}, "", fmt.Errorf("decode %s: unsupported version %d", StorageName, entry.Version)
	}

	p := entry.State.Filters
	f := DefaultFilters()
	if p.SortBy != "" {
		if !p.SortBy.Valid() {
			return FilterState{}, "", fmt.Errorf("decode %s: unknown sortBy %q", StorageName, p.SortBy)
		}
		f.SortBy = p.SortBy
	}
	if p.Categories != nil {
		f.Categories = p.Categories
	}
	if p.Page != nil && *p.Page >= 0 {
		f.Page = *p.Page
	}
	if p.PageSize != nil && *p.PageSize >= models.MinPageSize && *p.PageSize <= models.MaxPageSize {
		f.PageSize = *p.PageSize
	}

	var err error
	if f.CreatedDateFrom, err = parseISO("createdDateFrom", p.CreatedDateFrom); err != nil {
		return FilterState{}, "", err
	}
	if f.CreatedDateTo, err = parseISO("createdDateTo", p.CreatedDateTo); err != nil {
		return FilterState{}, "", err
	}
	if f.DueDateFrom, err = parseISO("dueDateFrom", p.DueDateFrom); err != nil {
		return FilterState{}, "", err
	}
	if f.DueDateTo, err = parseISO("dueDateTo", p.DueDateTo); err != nil {
		return FilterState{}, "", err
	}

	return f, entry.State.UserID, nil
}

func isoString(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339Nano)
	return &s
}

func parseISO(field string, s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := models.ParseTimestamp(*s)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %s: %w", StorageName, field, err)
	}
	return &t, nil
}
