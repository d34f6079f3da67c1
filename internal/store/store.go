package store

import (
	"fmt"
	"io"
	"log"
	"slices"
	"sync"
	"time"

	"github.com/balkashynov/taskdeck/internal/models"
)

const (
	// StorageName is the durable entry holding filters and the user id
	StorageName = "task-manager-storage"

	storageVersion = 0

	DefaultPageSize = 9
	DefaultUserID   = "local-user"
)

// FilterState drives the visible task list. Only one date-range dimension
// is active at a time, chosen by SortBy.
type FilterState struct {
	SortBy          models.SortBy     `json:"sortBy"`
	Categories      []models.Category `json:"categories"`
	CreatedDateFrom *time.Time        `json:"createdDateFrom"`
	CreatedDateTo   *time.Time        `json:"createdDateTo"`
	DueDateFrom     *time.Time        `json:"dueDateFrom"`
	DueDateTo       *time.Time        `json:"dueDateTo"`
	Page            int               `json:"page"`
	PageSize        int               `json:"pageSize"`
}

// DefaultFilters returns the filter state of a first run
func DefaultFilters() FilterState {
	return FilterState{
		SortBy:     models.SortByCreatedAt,
		Categories: []models.Category{},
		Page:       0,
		PageSize:   DefaultPageSize,
	}
}

// HasDateBounds reports whether any date bound is set
func (f FilterState) HasDateBounds() bool {
	return f.CreatedDateFrom != nil || f.CreatedDateTo != nil || f.DueDateFrom != nil || f.DueDateTo != nil
}

func (f FilterState) clone() FilterState {
	out := f
	out.Categories = slices.Clone(f.Categories)
	out.CreatedDateFrom = cloneTime(f.CreatedDateFrom)
	out.CreatedDateTo = cloneTime(f.CreatedDateTo)
	out.DueDateFrom = cloneTime(f.DueDateFrom)
	out.DueDateTo = cloneTime(f.DueDateTo)
	return out
}

// UIState is session-only: selection and modal visibility
type UIState struct {
	SelectedTaskID string
	IsDrawerOpen   bool
	IsTaskFormOpen bool
	// EditingTaskID is set only while the form is open in edit mode
	EditingTaskID string
}

// State is a snapshot of the whole store
type State struct {
	Filters FilterState
	UI      UIState
	UserID  string
}

// DateValue distinguishes "clear this bound" (nil Time) from "leave it"
// (nil *DateValue) inside a FilterPatch
type DateValue struct {
	Time *time.Time
}

// Date sets a bound
func Date(t time.Time) *DateValue {
	return &DateValue{Time: &t}
}

// ClearDate unsets a bound
func ClearDate() *DateValue {
	return &DateValue{}
}

// FilterPatch is a partial filter update; nil fields are left unchanged
type FilterPatch struct {
	SortBy          *models.SortBy
	Categories      *[]models.Category
	CreatedDateFrom *DateValue
	CreatedDateTo   *DateValue
	DueDateFrom     *DateValue
	DueDateTo       *DateValue
	Page            *int
	PageSize        *int
}

// Options configures a Store
type Options struct {
	Storage       Storage
	DefaultUserID string
	Logger        *log.Logger
}

// Store is the process-wide state container. All mutation goes through its
// methods; filters and the user id are written to Storage on every change.
type Store struct {
	// writeMu orders whole updates: state change, persistence and
	// notification happen in the same sequence for every writer
	writeMu sync.Mutex
	mu      sync.RWMutex
	state   State

	storage Storage
	logger  *log.Logger

	subMu   sync.Mutex
	subs    map[int]func(State)
	nextSub int
}

// New builds a store, rehydrating filters and user id from opts.Storage
func New(opts Options) *Store {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	storage := opts.Storage
	if storage == nil {
		storage = NewMemoryStorage()
	}
	userID := opts.DefaultUserID
	if userID == "" {
		userID = DefaultUserID
	}

	s := &Store{
		state: State{
			Filters: DefaultFilters(),
			UserID:  userID,
		},
		storage: storage,
		logger:  logger,
		subs:    map[int]func(State){},
	}
	s.rehydrate()
	return s
}

func (s *Store) rehydrate() {
	raw, ok, err := s.storage.GetItem(StorageName)
	if err != nil {
		s.logger.Printf("store rehydrate failed name=%s err=%v", StorageName, err)
		return
	}
	if !ok {
		return
	}

	filters, userID, err := decodeEntry(raw)
	if err != nil {
		s.logger.Printf("store entry discarded name=%s err=%v", StorageName, err)
		return
	}
	s.state.Filters = filters
	if userID != "" {
		s.state.UserID = userID
	}
}

// State returns a snapshot of the full state
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) Filters() FilterState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Filters.clone()
}

func (s *Store) UI() UIState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.UI
}

func (s *Store) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.UserID
}

// SetFilters merges p into the filters.
// After the merge the date bounds not matching SortBy are cleared, and page
// goes back to 0 unless p sets it. An invalid patch leaves the state untouched.
func (s *Store) SetFilters(p FilterPatch) error {
	if err := validatePatch(p); err != nil {
		return err
	}

	s.update(true, func(st *State) {
		f := &st.Filters
		if p.SortBy != nil {
			f.SortBy = *p.SortBy
		}
		if p.Categories != nil {
			f.Categories = slices.Clone(*p.Categories)
			if f.Categories == nil {
				f.Categories = []models.Category{}
			}
		}
		applyDate(&f.CreatedDateFrom, p.CreatedDateFrom)
		applyDate(&f.CreatedDateTo, p.CreatedDateTo)
		applyDate(&f.DueDateFrom, p.DueDateFrom)
		applyDate(&f.DueDateTo, p.DueDateTo)
		if p.PageSize != nil {
			f.PageSize = *p.PageSize
		}

		switch f.SortBy {
		case models.SortByCreatedAt:
			f.DueDateFrom, f.DueDateTo = nil, nil
		case models.SortByDueDate:
			f.CreatedDateFrom, f.CreatedDateTo = nil, nil
		default:
			f.CreatedDateFrom, f.CreatedDateTo = nil, nil
			f.DueDateFrom, f.DueDateTo = nil, nil
		}

		if p.Page != nil {
			f.Page = *p.Page
		} else {
			f.Page = 0
		}
	})
	return nil
}

// SetPage moves to another page without touching the other filters
func (s *Store) SetPage(page int) error {
	return s.SetFilters(FilterPatch{Page: &page})
}

// ResetFilters restores every filter field to its default
func (s *Store) ResetFilters() {
	s.update(true, func(st *State) {
		st.Filters = DefaultFilters()
	})
}

// SetSelectedTaskID selects a task; the drawer is open iff id is non-empty
func (s *Store) SetSelectedTaskID(id string) {
	s.update(false, func(st *State) {
		st.UI.SelectedTaskID = id
		st.UI.IsDrawerOpen = id != ""
	})
}

func (s *Store) SetDrawerOpen(open bool) {
	s.update(false, func(st *State) {
		st.UI.IsDrawerOpen = open
	})
}

// OpenTaskForm opens the task form, in edit mode for id or create mode when id is empty
func (s *Store) OpenTaskForm(id string) {
	s.update(false, func(st *State) {
		st.UI.IsTaskFormOpen = true
		st.UI.EditingTaskID = id
	})
}

// CloseTaskForm closes the form and leaves edit mode
func (s *Store) CloseTaskForm() {
	s.update(false, func(st *State) {
		st.UI.IsTaskFormOpen = false
		st.UI.EditingTaskID = ""
	})
}

// SetUserID changes the identity attached to requests
func (s *Store) SetUserID(id string) error {
	if id == "" {
		return fmt.Errorf("user id must not be empty")
	}
	s.update(true, func(st *State) {
		st.UserID = id
	})
	return nil
}

// Subscribe registers fn to receive a snapshot after every change, in the
// order the changes were made. fn must not call back into the store's
// setters. The returned func unsubscribes.
func (s *Store) Subscribe(fn func(State)) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subs, id)
	}
}

// update applies fn under the lock, persists when asked, then notifies
// subscribers. Subscribers run inside the update and must not mutate the store.
func (s *Store) update(persist bool, fn func(*State)) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	fn(&s.state)
	snap := s.snapshotLocked()
	var entry string
	var err error
	if persist {
		entry, err = encodeEntry(snap.Filters, snap.UserID)
	}
	s.mu.Unlock()

	if persist {
		if err == nil {
			err = s.storage.SetItem(StorageName, entry)
		}
		if err != nil {
			s.logger.Printf("store persist failed name=%s err=%v", StorageName, err)
		}
	}

	s.subMu.Lock()
	subs := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.subMu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}

func (s *Store) snapshotLocked() State {
	return State{
		Filters: s.state.Filters.clone(),
		UI:      s.state.UI,
		UserID:  s.state.UserID,
	}
}

func validatePatch(p FilterPatch) error {
	verr := &models.ValidationError{Entity: "filters"}
	if p.SortBy != nil && !p.SortBy.Valid() {
		verr.Fields = append(verr.Fields, models.FieldError{Field: "sortBy", Message: fmt.Sprintf("unknown sort order %q", *p.SortBy)})
	}
	if p.Categories != nil {
		for _, c := range *p.Categories {
			if !c.Valid() {
				verr.Fields = append(verr.Fields, models.FieldError{Field: "categories", Message: fmt.Sprintf("unknown category %q", c)})
				break
			}
		}
	}
	if p.Page != nil && *p.Page < 0 {
		verr.Fields = append(verr.Fields, models.FieldError{Field: "page", Message: "must be 0 or greater"})
	}
	if p.PageSize != nil && (*p.PageSize < models.MinPageSize || *p.PageSize > models.MaxPageSize) {
		verr.Fields = append(verr.Fields, models.FieldError{
			Field:   "pageSize",
			Message: fmt.Sprintf("must be between %d and %d", models.MinPageSize, models.MaxPageSize),
		})
	}
	if len(verr.Fields) > 0 {
		return verr
	}
	return nil
}

func applyDate(dst **time.Time, v *DateValue) {
	if v == nil {
		return
	}
	*dst = cloneTime(v.Time)
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
