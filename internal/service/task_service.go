package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/balkashynov/taskdeck/internal/api"
	"github.com/balkashynov/taskdeck/internal/cache"
	"github.com/balkashynov/taskdeck/internal/filter"
	"github.com/balkashynov/taskdeck/internal/models"
	"github.com/balkashynov/taskdeck/internal/repository"
	"github.com/balkashynov/taskdeck/internal/store"
)

const (
	// AllTasksPageSize is the server page size used when walking every task
	AllTasksPageSize = 100
	// maxWalkPages bounds ListAllTasks against a server that never runs out
	maxWalkPages = 100
)

// Cache keys. Every list query lives under ["tasks","list"] so one
// invalidation reaches all of them.
var (
	tasksKey = cache.Key{"tasks"}
	listsKey = cache.Key{"tasks", "list"}
)

func ListKey(params models.TaskQueryParams) cache.Key {
	return cache.Key{"tasks", "list", params}
}

func AllTasksKey(sortBy models.SortBy) cache.Key {
	return cache.Key{"tasks", "list", "all", sortBy}
}

func DetailKey(id string) cache.Key {
	return cache.Key{"tasks", "detail", id}
}

// Identity is the part of the API client that carries the user id
type Identity interface {
	SetUserID(id string)
}

// Deps wires a TaskService
type Deps struct {
	Repo     repository.TaskRepository
	Cache    *cache.Cache
	Store    *store.Store
	Identity Identity
	Logger   *log.Logger
}

// TaskService serves task queries through the cache and applies the store
// side effects of each mutation
type TaskService struct {
	repo     repository.TaskRepository
	cache    *cache.Cache
	store    *store.Store
	identity Identity
	logger   *log.Logger
}

func NewTaskService(d Deps) *TaskService {
	logger := d.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	c := d.Cache
	if c == nil {
		c = cache.New(cache.WithLogger(logger))
	}
	st := d.Store
	if st == nil {
		st = store.New(store.Options{Logger: logger})
	}
	return &TaskService{
		repo:     d.Repo,
		cache:    c,
		store:    st,
		identity: d.Identity,
		logger:   logger,
	}
}

func (s *TaskService) Store() *store.Store { return s.store }

func (s *TaskService) Cache() *cache.Cache { return s.cache }

// ListTasks returns one server page for params
func (s *TaskService) ListTasks(ctx context.Context, params models.TaskQueryParams) (*models.TasksResponse, error) {
	resp, err := cache.Fetch(ctx, s.cache, ListKey(params), func(ctx context.Context) (*models.TasksResponse, error) {
		return s.repo.ListTasks(ctx, &params)
	})
	return resp, queryError(err)
}

// GetTask returns a single task
func (s *TaskService) GetTask(ctx context.Context, id string) (*models.Task, error) {
	if id == "" {
		return nil, fmt.Errorf("task id is required")
	}
	task, err := cache.Fetch(ctx, s.cache, DetailKey(id), func(ctx context.Context) (*models.Task, error) {
		return s.repo.GetTask(ctx, id)
	})
	return task, queryError(err)
}

// ListAllTasks walks the server pages for sortBy and returns every task
func (s *TaskService) ListAllTasks(ctx context.Context, sortBy models.SortBy) ([]models.Task, error) {
	tasks, err := cache.Fetch(ctx, s.cache, AllTasksKey(sortBy), func(ctx context.Context) ([]models.Task, error) {
		return s.walk(ctx, sortBy)
	})
	return tasks, queryError(err)
}

// queryError gives a caller that stopped waiting the same error shape as a
// failed request
func queryError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &api.Error{Message: err.Error()}
	}
	return err
}

func (s *TaskService) walk(ctx context.Context, sortBy models.SortBy) ([]models.Task, error) {
	var all []models.Task
	for page := 0; page < maxWalkPages; page++ {
		params := models.TaskQueryParams{
			SortBy: sortBy,
			Page:   models.IntPtr(page),
			Size:   models.IntPtr(AllTasksPageSize),
		}
		resp, err := s.repo.ListTasks(ctx, &params)
		if err != nil {
			return nil, fmt.Errorf("list tasks page %d: %w", page, err)
		}
		all = append(all, resp.Tasks...)

		if len(resp.Tasks) < AllTasksPageSize || len(all) >= resp.Total {
			return all, nil
		}
	}
	s.logger.Printf("task walk stopped sort_by=%s pages=%d tasks=%d", sortBy, maxWalkPages, len(all))
	return all, nil
}

// TasksByDueDate returns every task ordered by due date, for the calendar
func (s *TaskService) TasksByDueDate(ctx context.Context) ([]models.Task, error) {
	return s.ListAllTasks(ctx, models.SortByDueDate)
}

// VisibleTasks returns the page the store's filters select: every task in
// the chosen order, narrowed by the active date bounds, then paginated
func (s *TaskService) VisibleTasks(ctx context.Context) (filter.Page, error) {
	f := s.store.Filters()
	all, err := s.ListAllTasks(ctx, f.SortBy)
	if err != nil {
		return filter.Page{}, err
	}
	return filter.Paginate(filter.Apply(all, CriteriaFor(f)), f.Page, f.PageSize), nil
}

// ListState reports the cache status of the list VisibleTasks reads
func (s *TaskService) ListState() cache.State {
	return s.cache.State(AllTasksKey(s.store.Filters().SortBy))
}

// CriteriaFor converts the store's filters into filter bounds
func CriteriaFor(f store.FilterState) filter.Criteria {
	return filter.Criteria{
		CreatedFrom: f.CreatedDateFrom,
		CreatedTo:   f.CreatedDateTo,
		DueFrom:     f.DueDateFrom,
		DueTo:       f.DueDateTo,
	}
}

// CreateTask creates a task, refreshes every list and closes the form
func (s *TaskService) CreateTask(ctx context.Context, req models.CreateTaskRequest) (*models.Task, error) {
	task, err := s.repo.CreateTask(ctx, req)
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(listsKey)
	s.store.CloseTaskForm()
	return task, nil
}

// UpdateTask applies a partial update. The returned task replaces the cached
// detail; lists are refreshed, the form closes and the selection clears.
func (s *TaskService) UpdateTask(ctx context.Context, id string, req models.UpdateTaskRequest) (*models.Task, error) {
	if id == "" {
		return nil, fmt.Errorf("task id is required")
	}
	task, err := s.repo.UpdateTask(ctx, id, req)
	if err != nil {
		return nil, err
	}
	s.cache.Set(DetailKey(task.ID), task)
	s.cache.Invalidate(listsKey)
	s.store.CloseTaskForm()
	s.store.SetSelectedTaskID("")
	return task, nil
}

// DeleteTask deletes a task, drops its detail entry, refreshes every list
// and clears the selection
func (s *TaskService) DeleteTask(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("task id is required")
	}
	if err := s.repo.DeleteTask(ctx, id); err != nil {
		return err
	}
	s.cache.Remove(DetailKey(id))
	s.cache.Invalidate(listsKey)
	s.store.SetSelectedTaskID("")
	return nil
}

// SwitchUser changes the identity sent with requests and drops every cached
// task, since they belonged to the previous user
func (s *TaskService) SwitchUser(id string) error {
	if err := s.store.SetUserID(id); err != nil {
		return err
	}
	if s.identity != nil {
		s.identity.SetUserID(id)
	}
	n := s.cache.Invalidate(tasksKey)
	s.logger.Printf("user switched user_id=%s invalidated=%d", id, n)
	return nil
}

// Refresh marks every cached list stale so the next read refetches
func (s *TaskService) Refresh() int {
	return s.cache.Invalidate(listsKey)
}
