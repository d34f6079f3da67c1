package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/balkashynov/taskdeck/internal/api"
	"github.com/balkashynov/taskdeck/internal/models"
)

// fakeRepo is an in-memory task server with call counters
type fakeRepo struct {
	mu     sync.Mutex
	tasks  []models.Task
	nextID int

	// gate, when set, blocks ListTasks until closed
	gate chan struct{}

	listCalls   atomic.Int32
	getCalls    atomic.Int32
	createCalls atomic.Int32
}

func newFakeRepo(tasks ...models.Task) *fakeRepo {
	return &fakeRepo{tasks: tasks, nextID: len(tasks) + 1}
}

func (f *fakeRepo) ListTasks(ctx context.Context, params *models.TaskQueryParams) (*models.TasksResponse, error) {
	f.listCalls.Add(1)
	if f.gate != nil {
		<-f.gate
	}
	if params != nil {
		if err := models.ValidateQuery(*params); err != nil {
			return nil, err
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	all := append([]models.Task(nil), f.tasks...)
	resp := &models.TasksResponse{Tasks: all, Total: len(all)}
	if params != nil && params.Page != nil && params.Size != nil {
		start := min(*params.Page**params.Size, len(all))
		end := min(start+*params.Size, len(all))
		resp.Tasks = all[start:end]
		resp.Page = params.Page
		resp.Size = params.Size
	}
	return resp, nil
}

func (f *fakeRepo) GetTask(ctx context.Context, id string) (*models.Task, error) {
	f.getCalls.Add(1)

	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tasks {
		if t.ID == id {
			t := t
			return &t, nil
		}
	}
	return nil, &api.Error{Message: "Task not found", Status: 404}
}

func (f *fakeRepo) CreateTask(ctx context.Context, req models.CreateTaskRequest) (*models.Task, error) {
	if err := models.ValidateCreate(req); err != nil {
		return nil, err
	}
	f.createCalls.Add(1)

	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	task := models.Task{
		ID:        fmt.Sprintf("t%d", f.nextID),
		UserID:    "u-test",
		Title:     req.Title,
		Priority:  req.Priority,
		DueDate:   req.DueDate,
		Category:  req.Category,
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.nextID++
	f.tasks = append(f.tasks, task)
	return &task, nil
}

func (f *fakeRepo) UpdateTask(ctx context.Context, id string, req models.UpdateTaskRequest) (*models.Task, error) {
	if err := models.ValidateUpdate(req); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.tasks {
		if f.tasks[i].ID != id {
			continue
		}
		t := &f.tasks[i]
		if req.Title != nil {
			t.Title = *req.Title
		}
		if req.Priority != nil {
			t.Priority = *req.Priority
		}
		if req.DueDate != nil {
			t.DueDate = *req.DueDate
		}
		if req.Category != nil {
			t.Category = *req.Category
		}
		out := *t
		return &out, nil
	}
	return nil, &api.Error{Message: "Task not found", Status: 404}
}

func (f *fakeRepo) DeleteTask(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.tasks {
		if f.tasks[i].ID == id {
			f.tasks = append(f.tasks[:i], f.tasks[i+1:]...)
			return nil
		}
	}
	return &api.Error{Message: "Task not found", Status: 404}
}

type fakeIdentity struct{ id string }

func (f *fakeIdentity) SetUserID(id string) { f.id = id }
