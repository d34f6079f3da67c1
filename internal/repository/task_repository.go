package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/balkashynov/taskdeck/internal/models"
)

const tasksPath = "/api/tasks"

// TaskRepository is the domain-shaped view of the remote task service
type TaskRepository interface {
	ListTasks(ctx context.Context, params *models.TaskQueryParams) (*models.TasksResponse, error)
	GetTask(ctx context.Context, id string) (*models.Task, error)
	CreateTask(ctx context.Context, req models.CreateTaskRequest) (*models.Task, error)
	UpdateTask(ctx context.Context, id string, req models.UpdateTaskRequest) (*models.Task, error)
	DeleteTask(ctx context.Context, id string) error
}

// Transport is the subset of api.Client the repository needs
type Transport interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
	Post(ctx context.Context, path string, body, out any) error
	Put(ctx context.Context, path string, body, out any) error
	Delete(ctx context.Context, path string, out any) error
}

// HTTPTaskRepository implements TaskRepository over the REST API
type HTTPTaskRepository struct {
	api Transport
}

func NewTaskRepository(api Transport) *HTTPTaskRepository {
	return &HTTPTaskRepository{api: api}
}

// listPayload keeps tasks raw until each one is validated
type listPayload struct {
	Tasks []json.RawMessage `json:"tasks"`
	Total int               `json:"total"`
	Page  *int              `json:"page,omitempty"`
	Size  *int              `json:"size,omitempty"`
}

func (r *HTTPTaskRepository) ListTasks(ctx context.Context, params *models.TaskQueryParams) (*models.TasksResponse, error) {
	query := url.Values{}
	if params != nil {
		if err := models.ValidateQuery(*params); err != nil {
			return nil, err
		}
		if params.SortBy != "" {
			query.Set("sortBy", string(params.SortBy))
		}
		if params.Page != nil {
			query.Set("page", strconv.Itoa(*params.Page))
		}
		if params.Size != nil {
			query.Set("size", strconv.Itoa(*params.Size))
		}
	}

	var payload listPayload
	if err := r.api.Get(ctx, tasksPath, query, &payload); err != nil {
		return nil, err
	}

	resp := &models.TasksResponse{
		Tasks: make([]models.Task, 0, len(payload.Tasks)),
		Total: payload.Total,
		Page:  payload.Page,
		Size:  payload.Size,
	}
	for i, raw := range payload.Tasks {
		task, err := models.ValidateTask(raw)
		if err != nil {
			return nil, fmt.Errorf("tasks[%d]: %w", i, err)
		}
		resp.Tasks = append(resp.Tasks, task)
	}
	return resp, nil
}

func (r *HTTPTaskRepository) GetTask(ctx context.Context, id string) (*models.Task, error) {
	var raw json.RawMessage
	if err := r.api.Get(ctx, taskPath(id), nil, &raw); err != nil {
		return nil, err
	}
	return parseTask(raw)
}

func (r *HTTPTaskRepository) CreateTask(ctx context.Context, req models.CreateTaskRequest) (*models.Task, error) {
	if err := models.ValidateCreate(req); err != nil {
		return nil, err
	}

	var raw json.RawMessage
	if err := r.api.Post(ctx, tasksPath, req, &raw); err != nil {
		return nil, err
	}
	return parseTask(raw)
}

func (r *HTTPTaskRepository) UpdateTask(ctx context.Context, id string, req models.UpdateTaskRequest) (*models.Task, error) {
	if err := models.ValidateUpdate(req); err != nil {
		return nil, err
	}

	var raw json.RawMessage
	if err := r.api.Put(ctx, taskPath(id), req, &raw); err != nil {
		return nil, err
	}
	return parseTask(raw)
}

func (r *HTTPTaskRepository) DeleteTask(ctx context.Context, id string) error {
	return r.api.Delete(ctx, taskPath(id), nil)
}

func taskPath(id string) string {
	return tasksPath + "/" + url.PathEscape(id)
}

func parseTask(raw json.RawMessage) (*models.Task, error) {
	task, err := models.ValidateTask(raw)
	if err != nil {
		return nil, err
	}
	return &task, nil
}
