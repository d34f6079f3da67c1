package tui

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/balkashynov/taskdeck/internal/api"
	"github.com/balkashynov/taskdeck/internal/cache"
	"github.com/balkashynov/taskdeck/internal/models"
	"github.com/balkashynov/taskdeck/internal/service"
	"github.com/balkashynov/taskdeck/internal/store"
)

type memRepo struct {
	mu        sync.Mutex
	tasks     []models.Task
	nextID    int
	creates   int
	updates   []models.UpdateTaskRequest
	createErr error
	listErr   error
}

func (r *memRepo) ListTasks(_ context.Context, params *models.TaskQueryParams) (*models.TasksResponse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	all := append([]models.Task(nil), r.tasks...)
	resp := &models.TasksResponse{Tasks: all, Total: len(all)}
	if params != nil && params.Page != nil && params.Size != nil {
		start := min(*params.Page**params.Size, len(all))
		resp.Tasks = all[start:min(start+*params.Size, len(all))]
	}
	return resp, nil
}

func (r *memRepo) GetTask(_ context.Context, id string) (*models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tasks {
		if t.ID == id {
			return &t, nil
		}
	}
	return nil, &api.Error{Message: "Task not found", Status: 404}
}

func (r *memRepo) CreateTask(_ context.Context, req models.CreateTaskRequest) (*models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.creates++
	if r.createErr != nil {
		return nil, r.createErr
	}
	r.nextID++
	task := models.Task{
		ID:        fmt.Sprintf("new-%d", r.nextID),
		Title:     req.Title,
		Priority:  req.Priority,
		DueDate:   req.DueDate,
		Category:  req.Category,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	r.tasks = append(r.tasks, task)
	return &task, nil
}

func (r *memRepo) UpdateTask(_ context.Context, id string, req models.UpdateTaskRequest) (*models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, req)
	for i := range r.tasks {
		if r.tasks[i].ID == id {
			if req.Title != nil {
				r.tasks[i].Title = *req.Title
			}
			out := r.tasks[i]
			return &out, nil
		}
	}
	return nil, &api.Error{Message: "Task not found", Status: 404}
}

func (r *memRepo) DeleteTask(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.tasks {
		if r.tasks[i].ID == id {
			r.tasks = append(r.tasks[:i], r.tasks[i+1:]...)
			return nil
		}
	}
	return &api.Error{Message: "Task not found", Status: 404}
}

func seedTasks(n int) []models.Task {
	base := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	tasks := make([]models.Task, 0, n)
	for i := 0; i < n; i++ {
		tasks = append(tasks, models.Task{
			ID:        fmt.Sprintf("t%d", i),
			Title:     fmt.Sprintf("Task %d", i),
			Priority:  3,
			Category:  models.CategoryWork,
			DueDate:   base.AddDate(0, 1, 0),
			CreatedAt: base.AddDate(0, 0, i),
			UpdatedAt: base.AddDate(0, 0, i),
		})
	}
	return tasks
}

func newTestService(repo *memRepo) *service.TaskService {
	return service.NewTaskService(service.Deps{
		Repo:  repo,
		Cache: cache.New(),
		Store: store.New(store.Options{}),
	})
}

// collect runs cmd and returns every message it produces, expanding batches
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, collect(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

func find[T tea.Msg](t *testing.T, msgs []tea.Msg) T {
	t.Helper()
	for _, msg := range msgs {
		if m, ok := msg.(T); ok {
			return m
		}
	}
	var zero T
	t.Fatalf("no %T among %d messages", zero, len(msgs))
	return zero
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func loadedList(t *testing.T, svc *service.TaskService) ListModel {
	t.Helper()
	m := NewListModel(svc)
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	updated, _ = updated.Update(find[pageLoadedMsg](t, collect(m.Init())))
	return updated.(ListModel)
}

func press(t *testing.T, m ListModel, k string) (ListModel, tea.Cmd) {
	t.Helper()
	updated, cmd := m.Update(key(k))
	return updated.(ListModel), cmd
}

// settle feeds the page reload a key press triggered back into the model
func settle(t *testing.T, m ListModel, cmd tea.Cmd) ListModel {
	t.Helper()
	updated, _ := m.Update(find[pageLoadedMsg](t, collect(cmd)))
	return updated.(ListModel)
}

func TestListModel_LoadsFirstPage(t *testing.T) {
	svc := newTestService(&memRepo{tasks: seedTasks(12)})
	m := loadedList(t, svc)

	assert.Len(t, m.page.Items, store.DefaultPageSize)
	assert.Equal(t, 2, m.page.TotalPages)
	assert.Contains(t, m.View(), "Task 0")
	assert.Contains(t, m.View(), "Page 1/2 (12 tasks)")
}

func TestListModel_ShowsLoadError(t *testing.T) {
	svc := newTestService(&memRepo{listErr: &api.Error{Message: "Service Unavailable", Status: 503}})
	m := loadedList(t, svc)

	assert.Error(t, m.err)
	assert.Contains(t, m.View(), "Service Unavailable (status 503)")
}

func TestListModel_PagesThroughStore(t *testing.T) {
	svc := newTestService(&memRepo{tasks: seedTasks(12)})
	m := loadedList(t, svc)

	m, cmd := press(t, m, "right")
	assert.Equal(t, 1, svc.Store().Filters().Page)
	m = settle(t, m, cmd)
	require.Len(t, m.page.Items, 3)
	assert.Equal(t, "t9", m.page.Items[0].ID)

	m, cmd = press(t, m, "right")
	assert.Nil(t, cmd, "no page after the last")

	m, cmd = press(t, m, "left")
	m = settle(t, m, cmd)
	assert.Equal(t, 0, svc.Store().Filters().Page)
	assert.Len(t, m.page.Items, 9)
}

func TestListModel_SortCyclesAndResets(t *testing.T) {
	svc := newTestService(&memRepo{tasks: seedTasks(3)})
	m := loadedList(t, svc)

	m, cmd := press(t, m, "s")
	m = settle(t, m, cmd)
	assert.Equal(t, models.SortByPriority, svc.Store().Filters().SortBy)

	m, cmd = press(t, m, "s")
	settle(t, m, cmd)
	assert.Equal(t, models.SortByDueDate, svc.Store().Filters().SortBy)

	m, cmd = press(t, m, "r")
	settle(t, m, cmd)
	assert.Equal(t, store.DefaultFilters(), svc.Store().Filters())
}

func TestNextSortOrder_Wraps(t *testing.T) {
	assert.Equal(t, models.SortByPriority, nextSortOrder(models.SortByCreatedAt))
	assert.Equal(t, models.SortByCreatedAt, nextSortOrder(models.SortByCategory))
}

func TestListModel_DrawerFollowsSelection(t *testing.T) {
	svc := newTestService(&memRepo{tasks: seedTasks(3)})
	m := loadedList(t, svc)

	m, _ = press(t, m, "down")
	m, cmd := press(t, m, "enter")
	assert.Equal(t, store.UIState{SelectedTaskID: "t1", IsDrawerOpen: true}, svc.Store().UI())

	updated, _ := m.Update(find[detailLoadedMsg](t, collect(cmd)))
	m = updated.(ListModel)
	require.NotNil(t, m.detail)
	assert.Equal(t, "Task 1", m.detail.Title)
	assert.Contains(t, m.View(), "ID: t1")

	m, cmd = press(t, m, "esc")
	assert.Nil(t, cmd, "esc closes the drawer before quitting")
	assert.Equal(t, store.UIState{}, svc.Store().UI())
	assert.Nil(t, m.detail)
}

func TestListModel_DeleteAfterConfirm(t *testing.T) {
	repo := &memRepo{tasks: seedTasks(2)}
	svc := newTestService(repo)
	m := loadedList(t, svc)

	m, _ = press(t, m, "d")
	assert.True(t, m.confirmDelete)
	m, cmd := press(t, m, "x")
	assert.Nil(t, cmd)
	assert.False(t, m.confirmDelete)
	assert.Len(t, repo.tasks, 2)

	m, _ = press(t, m, "d")
	m, cmd = press(t, m, "y")
	updated, cmd := m.Update(find[taskDeletedMsg](t, collect(cmd)))
	m = settle(t, updated.(ListModel), cmd)

	assert.Len(t, repo.tasks, 1)
	assert.Len(t, m.page.Items, 1)
	assert.Equal(t, "t1", m.page.Items[0].ID)
}

func TestListModel_EmbeddedFormCreates(t *testing.T) {
	repo := &memRepo{tasks: seedTasks(1)}
	svc := newTestService(repo)
	m := loadedList(t, svc)

	m, _ = press(t, m, "n")
	require.NotNil(t, m.form)
	assert.True(t, svc.Store().UI().IsTaskFormOpen)

	m.form.inputs[StepTitle].SetValue("Write report")
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	m = updated.(ListModel)

	updated, cmd = m.Update(find[taskSavedMsg](t, collect(cmd)))
	updated, cmd = updated.Update(find[formClosedMsg](t, collect(cmd)))
	m = settle(t, updated.(ListModel), cmd)

	assert.Nil(t, m.form)
	assert.False(t, svc.Store().UI().IsTaskFormOpen)
	assert.Equal(t, 1, repo.creates)
	assert.Equal(t, 2, m.page.FilteredCount, "list refetched after create")
	assert.Contains(t, m.View(), `Saved "Write report"`)
}

func TestTaskForm_Defaults(t *testing.T) {
	m := NewTaskForm(newTestService(&memRepo{}), nil, FormValues{Title: "Milk"}, true)

	assert.Equal(t, "Milk", m.inputs[StepTitle].Value())
	assert.Equal(t, "personal", m.inputs[StepCategory].Value())
	assert.Equal(t, "3", m.inputs[StepPriority].Value())
	assert.NotEmpty(t, m.inputs[StepDueDate].Value())
	assert.False(t, m.hasChanges())
}

func TestTaskForm_LocalValidationBlocksRequest(t *testing.T) {
	repo := &memRepo{}
	m := NewTaskForm(newTestService(repo), nil, FormValues{}, true)

	updated, _ := m.Update(key("enter"))
	m = updated.(TaskFormModel)
	assert.Equal(t, "Task title is required", m.validationErr)
	assert.Equal(t, StepTitle, m.currentStep)

	m.inputs[StepTitle].SetValue("Valid")
	m.inputs[StepPriority].SetValue("9")
	m, cmd := m.submit()
	assert.Nil(t, cmd)
	assert.Equal(t, StepPriority, m.currentStep)
	assert.Contains(t, m.validationErr, "Invalid priority")
	assert.False(t, m.saving)
	assert.Zero(t, repo.creates)
}

func TestTaskForm_StepsThenSaves(t *testing.T) {
	repo := &memRepo{}
	svc := newTestService(repo)
	svc.Store().OpenTaskForm("")
	m := NewTaskForm(svc, nil, FormValues{Title: "Buy milk", Category: "shopping", Priority: "low", DueDate: "01/02/2030"}, true)

	for i := 0; i < 4; i++ {
		updated, _ := m.Update(key("enter"))
		m = updated.(TaskFormModel)
	}
	require.Equal(t, StepSave, m.currentStep)

	updated, cmd := m.Update(key("enter"))
	m = updated.(TaskFormModel)
	assert.True(t, m.saving)

	updated, cmd = m.Update(find[taskSavedMsg](t, collect(cmd)))
	m = updated.(TaskFormModel)
	require.NotNil(t, m.Saved())
	assert.Equal(t, "Buy milk", m.Saved().Title)
	assert.Equal(t, models.CategoryShopping, m.Saved().Category)
	assert.Equal(t, 2, m.Saved().Priority)
	assert.True(t, time.Date(2030, 2, 1, 23, 59, 59, 0, time.Local).Equal(m.Saved().DueDate))
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.False(t, svc.Store().UI().IsTaskFormOpen)
}

func TestTaskForm_ServerErrorKeepsFormOpen(t *testing.T) {
	repo := &memRepo{createErr: &api.Error{Message: "Internal Server Error", Status: 500}}
	svc := newTestService(repo)
	svc.Store().OpenTaskForm("")
	m := NewTaskForm(svc, nil, FormValues{Title: "Doomed"}, true)

	m, cmd := m.submit()
	updated, cmd := m.Update(find[taskSavedMsg](t, collect(cmd)))
	m = updated.(TaskFormModel)

	assert.Nil(t, cmd)
	assert.Nil(t, m.Saved())
	assert.Equal(t, 500, api.StatusOf(m.Err()))
	assert.True(t, svc.Store().UI().IsTaskFormOpen)
	assert.Contains(t, m.View(), "Internal Server Error")
}

func TestTaskForm_EditSendsOnlyChanges(t *testing.T) {
	repo := &memRepo{tasks: seedTasks(1)}
	svc := newTestService(repo)
	task := repo.tasks[0]
	m := NewTaskForm(svc, &task, FormValues{}, true)

	m.inputs[StepTitle].SetValue("Renamed")
	m, cmd := m.submit()
	updated, _ := m.Update(find[taskSavedMsg](t, collect(cmd)))
	m = updated.(TaskFormModel)

	require.Len(t, repo.updates, 1)
	req := repo.updates[0]
	require.NotNil(t, req.Title)
	assert.Equal(t, "Renamed", *req.Title)
	assert.Nil(t, req.Category)
	assert.Nil(t, req.Priority)
	assert.Nil(t, req.DueDate)
	assert.Equal(t, "Renamed", m.Saved().Title)
}

func TestTaskForm_EditWithoutChangesSkipsRequest(t *testing.T) {
	repo := &memRepo{tasks: seedTasks(1)}
	svc := newTestService(repo)
	svc.Store().OpenTaskForm("t0")
	task := repo.tasks[0]
	m := NewTaskForm(svc, &task, FormValues{}, true)

	m, cmd := m.submit()
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Empty(t, repo.updates)
	assert.Equal(t, "t0", m.Saved().ID)
	assert.False(t, svc.Store().UI().IsTaskFormOpen)
}

func TestTaskForm_EscWithoutChangesCancels(t *testing.T) {
	svc := newTestService(&memRepo{})
	svc.Store().OpenTaskForm("")
	m := NewTaskForm(svc, nil, FormValues{}, false)

	updated, cmd := m.Update(key("esc"))
	m = updated.(TaskFormModel)
	assert.True(t, m.Cancelled())
	closed := find[formClosedMsg](t, collect(cmd))
	assert.Nil(t, closed.task)
	assert.False(t, svc.Store().UI().IsTaskFormOpen)
}

func TestTaskForm_EscWithChangesAsks(t *testing.T) {
	m := NewTaskForm(newTestService(&memRepo{}), nil, FormValues{}, true)
	m.inputs[StepTitle].SetValue("draft")

	updated, _ := m.Update(key("esc"))
	m = updated.(TaskFormModel)
	assert.True(t, m.showSaveModal)

	updated, _ = m.Update(key("n"))
	m = updated.(TaskFormModel)
	assert.True(t, m.Cancelled())
}

func TestColors(t *testing.T) {
	assert.Equal(t, "#1976D2", CategoryColor(models.CategoryWork))
	assert.Equal(t, colorUnknown, CategoryColor("OTHER"))
	assert.Equal(t, "#F44336", PriorityColor(5))
	assert.Equal(t, colorUnknown, PriorityColor(0))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "longer ...", truncate("longer title here", 10))
	assert.Equal(t, "ab", truncate("abcdef", 2))
}
