package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/balkashynov/taskdeck/internal/api"
	"github.com/balkashynov/taskdeck/internal/cache"
	"github.com/balkashynov/taskdeck/internal/models"
	"github.com/balkashynov/taskdeck/internal/store"
)

func seedTask(id string, created time.Time) models.Task {
	return models.Task{
		ID:        id,
		UserID:    "u-test",
		Title:     "Task " + id,
		Priority:  3,
		DueDate:   created.AddDate(0, 0, 7),
		Category:  models.CategoryWork,
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func newTestService(repo *fakeRepo) *TaskService {
	return NewTaskService(Deps{
		Repo:  repo,
		Cache: cache.New(),
		Store: store.New(store.Options{}),
	})
}

func validCreate(title string) models.CreateTaskRequest {
	return models.CreateTaskRequest{
		Title:    title,
		Priority: 2,
		DueDate:  time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC),
		Category: models.CategoryPersonal,
	}
}

func TestListTasks_ConcurrentReadsShareOneRequest(t *testing.T) {
	repo := newFakeRepo(seedTask("t1", time.Now()))
	repo.gate = make(chan struct{})
	svc := newTestService(repo)
	params := models.TaskQueryParams{SortBy: models.SortByPriority}

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := svc.ListTasks(context.Background(), params)
			assert.NoError(t, err)
			assert.Len(t, resp.Tasks, 1)
		}()
	}

	require.Eventually(t, func() bool { return repo.listCalls.Load() == 1 }, time.Second, time.Millisecond)
	close(repo.gate)
	wg.Wait()

	assert.Equal(t, int32(1), repo.listCalls.Load())
}

func TestCreateTask_ListsReturnFreshData(t *testing.T) {
	repo := newFakeRepo(seedTask("t1", time.Now()))
	svc := newTestService(repo)
	ctx := context.Background()
	params := models.TaskQueryParams{SortBy: models.SortByCreatedAt}

	before, err := svc.ListTasks(ctx, params)
	require.NoError(t, err)
	require.Len(t, before.Tasks, 1)
	all, err := svc.ListAllTasks(ctx, models.SortByCreatedAt)
	require.NoError(t, err)
	require.Len(t, all, 1)

	svc.Store().OpenTaskForm("")
	created, err := svc.CreateTask(ctx, validCreate("New one"))
	require.NoError(t, err)
	assert.False(t, svc.Store().UI().IsTaskFormOpen, "form closes on success")

	after, err := svc.ListTasks(ctx, params)
	require.NoError(t, err)
	require.Len(t, after.Tasks, 2)
	assert.Equal(t, created.ID, after.Tasks[1].ID)

	all, err = svc.ListAllTasks(ctx, models.SortByCreatedAt)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestCreateTask_InvalidMutatesNothing(t *testing.T) {
	repo := newFakeRepo(seedTask("t1", time.Now()))
	svc := newTestService(repo)
	ctx := context.Background()

	_, err := svc.ListTasks(ctx, models.TaskQueryParams{})
	require.NoError(t, err)
	svc.Store().OpenTaskForm("")

	for _, req := range []models.CreateTaskRequest{
		{Title: "", Priority: 3, DueDate: time.Now(), Category: models.CategoryWork},
		{Title: "x", Priority: 6, DueDate: time.Now(), Category: models.CategoryWork},
		{Title: "x", Priority: 0, DueDate: time.Now(), Category: models.CategoryWork},
	} {
		_, err := svc.CreateTask(ctx, req)
		assert.True(t, models.IsValidationError(err))
	}

	assert.Equal(t, int32(0), repo.createCalls.Load())
	assert.True(t, svc.Store().UI().IsTaskFormOpen, "form stays open")
	assert.False(t, svc.Cache().State(ListKey(models.TaskQueryParams{})).Stale, "lists are not invalidated")
}

func TestUpdateTask_SetsDetailAndClearsSelection(t *testing.T) {
	repo := newFakeRepo(seedTask("t1", time.Now()))
	svc := newTestService(repo)
	ctx := context.Background()

	_, err := svc.GetTask(ctx, "t1")
	require.NoError(t, err)
	require.Equal(t, int32(1), repo.getCalls.Load())

	svc.Store().SetSelectedTaskID("t1")
	svc.Store().OpenTaskForm("t1")

	title := "Renamed"
	updated, err := svc.UpdateTask(ctx, "t1", models.UpdateTaskRequest{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)

	detail, err := svc.GetTask(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", detail.Title)
	assert.Equal(t, int32(1), repo.getCalls.Load(), "detail comes from the update response")

	assert.Equal(t, store.UIState{}, svc.Store().UI())
}

func TestDeleteTask_RemovesDetail(t *testing.T) {
	repo := newFakeRepo(seedTask("t1", time.Now()), seedTask("t2", time.Now()))
	svc := newTestService(repo)
	ctx := context.Background()

	_, err := svc.GetTask(ctx, "t1")
	require.NoError(t, err)
	all, err := svc.ListAllTasks(ctx, models.SortByCreatedAt)
	require.NoError(t, err)
	require.Len(t, all, 2)
	svc.Store().SetSelectedTaskID("t1")

	require.NoError(t, svc.DeleteTask(ctx, "t1"))
	assert.Equal(t, cache.StatusIdle, svc.Cache().State(DetailKey("t1")).Status)
	assert.Equal(t, store.UIState{}, svc.Store().UI())

	_, err = svc.GetTask(ctx, "t1")
	assert.True(t, api.IsNotFound(err))

	all, err = svc.ListAllTasks(ctx, models.SortByCreatedAt)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestDeleteTask_FailureKeepsSelection(t *testing.T) {
	svc := newTestService(newFakeRepo())
	svc.Store().SetSelectedTaskID("ghost")

	err := svc.DeleteTask(context.Background(), "ghost")
	assert.True(t, api.IsNotFound(err))
	assert.Equal(t, "ghost", svc.Store().UI().SelectedTaskID)
}

func TestMutations_RequireID(t *testing.T) {
	svc := newTestService(newFakeRepo())
	ctx := context.Background()

	_, err := svc.GetTask(ctx, "")
	assert.Error(t, err)
	_, err = svc.UpdateTask(ctx, "", models.UpdateTaskRequest{})
	assert.Error(t, err)
	assert.Error(t, svc.DeleteTask(ctx, ""))
}

func TestListAllTasks_WalksPages(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tasks := make([]models.Task, 0, 230)
	for i := 0; i < 230; i++ {
		tasks = append(tasks, seedTask(fmt.Sprintf("t%d", i), base.Add(time.Duration(i)*time.Hour)))
	}
	repo := newFakeRepo(tasks...)
	svc := newTestService(repo)

	all, err := svc.ListAllTasks(context.Background(), models.SortByPriority)
	require.NoError(t, err)
	assert.Len(t, all, 230)
	assert.Equal(t, int32(3), repo.listCalls.Load())
	assert.Equal(t, "t229", all[229].ID)
}

func TestVisibleTasks_FilterThenPaginate(t *testing.T) {
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	tasks := make([]models.Task, 0, 40)
	for i := 0; i < 40; i++ {
		tasks = append(tasks, seedTask(fmt.Sprintf("t%d", i), base.AddDate(0, 0, i)))
	}
	svc := newTestService(newFakeRepo(tasks...))
	ctx := context.Background()

	page, err := svc.VisibleTasks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 40, page.FilteredCount)
	assert.Equal(t, 5, page.TotalPages)
	assert.Len(t, page.Items, 9)

	// created Jan 10 .. Feb 3 inclusive: t9 .. t33, 25 tasks
	require.NoError(t, svc.Store().SetFilters(store.FilterPatch{
		CreatedDateFrom: store.Date(time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)),
		CreatedDateTo:   store.Date(time.Date(2024, 2, 3, 0, 0, 0, 0, time.UTC)),
	}))
	require.NoError(t, svc.Store().SetPage(2))

	page, err = svc.VisibleTasks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 25, page.FilteredCount)
	assert.Equal(t, 3, page.TotalPages)
	require.Len(t, page.Items, 7)
	assert.Equal(t, "t27", page.Items[0].ID)
	assert.Equal(t, "t33", page.Items[6].ID)
	assert.Equal(t, cache.StatusSuccess, svc.ListState().Status)
}

func TestVisibleTasks_Error(t *testing.T) {
	svc := newTestService(newFakeRepo())
	size := 9
	require.NoError(t, svc.Store().SetFilters(store.FilterPatch{PageSize: &size}))

	failing := &failingRepo{err: &api.Error{Message: "Service Unavailable", Status: 503}}
	svc.repo = failing

	_, err := svc.VisibleTasks(context.Background())
	require.Error(t, err)
	assert.Equal(t, 503, api.StatusOf(err))
	assert.Equal(t, cache.StatusError, svc.ListState().Status)
}

type failingRepo struct {
	fakeRepo
	err error
}

func (f *failingRepo) ListTasks(context.Context, *models.TaskQueryParams) (*models.TasksResponse, error) {
	return nil, f.err
}

func TestTasksByDueDate(t *testing.T) {
	repo := newFakeRepo(seedTask("t1", time.Now()))
	svc := newTestService(repo)

	tasks, err := svc.TasksByDueDate(context.Background())
	require.NoError(t, err)
	assert.Len(t, tasks, 1)
	assert.Equal(t, cache.StatusSuccess, svc.Cache().State(AllTasksKey(models.SortByDueDate)).Status)
}

func TestSwitchUser(t *testing.T) {
	repo := newFakeRepo(seedTask("t1", time.Now()))
	identity := &fakeIdentity{}
	svc := NewTaskService(Deps{Repo: repo, Identity: identity})
	ctx := context.Background()

	_, err := svc.ListAllTasks(ctx, models.SortByCreatedAt)
	require.NoError(t, err)

	require.NoError(t, svc.SwitchUser("u-2"))
	assert.Equal(t, "u-2", identity.id)
	assert.Equal(t, "u-2", svc.Store().UserID())
	assert.True(t, svc.Cache().State(AllTasksKey(models.SortByCreatedAt)).Stale)

	assert.Error(t, svc.SwitchUser(""))
	assert.Equal(t, "u-2", identity.id)
}

func TestCacheKeys(t *testing.T) {
	assert.Equal(t, `["tasks","list",{}]`, ListKey(models.TaskQueryParams{}).String())
	assert.Equal(t, `["tasks","list",{"sortBy":"DUE_DATE"}]`, ListKey(models.TaskQueryParams{SortBy: models.SortByDueDate}).String())
	assert.Equal(t, `["tasks","detail","t1"]`, DetailKey("t1").String())
	assert.Equal(t, `["tasks","list","all","PRIORITY"]`, AllTasksKey(models.SortByPriority).String())
}

func TestQueries_CallerCancellationIsAnAPIError(t *testing.T) {
	repo := newFakeRepo(seedTask("t1", time.Now()))
	repo.gate = make(chan struct{})
	defer close(repo.gate)
	svc := newTestService(repo)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.ListAllTasks(ctx, models.SortByCreatedAt)
	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 0, api.StatusOf(err))
	assert.Equal(t, context.Canceled.Error(), apiErr.Message)

	_, err = svc.VisibleTasks(ctx)
	assert.Equal(t, 0, api.StatusOf(err))

	timeout, cancelTimeout := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancelTimeout()
	_, err = svc.ListTasks(timeout, models.TaskQueryParams{Page: models.IntPtr(0), Size: models.IntPtr(10)})
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, context.DeadlineExceeded.Error(), apiErr.Message)
}

func TestQueryError_KeepsOtherErrors(t *testing.T) {
	assert.NoError(t, queryError(nil))

	wrapped := fmt.Errorf("list tasks page 0: %w", &api.Error{Message: "Task not found", Status: 404})
	assert.Equal(t, wrapped, queryError(wrapped))
	assert.True(t, api.IsNotFound(queryError(wrapped)))

	verr := &models.ValidationError{Entity: "query"}
	assert.Equal(t, verr, queryError(verr))
}
