package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"task-planner/internal/model"
	"task-planner/internal/repository"
	"task-planner/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var testZone = time.FixedZone("MSK", 3*3600)

func newTestServer(t *testing.T) (*Server, *service.TaskService) {
	t.Helper()
	db, err := repository.NewDB(filepath.Join(t.TempDir(), "web.db"))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	tasks := service.NewTaskService(repository.NewTaskRepository(db, testZone))
	return NewServer(tasks), tasks
}

func do(s *Server, method, target string, form url.Values) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func taskPath(id uint, action string) string {
	return "/tasks/" + strconv.FormatUint(uint64(id), 10) + "/" + action + "/"
}

func TestHealthz(t *testing.T) {
	s, _ := newTestServer(t)
	w := do(s, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}

func TestLandingAndEmptyList(t *testing.T) {
	s, _ := newTestServer(t)

	w := do(s, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Планировщик задач")

	w = do(s, http.MethodGet, "/tasks/", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Задач пока нет")
}

func TestCreateTask(t *testing.T) {
	s, tasks := newTestServer(t)

	w := do(s, http.MethodGet, "/tasks/create/", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `name="due_date"`)

	w = do(s, http.MethodPost, "/tasks/create/", url.Values{
		"title":       {"  Report  "},
		"description": {"quarterly"},
		"due_date":    {"2026-01-25T14:30"},
	})
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/tasks/", w.Header().Get("Location"))

	list, err := tasks.List(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Report", list[0].Title)
	require.NotNil(t, list[0].DueDate)
	assert.True(t, list[0].DueDate.Equal(time.Date(2026, 1, 25, 11, 30, 0, 0, time.UTC)))

	w = do(s, http.MethodGet, "/tasks/", nil)
	assert.Contains(t, w.Body.String(), "25.01.2026 14:30")
}

func TestCreateWithInvalidDateHasNoDeadline(t *testing.T) {
	s, tasks := newTestServer(t)

	w := do(s, http.MethodPost, "/tasks/create/", url.Values{"title": {"x"}, "due_date": {"not a date"}})
	assert.Equal(t, http.StatusFound, w.Code)

	list, err := tasks.List(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Nil(t, list[0].DueDate)
}

func TestCreateRequiresTitle(t *testing.T) {
	s, tasks := newTestServer(t)

	w := do(s, http.MethodPost, "/tasks/create/", url.Values{"title": {"   "}, "description": {"kept"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Название обязательно")
	assert.Contains(t, w.Body.String(), "kept")

	list, err := tasks.List(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestEditDueDateRules(t *testing.T) {
	s, tasks := newTestServer(t)
	ctx := context.Background()
	due := time.Date(2026, 5, 1, 9, 0, 0, 0, testZone)
	task, err := tasks.Create(ctx, service.TaskInput{Title: "old", DueDate: &due})
	require.NoError(t, err)

	w := do(s, http.MethodGet, taskPath(task.ID, "edit"), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `value="2026-05-01T09:00"`)

	// Unparsable keeps the old deadline.
	w = do(s, http.MethodPost, taskPath(task.ID, "edit"), url.Values{"title": {"renamed"}, "due_date": {"garbage"}})
	assert.Equal(t, http.StatusFound, w.Code)
	got, err := tasks.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Title)
	require.NotNil(t, got.DueDate)
	assert.True(t, got.DueDate.Equal(due))

	w = do(s, http.MethodPost, taskPath(task.ID, "edit"), url.Values{"title": {"renamed"}, "due_date": {"2026-06-02T18:15"}})
	assert.Equal(t, http.StatusFound, w.Code)
	got, err = tasks.Get(ctx, task.ID)
	require.NoError(t, err)
	require.NotNil(t, got.DueDate)
	assert.True(t, got.DueDate.Equal(time.Date(2026, 6, 2, 18, 15, 0, 0, testZone)))

	// Empty clears it.
	w = do(s, http.MethodPost, taskPath(task.ID, "edit"), url.Values{"title": {"renamed"}, "due_date": {""}})
	assert.Equal(t, http.StatusFound, w.Code)
	got, err = tasks.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Nil(t, got.DueDate)
}

func TestToggleAndDelete(t *testing.T) {
	s, tasks := newTestServer(t)
	ctx := context.Background()
	task, err := tasks.Create(ctx, service.TaskInput{Title: "cycle"})
	require.NoError(t, err)

	w := do(s, http.MethodPost, taskPath(task.ID, "toggle"), nil)
	assert.Equal(t, http.StatusFound, w.Code)
	got, err := tasks.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusInProgress, got.Status)

	w = do(s, http.MethodGet, taskPath(task.ID, "delete"), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "cycle")

	w = do(s, http.MethodPost, taskPath(task.ID, "delete"), nil)
	assert.Equal(t, http.StatusFound, w.Code)
	_, err = tasks.Get(ctx, task.ID)
	assert.ErrorIs(t, err, repository.ErrTaskNotFound)

	w = do(s, http.MethodPost, taskPath(task.ID, "delete"), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUnknownAndMalformedIDs(t *testing.T) {
	s, _ := newTestServer(t)

	for _, target := range []string{"/tasks/999/edit/", "/tasks/abc/edit/", "/tasks/0/delete/", "/no/such/page"} {
		w := do(s, http.MethodGet, target, nil)
		assert.Equal(t, http.StatusNotFound, w.Code, target)
	}
	w := do(s, http.MethodPost, "/tasks/999/toggle/", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAPI(t *testing.T) {
	s, tasks := newTestServer(t)
	task, err := tasks.Create(context.Background(), service.TaskInput{Title: "api"})
	require.NoError(t, err)

	w := do(s, http.MethodGet, "/api/tasks", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var listResp struct {
		Success bool         `json:"success"`
		Tasks   []model.Task `json:"tasks"`
		Count   int          `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listResp))
	assert.True(t, listResp.Success)
	assert.Equal(t, 1, listResp.Count)
	assert.Equal(t, "api", listResp.Tasks[0].Title)

	w = do(s, http.MethodGet, "/api/tasks/"+strconv.FormatUint(uint64(task.ID), 10), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"new"`)

	w = do(s, http.MethodGet, "/api/tasks/999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/tasks", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
