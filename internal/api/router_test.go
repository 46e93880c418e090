package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baharkarakas/taskboard/internal/auth"
	"github.com/baharkarakas/taskboard/internal/repository/memory"
	"github.com/baharkarakas/taskboard/internal/services"
	"github.com/baharkarakas/taskboard/internal/worker"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Errors  []struct {
		Field   string `json:"field"`
		Message string `json:"message"`
	} `json:"errors"`
	Count      *int `json:"count"`
	Total      *int `json:"total"`
	Pagination *struct {
		Next *struct{ Page, Limit int } `json:"next"`
		Prev *struct{ Page, Limit int } `json:"prev"`
	} `json:"pagination"`
}

type taskJSON struct {
	ID          string     `json:"id"`
	OwnerID     string     `json:"ownerId"`
	Title       string     `json:"title"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority"`
	Tags        []string   `json:"tags"`
	CompletedAt *time.Time `json:"completedAt"`
	IsOverdue   bool       `json:"isOverdue"`
}

type downPinger struct{}

func (downPinger) Ping(context.Context) error { return errors.New("connection refused") }

type testServer struct {
	t       *testing.T
	handler http.Handler
	users   *services.UserService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	repos := memory.NewRepositories()
	wp := worker.NewPool(2)
	t.Cleanup(wp.Stop)
	tm := auth.NewTokenManager("a-secret", "r-secret", "taskboard-test", time.Hour, 24*time.Hour)
	users := services.NewUserService(repos.Users, tm, wp, time.Second)
	tasks := services.NewTaskService(repos.Tasks, repos.AuditLogs, wp, time.Second)
	h := NewRouter(RouterDeps{
		Users:        users,
		Tasks:        tasks,
		Store:        repos.Pinger,
		StoreTimeout: time.Second,
		CORSOrigins:  []string{"*"},
	})
	return &testServer{t: t, handler: h, users: users}
}

func (s *testServer) do(method, path, token string, body any) (int, envelope) {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	var env envelope
	require.NoError(s.t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

func (s *testServer) signup(email string) string {
	s.t.Helper()
	code, env := s.do(http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"name": "User", "email": email, "password": "secret1",
	})
	require.Equal(s.t, http.StatusCreated, code, env.Message)
	var data struct {
		AccessToken string `json:"accessToken"`
	}
	require.NoError(s.t, json.Unmarshal(env.Data, &data))
	return data.AccessToken
}

func (s *testServer) createTask(token string, body map[string]any) taskJSON {
	s.t.Helper()
	code, env := s.do(http.MethodPost, "/api/v1/tasks", token, body)
	require.Equal(s.t, http.StatusCreated, code, env)
	var task taskJSON
	require.NoError(s.t, json.Unmarshal(env.Data, &task))
	return task
}

func TestTasksRequireAuthentication(t *testing.T) {
	s := newTestServer(t)
	for _, path := range []string{"/api/v1/tasks", "/api/v1/tasks/stats/overview", "/api/v1/tasks/abc"} {
		code, env := s.do(http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, code, path)
		assert.False(t, env.Success)
	}
	code, _ := s.do(http.MethodGet, "/api/v1/tasks", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestTaskCRUD(t *testing.T) {
	s := newTestServer(t)
	token := s.signup("ada@example.com")

	task := s.createTask(token, map[string]any{
		"title":    "Write report",
		"priority": "high",
		"dueDate":  time.Now().Add(48 * time.Hour).Format(time.RFC3339),
		"tags":     []string{"work"},
	})
	assert.Equal(t, "pending", task.Status)
	assert.Equal(t, []string{"work"}, task.Tags)
	assert.False(t, task.IsOverdue)

	code, env := s.do(http.MethodGet, "/api/v1/tasks/"+task.ID, token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, env.Success)

	code, env = s.do(http.MethodPut, "/api/v1/tasks/"+task.ID, token, map[string]any{"status": "completed"})
	require.Equal(t, http.StatusOK, code)
	var updated taskJSON
	require.NoError(t, json.Unmarshal(env.Data, &updated))
	assert.Equal(t, "completed", updated.Status)
	assert.NotNil(t, updated.CompletedAt)
	assert.Equal(t, "high", updated.Priority)

	code, env = s.do(http.MethodDelete, "/api/v1/tasks/"+task.ID, token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, env.Success)

	code, _ = s.do(http.MethodGet, "/api/v1/tasks/"+task.ID, token, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestCrossUserAccessIsNotFound(t *testing.T) {
	s := newTestServer(t)
	alice := s.signup("alice@example.com")
	bob := s.signup("bob@example.com")
	task := s.createTask(alice, map[string]any{"title": "private"})

	code, env := s.do(http.MethodGet, "/api/v1/tasks/"+task.ID, bob, nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.NotContains(t, string(env.Data), "private")

	code, _ = s.do(http.MethodPut, "/api/v1/tasks/"+task.ID, bob, map[string]any{"title": "mine"})
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = s.do(http.MethodDelete, "/api/v1/tasks/"+task.ID, bob, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = s.do(http.MethodGet, "/api/v1/tasks/00000000-0000-0000-0000-000000000000", bob, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, env = s.do(http.MethodGet, "/api/v1/tasks", bob, nil)
	require.Equal(t, http.StatusOK, code)
	require.NotNil(t, env.Total)
	assert.Equal(t, 0, *env.Total)
}

func TestCreateValidationReturnsEveryError(t *testing.T) {
	s := newTestServer(t)
	token := s.signup("ada@example.com")

	code, env := s.do(http.MethodPost, "/api/v1/tasks", token, map[string]any{
		"title":    "",
		"status":   "done",
		"priority": "critical",
		"dueDate":  time.Now().Add(-24 * time.Hour).Format(time.RFC3339),
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.False(t, env.Success)
	fields := make([]string, 0, len(env.Errors))
	for _, e := range env.Errors {
		fields = append(fields, e.Field)
		assert.NotEmpty(t, e.Message)
	}
	assert.ElementsMatch(t, []string{"title", "status", "priority", "dueDate"}, fields)

	code, env = s.do(http.MethodPost, "/api/v1/tasks", token, `{"title": `)
	assert.Equal(t, http.StatusBadRequest, code)
	require.Len(t, env.Errors, 1)
	assert.Equal(t, "body", env.Errors[0].Field)
}

func TestMistypedFieldsAreListedWithOtherViolations(t *testing.T) {
	s := newTestServer(t)
	token := s.signup("ada@example.com")

	fieldsOf := func(env envelope) []string {
		out := make([]string, 0, len(env.Errors))
		for _, e := range env.Errors {
			out = append(out, e.Field)
		}
		return out
	}

	code, env := s.do(http.MethodPost, "/api/v1/tasks", token, `{"title": 5, "tags": "work", "priority": "critical", "status": "done"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.ElementsMatch(t, []string{"title", "tags", "priority", "status"}, fieldsOf(env))

	id := s.createTask(token, map[string]any{"title": "keep me"}).ID
	code, env = s.do(http.MethodPut, "/api/v1/tasks/"+id, token, `{"title": 7, "status": "nope", "description": "fine"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.ElementsMatch(t, []string{"title", "status"}, fieldsOf(env))

	code, env = s.do(http.MethodGet, "/api/v1/tasks/"+id, token, nil)
	require.Equal(t, http.StatusOK, code)
	var got taskJSON
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, "keep me", got.Title)
}

func TestListEnvelopeAndPagination(t *testing.T) {
	s := newTestServer(t)
	token := s.signup("ada@example.com")
	for i := 0; i < 12; i++ {
		s.createTask(token, map[string]any{"title": "task", "tags": []string{"bulk"}})
	}

	code, env := s.do(http.MethodGet, "/api/v1/tasks?page=1&limit=5", token, nil)
	require.Equal(t, http.StatusOK, code)
	require.NotNil(t, env.Count)
	require.NotNil(t, env.Total)
	assert.Equal(t, 5, *env.Count)
	assert.Equal(t, 12, *env.Total)
	require.NotNil(t, env.Pagination)
	require.NotNil(t, env.Pagination.Next)
	assert.Equal(t, 2, env.Pagination.Next.Page)
	assert.Equal(t, 5, env.Pagination.Next.Limit)
	assert.Nil(t, env.Pagination.Prev)

	code, env = s.do(http.MethodGet, "/api/v1/tasks?page=3&limit=5", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 2, *env.Count)
	assert.Nil(t, env.Pagination.Next)
	require.NotNil(t, env.Pagination.Prev)
	assert.Equal(t, 2, env.Pagination.Prev.Page)

	code, env = s.do(http.MethodGet, "/api/v1/tasks?page=9&limit=5", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 0, *env.Count)
	assert.Equal(t, 12, *env.Total)
	var items []taskJSON
	require.NoError(t, json.Unmarshal(env.Data, &items))
	assert.Empty(t, items)

	code, env = s.do(http.MethodGet, "/api/v1/tasks?page=1000000000000000000&limit=10", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 0, *env.Count)
	assert.Equal(t, 12, *env.Total)
	assert.Nil(t, env.Pagination.Next)
	require.NotNil(t, env.Pagination.Prev)
}

func TestListRejectsBadParameters(t *testing.T) {
	s := newTestServer(t)
	token := s.signup("ada@example.com")

	code, env := s.do(http.MethodGet, "/api/v1/tasks?page=0&limit=1000&status=done&sortBy=owner", token, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Len(t, env.Errors, 4)
}

func TestStatsOverview(t *testing.T) {
	s := newTestServer(t)
	token := s.signup("ada@example.com")
	done := s.createTask(token, map[string]any{"title": "a"})
	s.createTask(token, map[string]any{"title": "b", "status": "in-progress"})
	s.createTask(token, map[string]any{"title": "c"})
	code, _ := s.do(http.MethodPut, "/api/v1/tasks/"+done.ID, token, map[string]any{"status": "completed"})
	require.Equal(t, http.StatusOK, code)

	code, env := s.do(http.MethodGet, "/api/v1/tasks/stats/overview", token, nil)
	require.Equal(t, http.StatusOK, code)
	var st map[string]int
	require.NoError(t, json.Unmarshal(env.Data, &st))
	assert.Equal(t, map[string]int{
		"total": 3, "pending": 1, "in-progress": 1, "completed": 1, "cancelled": 0, "overdue": 0, "dueToday": 0,
	}, st)
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t)
	s.signup("ada@example.com")

	code, env := s.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": "ada@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.False(t, env.Success)

	code, env = s.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": "ADA@example.com", "password": "secret1"})
	require.Equal(t, http.StatusOK, code)
	var session struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
		User         struct {
			Email string `json:"email"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &session))
	assert.Equal(t, "ada@example.com", session.User.Email)
	assert.NotContains(t, string(env.Data), "password")

	code, _ = s.do(http.MethodGet, "/api/v1/auth/me", session.AccessToken, nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = s.do(http.MethodGet, "/api/v1/auth/me", session.RefreshToken, nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = s.do(http.MethodPost, "/api/v1/auth/refresh", "", map[string]string{"refreshToken": session.RefreshToken})
	assert.Equal(t, http.StatusOK, code)

	code, _ = s.do(http.MethodPost, "/api/v1/auth/register", "", map[string]string{"name": "Dup", "email": "ada@example.com", "password": "secret1"})
	assert.Equal(t, http.StatusConflict, code)
}

func TestAdminUserRoutes(t *testing.T) {
	s := newTestServer(t)
	userToken := s.signup("ada@example.com")

	code, _ := s.do(http.MethodGet, "/api/v1/users", userToken, nil)
	assert.Equal(t, http.StatusForbidden, code)

	_, err := s.users.EnsureAdmin(context.Background(), "Admin", "root@example.com", "rootpass")
	require.NoError(t, err)
	code, env := s.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": "root@example.com", "password": "rootpass"})
	require.Equal(t, http.StatusOK, code)
	var session struct {
		AccessToken string `json:"accessToken"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &session))

	code, env = s.do(http.MethodGet, "/api/v1/users", session.AccessToken, nil)
	require.Equal(t, http.StatusOK, code)
	var users []struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &users))
	require.Len(t, users, 2)

	var adaID string
	for _, u := range users {
		if u.Email == "ada@example.com" {
			adaID = u.ID
		}
	}
	require.NotEmpty(t, adaID)

	code, _ = s.do(http.MethodDelete, "/api/v1/users/"+adaID, session.AccessToken, nil)
	require.Equal(t, http.StatusOK, code)

	// a deactivated user's token stops working
	code, _ = s.do(http.MethodGet, "/api/v1/tasks", userToken, nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, env = s.do(http.MethodGet, "/api/v1/users", session.AccessToken, nil)
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &users))
	assert.Len(t, users, 1)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	code, env := s.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, env.Success)

	h := NewRouter(RouterDeps{Store: downPinger{}, StoreTimeout: time.Second, CORSOrigins: []string{"*"}})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "store unavailable")
}
