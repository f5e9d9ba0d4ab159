package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	dom "Todo/internal/domain"
	"Todo/internal/dto"
	"Todo/internal/migrations"
	"Todo/internal/repo"
	"Todo/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(t *testing.T, r repo.TodoRepo) *gin.Engine {
	t.Helper()
	engine := gin.New()
	NewTodoHandler(service.NewTodoService(r)).Register(engine.Group("/api"))
	return engine
}

func newSQLiteRouter(t *testing.T) *gin.Engine {
	t.Helper()
	db, err := repo.OpenSQLite(filepath.Join(t.TempDir(), "todos.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, migrations.Up(db, "sqlite"))
	return newRouter(t, repo.NewSQLiteTodoRepo(db))
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func create(t *testing.T, h http.Handler, title, desc string) string {
	t.Helper()
	w := do(t, h, http.MethodPost, "/api", map[string]string{"title": title, "description": desc})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return w.Body.String()
}

func TestCreateThenGet(t *testing.T) {
	h := newSQLiteRouter(t)

	issued := time.Now().UTC().Add(-time.Millisecond)
	w := do(t, h, http.MethodPost, "/api", map[string]string{"title": "Buy milk", "description": "2%"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")
	id := w.Body.String()
	require.NotEmpty(t, id)

	w = do(t, h, http.MethodGet, "/api/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[dto.TodoResponse](t, w)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "Buy milk", got.Title)
	assert.Equal(t, "2%", got.Description)
	assert.Nil(t, got.FinishedAt)
	assert.True(t, got.CreatedAt.Equal(got.UpdatedAt))
	assert.False(t, got.CreatedAt.Before(issued))
	assert.NotContains(t, w.Body.String(), "finishedAt")
}

func TestCreate_IgnoresClientIDAndTimestamps(t *testing.T) {
	h := newSQLiteRouter(t)
	w := do(t, h, http.MethodPost, "/api", map[string]string{
		"id":          "client-chosen",
		"title":       "a",
		"description": "b",
		"createdAt":   "2001-01-01T00:00:00Z",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.NotEqual(t, "client-chosen", w.Body.String())

	got := decode[dto.TodoResponse](t, do(t, h, http.MethodGet, "/api/"+w.Body.String(), nil))
	assert.True(t, got.CreatedAt.After(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func TestCreate_Validation(t *testing.T) {
	h := newSQLiteRouter(t)
	long := string(bytes.Repeat([]byte("x"), 256))
	limit := string(bytes.Repeat([]byte("x"), 255))

	tests := []struct {
		name string
		body any
		want int
	}{
		{"missing title", map[string]string{"description": "d"}, http.StatusBadRequest},
		{"empty title", map[string]string{"title": "", "description": "d"}, http.StatusBadRequest},
		{"title too long", map[string]string{"title": long, "description": "d"}, http.StatusBadRequest},
		{"missing description", map[string]string{"title": "t"}, http.StatusBadRequest},
		{"malformed json", "{", http.StatusBadRequest},
		{"empty description", map[string]string{"title": "t", "description": ""}, http.StatusCreated},
		{"title at limit", map[string]string{"title": limit, "description": "d"}, http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, http.MethodPost, "/api", tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}

	list := decode[[]dto.TodoResponse](t, do(t, h, http.MethodGet, "/api", nil))
	assert.Len(t, list, 2)
}

func TestList(t *testing.T) {
	h := newSQLiteRouter(t)

	w := do(t, h, http.MethodGet, "/api", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())

	a := create(t, h, "a", "1")
	b := create(t, h, "b", "2")
	list := decode[[]dto.TodoResponse](t, do(t, h, http.MethodGet, "/api", nil))
	require.Len(t, list, 2)
	ids := []string{list[0].ID, list[1].ID}
	assert.ElementsMatch(t, []string{a, b}, ids)
}

func TestGet_NotFound(t *testing.T) {
	h := newSQLiteRouter(t)
	w := do(t, h, http.MethodGet, "/api/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdate(t *testing.T) {
	h := newSQLiteRouter(t)
	id := create(t, h, "Buy milk", "2%")
	before := decode[dto.TodoResponse](t, do(t, h, http.MethodGet, "/api/"+id, nil))

	w := do(t, h, http.MethodPut, "/api/"+id, map[string]string{
		"id":          "someone-else",
		"title":       "Buy milk",
		"description": "whole",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got := decode[dto.TodoResponse](t, w)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "whole", got.Description)
	assert.True(t, got.CreatedAt.Equal(before.CreatedAt))
	assert.False(t, got.UpdatedAt.Before(before.UpdatedAt))

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/api/someone-else", nil).Code)
}

func TestUpdate_NotFound(t *testing.T) {
	h := newSQLiteRouter(t)
	w := do(t, h, http.MethodPut, "/api/ghost", map[string]string{"title": "a", "description": "b"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/api/ghost", nil).Code)
}

func TestUpdate_Validation(t *testing.T) {
	h := newSQLiteRouter(t)
	id := create(t, h, "a", "b")
	w := do(t, h, http.MethodPut, "/api/"+id, map[string]string{"title": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDelete(t *testing.T) {
	h := newSQLiteRouter(t)
	id := create(t, h, "a", "b")

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodDelete, "/api/"+id, nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodDelete, "/api/"+id, nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/api/"+id, nil).Code)
}

func TestFinish(t *testing.T) {
	h := newSQLiteRouter(t)
	id := create(t, h, "Buy milk", "2%")

	w := do(t, h, http.MethodPost, "/api/"+id+"/finish", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	first := decode[dto.TodoResponse](t, w)
	require.NotNil(t, first.FinishedAt)
	assert.True(t, first.FinishedAt.Equal(first.UpdatedAt))
	assert.Equal(t, "Buy milk", first.Title)
	assert.Equal(t, "2%", first.Description)

	time.Sleep(2 * time.Millisecond)
	w = do(t, h, http.MethodPost, "/api/"+id+"/finish", nil)
	require.Equal(t, http.StatusOK, w.Code)
	second := decode[dto.TodoResponse](t, w)
	require.NotNil(t, second.FinishedAt)
	assert.True(t, second.FinishedAt.After(*first.FinishedAt))
	assert.True(t, second.UpdatedAt.After(first.UpdatedAt))

	// a later update keeps finishedAt
	w = do(t, h, http.MethodPut, "/api/"+id, map[string]string{"title": "Buy milk", "description": "whole"})
	require.Equal(t, http.StatusOK, w.Code)
	updated := decode[dto.TodoResponse](t, w)
	require.NotNil(t, updated.FinishedAt)
	assert.True(t, updated.FinishedAt.Equal(*second.FinishedAt))
}

func TestFinish_NotFound(t *testing.T) {
	h := newSQLiteRouter(t)
	w := do(t, h, http.MethodPost, "/api/ghost/finish", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/api/ghost", nil).Code)
}

func TestSearch(t *testing.T) {
	h := newSQLiteRouter(t)
	milk := create(t, h, "Buy milk", "2%")
	create(t, h, "Call mom", "sunday")
	sale := create(t, h, "Groceries", "50% off MILK")

	w := do(t, h, http.MethodGet, "/api/search?keyword=milk", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[[]dto.TodoResponse](t, w)
	ids := make([]string, len(list))
	for i, td := range list {
		ids[i] = td.ID
	}
	assert.ElementsMatch(t, []string{milk, sale}, ids)

	list = decode[[]dto.TodoResponse](t, do(t, h, http.MethodGet, "/api/search?keyword=50%25", nil))
	require.Len(t, list, 1)
	assert.Equal(t, sale, list[0].ID)

	list = decode[[]dto.TodoResponse](t, do(t, h, http.MethodGet, "/api/search?keyword=nothing", nil))
	assert.Empty(t, list)
}

func TestSearch_EmptyKeyword(t *testing.T) {
	r := &failingRepo{err: errors.New("must not be called")}
	h := newRouter(t, r)

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/search", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/search?keyword=", nil).Code)
	assert.Zero(t, r.calls)
}

func TestStoreFailure(t *testing.T) {
	var logged []string
	h := gin.New()
	h.Use(func(c *gin.Context) {
		c.Next()
		logged = append(logged, c.Errors.String())
	})
	NewTodoHandler(service.NewTodoService(&failingRepo{err: errors.New("connection refused")})).Register(h.Group("/api"))

	cases := []struct {
		method, path string
		body         any
	}{
		{http.MethodGet, "/api", nil},
		{http.MethodPost, "/api", map[string]string{"title": "a", "description": "b"}},
		{http.MethodGet, "/api/x", nil},
		{http.MethodPut, "/api/x", map[string]string{"title": "a", "description": "b"}},
		{http.MethodDelete, "/api/x", nil},
		{http.MethodPost, "/api/x/finish", nil},
		{http.MethodGet, "/api/search?keyword=a", nil},
	}
	for _, tc := range cases {
		w := do(t, h, tc.method, tc.path, tc.body)
		assert.Equal(t, http.StatusInternalServerError, w.Code, tc.method+" "+tc.path)
		assert.JSONEq(t, `{"error":"internal error"}`, w.Body.String())
		assert.NotContains(t, w.Body.String(), "connection refused")
	}
	require.Len(t, logged, len(cases))
	for _, l := range logged {
		assert.Contains(t, l, "connection refused")
	}
}

func TestCreate_DuplicateID(t *testing.T) {
	h := newRouter(t, &failingRepo{err: repo.ErrDuplicateID})
	w := do(t, h, http.MethodPost, "/api", map[string]string{"title": "a", "description": "b"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

// failingRepo fails every call with err.
type failingRepo struct {
	err   error
	calls int
}

func (f *failingRepo) fail() error { f.calls++; return f.err }

func (f *failingRepo) ListAll(context.Context) ([]dom.Todo, error) { return nil, f.fail() }
func (f *failingRepo) Insert(context.Context, dom.Todo) error { return f.fail() }
func (f *failingRepo) Remove(context.Context, string) (int64, error) { return 0, f.fail() }
func (f *failingRepo) UpdateByID(context.Context, dom.Todo) error { return f.fail() }
func (f *failingRepo) Ping(context.Context) error { return f.fail() }
func (f *failingRepo) FindByID(context.Context, string) (dom.Todo, bool, error) {
	return dom.Todo{}, false, f.fail()
}
func (f *failingRepo) FindByKeyword(context.Context, string) ([]dom.Todo, error) {
	return nil, f.fail()
}
