package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glassfocus/core/internal/domain/entities"
	"github.com/glassfocus/core/internal/infrastructure/logger"
	"github.com/glassfocus/core/internal/ports"
)

// stubStateService implements ports.StateService with canned responses
type stubStateService struct {
	task     *entities.Task
	book     *entities.Book
	settings entities.Settings
	err      error
}

func (s *stubStateService) State() *entities.State { return entities.NewState() }

func (s *stubStateService) AddTask(ctx context.Context, req ports.AddTaskRequest) (*entities.Task, error) {
	return s.task, s.err
}

func (s *stubStateService) ToggleTask(ctx context.Context, id int64) (*entities.Task, error) {
	return s.task, s.err
}

func (s *stubStateService) DeleteTask(ctx context.Context, id int64) error { return s.err }

func (s *stubStateService) AddBook(ctx context.Context, req ports.AddBookRequest) (*entities.Book, error) {
	return s.book, s.err
}

func (s *stubStateService) ToggleBook(ctx context.Context, id int64) (*entities.Book, error) {
	return s.book, s.err
}

func (s *stubStateService) DeleteBook(ctx context.Context, id int64) error { return s.err }

func (s *stubStateService) UpdateSettings(ctx context.Context, req ports.UpdateSettingsRequest) (entities.Settings, error) {
	return s.settings, s.err
}

func (s *stubStateService) RunDailyRollover(ctx context.Context) error { return s.err }

func (s *stubStateService) RefreshDailyStats(ctx context.Context) {}

type testValidator struct {
	validator *validator.Validate
}

func (v *testValidator) Validate(i interface{}) error {
	return v.validator.Struct(i)
}

func newTestContext(t *testing.T, method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	e.Validator = &testValidator{validator: validator.New()}

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestAddTaskHandler(t *testing.T) {
	now := time.Now()
	stub := &stubStateService{task: &entities.Task{ID: 1, Text: "write tests", CreatedAt: now}}
	h := NewStateHandler(stub, logger.NewNop())

	c, rec := newTestContext(t, http.MethodPost, "/api/v1/tasks", `{"text":"write tests"}`)
	require.NoError(t, h.AddTask(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	var got entities.Task
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "write tests", got.Text)
}

func TestAddTaskHandlerRejectsEmptyText(t *testing.T) {
	h := NewStateHandler(&stubStateService{}, logger.NewNop())

	c, _ := newTestContext(t, http.MethodPost, "/api/v1/tasks", `{"text":""}`)
	err := h.AddTask(c)

	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusBadRequest, he.Code)
}

func TestToggleTaskHandlerNotFound(t *testing.T) {
	stub := &stubStateService{err: entities.ErrTaskNotFound}
	h := NewStateHandler(stub, logger.NewNop())

	c, _ := newTestContext(t, http.MethodPost, "/api/v1/tasks/42/toggle", "")
	c.SetParamNames("id")
	c.SetParamValues("42")

	err := h.ToggleTask(c)
	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusNotFound, he.Code)
}

func TestToggleTaskHandlerBadID(t *testing.T) {
	h := NewStateHandler(&stubStateService{}, logger.NewNop())

	c, _ := newTestContext(t, http.MethodPost, "/api/v1/tasks/abc/toggle", "")
	c.SetParamNames("id")
	c.SetParamValues("abc")

	err := h.ToggleTask(c)
	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusBadRequest, he.Code)
}

func TestDeleteBookHandler(t *testing.T) {
	h := NewStateHandler(&stubStateService{}, logger.NewNop())

	c, rec := newTestContext(t, http.MethodDelete, "/api/v1/books/7", "")
	c.SetParamNames("id")
	c.SetParamValues("7")

	require.NoError(t, h.DeleteBook(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestUpdateSettingsHandler(t *testing.T) {
	stub := &stubStateService{settings: entities.Settings{
		Notifications:          true,
		AutoArchive:            true,
		NotificationPermission: entities.PermissionGranted,
	}}
	h := NewStateHandler(stub, logger.NewNop())

	c, rec := newTestContext(t, http.MethodPut, "/api/v1/settings", `{"notifications":true}`)
	require.NoError(t, h.UpdateSettings(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var got entities.Settings
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.True(t, got.Notifications)
	assert.Equal(t, entities.PermissionGranted, got.NotificationPermission)
}
