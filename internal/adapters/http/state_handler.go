package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/glassfocus/core/internal/domain/entities"
	"github.com/glassfocus/core/internal/infrastructure/logger"
	"github.com/glassfocus/core/internal/ports"
)

// StateHandler handles task, book and settings requests
type StateHandler struct {
	stateService ports.StateService
	logger       *logger.Logger
}

// NewStateHandler creates a new state handler
func NewStateHandler(stateService ports.StateService, appLogger *logger.Logger) *StateHandler {
	return &StateHandler{
		stateService: stateService,
		logger:       appLogger.WithComponent("state_handler"),
	}
}

// GetState returns the full application state
func (h *StateHandler) GetState(c echo.Context) error {
	return c.JSON(http.StatusOK, h.stateService.State())
}

// AddTask handles task creation
func (h *StateHandler) AddTask(c echo.Context) error {
	var req ports.AddTaskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	task, err := h.stateService.AddTask(c.Request().Context(), req)
	if err != nil {
		if errors.Is(err, entities.ErrEmptyTaskText) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		h.logger.WithError(err).Errorw("Add task failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to add task")
	}

	return c.JSON(http.StatusCreated, task)
}

// ToggleTask flips a task's completion state
func (h *StateHandler) ToggleTask(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	task, err := h.stateService.ToggleTask(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, entities.ErrTaskNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Task not found")
		}
		h.logger.WithError(err).Errorw("Toggle task failed", "task_id", id)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to toggle task")
	}

	return c.JSON(http.StatusOK, task)
}

// DeleteTask removes a task
func (h *StateHandler) DeleteTask(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	if err := h.stateService.DeleteTask(c.Request().Context(), id); err != nil {
		if errors.Is(err, entities.ErrTaskNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Task not found")
		}
		h.logger.WithError(err).Errorw("Delete task failed", "task_id", id)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to delete task")
	}

	return c.NoContent(http.StatusNoContent)
}

// AddBook handles reading-list additions
func (h *StateHandler) AddBook(c echo.Context) error {
	var req ports.AddBookRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	book, err := h.stateService.AddBook(c.Request().Context(), req)
	if err != nil {
		if errors.Is(err, entities.ErrEmptyBookTitle) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		h.logger.WithError(err).Errorw("Add book failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to add book")
	}

	return c.JSON(http.StatusCreated, book)
}

// ToggleBook flips a book between reading and completed
func (h *StateHandler) ToggleBook(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	book, err := h.stateService.ToggleBook(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, entities.ErrBookNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Book not found")
		}
		h.logger.WithError(err).Errorw("Toggle book failed", "book_id", id)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to toggle book")
	}

	return c.JSON(http.StatusOK, book)
}

// DeleteBook removes a book
func (h *StateHandler) DeleteBook(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	if err := h.stateService.DeleteBook(c.Request().Context(), id); err != nil {
		if errors.Is(err, entities.ErrBookNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Book not found")
		}
		h.logger.WithError(err).Errorw("Delete book failed", "book_id", id)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to delete book")
	}

	return c.NoContent(http.StatusNoContent)
}

// UpdateSettings applies a partial settings change
func (h *StateHandler) UpdateSettings(c echo.Context) error {
	var req ports.UpdateSettingsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	settings, err := h.stateService.UpdateSettings(c.Request().Context(), req)
	if err != nil {
		h.logger.WithError(err).Errorw("Update settings failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to update settings")
	}

	return c.JSON(http.StatusOK, settings)
}

func parseID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "Invalid ID")
	}
	return id, nil
}
