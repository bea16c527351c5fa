package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/glassfocus/core/internal/infrastructure/logger"
	"github.com/glassfocus/core/internal/ports"
)

// ShellHandler serves the application shell through the cache manager
type ShellHandler struct {
	shellService ports.ShellService
	logger       *logger.Logger
}

// NewShellHandler creates a new shell handler
func NewShellHandler(shellService ports.ShellService, appLogger *logger.Logger) *ShellHandler {
	return &ShellHandler{
		shellService: shellService,
		logger:       appLogger.WithComponent("shell_handler"),
	}
}

// Serve answers one shell request through the cache-first pipeline
func (h *ShellHandler) Serve(c echo.Context) error {
	req := c.Request()

	res, err := h.shellService.Fetch(req.Context(), req)
	if err != nil {
		h.logger.WithError(err).Warnw("Shell fetch failed", "path", req.URL.Path)
		return echo.NewHTTPError(http.StatusBadGateway, "Shell unavailable")
	}

	header := c.Response().Header()
	for key, values := range res.Header {
		for _, v := range values {
			header.Add(key, v)
		}
	}
	return c.Blob(res.Status, res.Header.Get("Content-Type"), res.Body)
}

// PostMessage delivers a control message to the cache manager
func (h *ShellHandler) PostMessage(c echo.Context) error {
	var msg ports.ShellMessage
	if err := c.Bind(&msg); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(&msg); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.shellService.PostMessage(msg); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusAccepted, MessageResponse{Message: "Message delivered"})
}
