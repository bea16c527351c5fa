package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/glassfocus/core/internal/infrastructure/logger"
	"github.com/glassfocus/core/internal/ports"
)

// AnalyticsHandler handles reporting requests
type AnalyticsHandler struct {
	analyticsService ports.AnalyticsService
	logger           *logger.Logger
}

// NewAnalyticsHandler creates a new analytics handler
func NewAnalyticsHandler(analyticsService ports.AnalyticsService, appLogger *logger.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		analyticsService: analyticsService,
		logger:           appLogger.WithComponent("analytics_handler"),
	}
}

// GetReport returns the full analytics summary
func (h *AnalyticsHandler) GetReport(c echo.Context) error {
	return c.JSON(http.StatusOK, h.analyticsService.Report(c.Request().Context()))
}
