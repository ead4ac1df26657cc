// Package v1 provides the public HTTP API of the action runner.
package v1

import (
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/gogo/actionrunner/internal/ratelimit"
	"github.com/xiaot623/gogo/actionrunner/internal/service"
	"github.com/xiaot623/gogo/actionrunner/internal/version"
)

// Handler handles HTTP requests.
type Handler struct {
	service *service.Service

	// streamPoll is how often the SSE stream re-reads a run.
	streamPoll time.Duration
	// streamMax bounds how long a single stream stays open.
	streamMax time.Duration
}

// NewHandler creates a new handler.
func NewHandler(service *service.Service) *Handler {
	return &Handler{
		service:    service,
		streamPoll: 250 * time.Millisecond,
		streamMax:  10 * time.Minute,
	}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	// Planner
	e.POST("/v1/plans", h.CreatePlan)

	// Runs
	e.POST("/v1/action-runs/assess", h.AssessPlan)
	e.POST("/v1/action-runs", h.CreateRun)
	e.GET("/v1/action-runs", h.ListRuns)
	e.GET("/v1/action-runs/:run_id", h.GetRun)
	e.GET("/v1/action-runs/:run_id/stream", h.StreamRun)
	e.GET("/v1/action-runs/:run_id/artifacts/:file", h.GetArtifact)

	// Allowlist
	e.GET("/v1/allowlist/:workspace_id", h.GetAllowlist)
	e.DELETE("/v1/allowlist/:workspace_id", h.ResetAllowlist)

	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": version.Version,
	})
}

// serviceError maps errors returned before a run exists to HTTP responses.
func (h *Handler) serviceError(c echo.Context, err error) error {
	var limited *ratelimit.Error
	switch {
	case errors.As(err, &limited):
		retry := limited.RetryAfter(time.Now())
		c.Response().Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retry.Seconds()))))
		return c.JSON(http.StatusTooManyRequests, map[string]interface{}{
			"error":        "rate_limited",
			"workspace_id": limited.WorkspaceID,
			"retry_at":     limited.RetryAt.UnixMilli(),
		})
	case service.IsValidation(err):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		slog.Error("request failed", "path", c.Path(), "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}
