package v1

import (
	"errors"
	"net/http"
	"os"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/gogo/actionrunner/internal/domain"
	"github.com/xiaot623/gogo/actionrunner/internal/repository"
)

// AssessPlan returns the risk assessment of a plan.
// POST /v1/action-runs/assess
func (h *Handler) AssessPlan(c echo.Context) error {
	ctx := c.Request().Context()

	var req domain.AssessRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	assessment, err := h.service.Assess(ctx, req.Plan, req.WorkspaceID)
	if err != nil {
		return h.serviceError(c, err)
	}
	return c.JSON(http.StatusOK, assessment)
}

// CreateRun executes a plan. Plans that need approval are refused with 409
// until the caller passes approved=true.
// POST /v1/action-runs
func (h *Handler) CreateRun(c echo.Context) error {
	ctx := c.Request().Context()

	var req domain.RunRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	assessment, err := h.service.Assess(ctx, req.Plan, req.WorkspaceID)
	if err != nil {
		return h.serviceError(c, err)
	}
	if assessment.RequiresApproval && !req.Approved {
		return c.JSON(http.StatusConflict, map[string]interface{}{
			"error":      "approval_required",
			"assessment": assessment,
		})
	}

	rc := domain.RunContext{WorkspaceID: req.WorkspaceID, UserID: req.UserID}
	if req.Async {
		resp, err := h.service.StartActionRun(ctx, req.Plan, rc)
		if err != nil {
			return h.serviceError(c, err)
		}
		return c.JSON(http.StatusAccepted, resp)
	}

	run, err := h.service.RunActionPlan(ctx, req.Plan, rc)
	if err != nil {
		return h.serviceError(c, err)
	}
	return c.JSON(http.StatusOK, run)
}

// GetRun returns a run record.
// GET /v1/action-runs/:run_id
func (h *Handler) GetRun(c echo.Context) error {
	ctx := c.Request().Context()

	run, err := h.service.GetActionRun(ctx, c.Param("run_id"))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if run == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "run not found"})
	}
	return c.JSON(http.StatusOK, run)
}

// ListRuns lists recent runs, newest first.
// GET /v1/action-runs?limit=20
func (h *Handler) ListRuns(c echo.Context) error {
	ctx := c.Request().Context()

	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "limit must be a non-negative integer"})
		}
		limit = v
	}

	runs, err := h.service.ListRuns(ctx, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, domain.ListRunsResponse{Runs: runs})
}

// GetArtifact serves a screenshot or HTML snapshot of a run.
// GET /v1/action-runs/:run_id/artifacts/:file
func (h *Handler) GetArtifact(c echo.Context) error {
	ctx := c.Request().Context()

	path, err := h.service.ArtifactPath(ctx, c.Param("run_id"), c.Param("file"))
	if errors.Is(err, repository.ErrInvalidArtifact) {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid artifact name"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if path == "" {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "run not found"})
	}
	if _, err := os.Stat(path); err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "artifact not found"})
	}
	return c.File(path)
}
