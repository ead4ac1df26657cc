package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/gogo/actionrunner/internal/domain"
)

// GetAllowlist lists the domains a workspace has already run against.
// GET /v1/allowlist/:workspace_id
func (h *Handler) GetAllowlist(c echo.Context) error {
	ctx := c.Request().Context()
	workspaceID := c.Param("workspace_id")

	allowed, err := h.service.ListAllowedDomains(ctx, workspaceID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, domain.AllowlistResponse{
		WorkspaceID: workspaceID,
		Allowed:     allowed,
	})
}

// ResetAllowlist forgets every domain of a workspace.
// DELETE /v1/allowlist/:workspace_id
func (h *Handler) ResetAllowlist(c echo.Context) error {
	ctx := c.Request().Context()

	if err := h.service.ResetAllowlist(ctx, c.Param("workspace_id")); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.NoContent(http.StatusNoContent)
}
