package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/gogo/actionrunner/internal/domain"
)

// CreatePlan turns a free-text instruction into a plan.
// POST /v1/plans
func (h *Handler) CreatePlan(c echo.Context) error {
	ctx := c.Request().Context()

	var req domain.PlanRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	plan, err := h.service.PlanInstruction(ctx, req.Instruction, req.StartURL)
	if err != nil {
		return h.serviceError(c, err)
	}
	return c.JSON(http.StatusOK, plan)
}
