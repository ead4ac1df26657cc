package v1

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// StreamRun streams a run's timeline via SSE.
// GET /v1/action-runs/:run_id/stream
//
// Every timeline entry is sent once as a "step" event, in order. When the run
// reaches a terminal status the full record is sent as a "run" event and the
// stream ends.
func (h *Handler) StreamRun(c echo.Context) error {
	ctx := c.Request().Context()
	runID := c.Param("run_id")

	run, err := h.service.GetActionRun(ctx, runID)
	if err != nil {
		slog.Error("failed to get run", "run_id", runID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to get run"})
	}
	if run == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "run not found"})
	}

	// Set SSE headers
	c.Response().Header().Set("Content-Type", "text/event-stream")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set("Connection", "keep-alive")
	c.Response().Header().Set("X-Accel-Buffering", "no")
	c.Response().WriteHeader(http.StatusOK)
	c.Response().Flush()

	sent := 0
	deadline := time.Now().Add(h.streamMax)
	ticker := time.NewTicker(h.streamPoll)
	defer ticker.Stop()

	for {
		for ; sent < len(run.Timeline); sent++ {
			if err := writeSSE(c, "step", run.Timeline[sent]); err != nil {
				return err
			}
		}
		if run.Status.IsTerminal() {
			return writeSSE(c, "run", run)
		}

		select {
		case <-ctx.Done():
			// Client disconnected
			return nil
		case <-ticker.C:
		}

		if time.Now().After(deadline) {
			slog.Info("run stream exceeded max duration", "run_id", runID)
			return nil
		}

		current, err := h.service.GetActionRun(ctx, runID)
		if err != nil {
			slog.Error("failed to poll run", "run_id", runID, "error", err)
			continue
		}
		if current != nil {
			run = current
		}
	}
}

// writeSSE sends a single event in SSE format and flushes it.
func writeSSE(c echo.Context, event string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if _, err := fmt.Fprintf(c.Response(), "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	c.Response().Flush()
	return nil
}
