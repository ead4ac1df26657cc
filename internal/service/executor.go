package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/xiaot623/gogo/actionrunner/internal/browser"
	"github.com/xiaot623/gogo/actionrunner/internal/domain"
	"github.com/xiaot623/gogo/actionrunner/internal/ratelimit"
)

const (
	defaultNavigationTimeout = 30 * time.Second
	defaultStepTimeout       = 15 * time.Second
)

// RunActionPlan executes plan and blocks until the run is terminal. Step and
// launch failures are reported through the returned record, not as an error.
func (s *Service) RunActionPlan(ctx context.Context, plan domain.Plan, rc domain.RunContext) (*domain.RunRecord, error) {
	run, steps, err := s.prepareRun(ctx, plan, rc)
	if err != nil {
		return nil, err
	}
	runsStartedTotal.WithLabelValues("sync").Inc()

	// A disconnecting caller must not cut a run short.
	execCtx := context.WithoutCancel(ctx)
	s.execute(execCtx, run, steps)

	final, err := s.runs.Get(execCtx, run.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load run: %w", err)
	}
	if final == nil {
		return nil, fmt.Errorf("run %s disappeared", run.ID)
	}
	return final, nil
}

// StartActionRun prepares the run and executes it in the background.
func (s *Service) StartActionRun(ctx context.Context, plan domain.Plan, rc domain.RunContext) (*domain.StartRunResponse, error) {
	run, steps, err := s.prepareRun(ctx, plan, rc)
	if err != nil {
		return nil, err
	}
	runsStartedTotal.WithLabelValues("async").Inc()

	execCtx := context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.execute(execCtx, run, steps)
	}()

	return &domain.StartRunResponse{
		RunID:  run.ID,
		Status: domain.RunStatusRunning,
	}, nil
}

// prepareRun performs every check that happens before a browser exists, then
// creates the record, teaches the allowlist and marks the run running.
func (s *Service) prepareRun(ctx context.Context, plan domain.Plan, rc domain.RunContext) (*domain.RunRecord, []domain.Action, error) {
	workspaceID := domain.WorkspaceOrDefault(rc.WorkspaceID)

	if err := s.limiter.Allow(workspaceID); err != nil {
		var limited *ratelimit.Error
		if errors.As(err, &limited) {
			runsRejectedTotal.WithLabelValues("rate_limited").Inc()
		}
		return nil, nil, err
	}

	steps := plan.EffectiveActions()
	if len(steps) == 0 {
		runsRejectedTotal.WithLabelValues("empty").Inc()
		return nil, nil, ErrEmptyPlan
	}
	maxActions := s.config.EffectiveMaxActions(plan.Safety.MaxActions)
	if len(steps) > maxActions {
		runsRejectedTotal.WithLabelValues("too_large").Inc()
		return nil, nil, fmt.Errorf("%w: %d steps, max %d", ErrPlanTooLarge, len(steps), maxActions)
	}

	run, err := s.runs.Create(ctx, domain.NewRun{
		TaskName:    plan.TaskName,
		StartURL:    plan.StartURL,
		Actions:     plan.Actions,
		Safety:      plan.Safety,
		WorkspaceID: workspaceID,
		CreatedBy:   rc.UserID,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create run: %w", err)
	}

	if _, err := s.allowlist.Record(ctx, plan.Domains(), workspaceID); err != nil {
		slog.Error("failed to record allowlist domains", "run_id", run.ID, "workspace_id", workspaceID, "error", err)
		warning := "allowlist not updated: " + err.Error()
		if _, werr := s.runs.Update(ctx, run.ID, func(r *domain.RunRecord) error {
			r.Warnings = append(r.Warnings, warning)
			return nil
		}); werr != nil {
			slog.Error("failed to record run warning", "run_id", run.ID, "error", werr)
		}
	}

	now := time.Now().UTC()
	if updated, err := s.runs.SetStatus(ctx, run.ID, domain.RunStatusRunning, domain.StatusUpdate{StartedAt: &now}); err != nil {
		slog.Error("failed to mark run running", "run_id", run.ID, "error", err)
	} else if updated != nil {
		run = updated
	}

	slog.Info("action run started", "run_id", run.ID, "workspace_id", workspaceID, "steps", len(steps))
	return run, steps, nil
}

// execute drives one browser session through steps. The run always ends in
// a terminal status, including when something panics.
func (s *Service) execute(ctx context.Context, run *domain.RunRecord, steps []domain.Action) {
	ctx, span := startRunSpan(ctx, run, len(steps))
	started := time.Now()
	status := domain.RunStatusError
	errMsg := ""

	defer func() {
		if r := recover(); r != nil {
			errMsg = fmt.Sprintf("panic: %v", r)
			status = domain.RunStatusError
			slog.Error("action run panicked", "run_id", run.ID, "panic", r)
			s.finish(ctx, run.ID, status, errMsg)
		}
		runsFinishedTotal.WithLabelValues(string(status)).Inc()
		runDuration.WithLabelValues(string(status)).Observe(time.Since(started).Seconds())
		endRunSpan(span, status, errMsg)
	}()

	session, err := s.launcher.Launch(ctx)
	if err != nil {
		errMsg = err.Error()
		slog.Error("failed to launch browser", "run_id", run.ID, "error", err)
		s.finish(ctx, run.ID, status, errMsg)
		return
	}
	defer func() {
		if err := session.Close(); err != nil {
			slog.Warn("failed to close browser", "run_id", run.ID, "error", err)
		}
	}()

	for i, action := range steps {
		result := s.executeStep(ctx, session, run.ID, i+1, action)
		if _, err := s.runs.AppendTimeline(ctx, run.ID, result); err != nil {
			slog.Error("failed to append timeline", "run_id", run.ID, "step", result.Step, "error", err)
		}
		if result.Status == domain.StepStatusError {
			errMsg = result.Error
			slog.Warn("action run step failed", "run_id", run.ID, "step", result.Step, "type", action.Type, "error", errMsg)
			s.finish(ctx, run.ID, status, errMsg)
			return
		}
	}

	status = domain.RunStatusCompleted
	s.finish(ctx, run.ID, status, "")
	slog.Info("action run completed", "run_id", run.ID, "duration", time.Since(started))
}

func (s *Service) finish(ctx context.Context, runID string, status domain.RunStatus, errMsg string) {
	now := time.Now().UTC()
	if _, err := s.runs.SetStatus(ctx, runID, status, domain.StatusUpdate{Error: errMsg, FinishedAt: &now}); err != nil {
		slog.Error("failed to finish run", "run_id", runID, "status", status, "error", err)
	}
}

func (s *Service) executeStep(ctx context.Context, session browser.Session, runID string, step int, action domain.Action) domain.StepResult {
	result := domain.StepResult{
		Step:      step,
		Type:      action.Type,
		Status:    domain.StepStatusOK,
		StartedAt: time.Now().UTC(),
		Action:    action,
	}

	stepCtx, span := startStepSpan(ctx, step, action)
	err := s.performStep(stepCtx, session, runID, step, action)
	endStepSpan(span, err)

	result.FinishedAt = time.Now().UTC()
	if err != nil {
		result.Status = domain.StepStatusError
		result.Error = err.Error()
	}
	stepsTotal.WithLabelValues(string(action.Type), string(result.Status)).Inc()
	stepDuration.WithLabelValues(string(action.Type)).Observe(result.FinishedAt.Sub(result.StartedAt).Seconds())
	return result
}

// performStep turns a panic in the browser layer into an error of this step.
func (s *Service) performStep(ctx context.Context, session browser.Session, runID string, step int, action domain.Action) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("action step panicked", "run_id", runID, "step", step, "type", action.Type, "panic", r)
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return s.performAction(ctx, session, runID, step, action)
}

func (s *Service) performAction(ctx context.Context, session browser.Session, runID string, step int, action domain.Action) error {
	if err := validateAction(action); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.stepTimeout(action))
	defer cancel()

	switch action.Type {
	case domain.ActionGoto:
		return session.Goto(ctx, action.URL)
	case domain.ActionClick:
		return session.Click(ctx, action.Selector)
	case domain.ActionTypeText:
		return session.Fill(ctx, action.Selector, action.Text)
	case domain.ActionPress:
		return session.Press(ctx, action.Key)
	case domain.ActionWaitFor:
		return session.WaitFor(ctx, action.Selector)
	case domain.ActionExtractText:
		return s.extractText(ctx, session, runID, step, action)
	case domain.ActionScreenshot:
		return s.screenshot(ctx, session, runID, step, action)
	default:
		return fmt.Errorf("unknown_action_type_%s", action.Type)
	}
}

func (s *Service) extractText(ctx context.Context, session browser.Session, runID string, step int, action domain.Action) error {
	text, err := session.InnerText(ctx, action.Selector)
	if err != nil {
		return err
	}
	html, err := session.Content(ctx)
	if err != nil {
		return err
	}

	// The entry is only recorded once the snapshot is stored.
	name := action.Name
	if name == "" {
		name = "extract"
	}
	if err := s.storeArtifact(ctx, runID, step, name, domain.ArtifactHTML, []byte(html)); err != nil {
		return err
	}
	if _, err := s.runs.AppendExtracted(ctx, runID, domain.ExtractedEntry{
		Selector: action.Selector,
		Text:     text,
		Name:     action.Name,
		Step:     step,
		At:       time.Now().UTC(),
	}); err != nil {
		return fmt.Errorf("failed to store extracted text: %w", err)
	}
	return nil
}

func (s *Service) screenshot(ctx context.Context, session browser.Session, runID string, step int, action domain.Action) error {
	png, err := session.Screenshot(ctx)
	if err != nil {
		return err
	}
	name := action.Name
	if name == "" {
		name = "screenshot"
	}
	return s.storeArtifact(ctx, runID, step, name, domain.ArtifactScreenshot, png)
}

func (s *Service) storeArtifact(ctx context.Context, runID string, step int, name string, kind domain.ArtifactType, data []byte) error {
	ref, err := s.runs.WriteArtifact(ctx, runID, step, name, kind, data)
	if err != nil {
		return err
	}
	if _, err := s.runs.AppendArtifact(ctx, runID, ref); err != nil {
		return fmt.Errorf("failed to reference artifact: %w", err)
	}
	return nil
}

// stepTimeout returns the action's own timeout, or the default for its type.
func (s *Service) stepTimeout(action domain.Action) time.Duration {
	if action.TimeoutMs > 0 {
		return time.Duration(action.TimeoutMs) * time.Millisecond
	}
	if action.Type == domain.ActionGoto {
		if s.config.NavigationTimeout > 0 {
			return s.config.NavigationTimeout
		}
		return defaultNavigationTimeout
	}
	if s.config.StepTimeout > 0 {
		return s.config.StepTimeout
	}
	return defaultStepTimeout
}

func validateAction(action domain.Action) error {
	missing := ""
	switch action.Type {
	case domain.ActionGoto:
		if action.URL == "" {
			missing = "url"
		}
	case domain.ActionClick, domain.ActionTypeText, domain.ActionWaitFor, domain.ActionExtractText:
		if action.Selector == "" {
			missing = "selector"
		}
	case domain.ActionPress:
		if action.Key == "" {
			missing = "key"
		}
	}
	if missing != "" {
		return fmt.Errorf("%s requires %s", action.Type, missing)
	}
	return nil
}
