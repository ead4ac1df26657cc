package service

import (
	"context"
	"fmt"

	"github.com/xiaot623/gogo/actionrunner/internal/domain"
)

const (
	defaultListLimit = 20
	maxListLimit     = 200
)

// GetActionRun returns the run record, or nil if it does not exist.
func (s *Service) GetActionRun(ctx context.Context, runID string) (*domain.RunRecord, error) {
	run, err := s.runs.Get(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Service) ListRuns(ctx context.Context, limit int) ([]domain.RunRecord, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	runs, err := s.runs.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// ArtifactPath resolves an artifact of an existing run to a file path.
func (s *Service) ArtifactPath(ctx context.Context, runID, file string) (string, error) {
	run, err := s.GetActionRun(ctx, runID)
	if err != nil {
		return "", err
	}
	if run == nil {
		return "", nil
	}
	return s.runs.ArtifactPath(runID, file)
}

// ListAllowedDomains returns the hostnames a workspace has already visited.
func (s *Service) ListAllowedDomains(ctx context.Context, workspaceID string) ([]string, error) {
	return s.allowlist.List(ctx, domain.WorkspaceOrDefault(workspaceID))
}

// ResetAllowlist forgets every hostname of a workspace, so the next run on
// any domain needs approval again.
func (s *Service) ResetAllowlist(ctx context.Context, workspaceID string) error {
	return s.allowlist.Reset(ctx, domain.WorkspaceOrDefault(workspaceID))
}
