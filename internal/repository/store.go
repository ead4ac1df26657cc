// Package repository persists run records and per-workspace domain allowlists.
package repository

import (
	"context"
	"errors"

	"github.com/xiaot623/gogo/actionrunner/internal/domain"
)

// ErrTerminalStatus is returned when a status change is attempted on a run
// that already completed or failed.
var ErrTerminalStatus = errors.New("run is already in a terminal status")

// ErrInvalidArtifact is returned for artifact names that would escape the run directory.
var ErrInvalidArtifact = errors.New("invalid artifact file")

// RunStore defines durable storage of run records and their artifacts.
// Get and Update return a nil record (and nil error) for unknown runs.
type RunStore interface {
	Create(ctx context.Context, run domain.NewRun) (*domain.RunRecord, error)
	Get(ctx context.Context, runID string) (*domain.RunRecord, error)
	Update(ctx context.Context, runID string, mutate func(*domain.RunRecord) error) (*domain.RunRecord, error)
	SetStatus(ctx context.Context, runID string, status domain.RunStatus, extra domain.StatusUpdate) (*domain.RunRecord, error)
	AppendTimeline(ctx context.Context, runID string, step domain.StepResult) (*domain.RunRecord, error)
	AppendExtracted(ctx context.Context, runID string, entry domain.ExtractedEntry) (*domain.RunRecord, error)
	AppendArtifact(ctx context.Context, runID string, ref domain.ArtifactRef) (*domain.RunRecord, error)
	WriteArtifact(ctx context.Context, runID string, step int, name string, kind domain.ArtifactType, data []byte) (domain.ArtifactRef, error)
	ArtifactPath(runID, file string) (string, error)
	List(ctx context.Context, limit int) ([]domain.RunRecord, error)
}

// AllowlistStore defines the per-workspace set of known hostnames.
type AllowlistStore interface {
	List(ctx context.Context, workspaceID string) ([]string, error)
	IsAllowed(ctx context.Context, domainName, workspaceID string) (bool, error)
	// Record unions domains into the workspace set and returns the result.
	Record(ctx context.Context, domains []string, workspaceID string) ([]string, error)
	Reset(ctx context.Context, workspaceID string) error
	Close() error
}

func normalizeDomains(domains []string) []string {
	out := make([]string, 0, len(domains))
	for _, d := range domains {
		if n := domain.NormalizeDomain(d); n != "" {
			out = append(out, n)
		}
	}
	return out
}
