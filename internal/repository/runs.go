package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/xiaot623/gogo/actionrunner/internal/domain"
)

const runFileName = "run.json"

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// FileRunStore keeps one directory per run holding run.json and its artifacts.
// Every mutation rewrites the whole record. Writers are serialized within the
// process; a run is expected to have exactly one executor writing to it.
type FileRunStore struct {
	dir string
	mu  sync.Mutex
	now func() time.Time
}

// NewFileRunStore creates the runs directory if needed.
func NewFileRunStore(dir string) (*FileRunStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create runs directory: %w", err)
	}
	return &FileRunStore{dir: dir, now: time.Now}, nil
}

var _ RunStore = (*FileRunStore)(nil)

// Dir returns the root directory of the store.
func (s *FileRunStore) Dir() string {
	return s.dir
}

// Create allocates a run id, creates its directory and writes the pending record.
func (s *FileRunStore) Create(ctx context.Context, run domain.NewRun) (*domain.RunRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.New().String()
	runDir := filepath.Join(s.dir, id)
	if err := os.Mkdir(runDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create run directory: %w", err)
	}

	actions := run.Actions
	if actions == nil {
		actions = []domain.Action{}
	}
	now := s.now().UTC()
	rec := &domain.RunRecord{
		ID:          id,
		Status:      domain.RunStatusPending,
		TaskName:    run.TaskName,
		StartURL:    run.StartURL,
		Actions:     actions,
		Safety:      run.Safety,
		WorkspaceID: run.WorkspaceID,
		CreatedBy:   run.CreatedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
		Timeline:    []domain.StepResult{},
		Extracted:   []domain.ExtractedEntry{},
		Artifacts:   []domain.ArtifactRef{},
	}
	if err := s.write(rec); err != nil {
		_ = os.RemoveAll(runDir)
		return nil, err
	}
	return rec, nil
}

// Get returns the run record, or nil if it does not exist.
func (s *FileRunStore) Get(ctx context.Context, runID string) (*domain.RunRecord, error) {
	if !validRunID(runID) {
		return nil, nil
	}
	return s.read(runID)
}

// Update reads the record, applies mutate and rewrites it. A mutate error
// aborts the write and is returned as is.
func (s *FileRunStore) Update(ctx context.Context, runID string, mutate func(*domain.RunRecord) error) (*domain.RunRecord, error) {
	if !validRunID(runID) {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.read(runID)
	if err != nil || rec == nil {
		return nil, err
	}
	if err := mutate(rec); err != nil {
		return nil, err
	}
	rec.UpdatedAt = s.now().UTC()
	if err := s.write(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// SetStatus moves the run to status. Terminal runs never change again.
func (s *FileRunStore) SetStatus(ctx context.Context, runID string, status domain.RunStatus, extra domain.StatusUpdate) (*domain.RunRecord, error) {
	return s.Update(ctx, runID, func(rec *domain.RunRecord) error {
		if rec.Status.IsTerminal() {
			return fmt.Errorf("%w: %s is %s", ErrTerminalStatus, rec.ID, rec.Status)
		}
		rec.Status = status
		if extra.Error != "" {
			rec.Error = extra.Error
		}
		if extra.StartedAt != nil {
			rec.StartedAt = extra.StartedAt
		}
		if extra.FinishedAt != nil {
			rec.FinishedAt = extra.FinishedAt
		}
		return nil
	})
}

// AppendTimeline adds a step result at the end of the timeline.
func (s *FileRunStore) AppendTimeline(ctx context.Context, runID string, step domain.StepResult) (*domain.RunRecord, error) {
	return s.Update(ctx, runID, func(rec *domain.RunRecord) error {
		rec.Timeline = append(rec.Timeline, step)
		return nil
	})
}

// AppendExtracted adds an extracted text entry.
func (s *FileRunStore) AppendExtracted(ctx context.Context, runID string, entry domain.ExtractedEntry) (*domain.RunRecord, error) {
	return s.Update(ctx, runID, func(rec *domain.RunRecord) error {
		rec.Extracted = append(rec.Extracted, entry)
		return nil
	})
}

// AppendArtifact references an artifact file from the record.
func (s *FileRunStore) AppendArtifact(ctx context.Context, runID string, ref domain.ArtifactRef) (*domain.RunRecord, error) {
	return s.Update(ctx, runID, func(rec *domain.RunRecord) error {
		rec.Artifacts = append(rec.Artifacts, ref)
		return nil
	})
}

// WriteArtifact stores data as step_<n>_<name>.<ext> in the run directory.
// The record itself is not touched; callers follow up with AppendArtifact.
func (s *FileRunStore) WriteArtifact(ctx context.Context, runID string, step int, name string, kind domain.ArtifactType, data []byte) (domain.ArtifactRef, error) {
	if !validRunID(runID) {
		return domain.ArtifactRef{}, fmt.Errorf("run %s not found", runID)
	}
	runDir := filepath.Join(s.dir, runID)
	if _, err := os.Stat(runDir); err != nil {
		return domain.ArtifactRef{}, fmt.Errorf("run %s not found: %w", runID, err)
	}

	ext := "png"
	if kind == domain.ArtifactHTML {
		ext = "html"
	}
	file := fmt.Sprintf("step_%d_%s.%s", step, sanitizeName(name, string(kind)), ext)
	if err := writeFileAtomic(filepath.Join(runDir, file), data, 0o644); err != nil {
		return domain.ArtifactRef{}, fmt.Errorf("failed to write artifact: %w", err)
	}
	return domain.ArtifactRef{
		Type:      kind,
		File:      file,
		Step:      step,
		CreatedAt: s.now().UTC(),
	}, nil
}

// ArtifactPath resolves an artifact file name inside the run's directory.
func (s *FileRunStore) ArtifactPath(runID, file string) (string, error) {
	if !validRunID(runID) {
		return "", ErrInvalidArtifact
	}
	if file == "" || file != filepath.Base(file) || !strings.HasPrefix(file, "step_") {
		return "", ErrInvalidArtifact
	}
	return filepath.Join(s.dir, runID, file), nil
}

// List returns up to limit records, newest first. limit <= 0 returns all.
// Scans every run directory, so cost grows with the number of runs.
func (s *FileRunStore) List(ctx context.Context, limit int) ([]domain.RunRecord, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []domain.RunRecord{}, nil
		}
		return nil, fmt.Errorf("failed to read runs directory: %w", err)
	}

	runs := make([]domain.RunRecord, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !entry.IsDir() || !validRunID(entry.Name()) {
			continue
		}
		rec, err := s.read(entry.Name())
		if err != nil {
			slog.Warn("skipping unreadable run record", "run_id", entry.Name(), "error", err)
			continue
		}
		if rec != nil {
			runs = append(runs, *rec)
		}
	}

	slices.SortStableFunc(runs, func(a, b domain.RunRecord) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

func (s *FileRunStore) read(runID string) (*domain.RunRecord, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, runID, runFileName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read run %s: %w", runID, err)
	}
	var rec domain.RunRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode run %s: %w", runID, err)
	}
	return &rec, nil
}

func (s *FileRunStore) write(rec *domain.RunRecord) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode run %s: %w", rec.ID, err)
	}
	if err := writeFileAtomic(filepath.Join(s.dir, rec.ID, runFileName), data, 0o644); err != nil {
		return fmt.Errorf("failed to write run %s: %w", rec.ID, err)
	}
	return nil
}

func validRunID(runID string) bool {
	_, err := uuid.Parse(runID)
	return err == nil && !strings.ContainsAny(runID, `/\{}:`)
}

func sanitizeName(name, fallback string) string {
	name = strings.Trim(unsafeNameChars.ReplaceAllString(name, "_"), "_")
	if name == "" {
		return fallback
	}
	if len(name) > 64 {
		name = name[:64]
	}
	return name
}
