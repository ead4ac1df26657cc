package helpers

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/xiaot623/gogo/actionrunner/internal/repository"
)

func NewTestSQLiteAllowlist(t *testing.T) *repository.SQLiteAllowlist {
	t.Helper()

	s, err := repository.NewSQLiteAllowlist(":memory:")
	if err != nil {
		t.Fatalf("failed to create sqlite allowlist: %v", err)
	}

	t.Cleanup(func() {
		_ = s.Close()
	})

	return s
}

func NewTestRunStore(t *testing.T, dataDir string) *repository.FileRunStore {
	t.Helper()

	s, err := repository.NewFileRunStore(filepath.Join(dataDir, "action_runs"))
	if err != nil {
		t.Fatalf("failed to create run store: %v", err)
	}
	return s
}

// FailingAllowlist wraps an allowlist whose Record always fails with RecordErr.
type FailingAllowlist struct {
	repository.AllowlistStore
	RecordErr error
}

func (f *FailingAllowlist) Record(ctx context.Context, domains []string, workspaceID string) ([]string, error) {
	return nil, f.RecordErr
}
