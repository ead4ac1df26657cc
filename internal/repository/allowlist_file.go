package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/xiaot623/gogo/actionrunner/internal/domain"
)

type allowlistDocument struct {
	Workspaces map[string]domain.AllowlistEntry `json:"workspaces"`
}

// FileAllowlist stores every workspace's allowlist in a single JSON document,
// read and rewritten on each mutation.
type FileAllowlist struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

var _ AllowlistStore = (*FileAllowlist)(nil)

// NewFileAllowlist creates the parent directory of path if needed.
func NewFileAllowlist(path string) (*FileAllowlist, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create allowlist directory: %w", err)
	}
	return &FileAllowlist{path: path, now: time.Now}, nil
}

// List returns the known domains of a workspace.
func (a *FileAllowlist) List(ctx context.Context, workspaceID string) ([]string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	doc, err := a.load()
	if err != nil {
		return nil, err
	}
	allowed := doc.Workspaces[workspaceID].Allowed
	out := make([]string, len(allowed))
	copy(out, allowed)
	return out, nil
}

// IsAllowed reports whether domainName was recorded for the workspace.
func (a *FileAllowlist) IsAllowed(ctx context.Context, domainName, workspaceID string) (bool, error) {
	want := domain.NormalizeDomain(domainName)
	if want == "" {
		return false, nil
	}
	allowed, err := a.List(ctx, workspaceID)
	if err != nil {
		return false, err
	}
	for _, d := range allowed {
		if d == want {
			return true, nil
		}
	}
	return false, nil
}

// Record unions domains into the workspace set.
func (a *FileAllowlist) Record(ctx context.Context, domains []string, workspaceID string) ([]string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	doc, err := a.load()
	if err != nil {
		return nil, err
	}
	entry := doc.Workspaces[workspaceID]
	merged := union(entry.Allowed, normalizeDomains(domains))
	if len(merged) == len(entry.Allowed) {
		return merged, nil
	}

	doc.Workspaces[workspaceID] = domain.AllowlistEntry{
		Allowed:   merged,
		UpdatedAt: a.now().UTC(),
	}
	if err := a.save(doc); err != nil {
		return nil, err
	}
	out := make([]string, len(merged))
	copy(out, merged)
	return out, nil
}

// Reset forgets every domain of the workspace.
func (a *FileAllowlist) Reset(ctx context.Context, workspaceID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	doc, err := a.load()
	if err != nil {
		return err
	}
	if _, ok := doc.Workspaces[workspaceID]; !ok {
		return nil
	}
	delete(doc.Workspaces, workspaceID)
	return a.save(doc)
}

// Close is a no-op for the file backend.
func (a *FileAllowlist) Close() error {
	return nil
}

func (a *FileAllowlist) load() (*allowlistDocument, error) {
	doc := &allowlistDocument{}
	data, err := os.ReadFile(a.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read allowlist: %w", err)
	case len(data) > 0:
		if err := json.Unmarshal(data, doc); err != nil {
			return nil, fmt.Errorf("failed to decode allowlist: %w", err)
		}
	}
	if doc.Workspaces == nil {
		doc.Workspaces = map[string]domain.AllowlistEntry{}
	}
	return doc, nil
}

func (a *FileAllowlist) save(doc *allowlistDocument) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode allowlist: %w", err)
	}
	return writeFileAtomic(a.path, data, 0o644)
}

// union appends the members of add missing from base, keeping order.
func union(base, add []string) []string {
	seen := make(map[string]struct{}, len(base)+len(add))
	out := make([]string, 0, len(base)+len(add))
	for _, list := range [][]string{base, add} {
		for _, d := range list {
			if _, ok := seen[d]; ok {
				continue
			}
			seen[d] = struct{}{}
			out = append(out, d)
		}
	}
	return out
}
