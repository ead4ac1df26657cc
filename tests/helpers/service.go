package helpers

import (
	"context"
	"testing"

	"github.com/xiaot623/gogo/actionrunner/internal/adapter/llm"
	"github.com/xiaot623/gogo/actionrunner/internal/config"
	"github.com/xiaot623/gogo/actionrunner/internal/ratelimit"
	"github.com/xiaot623/gogo/actionrunner/internal/repository"
	"github.com/xiaot623/gogo/actionrunner/internal/service"
	"github.com/xiaot623/gogo/actionrunner/policy"
)

// TestEnv is a service wired to temp-dir storage and a fake browser.
type TestEnv struct {
	Service   *service.Service
	Config    *config.Config
	Runs      *repository.FileRunStore
	Allowlist repository.AllowlistStore
	Launcher  *FakeLauncher
}

// NewTestService builds a service over t.TempDir(). Rate limiting is off
// unless a configure func sets MinRunInterval.
func NewTestService(t *testing.T, configure ...func(*config.Config)) *TestEnv {
	t.Helper()
	return NewTestServiceWithAllowlist(t, nil, configure...)
}

// NewTestServiceWithAllowlist is NewTestService over the given allowlist. A nil
// allowlist selects the JSON file store.
func NewTestServiceWithAllowlist(t *testing.T, allowlist repository.AllowlistStore, configure ...func(*config.Config)) *TestEnv {
	t.Helper()

	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	cfg.MinRunInterval = 0
	for _, fn := range configure {
		fn(cfg)
	}

	runs := NewTestRunStore(t, cfg.DataDir)
	if allowlist == nil {
		fileAllowlist, err := repository.NewFileAllowlist(cfg.AllowlistPath())
		if err != nil {
			t.Fatalf("failed to create allowlist: %v", err)
		}
		allowlist = fileAllowlist
	}
	engine, err := policy.NewEngine(context.Background(), policy.DefaultPolicy)
	if err != nil {
		t.Fatalf("failed to create policy engine: %v", err)
	}
	launcher := NewFakeLauncher()

	svc := service.New(runs, allowlist, launcher, ratelimit.New(cfg.MinRunInterval), llm.NewMockClient(), cfg, engine)
	t.Cleanup(svc.Wait)

	return &TestEnv{
		Service:   svc,
		Config:    cfg,
		Runs:      runs,
		Allowlist: allowlist,
		Launcher:  launcher,
	}
}
