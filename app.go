package main

import (
	"context"
	"fmt"

	"github.com/xiaot623/gogo/actionrunner/internal/adapter/llm"
	"github.com/xiaot623/gogo/actionrunner/internal/browser"
	"github.com/xiaot623/gogo/actionrunner/internal/config"
	"github.com/xiaot623/gogo/actionrunner/internal/ratelimit"
	"github.com/xiaot623/gogo/actionrunner/internal/repository"
	"github.com/xiaot623/gogo/actionrunner/internal/service"
	"github.com/xiaot623/gogo/actionrunner/policy"
)

// app holds the wired service and the resources to release on exit.
type app struct {
	service   *service.Service
	allowlist repository.AllowlistStore
}

func (a *app) Close() error {
	a.service.Wait()
	return a.allowlist.Close()
}

// newApp wires storage, browser, rate limiter, planner and policy into a service.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	runs, err := repository.NewFileRunStore(cfg.RunsDir())
	if err != nil {
		return nil, err
	}

	allowlist, err := openAllowlist(cfg)
	if err != nil {
		return nil, err
	}

	launcher, err := browser.NewLauncher(cfg)
	if err != nil {
		allowlist.Close()
		return nil, err
	}

	policyEngine, err := policy.NewEngineFromFile(ctx, cfg.PolicyFile)
	if err != nil {
		allowlist.Close()
		return nil, fmt.Errorf("failed to initialize policy engine: %w", err)
	}

	llmClient := llm.NewLLMClient(cfg.LiteLLMURL, cfg.LiteLLMAPIKey, cfg.LLMTimeout)
	limiter := ratelimit.New(cfg.MinRunInterval)

	svc := service.New(runs, allowlist, launcher, limiter, llmClient, cfg, policyEngine)
	return &app{service: svc, allowlist: allowlist}, nil
}

// openAllowlist selects the allowlist backend configured by ACTION_RUNNER_ALLOWLIST_BACKEND.
func openAllowlist(cfg *config.Config) (repository.AllowlistStore, error) {
	switch cfg.AllowlistBackend {
	case "", config.AllowlistJSON:
		return repository.NewFileAllowlist(cfg.AllowlistPath())
	case config.AllowlistSQLite:
		return repository.NewSQLiteAllowlist(cfg.AllowlistDSN)
	default:
		return nil, fmt.Errorf("unknown allowlist backend %q", cfg.AllowlistBackend)
	}
}
