// Package service implements plan assessment, execution and run queries.
package service

import (
	"sync"

	"github.com/xiaot623/gogo/actionrunner/internal/adapter/llm"
	"github.com/xiaot623/gogo/actionrunner/internal/browser"
	"github.com/xiaot623/gogo/actionrunner/internal/config"
	"github.com/xiaot623/gogo/actionrunner/internal/ratelimit"
	"github.com/xiaot623/gogo/actionrunner/internal/repository"
	"github.com/xiaot623/gogo/actionrunner/policy"
)

type Service struct {
	runs         repository.RunStore
	allowlist    repository.AllowlistStore
	launcher     browser.Launcher
	limiter      *ratelimit.Limiter
	llmClient    llm.LLMClient
	config       *config.Config
	policyEngine *policy.Engine

	// background runs started by StartActionRun
	wg sync.WaitGroup
}

func New(runs repository.RunStore, allowlist repository.AllowlistStore, launcher browser.Launcher, limiter *ratelimit.Limiter, llmClient llm.LLMClient, cfg *config.Config, policyEngine *policy.Engine) *Service {
	return &Service{
		runs:         runs,
		allowlist:    allowlist,
		launcher:     launcher,
		limiter:      limiter,
		llmClient:    llmClient,
		config:       cfg,
		policyEngine: policyEngine,
	}
}

// Wait blocks until every run started with StartActionRun has finished.
func (s *Service) Wait() {
	s.wg.Wait()
}
