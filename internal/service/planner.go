package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/xiaot623/gogo/actionrunner/internal/adapter/llm"
	"github.com/xiaot623/gogo/actionrunner/internal/domain"
)

const plannerSystemPrompt = `You turn a browsing instruction into a JSON plan for a headless browser.
Reply with a single JSON object and nothing else:
{"taskName": string, "startUrl": string, "actions": [Action], "safety": {"maxActions": int}}
Action is one of:
{"type":"goto","url":string}
{"type":"click","selector":string}
{"type":"type","selector":string,"text":string}
{"type":"press","key":string}
{"type":"waitFor","selector":string}
{"type":"extractText","selector":string,"name":string}
{"type":"screenshot","name":string}
Use CSS selectors. Keep plans short.`

// PlanInstruction asks the LLM for a plan. When the LLM is unreachable or
// answers with something that is not a usable plan, the fallback plan is
// returned instead of an error.
func (s *Service) PlanInstruction(ctx context.Context, instruction, startURL string) (*domain.Plan, error) {
	instruction = strings.TrimSpace(instruction)
	if instruction == "" {
		return nil, ErrEmptyInstruction
	}
	startURL = strings.TrimSpace(startURL)

	if s.llmClient == nil {
		return fallbackPlan(instruction, startURL), nil
	}

	prompt := instruction
	if startURL != "" {
		prompt += "\n" + llm.StartURLPrefix + " " + startURL
	}
	temperature := 0.0
	resp, err := s.llmClient.CreateChatCompletion(ctx, &llm.ChatCompletionRequest{
		Model: s.config.PlannerModel,
		Messages: []llm.ChatMessage{
			{Role: "system", Content: plannerSystemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature:    &temperature,
		ResponseFormat: map[string]any{"type": "json_object"},
	})
	if err != nil {
		slog.Warn("planner unavailable, using fallback plan", "error", err)
		plannerFallbacksTotal.Inc()
		return fallbackPlan(instruction, startURL), nil
	}

	plan, err := parsePlan(resp.FirstContent())
	if err != nil {
		slog.Warn("planner returned an unusable plan, using fallback plan", "error", err)
		plannerFallbacksTotal.Inc()
		return fallbackPlan(instruction, startURL), nil
	}
	if plan.TaskName == "" {
		plan.TaskName = instruction
	}
	if plan.StartURL == "" {
		plan.StartURL = startURL
	}
	return plan, nil
}

// parsePlan extracts the JSON object from an LLM answer, tolerating code fences
// and surrounding prose.
func parsePlan(content string) (*domain.Plan, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in planner output")
	}
	var plan domain.Plan
	if err := json.Unmarshal([]byte(content[start:end+1]), &plan); err != nil {
		return nil, fmt.Errorf("invalid planner JSON: %w", err)
	}
	if len(plan.Actions) == 0 {
		return nil, fmt.Errorf("planner returned no actions")
	}
	return &plan, nil
}

func fallbackPlan(instruction, startURL string) *domain.Plan {
	plan := &domain.Plan{
		TaskName: instruction,
		StartURL: startURL,
		Actions:  []domain.Action{},
		Safety: domain.PlanSafety{
			RequireApprovalFor: slices.Clone(domain.DefaultRequireApprovalFor),
		},
	}
	if startURL != "" {
		plan.Actions = append(plan.Actions, domain.Action{Type: domain.ActionGoto, URL: startURL})
	}
	return plan
}
