// Package policy evaluates the run approval rule with OPA.
package policy

import (
	"context"
	"fmt"
	"os"

	"github.com/open-policy-agent/opa/rego"
)

// Decisions returned by the approval policy.
const (
	DecisionAllow           = "allow"
	DecisionRequireApproval = "require_approval"
)

// Input is the document the approval policy is evaluated against.
type Input struct {
	RiskTags           []string `json:"risk_tags"`
	NewDomains         []string `json:"new_domains"`
	RequireApprovalFor []string `json:"require_approval_for"`
}

// Engine is the OPA policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a new policy engine with the given policy content.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.action_policy.decision"),
		rego.Module("action_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// NewEngineFromFile loads the policy from path, or DefaultPolicy when path is empty.
// An override policy can add approval rules but cannot waive approval for new
// domains: RequiresApproval enforces that clause outside Rego.
func NewEngineFromFile(ctx context.Context, path string) (*Engine, error) {
	if path == "" {
		return NewEngine(ctx, DefaultPolicy)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file: %w", err)
	}
	return NewEngine(ctx, string(content))
}

// Evaluate returns the approval decision for the input.
func (e *Engine) Evaluate(ctx context.Context, input Input) (string, error) {
	doc := map[string]interface{}{
		"risk_tags":            nonNil(input.RiskTags),
		"new_domains":          nonNil(input.NewDomains),
		"require_approval_for": nonNil(input.RequireApprovalFor),
	}
	results, err := e.query.Eval(ctx, rego.EvalInput(doc))
	if err != nil {
		return "", fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		// Undefined decision: fail closed.
		return DecisionRequireApproval, nil
	}

	if s, ok := results[0].Expressions[0].Value.(string); ok {
		return s, nil
	}
	return "", fmt.Errorf("unexpected policy result type %T", results[0].Expressions[0].Value)
}

// RequiresApproval reports whether the input needs human sign-off. Any new
// domain requires approval whatever the loaded policy decides.
func (e *Engine) RequiresApproval(ctx context.Context, input Input) (bool, error) {
	if len(input.NewDomains) > 0 {
		return true, nil
	}
	decision, err := e.Evaluate(ctx, input)
	if err != nil {
		return false, err
	}
	return decision != DecisionAllow, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// DefaultPolicy requires approval for any new domain, or any risk tag present
// in the plan's require-approval list.
const DefaultPolicy = `
package action_policy

default decision = "allow"

decision = "require_approval" {
	count(input.new_domains) > 0
}

decision = "require_approval" {
	input.risk_tags[_] == input.require_approval_for[_]
}
`
