package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/gogo/actionrunner/internal/domain"
	"github.com/xiaot623/gogo/actionrunner/tests/helpers"
)

func intPtr(v int) *int { return &v }

func TestAssessNewDomainIsLearnedAfterRun(t *testing.T) {
	env := helpers.NewTestService(t)
	ctx := context.Background()
	plan := domain.Plan{
		TaskName: "read",
		StartURL: "https://Example.com/",
		Actions: []domain.Action{
			{Type: domain.ActionExtractText, Selector: "h1"},
		},
	}

	a, err := env.Service.Assess(ctx, plan, "w1")
	require.NoError(t, err)
	assert.True(t, a.RequiresApproval)
	assert.Equal(t, []string{"example.com"}, a.NewDomains)
	assert.True(t, a.HasTag(domain.RiskNewDomain))
	assert.Equal(t, "read", a.TaskName)
	assert.NotEmpty(t, a.Reasons)

	// assessing writes nothing
	allowed, err := env.Service.ListAllowedDomains(ctx, "w1")
	require.NoError(t, err)
	assert.Empty(t, allowed)
	assert.Equal(t, 0, env.Launcher.Launched())

	_, err = env.Service.RunActionPlan(ctx, plan, domain.RunContext{WorkspaceID: "w1"})
	require.NoError(t, err)

	a, err = env.Service.Assess(ctx, plan, "w1")
	require.NoError(t, err)
	assert.Empty(t, a.NewDomains)
	assert.False(t, a.RequiresApproval)
	assert.False(t, a.HasTag(domain.RiskNewDomain))

	// other workspaces still see the domain as new
	a, err = env.Service.Assess(ctx, plan, "w2")
	require.NoError(t, err)
	assert.True(t, a.RequiresApproval)

	require.NoError(t, env.Service.ResetAllowlist(ctx, "w1"))
	a, err = env.Service.Assess(ctx, plan, "w1")
	require.NoError(t, err)
	assert.True(t, a.RequiresApproval)
}

func TestAssessLoginPlan(t *testing.T) {
	env := helpers.NewTestService(t)

	a, err := env.Service.Assess(context.Background(), domain.Plan{
		StartURL: "https://example.com/login",
		Actions:  []domain.Action{{Type: domain.ActionClick, Selector: "#signin"}},
	}, "fresh")
	require.NoError(t, err)

	assert.True(t, a.HasTag(domain.RiskNewDomain))
	assert.True(t, a.HasTag(domain.RiskAuth))
	assert.True(t, a.RequiresApproval)
	assert.Equal(t, 1, a.TotalActions)
}

func TestAssessActionCeiling(t *testing.T) {
	env := helpers.NewTestService(t)
	ctx := context.Background()

	actions := make([]domain.Action, 61)
	for i := range actions {
		actions[i] = domain.Action{Type: domain.ActionScreenshot}
	}
	a, err := env.Service.Assess(ctx, domain.Plan{Actions: actions}, "w1")
	require.NoError(t, err)
	assert.Equal(t, 61, a.TotalActions)
	assert.Equal(t, 60, a.MaxActions)
	assert.True(t, a.ExceedsMaxActions)

	a, err = env.Service.Assess(ctx, domain.Plan{
		Actions: actions[:5],
		Safety:  domain.PlanSafety{MaxActions: intPtr(3)},
	}, "w1")
	require.NoError(t, err)
	assert.Equal(t, 3, a.MaxActions)
	assert.True(t, a.ExceedsMaxActions)

	// a plan cannot raise the ceiling above the hard cap
	env.Config.MaxActionsHardCap = 10
	a, err = env.Service.Assess(ctx, domain.Plan{
		Actions: actions[:5],
		Safety:  domain.PlanSafety{MaxActions: intPtr(500)},
	}, "w1")
	require.NoError(t, err)
	assert.Equal(t, 10, a.MaxActions)
	assert.False(t, a.ExceedsMaxActions)
}

func TestAssessRequireApprovalOverride(t *testing.T) {
	env := helpers.NewTestService(t)
	ctx := context.Background()
	_, err := env.Allowlist.Record(ctx, []string{"shop.example.com"}, "w1")
	require.NoError(t, err)

	plan := domain.Plan{
		StartURL: "https://shop.example.com",
		Actions:  []domain.Action{{Type: domain.ActionClick, Selector: "#checkout"}},
	}

	a, err := env.Service.Assess(ctx, plan, "w1")
	require.NoError(t, err)
	assert.Equal(t, []string{domain.RiskPurchase}, a.RiskTags)
	assert.True(t, a.RequiresApproval)

	plan.Safety.RequireApprovalFor = []string{}
	a, err = env.Service.Assess(ctx, plan, "w1")
	require.NoError(t, err)
	assert.False(t, a.RequiresApproval)

	// the new-domain clause cannot be narrowed away
	plan.StartURL = "https://other.example.com"
	a, err = env.Service.Assess(ctx, plan, "w1")
	require.NoError(t, err)
	assert.True(t, a.RequiresApproval)
	assert.Equal(t, []string{"other.example.com"}, a.NewDomains)
}

func TestAssessStartURLIsNotTagged(t *testing.T) {
	env := helpers.NewTestService(t)
	ctx := context.Background()
	_, err := env.Allowlist.Record(ctx, []string{"bank.example"}, "w1")
	require.NoError(t, err)

	// Only the plan's own actions are tagged; the synthetic goto to the start
	// URL contributes its host to the new-domain check and nothing else.
	a, err := env.Service.Assess(ctx, domain.Plan{
		StartURL: "https://bank.example/login",
		Actions:  []domain.Action{{Type: domain.ActionScreenshot}},
	}, "w1")
	require.NoError(t, err)
	assert.Empty(t, a.RiskTags)
	assert.Empty(t, a.NewDomains)
	assert.False(t, a.RequiresApproval)

	a, err = env.Service.Assess(ctx, domain.Plan{
		StartURL: "https://bank.example",
		Actions: []domain.Action{
			{Type: domain.ActionGoto, URL: "https://bank.example/login"},
			{Type: domain.ActionScreenshot},
		},
	}, "w1")
	require.NoError(t, err)
	assert.Equal(t, []string{domain.RiskAuth}, a.RiskTags)
	assert.True(t, a.RequiresApproval)
}
