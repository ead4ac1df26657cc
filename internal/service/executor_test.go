package service_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/gogo/actionrunner/internal/config"
	"github.com/xiaot623/gogo/actionrunner/internal/domain"
	"github.com/xiaot623/gogo/actionrunner/internal/ratelimit"
	"github.com/xiaot623/gogo/actionrunner/internal/repository"
	"github.com/xiaot623/gogo/actionrunner/internal/service"
	"github.com/xiaot623/gogo/actionrunner/tests/helpers"
)

func runDirs(t *testing.T, env *helpers.TestEnv) []string {
	t.Helper()
	entries, err := os.ReadDir(env.Runs.Dir())
	require.NoError(t, err)
	var dirs []string
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, e.Name())
		}
	}
	return dirs
}

func TestRunActionPlanCompletes(t *testing.T) {
	env := helpers.NewTestService(t)
	env.Launcher.Texts["h1"] = "Example Domain"
	ctx := context.Background()

	run, err := env.Service.RunActionPlan(ctx, domain.Plan{
		TaskName: "read heading",
		StartURL: "https://example.com",
		Actions: []domain.Action{
			{Type: domain.ActionExtractText, Selector: "h1", Name: "heading"},
			{Type: domain.ActionScreenshot},
		},
	}, domain.RunContext{WorkspaceID: "w1", UserID: "u1"})
	require.NoError(t, err)

	assert.Equal(t, domain.RunStatusCompleted, run.Status)
	assert.Equal(t, "w1", run.WorkspaceID)
	assert.Equal(t, "u1", run.CreatedBy)
	assert.NotNil(t, run.StartedAt)
	assert.NotNil(t, run.FinishedAt)
	assert.Empty(t, run.Error)

	require.Len(t, run.Timeline, 3)
	assert.True(t, run.Timeline[0].Action.Auto)
	assert.Equal(t, domain.ActionGoto, run.Timeline[0].Type)
	for i, step := range run.Timeline {
		assert.Equal(t, i+1, step.Step)
		assert.Equal(t, domain.StepStatusOK, step.Status)
	}

	require.Len(t, run.Extracted, 1)
	assert.Equal(t, "Example Domain", run.Extracted[0].Text)
	assert.Equal(t, "heading", run.Extracted[0].Name)
	assert.Equal(t, 2, run.Extracted[0].Step)

	require.Len(t, run.Artifacts, 2)
	assert.Equal(t, "step_2_heading.html", run.Artifacts[0].File)
	assert.Equal(t, domain.ArtifactHTML, run.Artifacts[0].Type)
	assert.Equal(t, "step_3_screenshot.png", run.Artifacts[1].File)

	png, err := os.ReadFile(filepath.Join(env.Runs.Dir(), run.ID, "step_3_screenshot.png"))
	require.NoError(t, err)
	assert.Equal(t, helpers.PNGHeader, png)

	require.Equal(t, 1, env.Launcher.Launched())
	session := env.Launcher.Sessions[0]
	assert.True(t, session.Closed())
	assert.Equal(t, []string{"goto https://example.com", "innerText h1", "content", "screenshot"}, session.Calls())
}

func TestRunActionPlanStopsOnFirstError(t *testing.T) {
	env := helpers.NewTestService(t)
	env.Launcher.Missing["#does-not-exist"] = true

	run, err := env.Service.RunActionPlan(context.Background(), domain.Plan{
		TaskName: "broken",
		Actions: []domain.Action{
			{Type: domain.ActionClick, Selector: "#does-not-exist"},
			{Type: domain.ActionScreenshot},
		},
	}, domain.RunContext{WorkspaceID: "w1"})
	require.NoError(t, err)

	assert.Equal(t, domain.RunStatusError, run.Status)
	require.Len(t, run.Timeline, 1)
	assert.Equal(t, domain.StepStatusError, run.Timeline[0].Status)
	assert.NotEmpty(t, run.Error)
	assert.Equal(t, run.Error, run.Timeline[0].Error)
	assert.Contains(t, run.Error, "selector not found")
	assert.True(t, env.Launcher.Sessions[0].Closed())
	assert.Empty(t, run.Artifacts)
}

func TestRunActionPlanUnknownAction(t *testing.T) {
	env := helpers.NewTestService(t)

	run, err := env.Service.RunActionPlan(context.Background(), domain.Plan{
		Actions: []domain.Action{{Type: domain.ActionDownload, URL: "https://example.com/file.zip"}},
	}, domain.RunContext{})
	require.NoError(t, err)

	assert.Equal(t, domain.RunStatusError, run.Status)
	assert.Equal(t, "unknown_action_type_download", run.Error)
	assert.Equal(t, domain.DefaultWorkspaceID, run.WorkspaceID)
}

func TestRunActionPlanStepTimeout(t *testing.T) {
	env := helpers.NewTestService(t)
	env.Launcher.HangURLs["https://slow.example.com"] = true

	run, err := env.Service.RunActionPlan(context.Background(), domain.Plan{
		Actions: []domain.Action{{Type: domain.ActionGoto, URL: "https://slow.example.com", TimeoutMs: 20}},
	}, domain.RunContext{})
	require.NoError(t, err)

	assert.Equal(t, domain.RunStatusError, run.Status)
	assert.Contains(t, run.Error, context.DeadlineExceeded.Error())
}

func TestRunActionPlanLaunchFailure(t *testing.T) {
	env := helpers.NewTestService(t)
	env.Launcher.LaunchErr = errors.New("chrome not found")

	run, err := env.Service.RunActionPlan(context.Background(), domain.Plan{
		StartURL: "https://example.com",
	}, domain.RunContext{WorkspaceID: "w1"})
	require.NoError(t, err)

	assert.Equal(t, domain.RunStatusError, run.Status)
	assert.Equal(t, "chrome not found", run.Error)
	assert.Empty(t, run.Timeline)

	// domains are learned as soon as the run starts executing
	allowed, err := env.Service.ListAllowedDomains(context.Background(), "w1")
	require.NoError(t, err)
	assert.Equal(t, []string{"example.com"}, allowed)
}

func TestRunActionPlanRejectsOversizedPlan(t *testing.T) {
	env := helpers.NewTestService(t)

	actions := make([]domain.Action, 61)
	for i := range actions {
		actions[i] = domain.Action{Type: domain.ActionWaitFor, Selector: "body"}
	}
	_, err := env.Service.RunActionPlan(context.Background(), domain.Plan{Actions: actions}, domain.RunContext{})
	assert.True(t, errors.Is(err, service.ErrPlanTooLarge))
	assert.True(t, service.IsValidation(err))

	// the synthetic goto counts toward the ceiling
	_, err = env.Service.StartActionRun(context.Background(), domain.Plan{
		StartURL: "https://example.com",
		Actions:  actions[:60],
	}, domain.RunContext{})
	assert.True(t, errors.Is(err, service.ErrPlanTooLarge))

	assert.Empty(t, runDirs(t, env))
	assert.Equal(t, 0, env.Launcher.Launched())
}

func TestRunActionPlanRejectsEmptyPlan(t *testing.T) {
	env := helpers.NewTestService(t)

	_, err := env.Service.RunActionPlan(context.Background(), domain.Plan{TaskName: "nothing"}, domain.RunContext{})
	assert.True(t, errors.Is(err, service.ErrEmptyPlan))
	assert.Empty(t, runDirs(t, env))
}

func TestStartActionRunRateLimited(t *testing.T) {
	env := helpers.NewTestService(t, func(cfg *config.Config) {
		cfg.MinRunInterval = time.Minute
	})
	ctx := context.Background()
	plan := domain.Plan{StartURL: "https://example.com"}

	resp, err := env.Service.StartActionRun(ctx, plan, domain.RunContext{WorkspaceID: "w1"})
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusRunning, resp.Status)

	_, err = env.Service.StartActionRun(ctx, plan, domain.RunContext{WorkspaceID: "w1"})
	var limited *ratelimit.Error
	require.True(t, errors.As(err, &limited))
	assert.Equal(t, "w1", limited.WorkspaceID)
	assert.True(t, limited.RetryAt.After(time.Now()))

	// another workspace is not affected
	_, err = env.Service.StartActionRun(ctx, plan, domain.RunContext{WorkspaceID: "w2"})
	require.NoError(t, err)

	env.Service.Wait()
	assert.Len(t, runDirs(t, env), 2)

	run, err := env.Service.GetActionRun(ctx, resp.RunID)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, domain.RunStatusCompleted, run.Status)
}

func TestListRunsNewestFirst(t *testing.T) {
	env := helpers.NewTestService(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := env.Service.RunActionPlan(ctx, domain.Plan{
			TaskName: fmt.Sprintf("run-%d", i),
			StartURL: "https://example.com",
		}, domain.RunContext{})
		require.NoError(t, err)
	}

	runs, err := env.Service.ListRuns(ctx, 3)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	for i := 1; i < len(runs); i++ {
		assert.False(t, runs[i].CreatedAt.After(runs[i-1].CreatedAt))
	}

	all, err := env.Service.ListRuns(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	missing, err := env.Service.GetActionRun(ctx, "not-a-uuid")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestArtifactPath(t *testing.T) {
	env := helpers.NewTestService(t)
	ctx := context.Background()

	run, err := env.Service.RunActionPlan(ctx, domain.Plan{
		StartURL: "https://example.com",
		Actions:  []domain.Action{{Type: domain.ActionScreenshot, Name: "home"}},
	}, domain.RunContext{})
	require.NoError(t, err)

	path, err := env.Service.ArtifactPath(ctx, run.ID, "step_2_home.png")
	require.NoError(t, err)
	assert.FileExists(t, path)

	path, err = env.Service.ArtifactPath(ctx, "00000000-0000-0000-0000-000000000000", "step_2_home.png")
	require.NoError(t, err)
	assert.Empty(t, path)
}

func TestRunActionPlanRecordsPanickingStep(t *testing.T) {
	env := helpers.NewTestService(t)
	env.Launcher.Panics["click #x"] = true

	run, err := env.Service.RunActionPlan(context.Background(), domain.Plan{
		StartURL: "https://example.com",
		Actions:  []domain.Action{{Type: domain.ActionClick, Selector: "#x"}},
	}, domain.RunContext{WorkspaceID: "w1"})
	require.NoError(t, err)

	assert.Equal(t, domain.RunStatusError, run.Status)
	require.Len(t, run.Timeline, 2)
	assert.Equal(t, domain.StepStatusOK, run.Timeline[0].Status)
	assert.Equal(t, 2, run.Timeline[1].Step)
	assert.Equal(t, domain.StepStatusError, run.Timeline[1].Status)
	assert.Equal(t, "panic: boom", run.Timeline[1].Error)
	assert.Equal(t, "panic: boom", run.Error)
	assert.True(t, env.Launcher.Sessions[0].Closed())
}

func TestRunActionPlanExtractFailureKeepsNoEntry(t *testing.T) {
	env := helpers.NewTestService(t)
	env.Launcher.Texts["h1"] = "Example Domain"
	env.Launcher.ContentErr = errors.New("page crashed")

	run, err := env.Service.RunActionPlan(context.Background(), domain.Plan{
		StartURL: "https://example.com",
		Actions:  []domain.Action{{Type: domain.ActionExtractText, Selector: "h1", Name: "heading"}},
	}, domain.RunContext{WorkspaceID: "w1"})
	require.NoError(t, err)

	assert.Equal(t, domain.RunStatusError, run.Status)
	require.Len(t, run.Timeline, 2)
	assert.Equal(t, domain.StepStatusError, run.Timeline[1].Status)
	assert.Equal(t, "page crashed", run.Error)
	assert.Empty(t, run.Extracted)
	assert.Empty(t, run.Artifacts)
}

func TestRunActionPlanAllowlistFailureIsRecorded(t *testing.T) {
	base, err := repository.NewFileAllowlist(filepath.Join(t.TempDir(), "allowlist.json"))
	require.NoError(t, err)
	env := helpers.NewTestServiceWithAllowlist(t, &helpers.FailingAllowlist{
		AllowlistStore: base,
		RecordErr:      errors.New("disk full"),
	})

	run, err := env.Service.RunActionPlan(context.Background(), domain.Plan{
		StartURL: "https://example.com",
	}, domain.RunContext{WorkspaceID: "w1"})
	require.NoError(t, err)

	assert.Equal(t, domain.RunStatusCompleted, run.Status)
	require.Len(t, run.Warnings, 1)
	assert.Contains(t, run.Warnings[0], "disk full")

	stored, err := env.Service.GetActionRun(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.Warnings, stored.Warnings)
}
