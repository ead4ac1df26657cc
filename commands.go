package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"

	"github.com/xiaot623/gogo/actionrunner/internal/config"
	"github.com/xiaot623/gogo/actionrunner/internal/domain"
	transporthttp "github.com/xiaot623/gogo/actionrunner/internal/transport/http"
	"github.com/xiaot623/gogo/actionrunner/internal/version"
)

// errApprovalRequired is returned by the run command when the plan needs sign-off.
var errApprovalRequired = errors.New("approval required (rerun with --approve)")

func (c *ServeCmd) Run(cfg *config.Config) error {
	if c.Port > 0 {
		cfg.HTTPPort = c.Port
	}

	ctx := context.Background()
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	slog.Info("starting action runner",
		"port", cfg.HTTPPort,
		"data_dir", cfg.DataDir,
		"browser", cfg.BrowserEngine,
		"allowlist", cfg.AllowlistBackend,
	)

	server := transporthttp.NewServer(a.service)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := server.Start(addr); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down action runner")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Warn("failed to shutdown server gracefully", "error", err)
	}

	// Detached runs finish before the allowlist is closed.
	slog.Info("waiting for in-flight runs")
	return nil
}

func (c *AssessCmd) Run(cfg *config.Config) error {
	plan, err := loadPlan(c.Plan)
	if err != nil {
		return err
	}

	ctx := context.Background()
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	assessment, err := a.service.Assess(ctx, plan, c.Workspace)
	if err != nil {
		return err
	}
	if c.JSON {
		return printJSON(color.Output, assessment)
	}
	printAssessment(color.Output, assessment)
	return nil
}

func (c *RunCmd) Run(cfg *config.Config) error {
	plan, err := loadPlan(c.Plan)
	if err != nil {
		return err
	}

	ctx := context.Background()
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	assessment, err := a.service.Assess(ctx, plan, c.Workspace)
	if err != nil {
		return err
	}
	if assessment.RequiresApproval && !c.Approve {
		printAssessment(color.Output, assessment)
		return errApprovalRequired
	}

	record, err := a.service.RunActionPlan(ctx, plan, domain.RunContext{
		WorkspaceID: c.Workspace,
		UserID:      c.User,
	})
	if err != nil {
		return err
	}
	if c.JSON {
		return printJSON(color.Output, record)
	}
	printRun(color.Output, record)
	if record.Status == domain.RunStatusError {
		return fmt.Errorf("run %s failed: %s", record.ID, record.Error)
	}
	return nil
}

func (c *RunsCmd) Run(cfg *config.Config) error {
	ctx := context.Background()
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if c.ID != "" {
		record, err := a.service.GetActionRun(ctx, c.ID)
		if err != nil {
			return err
		}
		if record == nil {
			return fmt.Errorf("run %s not found", c.ID)
		}
		printRun(color.Output, record)
		return nil
	}

	records, err := a.service.ListRuns(ctx, c.Limit)
	if err != nil {
		return err
	}
	printRunList(color.Output, records)
	return nil
}

func (c *AllowlistListCmd) Run(cfg *config.Config) error {
	ctx := context.Background()
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	domains, err := a.service.ListAllowedDomains(ctx, c.Workspace)
	if err != nil {
		return err
	}
	if len(domains) == 0 {
		color.New(color.FgYellow).Fprintf(color.Output, "No known domains for workspace %s\n", c.Workspace)
		return nil
	}
	for _, d := range domains {
		fmt.Fprintln(color.Output, d)
	}
	return nil
}

func (c *AllowlistResetCmd) Run(cfg *config.Config) error {
	ctx := context.Background()
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.service.ResetAllowlist(ctx, c.Workspace); err != nil {
		return err
	}
	color.New(color.FgGreen).Fprintf(color.Output, "Allowlist reset for workspace %s\n", c.Workspace)
	return nil
}

func (c *VersionCmd) Run() error {
	fmt.Printf("actionrunner %s\n", version.Version)
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printAssessment(w io.Writer, a *domain.RiskAssessment) {
	bold := color.New(color.Bold)
	bold.Fprintf(w, "Task: %s\n", a.TaskName)
	fmt.Fprintf(w, "Actions: %d / %d\n", a.TotalActions, a.MaxActions)
	if len(a.RiskTags) > 0 {
		fmt.Fprintf(w, "Risk tags: %s\n", strings.Join(a.RiskTags, ", "))
	}
	if len(a.NewDomains) > 0 {
		fmt.Fprintf(w, "New domains: %s\n", strings.Join(a.NewDomains, ", "))
	}
	if !a.RequiresApproval {
		color.New(color.FgGreen).Fprintln(w, "No approval required")
		return
	}
	color.New(color.FgRed).Fprintln(w, "Approval required:")
	for _, r := range a.Reasons {
		fmt.Fprintf(w, "  - %s\n", r)
	}
}

func printRun(w io.Writer, r *domain.RunRecord) {
	bold := color.New(color.Bold)
	bold.Fprintf(w, "Run %s ", r.ID)
	statusColor(r.Status).Fprintln(w, r.Status)
	fmt.Fprintf(w, "Task: %s\n", r.TaskName)
	for _, step := range r.Timeline {
		line := fmt.Sprintf("  %2d %-12s %s", step.Step, step.Type, step.Status)
		if step.Error != "" {
			line += ": " + step.Error
		}
		stepColor(step.Status).Fprintln(w, line)
	}
	for _, e := range r.Extracted {
		label := e.Name
		if label == "" {
			label = e.Selector
		}
		fmt.Fprintf(w, "Extracted %s: %s\n", label, e.Text)
	}
	for _, art := range r.Artifacts {
		fmt.Fprintf(w, "Artifact: %s\n", art.File)
	}
	if r.Error != "" {
		color.New(color.FgRed).Fprintf(w, "Error: %s\n", r.Error)
	}
}

func printRunList(w io.Writer, records []domain.RunRecord) {
	if len(records) == 0 {
		color.New(color.FgYellow).Fprintln(w, "No runs")
		return
	}
	for _, r := range records {
		fmt.Fprintf(w, "%s  %s  ", r.ID, r.CreatedAt.Format(time.RFC3339))
		statusColor(r.Status).Fprintf(w, "%-9s", r.Status)
		fmt.Fprintf(w, "  %s\n", r.TaskName)
	}
}

func statusColor(s domain.RunStatus) *color.Color {
	switch s {
	case domain.RunStatusCompleted:
		return color.New(color.FgGreen)
	case domain.RunStatusError:
		return color.New(color.FgRed)
	case domain.RunStatusRunning:
		return color.New(color.FgCyan)
	default:
		return color.New(color.FgYellow)
	}
}

func stepColor(s domain.StepStatus) *color.Color {
	if s == domain.StepStatusOK {
		return color.New(color.FgGreen)
	}
	return color.New(color.FgRed)
}
