package service

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/xiaot623/gogo/actionrunner/internal/domain"
	"github.com/xiaot623/gogo/actionrunner/policy"
)

var (
	authURLPattern       = regexp.MustCompile(`(?i)login|signin|oauth|auth`)
	purchasePattern      = regexp.MustCompile(`(?i)buy|purchase|checkout|order|cart`)
	sendPattern          = regexp.MustCompile(`(?i)send|submit|post|publish`)
	deletePattern        = regexp.MustCompile(`(?i)delete|remove|destroy`)
	loginSelectorPattern = regexp.MustCompile(`(?i)login|sign-?in|auth`)
	passwordPattern      = regexp.MustCompile(`(?i)password|passwd`)
)

// Assess computes the approval signal for a plan. It never launches a
// browser and never writes to the run store or the allowlist.
func (s *Service) Assess(ctx context.Context, plan domain.Plan, workspaceID string) (*domain.RiskAssessment, error) {
	workspaceID = domain.WorkspaceOrDefault(workspaceID)

	newDomains := []string{}
	for _, d := range plan.Domains() {
		ok, err := s.allowlist.IsAllowed(ctx, d, workspaceID)
		if err != nil {
			return nil, fmt.Errorf("failed to check allowlist: %w", err)
		}
		if !ok {
			newDomains = append(newDomains, d)
		}
	}

	tags, reasons := tagActions(plan.Actions)
	if len(newDomains) > 0 {
		tags = appendTag(tags, domain.RiskNewDomain)
		reasons = append(reasons, "new domain(s) for workspace: "+strings.Join(newDomains, ", "))
	}

	requireFor := plan.Safety.RequireApprovalFor
	if requireFor == nil {
		requireFor = domain.DefaultRequireApprovalFor
	}
	requiresApproval, err := s.policyEngine.RequiresApproval(ctx, policy.Input{
		RiskTags:           tags,
		NewDomains:         newDomains,
		RequireApprovalFor: requireFor,
	})
	if err != nil {
		return nil, err
	}
	for _, tag := range tags {
		if tag != domain.RiskNewDomain && slices.Contains(requireFor, tag) {
			reasons = append(reasons, fmt.Sprintf("risk tag %q requires approval", tag))
		}
	}

	maxActions := s.config.EffectiveMaxActions(plan.Safety.MaxActions)
	total := len(plan.Actions)
	if total > maxActions {
		reasons = append(reasons, fmt.Sprintf("plan has %d actions, max is %d", total, maxActions))
	}

	assessmentsTotal.WithLabelValues(strconv.FormatBool(requiresApproval)).Inc()

	return &domain.RiskAssessment{
		RequiresApproval:  requiresApproval,
		RiskTags:          tags,
		NewDomains:        newDomains,
		MaxActions:        maxActions,
		TotalActions:      total,
		ExceedsMaxActions: total > maxActions,
		TaskName:          plan.TaskName,
		Reasons:           reasons,
	}, nil
}

// tagActions walks the plan once, looking at each action together with the
// one before it. Tags are returned in first-seen order.
func tagActions(actions []domain.Action) ([]string, []string) {
	tags := []string{}
	reasons := []string{}
	tag := func(step int, t, why string) {
		if slices.Contains(tags, t) {
			return
		}
		tags = append(tags, t)
		reasons = append(reasons, fmt.Sprintf("step %d: %s (%s)", step, why, t))
	}

	var prev *domain.Action
	for i := range actions {
		a := &actions[i]
		step := i + 1
		switch a.Type {
		case domain.ActionGoto:
			if authURLPattern.MatchString(a.URL) {
				tag(step, domain.RiskAuth, "navigates to a login page")
			}
		case domain.ActionClick:
			if purchasePattern.MatchString(a.Selector) {
				tag(step, domain.RiskPurchase, "clicks a purchase control")
			}
			if sendPattern.MatchString(a.Selector) {
				tag(step, domain.RiskSend, "clicks a send control")
			}
			if deletePattern.MatchString(a.Selector) {
				tag(step, domain.RiskDelete, "clicks a delete control")
			}
			if loginSelectorPattern.MatchString(a.Selector) {
				tag(step, domain.RiskAuth, "clicks a sign-in control")
			}
		case domain.ActionTypeText:
			if isPasswordEntry(a) {
				tag(step, domain.RiskAuth, "types a password")
			} else if prev != nil && prev.Type == domain.ActionClick && loginSelectorPattern.MatchString(prev.Selector) {
				tag(step, domain.RiskAuth, "types into a sign-in form")
			}
		case domain.ActionPress:
			if strings.EqualFold(a.Key, "enter") && prev != nil && isPasswordEntry(prev) {
				tag(step, domain.RiskAuth, "submits a password")
			}
		case domain.ActionDownload:
			tag(step, domain.RiskDownload, "downloads a file")
		case domain.ActionUpload:
			tag(step, domain.RiskUpload, "uploads a file")
		}
		prev = a
	}
	return tags, reasons
}

func isPasswordEntry(a *domain.Action) bool {
	return a.Type == domain.ActionTypeText &&
		(passwordPattern.MatchString(a.Selector) || passwordPattern.MatchString(a.Text))
}

func appendTag(tags []string, t string) []string {
	if slices.Contains(tags, t) {
		return tags
	}
	return append(tags, t)
}
