package domain

import (
	"net/url"
	"strings"
)

// AutoGotoTimeoutMs is the timeout given to the goto synthesized from a plan's start URL.
const AutoGotoTimeoutMs = 30000

// Plan is a declarative list of browser actions plus safety hints.
type Plan struct {
	TaskName string     `json:"taskName" yaml:"taskName"`
	StartURL string     `json:"startUrl,omitempty" yaml:"startUrl,omitempty"`
	Actions  []Action   `json:"actions" yaml:"actions"`
	Safety   PlanSafety `json:"safety" yaml:"safety"`
}

// PlanSafety carries per-plan overrides for the approval rule and the action ceiling.
type PlanSafety struct {
	// RequireApprovalFor replaces the default tag list when non-nil. An empty,
	// non-nil list leaves only the new-domain clause in force.
	RequireApprovalFor []string `json:"requireApprovalFor" yaml:"requireApprovalFor"`
	MaxActions         *int     `json:"maxActions,omitempty" yaml:"maxActions,omitempty"`
}

// Action is one step of a plan. Type selects which of the remaining fields apply:
//
//	goto        URL, TimeoutMs
//	click       Selector, TimeoutMs
//	type        Selector, Text
//	press       Key
//	waitFor     Selector, TimeoutMs
//	extractText Selector, Name
//	screenshot  Name
type Action struct {
	Type      ActionType `json:"type" yaml:"type"`
	URL       string     `json:"url,omitempty" yaml:"url,omitempty"`
	Selector  string     `json:"selector,omitempty" yaml:"selector,omitempty"`
	Text      string     `json:"text,omitempty" yaml:"text,omitempty"`
	Key       string     `json:"key,omitempty" yaml:"key,omitempty"`
	Name      string     `json:"name,omitempty" yaml:"name,omitempty"`
	TimeoutMs int        `json:"timeoutMs,omitempty" yaml:"timeoutMs,omitempty"`
	Auto      bool       `json:"_auto,omitempty" yaml:"_auto,omitempty"`
}

// EffectiveActions returns the steps that will actually execute: the plan's
// actions, preceded by a synthetic goto when a start URL is set and the first
// action is not already a goto.
func (p *Plan) EffectiveActions() []Action {
	if p.StartURL == "" || (len(p.Actions) > 0 && p.Actions[0].Type == ActionGoto) {
		out := make([]Action, len(p.Actions))
		copy(out, p.Actions)
		return out
	}
	out := make([]Action, 0, len(p.Actions)+1)
	out = append(out, Action{
		Type:      ActionGoto,
		URL:       p.StartURL,
		TimeoutMs: AutoGotoTimeoutMs,
		Auto:      true,
	})
	return append(out, p.Actions...)
}

// Domains returns the hostnames referenced by the start URL and every goto,
// lower-cased and de-duplicated in first-seen order.
func (p *Plan) Domains() []string {
	seen := map[string]struct{}{}
	var out []string
	add := func(raw string) {
		host := Hostname(raw)
		if host == "" {
			return
		}
		if _, ok := seen[host]; ok {
			return
		}
		seen[host] = struct{}{}
		out = append(out, host)
	}
	add(p.StartURL)
	for _, a := range p.Actions {
		if a.Type == ActionGoto {
			add(a.URL)
		}
	}
	return out
}

// Hostname extracts a normalized hostname from raw. Malformed or host-less
// URLs yield "".
func Hostname(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return NormalizeDomain(u.Hostname())
}

// NormalizeDomain lower-cases a hostname and strips surrounding dots and spaces.
func NormalizeDomain(d string) string {
	d = strings.ToLower(strings.TrimSpace(d))
	return strings.Trim(d, ".")
}
