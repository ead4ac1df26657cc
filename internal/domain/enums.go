// Package domain defines the core domain models for the action runner.
package domain

// ActionType identifies the browser primitive an action maps to.
type ActionType string

const (
	ActionGoto        ActionType = "goto"
	ActionClick       ActionType = "click"
	ActionTypeText    ActionType = "type"
	ActionPress       ActionType = "press"
	ActionWaitFor     ActionType = "waitFor"
	ActionExtractText ActionType = "extractText"
	ActionScreenshot  ActionType = "screenshot"

	// Recognised by the assessor only; the executor has no primitive for them.
	ActionDownload ActionType = "download"
	ActionUpload   ActionType = "upload"
)

// RunStatus represents the status of an action run.
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusError     RunStatus = "error"
)

// IsTerminal reports whether no further transition is allowed from s.
func (s RunStatus) IsTerminal() bool {
	return s == RunStatusCompleted || s == RunStatusError
}

// StepStatus is the outcome of a single step.
type StepStatus string

const (
	StepStatusOK    StepStatus = "ok"
	StepStatusError StepStatus = "error"
)

// ArtifactType is the kind of file captured during a run.
type ArtifactType string

const (
	ArtifactScreenshot ArtifactType = "screenshot"
	ArtifactHTML       ArtifactType = "html"
)

// Risk tags attached to a plan during assessment.
const (
	RiskAuth      = "auth"
	RiskPurchase  = "purchase"
	RiskSend      = "send"
	RiskDelete    = "delete"
	RiskDownload  = "download"
	RiskUpload    = "upload"
	RiskNewDomain = "new_domain"
)

// DefaultRequireApprovalFor is used when a plan does not override the list.
var DefaultRequireApprovalFor = []string{
	RiskPurchase,
	RiskSend,
	RiskDelete,
	RiskAuth,
	RiskDownload,
	RiskUpload,
	RiskNewDomain,
}
