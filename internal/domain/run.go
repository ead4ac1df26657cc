package domain

import "time"

// RunRecord is the durable representation of one execution attempt of a plan.
type RunRecord struct {
	ID          string           `json:"id"`
	Status      RunStatus        `json:"status"`
	TaskName    string           `json:"taskName"`
	StartURL    string           `json:"startUrl,omitempty"`
	Actions     []Action         `json:"actions"`
	Safety      PlanSafety       `json:"safety"`
	WorkspaceID string           `json:"workspaceId"`
	CreatedBy   string           `json:"createdBy"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
	StartedAt   *time.Time       `json:"startedAt,omitempty"`
	FinishedAt  *time.Time       `json:"finishedAt,omitempty"`
	Timeline    []StepResult     `json:"timeline"`
	Extracted   []ExtractedEntry `json:"extracted"`
	Artifacts   []ArtifactRef    `json:"artifacts"`
	Error       string           `json:"error,omitempty"`
	// Warnings lists non-fatal problems, such as domains that could not be
	// added to the workspace allowlist.
	Warnings []string `json:"warnings,omitempty"`
}

// StepResult is the outcome of one executed step.
type StepResult struct {
	Step       int        `json:"step"`
	Type       ActionType `json:"type"`
	Status     StepStatus `json:"status"`
	StartedAt  time.Time  `json:"startedAt"`
	FinishedAt time.Time  `json:"finishedAt"`
	Error      string     `json:"error,omitempty"`
	Action     Action     `json:"action"`
}

// ExtractedEntry is text read from the page by an extractText step.
type ExtractedEntry struct {
	Selector string    `json:"selector"`
	Text     string    `json:"text"`
	Name     string    `json:"name,omitempty"`
	Step     int       `json:"step"`
	At       time.Time `json:"at"`
}

// ArtifactRef points at a file stored next to run.json.
type ArtifactRef struct {
	Type      ArtifactType `json:"type"`
	File      string       `json:"file"`
	Step      int          `json:"step"`
	CreatedAt time.Time    `json:"createdAt"`
}

// NewRun holds the fields supplied when a run record is created.
type NewRun struct {
	TaskName    string
	StartURL    string
	Actions     []Action
	Safety      PlanSafety
	WorkspaceID string
	CreatedBy   string
}

// StatusUpdate carries optional fields written alongside a status change.
type StatusUpdate struct {
	Error      string
	StartedAt  *time.Time
	FinishedAt *time.Time
}

// RiskAssessment is the approval signal computed for a plan.
type RiskAssessment struct {
	RequiresApproval  bool     `json:"requiresApproval"`
	RiskTags          []string `json:"riskTags"`
	NewDomains        []string `json:"newDomains"`
	MaxActions        int      `json:"maxActions"`
	TotalActions      int      `json:"totalActions"`
	ExceedsMaxActions bool     `json:"exceedsMaxActions"`
	TaskName          string   `json:"taskName"`
	Reasons           []string `json:"reasons"`
}

// HasTag reports whether tag was attached during assessment.
func (a *RiskAssessment) HasTag(tag string) bool {
	for _, t := range a.RiskTags {
		if t == tag {
			return true
		}
	}
	return false
}

// AllowlistEntry is the persisted set of known hostnames for one workspace.
type AllowlistEntry struct {
	Allowed   []string  `json:"allowed"`
	UpdatedAt time.Time `json:"updatedAt"`
}
