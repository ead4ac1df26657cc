package domain

// RunContext identifies who is starting a run and for which workspace.
type RunContext struct {
	WorkspaceID string `json:"workspace_id"`
	UserID      string `json:"user_id"`
}

// StartRunResponse is returned by the detached entry point.
type StartRunResponse struct {
	RunID  string    `json:"runId"`
	Status RunStatus `json:"status"`
}

// AssessRequest asks for a risk assessment of a plan.
type AssessRequest struct {
	Plan        Plan   `json:"plan"`
	WorkspaceID string `json:"workspace_id"`
}

// RunRequest asks for a plan to be executed.
type RunRequest struct {
	Plan        Plan   `json:"plan"`
	WorkspaceID string `json:"workspace_id"`
	UserID      string `json:"user_id"`
	// Async selects the detached entry point.
	Async bool `json:"async,omitempty"`
	// Approved is set by the approval workflow once a human signed off.
	Approved bool `json:"approved,omitempty"`
}

// PlanRequest asks the planner to turn an instruction into a plan.
type PlanRequest struct {
	Instruction string `json:"instruction"`
	StartURL    string `json:"start_url,omitempty"`
}

// ListRunsResponse wraps a page of run records.
type ListRunsResponse struct {
	Runs []RunRecord `json:"runs"`
}

// AllowlistResponse lists the known domains of a workspace.
type AllowlistResponse struct {
	WorkspaceID string   `json:"workspace_id"`
	Allowed     []string `json:"allowed"`
}

// DefaultWorkspaceID is used when a caller does not name a workspace.
const DefaultWorkspaceID = "default"

// WorkspaceOrDefault returns id, or DefaultWorkspaceID when id is blank.
func WorkspaceOrDefault(id string) string {
	if id == "" {
		return DefaultWorkspaceID
	}
	return id
}
