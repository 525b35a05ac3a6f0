package domain

import "time"

// Workspace is an isolated collaboration scope: members, problems,
// proposals, consensus markers, and one shared reasoning chain.
type Workspace struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	ChainID     string    `json:"chainId"`
	Members     []Member  `json:"members"`
	CreatedAt   time.Time `json:"createdAt"`
}

// MemberByAgent returns the membership record for an agent, if any.
func (w *Workspace) MemberByAgent(agentID string) (Member, bool) {
	for _, m := range w.Members {
		if m.AgentID == agentID {
			return m, true
		}
	}
	return Member{}, false
}

// Coordinator returns the workspace coordinator.
func (w *Workspace) Coordinator() (Member, bool) {
	for _, m := range w.Members {
		if m.Role == RoleCoordinator {
			return m, true
		}
	}
	return Member{}, false
}

// WorkspaceSummary is the listing row returned by listWorkspaces.
type WorkspaceSummary struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	MemberCount  int    `json:"memberCount"`
	ProblemCount int    `json:"problemCount"`
}
