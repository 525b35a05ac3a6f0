package domain

import "time"

// ProblemStatus is the lifecycle state of a problem.
type ProblemStatus string

const (
	ProblemOpen       ProblemStatus = "open"
	ProblemInProgress ProblemStatus = "in-progress"
	ProblemResolved   ProblemStatus = "resolved"
)

// Comment is an append-only note on a problem.
type Comment struct {
	AgentID   string    `json:"agentId"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Problem is a unit of work inside a workspace. Problems may depend on
// other problems in the same workspace; the dependency graph stays acyclic.
type Problem struct {
	ID          string        `json:"id"`
	WorkspaceID string        `json:"workspaceId"`
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	Status      ProblemStatus `json:"status"`
	CreatedBy   string        `json:"createdBy"`
	AssignedTo  string        `json:"assignedTo,omitempty"`
	BranchID    string        `json:"branchId,omitempty"`
	ForkPoint   int           `json:"forkPoint,omitempty"`
	DependsOn   []string      `json:"dependsOn,omitempty"`
	ParentID    string        `json:"parentId,omitempty"`
	Comments    []Comment     `json:"comments,omitempty"`
	Resolution  string        `json:"resolution,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

// DependsOnSet returns the dependency list as a set.
func (p *Problem) DependsOnSet() map[string]bool {
	set := make(map[string]bool, len(p.DependsOn))
	for _, id := range p.DependsOn {
		set[id] = true
	}
	return set
}
