package domain

import "time"

// ProposalStatus is the lifecycle state of a proposal.
type ProposalStatus string

const (
	ProposalOpen      ProposalStatus = "open"
	ProposalReviewing ProposalStatus = "reviewing"
	ProposalMerged    ProposalStatus = "merged"
)

// Verdict is a reviewer's judgment on a proposal.
type Verdict string

const (
	VerdictApprove        Verdict = "approve"
	VerdictRequestChanges Verdict = "request-changes"
	VerdictComment        Verdict = "comment"
)

// Review is one reviewer's verdict with reasoning.
type Review struct {
	ReviewerID string    `json:"reviewerId"`
	Verdict    Verdict   `json:"verdict"`
	Reasoning  string    `json:"reasoning,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Proposal submits a reasoning branch for peer review and merge into
// the workspace's main chain.
type Proposal struct {
	ID           string         `json:"id"`
	WorkspaceID  string         `json:"workspaceId"`
	Title        string         `json:"title"`
	Description  string         `json:"description,omitempty"`
	SourceBranch string         `json:"sourceBranch"`
	ProblemID    string         `json:"problemId,omitempty"`
	CreatedBy    string         `json:"createdBy"`
	Status       ProposalStatus `json:"status"`
	Reviews      []Review       `json:"reviews,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
	MergedAt     *time.Time     `json:"mergedAt,omitempty"`
}

// Approvals counts approve verdicts on the proposal.
func (p *Proposal) Approvals() int {
	n := 0
	for _, r := range p.Reviews {
		if r.Verdict == VerdictApprove {
			n++
		}
	}
	return n
}
