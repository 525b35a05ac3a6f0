// Package proposal implements the branch → propose → review → merge
// workflow over the reasoning chain, plus the branch diff reviewers
// consult before merging.
package proposal

import (
	"time"

	"github.com/google/uuid"

	"github.com/hivemind-sh/hivemind/internal/domain"
	"github.com/hivemind-sh/hivemind/internal/hashchain"
	"github.com/hivemind-sh/hivemind/internal/hive"
	"github.com/hivemind-sh/hivemind/internal/hub"
	"github.com/hivemind-sh/hivemind/internal/logging"
	"github.com/hivemind-sh/hivemind/internal/problem"
	"github.com/hivemind-sh/hivemind/internal/reasoning"
	"github.com/hivemind-sh/hivemind/internal/store"
	"github.com/hivemind-sh/hivemind/internal/workspace"
)

// Manager handles proposal operations.
type Manager struct {
	store    store.Store
	chains   reasoning.Store
	ws       *workspace.Manager
	problems *problem.Manager
	bus      *hub.Hub
	log      *logging.Logger
}

// NewManager creates a proposal manager.
func NewManager(st store.Store, chains reasoning.Store, ws *workspace.Manager, problems *problem.Manager, bus *hub.Hub, log *logging.Logger) *Manager {
	return &Manager{store: st, chains: chains, ws: ws, problems: problems, bus: bus, log: log.Sub("proposal")}
}

// Create submits a reasoning branch for review.
func (m *Manager) Create(agent domain.Agent, ws domain.Workspace, title, description, sourceBranch, problemID string) (domain.Proposal, error) {
	if sourceBranch == "" {
		return domain.Proposal{}, hive.New(hive.CodeInvalidParams, "sourceBranch is required")
	}
	if title == "" {
		return domain.Proposal{}, hive.New(hive.CodeInvalidParams, "proposal title is required")
	}

	lock := m.ws.Locker(ws.ID)
	lock.Lock()
	defer lock.Unlock()

	if problemID != "" {
		if _, ok := m.store.Problem(ws.ID, problemID); !ok {
			return domain.Proposal{}, hive.NotFound("problem", problemID)
		}
	}

	p := domain.Proposal{
		ID:           uuid.New().String(),
		WorkspaceID:  ws.ID,
		Title:        title,
		Description:  description,
		SourceBranch: sourceBranch,
		ProblemID:    problemID,
		CreatedBy:    agent.ID,
		Status:       domain.ProposalOpen,
		CreatedAt:    time.Now(),
	}
	if err := m.store.SaveProposal(p); err != nil {
		return domain.Proposal{}, err
	}

	m.log.Info().Str("workspace", ws.ID).Str("proposal", p.ID).Str("branch", sourceBranch).Msg("proposal created")
	m.bus.Publish(domain.Event{Type: domain.EventProposalCreated, WorkspaceID: ws.ID, AgentID: agent.ID, Payload: p})
	return p, nil
}

// Review records a reviewer's verdict. The proposal creator may not
// review their own proposal. Any review moves an open proposal to
// reviewing.
func (m *Manager) Review(agent domain.Agent, ws domain.Workspace, proposalID string, verdict domain.Verdict, reasoning string) (domain.Proposal, error) {
	switch verdict {
	case domain.VerdictApprove, domain.VerdictRequestChanges, domain.VerdictComment:
	default:
		return domain.Proposal{}, hive.New(hive.CodeInvalidParams, "unknown verdict %q", verdict)
	}

	lock := m.ws.Locker(ws.ID)
	lock.Lock()
	defer lock.Unlock()

	p, ok := m.store.Proposal(ws.ID, proposalID)
	if !ok {
		return domain.Proposal{}, hive.NotFound("proposal", proposalID)
	}
	if p.CreatedBy == agent.ID {
		return domain.Proposal{}, hive.New(hive.CodeSelfReview, "cannot review your own proposal")
	}
	if p.Status == domain.ProposalMerged {
		return domain.Proposal{}, hive.New(hive.CodeInvalidParams, "proposal %s is already merged", proposalID)
	}

	p.Reviews = append(p.Reviews, domain.Review{
		ReviewerID: agent.ID,
		Verdict:    verdict,
		Reasoning:  reasoning,
		Timestamp:  time.Now(),
	})
	if p.Status == domain.ProposalOpen {
		p.Status = domain.ProposalReviewing
	}
	if err := m.store.SaveProposal(p); err != nil {
		return domain.Proposal{}, err
	}
	return p, nil
}

// MergeResult is returned from a successful merge.
type MergeResult struct {
	Proposal    domain.Proposal `json:"proposal"`
	MergedEntry domain.Entry    `json:"mergedEntry"`
	Problem     *domain.Problem `json:"problem,omitempty"`
}

// Merge lands an approved proposal: appends one merge entry to the
// main chain at the next sequential position, marks the proposal
// merged, and resolves the linked problem if any. Requires the
// coordinator role and at least one approve review. Source-branch
// entries are never touched.
func (m *Manager) Merge(agent domain.Agent, ws domain.Workspace, proposalID, mergeMessage string) (MergeResult, error) {
	member, _ := ws.MemberByAgent(agent.ID)
	if member.Role != domain.RoleCoordinator {
		return MergeResult{}, hive.New(hive.CodeNotCoordinator, "only the coordinator can merge proposals")
	}

	lock := m.ws.Locker(ws.ID)
	lock.Lock()
	defer lock.Unlock()

	p, ok := m.store.Proposal(ws.ID, proposalID)
	if !ok {
		return MergeResult{}, hive.NotFound("proposal", proposalID)
	}
	if p.Status == domain.ProposalMerged {
		return MergeResult{}, hive.New(hive.CodeInvalidParams, "proposal %s is already merged", proposalID)
	}
	if p.Approvals() == 0 {
		return MergeResult{}, hive.New(hive.CodeNotApproved,
			"proposal %s has no approve review", proposalID).
			Guide("have another agent review with verdict=approve first")
	}

	n, err := m.chains.EntryCount(ws.ChainID)
	if err != nil {
		return MergeResult{}, err
	}
	parent := hashchain.Genesis
	if n > 0 {
		last, err := m.chains.Entry(ws.ChainID, n)
		if err != nil {
			return MergeResult{}, err
		}
		parent = last.ContentHash
	}

	entry := domain.Entry{
		ThoughtNumber: n + 1,
		Content:       mergeMessage,
		AgentID:       agent.ID,
		Timestamp:     time.Now(),
	}
	entry = hashchain.Seal(entry, parent)
	if err := m.chains.SaveEntry(ws.ChainID, entry); err != nil {
		return MergeResult{}, err
	}

	now := time.Now()
	p.Status = domain.ProposalMerged
	p.MergedAt = &now
	if err := m.store.SaveProposal(p); err != nil {
		return MergeResult{}, err
	}

	res := MergeResult{Proposal: p, MergedEntry: entry}
	if p.ProblemID != "" {
		resolved, err := m.problems.Resolve(agent.ID, ws, p.ProblemID, mergeMessage)
		if err != nil {
			return MergeResult{}, err
		}
		res.Problem = &resolved
	}

	m.log.Info().Str("proposal", p.ID).Int("position", entry.ThoughtNumber).Msg("proposal merged")
	m.bus.Publish(domain.Event{Type: domain.EventProposalMerged, WorkspaceID: ws.ID, AgentID: agent.ID, Payload: res})
	return res, nil
}

// Get returns one proposal.
func (m *Manager) Get(workspaceID, proposalID string) (domain.Proposal, error) {
	p, ok := m.store.Proposal(workspaceID, proposalID)
	if !ok {
		return domain.Proposal{}, hive.NotFound("proposal", proposalID)
	}
	return p, nil
}

// List returns all proposals in a workspace.
func (m *Manager) List(workspaceID string) []domain.Proposal {
	return m.store.Proposals(workspaceID)
}
