// Package store provides persistence for coordination state: the agent
// registry and per-workspace problems, proposals, consensus markers,
// and channels. Two backends exist: a plain in-memory store and a
// filesystem store writing one JSON document per entity with
// write-temp-then-rename atomicity.
package store

import "github.com/hivemind-sh/hivemind/internal/domain"

// Store is the repository contract consumed by the managers. Save
// methods replace the stored document for the entity; they never merge.
type Store interface {
	SaveAgent(a domain.Agent) error
	Agent(id string) (domain.Agent, bool)
	Agents() []domain.Agent

	SaveWorkspace(w domain.Workspace) error
	Workspace(id string) (domain.Workspace, bool)
	Workspaces() []domain.Workspace

	SaveProblem(p domain.Problem) error
	Problem(workspaceID, id string) (domain.Problem, bool)
	Problems(workspaceID string) []domain.Problem

	SaveProposal(p domain.Proposal) error
	Proposal(workspaceID, id string) (domain.Proposal, bool)
	Proposals(workspaceID string) []domain.Proposal

	SaveConsensus(c domain.ConsensusMarker) error
	Consensus(workspaceID, id string) (domain.ConsensusMarker, bool)
	ConsensusList(workspaceID string) []domain.ConsensusMarker

	SaveChannel(workspaceID, problemID string, msgs []domain.ChannelMessage) error
	Channel(workspaceID, problemID string) []domain.ChannelMessage
}
