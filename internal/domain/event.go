package domain

import "time"

// EventType classifies workspace activity events.
type EventType string

const (
	EventProblemCreated       EventType = "problem_created"
	EventProblemStatusChanged EventType = "problem_status_changed"
	EventProposalCreated      EventType = "proposal_created"
	EventProposalMerged       EventType = "proposal_merged"
	EventConsensusMarked      EventType = "consensus_marked"
	EventMessagePosted        EventType = "message_posted"
)

// Event is a workspace activity notification. Payload carries the
// result of the operation that caused the event, JSON-serializable.
type Event struct {
	Type        EventType `json:"type"`
	WorkspaceID string    `json:"workspaceId"`
	AgentID     string    `json:"agentId,omitempty"`
	Payload     any       `json:"payload,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}
