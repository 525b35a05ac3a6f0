package domain

import "time"

// ConsensusMarker is a named, multi-agent-endorsed checkpoint that
// references a position in the reasoning chain. Endorsement only adds
// agents; nothing is ever removed from AgreedBy.
type ConsensusMarker struct {
	ID          string    `json:"id"`
	WorkspaceID string    `json:"workspaceId"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	ThoughtRef  int       `json:"thoughtRef"`
	AgreedBy    []string  `json:"agreedBy"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Endorsed reports whether the agent already endorsed the marker.
func (c *ConsensusMarker) Endorsed(agentID string) bool {
	for _, id := range c.AgreedBy {
		if id == agentID {
			return true
		}
	}
	return false
}
