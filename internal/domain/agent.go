package domain

import "time"

// Agent is a registered reasoning agent identity.
type Agent struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Profile      string    `json:"profile,omitempty"`
	RegisteredAt time.Time `json:"registeredAt"`
}

// Role is an agent's role within a workspace.
type Role string

const (
	RoleCoordinator Role = "coordinator"
	RoleContributor Role = "contributor"
)

// Presence reports whether a member is actively working in a workspace.
type Presence string

const (
	PresenceActive Presence = "active"
	PresenceIdle   Presence = "idle"
)

// Member ties an agent to a workspace with a role.
type Member struct {
	AgentID  string    `json:"agentId"`
	Name     string    `json:"name"`
	Role     Role      `json:"role"`
	Presence Presence  `json:"presence"`
	JoinedAt time.Time `json:"joinedAt"`
}
