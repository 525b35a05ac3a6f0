// Package consensus manages named, multi-agent-endorsed checkpoints
// referencing reasoning-chain positions.
package consensus

import (
	"time"

	"github.com/google/uuid"

	"github.com/hivemind-sh/hivemind/internal/domain"
	"github.com/hivemind-sh/hivemind/internal/hive"
	"github.com/hivemind-sh/hivemind/internal/hub"
	"github.com/hivemind-sh/hivemind/internal/logging"
	"github.com/hivemind-sh/hivemind/internal/store"
	"github.com/hivemind-sh/hivemind/internal/workspace"
)

// Manager handles consensus markers.
type Manager struct {
	store store.Store
	ws    *workspace.Manager
	bus   *hub.Hub
	log   *logging.Logger
}

// NewManager creates a consensus manager.
func NewManager(st store.Store, ws *workspace.Manager, bus *hub.Hub, log *logging.Logger) *Manager {
	return &Manager{store: st, ws: ws, bus: bus, log: log.Sub("consensus")}
}

// Mark creates a consensus marker with the creator pre-endorsed.
func (m *Manager) Mark(agent domain.Agent, ws domain.Workspace, name, description string, thoughtRef int) (domain.ConsensusMarker, error) {
	if name == "" {
		return domain.ConsensusMarker{}, hive.New(hive.CodeInvalidParams, "consensus name is required")
	}

	lock := m.ws.Locker(ws.ID)
	lock.Lock()
	defer lock.Unlock()

	c := domain.ConsensusMarker{
		ID:          uuid.New().String(),
		WorkspaceID: ws.ID,
		Name:        name,
		Description: description,
		ThoughtRef:  thoughtRef,
		AgreedBy:    []string{agent.ID},
		CreatedAt:   time.Now(),
	}
	if err := m.store.SaveConsensus(c); err != nil {
		return domain.ConsensusMarker{}, err
	}

	m.log.Info().Str("workspace", ws.ID).Str("consensus", c.ID).Str("name", name).Msg("consensus marked")
	m.bus.Publish(domain.Event{Type: domain.EventConsensusMarked, WorkspaceID: ws.ID, AgentID: agent.ID, Payload: c})
	return c, nil
}

// Endorse adds the agent to a marker's endorser set. Endorsement only
// adds: re-endorsing is an idempotent no-op returning the marker.
func (m *Manager) Endorse(agent domain.Agent, ws domain.Workspace, consensusID string) (domain.ConsensusMarker, error) {
	lock := m.ws.Locker(ws.ID)
	lock.Lock()
	defer lock.Unlock()

	c, ok := m.store.Consensus(ws.ID, consensusID)
	if !ok {
		return domain.ConsensusMarker{}, hive.NotFound("consensus", consensusID)
	}
	if c.Endorsed(agent.ID) {
		return c, nil
	}

	c.AgreedBy = append(c.AgreedBy, agent.ID)
	if err := m.store.SaveConsensus(c); err != nil {
		return domain.ConsensusMarker{}, err
	}
	return c, nil
}

// List returns all markers for a workspace.
func (m *Manager) List(workspaceID string) []domain.ConsensusMarker {
	return m.store.ConsensusList(workspaceID)
}
