// Package channel manages per-problem message channels: append-only,
// chronological message lists agents use to coordinate on a problem.
package channel

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

// Manager handles problem channel messaging.
type Manager struct {
	store store.Store
	ws    *workspace.Manager
	bus   *hub.Hub
	log   *logging.Logger
}

// NewManager creates a channel manager.
func NewManager(st store.Store, ws *workspace.Manager, bus *hub.Hub, log *logging.Logger) *Manager {
	return &Manager{store: st, ws: ws, bus: bus, log: log.Sub("channel")}
}

// Post appends a message to a problem's channel and returns it.
func (m *Manager) Post(agent domain.Agent, ws domain.Workspace, problemID, content string) (domain.ChannelMessage, error) {
	if content == "" {
		return domain.ChannelMessage{}, hive.New(hive.CodeInvalidParams, "message content is required")
	}

	lock := m.ws.Locker(ws.ID)
	lock.Lock()
	defer lock.Unlock()

	if _, ok := m.store.Problem(ws.ID, problemID); !ok {
		return domain.ChannelMessage{}, hive.NotFound("problem", problemID)
	}

	msg := domain.ChannelMessage{
		ID:        uuid.New().String(),
		AgentID:   agent.ID,
		Content:   content,
		Timestamp: time.Now(),
	}
	msgs := append(m.store.Channel(ws.ID, problemID), msg)
	if err := m.store.SaveChannel(ws.ID, problemID, msgs); err != nil {
		return domain.ChannelMessage{}, err
	}

	m.bus.Publish(domain.Event{Type: domain.EventMessagePosted, WorkspaceID: ws.ID, AgentID: agent.ID, Payload: msg})
	return msg, nil
}

// Read returns a problem channel's messages in chronological order.
func (m *Manager) Read(ws domain.Workspace, problemID string) ([]domain.ChannelMessage, error) {
	if _, ok := m.store.Problem(ws.ID, problemID); !ok {
		return nil, hive.NotFound("problem", problemID)
	}
	return m.store.Channel(ws.ID, problemID), nil
}
