// Package problem manages the problem lifecycle and the dependency
// graph: creation, claiming onto reasoning branches, updates, and the
// acyclic dependsOn relation with ready/blocked queries.
package problem

import (
	"time"

	"github.com/google/uuid"

	"github.com/hivemind-sh/hivemind/internal/domain"
	"github.com/hivemind-sh/hivemind/internal/hive"
	"github.com/hivemind-sh/hivemind/internal/hub"
	"github.com/hivemind-sh/hivemind/internal/logging"
	"github.com/hivemind-sh/hivemind/internal/reasoning"
	"github.com/hivemind-sh/hivemind/internal/store"
	"github.com/hivemind-sh/hivemind/internal/workspace"
)

// Manager handles problem operations within workspaces.
type Manager struct {
	store  store.Store
	chains reasoning.Store
	ws     *workspace.Manager
	bus    *hub.Hub
	log    *logging.Logger
}

// NewManager creates a problem manager.
func NewManager(st store.Store, chains reasoning.Store, ws *workspace.Manager, bus *hub.Hub, log *logging.Logger) *Manager {
	return &Manager{store: st, chains: chains, ws: ws, bus: bus, log: log.Sub("problem")}
}

// Create makes a new open problem with an empty discussion channel.
// Coordinator-only. A non-empty parentID creates a sub-problem; parent
// and child lifecycles stay independent.
func (m *Manager) Create(agent domain.Agent, ws domain.Workspace, title, description, parentID string) (domain.Problem, error) {
	if title == "" {
		return domain.Problem{}, hive.New(hive.CodeInvalidParams, "problem title is required")
	}
	member, _ := ws.MemberByAgent(agent.ID)
	if member.Role != domain.RoleCoordinator {
		return domain.Problem{}, hive.New(hive.CodeNotCoordinator, "only the coordinator can create problems")
	}

	lock := m.ws.Locker(ws.ID)
	lock.Lock()
	defer lock.Unlock()

	if parentID != "" {
		if _, ok := m.store.Problem(ws.ID, parentID); !ok {
			return domain.Problem{}, hive.NotFound("problem", parentID)
		}
	}

	now := time.Now()
	p := domain.Problem{
		ID:          uuid.New().String(),
		WorkspaceID: ws.ID,
		Title:       title,
		Description: description,
		Status:      domain.ProblemOpen,
		CreatedBy:   agent.ID,
		ParentID:    parentID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := m.store.SaveProblem(p); err != nil {
		return domain.Problem{}, err
	}
	if err := m.store.SaveChannel(ws.ID, p.ID, []domain.ChannelMessage{}); err != nil {
		return domain.Problem{}, err
	}

	m.log.Info().Str("workspace", ws.ID).Str("problem", p.ID).Str("title", title).Msg("problem created")
	m.bus.Publish(domain.Event{Type: domain.EventProblemCreated, WorkspaceID: ws.ID, AgentID: agent.ID, Payload: p})
	return p, nil
}

// Claim assigns an open problem to the agent and opens a reasoning
// branch for it. With no branch name given, one is derived as
// slug(agentName)/problemID. The branch's fork point is the current
// length of the main chain.
func (m *Manager) Claim(agent domain.Agent, ws domain.Workspace, problemID, branchID string) (domain.Problem, error) {
	lock := m.ws.Locker(ws.ID)
	lock.Lock()
	defer lock.Unlock()

	p, ok := m.store.Problem(ws.ID, problemID)
	if !ok {
		return domain.Problem{}, hive.NotFound("problem", problemID)
	}
	if p.AssignedTo != "" {
		return domain.Problem{}, hive.New(hive.CodeAlreadyClaimed,
			"problem %s is already claimed by %s", problemID, p.AssignedTo).
			With("assignedTo", p.AssignedTo)
	}

	if branchID == "" {
		name := agent.Name
		if name == "" {
			name = agent.ID
		}
		s := Slug(name)
		if s == "" {
			s = agent.ID
		}
		branchID = s + "/" + problemID
	}

	forkPoint, err := m.chains.EntryCount(ws.ChainID)
	if err != nil {
		return domain.Problem{}, err
	}

	p.Status = domain.ProblemInProgress
	p.AssignedTo = agent.ID
	p.BranchID = branchID
	p.ForkPoint = forkPoint
	p.UpdatedAt = time.Now()
	if err := m.store.SaveProblem(p); err != nil {
		return domain.Problem{}, err
	}

	m.log.Info().Str("problem", problemID).Str("agent", agent.ID).Str("branch", branchID).Msg("problem claimed")
	m.bus.Publish(domain.Event{Type: domain.EventProblemStatusChanged, WorkspaceID: ws.ID, AgentID: agent.ID, Payload: p})
	return p, nil
}

// Update applies a status transition, resolution text, and/or an
// appended comment. Legal transitions: open→in-progress,
// in-progress→resolved, and resolved→in-progress (reopen).
func (m *Manager) Update(agent domain.Agent, ws domain.Workspace, problemID string, status domain.ProblemStatus, resolution, comment string) (domain.Problem, error) {
	lock := m.ws.Locker(ws.ID)
	lock.Lock()
	defer lock.Unlock()

	p, ok := m.store.Problem(ws.ID, problemID)
	if !ok {
		return domain.Problem{}, hive.NotFound("problem", problemID)
	}

	statusChanged := false
	if status != "" && status != p.Status {
		if !validTransition(p.Status, status) {
			return domain.Problem{}, hive.New(hive.CodeInvalidParams,
				"cannot transition problem from %s to %s", p.Status, status)
		}
		p.Status = status
		statusChanged = true
	}
	if resolution != "" {
		p.Resolution = resolution
	}
	if comment != "" {
		p.Comments = append(p.Comments, domain.Comment{
			AgentID:   agent.ID,
			Content:   comment,
			Timestamp: time.Now(),
		})
	}
	p.UpdatedAt = time.Now()
	if err := m.store.SaveProblem(p); err != nil {
		return domain.Problem{}, err
	}

	if statusChanged {
		m.bus.Publish(domain.Event{Type: domain.EventProblemStatusChanged, WorkspaceID: ws.ID, AgentID: agent.ID, Payload: p})
	}
	return p, nil
}

func validTransition(from, to domain.ProblemStatus) bool {
	switch from {
	case domain.ProblemOpen:
		return to == domain.ProblemInProgress
	case domain.ProblemInProgress:
		return to == domain.ProblemResolved
	case domain.ProblemResolved:
		return to == domain.ProblemInProgress
	}
	return false
}

// Resolve force-resolves a problem (used by proposal merge).
func (m *Manager) Resolve(agentID string, ws domain.Workspace, problemID, resolution string) (domain.Problem, error) {
	p, ok := m.store.Problem(ws.ID, problemID)
	if !ok {
		return domain.Problem{}, hive.NotFound("problem", problemID)
	}
	p.Status = domain.ProblemResolved
	if resolution != "" {
		p.Resolution = resolution
	}
	p.UpdatedAt = time.Now()
	if err := m.store.SaveProblem(p); err != nil {
		return domain.Problem{}, err
	}
	m.bus.Publish(domain.Event{Type: domain.EventProblemStatusChanged, WorkspaceID: ws.ID, AgentID: agentID, Payload: p})
	return p, nil
}
