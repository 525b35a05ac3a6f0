// Package workspace manages workspace lifecycle and membership, and
// owns the per-workspace locks that serialize all mutating operations
// against one workspace. Reads go against last-committed state without
// taking the workspace lock.
package workspace

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hivemind-sh/hivemind/internal/domain"
	"github.com/hivemind-sh/hivemind/internal/hive"
	"github.com/hivemind-sh/hivemind/internal/logging"
	"github.com/hivemind-sh/hivemind/internal/reasoning"
	"github.com/hivemind-sh/hivemind/internal/store"
)

// Manager handles workspace creation, membership, and listing.
type Manager struct {
	store  store.Store
	chains reasoning.Store
	log    *logging.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewManager creates a workspace manager.
func NewManager(st store.Store, chains reasoning.Store, log *logging.Logger) *Manager {
	return &Manager{
		store:  st,
		chains: chains,
		log:    log.Sub("workspace"),
		locks:  make(map[string]*sync.Mutex),
	}
}

// Locker returns the mutex serializing mutations of one workspace.
// Mutating read-modify-write sequences (cycle check + insert, claim
// check + assign, approval count + merge) hold this for their duration.
func (m *Manager) Locker(workspaceID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.locks[workspaceID]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[workspaceID] = lock
	}
	return lock
}

// Create makes a new workspace with the caller as coordinator. When
// existingChainID is given the workspace adopts that reasoning chain,
// preserving its entries; otherwise a fresh chain is allocated.
func (m *Manager) Create(agent domain.Agent, name, description, existingChainID string) (domain.Workspace, error) {
	if name == "" {
		return domain.Workspace{}, hive.New(hive.CodeInvalidParams, "workspace name is required")
	}

	chainID := existingChainID
	if chainID != "" {
		if _, err := m.chains.EntryCount(chainID); err != nil {
			return domain.Workspace{}, err
		}
	} else {
		var err error
		chainID, err = m.chains.CreateChain()
		if err != nil {
			return domain.Workspace{}, err
		}
	}

	now := time.Now()
	ws := domain.Workspace{
		ID:          uuid.New().String(),
		Name:        name,
		Description: description,
		ChainID:     chainID,
		CreatedAt:   now,
		Members: []domain.Member{{
			AgentID:  agent.ID,
			Name:     agent.Name,
			Role:     domain.RoleCoordinator,
			Presence: domain.PresenceActive,
			JoinedAt: now,
		}},
	}
	if err := m.store.SaveWorkspace(ws); err != nil {
		return domain.Workspace{}, err
	}

	m.log.Info().Str("workspace", ws.ID).Str("name", name).Str("coordinator", agent.ID).Msg("workspace created")
	return ws, nil
}

// JoinSnapshot is returned to a joining agent: the workspace plus the
// currently open problems and proposals so it can orient itself.
type JoinSnapshot struct {
	Workspace     domain.Workspace  `json:"workspace"`
	OpenProblems  []domain.Problem  `json:"openProblems"`
	OpenProposals []domain.Proposal `json:"openProposals"`
}

// Join adds the agent as a contributor. Joining a workspace the agent
// is already in is a no-op that still returns the snapshot. Membership
// is append-only; there is no leave.
func (m *Manager) Join(agent domain.Agent, workspaceID string) (JoinSnapshot, error) {
	lock := m.Locker(workspaceID)
	lock.Lock()
	defer lock.Unlock()

	ws, ok := m.store.Workspace(workspaceID)
	if !ok {
		return JoinSnapshot{}, hive.NotFound("workspace", workspaceID)
	}

	if _, member := ws.MemberByAgent(agent.ID); !member {
		ws.Members = append(ws.Members, domain.Member{
			AgentID:  agent.ID,
			Name:     agent.Name,
			Role:     domain.RoleContributor,
			Presence: domain.PresenceActive,
			JoinedAt: time.Now(),
		})
		if err := m.store.SaveWorkspace(ws); err != nil {
			return JoinSnapshot{}, err
		}
		m.log.Info().Str("workspace", workspaceID).Str("agent", agent.ID).Msg("agent joined")
	}

	snap := JoinSnapshot{Workspace: ws, OpenProblems: []domain.Problem{}, OpenProposals: []domain.Proposal{}}
	for _, p := range m.store.Problems(workspaceID) {
		if p.Status != domain.ProblemResolved {
			snap.OpenProblems = append(snap.OpenProblems, p)
		}
	}
	for _, p := range m.store.Proposals(workspaceID) {
		if p.Status != domain.ProposalMerged {
			snap.OpenProposals = append(snap.OpenProposals, p)
		}
	}
	return snap, nil
}

// List summarizes all workspaces.
func (m *Manager) List() []domain.WorkspaceSummary {
	out := []domain.WorkspaceSummary{}
	for _, ws := range m.store.Workspaces() {
		out = append(out, domain.WorkspaceSummary{
			ID:           ws.ID,
			Name:         ws.Name,
			MemberCount:  len(ws.Members),
			ProblemCount: len(m.store.Problems(ws.ID)),
		})
	}
	return out
}

// Status returns each member's id, name, role, and presence.
func (m *Manager) Status(workspaceID string) ([]domain.Member, error) {
	ws, ok := m.store.Workspace(workspaceID)
	if !ok {
		return nil, hive.NotFound("workspace", workspaceID)
	}
	return ws.Members, nil
}
