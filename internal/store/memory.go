package store

import (
	"sort"
	"sync"

	"github.com/hivemind-sh/hivemind/internal/domain"
)

// Memory is an in-process store. Safe for concurrent use; values are
// copied on the way in and out so callers cannot alias internal state.
type Memory struct {
	mu         sync.RWMutex
	agents     map[string]domain.Agent
	workspaces map[string]domain.Workspace
	problems   map[string]map[string]domain.Problem
	proposals  map[string]map[string]domain.Proposal
	consensus  map[string]map[string]domain.ConsensusMarker
	channels   map[string]map[string][]domain.ChannelMessage
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		agents:     make(map[string]domain.Agent),
		workspaces: make(map[string]domain.Workspace),
		problems:   make(map[string]map[string]domain.Problem),
		proposals:  make(map[string]map[string]domain.Proposal),
		consensus:  make(map[string]map[string]domain.ConsensusMarker),
		channels:   make(map[string]map[string][]domain.ChannelMessage),
	}
}

// SaveAgent stores an agent record.
func (m *Memory) SaveAgent(a domain.Agent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.agents[a.ID] = a
	return nil
}

// Agent returns an agent by id.
func (m *Memory) Agent(id string) (domain.Agent, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.agents[id]
	return a, ok
}

// Agents returns all registered agents sorted by registration time.
func (m *Memory) Agents() []domain.Agent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Agent, 0, len(m.agents))
	for _, a := range m.agents {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RegisteredAt.Before(out[j].RegisteredAt) })
	return out
}

// SaveWorkspace stores a workspace document.
func (m *Memory) SaveWorkspace(w domain.Workspace) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	w.Members = append([]domain.Member(nil), w.Members...)
	m.workspaces[w.ID] = w
	return nil
}

// Workspace returns a workspace by id.
func (m *Memory) Workspace(id string) (domain.Workspace, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	w, ok := m.workspaces[id]
	if ok {
		w.Members = append([]domain.Member(nil), w.Members...)
	}
	return w, ok
}

// Workspaces returns all workspaces sorted by creation time.
func (m *Memory) Workspaces() []domain.Workspace {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Workspace, 0, len(m.workspaces))
	for _, w := range m.workspaces {
		w.Members = append([]domain.Member(nil), w.Members...)
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// SaveProblem stores a problem document.
func (m *Memory) SaveProblem(p domain.Problem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.problems[p.WorkspaceID] == nil {
		m.problems[p.WorkspaceID] = make(map[string]domain.Problem)
	}
	p.DependsOn = append([]string(nil), p.DependsOn...)
	p.Comments = append([]domain.Comment(nil), p.Comments...)
	m.problems[p.WorkspaceID][p.ID] = p
	return nil
}

// Problem returns a problem by workspace and id.
func (m *Memory) Problem(workspaceID, id string) (domain.Problem, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.problems[workspaceID][id]
	if ok {
		p.DependsOn = append([]string(nil), p.DependsOn...)
		p.Comments = append([]domain.Comment(nil), p.Comments...)
	}
	return p, ok
}

// Problems returns a workspace's problems sorted by creation time.
func (m *Memory) Problems(workspaceID string) []domain.Problem {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Problem, 0, len(m.problems[workspaceID]))
	for _, p := range m.problems[workspaceID] {
		p.DependsOn = append([]string(nil), p.DependsOn...)
		p.Comments = append([]domain.Comment(nil), p.Comments...)
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// SaveProposal stores a proposal document.
func (m *Memory) SaveProposal(p domain.Proposal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.proposals[p.WorkspaceID] == nil {
		m.proposals[p.WorkspaceID] = make(map[string]domain.Proposal)
	}
	p.Reviews = append([]domain.Review(nil), p.Reviews...)
	m.proposals[p.WorkspaceID][p.ID] = p
	return nil
}

// Proposal returns a proposal by workspace and id.
func (m *Memory) Proposal(workspaceID, id string) (domain.Proposal, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.proposals[workspaceID][id]
	if ok {
		p.Reviews = append([]domain.Review(nil), p.Reviews...)
	}
	return p, ok
}

// Proposals returns a workspace's proposals sorted by creation time.
func (m *Memory) Proposals(workspaceID string) []domain.Proposal {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Proposal, 0, len(m.proposals[workspaceID]))
	for _, p := range m.proposals[workspaceID] {
		p.Reviews = append([]domain.Review(nil), p.Reviews...)
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// SaveConsensus stores a consensus marker document.
func (m *Memory) SaveConsensus(c domain.ConsensusMarker) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.consensus[c.WorkspaceID] == nil {
		m.consensus[c.WorkspaceID] = make(map[string]domain.ConsensusMarker)
	}
	c.AgreedBy = append([]string(nil), c.AgreedBy...)
	m.consensus[c.WorkspaceID][c.ID] = c
	return nil
}

// Consensus returns a consensus marker by workspace and id.
func (m *Memory) Consensus(workspaceID, id string) (domain.ConsensusMarker, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.consensus[workspaceID][id]
	if ok {
		c.AgreedBy = append([]string(nil), c.AgreedBy...)
	}
	return c, ok
}

// ConsensusList returns a workspace's markers sorted by creation time.
func (m *Memory) ConsensusList(workspaceID string) []domain.ConsensusMarker {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.ConsensusMarker, 0, len(m.consensus[workspaceID]))
	for _, c := range m.consensus[workspaceID] {
		c.AgreedBy = append([]string(nil), c.AgreedBy...)
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// SaveChannel replaces a problem channel's message list.
func (m *Memory) SaveChannel(workspaceID, problemID string, msgs []domain.ChannelMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.channels[workspaceID] == nil {
		m.channels[workspaceID] = make(map[string][]domain.ChannelMessage)
	}
	m.channels[workspaceID][problemID] = append([]domain.ChannelMessage(nil), msgs...)
	return nil
}

// Channel returns a problem channel's messages in stored order. A
// channel that was never written is returned as empty.
func (m *Memory) Channel(workspaceID, problemID string) []domain.ChannelMessage {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.ChannelMessage(nil), m.channels[workspaceID][problemID]...)
}
