// Package gate implements progressive disclosure and identity
// resolution. Operations are tiered into three stages; the gate rejects
// calls below the required stage with guidance naming the remedial
// operation. Identities are partitioned strictly by logical session
// key: one gate instance serves many sessions without leakage, and a
// reserved fallback key covers callers that supply no session id.
package gate

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hivemind-sh/hivemind/internal/domain"
	"github.com/hivemind-sh/hivemind/internal/hive"
	"github.com/hivemind-sh/hivemind/internal/logging"
	"github.com/hivemind-sh/hivemind/internal/store"
)

// Stage is a capability tier. Stages are strictly monotonic per call:
// registering unlocks stage 1, joining a workspace unlocks stage 2.
type Stage int

const (
	// StageOpen operations need no identity (register, list workspaces).
	StageOpen Stage = iota
	// StageIdentified operations need a resolved identity.
	StageIdentified
	// StageMember operations additionally need workspace membership.
	StageMember
)

// fallbackSession is the reserved key used when a caller supplies no
// session identifier at all.
const fallbackSession = "~default"

// PreResolved carries an identity supplied via configuration, letting a
// caller skip explicit registration.
type PreResolved struct {
	AgentID string
	Name    string
}

// Gate resolves identities per session and enforces disclosure stages.
type Gate struct {
	store store.Store
	log   *logging.Logger
	pre   *PreResolved

	mu       sync.RWMutex
	sessions map[string]string // session key -> agent id
}

// New creates a gate over the given store. The session map is owned by
// this instance; separate gates never share resolution state.
func New(st store.Store, pre *PreResolved, log *logging.Logger) *Gate {
	return &Gate{
		store:    st,
		log:      log.Sub("gate"),
		pre:      pre,
		sessions: make(map[string]string),
	}
}

func sessionKey(id string) string {
	if id == "" {
		return fallbackSession
	}
	return id
}

// Register creates a new agent identity and binds it to the session.
// Re-registering under the same session replaces the binding.
func (g *Gate) Register(sessionID, name, profile string) (domain.Agent, error) {
	if name == "" {
		return domain.Agent{}, hive.New(hive.CodeInvalidParams, "agent name is required")
	}
	agent := domain.Agent{
		ID:           uuid.New().String(),
		Name:         name,
		Profile:      profile,
		RegisteredAt: time.Now(),
	}
	if err := g.store.SaveAgent(agent); err != nil {
		return domain.Agent{}, err
	}

	g.mu.Lock()
	g.sessions[sessionKey(sessionID)] = agent.ID
	g.mu.Unlock()

	g.log.Info().Str("agent", agent.ID).Str("name", name).Msg("agent registered")
	return agent, nil
}

// Resolve returns the agent bound to a session. A session with no
// explicit registration falls back to the pre-resolved configuration
// identity when one exists, creating its registry record on first use.
func (g *Gate) Resolve(sessionID string) (domain.Agent, error) {
	key := sessionKey(sessionID)

	g.mu.RLock()
	agentID, bound := g.sessions[key]
	g.mu.RUnlock()

	if !bound {
		if g.pre == nil {
			return domain.Agent{}, hive.New(hive.CodeUnregistered, "no identity resolved for this session").
				Guide("call register first")
		}
		return g.resolvePre(key)
	}

	agent, ok := g.store.Agent(agentID)
	if !ok {
		return domain.Agent{}, hive.New(hive.CodeUnregistered, "session identity %s is no longer registered", agentID).
			Guide("call register first")
	}
	return agent, nil
}

// resolvePre binds the configured identity to the session, registering
// it on first use.
func (g *Gate) resolvePre(key string) (domain.Agent, error) {
	agentID := g.pre.AgentID
	if agentID == "" {
		agentID = uuid.New().String()
	}
	agent, ok := g.store.Agent(agentID)
	if !ok {
		agent = domain.Agent{
			ID:           agentID,
			Name:         g.pre.Name,
			RegisteredAt: time.Now(),
		}
		if agent.Name == "" {
			agent.Name = agentID
		}
		if err := g.store.SaveAgent(agent); err != nil {
			return domain.Agent{}, err
		}
	}

	g.mu.Lock()
	g.sessions[key] = agent.ID
	g.mu.Unlock()
	return agent, nil
}

// Require enforces a disclosure stage for a session. StageMember
// additionally needs a workspace id; use RequireMember for that.
func (g *Gate) Require(sessionID string, stage Stage) (domain.Agent, error) {
	if stage == StageOpen {
		return domain.Agent{}, nil
	}
	return g.Resolve(sessionID)
}

// RequireMember resolves the session identity and verifies membership
// in the given workspace. The rejection distinguishes an agent in no
// workspace at all (join guidance) from one in a different workspace.
func (g *Gate) RequireMember(sessionID, workspaceID string) (domain.Agent, domain.Workspace, error) {
	agent, err := g.Resolve(sessionID)
	if err != nil {
		return domain.Agent{}, domain.Workspace{}, err
	}
	if workspaceID == "" {
		return domain.Agent{}, domain.Workspace{}, hive.New(hive.CodeInvalidParams, "workspaceId is required")
	}

	ws, ok := g.store.Workspace(workspaceID)
	if !ok {
		return domain.Agent{}, domain.Workspace{}, hive.NotFound("workspace", workspaceID)
	}
	if _, member := ws.MemberByAgent(agent.ID); member {
		return agent, ws, nil
	}

	for _, other := range g.store.Workspaces() {
		if _, member := other.MemberByAgent(agent.ID); member {
			return domain.Agent{}, domain.Workspace{}, hive.New(hive.CodeWrongWorkspace,
				"agent %s is a member of workspace %s, not %s", agent.Name, other.ID, workspaceID).
				With("memberOf", other.ID)
		}
	}
	return domain.Agent{}, domain.Workspace{}, hive.New(hive.CodeNotMember,
		"agent %s is not in any workspace", agent.Name).
		Guide("call join_workspace to join workspace %s", workspaceID)
}
