package gate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hivemind-sh/hivemind/internal/domain"
	"github.com/hivemind-sh/hivemind/internal/hive"
	"github.com/hivemind-sh/hivemind/internal/logging"
	"github.com/hivemind-sh/hivemind/internal/store"
)

func testGate(pre *PreResolved) (*Gate, store.Store) {
	st := store.NewMemory()
	return New(st, pre, logging.New(nil, "silent")), st
}

func TestRegister(t *testing.T) {
	g, st := testGate(nil)

	agent, err := g.Register("s1", "alice", "theorem prover")
	require.NoError(t, err)
	assert.NotEmpty(t, agent.ID)
	assert.Equal(t, "alice", agent.Name)
	assert.Equal(t, "theorem prover", agent.Profile)

	stored, ok := st.Agent(agent.ID)
	require.True(t, ok)
	assert.Equal(t, "alice", stored.Name)
}

func TestRegisterRequiresName(t *testing.T) {
	g, _ := testGate(nil)
	_, err := g.Register("s1", "", "")
	assert.Equal(t, hive.CodeInvalidParams, hive.CodeOf(err))
}

func TestResolveUnregistered(t *testing.T) {
	g, _ := testGate(nil)

	_, err := g.Resolve("s1")
	require.Error(t, err)
	he := hive.AsError(err)
	assert.Equal(t, hive.CodeUnregistered, he.Code)
	assert.Contains(t, he.Guidance, "register")
}

func TestSessionsArePartitioned(t *testing.T) {
	g, _ := testGate(nil)

	alice, err := g.Register("s-alice", "alice", "")
	require.NoError(t, err)
	bob, err := g.Register("s-bob", "bob", "")
	require.NoError(t, err)
	require.NotEqual(t, alice.ID, bob.ID)

	gotA, err := g.Resolve("s-alice")
	require.NoError(t, err)
	gotB, err := g.Resolve("s-bob")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, gotA.ID)
	assert.Equal(t, bob.ID, gotB.ID)

	// a third session sees neither
	_, err = g.Resolve("s-carol")
	assert.Equal(t, hive.CodeUnregistered, hive.CodeOf(err))
}

func TestReRegisterReplacesBinding(t *testing.T) {
	g, _ := testGate(nil)

	first, err := g.Register("s1", "alice", "")
	require.NoError(t, err)
	second, err := g.Register("s1", "alice-v2", "")
	require.NoError(t, err)
	require.NotEqual(t, first.ID, second.ID)

	got, err := g.Resolve("s1")
	require.NoError(t, err)
	assert.Equal(t, second.ID, got.ID)
}

func TestFallbackSession(t *testing.T) {
	g, _ := testGate(nil)

	agent, err := g.Register("", "anon-worker", "")
	require.NoError(t, err)

	got, err := g.Resolve("")
	require.NoError(t, err)
	assert.Equal(t, agent.ID, got.ID)
}

func TestPreResolvedIdentity(t *testing.T) {
	g, st := testGate(&PreResolved{AgentID: "cfg-agent", Name: "queen"})

	agent, err := g.Resolve("s1")
	require.NoError(t, err)
	assert.Equal(t, "cfg-agent", agent.ID)
	assert.Equal(t, "queen", agent.Name)

	// first resolve creates the registry record
	_, ok := st.Agent("cfg-agent")
	assert.True(t, ok)

	// explicit registration still wins over the configured identity
	other, err := g.Register("s2", "worker", "")
	require.NoError(t, err)
	got, err := g.Resolve("s2")
	require.NoError(t, err)
	assert.Equal(t, other.ID, got.ID)
}

func TestRequireOpenStage(t *testing.T) {
	g, _ := testGate(nil)
	_, err := g.Require("never-registered", StageOpen)
	assert.NoError(t, err)
}

func TestRequireIdentifiedStage(t *testing.T) {
	g, _ := testGate(nil)

	_, err := g.Require("s1", StageIdentified)
	assert.Equal(t, hive.CodeUnregistered, hive.CodeOf(err))

	agent, err := g.Register("s1", "alice", "")
	require.NoError(t, err)
	got, err := g.Require("s1", StageIdentified)
	require.NoError(t, err)
	assert.Equal(t, agent.ID, got.ID)
}

func TestRequireMember(t *testing.T) {
	g, st := testGate(nil)

	alice, err := g.Register("s-alice", "alice", "")
	require.NoError(t, err)
	_, err = g.Register("s-bob", "bob", "")
	require.NoError(t, err)

	ws := domain.Workspace{
		ID: "w1", Name: "research", ChainID: "c1",
		Members:   []domain.Member{{AgentID: alice.ID, Name: "alice", Role: domain.RoleCoordinator}},
		CreatedAt: time.Now(),
	}
	require.NoError(t, st.SaveWorkspace(ws))

	gotAgent, gotWS, err := g.RequireMember("s-alice", "w1")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, gotAgent.ID)
	assert.Equal(t, "w1", gotWS.ID)

	// bob is in no workspace: rejection points at join_workspace
	_, _, err = g.RequireMember("s-bob", "w1")
	he := hive.AsError(err)
	assert.Equal(t, hive.CodeNotMember, he.Code)
	assert.Contains(t, he.Guidance, "join_workspace")

	// missing workspace id
	_, _, err = g.RequireMember("s-alice", "")
	assert.Equal(t, hive.CodeInvalidParams, hive.CodeOf(err))

	// unknown workspace
	_, _, err = g.RequireMember("s-alice", "w404")
	assert.Equal(t, hive.CodeNotFound, hive.CodeOf(err))
}

func TestRequireMemberWrongWorkspace(t *testing.T) {
	g, st := testGate(nil)

	alice, err := g.Register("s-alice", "alice", "")
	require.NoError(t, err)

	require.NoError(t, st.SaveWorkspace(domain.Workspace{
		ID: "w1", Name: "home", ChainID: "c1",
		Members: []domain.Member{{AgentID: alice.ID, Role: domain.RoleCoordinator}},
	}))
	require.NoError(t, st.SaveWorkspace(domain.Workspace{
		ID: "w2", Name: "other", ChainID: "c2",
		Members: []domain.Member{{AgentID: "someone-else", Role: domain.RoleCoordinator}},
	}))

	_, _, err = g.RequireMember("s-alice", "w2")
	he := hive.AsError(err)
	assert.Equal(t, hive.CodeWrongWorkspace, he.Code)
	assert.Equal(t, "w1", he.Context["memberOf"])
}

func TestRolePrompt(t *testing.T) {
	agent := domain.Agent{ID: "a1", Name: "alice"}

	coord := RolePrompt(agent, domain.RoleCoordinator)
	assert.Contains(t, coord, "alice")
	assert.Contains(t, coord, "coordinator")

	contrib := RolePrompt(agent, domain.RoleContributor)
	assert.Contains(t, contrib, "alice")
	assert.Contains(t, contrib, "contributor")
	assert.NotEqual(t, coord, contrib)
}
