package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hivemind-sh/hivemind/internal/channel"
	"github.com/hivemind-sh/hivemind/internal/consensus"
	"github.com/hivemind-sh/hivemind/internal/domain"
	"github.com/hivemind-sh/hivemind/internal/gate"
	"github.com/hivemind-sh/hivemind/internal/hashchain"
	"github.com/hivemind-sh/hivemind/internal/hub"
	"github.com/hivemind-sh/hivemind/internal/logging"
	"github.com/hivemind-sh/hivemind/internal/problem"
	"github.com/hivemind-sh/hivemind/internal/proposal"
	"github.com/hivemind-sh/hivemind/internal/reasoning"
	"github.com/hivemind-sh/hivemind/internal/store"
	"github.com/hivemind-sh/hivemind/internal/workspace"
)

func newDispatcher(t *testing.T) *Dispatcher {
	t.Helper()
	log := logging.New(nil, "silent")
	st := store.NewMemory()
	chains := reasoning.NewMemoryStore()
	bus := hub.New(log)
	g := gate.New(st, nil, log)
	wsm := workspace.NewManager(st, chains, log)
	problems := problem.NewManager(st, chains, wsm, bus, log)
	proposals := proposal.NewManager(st, chains, wsm, problems, bus, log)

	return New(Deps{
		Store:     st,
		Chains:    chains,
		Gate:      g,
		Workspace: wsm,
		Problems:  problems,
		Proposals: proposals,
		Consensus: consensus.NewManager(st, wsm, bus, log),
		Channels:  channel.NewManager(st, wsm, bus, log),
		Bus:       bus,
	}, log)
}

// call runs one operation and decodes the result into target through a
// JSON round trip, the same shape a wire client would see.
func call(t *testing.T, d *Dispatcher, session, op string, args any, target any) Response {
	t.Helper()
	var raw json.RawMessage
	if args != nil {
		data, err := json.Marshal(args)
		require.NoError(t, err)
		raw = data
	}
	resp := d.Dispatch(context.Background(), Request{SessionID: session, Operation: op, Args: raw})
	if resp.OK && target != nil {
		data, err := json.Marshal(resp.Result)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(data, target))
	}
	return resp
}

func mustCall(t *testing.T, d *Dispatcher, session, op string, args any, target any) {
	t.Helper()
	resp := call(t, d, session, op, args, target)
	require.True(t, resp.OK, "operation %s failed: %v", op, resp.Error)
}

func TestUnknownOperation(t *testing.T) {
	d := newDispatcher(t)
	resp := d.Dispatch(context.Background(), Request{Operation: "summon_demon"})
	require.False(t, resp.OK)
	assert.Equal(t, "unknown_operation", resp.Error["code"])
	assert.Equal(t, "summon_demon", resp.Error["operation"])
}

func TestOperationsSorted(t *testing.T) {
	d := newDispatcher(t)
	ops := d.Operations()
	assert.Contains(t, ops, "register")
	assert.Contains(t, ops, "hub_wait")
	assert.IsNonDecreasing(t, ops)
}

func TestStageGating(t *testing.T) {
	d := newDispatcher(t)

	// stage 0 works without identity
	resp := d.Dispatch(context.Background(), Request{Operation: "list_workspaces"})
	assert.True(t, resp.OK)

	// stage 1 rejects an unregistered session, pointing at register
	resp = d.Dispatch(context.Background(), Request{SessionID: "ghost", Operation: "create_workspace"})
	require.False(t, resp.OK)
	assert.Equal(t, "unregistered", resp.Error["code"])
	assert.Contains(t, resp.Error["guidance"], "register")

	// stage 2 rejects an identified non-member
	var agent domain.Agent
	mustCall(t, d, "s1", "register", map[string]any{"name": "alice"}, &agent)
	var ws domain.Workspace
	mustCall(t, d, "s1", "create_workspace", map[string]any{"name": "research"}, &ws)

	var outsider domain.Agent
	mustCall(t, d, "s2", "register", map[string]any{"name": "mallory"}, &outsider)
	resp = call(t, d, "s2", "create_problem", map[string]any{"workspaceId": ws.ID, "title": "x"}, nil)
	require.False(t, resp.OK)
	assert.Equal(t, "not_member", resp.Error["code"])
	assert.Contains(t, resp.Error["guidance"], "join_workspace")
}

func TestErrorPayloadShape(t *testing.T) {
	d := newDispatcher(t)

	var agent domain.Agent
	mustCall(t, d, "s1", "register", map[string]any{"name": "alice"}, &agent)
	var ws domain.Workspace
	mustCall(t, d, "s1", "create_workspace", map[string]any{"name": "research"}, &ws)
	var p domain.Problem
	mustCall(t, d, "s1", "create_problem", map[string]any{"workspaceId": ws.ID, "title": "solo"}, &p)

	// a cycle rejection carries error, code, and context fields flat
	resp := call(t, d, "s1", "add_dependency",
		map[string]any{"workspaceId": ws.ID, "problemId": p.ID, "dependsOnId": p.ID}, nil)
	require.False(t, resp.OK)
	assert.Equal(t, "self_dependency", resp.Error["code"])
	assert.NotEmpty(t, resp.Error["error"])
	_, hasGuidance := resp.Error["guidance"]
	assert.False(t, hasGuidance, "no guidance on invariant violations")
}

func TestWhoamiPartitionsSessions(t *testing.T) {
	d := newDispatcher(t)

	var alice, bob domain.Agent
	mustCall(t, d, "s-alice", "register", map[string]any{"name": "alice"}, &alice)
	mustCall(t, d, "s-bob", "register", map[string]any{"name": "bob"}, &bob)
	require.NotEqual(t, alice.ID, bob.ID)

	var got domain.Agent
	mustCall(t, d, "s-alice", "whoami", nil, &got)
	assert.Equal(t, alice.ID, got.ID)
	mustCall(t, d, "s-bob", "whoami", nil, &got)
	assert.Equal(t, bob.ID, got.ID)
}

// TestCollaborationScenario walks the full two-agent workflow end to
// end: register, create, join, decompose, claim, reason on a branch,
// propose, review, merge, and verify the chain afterwards.
func TestCollaborationScenario(t *testing.T) {
	d := newDispatcher(t)

	var alice, bob domain.Agent
	mustCall(t, d, "s-alice", "register", map[string]any{"name": "alice", "profile": "coordinator"}, &alice)
	mustCall(t, d, "s-bob", "register", map[string]any{"name": "bob"}, &bob)

	var ws domain.Workspace
	mustCall(t, d, "s-alice", "create_workspace", map[string]any{"name": "collatz", "description": "collective attack"}, &ws)

	var snap workspace.JoinSnapshot
	mustCall(t, d, "s-bob", "join_workspace", map[string]any{"workspaceId": ws.ID}, &snap)
	require.Len(t, snap.Workspace.Members, 2)

	// coordinator decomposes, wires a dependency
	var base, top domain.Problem
	mustCall(t, d, "s-alice", "create_problem", map[string]any{"workspaceId": ws.ID, "title": "establish parity argument"}, &base)
	mustCall(t, d, "s-alice", "create_problem", map[string]any{"workspaceId": ws.ID, "title": "extend to odd orbits"}, &top)
	mustCall(t, d, "s-alice", "add_dependency", map[string]any{"workspaceId": ws.ID, "problemId": top.ID, "dependsOnId": base.ID}, &top)

	var ready []domain.Problem
	mustCall(t, d, "s-alice", "ready_problems", map[string]any{"workspaceId": ws.ID}, &ready)
	require.Len(t, ready, 1)
	assert.Equal(t, base.ID, ready[0].ID)

	// alice lays groundwork on the main chain
	var entry domain.Entry
	mustCall(t, d, "s-alice", "append_thought", map[string]any{"workspaceId": ws.ID, "content": "start from the parity of n"}, &entry)
	assert.Equal(t, 1, entry.ThoughtNumber)
	assert.Equal(t, hashchain.Genesis, entry.ParentHash)

	// bob claims and reasons on his own branch
	var claimed domain.Problem
	mustCall(t, d, "s-bob", "claim_problem", map[string]any{"workspaceId": ws.ID, "problemId": base.ID}, &claimed)
	assert.Equal(t, "bob/"+base.ID, claimed.BranchID)
	assert.Equal(t, 1, claimed.ForkPoint)

	var branchEntry domain.Entry
	mustCall(t, d, "s-bob", "append_thought", map[string]any{"workspaceId": ws.ID, "content": "even n halves immediately", "branchId": claimed.BranchID}, &branchEntry)
	assert.Equal(t, 1, branchEntry.ThoughtNumber)
	assert.Equal(t, 1, branchEntry.BranchFromThought)
	assert.Equal(t, entry.ContentHash, branchEntry.ParentHash, "branch chains off the fork entry")

	// bob coordinates in the problem channel
	var msg domain.ChannelMessage
	mustCall(t, d, "s-bob", "post_message", map[string]any{"workspaceId": ws.ID, "problemId": base.ID, "content": "parity argument drafted"}, &msg)
	var msgs []domain.ChannelMessage
	mustCall(t, d, "s-alice", "read_channel", map[string]any{"workspaceId": ws.ID, "problemId": base.ID}, &msgs)
	require.Len(t, msgs, 1)

	// propose, approve, merge
	var prop domain.Proposal
	mustCall(t, d, "s-bob", "create_proposal", map[string]any{
		"workspaceId": ws.ID, "title": "parity argument", "sourceBranch": claimed.BranchID, "problemId": base.ID,
	}, &prop)
	mustCall(t, d, "s-alice", "review_proposal", map[string]any{
		"workspaceId": ws.ID, "proposalId": prop.ID, "verdict": "approve", "reasoning": "holds up",
	}, &prop)

	var merged proposal.MergeResult
	mustCall(t, d, "s-alice", "merge_proposal", map[string]any{
		"workspaceId": ws.ID, "proposalId": prop.ID, "mergeMessage": "merge: parity argument",
	}, &merged)
	assert.Equal(t, 2, merged.MergedEntry.ThoughtNumber)
	require.NotNil(t, merged.Problem)
	assert.Equal(t, domain.ProblemResolved, merged.Problem.Status)

	// the dependent problem is now ready
	mustCall(t, d, "s-alice", "ready_problems", map[string]any{"workspaceId": ws.ID}, &ready)
	require.Len(t, ready, 1)
	assert.Equal(t, top.ID, ready[0].ID)

	// chain and branch verify clean
	var verdict hashchain.Result
	mustCall(t, d, "s-bob", "verify_chain", map[string]any{"workspaceId": ws.ID, "branchId": claimed.BranchID}, &verdict)
	assert.True(t, verdict.Valid)
	assert.Equal(t, 3, verdict.VerifiedCount)

	// consensus on the merged state
	var marker domain.ConsensusMarker
	mustCall(t, d, "s-alice", "mark_consensus", map[string]any{"workspaceId": ws.ID, "name": "parity settled", "thoughtRef": 2}, &marker)
	mustCall(t, d, "s-bob", "endorse_consensus", map[string]any{"workspaceId": ws.ID, "consensusId": marker.ID}, &marker)
	assert.Len(t, marker.AgreedBy, 2)
}

func TestAppendThoughtSequencesMainChain(t *testing.T) {
	d := newDispatcher(t)

	var agent domain.Agent
	mustCall(t, d, "s1", "register", map[string]any{"name": "alice"}, &agent)
	var ws domain.Workspace
	mustCall(t, d, "s1", "create_workspace", map[string]any{"name": "research"}, &ws)

	var prev domain.Entry
	for i := 1; i <= 4; i++ {
		var e domain.Entry
		mustCall(t, d, "s1", "append_thought", map[string]any{"workspaceId": ws.ID, "content": fmt.Sprintf("thought %d", i)}, &e)
		assert.Equal(t, i, e.ThoughtNumber)
		if i > 1 {
			assert.Equal(t, prev.ContentHash, e.ParentHash)
		}
		prev = e
	}

	var verdict hashchain.Result
	mustCall(t, d, "s1", "verify_chain", map[string]any{"workspaceId": ws.ID}, &verdict)
	assert.True(t, verdict.Valid)
	assert.Equal(t, 4, verdict.VerifiedCount)
}

func TestReadChain(t *testing.T) {
	d := newDispatcher(t)

	var agent domain.Agent
	mustCall(t, d, "s1", "register", map[string]any{"name": "alice"}, &agent)
	var ws domain.Workspace
	mustCall(t, d, "s1", "create_workspace", map[string]any{"name": "research"}, &ws)
	var e domain.Entry
	mustCall(t, d, "s1", "append_thought", map[string]any{"workspaceId": ws.ID, "content": "main line"}, &e)
	mustCall(t, d, "s1", "append_thought", map[string]any{"workspaceId": ws.ID, "content": "side line", "branchId": "alice/x"}, &e)

	var main []domain.Entry
	mustCall(t, d, "s1", "read_chain", map[string]any{"workspaceId": ws.ID}, &main)
	require.Len(t, main, 1)
	assert.Equal(t, "main line", main[0].Content)

	var branch []domain.Entry
	mustCall(t, d, "s1", "read_chain", map[string]any{"workspaceId": ws.ID, "branchId": "alice/x"}, &branch)
	require.Len(t, branch, 1)
	assert.Equal(t, "side line", branch[0].Content)
}

func TestHubWaitIterationBudgetOverWire(t *testing.T) {
	d := newDispatcher(t)

	var agent domain.Agent
	mustCall(t, d, "s1", "register", map[string]any{"name": "alice"}, &agent)
	var ws domain.Workspace
	mustCall(t, d, "s1", "create_workspace", map[string]any{"name": "research"}, &ws)

	var res hub.WaitResult
	mustCall(t, d, "s1", "hub_wait", map[string]any{
		"workspaceId": ws.ID, "timeoutSeconds": 55, "iteration": 11,
	}, &res)
	assert.False(t, res.ContinuePolling)
	assert.NotEmpty(t, res.Hint)
}

func TestRolePromptOperation(t *testing.T) {
	d := newDispatcher(t)

	var agent domain.Agent
	mustCall(t, d, "s1", "register", map[string]any{"name": "alice"}, &agent)

	var out struct {
		Role   domain.Role `json:"role"`
		Prompt string      `json:"prompt"`
	}
	mustCall(t, d, "s1", "role_prompt", map[string]any{"role": "coordinator"}, &out)
	assert.Equal(t, domain.RoleCoordinator, out.Role)
	assert.Contains(t, out.Prompt, "alice")

	// defaults to the contributor priming
	mustCall(t, d, "s1", "role_prompt", nil, &out)
	assert.Equal(t, domain.RoleContributor, out.Role)
}

func TestInvalidArgs(t *testing.T) {
	d := newDispatcher(t)

	var agent domain.Agent
	mustCall(t, d, "s1", "register", map[string]any{"name": "alice"}, &agent)

	resp := d.Dispatch(context.Background(), Request{
		SessionID: "s1",
		Operation: "create_workspace",
		Args:      json.RawMessage(`{"name": 42}`),
	})
	require.False(t, resp.OK)
	assert.Equal(t, "invalid_params", resp.Error["code"])
}
