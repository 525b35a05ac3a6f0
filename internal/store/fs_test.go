package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hivemind-sh/hivemind/internal/domain"
	"github.com/hivemind-sh/hivemind/internal/logging"
)

func testLogger() *logging.Logger {
	return logging.New(nil, "silent")
}

func TestOpenFSEmptyDir(t *testing.T) {
	fs, err := OpenFS(t.TempDir(), testLogger())
	require.NoError(t, err)
	assert.Empty(t, fs.Agents())
	assert.Empty(t, fs.Workspaces())
}

func TestFSRoundTrip(t *testing.T) {
	dir := t.TempDir()
	fs, err := OpenFS(dir, testLogger())
	require.NoError(t, err)

	ts := time.Date(2026, 4, 2, 9, 30, 0, 0, time.UTC)
	require.NoError(t, fs.SaveAgent(domain.Agent{ID: "a1", Name: "alice", RegisteredAt: ts}))
	require.NoError(t, fs.SaveAgent(domain.Agent{ID: "a2", Name: "bob", RegisteredAt: ts.Add(time.Minute)}))

	ws := domain.Workspace{
		ID:      "w1",
		Name:    "research",
		ChainID: "chain-1",
		Members: []domain.Member{
			{AgentID: "a1", Name: "alice", Role: domain.RoleCoordinator, Presence: domain.PresenceActive, JoinedAt: ts},
			{AgentID: "a2", Name: "bob", Role: domain.RoleContributor, Presence: domain.PresenceActive, JoinedAt: ts},
		},
		CreatedAt: ts,
	}
	require.NoError(t, fs.SaveWorkspace(ws))

	problem := domain.Problem{
		ID: "p1", WorkspaceID: "w1", Title: "prove it", Status: domain.ProblemOpen,
		CreatedBy: "a1", DependsOn: []string{"p0"}, CreatedAt: ts, UpdatedAt: ts,
	}
	require.NoError(t, fs.SaveProblem(domain.Problem{ID: "p0", WorkspaceID: "w1", Title: "base", Status: domain.ProblemResolved, CreatedBy: "a1", CreatedAt: ts, UpdatedAt: ts}))
	require.NoError(t, fs.SaveProblem(problem))

	require.NoError(t, fs.SaveProposal(domain.Proposal{
		ID: "pr1", WorkspaceID: "w1", Title: "merge me", SourceBranch: "bob/p1",
		CreatedBy: "a2", Status: domain.ProposalOpen, CreatedAt: ts,
	}))
	require.NoError(t, fs.SaveConsensus(domain.ConsensusMarker{
		ID: "c1", WorkspaceID: "w1", Name: "approach settled", ThoughtRef: 3,
		AgreedBy: []string{"a1", "a2"}, CreatedAt: ts,
	}))
	require.NoError(t, fs.SaveChannel("w1", "p1", []domain.ChannelMessage{
		{ID: "m1", AgentID: "a2", Content: "starting on this", Timestamp: ts},
	}))

	// a fresh store over the same directory reconstructs everything
	reloaded, err := OpenFS(dir, testLogger())
	require.NoError(t, err)

	assert.Len(t, reloaded.Agents(), 2)

	gotWS, ok := reloaded.Workspace("w1")
	require.True(t, ok)
	assert.Equal(t, "chain-1", gotWS.ChainID)
	assert.Len(t, gotWS.Members, 2)

	gotP, ok := reloaded.Problem("w1", "p1")
	require.True(t, ok)
	assert.Equal(t, []string{"p0"}, gotP.DependsOn)

	gotPr, ok := reloaded.Proposal("w1", "pr1")
	require.True(t, ok)
	assert.Equal(t, "bob/p1", gotPr.SourceBranch)

	gotC, ok := reloaded.Consensus("w1", "c1")
	require.True(t, ok)
	assert.Equal(t, []string{"a1", "a2"}, gotC.AgreedBy)

	msgs := reloaded.Channel("w1", "p1")
	require.Len(t, msgs, 1)
	assert.Equal(t, "starting on this", msgs[0].Content)
}

func TestFSLayout(t *testing.T) {
	dir := t.TempDir()
	fs, err := OpenFS(dir, testLogger())
	require.NoError(t, err)

	require.NoError(t, fs.SaveWorkspace(domain.Workspace{ID: "w1", Name: "n", ChainID: "c"}))
	require.NoError(t, fs.SaveProblem(domain.Problem{ID: "p1", WorkspaceID: "w1"}))
	require.NoError(t, fs.SaveChannel("w1", "p1", nil))

	assert.FileExists(t, filepath.Join(dir, "workspaces", "w1", "workspace.json"))
	assert.FileExists(t, filepath.Join(dir, "workspaces", "w1", "problems", "p1.json"))
	assert.FileExists(t, filepath.Join(dir, "workspaces", "w1", "channels", "p1.json"))
}

func TestFSNoTempFilesLeftBehind(t *testing.T) {
	dir := t.TempDir()
	fs, err := OpenFS(dir, testLogger())
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		require.NoError(t, fs.SaveAgent(domain.Agent{ID: "a1", Name: "alice"}))
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasPrefix(e.Name(), ".tmp-"), "leftover temp file %s", e.Name())
	}
}

func TestFSIgnoresStrayDirs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "workspaces", "not-a-workspace"), 0o700))

	fs, err := OpenFS(dir, testLogger())
	require.NoError(t, err)
	assert.Empty(t, fs.Workspaces())
}

func TestFSCorruptDocumentFails(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "agents.json"), []byte("{nope"), 0o600))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "workspaces"), 0o700))

	_, err := OpenFS(dir, testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "agents.json")
}
