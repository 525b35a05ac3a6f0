package dispatch

import (
	"time"

	"github.com/hivemind-sh/hivemind/internal/domain"
	"github.com/hivemind-sh/hivemind/internal/gate"
	"github.com/hivemind-sh/hivemind/internal/hashchain"
	"github.com/hivemind-sh/hivemind/internal/hive"
	"github.com/hivemind-sh/hivemind/internal/hub"
)

// registerOperations wires every operation to its stage and handler.
func (d *Dispatcher) registerOperations() {
	// Stage 0 — no identity required.
	d.Handle("register", gate.StageOpen, d.opRegister)
	d.Handle("list_workspaces", gate.StageOpen, d.opListWorkspaces)

	// Stage 1 — identity required, no workspace.
	d.Handle("whoami", gate.StageIdentified, d.opWhoami)
	d.Handle("create_workspace", gate.StageIdentified, d.opCreateWorkspace)
	d.Handle("join_workspace", gate.StageIdentified, d.opJoinWorkspace)
	d.Handle("role_prompt", gate.StageIdentified, d.opRolePrompt)

	// Stage 2 — workspace membership required.
	d.Handle("workspace_status", gate.StageMember, d.opWorkspaceStatus)
	d.Handle("create_problem", gate.StageMember, d.opCreateProblem)
	d.Handle("create_sub_problem", gate.StageMember, d.opCreateSubProblem)
	d.Handle("claim_problem", gate.StageMember, d.opClaimProblem)
	d.Handle("update_problem", gate.StageMember, d.opUpdateProblem)
	d.Handle("get_problem", gate.StageMember, d.opGetProblem)
	d.Handle("list_problems", gate.StageMember, d.opListProblems)
	d.Handle("add_dependency", gate.StageMember, d.opAddDependency)
	d.Handle("remove_dependency", gate.StageMember, d.opRemoveDependency)
	d.Handle("ready_problems", gate.StageMember, d.opReadyProblems)
	d.Handle("blocked_problems", gate.StageMember, d.opBlockedProblems)
	d.Handle("create_proposal", gate.StageMember, d.opCreateProposal)
	d.Handle("review_proposal", gate.StageMember, d.opReviewProposal)
	d.Handle("merge_proposal", gate.StageMember, d.opMergeProposal)
	d.Handle("list_proposals", gate.StageMember, d.opListProposals)
	d.Handle("branch_diff", gate.StageMember, d.opBranchDiff)
	d.Handle("mark_consensus", gate.StageMember, d.opMarkConsensus)
	d.Handle("endorse_consensus", gate.StageMember, d.opEndorseConsensus)
	d.Handle("list_consensus", gate.StageMember, d.opListConsensus)
	d.Handle("post_message", gate.StageMember, d.opPostMessage)
	d.Handle("read_channel", gate.StageMember, d.opReadChannel)
	d.Handle("append_thought", gate.StageMember, d.opAppendThought)
	d.Handle("read_chain", gate.StageMember, d.opReadChain)
	d.Handle("verify_chain", gate.StageMember, d.opVerifyChain)
	d.Handle("hub_wait", gate.StageMember, d.opHubWait)
}

// --- Stage 0 ---

func (d *Dispatcher) opRegister(rc *RequestContext) (any, error) {
	var p struct {
		Name    string `json:"name"`
		Profile string `json:"profile,omitempty"`
	}
	if err := rc.Params(&p); err != nil {
		return nil, err
	}
	return d.gate.Register(rc.SessionID, p.Name, p.Profile)
}

func (d *Dispatcher) opListWorkspaces(rc *RequestContext) (any, error) {
	return d.ws.List(), nil
}

// --- Stage 1 ---

func (d *Dispatcher) opWhoami(rc *RequestContext) (any, error) {
	return rc.Agent, nil
}

func (d *Dispatcher) opCreateWorkspace(rc *RequestContext) (any, error) {
	var p struct {
		Name        string `json:"name"`
		Description string `json:"description,omitempty"`
		ChainID     string `json:"chainId,omitempty"`
	}
	if err := rc.Params(&p); err != nil {
		return nil, err
	}
	return d.ws.Create(rc.Agent, p.Name, p.Description, p.ChainID)
}

func (d *Dispatcher) opJoinWorkspace(rc *RequestContext) (any, error) {
	var p struct {
		WorkspaceID string `json:"workspaceId"`
	}
	if err := rc.Params(&p); err != nil {
		return nil, err
	}
	if p.WorkspaceID == "" {
		return nil, hive.New(hive.CodeInvalidParams, "workspaceId is required")
	}
	return d.ws.Join(rc.Agent, p.WorkspaceID)
}

func (d *Dispatcher) opRolePrompt(rc *RequestContext) (any, error) {
	var p struct {
		Role domain.Role `json:"role,omitempty"`
	}
	if err := rc.Params(&p); err != nil {
		return nil, err
	}
	role := p.Role
	if role == "" {
		role = domain.RoleContributor
	}
	return map[string]any{"role": role, "prompt": gate.RolePrompt(rc.Agent, role)}, nil
}

// --- Stage 2: workspace ---

func (d *Dispatcher) opWorkspaceStatus(rc *RequestContext) (any, error) {
	return d.ws.Status(rc.Workspace.ID)
}

// --- Stage 2: problems ---

type problemParams struct {
	WorkspaceID string `json:"workspaceId"`
	ProblemID   string `json:"problemId"`
}

func (d *Dispatcher) opCreateProblem(rc *RequestContext) (any, error) {
	var p struct {
		Title       string `json:"title"`
		Description string `json:"description,omitempty"`
	}
	if err := rc.Params(&p); err != nil {
		return nil, err
	}
	return d.problems.Create(rc.Agent, rc.Workspace, p.Title, p.Description, "")
}

func (d *Dispatcher) opCreateSubProblem(rc *RequestContext) (any, error) {
	var p struct {
		ParentID    string `json:"parentId"`
		Title       string `json:"title"`
		Description string `json:"description,omitempty"`
	}
	if err := rc.Params(&p); err != nil {
		return nil, err
	}
	if p.ParentID == "" {
		return nil, hive.New(hive.CodeInvalidParams, "parentId is required")
	}
	return d.problems.Create(rc.Agent, rc.Workspace, p.Title, p.Description, p.ParentID)
}

func (d *Dispatcher) opClaimProblem(rc *RequestContext) (any, error) {
	var p struct {
		ProblemID string `json:"problemId"`
		BranchID  string `json:"branchId,omitempty"`
	}
	if err := rc.Params(&p); err != nil {
		return nil, err
	}
	return d.problems.Claim(rc.Agent, rc.Workspace, p.ProblemID, p.BranchID)
}

func (d *Dispatcher) opUpdateProblem(rc *RequestContext) (any, error) {
	var p struct {
		ProblemID  string               `json:"problemId"`
		Status     domain.ProblemStatus `json:"status,omitempty"`
		Resolution string               `json:"resolution,omitempty"`
		Comment    string               `json:"comment,omitempty"`
	}
	if err := rc.Params(&p); err != nil {
		return nil, err
	}
	return d.problems.Update(rc.Agent, rc.Workspace, p.ProblemID, p.Status, p.Resolution, p.Comment)
}

func (d *Dispatcher) opGetProblem(rc *RequestContext) (any, error) {
	var p problemParams
	if err := rc.Params(&p); err != nil {
		return nil, err
	}
	return d.problems.Get(rc.Workspace.ID, p.ProblemID)
}

func (d *Dispatcher) opListProblems(rc *RequestContext) (any, error) {
	return d.problems.List(rc.Workspace.ID), nil
}

func (d *Dispatcher) opAddDependency(rc *RequestContext) (any, error) {
	var p struct {
		ProblemID   string `json:"problemId"`
		DependsOnID string `json:"dependsOnId"`
	}
	if err := rc.Params(&p); err != nil {
		return nil, err
	}
	return d.problems.AddDependency(rc.Workspace, p.ProblemID, p.DependsOnID)
}

func (d *Dispatcher) opRemoveDependency(rc *RequestContext) (any, error) {
	var p struct {
		ProblemID   string `json:"problemId"`
		DependsOnID string `json:"dependsOnId"`
	}
	if err := rc.Params(&p); err != nil {
		return nil, err
	}
	return d.problems.RemoveDependency(rc.Workspace, p.ProblemID, p.DependsOnID)
}

func (d *Dispatcher) opReadyProblems(rc *RequestContext) (any, error) {
	return d.problems.Ready(rc.Workspace.ID), nil
}

func (d *Dispatcher) opBlockedProblems(rc *RequestContext) (any, error) {
	return d.problems.Blocked(rc.Workspace.ID), nil
}

// --- Stage 2: proposals ---

func (d *Dispatcher) opCreateProposal(rc *RequestContext) (any, error) {
	var p struct {
		Title        string `json:"title"`
		Description  string `json:"description,omitempty"`
		SourceBranch string `json:"sourceBranch"`
		ProblemID    string `json:"problemId,omitempty"`
	}
	if err := rc.Params(&p); err != nil {
		return nil, err
	}
	return d.proposals.Create(rc.Agent, rc.Workspace, p.Title, p.Description, p.SourceBranch, p.ProblemID)
}

func (d *Dispatcher) opReviewProposal(rc *RequestContext) (any, error) {
	var p struct {
		ProposalID string         `json:"proposalId"`
		Verdict    domain.Verdict `json:"verdict"`
		Reasoning  string         `json:"reasoning,omitempty"`
	}
	if err := rc.Params(&p); err != nil {
		return nil, err
	}
	return d.proposals.Review(rc.Agent, rc.Workspace, p.ProposalID, p.Verdict, p.Reasoning)
}

func (d *Dispatcher) opMergeProposal(rc *RequestContext) (any, error) {
	var p struct {
		ProposalID   string `json:"proposalId"`
		MergeMessage string `json:"mergeMessage,omitempty"`
	}
	if err := rc.Params(&p); err != nil {
		return nil, err
	}
	return d.proposals.Merge(rc.Agent, rc.Workspace, p.ProposalID, p.MergeMessage)
}

func (d *Dispatcher) opListProposals(rc *RequestContext) (any, error) {
	return d.proposals.List(rc.Workspace.ID), nil
}

func (d *Dispatcher) opBranchDiff(rc *RequestContext) (any, error) {
	var p struct {
		BranchA string `json:"branchA"`
		BranchB string `json:"branchB"`
	}
	if err := rc.Params(&p); err != nil {
		return nil, err
	}
	return d.proposals.BranchDiff(rc.Workspace, p.BranchA, p.BranchB)
}

// --- Stage 2: consensus + channels ---

func (d *Dispatcher) opMarkConsensus(rc *RequestContext) (any, error) {
	var p struct {
		Name        string `json:"name"`
		Description string `json:"description,omitempty"`
		ThoughtRef  int    `json:"thoughtRef"`
	}
	if err := rc.Params(&p); err != nil {
		return nil, err
	}
	return d.consensus.Mark(rc.Agent, rc.Workspace, p.Name, p.Description, p.ThoughtRef)
}

func (d *Dispatcher) opEndorseConsensus(rc *RequestContext) (any, error) {
	var p struct {
		ConsensusID string `json:"consensusId"`
	}
	if err := rc.Params(&p); err != nil {
		return nil, err
	}
	return d.consensus.Endorse(rc.Agent, rc.Workspace, p.ConsensusID)
}

func (d *Dispatcher) opListConsensus(rc *RequestContext) (any, error) {
	return d.consensus.List(rc.Workspace.ID), nil
}

func (d *Dispatcher) opPostMessage(rc *RequestContext) (any, error) {
	var p struct {
		ProblemID string `json:"problemId"`
		Content   string `json:"content"`
	}
	if err := rc.Params(&p); err != nil {
		return nil, err
	}
	return d.channels.Post(rc.Agent, rc.Workspace, p.ProblemID, p.Content)
}

func (d *Dispatcher) opReadChannel(rc *RequestContext) (any, error) {
	var p problemParams
	if err := rc.Params(&p); err != nil {
		return nil, err
	}
	return d.channels.Read(rc.Workspace, p.ProblemID)
}

// --- Stage 2: reasoning chain ---

func (d *Dispatcher) opAppendThought(rc *RequestContext) (any, error) {
	var p struct {
		Content  string `json:"content"`
		BranchID string `json:"branchId,omitempty"`
	}
	if err := rc.Params(&p); err != nil {
		return nil, err
	}
	if p.Content == "" {
		return nil, hive.New(hive.CodeInvalidParams, "content is required")
	}

	lock := d.ws.Locker(rc.Workspace.ID)
	lock.Lock()
	defer lock.Unlock()

	chainID := rc.Workspace.ChainID
	if p.BranchID == "" {
		return d.appendMain(chainID, rc.Agent.ID, p.Content)
	}
	return d.appendBranch(rc.Workspace, rc.Agent.ID, p.BranchID, p.Content)
}

// appendMain seals and saves the next main-chain entry.
func (d *Dispatcher) appendMain(chainID, agentID, content string) (any, error) {
	n, err := d.chains.EntryCount(chainID)
	if err != nil {
		return nil, err
	}
	parent := hashchain.Genesis
	if n > 0 {
		last, err := d.chains.Entry(chainID, n)
		if err != nil {
			return nil, err
		}
		parent = last.ContentHash
	}
	entry := hashchain.Seal(domain.Entry{
		ThoughtNumber: n + 1,
		Content:       content,
		AgentID:       agentID,
		Timestamp:     time.Now(),
	}, parent)
	if err := d.chains.SaveEntry(chainID, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// appendBranch seals and saves the next entry on a branch. The first
// branch entry records the fork point of the problem claimed onto the
// branch and chains off the fork entry's digest.
func (d *Dispatcher) appendBranch(ws domain.Workspace, agentID, branchID, content string) (any, error) {
	existing, err := d.chains.Branch(ws.ChainID, branchID)
	if err != nil {
		return nil, err
	}

	entry := domain.Entry{
		ThoughtNumber: len(existing) + 1,
		Content:       content,
		AgentID:       agentID,
		BranchID:      branchID,
		Timestamp:     time.Now(),
	}

	var parent string
	if len(existing) > 0 {
		entry.BranchFromThought = existing[0].BranchFromThought
		parent = existing[len(existing)-1].ContentHash
	} else {
		entry.BranchFromThought = d.forkPointFor(ws.ID, branchID)
		parent = hashchain.Genesis
		if entry.BranchFromThought > 0 {
			forkEntry, err := d.chains.Entry(ws.ChainID, entry.BranchFromThought)
			if err != nil {
				return nil, err
			}
			parent = forkEntry.ContentHash
		}
	}

	entry = hashchain.Seal(entry, parent)
	if err := d.chains.SaveBranchEntry(ws.ChainID, branchID, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// forkPointFor finds the fork point recorded when a problem was
// claimed onto the branch; zero when no problem references it.
func (d *Dispatcher) forkPointFor(workspaceID, branchID string) int {
	for _, p := range d.problems.List(workspaceID) {
		if p.BranchID == branchID {
			return p.ForkPoint
		}
	}
	return 0
}

func (d *Dispatcher) opReadChain(rc *RequestContext) (any, error) {
	var p struct {
		BranchID string `json:"branchId,omitempty"`
	}
	if err := rc.Params(&p); err != nil {
		return nil, err
	}
	if p.BranchID != "" {
		return d.chains.Branch(rc.Workspace.ChainID, p.BranchID)
	}
	return d.chains.Entries(rc.Workspace.ChainID)
}

func (d *Dispatcher) opVerifyChain(rc *RequestContext) (any, error) {
	var p struct {
		BranchID string `json:"branchId,omitempty"`
	}
	if err := rc.Params(&p); err != nil {
		return nil, err
	}
	entries, err := d.chains.Entries(rc.Workspace.ChainID)
	if err != nil {
		return nil, err
	}
	if p.BranchID != "" {
		branch, err := d.chains.Branch(rc.Workspace.ChainID, p.BranchID)
		if err != nil {
			return nil, err
		}
		entries = append(entries, branch...)
	}
	return hashchain.Verify(entries), nil
}

// --- Stage 2: events ---

func (d *Dispatcher) opHubWait(rc *RequestContext) (any, error) {
	var p struct {
		TimeoutSeconds int                `json:"timeoutSeconds,omitempty"`
		EventTypes     []domain.EventType `json:"eventTypes,omitempty"`
		Iteration      int                `json:"iteration,omitempty"`
		MaxIterations  int                `json:"maxIterations,omitempty"`
	}
	if err := rc.Params(&p); err != nil {
		return nil, err
	}
	return d.bus.Wait(rc.Ctx, hub.WaitParams{
		WorkspaceID:    rc.Workspace.ID,
		TimeoutSeconds: p.TimeoutSeconds,
		Types:          p.EventTypes,
		Iteration:      p.Iteration,
		MaxIterations:  p.MaxIterations,
	}), nil
}
