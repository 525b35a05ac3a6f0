// Package dispatch is the single operation entry point: it maps
// {operation, args} requests to manager calls, enforcing disclosure
// stages and workspace membership through the gate before any handler
// runs.
package dispatch

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/hivemind-sh/hivemind/internal/channel"
	"github.com/hivemind-sh/hivemind/internal/consensus"
	"github.com/hivemind-sh/hivemind/internal/domain"
	"github.com/hivemind-sh/hivemind/internal/gate"
	"github.com/hivemind-sh/hivemind/internal/hive"
	"github.com/hivemind-sh/hivemind/internal/hub"
	"github.com/hivemind-sh/hivemind/internal/logging"
	"github.com/hivemind-sh/hivemind/internal/problem"
	"github.com/hivemind-sh/hivemind/internal/proposal"
	"github.com/hivemind-sh/hivemind/internal/reasoning"
	"github.com/hivemind-sh/hivemind/internal/store"
	"github.com/hivemind-sh/hivemind/internal/workspace"
)

// Handler processes one operation.
type Handler func(rc *RequestContext) (any, error)

type operation struct {
	stage   gate.Stage
	handler Handler
}

// Dispatcher routes operations to managers.
type Dispatcher struct {
	gate      *gate.Gate
	ws        *workspace.Manager
	problems  *problem.Manager
	proposals *proposal.Manager
	consensus *consensus.Manager
	channels  *channel.Manager
	bus       *hub.Hub
	chains    reasoning.Store
	log       *logging.Logger

	ops map[string]operation
}

// Deps bundles the collaborators a dispatcher needs.
type Deps struct {
	Store     store.Store
	Chains    reasoning.Store
	Gate      *gate.Gate
	Workspace *workspace.Manager
	Problems  *problem.Manager
	Proposals *proposal.Manager
	Consensus *consensus.Manager
	Channels  *channel.Manager
	Bus       *hub.Hub
}

// New creates a dispatcher and registers all operations.
func New(d Deps, log *logging.Logger) *Dispatcher {
	disp := &Dispatcher{
		gate:      d.Gate,
		ws:        d.Workspace,
		problems:  d.Problems,
		proposals: d.Proposals,
		consensus: d.Consensus,
		channels:  d.Channels,
		bus:       d.Bus,
		chains:    d.Chains,
		log:       log.Sub("dispatch"),
		ops:       make(map[string]operation),
	}
	disp.registerOperations()
	return disp
}

// Handle registers an operation at a disclosure stage.
func (d *Dispatcher) Handle(name string, stage gate.Stage, h Handler) {
	d.ops[name] = operation{stage: stage, handler: h}
}

// Operations returns the sorted operation names, for discovery.
func (d *Dispatcher) Operations() []string {
	names := make([]string, 0, len(d.ops))
	for name := range d.ops {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RequestContext carries everything a handler needs. Agent is resolved
// for stage ≥ 1; Workspace is populated for member-stage operations.
type RequestContext struct {
	Ctx       context.Context
	SessionID string
	Agent     domain.Agent
	Workspace domain.Workspace

	args json.RawMessage
}

// Params unmarshals the request args into target.
func (rc *RequestContext) Params(target any) error {
	if rc.args == nil {
		return nil
	}
	if err := json.Unmarshal(rc.args, target); err != nil {
		return hive.New(hive.CodeInvalidParams, "invalid args: %s", err)
	}
	return nil
}

// Dispatch runs one request through the gate and its handler. Every
// failure comes back as a structured error payload, never a panic.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) Response {
	op, known := d.ops[req.Operation]
	if !known {
		return fail(req.ID, hive.New(hive.CodeUnknownOp, "unknown operation %q", req.Operation).
			With("operation", req.Operation))
	}

	rc := &RequestContext{Ctx: ctx, SessionID: req.SessionID, args: req.Args}

	switch op.stage {
	case gate.StageIdentified:
		agent, err := d.gate.Require(req.SessionID, gate.StageIdentified)
		if err != nil {
			return fail(req.ID, err)
		}
		rc.Agent = agent
	case gate.StageMember:
		var scope struct {
			WorkspaceID string `json:"workspaceId"`
		}
		if err := rc.Params(&scope); err != nil {
			return fail(req.ID, err)
		}
		agent, ws, err := d.gate.RequireMember(req.SessionID, scope.WorkspaceID)
		if err != nil {
			return fail(req.ID, err)
		}
		rc.Agent = agent
		rc.Workspace = ws
	}

	result, err := op.handler(rc)
	if err != nil {
		d.log.Debug().Str("operation", req.Operation).Err(err).Msg("operation rejected")
		return fail(req.ID, err)
	}
	return ok(req.ID, result)
}
