package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hivemind-sh/hivemind/internal/channel"
	"github.com/hivemind-sh/hivemind/internal/config"
	"github.com/hivemind-sh/hivemind/internal/consensus"
	"github.com/hivemind-sh/hivemind/internal/dispatch"
	"github.com/hivemind-sh/hivemind/internal/gate"
	"github.com/hivemind-sh/hivemind/internal/hub"
	"github.com/hivemind-sh/hivemind/internal/problem"
	"github.com/hivemind-sh/hivemind/internal/proposal"
	"github.com/hivemind-sh/hivemind/internal/reasoning"
	"github.com/hivemind-sh/hivemind/internal/store"
	"github.com/hivemind-sh/hivemind/internal/workspace"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the coordination hub over stdio (newline-delimited JSON)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(paths.Config)
			if err != nil {
				return err
			}
			issues := config.Validate(&cfg)
			if len(issues) > 0 {
				for _, issue := range issues {
					log.Error().Str("path", issue.Path).Msg(issue.Message)
				}
				return fmt.Errorf("invalid config: %s", issues[0])
			}

			disp, closer, err := buildDispatcher(cfg)
			if err != nil {
				return err
			}
			if closer != nil {
				defer closer()
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			log.Info().Int("operations", len(disp.Operations())).Msg("hub serving on stdio")
			return dispatch.NewServer(disp, log).Run(ctx, os.Stdin, os.Stdout)
		},
	}
}

// buildDispatcher assembles the store, reasoning backend, gate, and
// managers from configuration. The returned closer releases the chain
// database when one was opened.
func buildDispatcher(cfg config.Config) (*dispatch.Dispatcher, func() error, error) {
	var (
		st     store.Store
		err    error
		closer func() error
	)
	switch cfg.Persistence.Backend {
	case "fs":
		dir := cfg.Persistence.Dir
		if dir == "" {
			dir = paths.State
		}
		st, err = store.OpenFS(dir, log)
		if err != nil {
			return nil, nil, err
		}
	default:
		st = store.NewMemory()
	}

	var chains reasoning.Store
	switch cfg.Reasoning.Store {
	case "sqlite":
		path := cfg.Reasoning.Path
		if path == "" {
			path = paths.Chains
		}
		sq, err := reasoning.OpenSQLite(path, log)
		if err != nil {
			return nil, nil, err
		}
		chains = sq
		closer = sq.Close
	default:
		chains = reasoning.NewMemoryStore()
	}

	var pre *gate.PreResolved
	if cfg.Identity.PreResolvedAgentID != "" || cfg.Identity.PreResolvedAgentName != "" {
		pre = &gate.PreResolved{
			AgentID: cfg.Identity.PreResolvedAgentID,
			Name:    cfg.Identity.PreResolvedAgentName,
		}
	}

	g := gate.New(st, pre, log)
	bus := hub.New(log)
	ws := workspace.NewManager(st, chains, log)
	problems := problem.NewManager(st, chains, ws, bus, log)
	proposals := proposal.NewManager(st, chains, ws, problems, bus, log)

	disp := dispatch.New(dispatch.Deps{
		Store:     st,
		Chains:    chains,
		Gate:      g,
		Workspace: ws,
		Problems:  problems,
		Proposals: proposals,
		Consensus: consensus.NewManager(st, ws, bus, log),
		Channels:  channel.NewManager(st, ws, bus, log),
		Bus:       bus,
	}, log)
	return disp, closer, nil
}
