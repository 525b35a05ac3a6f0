package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hivemind-sh/hivemind/internal/config"
	"github.com/hivemind-sh/hivemind/internal/store"
	"github.com/hivemind-sh/hivemind/internal/version"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show hivemind status and configuration summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("hivemind %s (commit %s)\n\n", version.Version, version.Commit)

			fmt.Printf("Config:  %s\n", paths.Config)
			fmt.Printf("State:   %s\n", paths.State)
			fmt.Printf("Chains:  %s\n", paths.Chains)
			fmt.Println()

			cfg, err := config.Load(paths.Config)
			if err != nil {
				if os.IsNotExist(err) {
					fmt.Println("Config:  not found (using defaults)")
				} else {
					fmt.Printf("Config:  error loading: %v\n", err)
				}
				return nil
			}

			backend := cfg.Persistence.Backend
			if backend == "" {
				backend = "memory"
			}
			chainStore := cfg.Reasoning.Store
			if chainStore == "" {
				chainStore = "memory"
			}
			fmt.Printf("Persistence: %s\n", backend)
			fmt.Printf("Reasoning:   %s\n", chainStore)

			if cfg.Identity.PreResolvedAgentName != "" || cfg.Identity.PreResolvedAgentID != "" {
				fmt.Printf("Identity:    pre-resolved (id=%s name=%s)\n",
					cfg.Identity.PreResolvedAgentID, cfg.Identity.PreResolvedAgentName)
			} else {
				fmt.Println("Identity:    explicit registration")
			}

			if backend == "fs" {
				dir := cfg.Persistence.Dir
				if dir == "" {
					dir = paths.State
				}
				st, err := store.OpenFS(dir, log)
				if err != nil {
					fmt.Printf("State:       error loading: %v\n", err)
					return nil
				}
				workspaces := st.Workspaces()
				fmt.Printf("State:       %d agent(s), %d workspace(s)\n", len(st.Agents()), len(workspaces))
				for _, ws := range workspaces {
					fmt.Printf("  %s  %s  members=%d problems=%d\n",
						ws.ID, ws.Name, len(ws.Members), len(st.Problems(ws.ID)))
				}
			}

			issues := config.Validate(&cfg)
			if len(issues) > 0 {
				fmt.Printf("\nValidation issues (%d):\n", len(issues))
				for _, issue := range issues {
					fmt.Printf("  - %s\n", issue)
				}
			}

			return nil
		},
	}
}
