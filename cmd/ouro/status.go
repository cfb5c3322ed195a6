package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ouroagent/ouro/internal/auditlog"
	"github.com/ouroagent/ouro/internal/config"
	"github.com/ouroagent/ouro/internal/session"
)

var statusConfigPath string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show workspace audit state and recorded runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus()
	},
}

func init() {
	statusCmd.Flags().StringVarP(&statusConfigPath, "config", "c", "", "Path to config file")
}

func showStatus() error {
	var cfg *config.Config
	var err error
	if statusConfigPath != "" {
		cfg, err = config.LoadFromPath(statusConfigPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}

	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)

	audit, err := auditlog.NewManager(cfg.Workspace.DataDir)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}

	fmt.Printf("Workspace: %s\n", cfg.Workspace.Root)
	fmt.Printf("Edited files: %d, audited files: %d\n", audit.EditCount(), audit.AuditCount())

	complete, pending := audit.IsComplete()
	if complete {
		green.Println("Audit state: complete")
	} else {
		red.Printf("Audit state: %d files missing or stale:\n", len(pending))
		for _, path := range pending {
			red.Printf("  - %s\n", path)
		}
	}

	store, err := session.Open(session.DBPath(cfg.Workspace.DataDir))
	if err != nil {
		// No session database yet is a valid state.
		fmt.Println("No recorded sessions.")
		return nil
	}
	defer store.Close()

	runs, err := store.Events(session.EventRunStarted)
	if err != nil {
		return fmt.Errorf("read session log: %w", err)
	}
	fmt.Printf("Recorded runs: %d (%s)\n", len(runs), store.Path())
	return nil
}
