package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ouroagent/ouro/internal/agent"
	"github.com/ouroagent/ouro/internal/auditlog"
	"github.com/ouroagent/ouro/internal/config"
	"github.com/ouroagent/ouro/internal/coordinator"
	"github.com/ouroagent/ouro/internal/session"
	"github.com/ouroagent/ouro/internal/toolenv"
	"github.com/ouroagent/ouro/internal/transport"
)

var (
	runConfigPath string
	runWorkspace  string
	runReplayDB   string
	runWatch      bool
)

var runCmd = &cobra.Command{
	Use:   "run \"request\"",
	Short: "Satisfy a request with a team of agents",
	Long: `Run decomposes the request through a manager agent, executes the plan
wave by wave with developer and auditor agents, then runs a final
verification pass over everything that was produced.

With --replay, responses are served from a previous run's session database
instead of calling the API.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRequest(args[0])
	},
}

func init() {
	runCmd.Flags().StringVarP(&runConfigPath, "config", "c", "", "Path to config file")
	runCmd.Flags().StringVarP(&runWorkspace, "workspace", "w", "", "Workspace root (overrides config)")
	runCmd.Flags().StringVar(&runReplayDB, "replay", "", "Replay responses from a recorded session database")
	runCmd.Flags().BoolVar(&runWatch, "watch", true, "Track out-of-band workspace edits with a file watcher")
}

func runRequest(request string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if runWorkspace != "" {
		cfg.Workspace.Root = runWorkspace
		cfg.Workspace.DataDir = ""
		cfg.ApplyFallbacks()
	}

	catalog, err := loadCatalog(cfg)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.Workspace.DataDir, 0755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	store, err := session.Open(session.DBPath(cfg.Workspace.DataDir))
	if err != nil {
		return fmt.Errorf("open session log: %w", err)
	}
	defer store.Close()

	audit, err := auditlog.NewManager(cfg.Workspace.DataDir)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}

	env, err := toolenv.New(cfg.Workspace.Root, cfg.Workspace.MaxFileSize, audit)
	if err != nil {
		return fmt.Errorf("prepare workspace: %w", err)
	}

	if runWatch && runReplayDB == "" {
		watcher, err := auditlog.NewWatcher(audit, cfg.Workspace.Root)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: workspace watcher disabled: %v\n", err)
		} else {
			defer watcher.Close()
		}
	}

	tr, err := buildTransport(cfg)
	if err != nil {
		return err
	}

	debug := coordinator.NewDebugLoggerForDataDir(cfg.Workspace.DataDir)
	defer debug.Close()

	collector := coordinator.NewCollector(store, debug)
	loop := agent.NewLoop(tr, env, collector, audit)
	runner := agent.NewRetryingTaskRunner(loop, store, store,
		cfg.Retry.MaxAttempts, cfg.Retry.BaseTimeout, cfg.Retry.TimeoutGrowth)

	coord := coordinator.New(coordinator.Options{
		Catalog:   catalog,
		Runner:    runner,
		Audit:     audit,
		Collector: collector,
		Events:    store,
		Debug:     debug,
		Execution: cfg.Execution,
		Decompose: cfg.Decompose,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := coord.Satisfy(ctx, request)
	if err != nil {
		return err
	}

	printReport(report)
	return nil
}

func loadConfig() (*config.Config, error) {
	if runConfigPath != "" {
		return config.LoadFromPath(runConfigPath)
	}
	return config.Load()
}

func loadCatalog(cfg *config.Config) (*config.Catalog, error) {
	if cfg.Workspace.RolesFile != "" {
		if _, err := os.Stat(cfg.Workspace.RolesFile); err == nil {
			return config.LoadCatalog(cfg.Workspace.RolesFile)
		}
	}
	return config.DefaultCatalog(), nil
}

func buildTransport(cfg *config.Config) (transport.Transport, error) {
	if runReplayDB != "" {
		recorded, err := session.Open(runReplayDB)
		if err != nil {
			return nil, fmt.Errorf("open replay database: %w", err)
		}
		return transport.NewReplay(recorded), nil
	}
	return transport.NewLive(transport.LiveConfig{
		Model:         cfg.Anthropic.Model,
		APIKey:        cfg.Anthropic.APIKey,
		UseAWSBedrock: cfg.Anthropic.UseAWSBedrock,
		AWSRegion:     cfg.Anthropic.AWSRegion,
		AWSProfile:    cfg.Anthropic.AWSProfile,
	})
}

func printReport(report *coordinator.RunReport) {
	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)

	bold.Printf("\nRun %s\n\n", report.RunID)

	for _, r := range report.Results {
		if r.Failed() {
			red.Printf("  ✗ [wave %d] %s (%s): %s\n", r.Wave, r.Description, r.Agent, r.Reason)
		} else {
			green.Printf("  ✓ [wave %d] %s (%s)\n", r.Wave, r.Description, r.Agent)
		}
	}

	if len(report.Blockers) > 0 {
		yellow.Printf("\nBlockers raised during execution:\n")
		for _, b := range report.Blockers {
			yellow.Printf("  ⚠ %s: %s\n", b.From, b.Message)
		}
	}

	fmt.Println()
	if report.Verdict.Passed {
		green.Println("Verification: PASS")
	} else {
		red.Println("Verification: FAIL (advisory)")
		for _, path := range report.Verdict.MissingOrStale {
			red.Printf("  missing or stale audit: %s\n", path)
		}
	}
}
