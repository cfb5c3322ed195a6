package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "ouro",
	Short: "Multi-agent task coordinator",
	Long: `Ouro satisfies a high-level request with a team of role-based agents.

A manager agent decomposes the request into waves of tasks, developer agents
execute each wave in parallel inside a sandboxed workspace, and a final
auditor verifies the delivered work against the audit log.

Every agent exchange is recorded to a session database, so a run can later be
replayed deterministically without calling the API.`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
}
