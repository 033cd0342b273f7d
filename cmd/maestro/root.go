package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "maestro",
	Short: "Multi-model task orchestration engine",
	Long: `Maestro routes tasks across a roster of AI models: a planner drafts
a proposal, an optional human approval gate checks risky actions, an
executor carries the plan out, and a verifier scores the result. Model
selection is driven by live telemetry (success rate per dollar) with a
cheapest-tier fallback.

With no arguments, starts the HTTP server.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd, args)
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
