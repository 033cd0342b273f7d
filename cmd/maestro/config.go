package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/maestro/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Display the effective configuration",
	Long: `Prints the configuration maestro would run with, after merging
built-in defaults, the user config (~/.config/maestro/config.yaml), a
project-level .maestro.yaml, and MAESTRO_* environment variables.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
		displayConfig(cfg)
	},
}

func displayConfig(cfg *config.Config) {
	apiKey := "(not set)"
	if cfg.Anthropic.APIKey != "" {
		apiKey = "****"
	}
	dbPath := cfg.Storage.DBPath
	if dbPath == "" {
		dbPath = config.DefaultDBPath()
	}

	fmt.Printf("server.port:                  %s\n", cfg.Server.Port)
	fmt.Printf("anthropic.api_key:            %s\n", apiKey)
	fmt.Printf("engine.success_threshold:     %.2f\n", cfg.Engine.SuccessThreshold)
	fmt.Printf("engine.parallel_proposals:    %t\n", cfg.Engine.ParallelProposals)
	fmt.Printf("engine.verify_all_tasks:      %t\n", cfg.Engine.VerifyAllTasks)
	fmt.Printf("engine.task_timeout:          %s\n", cfg.Engine.TaskTimeout)
	fmt.Printf("engine.default_planner:       %s\n", cfg.Engine.DefaultPlanner)
	fmt.Printf("engine.default_executor:      %s\n", cfg.Engine.DefaultExecutor)
	fmt.Printf("engine.default_verifier:      %s\n", cfg.Engine.DefaultVerifier)
	fmt.Printf("engine.judge_model:           %s\n", cfg.Engine.JudgeModel)
	fmt.Printf("engine.risk_policy_file:      %s\n", cfg.Engine.RiskPolicyFile)
	fmt.Printf("approval.enabled:             %t\n", cfg.Approval.Enabled)
	fmt.Printf("approval.min_risk:            %s\n", cfg.Approval.MinRisk)
	fmt.Printf("approval.auto_approve:        %t\n", cfg.Approval.AutoApprove)
	fmt.Printf("approval.timeout:             %s\n", cfg.Approval.Timeout)
	fmt.Printf("storage.db_path:              %s\n", dbPath)
	fmt.Printf("storage.max_telemetry_records: %d\n", cfg.Storage.MaxTelemetryRecords)
	fmt.Printf("logging.level:                %s\n", cfg.Logging.Level)
}
