package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFromPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
server:
  port: "9000"
engine:
  success_threshold: 0.8
  parallel_proposals: true
  task_timeout: 30s
  judge_model: claude-sonnet
approval:
  enabled: true
  min_risk: medium
  timeout: 5m
storage:
  max_telemetry_records: 100
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}

	if cfg.Server.Port != "9000" {
		t.Errorf("Server.Port = %q, want 9000", cfg.Server.Port)
	}
	if cfg.Engine.SuccessThreshold != 0.8 {
		t.Errorf("SuccessThreshold = %v, want 0.8", cfg.Engine.SuccessThreshold)
	}
	if !cfg.Engine.ParallelProposals {
		t.Error("ParallelProposals should be true")
	}
	if cfg.Engine.TaskTimeout != 30*time.Second {
		t.Errorf("TaskTimeout = %v, want 30s", cfg.Engine.TaskTimeout)
	}
	if cfg.Engine.JudgeModel != "claude-sonnet" {
		t.Errorf("JudgeModel = %q", cfg.Engine.JudgeModel)
	}
	if !cfg.Approval.Enabled || cfg.Approval.MinRisk != "medium" {
		t.Errorf("approval config not applied: %+v", cfg.Approval)
	}
	if cfg.Approval.Timeout != 5*time.Minute {
		t.Errorf("Approval.Timeout = %v, want 5m", cfg.Approval.Timeout)
	}
	if cfg.Storage.MaxTelemetryRecords != 100 {
		t.Errorf("MaxTelemetryRecords = %d, want 100", cfg.Storage.MaxTelemetryRecords)
	}
}

func TestLoadFromPathDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: \"8123\"\n"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}

	if cfg.Engine.SuccessThreshold != 0.7 {
		t.Errorf("default SuccessThreshold = %v, want 0.7", cfg.Engine.SuccessThreshold)
	}
	if cfg.Engine.TaskTimeout != time.Minute {
		t.Errorf("default TaskTimeout = %v, want 1m", cfg.Engine.TaskTimeout)
	}
	if cfg.Approval.Enabled {
		t.Error("approval gate should default to disabled")
	}
	if cfg.Approval.MinRisk != "high" {
		t.Errorf("default MinRisk = %q, want high", cfg.Approval.MinRisk)
	}
	if cfg.Approval.Timeout != 10*time.Minute {
		t.Errorf("default Approval.Timeout = %v, want 10m", cfg.Approval.Timeout)
	}
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("MAESTRO_TEST_KEY", "sk-test")

	tests := []struct {
		in   string
		want string
	}{
		{"${MAESTRO_TEST_KEY}", "sk-test"},
		{"prefix-${MAESTRO_TEST_KEY}", "prefix-sk-test"},
		{"plain", "plain"},
		{"${MAESTRO_UNSET_VAR_XYZ}", ""},
	}

	for _, tt := range tests {
		if got := expandEnv(tt.in); got != tt.want {
			t.Errorf("expandEnv(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
