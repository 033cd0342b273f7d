// Package config handles configuration loading and management for maestro.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for maestro.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Engine    EngineConfig    `mapstructure:"engine"`
	Approval  ApprovalConfig  `mapstructure:"approval"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port string `mapstructure:"port"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// EngineConfig holds routing and pipeline settings.
type EngineConfig struct {
	// SuccessThreshold is the minimum effective success rate a model must
	// clear to be routable without falling back to the cheapest tier.
	SuccessThreshold float64 `mapstructure:"success_threshold"`
	// ParallelProposals enables multi-planner fan-out for code_edit tasks.
	ParallelProposals bool `mapstructure:"parallel_proposals"`
	// VerifyAllTasks runs verification even on low-risk tasks.
	VerifyAllTasks bool `mapstructure:"verify_all_tasks"`
	// TaskTimeout bounds every outbound model call.
	TaskTimeout time.Duration `mapstructure:"task_timeout"`
	// DefaultPlanner, DefaultExecutor, DefaultVerifier and JudgeModel are
	// the fallback model IDs used when the router has no candidate.
	DefaultPlanner  string `mapstructure:"default_planner"`
	DefaultExecutor string `mapstructure:"default_executor"`
	DefaultVerifier string `mapstructure:"default_verifier"`
	JudgeModel      string `mapstructure:"judge_model"`
	// RiskPolicyFile optionally overrides the built-in risk pattern table.
	RiskPolicyFile string `mapstructure:"risk_policy_file"`
}

// ApprovalConfig holds approval gate settings.
type ApprovalConfig struct {
	// Enabled turns the gate on. Disabled gates approve everything silently.
	Enabled bool `mapstructure:"enabled"`
	// MinRisk is the lowest risk level that creates an approval request.
	MinRisk string `mapstructure:"min_risk"`
	// AutoApprove bypasses persistence entirely. Test escape hatch.
	AutoApprove bool `mapstructure:"auto_approve"`
	// Timeout is how long a pending request stays decidable.
	Timeout time.Duration `mapstructure:"timeout"`
}

// StorageConfig holds persistence settings.
type StorageConfig struct {
	// DBPath is the SQLite database path. Empty means the XDG data dir.
	DBPath string `mapstructure:"db_path"`
	// MaxTelemetryRecords caps the retained telemetry log.
	MaxTelemetryRecords int `mapstructure:"max_telemetry_records"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	JSON       bool   `mapstructure:"json"`
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (MAESTRO_*, ANTHROPIC_API_KEY)
// 2. Project config (.maestro.yaml in current directory or a parent)
// 3. User config (~/.config/maestro/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	// Project config takes precedence over the user config
	projectConfig := findProjectConfig()
	if projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.SetEnvPrefix("MAESTRO")
	v.AutomaticEnv()
	v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY")
	v.BindEnv("server.port", "MAESTRO_PORT")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = expandEnv(cfg.Anthropic.APIKey)

	return cfg, nil
}

// LoadFromPath loads configuration from a specific path (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = expandEnv(cfg.Anthropic.APIKey)

	return cfg, nil
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8090")
	v.SetDefault("engine.success_threshold", 0.7)
	v.SetDefault("engine.parallel_proposals", false)
	v.SetDefault("engine.verify_all_tasks", false)
	v.SetDefault("engine.task_timeout", time.Minute)
	v.SetDefault("engine.default_planner", "")
	v.SetDefault("engine.default_executor", "")
	v.SetDefault("engine.default_verifier", "")
	v.SetDefault("engine.judge_model", "")
	v.SetDefault("approval.enabled", false)
	v.SetDefault("approval.min_risk", "high")
	v.SetDefault("approval.auto_approve", false)
	v.SetDefault("approval.timeout", 10*time.Minute)
	v.SetDefault("storage.db_path", "")
	v.SetDefault("storage.max_telemetry_records", 5000)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.max_size_mb", 50)
	v.SetDefault("logging.max_backups", 3)
}

// getUserConfigDir returns the XDG config directory for maestro.
func getUserConfigDir() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, _ := os.UserHomeDir()
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "maestro")
}

// DefaultDBPath returns the XDG data path for the maestro database.
func DefaultDBPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, _ := os.UserHomeDir()
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "maestro", "maestro.db")
}

// findProjectConfig walks up from the working directory looking for .maestro.yaml.
func findProjectConfig() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		candidate := filepath.Join(dir, ".maestro.yaml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

var envRefPattern = regexp.MustCompile(`\$\{(\w+)\}`)

// expandEnv expands ${VAR} references in a config value.
func expandEnv(s string) string {
	return envRefPattern.ReplaceAllStringFunc(s, func(m string) string {
		name := envRefPattern.FindStringSubmatch(m)[1]
		return os.Getenv(name)
	})
}
