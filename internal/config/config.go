// Package config handles configuration loading for Ouro.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for Ouro.
type Config struct {
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Execution ExecutionConfig `mapstructure:"execution"`
	Retry     RetryConfig     `mapstructure:"retry"`
	Decompose DecomposeConfig `mapstructure:"decompose"`
	Workspace WorkspaceConfig `mapstructure:"workspace"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	// APIKey is the Anthropic API key. ${VAR} references are expanded.
	APIKey string `mapstructure:"api_key"`
	// Model is the default model for agent calls.
	Model string `mapstructure:"model"`
	// UseAWSBedrock routes calls through AWS Bedrock instead of the direct API.
	UseAWSBedrock bool `mapstructure:"use_aws_bedrock"`
	// AWSRegion is the Bedrock region (e.g. "us-west-2").
	AWSRegion string `mapstructure:"aws_region"`
	// AWSProfile is the optional AWS profile name.
	AWSProfile string `mapstructure:"aws_profile"`
}

// ExecutionConfig holds scheduler settings.
type ExecutionConfig struct {
	// Concurrency is the maximum number of tasks running within a wave.
	Concurrency int `mapstructure:"concurrency"`
	// TaskCeiling bounds the total wall time of one task across all retries.
	TaskCeiling time.Duration `mapstructure:"task_ceiling"`
}

// RetryConfig holds per-attempt retry settings for agent calls.
type RetryConfig struct {
	// MaxAttempts is the number of attempts before a timeout becomes terminal.
	MaxAttempts int `mapstructure:"max_attempts"`
	// BaseTimeout is the allowed duration of the first attempt.
	BaseTimeout time.Duration `mapstructure:"base_timeout"`
	// TimeoutGrowth scales the allowed duration for each subsequent attempt.
	TimeoutGrowth float64 `mapstructure:"timeout_growth"`
}

// DecomposeConfig holds decomposition settings.
type DecomposeConfig struct {
	// MaxAttempts is the corrective-retry budget for the manager call.
	MaxAttempts int `mapstructure:"max_attempts"`
}

// WorkspaceConfig holds workspace and data-directory settings.
type WorkspaceConfig struct {
	// Root is the path-jailed directory agents may read and write.
	Root string `mapstructure:"root"`
	// DataDir holds the session database, logs, and audit logs.
	// Defaults to <root>/.ouro.
	DataDir string `mapstructure:"data_dir"`
	// RolesFile is the path to the YAML role catalog.
	RolesFile string `mapstructure:"roles_file"`
	// MaxFileSize bounds the size of any file a tool may read or write.
	MaxFileSize int64 `mapstructure:"max_file_size"`
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (ANTHROPIC_API_KEY)
// 2. Project config (.ouro.yaml in current directory or a parent)
// 3. User config (~/.config/ouro/config.yaml)
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

	if projectConfig := findProjectConfig(); projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.AutomaticEnv()
	v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = expandEnv(cfg.Anthropic.APIKey)
	cfg.ApplyFallbacks()

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
	cfg.ApplyFallbacks()

	return cfg, nil
}

// ApplyFallbacks fills derived values that depend on other fields.
func (c *Config) ApplyFallbacks() {
	if c.Workspace.Root == "" {
		c.Workspace.Root = "."
	}
	if c.Workspace.DataDir == "" {
		c.Workspace.DataDir = filepath.Join(c.Workspace.Root, ".ouro")
	}
	if c.Workspace.RolesFile == "" {
		c.Workspace.RolesFile = filepath.Join(c.Workspace.DataDir, "roles.yaml")
	}
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("anthropic.model", "claude-sonnet-4-20250514")
	v.SetDefault("execution.concurrency", 4)
	v.SetDefault("execution.task_ceiling", 300*time.Second)
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.base_timeout", 120*time.Second)
	v.SetDefault("retry.timeout_growth", 1.5)
	v.SetDefault("decompose.max_attempts", 3)
	v.SetDefault("workspace.max_file_size", int64(1<<20))
}

// getUserConfigDir returns the XDG config directory for Ouro.
func getUserConfigDir() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, _ := os.UserHomeDir()
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "ouro")
}

// findProjectConfig walks up from the current directory looking for .ouro.yaml.
func findProjectConfig() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		candidate := filepath.Join(dir, ".ouro.yaml")
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

// expandEnv expands ${VAR} references in a config value.
func expandEnv(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return os.Expand(s, func(key string) string {
		return os.Getenv(key)
	})
}
