// Package config loads adintel configuration from .adintel/config.yaml
// with environment variable overrides for secrets and deploy-time knobs.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for the pipeline.
type Config struct {
	Workspace string        `yaml:"workspace"`
	LLM       LLMConfig     `yaml:"llm"`
	Critic    CriticConfig  `yaml:"critic"`
	Phases    PhaseConfig   `yaml:"phases"`
	Output    OutputConfig  `yaml:"output"`
	Queue     QueueConfig   `yaml:"queue"`
	Logging   LoggingConfig `yaml:"logging"`
}

// LLMConfig configures the xAI gateway.
type LLMConfig struct {
	APIKey         string `yaml:"api_key"`
	BaseURL        string `yaml:"base_url"`
	ChatModel      string `yaml:"chat_model"`
	ImageModel     string `yaml:"image_model"`
	VisionModel    string `yaml:"vision_model"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// CriticConfig configures the ensemble CTR critic.
type CriticConfig struct {
	EnsembleRuns int `yaml:"ensemble_runs"`
}

// PhaseConfig holds per-phase deadlines for the pipeline, in seconds.
type PhaseConfig struct {
	ContextTimeoutSeconds int `yaml:"context_timeout_seconds"`
	RemixTimeoutSeconds   int `yaml:"remix_timeout_seconds"`
	CriticTimeoutSeconds  int `yaml:"critic_timeout_seconds"`
}

// OutputConfig controls where pipeline results are written.
type OutputConfig struct {
	Dir         string `yaml:"dir"`
	SaveResults bool   `yaml:"save_results"`
}

// QueueConfig controls the hand-off queue location.
type QueueConfig struct {
	Dir string `yaml:"dir"`
}

// LoggingConfig mirrors the section read by internal/logging.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Categories map[string]bool `yaml:"categories"`
	Level      string          `yaml:"level"`
}

// DefaultConfig returns the baseline configuration rooted at workspace.
func DefaultConfig(workspace string) *Config {
	return &Config{
		Workspace: workspace,
		LLM: LLMConfig{
			BaseURL:        "https://api.x.ai/v1",
			ChatModel:      "grok-4-1-fast-non-reasoning",
			ImageModel:     "grok-2-image",
			VisionModel:    "grok-2-vision-1212",
			TimeoutSeconds: 120,
		},
		Critic: CriticConfig{EnsembleRuns: 10},
		Phases: PhaseConfig{
			ContextTimeoutSeconds: 60,
			RemixTimeoutSeconds:   180,
			CriticTimeoutSeconds:  120,
		},
		Output: OutputConfig{
			Dir:         filepath.Join(workspace, "results"),
			SaveResults: true,
		},
		Queue: QueueConfig{
			Dir: filepath.Join(workspace, ".adintel", "queue"),
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads config from <workspace>/.adintel/config.yaml, overlaying it on
// defaults, then applies environment overrides. A missing file is not an
// error; the defaults plus environment are used.
func Load(workspace string) (*Config, error) {
	cfg := DefaultConfig(workspace)

	path := filepath.Join(workspace, ".adintel", "config.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides lets the environment win over file values.
// XAI_API_KEY in particular should never live in the yaml file.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("XAI_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("XAI_BASE_URL"); v != "" {
		c.LLM.BaseURL = v
	}
	if v := os.Getenv("ADINTEL_CHAT_MODEL"); v != "" {
		c.LLM.ChatModel = v
	}
	if v := os.Getenv("ADINTEL_IMAGE_MODEL"); v != "" {
		c.LLM.ImageModel = v
	}
	if v := os.Getenv("ADINTEL_VISION_MODEL"); v != "" {
		c.LLM.VisionModel = v
	}
	if v := os.Getenv("CTR_ENSEMBLE_RUNS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Critic.EnsembleRuns = n
		}
	}
	if v := os.Getenv("ADINTEL_OUTPUT_DIR"); v != "" {
		c.Output.Dir = v
	}
	if v := os.Getenv("ADINTEL_DEBUG"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Logging.DebugMode = b
		}
	}
}

// Validate checks invariants that would otherwise surface deep in a run.
func (c *Config) Validate() error {
	if c.Critic.EnsembleRuns < 1 {
		return fmt.Errorf("config: critic.ensemble_runs must be >= 1, got %d", c.Critic.EnsembleRuns)
	}
	if c.LLM.TimeoutSeconds < 1 {
		return fmt.Errorf("config: llm.timeout_seconds must be >= 1, got %d", c.LLM.TimeoutSeconds)
	}
	for name, secs := range map[string]int{
		"phases.context_timeout_seconds": c.Phases.ContextTimeoutSeconds,
		"phases.remix_timeout_seconds":   c.Phases.RemixTimeoutSeconds,
		"phases.critic_timeout_seconds":  c.Phases.CriticTimeoutSeconds,
	} {
		if secs < 1 {
			return fmt.Errorf("config: %s must be >= 1, got %d", name, secs)
		}
	}
	return nil
}

// LLMTimeout returns the per-request gateway timeout.
func (c *Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLM.TimeoutSeconds) * time.Second
}

// ContextTimeout returns the context-card phase deadline.
func (c *Config) ContextTimeout() time.Duration {
	return time.Duration(c.Phases.ContextTimeoutSeconds) * time.Second
}

// RemixTimeout returns the creative-generation phase deadline.
func (c *Config) RemixTimeout() time.Duration {
	return time.Duration(c.Phases.RemixTimeoutSeconds) * time.Second
}

// CriticTimeout returns the CTR-prediction phase deadline.
func (c *Config) CriticTimeout() time.Duration {
	return time.Duration(c.Phases.CriticTimeoutSeconds) * time.Second
}
