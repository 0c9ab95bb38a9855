package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the supervisor runtime configuration. Values resolve in layers:
// built-in defaults, then the YAML file, then environment variables.
type Config struct {
	Workspace             string   `yaml:"workspace"`
	Container             string   `yaml:"container"`
	AgentCmd              []string `yaml:"agent_cmd"`
	TimeoutSeconds        int      `yaml:"timeout_seconds"`
	IdleIntervalSeconds   int      `yaml:"idle_interval_seconds"`
	StallThresholdMinutes int      `yaml:"stall_threshold_minutes"`
	Ignore                []string `yaml:"ignore"`

	Zulip ZulipConfig `yaml:"zulip"`
	NATS  NATSConfig  `yaml:"nats"`
}

// ZulipConfig configures the Zulip notification sink.
type ZulipConfig struct {
	Enabled bool   `yaml:"enabled"`
	Site    string `yaml:"site"`
	Email   string `yaml:"email"`
	APIKey  string `yaml:"api_key"`
	Stream  string `yaml:"stream"`
}

// Valid reports whether the Zulip sink is enabled and fully configured.
func (z ZulipConfig) Valid() bool {
	return z.Enabled && z.Site != "" && z.Email != "" && z.APIKey != "" && z.Stream != ""
}

// NATSConfig configures the NATS notification sink. An empty URL disables it.
type NATSConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Workspace:             "./workspace",
		Container:             "vigil-agent",
		AgentCmd:              []string{"claude", "-p"},
		TimeoutSeconds:        3600,
		IdleIntervalSeconds:   5,
		StallThresholdMinutes: 10,
		NATS: NATSConfig{
			Subject: "vigil.events",
		},
	}
}

// Load resolves the configuration. path may be empty or point to a YAML file;
// a missing file at an explicit path is an error, environment variables are
// applied last either way.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("VIGIL_WORKSPACE"); v != "" {
		c.Workspace = v
	}
	if v := os.Getenv("VIGIL_CONTAINER"); v != "" {
		c.Container = v
	}
	if v, ok := envInt("VIGIL_TIMEOUT"); ok {
		c.TimeoutSeconds = v
	}
	if v, ok := envInt("VIGIL_IDLE_INTERVAL"); ok {
		c.IdleIntervalSeconds = v
	}
	if v, ok := envInt("VIGIL_STALL_THRESHOLD"); ok {
		c.StallThresholdMinutes = v
	}

	if v := os.Getenv("ZULIP_ENABLED"); v != "" {
		c.Zulip.Enabled = strings.EqualFold(v, "true")
	}
	if v := os.Getenv("ZULIP_SITE"); v != "" {
		c.Zulip.Site = v
	}
	if v := os.Getenv("ZULIP_EMAIL"); v != "" {
		c.Zulip.Email = v
	}
	if v := os.Getenv("ZULIP_API_KEY"); v != "" {
		c.Zulip.APIKey = v
	}
	if v := os.Getenv("ZULIP_STREAM"); v != "" {
		c.Zulip.Stream = v
	}

	if v := os.Getenv("NATS_URL"); v != "" {
		c.NATS.URL = v
	}
	if v := os.Getenv("VIGIL_NATS_SUBJECT"); v != "" {
		c.NATS.Subject = v
	}
}

func envInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Validate checks the configuration and returns user-facing errors.
func (c *Config) Validate() error {
	if c.Workspace == "" {
		return fmt.Errorf("configuration error: missing 'workspace'\n\nHint: set it in vigil.yaml or via VIGIL_WORKSPACE")
	}
	if c.Container == "" {
		return fmt.Errorf("configuration error: missing 'container'\n\nHint: set the agent container name, e.g.\n  container: vigil-agent")
	}
	if len(c.AgentCmd) == 0 {
		return fmt.Errorf("configuration error: empty 'agent_cmd'\n\nHint: specify the in-container agent command, e.g.\n  agent_cmd: [\"claude\", \"-p\"]")
	}
	if c.TimeoutSeconds <= 0 {
		return fmt.Errorf("configuration error: 'timeout_seconds' must be positive, got %d", c.TimeoutSeconds)
	}
	if c.IdleIntervalSeconds <= 0 {
		return fmt.Errorf("configuration error: 'idle_interval_seconds' must be positive, got %d", c.IdleIntervalSeconds)
	}
	if c.StallThresholdMinutes <= 0 {
		return fmt.Errorf("configuration error: 'stall_threshold_minutes' must be positive, got %d", c.StallThresholdMinutes)
	}
	return nil
}

// Warnings reports non-fatal configuration issues.
func (c *Config) Warnings() []string {
	var warnings []string
	if c.StallThreshold() >= c.Timeout() {
		warnings = append(warnings,
			fmt.Sprintf("stall_threshold_minutes (%s) is not below timeout_seconds (%s): the stall warning can never fire before the task times out",
				c.StallThreshold(), c.Timeout()))
	}
	return warnings
}

// Timeout is the per-task execution time budget.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// IdleInterval is the sleep between instruction checks while idle.
func (c *Config) IdleInterval() time.Duration {
	return time.Duration(c.IdleIntervalSeconds) * time.Second
}

// StallThreshold is how long the workspace may sit unchanged before a stall
// warning fires.
func (c *Config) StallThreshold() time.Duration {
	return time.Duration(c.StallThresholdMinutes) * time.Minute
}
