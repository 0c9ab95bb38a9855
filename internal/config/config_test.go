package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "./workspace", cfg.Workspace)
	assert.Equal(t, "vigil-agent", cfg.Container)
	assert.Equal(t, []string{"claude", "-p"}, cfg.AgentCmd)
	assert.Equal(t, time.Hour, cfg.Timeout())
	assert.Equal(t, 5*time.Second, cfg.IdleInterval())
	assert.Equal(t, 10*time.Minute, cfg.StallThreshold())
	assert.NoError(t, cfg.Validate())
	assert.Empty(t, cfg.Warnings())
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vigil.yaml")
	content := `workspace: /srv/work
container: my-agent
agent_cmd: ["agent", "--print"]
timeout_seconds: 600
stall_threshold_minutes: 5
ignore:
  - "*.log"
zulip:
  enabled: true
  site: https://example.zulipchat.com
  email: bot@example.com
  api_key: secret
  stream: supervisor
nats:
  url: nats://localhost:4222
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/work", cfg.Workspace)
	assert.Equal(t, "my-agent", cfg.Container)
	assert.Equal(t, []string{"agent", "--print"}, cfg.AgentCmd)
	assert.Equal(t, 10*time.Minute, cfg.Timeout())
	assert.Equal(t, []string{"*.log"}, cfg.Ignore)
	assert.True(t, cfg.Zulip.Valid())
	assert.Equal(t, "nats://localhost:4222", cfg.NATS.URL)
	// Unset file values keep defaults
	assert.Equal(t, 5*time.Second, cfg.IdleInterval())
	assert.Equal(t, "vigil.events", cfg.NATS.Subject)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vigil.yaml")
	require.NoError(t, os.WriteFile(path, []byte("workspace: [unclosed"), 0600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("VIGIL_WORKSPACE", "/env/work")
	t.Setenv("VIGIL_CONTAINER", "env-agent")
	t.Setenv("VIGIL_TIMEOUT", "120")
	t.Setenv("VIGIL_STALL_THRESHOLD", "3")
	t.Setenv("ZULIP_ENABLED", "TRUE")
	t.Setenv("ZULIP_SITE", "https://env.zulipchat.com")
	t.Setenv("ZULIP_EMAIL", "env-bot@example.com")
	t.Setenv("ZULIP_API_KEY", "env-key")
	t.Setenv("ZULIP_STREAM", "env-stream")
	t.Setenv("NATS_URL", "nats://env:4222")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "/env/work", cfg.Workspace)
	assert.Equal(t, "env-agent", cfg.Container)
	assert.Equal(t, 2*time.Minute, cfg.Timeout())
	assert.Equal(t, 3*time.Minute, cfg.StallThreshold())
	assert.True(t, cfg.Zulip.Valid())
	assert.Equal(t, "nats://env:4222", cfg.NATS.URL)
}

func TestEnvIgnoresUnparsableInt(t *testing.T) {
	t.Setenv("VIGIL_TIMEOUT", "not-a-number")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 3600, cfg.TimeoutSeconds)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty workspace", func(c *Config) { c.Workspace = "" }},
		{"empty container", func(c *Config) { c.Container = "" }},
		{"empty agent cmd", func(c *Config) { c.AgentCmd = nil }},
		{"zero timeout", func(c *Config) { c.TimeoutSeconds = 0 }},
		{"negative idle interval", func(c *Config) { c.IdleIntervalSeconds = -1 }},
		{"zero stall threshold", func(c *Config) { c.StallThresholdMinutes = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestWarningsStallBeyondTimeout(t *testing.T) {
	cfg := Default()
	cfg.TimeoutSeconds = 300
	cfg.StallThresholdMinutes = 10 // 10m stall budget vs 5m timeout

	warnings := cfg.Warnings()
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "stall warning can never fire")
}

func TestZulipValidRequiresAllFields(t *testing.T) {
	z := ZulipConfig{Enabled: true, Site: "s", Email: "e", APIKey: "k", Stream: "st"}
	assert.True(t, z.Valid())

	for _, mutate := range []func(*ZulipConfig){
		func(z *ZulipConfig) { z.Enabled = false },
		func(z *ZulipConfig) { z.Site = "" },
		func(z *ZulipConfig) { z.Email = "" },
		func(z *ZulipConfig) { z.APIKey = "" },
		func(z *ZulipConfig) { z.Stream = "" },
	} {
		broken := z
		mutate(&broken)
		assert.False(t, broken.Valid())
	}
}
