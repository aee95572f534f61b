package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/applelocal/localgate/internal/config"
)

func TestDefault(t *testing.T) {
	cfg := config.Default()

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 11434, cfg.Server.Port)
	assert.Equal(t, "apple.local", cfg.Provider.Model)
	assert.Equal(t, 0.7, cfg.Provider.Temperature)
	assert.Equal(t, 120*time.Second, cfg.Provider.Timeout)
	assert.Equal(t, 4000, cfg.Context.MaxContextTokens)
	assert.Equal(t, 512, cfg.Context.ReserveForOutput)
	assert.Equal(t, 6, cfg.Context.RecentMessages)
	assert.Equal(t, "chars", cfg.Context.Estimator)
	assert.Equal(t, 4, cfg.Stream.MaxSegments)
	assert.Equal(t, 2000, cfg.Stream.SegmentChars)
	assert.Equal(t, 0.6, cfg.Stream.ContinueRatio)
	assert.Equal(t, "info", cfg.LogLevel)

	require.NoError(t, cfg.Validate())
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := `
server:
  port: 8080
provider:
  endpoint: http://127.0.0.1:9999/v1/chat/completions
  serialize: true
stream:
  max_segments: 2
  continue_ratio: 0.5
`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "http://127.0.0.1:9999/v1/chat/completions", cfg.Provider.Endpoint)
	assert.True(t, cfg.Provider.Serialize)
	assert.Equal(t, 2, cfg.Stream.MaxSegments)
	assert.Equal(t, 0.5, cfg.Stream.ContinueRatio)

	// Untouched keys keep their defaults.
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, "apple.local", cfg.Provider.Model)
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 8080\n"), 0o644))

	t.Setenv("LOCALGATE_PORT", "9090")
	t.Setenv("LOCALGATE_HOST", "0.0.0.0")
	t.Setenv("LOCALGATE_MODEL", "apple.local.3b")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "apple.local.3b", cfg.Provider.Model)
}

func TestLoad_MissingFileFails(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoad_MalformedYAMLFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not a map"), 0o644))

	_, err := config.Load(path)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"port too large", func(c *config.Config) { c.Server.Port = 70000 }},
		{"negative port", func(c *config.Config) { c.Server.Port = -1 }},
		{"zero context window", func(c *config.Config) { c.Context.MaxContextTokens = 0 }},
		{"negative reserve", func(c *config.Config) { c.Context.ReserveForOutput = -1 }},
		{"zero max segments", func(c *config.Config) { c.Stream.MaxSegments = 0 }},
		{"continue ratio too high", func(c *config.Config) { c.Stream.ContinueRatio = 1.5 }},
		{"continue ratio zero", func(c *config.Config) { c.Stream.ContinueRatio = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
