// Configuration loading for the local gateway.
//
// Precedence: defaults < YAML file < environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// ServerConfig controls the TCP listener.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// ProviderConfig controls the text-generation provider client.
type ProviderConfig struct {
	// Endpoint is the OpenAI-compatible chat completions URL of the local
	// engine. Empty disables the HTTP provider (tests inject their own).
	Endpoint    string        `yaml:"endpoint"`
	Model       string        `yaml:"model"`
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
	// Serialize forces one in-flight generation call at a time, for engines
	// that cannot serve concurrent requests.
	Serialize bool `yaml:"serialize"`
}

// ContextConfig controls the context-window manager.
type ContextConfig struct {
	MaxContextTokens int `yaml:"max_context_tokens"`
	ReserveForOutput int `yaml:"reserve_for_output"`
	RecentMessages   int `yaml:"recent_messages"`
	// Estimator selects the token estimator: "chars" (default) or "tiktoken".
	Estimator string `yaml:"estimator"`
}

// StreamConfig controls the segment streamer.
type StreamConfig struct {
	MaxSegments   int     `yaml:"max_segments"`
	SegmentChars  int     `yaml:"segment_chars"`
	TailChars     int     `yaml:"tail_chars"`
	ContinueRatio float64 `yaml:"continue_ratio"`
	Reserve       int     `yaml:"reserve"`
}

// Config is the root configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Provider ProviderConfig `yaml:"provider"`
	Context  ContextConfig  `yaml:"context"`
	Stream   StreamConfig   `yaml:"stream"`
	LogLevel string         `yaml:"log_level"`
}

// Default returns the configuration with all defaults applied.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: DefaultHost,
			Port: DefaultPort,
		},
		Provider: ProviderConfig{
			Model:       DefaultModelID,
			Temperature: 0.7,
			Timeout:     DefaultProviderTimeout,
		},
		Context: ContextConfig{
			MaxContextTokens: DefaultMaxContextTokens,
			ReserveForOutput: DefaultReserveForOutput,
			RecentMessages:   DefaultRecentMessages,
			Estimator:        "chars",
		},
		Stream: StreamConfig{
			MaxSegments:   DefaultMaxSegments,
			SegmentChars:  DefaultSegmentChars,
			TailChars:     DefaultTailChars,
			ContinueRatio: DefaultContinueRatio,
			Reserve:       MultiRoundReserve,
		},
		LogLevel: "info",
	}
}

// Load reads the YAML file at path (if non-empty) over the defaults, then
// applies environment overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("LOCALGATE_HOST"); v != "" {
		c.Server.Host = v
	}
	if v := os.Getenv("LOCALGATE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("LOCALGATE_PROVIDER_ENDPOINT"); v != "" {
		c.Provider.Endpoint = v
	}
	if v := os.Getenv("LOCALGATE_MODEL"); v != "" {
		c.Provider.Model = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

// Validate rejects configurations the server cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Context.MaxContextTokens <= 0 {
		return fmt.Errorf("context.max_context_tokens must be positive")
	}
	if c.Context.ReserveForOutput < 0 {
		return fmt.Errorf("context.reserve_for_output must not be negative")
	}
	if c.Stream.MaxSegments <= 0 {
		return fmt.Errorf("stream.max_segments must be positive")
	}
	if c.Stream.ContinueRatio <= 0 || c.Stream.ContinueRatio > 1 {
		return fmt.Errorf("stream.continue_ratio must be in (0, 1]")
	}
	return nil
}
