package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// LogConfig controls log output
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // console or json
}

// Config holds the full Pipesight configuration
type Config struct {
	// ListenAddr is the HTTP/WebSocket listen address
	ListenAddr string `yaml:"listen_addr"`

	// DataDir holds the durable event log database
	DataDir string `yaml:"data_dir"`

	// QueueCapacity bounds the ingestion queue buffer
	QueueCapacity int `yaml:"queue_capacity"`

	// ClientBuffer bounds each dashboard client's outbound buffer
	ClientBuffer int `yaml:"client_buffer"`

	// HeartbeatInterval is the ping cadence on client connections
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`

	// HeartbeatMisses is how many silent intervals disconnect a client
	HeartbeatMisses int `yaml:"heartbeat_misses"`

	// StalenessWindow is how long a run may lack a terminal event before
	// it is reported as orphaned
	StalenessWindow time.Duration `yaml:"staleness_window"`

	Log LogConfig `yaml:"log"`
}

// Default returns the configuration used when no file or flags override it
func Default() *Config {
	return &Config{
		ListenAddr:        "127.0.0.1:8090",
		DataDir:           "./pipesight-data",
		QueueCapacity:     1024,
		ClientBuffer:      64,
		HeartbeatInterval: 30 * time.Second,
		HeartbeatMisses:   3,
		StalenessWindow:   24 * time.Hour,
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads a YAML config file over the defaults. An empty path returns
// the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the components cannot run with
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listen_addr must not be empty")
	}
	if c.DataDir == "" {
		return fmt.Errorf("data_dir must not be empty")
	}
	if c.QueueCapacity < 0 {
		return fmt.Errorf("queue_capacity must not be negative")
	}
	if c.HeartbeatInterval < 0 || c.StalenessWindow < 0 {
		return fmt.Errorf("durations must not be negative")
	}
	return nil
}
