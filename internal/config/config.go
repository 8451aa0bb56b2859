// Package config
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Identity IdentityConfig `yaml:"identity"`
	Fanout   FanoutConfig   `yaml:"fanout"`
	Export   ExportConfig   `yaml:"export"`
	Channel  ChannelConfig  `yaml:"channel"`
	SNMP     SNMPConfig     `yaml:"snmp"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// IdentityConfig pins the local host identifier. Targets equal to it
// (case-insensitive) are probed in-process instead of over a channel.
// Resolved once at load time so the collector core never reads ambient
// process state.
type IdentityConfig struct {
	Hostname string `yaml:"hostname"`
}

type FanoutConfig struct {
	MaxWorkers      int `yaml:"max_workers"`
	TargetTimeoutMS int `yaml:"target_timeout_ms"`
}

type ExportConfig struct {
	// DefaultDir receives generated export files when no path hint is
	// given. Defaults to the system temp directory at load time.
	DefaultDir string `yaml:"default_dir"`
}

// ChannelConfig describes the remote-execution channel used for
// non-local targets.
type ChannelConfig struct {
	Kind       string `yaml:"kind"` // "winrm" or "ssh"
	Port       int    `yaml:"port"`
	UseHTTPS   bool   `yaml:"use_https"`
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
	Domain     string `yaml:"domain"`
	PrivateKey string `yaml:"private_key"`
	Passphrase string `yaml:"passphrase"`
	TimeoutMS  int    `yaml:"timeout_ms"`
}

type SNMPConfig struct {
	Community string `yaml:"community"`
	Port      int    `yaml:"port"`
	TimeoutMS int    `yaml:"timeout_ms"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a usable configuration without a config file.
// The local hostname and temp directory are resolved here, once.
func Default() *Config {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}
	return &Config{
		Identity: IdentityConfig{Hostname: hostname},
		Fanout: FanoutConfig{
			MaxWorkers:      4,
			TargetTimeoutMS: 30000,
		},
		Export: ExportConfig{DefaultDir: os.TempDir()},
		Channel: ChannelConfig{
			Kind:      "winrm",
			Port:      5985,
			TimeoutMS: 30000,
		},
		SNMP: SNMPConfig{
			Community: "public",
			Port:      161,
			TimeoutMS: 5000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads configuration from file and applies environment variable overrides
func Load(configPath string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate ensures all required configuration values are set
func (c *Config) Validate() error {
	if c.Identity.Hostname == "" {
		return fmt.Errorf("identity hostname is required")
	}

	switch c.Channel.Kind {
	case "winrm", "ssh":
	default:
		return fmt.Errorf("channel kind must be winrm or ssh, got %q", c.Channel.Kind)
	}
	if c.Channel.Port <= 0 || c.Channel.Port > 65535 {
		return fmt.Errorf("channel port must be 1-65535, got %d", c.Channel.Port)
	}

	if c.Fanout.MaxWorkers < 1 {
		return fmt.Errorf("fanout max_workers must be at least 1")
	}
	if c.Fanout.TargetTimeoutMS <= 0 {
		return fmt.Errorf("fanout target_timeout_ms must be positive")
	}

	if c.Export.DefaultDir == "" {
		return fmt.Errorf("export default_dir is required")
	}

	return nil
}

// applyEnvOverrides checks for environment variables with INVLITE_ prefix
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("INVLITE_IDENTITY_HOSTNAME"); v != "" {
		cfg.Identity.Hostname = v
	}
	if v := os.Getenv("INVLITE_CHANNEL_USERNAME"); v != "" {
		cfg.Channel.Username = v
	}
	if v := os.Getenv("INVLITE_CHANNEL_PASSWORD"); v != "" {
		cfg.Channel.Password = v
	}
	if v := os.Getenv("INVLITE_CHANNEL_PORT"); v != "" {
		fmt.Sscanf(v, "%d", &cfg.Channel.Port)
	}
	if v := os.Getenv("INVLITE_SNMP_COMMUNITY"); v != "" {
		cfg.SNMP.Community = v
	}
	if v := os.Getenv("INVLITE_EXPORT_DEFAULT_DIR"); v != "" {
		cfg.Export.DefaultDir = v
	}
}

// GetTargetTimeout returns the per-target timeout as a duration
func (f *FanoutConfig) GetTargetTimeout() time.Duration {
	return time.Duration(f.TargetTimeoutMS) * time.Millisecond
}

// GetTimeout returns the channel dial/run timeout as a duration
func (c *ChannelConfig) GetTimeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// GetTimeout returns the SNMP request timeout as a duration
func (s *SNMPConfig) GetTimeout() time.Duration {
	return time.Duration(s.TimeoutMS) * time.Millisecond
}
