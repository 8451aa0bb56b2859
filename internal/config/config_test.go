package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Identity.Hostname == "" {
		t.Error("default hostname empty")
	}
	if cfg.Export.DefaultDir == "" {
		t.Error("default export dir empty")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
	if got := cfg.Fanout.GetTargetTimeout(); got != 30*time.Second {
		t.Errorf("target timeout = %v, want 30s", got)
	}
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
identity:
  hostname: dc01
fanout:
  max_workers: 8
  target_timeout_ms: 5000
channel:
  kind: ssh
  port: 22
  username: admin
  password: secret
logging:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Identity.Hostname != "dc01" {
		t.Errorf("hostname = %q, want dc01", cfg.Identity.Hostname)
	}
	if cfg.Fanout.MaxWorkers != 8 {
		t.Errorf("max_workers = %d, want 8", cfg.Fanout.MaxWorkers)
	}
	if cfg.Channel.Kind != "ssh" || cfg.Channel.Port != 22 {
		t.Errorf("channel = %+v", cfg.Channel)
	}
	// Unset sections keep their defaults
	if cfg.SNMP.Community != "public" {
		t.Errorf("snmp community = %q, want default public", cfg.SNMP.Community)
	}
	if cfg.Export.DefaultDir == "" {
		t.Error("export default_dir lost its default")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, `
identity:
  hostname: dc01
`)

	t.Setenv("INVLITE_IDENTITY_HOSTNAME", "dc02")
	t.Setenv("INVLITE_CHANNEL_PASSWORD", "fromenv")
	t.Setenv("INVLITE_CHANNEL_PORT", "5986")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Identity.Hostname != "dc02" {
		t.Errorf("hostname = %q, want env override dc02", cfg.Identity.Hostname)
	}
	if cfg.Channel.Password != "fromenv" {
		t.Errorf("password = %q, want fromenv", cfg.Channel.Password)
	}
	if cfg.Channel.Port != 5986 {
		t.Errorf("port = %d, want 5986", cfg.Channel.Port)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		valid  bool
	}{
		{"defaults", func(c *Config) {}, true},
		{"empty hostname", func(c *Config) { c.Identity.Hostname = "" }, false},
		{"bad channel kind", func(c *Config) { c.Channel.Kind = "telnet" }, false},
		{"port out of range", func(c *Config) { c.Channel.Port = 70000 }, false},
		{"zero workers", func(c *Config) { c.Fanout.MaxWorkers = 0 }, false},
		{"zero timeout", func(c *Config) { c.Fanout.TargetTimeoutMS = 0 }, false},
		{"empty export dir", func(c *Config) { c.Export.DefaultDir = "" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.valid && err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
			if !tt.valid && err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}
