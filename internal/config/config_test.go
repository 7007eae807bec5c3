package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cafe.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Store.Driver != DriverMemory {
		t.Errorf("Store.Driver = %q, want %q", cfg.Store.Driver, DriverMemory)
	}
	if cfg.Addr() != "127.0.0.1:8080" {
		t.Errorf("Addr() = %q", cfg.Addr())
	}
	if cfg.Transpiler.MaxSteps != 1000 {
		t.Errorf("Transpiler.MaxSteps = %d, want 1000", cfg.Transpiler.MaxSteps)
	}
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
store:
  driver: redis
  redis:
    addr: "redis:6379"
    ttl: 60
transpiler:
  dialect: legacy
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Store.Redis.Addr != "redis:6379" {
		t.Errorf("Store.Redis.Addr = %q", cfg.Store.Redis.Addr)
	}
	if cfg.RedisTTL() != time.Minute {
		t.Errorf("RedisTTL() = %v, want 1m", cfg.RedisTTL())
	}
	if cfg.Store.Redis.Prefix != "cafe" {
		t.Errorf("default prefix lost: %q", cfg.Store.Redis.Prefix)
	}
	if cfg.Transpiler.Dialect != "legacy" {
		t.Errorf("Transpiler.Dialect = %q", cfg.Transpiler.Dialect)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CAFE_SERVER_PORT", "7000")
	t.Setenv("CAFE_STORE_DRIVER", "sqlite")
	t.Setenv("CAFE_STORE_PATH", "/tmp/cafe.db")
	t.Setenv("CAFE_CANONICAL", "true")

	cfg, err := Load(writeConfig(t, "server:\n  port: 9090\n"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 7000 {
		t.Errorf("Server.Port = %d, want 7000", cfg.Server.Port)
	}
	if cfg.Store.Driver != DriverSQLite || cfg.Store.Path != "/tmp/cafe.db" {
		t.Errorf("Store = %+v", cfg.Store)
	}
	if !cfg.Transpiler.Canonical {
		t.Error("Transpiler.Canonical = false, want true")
	}
}

func TestLoad_BadEnv(t *testing.T) {
	t.Setenv("CAFE_SERVER_PORT", "eighty")
	if _, err := Load(""); err == nil {
		t.Error("Load() expected error for non-numeric port")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/path/cafe.yaml"); err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port", func(c *Config) { c.Server.Port = 0 }},
		{"driver", func(c *Config) { c.Store.Driver = "postgres" }},
		{"file path", func(c *Config) { c.Store.Driver = DriverFile; c.Store.Path = "" }},
		{"redis addr", func(c *Config) { c.Store.Driver = DriverRedis; c.Store.Redis.Addr = "" }},
		{"dialect", func(c *Config) { c.Transpiler.Dialect = "ancient" }},
		{"max steps", func(c *Config) { c.Transpiler.MaxSteps = 0 }},
		{"fallback without key", func(c *Config) { c.Store.Encryption.FallbackKeys = []string{"old"} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() expected error")
			}
		})
	}

	if err := Default().Validate(); err != nil {
		t.Errorf("Default().Validate() = %v", err)
	}
}
