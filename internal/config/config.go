// Package config loads the server configuration from an optional YAML file,
// defaults and CAFE_* environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration of the cafe server and CLI.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Store      StoreConfig      `yaml:"store"`
	Logging    LoggingConfig    `yaml:"logging"`
	Transpiler TranspilerConfig `yaml:"transpiler"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// Timeouts in seconds.
	ReadTimeout  int `yaml:"read_timeout"`
	WriteTimeout int `yaml:"write_timeout"`
}

// StoreConfig selects the automation store backend.
type StoreConfig struct {
	// Driver is one of memory, file, redis or sqlite.
	Driver string      `yaml:"driver"`
	Path   string      `yaml:"path"`
	Redis  RedisConfig `yaml:"redis"`
	// Encryption, when a key is set, encrypts stored YAML at rest.
	Encryption EncryptionConfig `yaml:"encryption"`
}

// EncryptionConfig holds base64 AES-256 keys.
type EncryptionConfig struct {
	Key          string   `yaml:"key"`
	FallbackKeys []string `yaml:"fallback_keys"`
	// AllowPlaintext reads automations stored before encryption was enabled.
	AllowPlaintext bool `yaml:"allow_plaintext"`
}

// RedisConfig configures the redis store.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
	// TTL in seconds; 0 keeps entries forever.
	TTL int `yaml:"ttl"`
}

// LoggingConfig configures the application logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// TranspilerConfig holds the defaults applied to every transpilation.
type TranspilerConfig struct {
	Dialect   string `yaml:"dialect"`
	MaxSteps  int    `yaml:"max_steps"`
	Canonical bool   `yaml:"canonical"`
}

// Store drivers.
const (
	DriverMemory = "memory"
	DriverFile   = "file"
	DriverRedis  = "redis"
	DriverSQLite = "sqlite"
)

// Load reads the configuration. An empty path skips the file and uses the
// defaults; environment overrides apply either way.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "127.0.0.1",
			Port:         8080,
			ReadTimeout:  15,
			WriteTimeout: 15,
		},
		Store: StoreConfig{
			Driver: DriverMemory,
			Path:   "./automations",
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "cafe",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Transpiler: TranspilerConfig{
			Dialect:  "current",
			MaxSteps: 1000,
		},
	}
}

// applyEnvOverrides follows the pattern CAFE_SECTION_KEY.
func applyEnvOverrides(cfg *Config) error {
	strs := map[string]*string{
		"CAFE_SERVER_HOST":    &cfg.Server.Host,
		"CAFE_STORE_DRIVER":   &cfg.Store.Driver,
		"CAFE_STORE_PATH":     &cfg.Store.Path,
		"CAFE_REDIS_ADDR":     &cfg.Store.Redis.Addr,
		"CAFE_REDIS_PASSWORD": &cfg.Store.Redis.Password,
		"CAFE_REDIS_PREFIX":   &cfg.Store.Redis.Prefix,
		"CAFE_STORE_KEY":      &cfg.Store.Encryption.Key,
		"CAFE_LOG_LEVEL":      &cfg.Logging.Level,
		"CAFE_LOG_FORMAT":     &cfg.Logging.Format,
		"CAFE_DIALECT":        &cfg.Transpiler.Dialect,
	}
	for env, dst := range strs {
		if v := os.Getenv(env); v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"CAFE_SERVER_PORT": &cfg.Server.Port,
		"CAFE_REDIS_DB":    &cfg.Store.Redis.DB,
		"CAFE_REDIS_TTL":   &cfg.Store.Redis.TTL,
		"CAFE_MAX_STEPS":   &cfg.Transpiler.MaxSteps,
	}
	for env, dst := range ints {
		v := os.Getenv(env)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", env, err)
		}
		*dst = n
	}

	if v := os.Getenv("CAFE_CANONICAL"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("CAFE_CANONICAL: %w", err)
		}
		cfg.Transpiler.Canonical = b
	}
	return nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, "server.port must be between 1 and 65535")
	}
	switch c.Store.Driver {
	case DriverMemory, DriverRedis:
	case DriverFile, DriverSQLite:
		if c.Store.Path == "" {
			errs = append(errs, "store.path is required for the "+c.Store.Driver+" driver")
		}
	default:
		errs = append(errs, fmt.Sprintf("store.driver %q is not one of memory, file, redis, sqlite", c.Store.Driver))
	}
	if c.Store.Driver == DriverRedis && c.Store.Redis.Addr == "" {
		errs = append(errs, "store.redis.addr is required for the redis driver")
	}
	if c.Store.Redis.TTL < 0 {
		errs = append(errs, "store.redis.ttl must not be negative")
	}
	if c.Store.Encryption.Key == "" && len(c.Store.Encryption.FallbackKeys) > 0 {
		errs = append(errs, "store.encryption.fallback_keys requires store.encryption.key")
	}
	if d := c.Transpiler.Dialect; d != "current" && d != "legacy" {
		errs = append(errs, fmt.Sprintf("transpiler.dialect %q is not one of current, legacy", d))
	}
	if c.Transpiler.MaxSteps < 1 {
		errs = append(errs, "transpiler.max_steps must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// RedisTTL returns the redis entry lifetime.
func (c *Config) RedisTTL() time.Duration {
	return time.Duration(c.Store.Redis.TTL) * time.Second
}

// GetReadTimeout returns the HTTP read timeout.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.Server.ReadTimeout) * time.Second
}

// GetWriteTimeout returns the HTTP write timeout.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.Server.WriteTimeout) * time.Second
}
