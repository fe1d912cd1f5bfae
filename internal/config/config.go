// Package config loads the sluice YAML configuration file.
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/sluice/pkg/dsl"
)

// DefaultPath is used when no --config flag is given.
const DefaultPath = "sluice.yaml"

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Store     StoreConfig     `yaml:"store"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Log       LogConfig       `yaml:"log"`
}

type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	SuspendAfter string        `yaml:"suspend_after"`
	Admin        bool          `yaml:"admin"`
	AdminPrefix  string        `yaml:"admin_prefix"`
	Timeout      time.Duration `yaml:"timeout"`
}

// PipelineConfig embeds the manifest fields so small setups need a single file.
// Manifest, when set, points to a separate manifest merged over the inline one.
type PipelineConfig struct {
	dsl.Manifest `yaml:",inline"`
	ManifestPath string `yaml:"manifest"`
}

type StoreConfig struct {
	Type          string      `yaml:"type"` // memory, file, redis, sqlite
	Path          string      `yaml:"path"`
	Redis         RedisConfig `yaml:"redis"`
	EncryptionKey string      `yaml:"encryption_key"` // base64, 32 bytes
	FallbackKeys  []string    `yaml:"fallback_keys"`
	Redact        []string    `yaml:"redact"`
}

type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Prefix   string        `yaml:"prefix"`
	TTL      time.Duration `yaml:"ttl"`
	Lock     bool          `yaml:"lock"`
}

type TelemetryConfig struct {
	Metrics     bool   `yaml:"metrics"`
	MetricsPath string `yaml:"metrics_path"`
	Tracing     bool   `yaml:"tracing"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Store types.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
	StoreSQLite = "sqlite"
)

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)

// Default returns the configuration used when no file exists.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads path, substitutes ${VAR} and ${VAR:-default} references and
// applies defaults. A missing file at DefaultPath is not an error.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return Default(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	if cfg.Pipeline.ManifestPath != "" {
		m, err := dsl.LoadFile(cfg.Pipeline.ManifestPath)
		if err != nil {
			return nil, err
		}
		cfg.Pipeline.Manifest = cfg.Pipeline.Manifest.Merge(m)
	}
	return cfg, nil
}

// Parse decodes a configuration document.
func Parse(raw []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(substituteEnvVars(string(raw))), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.SuspendAfter == "" {
		c.Server.SuspendAfter = "uri_matching"
	}
	if c.Server.AdminPrefix == "" {
		c.Server.AdminPrefix = "/_sluice"
	}
	if c.Store.Type == "" {
		c.Store.Type = StoreMemory
	}
	if c.Store.Type == StoreFile && c.Store.Path == "" {
		c.Store.Path = ".sluice/runs"
	}
	if c.Store.Type == StoreSQLite && c.Store.Path == "" {
		c.Store.Path = "sluice.db"
	}
	if c.Store.Type == StoreRedis && c.Store.Redis.Addr == "" {
		c.Store.Redis.Addr = "localhost:6379"
	}
	if c.Telemetry.MetricsPath == "" {
		c.Telemetry.MetricsPath = "/metrics"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks enumerations and key material.
func (c *Config) Validate() error {
	var errs []error
	switch c.Store.Type {
	case StoreMemory, StoreFile, StoreRedis, StoreSQLite:
	default:
		errs = append(errs, fmt.Errorf("store.type: unknown store %q", c.Store.Type))
	}
	if c.Store.EncryptionKey != "" {
		if _, err := DecodeKey(c.Store.EncryptionKey); err != nil {
			errs = append(errs, fmt.Errorf("store.encryption_key: %w", err))
		}
	}
	for i, k := range c.Store.FallbackKeys {
		if _, err := DecodeKey(k); err != nil {
			errs = append(errs, fmt.Errorf("store.fallback_keys[%d]: %w", i, err))
		}
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format: unknown format %q", c.Log.Format))
	}
	if c.Server.Timeout < 0 {
		errs = append(errs, errors.New("server.timeout: must not be negative"))
	}
	if err := c.Pipeline.Manifest.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("pipeline: %w", err))
	}
	return errors.Join(errs...)
}

// DecodeKey decodes a base64 AES-256 key.
func DecodeKey(s string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid base64: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("key must be 32 bytes, got %d", len(key))
	}
	return key, nil
}

func substituteEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		m := envVarPattern.FindStringSubmatch(match)
		if v, ok := os.LookupEnv(m[1]); ok && v != "" {
			return v
		}
		return m[2]
	})
}
