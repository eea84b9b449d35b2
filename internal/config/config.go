// Package config loads the runtime configuration of the fable CLI.
//
// Values come from defaults, then an optional YAML file, then FABLE_* environment
// variables, each layer overriding the previous one.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/aretw0/fable/pkg/domain"
	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "FABLE_"

// DefaultFile is the config file looked up when no path is given.
const DefaultFile = "fable.yaml"

// Store kinds.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
	StoreBlob   = "blob"
)

// Config is the full CLI configuration.
type Config struct {
	// Assets is a directory or a bucket URL such as mem:// or file:///path.
	Assets   string `yaml:"assets" env:"ASSETS"`
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL"`

	InitialState string `yaml:"initial_state" env:"INITIAL_STATE"`
	FinalState   string `yaml:"final_state" env:"FINAL_STATE"`
	Locale       string `yaml:"locale" env:"LOCALE"`

	Session SessionConfig `yaml:"session" envPrefix:"SESSION_"`
	Store   StoreConfig   `yaml:"store" envPrefix:"STORE_"`

	// EncryptionKey is a hex encoded 32 byte AES key. Empty disables encryption.
	EncryptionKey string `yaml:"encryption_key" env:"ENCRYPTION_KEY"`
	UnsafeScripts bool   `yaml:"unsafe_scripts" env:"UNSAFE_SCRIPTS"`
}

// SessionConfig controls the session expiry sweep.
type SessionConfig struct {
	Interval time.Duration `yaml:"interval" env:"INTERVAL"`
	Expiry   time.Duration `yaml:"expiry" env:"EXPIRY"`
}

// StoreConfig selects and configures the save store.
type StoreConfig struct {
	Kind string `yaml:"kind" env:"KIND"`
	// Path is the directory of the file store or the bucket URL of the blob store.
	Path  string      `yaml:"path" env:"PATH"`
	Redis RedisConfig `yaml:"redis" envPrefix:"REDIS_"`
}

// RedisConfig configures the redis save store.
type RedisConfig struct {
	Addr     string        `yaml:"addr" env:"ADDR"`
	Password string        `yaml:"password" env:"PASSWORD"`
	DB       int           `yaml:"db" env:"DB"`
	Prefix   string        `yaml:"prefix" env:"PREFIX"`
	TTL      time.Duration `yaml:"ttl" env:"TTL"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Assets:       ".",
		LogLevel:     "info",
		InitialState: domain.DefaultInitialStateKey,
		FinalState:   domain.DefaultFinalStateKey,
		Locale:       domain.DefaultLocale,
		Session: SessionConfig{
			Interval: time.Minute,
			Expiry:   10 * time.Minute,
		},
		Store: StoreConfig{
			Kind: StoreMemory,
			Path: ".fable/saves",
			Redis: RedisConfig{
				Addr: "localhost:6379",
			},
		},
	}
}

// Load reads path over the defaults, then applies the environment.
// A missing file is not an error when path is the default file.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the values that cannot be defaulted.
func (c *Config) Validate() error {
	var errs []error
	if c.Assets == "" {
		errs = append(errs, errors.New("assets is required"))
	}
	if c.InitialState == "" || c.FinalState == "" {
		errs = append(errs, errors.New("initial and final state keys are required"))
	}
	switch c.Store.Kind {
	case StoreMemory, StoreFile, StoreRedis, StoreBlob:
	default:
		errs = append(errs, fmt.Errorf("unknown store kind %q", c.Store.Kind))
	}
	if _, err := c.Key(); err != nil {
		errs = append(errs, err)
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Level returns the slog level named by LogLevel.
func (c *Config) Level() slog.Level {
	level, _ := parseLevel(c.LogLevel)
	return level
}

// Key decodes EncryptionKey. It returns nil when encryption is disabled.
func (c *Config) Key() ([]byte, error) {
	if c.EncryptionKey == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(c.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("encryption key is not hex: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("encryption key must be 32 bytes, got %d", len(key))
	}
	return key, nil
}

// IsBucketURL reports whether Assets names a bucket instead of a directory.
func (c *Config) IsBucketURL() bool {
	return strings.Contains(c.Assets, "://")
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}
