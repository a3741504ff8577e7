// Package config loads runtime configuration from the environment and from
// an optional YAML file.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joeshaw/envdecode"
	"gopkg.in/yaml.v3"
)

// Storage driver names accepted by Config.StorageDriver.
const (
	DriverJSONFile = "jsonfile"
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

// Config holds every tunable of the intake server.
type Config struct {
	HTTPAddr      string `env:"HTTP_ADDR,default=:3000" yaml:"http_addr"`
	DataDir       string `env:"DATA_DIR,default=./data" yaml:"data_dir"`
	StorageDriver string `env:"STORAGE_DRIVER,default=jsonfile" yaml:"storage_driver"`
	PostgresDSN   string `env:"POSTGRES_DSN" yaml:"postgres_dsn"`

	TelegramToken string `env:"TELEGRAM_BOT_TOKEN" yaml:"telegram_token"`
	AdminChatID   int64  `env:"ADMIN_CHAT_ID" yaml:"admin_chat_id"`
	RootAdmin     string `env:"MAIN_ADMIN" yaml:"root_admin"`

	// DigestSchedule is a cron expression; empty disables the pending digest.
	DigestSchedule string `env:"DIGEST_SCHEDULE" yaml:"digest_schedule"`

	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS,default=10" yaml:"rate_limit_rps"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST,default=20" yaml:"rate_limit_burst"`

	LogLevel string `env:"LOG_LEVEL,default=info" yaml:"log_level"`
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFromPath reads configuration from a YAML file. Fields left empty fall
// back to the same defaults Load applies.
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads from path when it exists, otherwise from the
// environment alone.
func LoadOrDefault(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return LoadFromPath(path)
		}
	}
	return Load()
}

func (c *Config) applyDefaults() {
	if c.HTTPAddr == "" {
		c.HTTPAddr = ":3000"
	}
	if c.DataDir == "" {
		c.DataDir = "./data"
	}
	if c.StorageDriver == "" {
		c.StorageDriver = DriverJSONFile
	}
	if c.RateLimitRPS == 0 {
		c.RateLimitRPS = 10
	}
	if c.RateLimitBurst == 0 {
		c.RateLimitBurst = 20
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

func (c *Config) validate() error {
	switch c.StorageDriver {
	case DriverJSONFile, DriverMemory:
	case DriverPostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("storage driver %s requires POSTGRES_DSN", DriverPostgres)
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.StorageDriver)
	}
	if c.RateLimitRPS <= 0 {
		return fmt.Errorf("rate limit must be positive")
	}
	return nil
}
