// Package config loads service configuration. Values come from built-in
// defaults, then an optional YAML file, then the environment (a .env file is
// read first and never overrides variables already set).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"metrics-monitor/internal/auth"
)

var (
	ErrMissingSecret       = errors.New("SECRET_KEY is required when authentication is enabled")
	ErrMissingDBPath       = errors.New("database path is required")
	ErrMissingListenAddr   = errors.New("listen address is required")
	ErrInvalidPollInterval = errors.New("poll interval must be > 0")
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Collector CollectorConfig `yaml:"collector"`
	Logging   LoggingConfig   `yaml:"logging"`
	Auth      AuthConfig      `yaml:"auth"`
}

type ServerConfig struct {
	ListenAddr  string `yaml:"listen_addr"`
	MetricsAddr string `yaml:"metrics_addr"`
}

type DatabaseConfig struct {
	Path         string        `yaml:"path"`
	LockTimeout  time.Duration `yaml:"lock_timeout"`
	MaxOpenConns int           `yaml:"max_open_conns"`
}

type CollectorConfig struct {
	Enabled      bool          `yaml:"enabled"`
	PollInterval time.Duration `yaml:"poll_interval"`
	Symbols      []string      `yaml:"symbols"`
	DiskPath     string        `yaml:"disk_path"`
	PoolSize     int           `yaml:"pool_size"`
}

type LoggingConfig struct {
	Level   string `yaml:"level"`
	Format  string `yaml:"format"`
	Dir     string `yaml:"dir"`
	File    string `yaml:"file"`
	Console bool   `yaml:"console"`
}

type AuthConfig struct {
	RequireAuth bool          `yaml:"require_auth"`
	TokenTTL    time.Duration `yaml:"token_ttl"`
	Users       []auth.User   `yaml:"users"`

	// Secret is only read from SECRET_KEY.
	Secret string `yaml:"-"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr:  ":8080",
			MetricsAddr: ":2112",
		},
		Database: DatabaseConfig{
			Path:         "metrics.db",
			LockTimeout:  30 * time.Second,
			MaxOpenConns: 8,
		},
		Collector: CollectorConfig{
			Enabled:      true,
			PollInterval: time.Minute,
			Symbols:      []string{"AAPL", "GOOGL", "MSFT"},
			DiskPath:     "/",
			PoolSize:     4,
		},
		Logging: LoggingConfig{
			Level:   "info",
			Format:  "console",
			Dir:     "log",
			File:    "metrics.log",
			Console: true,
		},
		Auth: AuthConfig{
			RequireAuth: true,
			TokenTTL:    24 * time.Hour,
		},
	}
}

// LoadEnvFile reads KEY=value pairs from path into the environment. A
// missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("error loading env file %s: %w", path, err)
	}
	return nil
}

// Load returns the defaults overlaid with the YAML file at path (if any) and
// then with environment overrides. It does not validate.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("error parsing config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v, ok := os.LookupEnv("METRICS_DB_PATH"); ok {
		c.Database.Path = v
	}
	if v, ok := os.LookupEnv("METRICS_LISTEN_ADDR"); ok {
		c.Server.ListenAddr = v
	}
	if v, ok := os.LookupEnv("METRICS_METRICS_ADDR"); ok {
		c.Server.MetricsAddr = v
	}
	if v, ok := os.LookupEnv("METRICS_LOG_LEVEL"); ok {
		c.Logging.Level = v
	}
	if v, ok := os.LookupEnv("METRICS_LOG_DIR"); ok {
		c.Logging.Dir = v
	}
	if v, ok := os.LookupEnv("METRICS_SYMBOLS"); ok {
		c.Collector.Symbols = splitList(v)
	}
	if v, ok := os.LookupEnv("METRICS_POLL_INTERVAL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid METRICS_POLL_INTERVAL %q: %w", v, err)
		}
		c.Collector.PollInterval = d
	}
	if v, ok := os.LookupEnv("METRICS_REQUIRE_AUTH"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid METRICS_REQUIRE_AUTH %q: %w", v, err)
		}
		c.Auth.RequireAuth = b
	}
	if v, ok := os.LookupEnv("METRICS_ADMIN_PASSWORD_HASH"); ok && v != "" {
		c.Auth.Users = append(c.Auth.Users, auth.User{Username: "admin", PasswordHash: v, Role: "admin"})
	}
	c.Auth.Secret = os.Getenv("SECRET_KEY")
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return ErrMissingDBPath
	}
	if c.Server.ListenAddr == "" {
		return ErrMissingListenAddr
	}
	if c.Collector.Enabled && c.Collector.PollInterval <= 0 {
		return ErrInvalidPollInterval
	}
	if c.Auth.RequireAuth && c.Auth.Secret == "" {
		return ErrMissingSecret
	}
	return nil
}
