package shared

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

//go:embed config.example.toml
var exampleConf []byte

// EnvPrefix is the prefix for environment overrides, e.g. TUNEDECK_BASE_URL.
const EnvPrefix = "TUNEDECK"

// Token store backends accepted by [AuthConfig.Store].
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreBolt   = "bolt"
	StoreSQLite = "sqlite"
)

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Auth     AuthConfig     `toml:"auth"`
	Client   ClientConfig   `toml:"client"`
	Jobs     JobsConfig     `toml:"jobs"`
	Database DatabaseConfig `toml:"database"`
	Log      LogConfig      `toml:"log"`
}

// ServerConfig describes the backend the client talks to.
type ServerConfig struct {
	BaseURL   string `toml:"base_url"`
	LoginURL  string `toml:"login_url"`
	OpenLogin bool   `toml:"open_login"`
}

// AuthConfig selects where the token pair is persisted.
type AuthConfig struct {
	Store string `toml:"store"`
	Path  string `toml:"path"`
}

// ClientConfig contains outbound request settings.
type ClientConfig struct {
	UserAgent string  `toml:"user_agent"`
	RateLimit float64 `toml:"rate_limit"`
	Burst     int     `toml:"burst"`
}

// JobsConfig contains job polling defaults in milliseconds.
type JobsConfig struct {
	IntervalMS int `toml:"interval_ms"`
	TimeoutMS  int `toml:"timeout_ms"`
}

// Interval returns the poll interval as a [time.Duration].
func (j JobsConfig) Interval() time.Duration {
	return time.Duration(j.IntervalMS) * time.Millisecond
}

// Timeout returns the poll timeout as a [time.Duration].
func (j JobsConfig) Timeout() time.Duration {
	return time.Duration(j.TimeoutMS) * time.Millisecond
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level string `toml:"level"`
}

// envOverrides lists the settings that may come from the environment.
type envOverrides struct {
	BaseURL      string `envconfig:"BASE_URL"`
	LoginURL     string `envconfig:"LOGIN_URL"`
	TokenStore   string `envconfig:"TOKEN_STORE"`
	TokenPath    string `envconfig:"TOKEN_PATH"`
	LogLevel     string `envconfig:"LOG_LEVEL"`
	DatabasePath string `envconfig:"DATABASE_PATH"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, exampleConf, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// ApplyEnv overlays TUNEDECK_* environment variables onto the config.
//
// A .env file in the working directory is loaded first when present.
func (c *Config) ApplyEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	var env envOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&c.Server.BaseURL, env.BaseURL)
	set(&c.Server.LoginURL, env.LoginURL)
	set(&c.Auth.Store, env.TokenStore)
	set(&c.Auth.Path, env.TokenPath)
	set(&c.Log.Level, env.LogLevel)
	set(&c.Database.Path, env.DatabasePath)

	return c.Validate()
}

// Validate reports configuration values the client cannot work with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server.BaseURL) == "" {
		return fmt.Errorf("%w: server.base_url is required", ErrInvalidConfig)
	}

	switch c.Auth.Store {
	case StoreMemory, StoreFile, StoreBolt, StoreSQLite:
	default:
		return fmt.Errorf("%w: unknown auth.store %q", ErrInvalidConfig, c.Auth.Store)
	}

	if c.Jobs.IntervalMS < 0 || c.Jobs.TimeoutMS < 0 {
		return fmt.Errorf("%w: job interval and timeout must not be negative", ErrInvalidConfig)
	}
	return nil
}

// ExpandPath resolves a leading ~ to the user's home directory and returns an absolute path.
func ExpandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("%w: path is empty", ErrInvalidInput)
	}

	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
