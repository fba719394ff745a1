package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the process-wide runtime configuration.
type Config struct {
	HTTP    *HTTPConfig    `json:"http"`
	Game    *GameConfig    `json:"game"`
	Datalog *DatalogConfig `json:"datalog"`

	// LogLevel is a zap level name; empty means info.
	LogLevel string `json:"log_level"`
}

type HTTPConfig struct {
	Host         string        `json:"host"`
	Port         int           `json:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
}

type GameConfig struct {
	// MaxClients caps concurrently live clients.
	MaxClients int `json:"max_clients"`

	// IdleTimeout is how long a client may go without checking in before
	// the reaper evicts it. ReapInterval is the scan cadence; zero derives
	// it from IdleTimeout.
	IdleTimeout  time.Duration `json:"idle_timeout"`
	ReapInterval time.Duration `json:"reap_interval"`

	// PermittedVersions lists the client builds (User-Agent values) allowed
	// through the transport gate. Empty disables the gate.
	PermittedVersions []string `json:"permitted_versions"`
}

type DatalogConfig struct {
	// Path is the SQLite file for the payload datalog. Empty disables
	// datalog persistence.
	Path string `json:"path"`
}

// DefaultConfig returns the stock configuration: capacity 30, five second
// idle timeout, datalog beside the binary, open version gate.
func DefaultConfig() *Config {
	return &Config{
		HTTP: &HTTPConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Game: &GameConfig{
			MaxClients:   30,
			IdleTimeout:  5 * time.Second,
			ReapInterval: 0,
		},
		Datalog: &DatalogConfig{
			Path: "./datalog.db",
		},
		LogLevel: "info",
	}
}

// Validate rejects configurations that would fail at runtime.
func (c *Config) Validate() error {
	if c.HTTP == nil {
		return fmt.Errorf("http configuration is required")
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http port must be between 1 and 65535")
	}
	if c.HTTP.Host == "" {
		return fmt.Errorf("http host cannot be empty")
	}
	if c.HTTP.ReadTimeout <= 0 {
		return fmt.Errorf("http read timeout must be positive")
	}
	if c.HTTP.WriteTimeout <= 0 {
		return fmt.Errorf("http write timeout must be positive")
	}

	if c.Game == nil {
		return fmt.Errorf("game configuration is required")
	}
	if c.Game.MaxClients <= 0 {
		return fmt.Errorf("max clients must be positive")
	}
	if c.Game.IdleTimeout <= 0 {
		return fmt.Errorf("idle timeout must be positive")
	}
	if c.Game.ReapInterval < 0 {
		return fmt.Errorf("reap interval cannot be negative")
	}

	if c.Datalog == nil {
		return fmt.Errorf("datalog configuration is required")
	}

	return nil
}

// LoadFromEnv builds a configuration from defaults overridden by FLYHARD_*
// environment variables. A .env file in the working directory is folded
// into the environment first when present.
func LoadFromEnv() *Config {
	_ = godotenv.Load()

	cfg := DefaultConfig()

	if host := os.Getenv("FLYHARD_HTTP_HOST"); host != "" {
		cfg.HTTP.Host = host
	}
	if port := os.Getenv("FLYHARD_HTTP_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.HTTP.Port = p
		}
	}
	if timeout := os.Getenv("FLYHARD_HTTP_READ_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			cfg.HTTP.ReadTimeout = d
		}
	}
	if timeout := os.Getenv("FLYHARD_HTTP_WRITE_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			cfg.HTTP.WriteTimeout = d
		}
	}
	if max := os.Getenv("FLYHARD_MAX_CLIENTS"); max != "" {
		if n, err := strconv.Atoi(max); err == nil {
			cfg.Game.MaxClients = n
		}
	}
	if timeout := os.Getenv("FLYHARD_IDLE_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			cfg.Game.IdleTimeout = d
		}
	}
	if interval := os.Getenv("FLYHARD_REAP_INTERVAL"); interval != "" {
		if d, err := time.ParseDuration(interval); err == nil {
			cfg.Game.ReapInterval = d
		}
	}
	if versions := os.Getenv("FLYHARD_PERMITTED_VERSIONS"); versions != "" {
		cfg.Game.PermittedVersions = splitVersions(versions)
	}
	if path := os.Getenv("FLYHARD_DATALOG_PATH"); path != "" {
		cfg.Datalog.Path = path
	}
	if level := os.Getenv("FLYHARD_LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}

	return cfg
}

// configFile mirrors Config for JSON parsing, with durations as strings.
type configFile struct {
	HTTP *struct {
		Host         string `json:"host"`
		Port         int    `json:"port"`
		ReadTimeout  string `json:"read_timeout"`
		WriteTimeout string `json:"write_timeout"`
	} `json:"http"`
	Game *struct {
		MaxClients        int      `json:"max_clients"`
		IdleTimeout       string   `json:"idle_timeout"`
		ReapInterval      string   `json:"reap_interval"`
		PermittedVersions []string `json:"permitted_versions"`
	} `json:"game"`
	Datalog *struct {
		Path string `json:"path"`
	} `json:"datalog"`
	LogLevel string `json:"log_level"`
}

// LoadFromFile reads a JSON configuration file over the defaults.
func LoadFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()
	if err := applyFile(cfg, path); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", path, err)
	}
	return cfg, nil
}

// applyFile overlays the keys set in the JSON file onto cfg, leaving
// omitted keys untouched.
func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var file configFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if file.HTTP != nil {
		if file.HTTP.Host != "" {
			cfg.HTTP.Host = file.HTTP.Host
		}
		if file.HTTP.Port > 0 {
			cfg.HTTP.Port = file.HTTP.Port
		}
		if file.HTTP.ReadTimeout != "" {
			if d, err := time.ParseDuration(file.HTTP.ReadTimeout); err == nil {
				cfg.HTTP.ReadTimeout = d
			}
		}
		if file.HTTP.WriteTimeout != "" {
			if d, err := time.ParseDuration(file.HTTP.WriteTimeout); err == nil {
				cfg.HTTP.WriteTimeout = d
			}
		}
	}

	if file.Game != nil {
		if file.Game.MaxClients > 0 {
			cfg.Game.MaxClients = file.Game.MaxClients
		}
		if file.Game.IdleTimeout != "" {
			if d, err := time.ParseDuration(file.Game.IdleTimeout); err == nil {
				cfg.Game.IdleTimeout = d
			}
		}
		if file.Game.ReapInterval != "" {
			if d, err := time.ParseDuration(file.Game.ReapInterval); err == nil {
				cfg.Game.ReapInterval = d
			}
		}
		if len(file.Game.PermittedVersions) > 0 {
			cfg.Game.PermittedVersions = file.Game.PermittedVersions
		}
	}

	if file.Datalog != nil && file.Datalog.Path != "" {
		cfg.Datalog.Path = file.Datalog.Path
	}
	if file.LogLevel != "" {
		cfg.LogLevel = file.LogLevel
	}
	return nil
}

// LoadWithPrecedence resolves configuration as file > environment >
// defaults, key by key: the file overrides only the keys it sets, so
// environment values survive for keys the file omits. File errors fall
// back silently to the environment layer.
func LoadWithPrecedence(path string) *Config {
	cfg := LoadFromEnv()

	if path != "" {
		_ = applyFile(cfg, path)
	}
	return cfg
}

func splitVersions(raw string) []string {
	var out []string
	for _, v := range strings.Split(raw, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
