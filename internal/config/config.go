// Package config loads chattree configuration from an optional YAML file
// layered under environment variables, and wires up logging.
package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration values.
type Config struct {
	// Storage
	DBPath   string
	CacheTTL time.Duration

	// Logging
	LogFile  string
	LogLevel slog.Level

	// Server
	ServerPort string

	// Indexing
	DefaultPlatform string
}

// fileConfig mirrors Config for the optional YAML file. Pointer fields
// distinguish "absent" from zero values.
type fileConfig struct {
	DBPath          *string `yaml:"db_path"`
	CacheTTL        *string `yaml:"cache_ttl"`
	LogFile         *string `yaml:"log_file"`
	LogLevel        *string `yaml:"log_level"`
	ServerPort      *string `yaml:"server_port"`
	DefaultPlatform *string `yaml:"default_platform"`
}

// Load reads configuration: defaults, then the YAML file at
// ~/.config/chattree/config.yaml when present, then environment
// variables. Environment wins.
func Load() Config {
	cfg := Config{
		DBPath:          defaultDBPath(),
		CacheTTL:        24 * time.Hour,
		LogFile:         "/tmp/chattree.log",
		LogLevel:        slog.LevelInfo,
		ServerPort:      "8493",
		DefaultPlatform: "chatgpt",
	}

	applyFile(&cfg, defaultConfigPath())

	cfg.DBPath = getEnv("CHATTREE_DB_PATH", cfg.DBPath)
	cfg.LogFile = getEnv("CHATTREE_LOG_FILE", cfg.LogFile)
	cfg.ServerPort = getEnv("CHATTREE_SERVER_PORT", cfg.ServerPort)
	cfg.DefaultPlatform = getEnv("CHATTREE_PLATFORM", cfg.DefaultPlatform)
	if v := os.Getenv("CHATTREE_LOG_LEVEL"); v != "" {
		cfg.LogLevel = parseLogLevel(v)
	}
	if v := os.Getenv("CHATTREE_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.CacheTTL = d
		}
	}
	return cfg
}

// applyFile overlays values from a YAML config file. A missing or
// malformed file is ignored: configuration always succeeds.
func applyFile(cfg *Config, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		slog.Warn("ignoring malformed config file", "path", path, "error", err)
		return
	}

	if fc.DBPath != nil {
		cfg.DBPath = *fc.DBPath
	}
	if fc.CacheTTL != nil {
		if d, err := time.ParseDuration(*fc.CacheTTL); err == nil {
			cfg.CacheTTL = d
		}
	}
	if fc.LogFile != nil {
		cfg.LogFile = *fc.LogFile
	}
	if fc.LogLevel != nil {
		cfg.LogLevel = parseLogLevel(*fc.LogLevel)
	}
	if fc.ServerPort != nil {
		cfg.ServerPort = *fc.ServerPort
	}
	if fc.DefaultPlatform != nil {
		cfg.DefaultPlatform = *fc.DefaultPlatform
	}
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "chattree", "config.yaml")
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "chattree.db"
	}
	return filepath.Join(home, ".local", "share", "chattree", "db")
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
