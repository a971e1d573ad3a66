package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"chatty", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLogLevel(tt.in); got != tt.want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestApplyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := "db_path: /custom/db\ncache_ttl: 2h\nserver_port: \"9000\"\nlog_level: debug\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := Config{
		DBPath:          "/default/db",
		CacheTTL:        24 * time.Hour,
		ServerPort:      "8493",
		LogLevel:        slog.LevelInfo,
		DefaultPlatform: "chatgpt",
	}
	applyFile(&cfg, path)

	if cfg.DBPath != "/custom/db" {
		t.Errorf("DBPath = %q, want /custom/db", cfg.DBPath)
	}
	if cfg.CacheTTL != 2*time.Hour {
		t.Errorf("CacheTTL = %v, want 2h", cfg.CacheTTL)
	}
	if cfg.ServerPort != "9000" {
		t.Errorf("ServerPort = %q, want 9000", cfg.ServerPort)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v, want debug", cfg.LogLevel)
	}
	// Keys absent from the file keep their defaults.
	if cfg.DefaultPlatform != "chatgpt" {
		t.Errorf("DefaultPlatform = %q, want chatgpt", cfg.DefaultPlatform)
	}
}

func TestApplyFile_MissingAndMalformed(t *testing.T) {
	cfg := Config{DBPath: "/default/db"}
	applyFile(&cfg, filepath.Join(t.TempDir(), "absent.yaml"))
	if cfg.DBPath != "/default/db" {
		t.Errorf("missing file changed config: %q", cfg.DBPath)
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("{{nope"), 0o644); err != nil {
		t.Fatal(err)
	}
	applyFile(&cfg, path)
	if cfg.DBPath != "/default/db" {
		t.Errorf("malformed file changed config: %q", cfg.DBPath)
	}
}

func TestSetupLoggerWithWriters_DualOutput(t *testing.T) {
	var stderr, file bytes.Buffer
	logger := SetupLoggerWithWriters(&stderr, &file, slog.LevelInfo)

	logger.Info("hello", "k", "v")

	if !strings.Contains(stderr.String(), "hello") {
		t.Errorf("stderr output missing record: %q", stderr.String())
	}

	var record map[string]any
	if err := json.Unmarshal(file.Bytes(), &record); err != nil {
		t.Fatalf("file output is not JSON: %v (%q)", err, file.String())
	}
	if record["msg"] != "hello" || record["k"] != "v" {
		t.Errorf("file record = %v", record)
	}
}

func TestSetupLoggerWithWriters_LevelFiltering(t *testing.T) {
	var stderr, file bytes.Buffer
	logger := SetupLoggerWithWriters(&stderr, &file, slog.LevelWarn)

	logger.Info("quiet")
	if stderr.Len() != 0 || file.Len() != 0 {
		t.Error("info record passed a warn-level logger")
	}
}
