package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.MIDI.PortHint != "ewi" {
		t.Errorf("expected port hint ewi, got %q", cfg.MIDI.PortHint)
	}
	if cfg.MIDI.ReceiveTimeout != 5*time.Second {
		t.Errorf("expected 5s receive timeout, got %v", cfg.MIDI.ReceiveTimeout)
	}
	if cfg.Serial.Baud != midiBaud || cfg.Serial.Device != "" {
		t.Errorf("unexpected serial defaults %+v", cfg.Serial)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "text" {
		t.Errorf("unexpected log defaults %+v", cfg.Log)
	}
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ewimcp.yaml")
	data := []byte(`midi:
  port_hint: "EWI-USB"
  receive_timeout: 2s
serial:
  device: /dev/ttyUSB0
log:
  format: json
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("EWIMCP_LOG_LEVEL", "debug")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.MIDI.PortHint != "EWI-USB" || cfg.MIDI.ReceiveTimeout != 2*time.Second {
		t.Errorf("unexpected midi config %+v", cfg.MIDI)
	}
	if cfg.Serial.Device != "/dev/ttyUSB0" || cfg.Serial.Baud != midiBaud {
		t.Errorf("unexpected serial config %+v", cfg.Serial)
	}
	if cfg.Log.Format != "json" || cfg.Log.Level != "debug" {
		t.Errorf("unexpected log config %+v", cfg.Log)
	}
}

func TestLoadConfigBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	if err := os.WriteFile(path, []byte("midi: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected error for malformed config")
	}
}

func TestParseLogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug, "WARN": slog.LevelWarn, "error": slog.LevelError, "": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := parseLogLevel(in); got != want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestInitLoggerToFile(t *testing.T) {
	defer slog.SetDefault(slog.Default())

	path := filepath.Join(t.TempDir(), "ewimcp.log")
	logger := initLogger(LogConfig{Level: "info", Format: "json", File: path, MaxSizeMB: 1})
	logger.Info("syx: file saved", "path", "x.syx")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("log file not written: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("log file is empty")
	}
}
