package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	if cfg.RuntimeName != "narrate-runtime" {
		t.Fatalf("unexpected runtime name %q", cfg.RuntimeName)
	}
	if cfg.Chunking.TargetWords != 200 {
		t.Fatalf("unexpected default target words %d", cfg.Chunking.TargetWords)
	}
	if cfg.Playback.TickMS != 50 || cfg.Playback.BufferSeconds != 0.5 {
		t.Fatalf("unexpected playback defaults %+v", cfg.Playback)
	}
	if cfg.Speech.Mode != "mock" || cfg.Speech.SampleRate != 22050 {
		t.Fatalf("unexpected speech defaults %+v", cfg.Speech)
	}
	if !cfg.Bus.Embedded || cfg.Bus.Port != 4222 {
		t.Fatalf("unexpected bus defaults %+v", cfg.Bus)
	}
	if err := validate(cfg); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "narrate.yaml")
	body := `
runtime_name: test-runtime
chunking:
  target_words: 80
speech:
  enabled: true
  mode: exec
  command: "piper --model en.onnx"
  sample_rate: 16000
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.RuntimeName != "test-runtime" {
		t.Fatalf("unexpected runtime name %q", cfg.RuntimeName)
	}
	if cfg.Chunking.TargetWords != 80 {
		t.Fatalf("unexpected target words %d", cfg.Chunking.TargetWords)
	}
	if cfg.Speech.Mode != "exec" || cfg.Speech.Command == "" {
		t.Fatalf("unexpected speech config %+v", cfg.Speech)
	}
	// Untouched sections keep their defaults.
	if cfg.HTTP.Port != 8080 {
		t.Fatalf("expected default http port, got %d", cfg.HTTP.Port)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("NARRATE_RUNTIME_NAME", "env-runtime")
	t.Setenv("NARRATE_CHUNKING_TARGET_WORDS", "42")
	t.Setenv("NARRATE_PLAYBACK_BUFFER_SECONDS", "1.5")
	t.Setenv("NARRATE_BUS_EMBEDDED", "false")
	t.Setenv("NARRATE_BUS_SERVERS", "nats://a:4222, nats://b:4222")
	t.Setenv("NARRATE_SPEECH_MODE", "exec")
	t.Setenv("NARRATE_SPEECH_COMMAND", "say")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.RuntimeName != "env-runtime" {
		t.Fatalf("unexpected runtime name %q", cfg.RuntimeName)
	}
	if cfg.Chunking.TargetWords != 42 {
		t.Fatalf("unexpected target words %d", cfg.Chunking.TargetWords)
	}
	if cfg.Playback.BufferSeconds != 1.5 {
		t.Fatalf("unexpected buffer seconds %v", cfg.Playback.BufferSeconds)
	}
	if cfg.Bus.Embedded {
		t.Fatal("expected embedded bus disabled")
	}
	if len(cfg.Bus.Servers) != 2 || cfg.Bus.Servers[1] != "nats://b:4222" {
		t.Fatalf("unexpected servers %v", cfg.Bus.Servers)
	}
	if cfg.Speech.Mode != "exec" || cfg.Speech.Command != "say" {
		t.Fatalf("unexpected speech config %+v", cfg.Speech)
	}
}

func TestEnvOverrideIgnoresBadValues(t *testing.T) {
	t.Setenv("NARRATE_HTTP_PORT", "not-a-number")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTP.Port != 8080 {
		t.Fatalf("unparsable override must keep the default, got %d", cfg.HTTP.Port)
	}
}

func TestSlogLevel(t *testing.T) {
	cases := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
	}
	for _, c := range cases {
		tc := TelemetryConfig{LogLevel: c.in}
		if got := tc.SlogLevel(); got != c.want {
			t.Fatalf("SlogLevel(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestValidateRejects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty runtime name", func(c *Config) { c.RuntimeName = "" }},
		{"bad http port", func(c *Config) { c.HTTP.Port = 0 }},
		{"no servers without embedded bus", func(c *Config) { c.Bus.Embedded = false; c.Bus.Servers = nil }},
		{"bad retention mode", func(c *Config) { c.SessionStore.RetentionMode = "forever" }},
		{"exec without command", func(c *Config) { c.Speech.Mode = "exec"; c.Speech.Command = "" }},
		{"unknown log level", func(c *Config) { c.Telemetry.LogLevel = "verbose" }},
		{"zero target words", func(c *Config) { c.Chunking.TargetWords = 0 }},
		{"zero tick", func(c *Config) { c.Playback.TickMS = 0 }},
		{"zero buffer", func(c *Config) { c.Playback.BufferSeconds = 0 }},
	}
	for _, c := range cases {
		cfg := Default()
		c.mutate(&cfg)
		if err := validate(cfg); err == nil {
			t.Fatalf("%s: expected a validation error", c.name)
		}
	}
}
