package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type TelemetryConfig struct {
	LogLevel     string `yaml:"log_level"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	OTLPInsecure bool   `yaml:"otlp_insecure"`
}

// SlogLevel maps the configured log level onto slog's scale. Unknown
// values fall back to info.
func (t TelemetryConfig) SlogLevel() slog.Level {
	switch strings.ToLower(t.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type HTTPConfig struct {
	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`
}

type Config struct {
	RuntimeName  string             `yaml:"runtime_name"`
	Environment  string             `yaml:"environment"`
	HTTP         HTTPConfig         `yaml:"http"`
	Telemetry    TelemetryConfig    `yaml:"telemetry"`
	Bus          BusConfig          `yaml:"bus"`
	SessionStore SessionStoreConfig `yaml:"session_store"`
	Speech       SpeechConfig       `yaml:"speech"`
	Chunking     ChunkingConfig     `yaml:"chunking"`
	Playback     PlaybackConfig     `yaml:"playback"`
}

type BusConfig struct {
	Embedded       bool     `yaml:"embedded"`
	Port           int      `yaml:"port"`
	Servers        []string `yaml:"servers"`
	Username       string   `yaml:"username"`
	Password       string   `yaml:"password"`
	Token          string   `yaml:"token"`
	TLSInsecure    bool     `yaml:"tls_insecure"`
	ConnectTimeout int      `yaml:"connect_timeout_ms"`
}

type SessionStoreConfig struct {
	Path          string `yaml:"path"`
	RetentionMode string `yaml:"retention_mode"`
	RetentionDays int    `yaml:"retention_days"`
	MaxSessions   int    `yaml:"max_sessions"`
	VacuumOnStart bool   `yaml:"vacuum_on_start"`
}

type SpeechConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Mode       string `yaml:"mode"` // mock, exec
	Command    string `yaml:"command"`
	Voice      string `yaml:"voice"`
	SampleRate int    `yaml:"sample_rate"`
}

type ChunkingConfig struct {
	TargetWords int `yaml:"target_words"`
}

type PlaybackConfig struct {
	TickMS        int     `yaml:"tick_ms"`
	BufferSeconds float64 `yaml:"buffer_seconds"`
}

func Default() Config {
	return Config{
		RuntimeName: "narrate-runtime",
		Environment: "development",
		HTTP: HTTPConfig{
			Bind: "0.0.0.0",
			Port: 8080,
		},
		Telemetry: TelemetryConfig{
			LogLevel:     "info",
			OTLPEndpoint: "",
			OTLPInsecure: true,
		},
		Bus: BusConfig{
			Embedded:       true,
			Port:           4222,
			Servers:        []string{"nats://localhost:4222"},
			ConnectTimeout: 2000,
		},
		SessionStore: SessionStoreConfig{
			Path:          "./data/narrate-sessions.db",
			RetentionMode: "session",
			RetentionDays: 30,
			MaxSessions:   10000,
		},
		Speech: SpeechConfig{
			Enabled:    true,
			Mode:       "mock",
			Voice:      "en-US",
			SampleRate: 22050,
		},
		Chunking: ChunkingConfig{
			TargetWords: 200,
		},
		Playback: PlaybackConfig{
			TickMS:        50,
			BufferSeconds: 0.5,
		},
	}
}

func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, fmt.Errorf("config file not found: %w", err)
			}
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.RuntimeName, "NARRATE_RUNTIME_NAME")
	overrideString(&cfg.Environment, "NARRATE_RUNTIME_ENVIRONMENT")
	overrideString(&cfg.HTTP.Bind, "NARRATE_HTTP_BIND")
	overrideInt(&cfg.HTTP.Port, "NARRATE_HTTP_PORT")
	overrideString(&cfg.Telemetry.LogLevel, "NARRATE_TELEMETRY_LOG_LEVEL")
	overrideString(&cfg.Telemetry.OTLPEndpoint, "NARRATE_TELEMETRY_OTLP_ENDPOINT")
	overrideBool(&cfg.Telemetry.OTLPInsecure, "NARRATE_TELEMETRY_OTLP_INSECURE")
	overrideBool(&cfg.Bus.Embedded, "NARRATE_BUS_EMBEDDED")
	overrideInt(&cfg.Bus.Port, "NARRATE_BUS_PORT")
	overrideStringSlice(&cfg.Bus.Servers, "NARRATE_BUS_SERVERS")
	overrideString(&cfg.Bus.Username, "NARRATE_BUS_USERNAME")
	overrideString(&cfg.Bus.Password, "NARRATE_BUS_PASSWORD")
	overrideString(&cfg.Bus.Token, "NARRATE_BUS_TOKEN")
	overrideBool(&cfg.Bus.TLSInsecure, "NARRATE_BUS_TLS_INSECURE")
	overrideInt(&cfg.Bus.ConnectTimeout, "NARRATE_BUS_CONNECT_TIMEOUT_MS")
	overrideString(&cfg.SessionStore.Path, "NARRATE_SESSION_STORE_PATH")
	overrideString(&cfg.SessionStore.RetentionMode, "NARRATE_SESSION_STORE_RETENTION_MODE")
	overrideInt(&cfg.SessionStore.RetentionDays, "NARRATE_SESSION_STORE_RETENTION_DAYS")
	overrideInt(&cfg.SessionStore.MaxSessions, "NARRATE_SESSION_STORE_MAX_SESSIONS")
	overrideBool(&cfg.SessionStore.VacuumOnStart, "NARRATE_SESSION_STORE_VACUUM_ON_START")
	overrideBool(&cfg.Speech.Enabled, "NARRATE_SPEECH_ENABLED")
	overrideString(&cfg.Speech.Mode, "NARRATE_SPEECH_MODE")
	overrideString(&cfg.Speech.Command, "NARRATE_SPEECH_COMMAND")
	overrideString(&cfg.Speech.Voice, "NARRATE_SPEECH_VOICE")
	overrideInt(&cfg.Speech.SampleRate, "NARRATE_SPEECH_SAMPLE_RATE")
	overrideInt(&cfg.Chunking.TargetWords, "NARRATE_CHUNKING_TARGET_WORDS")
	overrideInt(&cfg.Playback.TickMS, "NARRATE_PLAYBACK_TICK_MS")
	overrideFloat(&cfg.Playback.BufferSeconds, "NARRATE_PLAYBACK_BUFFER_SECONDS")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

func overrideStringSlice(target *[]string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		parts := strings.Split(value, ",")
		var trimmed []string
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				trimmed = append(trimmed, s)
			}
		}
		if len(trimmed) > 0 {
			*target = trimmed
		}
	}
}

func overrideFloat(target *float64, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			*target = parsed
		}
	}
}

func validate(cfg Config) error {
	if cfg.RuntimeName == "" {
		return errors.New("runtime_name must not be empty")
	}
	if cfg.HTTP.Port <= 0 || cfg.HTTP.Port > 65535 {
		return errors.New("http.port must be between 1 and 65535")
	}
	if cfg.Bus.Embedded {
		if cfg.Bus.Port <= 0 || cfg.Bus.Port > 65535 {
			return errors.New("bus.port must be between 1 and 65535 when embedded mode is enabled")
		}
	} else {
		if len(cfg.Bus.Servers) == 0 {
			return errors.New("bus.servers must not be empty when embedded mode is disabled")
		}
	}
	if cfg.SessionStore.Path == "" {
		return errors.New("session_store.path must not be empty")
	}
	switch cfg.SessionStore.RetentionMode {
	case "ephemeral", "session", "persistent":
		// ok
	default:
		return errors.New("session_store.retention_mode must be one of ephemeral|session|persistent")
	}
	if cfg.SessionStore.RetentionDays < 0 {
		return errors.New("session_store.retention_days must be >= 0")
	}
	switch strings.ToLower(cfg.Telemetry.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return errors.New("telemetry.log_level must be one of debug|info|warn|error")
	}
	if cfg.Speech.Enabled {
		switch cfg.Speech.Mode {
		case "mock", "exec":
		default:
			return errors.New("speech.mode must be one of mock|exec")
		}
		if cfg.Speech.Mode == "exec" && cfg.Speech.Command == "" {
			return errors.New("speech.command must be set when mode=exec")
		}
		if cfg.Speech.SampleRate <= 0 {
			return errors.New("speech.sample_rate must be positive")
		}
	}
	if cfg.Chunking.TargetWords <= 0 {
		return errors.New("chunking.target_words must be positive")
	}
	if cfg.Playback.TickMS <= 0 {
		return errors.New("playback.tick_ms must be positive")
	}
	if cfg.Playback.BufferSeconds <= 0 {
		return errors.New("playback.buffer_seconds must be positive")
	}
	return nil
}
