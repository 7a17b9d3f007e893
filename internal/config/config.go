// Package config loads the YAML configuration shared by deck8d and deck8.
//
// Precedence, lowest first: built-in defaults, the YAML file, DECK8_*
// environment variables, command-line flags (applied by the binaries).
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Transport kinds.
const (
	TransportNone  = "none"
	TransportLocal = "local"
	TransportWS    = "ws"
	TransportMQTT  = "mqtt"
)

// Config is the complete configuration.
type Config struct {
	Transport TransportConfig `yaml:"transport"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	Engine    EngineConfig    `yaml:"engine"`
	Daemon    DaemonConfig    `yaml:"daemon"`
	Log       LogConfig       `yaml:"log"`
}

// TransportConfig selects how the client reaches the driver host.
type TransportConfig struct {
	Kind string `yaml:"kind"`
	// Addr is the WebSocket URL of the host, e.g. ws://127.0.0.1:8765/ws.
	Addr string `yaml:"addr"`
	// Discover looks the host up over mDNS when Addr is empty.
	Discover bool `yaml:"discover"`
	// APIKey is sent to hosts that keep an access_keys.json.
	APIKey string `yaml:"api_key"`
}

// MQTTConfig configures the MQTT transport and the host's responder.
type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Device   string `yaml:"device"`
	QoS      int    `yaml:"qos"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// EngineConfig tunes the client engine.
type EngineConfig struct {
	DebounceMs    int `yaml:"debounce_ms"`
	CallTimeoutMs int `yaml:"call_timeout_ms"`
}

// DaemonConfig configures deck8d.
type DaemonConfig struct {
	Addr     string `yaml:"addr"`
	DataDir  string `yaml:"data_dir"`
	Zeroconf bool   `yaml:"zeroconf"`
	Metrics  bool   `yaml:"metrics"`
	MQTT     bool   `yaml:"mqtt"`
	// Backups archives the data directory daily.
	Backups bool `yaml:"backups"`
	// Unplugged starts the simulated board without a device attached.
	Unplugged bool `yaml:"unplugged"`
}

// LogConfig configures slog.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Transport: TransportConfig{
			Kind: TransportWS,
			Addr: "ws://127.0.0.1:8765/ws",
		},
		MQTT: MQTTConfig{
			Broker: "tcp://localhost:1883",
			Device: "deck8",
			QoS:    1,
		},
		Engine: EngineConfig{
			DebounceMs:    50,
			CallTimeoutMs: 3000,
		},
		Daemon: DaemonConfig{
			Addr:     ":8765",
			Zeroconf: true,
			Metrics:  true,
			Backups:  true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads path over the defaults and applies environment overrides.
// An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// applyEnvOverrides applies DECK8_* environment variables.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DECK8_TRANSPORT"); v != "" {
		cfg.Transport.Kind = v
	}
	if v := os.Getenv("DECK8_ADDR"); v != "" {
		cfg.Transport.Addr = v
	}
	if v := os.Getenv("DECK8_API_KEY"); v != "" {
		cfg.Transport.APIKey = v
	}
	if v := os.Getenv("DECK8_MQTT_BROKER"); v != "" {
		cfg.MQTT.Broker = v
	}
	if v := os.Getenv("DECK8_DATA_DIR"); v != "" {
		cfg.Daemon.DataDir = v
	}
	if v := os.Getenv("DECK8_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	switch c.Transport.Kind {
	case TransportNone, TransportLocal, TransportWS, TransportMQTT:
	default:
		errs = append(errs, fmt.Sprintf("transport.kind %q must be none, local, ws or mqtt", c.Transport.Kind))
	}
	if c.Transport.Kind == TransportWS && c.Transport.Addr == "" && !c.Transport.Discover {
		errs = append(errs, "transport.addr is required for ws unless transport.discover is set")
	}
	if c.Transport.Kind == TransportMQTT && c.MQTT.Broker == "" {
		errs = append(errs, "mqtt.broker is required for the mqtt transport")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Device == "" || strings.ContainsAny(c.MQTT.Device, "/+#") {
		errs = append(errs, "mqtt.device must be non-empty and free of / + #")
	}
	if c.Engine.DebounceMs < 0 || c.Engine.DebounceMs > 1000 {
		errs = append(errs, "engine.debounce_ms must be between 0 and 1000")
	}
	if c.Engine.CallTimeoutMs <= 0 {
		errs = append(errs, "engine.call_timeout_ms must be positive")
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		errs = append(errs, "log.format must be text or json")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Debounce returns the engine debounce window.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.Engine.DebounceMs) * time.Millisecond
}

// CallTimeout returns the engine's per-call deadline.
func (c *Config) CallTimeout() time.Duration {
	return time.Duration(c.Engine.CallTimeoutMs) * time.Millisecond
}

// DataDir returns the daemon data directory, defaulting to ~/.config/deck8.
func (c *Config) DataDir() (string, error) {
	if c.Daemon.DataDir != "" {
		return c.Daemon.DataDir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".config", "deck8"), nil
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("log.level %q must be debug, info, warn or error", s)
}

// Logger builds the slog logger described by the log section.
func (l LogConfig) Logger(w io.Writer) *slog.Logger {
	level, err := parseLevel(l.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
