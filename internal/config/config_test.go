package config_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/churrosoft/deck8-hub-go/internal/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "deck8.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Debounce() != 50*time.Millisecond {
		t.Errorf("Debounce() = %v, want 50ms", cfg.Debounce())
	}
	if cfg.CallTimeout() != 3*time.Second {
		t.Errorf("CallTimeout() = %v, want 3s", cfg.CallTimeout())
	}
	if cfg.Transport.Kind != config.TransportWS {
		t.Errorf("Transport.Kind = %q", cfg.Transport.Kind)
	}
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `
transport:
  kind: mqtt
mqtt:
  broker: "tcp://broker:1883"
  device: "desk"
  qos: 0
engine:
  debounce_ms: 80
daemon:
  addr: ":9000"
  zeroconf: false
log:
  level: debug
  format: json
`)
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Transport.Kind != "mqtt" || cfg.MQTT.Broker != "tcp://broker:1883" || cfg.MQTT.Device != "desk" {
		t.Errorf("mqtt = %+v", cfg.MQTT)
	}
	if cfg.Debounce() != 80*time.Millisecond {
		t.Errorf("Debounce() = %v", cfg.Debounce())
	}
	// Unset fields keep their defaults.
	if cfg.Engine.CallTimeoutMs != 3000 || !cfg.Daemon.Metrics {
		t.Errorf("defaults lost: %+v %+v", cfg.Engine, cfg.Daemon)
	}
	if cfg.Daemon.Zeroconf {
		t.Error("daemon.zeroconf should be false")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := config.Load("/nonexistent/path/deck8.yaml"); err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	if _, err := config.Load(writeConfig(t, "transport: [unterminated")); err == nil {
		t.Error("expected parse error")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DECK8_TRANSPORT", "none")
	t.Setenv("DECK8_DATA_DIR", "/tmp/deck8-data")
	t.Setenv("DECK8_LOG_LEVEL", "warn")

	cfg, err := config.Load(writeConfig(t, "transport:\n  kind: ws\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Transport.Kind != config.TransportNone {
		t.Errorf("env did not override transport: %q", cfg.Transport.Kind)
	}
	if dir, _ := cfg.DataDir(); dir != "/tmp/deck8-data" {
		t.Errorf("DataDir() = %q", dir)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level = %q", cfg.Log.Level)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"bad transport", func(c *config.Config) { c.Transport.Kind = "serial" }, "transport.kind"},
		{"ws without addr", func(c *config.Config) { c.Transport.Addr = "" }, "transport.addr"},
		{"qos", func(c *config.Config) { c.MQTT.QoS = 3 }, "mqtt.qos"},
		{"device wildcard", func(c *config.Config) { c.MQTT.Device = "a/+" }, "mqtt.device"},
		{"timeout", func(c *config.Config) { c.Engine.CallTimeoutMs = 0 }, "call_timeout_ms"},
		{"level", func(c *config.Config) { c.Log.Level = "loud" }, "log.level"},
		{"format", func(c *config.Config) { c.Log.Format = "xml" }, "log.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() = %v, want mention of %q", err, tt.want)
			}
		})
	}

	cfg := config.Default()
	cfg.Transport.Addr = ""
	cfg.Transport.Discover = true
	if err := cfg.Validate(); err != nil {
		t.Errorf("discovery without addr should be valid: %v", err)
	}
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	log := config.LogConfig{Level: "debug", Format: "json"}.Logger(&buf)
	log.Debug("config: hello", "k", 1)
	if !strings.Contains(buf.String(), `"msg":"config: hello"`) {
		t.Errorf("json output = %q", buf.String())
	}

	buf.Reset()
	log = config.LogConfig{Level: "warn", Format: "text"}.Logger(&buf)
	log.Info("dropped")
	if buf.Len() != 0 {
		t.Errorf("info logged at warn level: %q", buf.String())
	}
}
