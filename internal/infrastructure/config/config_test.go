package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	content := `
sync:
  mode: single
  source_index: 2
  single_interval: 250ms
hypercube:
  address: "192.168.1.10"
database:
  enabled: true
  path: "/tmp/test.db"
mqtt:
  broker:
    host: "broker.local"
    port: 1883
  qos: 1
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Sync.Mode != ModeSingle {
		t.Errorf("Sync.Mode = %q, want %q", cfg.Sync.Mode, ModeSingle)
	}
	if cfg.Sync.SourceIndex != 2 {
		t.Errorf("Sync.SourceIndex = %d, want 2", cfg.Sync.SourceIndex)
	}
	if cfg.Sync.SingleInterval != 250*time.Millisecond {
		t.Errorf("Sync.SingleInterval = %v, want 250ms", cfg.Sync.SingleInterval)
	}
	// Not in the file, so the default survives.
	if cfg.Sync.MultiInterval != 700*time.Millisecond {
		t.Errorf("Sync.MultiInterval = %v, want 700ms", cfg.Sync.MultiInterval)
	}
	if cfg.HyperCube.Address != "192.168.1.10" {
		t.Errorf("HyperCube.Address = %q, want 192.168.1.10", cfg.HyperCube.Address)
	}
	if cfg.MQTT.Broker.Host != "broker.local" {
		t.Errorf("MQTT.Broker.Host = %q, want broker.local", cfg.MQTT.Broker.Host)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "{}\n"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.WiZ.Port != 38899 {
		t.Errorf("WiZ.Port = %d, want 38899", cfg.WiZ.Port)
	}
	if cfg.WiZ.DiscoveryTimeout != 3*time.Second {
		t.Errorf("WiZ.DiscoveryTimeout = %v, want 3s", cfg.WiZ.DiscoveryTimeout)
	}
	if cfg.WiZ.PollTimeout != 2*time.Second {
		t.Errorf("WiZ.PollTimeout = %v, want 2s", cfg.WiZ.PollTimeout)
	}
	if cfg.HyperCube.ProbeTimeout != time.Second {
		t.Errorf("HyperCube.ProbeTimeout = %v, want 1s", cfg.HyperCube.ProbeTimeout)
	}
	if cfg.HyperCube.Brand != "Hyperspace" {
		t.Errorf("HyperCube.Brand = %q, want Hyperspace", cfg.HyperCube.Brand)
	}
	if cfg.HyperCube.Effect != 103 || cfg.HyperCube.Palette != 0 || cfg.HyperCube.SegmentStop != 88 {
		t.Errorf("HyperCube effect/palette/stop = %d/%d/%d, want 103/0/88",
			cfg.HyperCube.Effect, cfg.HyperCube.Palette, cfg.HyperCube.SegmentStop)
	}
	if cfg.Database.HistoryRetention != 30*24*time.Hour {
		t.Errorf("Database.HistoryRetention = %v, want 720h", cfg.Database.HistoryRetention)
	}
	if cfg.MQTT.Enabled || cfg.InfluxDB.Enabled || cfg.API.Enabled || cfg.Database.Enabled {
		t.Error("optional integrations should be disabled by default")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "invalid: [yaml: content"))
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	_, err := Load(writeConfig(t, "sync:\n  mode: some\n"))
	if err == nil {
		t.Fatal("Load() expected validation error for unknown sync mode, got nil")
	}
	if !strings.Contains(err.Error(), "sync.mode") {
		t.Errorf("error %q should mention sync.mode", err)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("LIGHTSYNC_SYNC_MODE", "SINGLE")
	t.Setenv("LIGHTSYNC_SYNC_SOURCE_INDEX", "3")
	t.Setenv("LIGHTSYNC_HYPERCUBE_ADDRESS", "10.0.0.7")
	t.Setenv("LIGHTSYNC_MQTT_PASSWORD", "secret")

	cfg, err := Load(writeConfig(t, "sync:\n  mode: all\n"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Sync.Mode != ModeSingle {
		t.Errorf("Sync.Mode = %q, want single", cfg.Sync.Mode)
	}
	if cfg.Sync.SourceIndex != 3 {
		t.Errorf("Sync.SourceIndex = %d, want 3", cfg.Sync.SourceIndex)
	}
	if cfg.HyperCube.Address != "10.0.0.7" {
		t.Errorf("HyperCube.Address = %q, want 10.0.0.7", cfg.HyperCube.Address)
	}
	if cfg.MQTT.Auth.Password != "secret" {
		t.Errorf("MQTT.Auth.Password = %q, want secret", cfg.MQTT.Auth.Password)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(*Config) {},
		},
		{
			name: "single mode with zero index",
			mutate: func(c *Config) {
				c.Sync.Mode = ModeSingle
				c.Sync.SourceIndex = 0
			},
			wantErr: "sync.source_index",
		},
		{
			name:    "non-positive interval",
			mutate:  func(c *Config) { c.Sync.MultiInterval = 0 },
			wantErr: "sync intervals",
		},
		{
			name:    "invalid local address",
			mutate:  func(c *Config) { c.Network.LocalAddress = "not-an-ip" },
			wantErr: "network.local_address",
		},
		{
			name:    "ipv6 sink address",
			mutate:  func(c *Config) { c.HyperCube.Address = "fe80::1" },
			wantErr: "hypercube.address",
		},
		{
			name:    "wiz port out of range",
			mutate:  func(c *Config) { c.WiZ.Port = 70000 },
			wantErr: "wiz.port",
		},
		{
			name:    "empty brand",
			mutate:  func(c *Config) { c.HyperCube.Brand = "" },
			wantErr: "hypercube.brand",
		},
		{
			name: "database enabled without path",
			mutate: func(c *Config) {
				c.Database.Enabled = true
				c.Database.Path = ""
			},
			wantErr: "database.path",
		},
		{
			name:    "negative history retention",
			mutate:  func(c *Config) { c.Database.HistoryRetention = -time.Hour },
			wantErr: "database.history_retention",
		},
		{
			name:    "invalid qos",
			mutate:  func(c *Config) { c.MQTT.QoS = 3 },
			wantErr: "mqtt.qos",
		},
		{
			name:    "zero websocket ping interval",
			mutate:  func(c *Config) { c.WebSocket.PingInterval = 0 },
			wantErr: "websocket.ping_interval",
		},
		{
			name:    "negative websocket pong timeout",
			mutate:  func(c *Config) { c.WebSocket.PongTimeout = -1 },
			wantErr: "websocket.pong_timeout",
		},
		{
			name:    "zero websocket message size",
			mutate:  func(c *Config) { c.WebSocket.MaxMessageSize = 0 },
			wantErr: "websocket.max_message_size",
		},
		{
			name:    "influx enabled without url",
			mutate:  func(c *Config) { c.InfluxDB.Enabled = true },
			wantErr: "influxdb.url",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() error = nil, want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_Timeouts(t *testing.T) {
	api := Default().API
	if api.ReadTimeout() != 30*time.Second {
		t.Errorf("ReadTimeout() = %v, want 30s", api.ReadTimeout())
	}
	if api.WriteTimeout() != 30*time.Second {
		t.Errorf("WriteTimeout() = %v, want 30s", api.WriteTimeout())
	}
	if api.IdleTimeout() != 60*time.Second {
		t.Errorf("IdleTimeout() = %v, want 60s", api.IdleTimeout())
	}
}
