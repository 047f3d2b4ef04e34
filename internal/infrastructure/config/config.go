package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Sync modes accepted by SyncConfig.Mode.
const (
	// ModeSingle mirrors one selected source lamp.
	ModeSingle = "single"

	// ModeAll mirrors every discovered source lamp.
	ModeAll = "all"
)

// Config is the root configuration structure for lightsync.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Sync      SyncConfig      `yaml:"sync"`
	Network   NetworkConfig   `yaml:"network"`
	WiZ       WiZConfig       `yaml:"wiz"`
	HyperCube HyperCubeConfig `yaml:"hypercube"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// SyncConfig selects which sources are mirrored and how often they are polled.
type SyncConfig struct {
	// Mode is "single" or "all".
	Mode string `yaml:"mode"`

	// SourceIndex is the 1-based position of the mirrored lamp in the
	// discovery result. Only used in single mode.
	SourceIndex int `yaml:"source_index"`

	// SingleInterval is the pause between passes when one source is mirrored.
	SingleInterval time.Duration `yaml:"single_interval"`

	// MultiInterval is the pause between passes when several sources are mirrored.
	MultiInterval time.Duration `yaml:"multi_interval"`
}

// NetworkConfig contains local network settings.
type NetworkConfig struct {
	// LocalAddress skips interface inspection when set (e.g. "192.168.1.20").
	LocalAddress string `yaml:"local_address"`
}

// WiZConfig contains settings for the WiZ source lamps.
type WiZConfig struct {
	Port             int           `yaml:"port"`
	DiscoveryTimeout time.Duration `yaml:"discovery_timeout"`
	PollTimeout      time.Duration `yaml:"poll_timeout"`
}

// HyperCubeConfig contains settings for the HyperCube sink.
type HyperCubeConfig struct {
	// Address skips the subnet scan when set.
	Address        string        `yaml:"address"`
	Port           int           `yaml:"port"`
	Brand          string        `yaml:"brand"`
	ProbeTimeout   time.Duration `yaml:"probe_timeout"`
	CommandTimeout time.Duration `yaml:"command_timeout"`
	SegmentStop    int           `yaml:"segment_stop"`
	Effect         int           `yaml:"effect"`
	Palette        int           `yaml:"palette"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`

	// HistoryRetention prunes sync history older than this at startup.
	// Zero keeps everything.
	HistoryRetention time.Duration `yaml:"history_retention"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// APIConfig contains the local status API settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// WebSocketConfig contains WebSocket event stream settings.
type WebSocketConfig struct {
	MaxMessageSize int `yaml:"max_message_size"`
	PingInterval   int `yaml:"ping_interval"`
	PongTimeout    int `yaml:"pong_timeout"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string            `yaml:"level"`
	Format string            `yaml:"format"`
	Output string            `yaml:"output"`
	File   FileLoggingConfig `yaml:"file"`
}

// FileLoggingConfig contains the persistent log file settings.
// An empty Path disables the log file.
type FileLoggingConfig struct {
	Path string `yaml:"path"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: LIGHTSYNC_SECTION_KEY
// For example: LIGHTSYNC_SYNC_MODE, LIGHTSYNC_HYPERCUBE_ADDRESS
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns a Config with the reference device constants and
// optional integrations disabled.
func Default() *Config {
	return &Config{
		Sync: SyncConfig{
			Mode:           ModeAll,
			SourceIndex:    1,
			SingleInterval: 100 * time.Millisecond,
			MultiInterval:  700 * time.Millisecond,
		},
		WiZ: WiZConfig{
			Port:             38899,
			DiscoveryTimeout: 3 * time.Second,
			PollTimeout:      2 * time.Second,
		},
		HyperCube: HyperCubeConfig{
			Port:           80,
			Brand:          "Hyperspace",
			ProbeTimeout:   time.Second,
			CommandTimeout: 5 * time.Second,
			SegmentStop:    88,
			Effect:         103,
			Palette:        0,
		},
		Database: DatabaseConfig{
			Path:             "./data/lightsync.db",
			WALMode:          true,
			BusyTimeout:      5,
			HistoryRetention: 30 * 24 * time.Hour,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "lightsync",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 8090,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
			File: FileLoggingConfig{
				Path: "./data/lightsync.log",
			},
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: LIGHTSYNC_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Sync
	if v := os.Getenv("LIGHTSYNC_SYNC_MODE"); v != "" {
		cfg.Sync.Mode = strings.ToLower(v)
	}
	if v := os.Getenv("LIGHTSYNC_SYNC_SOURCE_INDEX"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Sync.SourceIndex = n
		}
	}

	// Devices
	if v := os.Getenv("LIGHTSYNC_NETWORK_LOCAL_ADDRESS"); v != "" {
		cfg.Network.LocalAddress = v
	}
	if v := os.Getenv("LIGHTSYNC_HYPERCUBE_ADDRESS"); v != "" {
		cfg.HyperCube.Address = v
	}

	// Database
	if v := os.Getenv("LIGHTSYNC_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("LIGHTSYNC_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("LIGHTSYNC_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("LIGHTSYNC_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("LIGHTSYNC_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Logging
	if v := os.Getenv("LIGHTSYNC_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of every validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Sync
	switch c.Sync.Mode {
	case ModeSingle:
		if c.Sync.SourceIndex < 1 {
			errs = append(errs, "sync.source_index must be 1 or greater in single mode")
		}
	case ModeAll:
	default:
		errs = append(errs, `sync.mode must be "single" or "all"`)
	}
	if c.Sync.SingleInterval <= 0 || c.Sync.MultiInterval <= 0 {
		errs = append(errs, "sync intervals must be positive")
	}

	// Addresses
	if c.Network.LocalAddress != "" && !isIPv4(c.Network.LocalAddress) {
		errs = append(errs, "network.local_address must be an IPv4 address")
	}
	if c.HyperCube.Address != "" && !isIPv4(c.HyperCube.Address) {
		errs = append(errs, "hypercube.address must be an IPv4 address")
	}

	// Device protocols
	if c.WiZ.Port < 1 || c.WiZ.Port > 65535 {
		errs = append(errs, "wiz.port must be between 1 and 65535")
	}
	if c.WiZ.DiscoveryTimeout <= 0 || c.WiZ.PollTimeout <= 0 {
		errs = append(errs, "wiz timeouts must be positive")
	}
	if c.HyperCube.Port < 1 || c.HyperCube.Port > 65535 {
		errs = append(errs, "hypercube.port must be between 1 and 65535")
	}
	if c.HyperCube.Brand == "" {
		errs = append(errs, "hypercube.brand is required")
	}
	if c.HyperCube.ProbeTimeout <= 0 || c.HyperCube.CommandTimeout <= 0 {
		errs = append(errs, "hypercube timeouts must be positive")
	}
	if c.HyperCube.SegmentStop < 1 {
		errs = append(errs, "hypercube.segment_stop must be positive")
	}

	// Optional integrations
	if c.Database.Enabled && c.Database.Path == "" {
		errs = append(errs, "database.path is required when database is enabled")
	}
	if c.Database.HistoryRetention < 0 {
		errs = append(errs, "database.history_retention must not be negative")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}
	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}
	if c.WebSocket.PingInterval <= 0 || c.WebSocket.PongTimeout <= 0 {
		errs = append(errs, "websocket.ping_interval and websocket.pong_timeout must be positive")
	}
	if c.WebSocket.MaxMessageSize <= 0 {
		errs = append(errs, "websocket.max_message_size must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// ReadTimeout returns the read timeout as a Duration.
func (a APIConfig) ReadTimeout() time.Duration {
	return time.Duration(a.Timeouts.Read) * time.Second
}

// WriteTimeout returns the write timeout as a Duration.
func (a APIConfig) WriteTimeout() time.Duration {
	return time.Duration(a.Timeouts.Write) * time.Second
}

// IdleTimeout returns the idle timeout as a Duration.
func (a APIConfig) IdleTimeout() time.Duration {
	return time.Duration(a.Timeouts.Idle) * time.Second
}

func isIPv4(s string) bool {
	ip := net.ParseIP(s)
	return ip != nil && ip.To4() != nil
}
