package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nerrad567/homio-core/internal/state"
)

// Config is the root configuration structure for Homio Core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site       SiteConfig        `yaml:"site"`
	Database   DatabaseConfig    `yaml:"database"`
	MQTT       MQTTConfig        `yaml:"mqtt"`
	API        APIConfig         `yaml:"api"`
	WebSocket  WebSocketConfig   `yaml:"websocket"`
	InfluxDB   InfluxDBConfig    `yaml:"influxdb"`
	Logging    LoggingConfig     `yaml:"logging"`
	Metrics    MetricsConfig     `yaml:"metrics"`
	History    HistoryConfig     `yaml:"history"`
	Datapoints []DatapointConfig `yaml:"datapoints"`
}

// SiteConfig contains site-specific information.
type SiteConfig struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Timezone string `yaml:"timezone"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
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

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// WebSocketConfig contains WebSocket stream settings.
type WebSocketConfig struct {
	MaxMessageSize int `yaml:"max_message_size"`
	PingInterval   int `yaml:"ping_interval"`
	PongTimeout    int `yaml:"pong_timeout"`
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

// LoggingConfig contains logging settings. Output is stdout, stderr or a
// file path.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// MetricsConfig contains Prometheus exporter settings.
//
// Metrics are served on the API router at Path. When the API is disabled
// and Addr is set, a dedicated listener serves them instead.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Path      string `yaml:"path"`
	Addr      string `yaml:"addr"`
	Namespace string `yaml:"namespace"`
}

// HistoryConfig controls the value history kept in SQLite.
type HistoryConfig struct {
	// RetentionDays is how long history rows are kept. 0 keeps them forever.
	RetentionDays int `yaml:"retention_days"`

	// PruneInterval is how often expired rows are removed.
	PruneInterval time.Duration `yaml:"prune_interval"`
}

// DatapointConfig declares one datapoint the core tracks.
//
// Kind and Default are optional. Without a kind the variant is inferred
// from each payload; with one, every payload is parsed as that variant and
// an empty payload falls back to Default.
type DatapointConfig struct {
	ID      string `yaml:"id"`
	Topic   string `yaml:"topic"`
	Kind    string `yaml:"kind,omitempty"`
	Default string `yaml:"default,omitempty"`
	Unit    string `yaml:"unit,omitempty"`
	Record  bool   `yaml:"record"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: HOMIO_SECTION_KEY
// For example: HOMIO_DATABASE_PATH, HOMIO_API_HOST
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

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

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			ID:       "site-001",
			Name:     "Homio",
			Timezone: "UTC",
		},
		Database: DatabaseConfig{
			Path:        "./data/homio.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "homio-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		API: APIConfig{
			Enabled: true,
			Host:    "0.0.0.0",
			Port:    8080,
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
			Format: "json",
			Output: "stdout",
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Path:      "/metrics",
			Namespace: "homio",
		},
		History: HistoryConfig{
			RetentionDays: 30,
			PruneInterval: time.Hour,
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: HOMIO_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HOMIO_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	if v := os.Getenv("HOMIO_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("HOMIO_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("HOMIO_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	if v := os.Getenv("HOMIO_API_HOST"); v != "" {
		cfg.API.Host = v
	}

	if v := os.Getenv("HOMIO_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	if v := os.Getenv("HOMIO_METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
	}
}

// Validate checks the configuration for errors.
//
// All problems are collected and reported together so a broken file can be
// fixed in one pass.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Site.ID == "" {
		errs = append(errs, "site.id is required")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		errs = append(errs, "metrics.path must start with /")
	}

	if c.History.RetentionDays < 0 {
		errs = append(errs, "history.retention_days must not be negative")
	}

	errs = append(errs, validateDatapoints(c.Datapoints)...)

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// validateDatapoints checks datapoint declarations for missing fields,
// duplicates and unknown kinds.
func validateDatapoints(dps []DatapointConfig) []string {
	var errs []string
	ids := make(map[string]bool, len(dps))
	topics := make(map[string]bool, len(dps))

	for i, dp := range dps {
		prefix := fmt.Sprintf("datapoints[%d]", i)

		switch {
		case dp.ID == "":
			errs = append(errs, prefix+".id is required")
		case ids[dp.ID]:
			errs = append(errs, fmt.Sprintf("%s.id %q is duplicated", prefix, dp.ID))
		default:
			ids[dp.ID] = true
		}

		switch {
		case dp.Topic == "":
			errs = append(errs, prefix+".topic is required")
		case strings.ContainsAny(dp.Topic, "+#"):
			errs = append(errs, fmt.Sprintf("%s.topic %q must not contain wildcards", prefix, dp.Topic))
		case topics[dp.Topic]:
			errs = append(errs, fmt.Sprintf("%s.topic %q is duplicated", prefix, dp.Topic))
		default:
			topics[dp.Topic] = true
		}

		if dp.Kind != "" {
			if _, err := state.ParseKind(dp.Kind); err != nil {
				errs = append(errs, fmt.Sprintf("%s.kind: %v", prefix, err))
			}
		} else if dp.Default != "" {
			errs = append(errs, prefix+".default requires a kind")
		}
	}

	return errs
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}

// GetRetention returns the history retention window. Zero means unlimited.
func (c *Config) GetRetention() time.Duration {
	return time.Duration(c.History.RetentionDays) * 24 * time.Hour
}
