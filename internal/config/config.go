package config

import (
	"fmt"
	"strings"

	"github.com/MeKo-Tech/metascan/internal/codec"
	"github.com/MeKo-Tech/metascan/internal/metadata"
	"github.com/MeKo-Tech/metascan/internal/publish"
	"github.com/MeKo-Tech/metascan/internal/scanner"
	"github.com/MeKo-Tech/metascan/internal/server"
)

// Config represents the complete configuration for metascan. It is loaded
// from configuration files, environment variables and command-line flags.
type Config struct {
	// Global settings
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	Scanner ScannerConfig `mapstructure:"scanner" yaml:"scanner" json:"scanner"`
	Output  OutputConfig  `mapstructure:"output" yaml:"output" json:"output"`
	Server  ServerConfig  `mapstructure:"server" yaml:"server" json:"server"`
	Store   StoreConfig   `mapstructure:"store" yaml:"store" json:"store"`
	MQTT    MQTTConfig    `mapstructure:"mqtt" yaml:"mqtt" json:"mqtt"`
}

// ScannerConfig selects producers and tunes decoding.
type ScannerConfig struct {
	// Types lists canonical tags or short names; empty means every type.
	Types       []string `mapstructure:"types" yaml:"types" json:"types"`
	Normalize   bool     `mapstructure:"normalize" yaml:"normalize" json:"normalize"`
	TryHarder   bool     `mapstructure:"try_harder" yaml:"try_harder" json:"try_harder"`
	Mirrored    bool     `mapstructure:"mirrored" yaml:"mirrored" json:"mirrored"`
	Code39Mod43 bool     `mapstructure:"code39_mod43" yaml:"code39_mod43" json:"code39_mod43"`
	MaxSymbols  int      `mapstructure:"max_symbols" yaml:"max_symbols" json:"max_symbols"`
	Charset     string   `mapstructure:"charset" yaml:"charset" json:"charset"`
	Faces       bool     `mapstructure:"faces" yaml:"faces" json:"faces"`
	FaceCascade string   `mapstructure:"face_cascade" yaml:"face_cascade" json:"face_cascade"`
	TrackIoU    float64  `mapstructure:"track_iou" yaml:"track_iou" json:"track_iou"`
	Workers     int      `mapstructure:"workers" yaml:"workers" json:"workers"`
}

// OutputConfig contains output formatting settings.
type OutputConfig struct {
	Format string `mapstructure:"format" yaml:"format" json:"format"`
	File   string `mapstructure:"file" yaml:"file" json:"file"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string `mapstructure:"host" yaml:"host" json:"host"`
	Port            int    `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin      string `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	MaxUploadMB     int    `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb"`
	TimeoutSec      int    `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
	MDNS            bool   `mapstructure:"mdns" yaml:"mdns" json:"mdns"`

	RateLimitEnabled  bool  `mapstructure:"rate_limit_enabled" yaml:"rate_limit_enabled" json:"rate_limit_enabled"`
	RequestsPerMinute int   `mapstructure:"requests_per_minute" yaml:"requests_per_minute" json:"requests_per_minute"`
	RequestsPerHour   int   `mapstructure:"requests_per_hour" yaml:"requests_per_hour" json:"requests_per_hour"`
	MaxRequestsPerDay int   `mapstructure:"max_requests_per_day" yaml:"max_requests_per_day" json:"max_requests_per_day"`
	MaxDataPerDay     int64 `mapstructure:"max_data_per_day" yaml:"max_data_per_day" json:"max_data_per_day"`
}

// StoreConfig selects the descriptor store. An empty DSN disables storage.
type StoreConfig struct {
	Driver string `mapstructure:"driver" yaml:"driver" json:"driver"`
	DSN    string `mapstructure:"dsn" yaml:"dsn" json:"dsn"`
}

// Enabled reports whether a store is configured.
func (s StoreConfig) Enabled() bool { return s.DSN != "" }

// MQTTConfig configures descriptor publishing. An empty broker disables it.
type MQTTConfig struct {
	Broker      string `mapstructure:"broker" yaml:"broker" json:"broker"`
	ClientID    string `mapstructure:"client_id" yaml:"client_id" json:"client_id"`
	Username    string `mapstructure:"username" yaml:"username" json:"username"`
	Password    string `mapstructure:"password" yaml:"password" json:"password"`
	TopicPrefix string `mapstructure:"topic_prefix" yaml:"topic_prefix" json:"topic_prefix"`
	QoS         int    `mapstructure:"qos" yaml:"qos" json:"qos"`
	Retain      bool   `mapstructure:"retain" yaml:"retain" json:"retain"`
	TimeoutSec  int    `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
}

// Enabled reports whether a broker is configured.
func (m MQTTConfig) Enabled() bool { return m.Broker != "" }

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	sc := scanner.DefaultConfig()
	return Config{
		LogLevel: "info",
		Scanner: ScannerConfig{
			TryHarder:   sc.Barcode.TryHarder,
			Mirrored:    sc.Barcode.TryMirrored,
			Code39Mod43: sc.Barcode.Code39Mod43,
			MaxSymbols:  sc.Barcode.MaxSymbols,
			FaceCascade: sc.Face.CascadePath,
			TrackIoU:    sc.TrackIoU,
			Workers:     4,
		},
		Output: OutputConfig{
			Format: string(codec.FormatJSON),
		},
		Server: ServerConfig{
			Host:              "localhost",
			Port:              8080,
			CORSOrigin:        "*",
			MaxUploadMB:       50,
			TimeoutSec:        30,
			ShutdownTimeout:   10,
			RequestsPerMinute: 60,
			RequestsPerHour:   1000,
		},
		Store: StoreConfig{
			Driver: "sqlite",
		},
		MQTT: MQTTConfig{
			TopicPrefix: publish.DefaultTopicPrefix,
			TimeoutSec:  5,
		},
	}
}

// Validate validates the configuration and returns the first error found.
func (c *Config) Validate() error {
	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}

	if _, err := codec.ParseFormat(c.Output.Format); err != nil {
		return err
	}

	if _, err := metadata.ParseTypes(c.Scanner.Types); err != nil {
		return fmt.Errorf("invalid scanner.types: %w", err)
	}
	if err := validateThreshold(c.Scanner.TrackIoU, "scanner.track_iou"); err != nil {
		return err
	}
	if c.Scanner.MaxSymbols < 0 {
		return fmt.Errorf("invalid scanner.max_symbols: %d (must not be negative)", c.Scanner.MaxSymbols)
	}
	if c.Scanner.Workers <= 0 {
		return fmt.Errorf("invalid scanner.workers: %d (must be positive)", c.Scanner.Workers)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1 and 65535)", c.Server.Port)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("invalid max upload size: %d (must be positive)", c.Server.MaxUploadMB)
	}
	if c.Server.TimeoutSec <= 0 {
		return fmt.Errorf("invalid timeout: %d (must be positive)", c.Server.TimeoutSec)
	}

	validDrivers := []string{"sqlite", "sqlite3", "postgres", "postgresql", "pgx"}
	if c.Store.Enabled() && !contains(validDrivers, strings.ToLower(c.Store.Driver)) {
		return fmt.Errorf("invalid store driver: %s (must be one of: %s)", c.Store.Driver, strings.Join(validDrivers, ", "))
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		return fmt.Errorf("invalid mqtt.qos: %d (must be 0, 1 or 2)", c.MQTT.QoS)
	}
	return nil
}

// ToScannerConfig converts the config to the scanner configuration.
func (c *Config) ToScannerConfig() (scanner.Config, error) {
	types, err := metadata.ParseTypes(c.Scanner.Types)
	if err != nil {
		return scanner.Config{}, err
	}
	cfg := scanner.DefaultConfig()
	cfg.Types = types
	cfg.Normalize = c.Scanner.Normalize
	cfg.Barcode.TryHarder = c.Scanner.TryHarder
	cfg.Barcode.TryMirrored = c.Scanner.Mirrored
	cfg.Barcode.Code39Mod43 = c.Scanner.Code39Mod43
	cfg.Barcode.MaxSymbols = c.Scanner.MaxSymbols
	cfg.Barcode.Charset = c.Scanner.Charset
	cfg.Faces = c.Scanner.Faces
	if c.Scanner.FaceCascade != "" {
		cfg.Face.CascadePath = c.Scanner.FaceCascade
	}
	cfg.TrackIoU = c.Scanner.TrackIoU
	cfg.Parallel.MaxWorkers = c.Scanner.Workers
	return cfg, nil
}

// ToServerConfig converts the config to the HTTP server configuration.
func (c *Config) ToServerConfig(version string) server.Config {
	return server.Config{
		Host:        c.Server.Host,
		Port:        c.Server.Port,
		CORSOrigin:  c.Server.CORSOrigin,
		MaxUploadMB: int64(c.Server.MaxUploadMB),
		TimeoutSec:  c.Server.TimeoutSec,
		Version:     version,
		RateLimit: server.RateLimitConfig{
			Enabled:           c.Server.RateLimitEnabled,
			RequestsPerMinute: c.Server.RequestsPerMinute,
			RequestsPerHour:   c.Server.RequestsPerHour,
			MaxRequestsPerDay: c.Server.MaxRequestsPerDay,
			MaxDataPerDay:     c.Server.MaxDataPerDay,
		},
	}
}

// ToMQTTOptions converts the config to publisher options.
func (c *Config) ToMQTTOptions() publish.MQTTOptions {
	return publish.MQTTOptions{
		Broker:   c.MQTT.Broker,
		ClientID: c.MQTT.ClientID,
		Username: c.MQTT.Username,
		Password: c.MQTT.Password,
		Prefix:   c.MQTT.TopicPrefix,
		QoS:      byte(c.MQTT.QoS),
		Retain:   c.MQTT.Retain,
		Timeout:  secondsToDuration(c.MQTT.TimeoutSec),
	}
}

// contains checks if a slice contains a string.
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

// validateThreshold validates that a value is between 0.0 and 1.0.
func validateThreshold(value float64, name string) error {
	if value < 0.0 || value > 1.0 {
		return fmt.Errorf("invalid %s: %.2f (must be between 0.0 and 1.0)", name, value)
	}
	return nil
}
