package config

import (
	"testing"
	"time"

	"github.com/MeKo-Tech/metascan/internal/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.Output.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.False(t, cfg.Store.Enabled())
	assert.False(t, cfg.MQTT.Enabled())
	assert.Equal(t, "metascan", cfg.MQTT.TopicPrefix)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"log level", func(c *Config) { c.LogLevel = "loud" }, "invalid log level"},
		{"format", func(c *Config) { c.Output.Format = "xml" }, "xml"},
		{"types", func(c *Config) { c.Scanner.Types = []string{"qr", "hologram"} }, "invalid scanner.types"},
		{"track iou", func(c *Config) { c.Scanner.TrackIoU = 1.5 }, "scanner.track_iou"},
		{"max symbols", func(c *Config) { c.Scanner.MaxSymbols = -1 }, "scanner.max_symbols"},
		{"workers", func(c *Config) { c.Scanner.Workers = 0 }, "scanner.workers"},
		{"port", func(c *Config) { c.Server.Port = 70000 }, "invalid server port"},
		{"upload", func(c *Config) { c.Server.MaxUploadMB = 0 }, "max upload size"},
		{"timeout", func(c *Config) { c.Server.TimeoutSec = -1 }, "invalid timeout"},
		{"driver", func(c *Config) { c.Store.DSN = "x.db"; c.Store.Driver = "oracle" }, "invalid store driver"},
		{"qos", func(c *Config) { c.MQTT.QoS = 3 }, "mqtt.qos"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateIgnoresDriverWithoutDSN(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Store.Driver = "oracle"
	assert.NoError(t, cfg.Validate())
}

func TestToScannerConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Scanner.Types = []string{"qr", "face"}
	cfg.Scanner.Normalize = true
	cfg.Scanner.Mirrored = true
	cfg.Scanner.Code39Mod43 = true
	cfg.Scanner.MaxSymbols = 3
	cfg.Scanner.Charset = "ISO-8859-1"
	cfg.Scanner.Faces = true
	cfg.Scanner.FaceCascade = "/tmp/cascade.xml"
	cfg.Scanner.Workers = 2

	sc, err := cfg.ToScannerConfig()
	require.NoError(t, err)
	assert.Equal(t, []metadata.Type{metadata.TypeQRCode, metadata.TypeFace}, sc.Types)
	assert.True(t, sc.Normalize)
	assert.True(t, sc.Barcode.TryMirrored)
	assert.True(t, sc.Barcode.Code39Mod43)
	assert.Equal(t, 3, sc.Barcode.MaxSymbols)
	assert.Equal(t, "ISO-8859-1", sc.Barcode.Charset)
	assert.True(t, sc.Faces)
	assert.Equal(t, "/tmp/cascade.xml", sc.Face.CascadePath)
	assert.Equal(t, 2, sc.Parallel.MaxWorkers)

	cfg.Scanner.Types = []string{"nope"}
	_, err = cfg.ToScannerConfig()
	assert.ErrorIs(t, err, metadata.ErrUnknownType)
}

func TestToServerConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.RateLimitEnabled = true
	cfg.Server.MaxDataPerDay = 1 << 20

	sc := cfg.ToServerConfig("1.2.3")
	assert.Equal(t, "localhost", sc.Host)
	assert.Equal(t, 8080, sc.Port)
	assert.Equal(t, int64(50), sc.MaxUploadMB)
	assert.Equal(t, "1.2.3", sc.Version)
	assert.True(t, sc.RateLimit.Enabled)
	assert.Equal(t, 60, sc.RateLimit.RequestsPerMinute)
	assert.Equal(t, int64(1<<20), sc.RateLimit.MaxDataPerDay)
}

func TestToMQTTOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MQTT.Broker = "tcp://localhost:1883"
	cfg.MQTT.QoS = 1
	cfg.MQTT.TimeoutSec = 2

	opts := cfg.ToMQTTOptions()
	assert.True(t, cfg.MQTT.Enabled())
	assert.Equal(t, "tcp://localhost:1883", opts.Broker)
	assert.Equal(t, byte(1), opts.QoS)
	assert.Equal(t, 2*time.Second, opts.Timeout)
	assert.Equal(t, "metascan", opts.Prefix)
}
