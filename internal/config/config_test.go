package config

import (
	"log/slog"
	"testing"
	"time"
)

func setAgentEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"APP_ENV", "LOG_LEVEL", "LOG_FILE", "STATION_ID", "PAYLOAD_FORMAT",
		"SAMPLE_INTERVAL", "DELIVERY_TIMEOUT", "DELIVERY_MAX_RETRIES",
		"DELIVERY_BACKOFF_BASE", "DELIVERY_BACKOFF_UNIT", "DELIVERY_MAX_BACKOFF", "LINK_TIMEOUT",
		"SENSOR_DRIVER", "I2C_BUS", "BME280_ADDRESS", "ENS160_ADDRESS", "METRICS_ADDR",
	} {
		t.Setenv(k, "")
	}
	t.Setenv("SERVER_URL", "http://192.168.1.20:5000/data")
	t.Setenv("API_KEY", "s3cret")
}

func TestLoadAgentFromEnv_Defaults(t *testing.T) {
	setAgentEnv(t)

	got, err := LoadAgentFromEnv()
	if err != nil {
		t.Fatalf("LoadAgentFromEnv() error = %v, want nil", err)
	}

	if got.AppEnv != "dev" {
		t.Errorf("AppEnv = %q, want %q", got.AppEnv, "dev")
	}
	if got.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, want %v", got.LogLevel, slog.LevelInfo)
	}
	if got.StationID != "pico" {
		t.Errorf("StationID = %q, want %q", got.StationID, "pico")
	}
	if got.PayloadFormat != "csv" {
		t.Errorf("PayloadFormat = %q, want csv", got.PayloadFormat)
	}
	if got.SampleInterval != 10*time.Second {
		t.Errorf("SampleInterval = %v, want 10s", got.SampleInterval)
	}
	if got.DeliveryTimeout != 5*time.Second || got.DeliveryMaxRetries != 3 {
		t.Errorf("DeliveryTimeout/MaxRetries = %v/%d, want 5s/3", got.DeliveryTimeout, got.DeliveryMaxRetries)
	}
	if got.DeliveryBackoffBase != 2 || got.DeliveryBackoffUnit != time.Second {
		t.Errorf("Backoff = %v x %v, want 2 x 1s", got.DeliveryBackoffBase, got.DeliveryBackoffUnit)
	}
	if got.DeliveryMaxBackoff != 5*time.Minute {
		t.Errorf("DeliveryMaxBackoff = %v, want 5m", got.DeliveryMaxBackoff)
	}
	if got.SensorDriver != "sim" {
		t.Errorf("SensorDriver = %q, want sim", got.SensorDriver)
	}
	if got.BME280Address != 0x76 || got.ENS160Address != 0x53 {
		t.Errorf("addresses = %#x/%#x, want 0x76/0x53", got.BME280Address, got.ENS160Address)
	}
	if got.MetricsAddr != "" {
		t.Errorf("MetricsAddr = %q, want empty", got.MetricsAddr)
	}
}

func TestLoadAgentFromEnv_Overrides(t *testing.T) {
	setAgentEnv(t)
	t.Setenv("APP_ENV", "prod")
	t.Setenv("LOG_LEVEL", "WARNING")
	t.Setenv("STATION_ID", "  greenhouse ")
	t.Setenv("PAYLOAD_FORMAT", "json")
	t.Setenv("DELIVERY_BACKOFF_BASE", "1.5")
	t.Setenv("DELIVERY_BACKOFF_UNIT", "250ms")
	t.Setenv("SENSOR_DRIVER", "i2c")
	t.Setenv("BME280_ADDRESS", "119")

	got, err := LoadAgentFromEnv()
	if err != nil {
		t.Fatalf("LoadAgentFromEnv() error = %v, want nil", err)
	}
	if got.LogLevel != slog.LevelWarn {
		t.Errorf("LogLevel = %v, want %v", got.LogLevel, slog.LevelWarn)
	}
	if got.StationID != "greenhouse" {
		t.Errorf("StationID = %q, want greenhouse", got.StationID)
	}
	if got.DeliveryBackoffBase != 1.5 || got.DeliveryBackoffUnit != 250*time.Millisecond {
		t.Errorf("Backoff = %v x %v, want 1.5 x 250ms", got.DeliveryBackoffBase, got.DeliveryBackoffUnit)
	}
	if got.BME280Address != 0x77 {
		t.Errorf("BME280Address = %#x, want 0x77", got.BME280Address)
	}
}

func TestLoadAgentFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "missing server url", key: "SERVER_URL", value: ""},
		{name: "server url without scheme", key: "SERVER_URL", value: "192.168.1.20:5000"},
		{name: "ftp server url", key: "SERVER_URL", value: "ftp://collector/data"},
		{name: "missing api key", key: "API_KEY", value: "   "},
		{name: "unknown format", key: "PAYLOAD_FORMAT", value: "xml"},
		{name: "zero interval", key: "SAMPLE_INTERVAL", value: "0s"},
		{name: "bad timeout", key: "DELIVERY_TIMEOUT", value: "soon"},
		{name: "zero retries", key: "DELIVERY_MAX_RETRIES", value: "0"},
		{name: "base of one", key: "DELIVERY_BACKOFF_BASE", value: "1"},
		{name: "zero max backoff", key: "DELIVERY_MAX_BACKOFF", value: "0s"},
		{name: "unknown driver", key: "SENSOR_DRIVER", value: "spi"},
		{name: "address too large", key: "ENS160_ADDRESS", value: "0x10000"},
		{name: "bad log level", key: "LOG_LEVEL", value: "verbose"},
		{name: "uppercase env", key: "APP_ENV", value: "PROD"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setAgentEnv(t)
			t.Setenv(tt.key, tt.value)

			if _, err := LoadAgentFromEnv(); err == nil {
				t.Fatalf("LoadAgentFromEnv() error = nil, want non-nil")
			}
		})
	}
}

func TestLoadCollectorFromEnv(t *testing.T) {
	for _, k := range []string{
		"APP_ENV", "LOG_LEVEL", "LOG_FILE", "HTTP_ADDR", "SQLITE_DSN", "SQLITE_PATH",
		"DB_MAX_OPEN_CONNS", "DB_MAX_IDLE_CONNS", "DB_CONN_MAX_LIFETIME", "SQL_LOG",
		"MQTT_BROKER", "MQTT_PORT", "MQTT_CLIENT_ID", "MQTT_TOPIC_PREFIX",
	} {
		t.Setenv(k, "")
	}
	t.Setenv("API_KEY", "s3cret")

	got, err := LoadCollectorFromEnv()
	if err != nil {
		t.Fatalf("LoadCollectorFromEnv() error = %v, want nil", err)
	}
	if got.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want :8080", got.HTTPAddr)
	}
	if got.MQTTBroker != "" || got.MQTTPort != 1883 || got.MQTTTopicPrefix != "stations" {
		t.Errorf("MQTT = %q:%d/%s, want disabled:1883/stations", got.MQTTBroker, got.MQTTPort, got.MQTTTopicPrefix)
	}
	if got.SQLLog {
		t.Error("SQLLog = true, want false")
	}

	t.Setenv("SQL_LOG", "maybe")
	if _, err := LoadCollectorFromEnv(); err == nil {
		t.Error("SQL_LOG=maybe: error = nil, want non-nil")
	}

	t.Setenv("SQL_LOG", "")
	t.Setenv("API_KEY", "")
	if _, err := LoadCollectorFromEnv(); err == nil {
		t.Error("missing API_KEY: error = nil, want non-nil")
	}

	t.Setenv("SQLITE_PATH", "/var/lib/pico/c.db")
	m, err := LoadMigrateFromEnv()
	if err != nil {
		t.Fatalf("LoadMigrateFromEnv() without API_KEY: %v", err)
	}
	if m.Path != "/var/lib/pico/c.db" {
		t.Errorf("Path = %q", m.Path)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{" INFO ", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := parseLogLevel(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("parseLogLevel(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
	}
}
