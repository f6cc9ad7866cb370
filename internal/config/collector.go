package config

import (
	"errors"
	"time"
)

type Collector struct {
	Common

	HTTPAddr string
	APIKey   string

	// DSN overrides Path when set.
	DSN             string
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	SQLLog          bool

	// MQTTBroker empty disables the republish bridge.
	MQTTBroker      string
	MQTTPort        int
	MQTTClientID    string
	MQTTTopicPrefix string
}

func LoadCollectorFromEnv() (Collector, error) {
	cfg, err := loadCollector()
	if err != nil {
		return Collector{}, err
	}
	if cfg.APIKey == "" {
		return Collector{}, errors.New("API_KEY is required")
	}
	return cfg, nil
}

// LoadMigrateFromEnv reads the logging and database settings the migrate tool
// needs; API_KEY is not required.
func LoadMigrateFromEnv() (Collector, error) {
	return loadCollector()
}

func loadCollector() (Collector, error) {
	common, err := loadCommon()
	if err != nil {
		return Collector{}, err
	}

	maxOpenConns, err := envInt("DB_MAX_OPEN_CONNS", "1")
	if err != nil {
		return Collector{}, err
	}
	maxIdleConns, err := envInt("DB_MAX_IDLE_CONNS", "1")
	if err != nil {
		return Collector{}, err
	}
	connMaxLifetime, err := envDuration("DB_CONN_MAX_LIFETIME", "0s")
	if err != nil {
		return Collector{}, err
	}
	sqlLog, err := envBool("SQL_LOG")
	if err != nil {
		return Collector{}, err
	}

	mqttPort, err := envInt("MQTT_PORT", "1883")
	if err != nil {
		return Collector{}, err
	}

	return Collector{
		Common:          common,
		HTTPAddr:        env("HTTP_ADDR", ":8080"),
		APIKey:          env("API_KEY", ""),
		DSN:             env("SQLITE_DSN", ""),
		Path:            env("SQLITE_PATH", "data/collector.db"),
		MaxOpenConns:    maxOpenConns,
		MaxIdleConns:    maxIdleConns,
		ConnMaxLifetime: connMaxLifetime,
		SQLLog:          sqlLog,
		MQTTBroker:      env("MQTT_BROKER", ""),
		MQTTPort:        mqttPort,
		MQTTClientID:    env("MQTT_CLIENT_ID", "pico-collector"),
		MQTTTopicPrefix: env("MQTT_TOPIC_PREFIX", "stations"),
	}, nil
}
