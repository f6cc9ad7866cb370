package config

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

type Agent struct {
	Common

	ServerURL     string
	APIKey        string
	StationID     string
	PayloadFormat string

	SampleInterval      time.Duration
	DeliveryTimeout     time.Duration
	DeliveryMaxRetries  int
	DeliveryBackoffBase float64
	DeliveryBackoffUnit time.Duration
	DeliveryMaxBackoff  time.Duration
	LinkTimeout         time.Duration

	// SensorDriver is "sim" or "i2c".
	SensorDriver  string
	I2CBus        string
	BME280Address uint16
	ENS160Address uint16

	// MetricsAddr enables the Prometheus listener when non-empty.
	MetricsAddr string
}

func LoadAgentFromEnv() (Agent, error) {
	common, err := loadCommon()
	if err != nil {
		return Agent{}, err
	}

	serverURL := env("SERVER_URL", "")
	if serverURL == "" {
		return Agent{}, errors.New("SERVER_URL is required")
	}
	u, err := url.Parse(serverURL)
	if err != nil {
		return Agent{}, fmt.Errorf("invalid SERVER_URL %q: %w", serverURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Agent{}, fmt.Errorf("invalid SERVER_URL %q (want http:// or https:// with a host)", serverURL)
	}

	apiKey := env("API_KEY", "")
	if apiKey == "" {
		return Agent{}, errors.New("API_KEY is required")
	}

	format := env("PAYLOAD_FORMAT", "csv")
	switch format {
	case "csv", "json":
	default:
		return Agent{}, fmt.Errorf("invalid PAYLOAD_FORMAT %q (allowed: csv, json)", format)
	}

	sampleInterval, err := envPositiveDuration("SAMPLE_INTERVAL", "10s")
	if err != nil {
		return Agent{}, err
	}
	deliveryTimeout, err := envPositiveDuration("DELIVERY_TIMEOUT", "5s")
	if err != nil {
		return Agent{}, err
	}

	maxRetries, err := envInt("DELIVERY_MAX_RETRIES", "3")
	if err != nil {
		return Agent{}, err
	}
	if maxRetries < 1 {
		return Agent{}, fmt.Errorf("DELIVERY_MAX_RETRIES must be >= 1, got %d", maxRetries)
	}

	backoffBaseStr := env("DELIVERY_BACKOFF_BASE", "2.0")
	backoffBase, err := strconv.ParseFloat(backoffBaseStr, 64)
	if err != nil {
		return Agent{}, fmt.Errorf("invalid DELIVERY_BACKOFF_BASE %q: %w", backoffBaseStr, err)
	}
	if !(backoffBase > 1) {
		return Agent{}, fmt.Errorf("DELIVERY_BACKOFF_BASE must be > 1, got %v", backoffBase)
	}

	backoffUnit, err := envPositiveDuration("DELIVERY_BACKOFF_UNIT", "1s")
	if err != nil {
		return Agent{}, err
	}
	maxBackoff, err := envPositiveDuration("DELIVERY_MAX_BACKOFF", "5m")
	if err != nil {
		return Agent{}, err
	}
	linkTimeout, err := envPositiveDuration("LINK_TIMEOUT", "10s")
	if err != nil {
		return Agent{}, err
	}

	driver := env("SENSOR_DRIVER", "sim")
	switch driver {
	case "sim", "i2c":
	default:
		return Agent{}, fmt.Errorf("invalid SENSOR_DRIVER %q (allowed: sim, i2c)", driver)
	}

	bme280Address, err := envAddress("BME280_ADDRESS", "0x76")
	if err != nil {
		return Agent{}, err
	}
	ens160Address, err := envAddress("ENS160_ADDRESS", "0x53")
	if err != nil {
		return Agent{}, err
	}

	return Agent{
		Common:              common,
		ServerURL:           serverURL,
		APIKey:              apiKey,
		StationID:           env("STATION_ID", "pico"),
		PayloadFormat:       format,
		SampleInterval:      sampleInterval,
		DeliveryTimeout:     deliveryTimeout,
		DeliveryMaxRetries:  maxRetries,
		DeliveryBackoffBase: backoffBase,
		DeliveryBackoffUnit: backoffUnit,
		DeliveryMaxBackoff:  maxBackoff,
		LinkTimeout:         linkTimeout,
		SensorDriver:        driver,
		I2CBus:              env("I2C_BUS", ""),
		BME280Address:       bme280Address,
		ENS160Address:       ens160Address,
		MetricsAddr:         env("METRICS_ADDR", ""),
	}, nil
}
