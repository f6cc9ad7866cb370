package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/HusainCode/pico-firmware/internal/agent"
	"github.com/HusainCode/pico-firmware/internal/config"
	"github.com/HusainCode/pico-firmware/internal/delivery"
	"github.com/HusainCode/pico-firmware/internal/drivers"
	"github.com/HusainCode/pico-firmware/internal/httpapi"
	"github.com/HusainCode/pico-firmware/internal/link"
	"github.com/HusainCode/pico-firmware/internal/metrics"
	"github.com/HusainCode/pico-firmware/internal/sensor"
	"github.com/HusainCode/pico-firmware/internal/telemetry"
)

const linkCheckInterval = time.Second

// RunAgent waits for the collector to become reachable and then runs sample
// cycles until ctx ends. An unreachable collector at startup is fatal.
func RunAgent(ctx context.Context, cfg config.Agent, logger *slog.Logger) error {
	logger.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.LogLevel.String(),
		"serverURL", cfg.ServerURL,
		"stationID", cfg.StationID,
		"payloadFormat", cfg.PayloadFormat,
		"sampleInterval", cfg.SampleInterval,
		"deliveryTimeout", cfg.DeliveryTimeout,
		"deliveryMaxRetries", cfg.DeliveryMaxRetries,
		"deliveryBackoffBase", cfg.DeliveryBackoffBase,
		"deliveryBackoffUnit", cfg.DeliveryBackoffUnit,
		"deliveryMaxBackoff", cfg.DeliveryMaxBackoff,
		"linkTimeout", cfg.LinkTimeout,
		"sensorDriver", cfg.SensorDriver,
		"metricsAddr", cfg.MetricsAddr,
	)

	climate, air, closer, err := openSensors(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closer.Close(); err != nil {
			logger.Error("sensor close", "error", err)
		}
	}()

	checker, err := link.NewTCPChecker(cfg.ServerURL)
	if err != nil {
		return err
	}
	if err := link.WaitConnected(ctx, checker, cfg.LinkTimeout, linkCheckInterval, logger); err != nil {
		return err
	}

	enc, err := telemetry.NewEncoder(cfg.PayloadFormat, cfg.StationID)
	if err != nil {
		return err
	}
	client, err := delivery.NewClient(delivery.Config{
		Timeout:     cfg.DeliveryTimeout,
		MaxRetries:  cfg.DeliveryMaxRetries,
		BackoffBase: cfg.DeliveryBackoffBase,
		BackoffUnit: cfg.DeliveryBackoffUnit,
		MaxBackoff:  cfg.DeliveryMaxBackoff,
	}, delivery.NewHTTPTransport(), delivery.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("delivery client: %w", err)
	}

	m := metrics.NewAgent()
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("GET /metrics", m.Handler())
		srv := httpapi.NewServer(cfg.MetricsAddr, mux, logger)
		errCh := listen(srv, logger)
		defer func() {
			if err := shutdown(srv, errCh, logger); err != nil {
				logger.Error("metrics server", "error", err)
			}
		}()
	}

	a := agent.New(agent.Target{
		URL:       cfg.ServerURL,
		APIKey:    cfg.APIKey,
		StationID: cfg.StationID,
	}, climate, air, enc, client,
		agent.WithLogger(logger),
		agent.WithRecorder(m),
	)
	return a.Run(ctx, cfg.SampleInterval)
}

// openSensors returns the climate and air-quality drivers selected by
// cfg.SensorDriver and a closer releasing them.
func openSensors(cfg config.Agent, logger *slog.Logger) (climate, air sensor.Driver, closer io.Closer, err error) {
	switch cfg.SensorDriver {
	case "i2c":
		hw, err := drivers.OpenHardware(cfg.I2CBus, cfg.BME280Address, cfg.ENS160Address)
		if err != nil {
			return nil, nil, nil, err
		}
		logger.Info("sensors opened",
			"bus", cfg.I2CBus,
			"bme280", fmt.Sprintf("%#x", cfg.BME280Address),
			"ens160", fmt.Sprintf("%#x", cfg.ENS160Address),
		)
		return hw.Climate, hw.AirQuality, hw, nil
	case "sim":
		seed := uint64(time.Now().UnixNano())
		logger.Info("using simulated sensors", "seed", seed)
		return drivers.NewSimClimate(seed), drivers.NewSimAirQuality(seed + 1), nopCloser{}, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown sensor driver %q", cfg.SensorDriver)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
