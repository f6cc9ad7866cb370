package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/HusainCode/pico-firmware/internal/config"
	"github.com/HusainCode/pico-firmware/internal/db"
	"github.com/HusainCode/pico-firmware/internal/httpapi"
	"github.com/HusainCode/pico-firmware/internal/ingest"
	"github.com/HusainCode/pico-firmware/internal/metrics"
	"github.com/HusainCode/pico-firmware/internal/migrate"
	"github.com/HusainCode/pico-firmware/internal/mqtt"
)

const mqttConnectTimeout = 5 * time.Second

// RunCollector serves the ingest API until ctx ends. The MQTT bridge is optional:
// a broker that cannot be reached at startup is logged and skipped.
func RunCollector(ctx context.Context, cfg config.Collector, logger *slog.Logger) error {
	logger.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.LogLevel.String(),
		"httpAddr", cfg.HTTPAddr,
		"sqlitePath", cfg.Path,
		"sqliteMaxOpenConns", cfg.MaxOpenConns,
		"sqliteMaxIdleConns", cfg.MaxIdleConns,
		"sqliteConnMaxLifetime", cfg.ConnMaxLifetime,
		"sqlLog", cfg.SQLLog,
		"mqttBroker", cfg.MQTTBroker,
		"mqttPort", cfg.MQTTPort,
		"mqttTopicPrefix", cfg.MQTTTopicPrefix,
	)

	dbConn, err := db.Open(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(dbConn); err != nil {
			logger.Error("db close", "error", err)
		}
	}()

	applied, err := migrate.Run(ctx, dbConn, logger)
	if err != nil {
		return err
	}
	logger.Info("database ready", "migrationsApplied", applied)

	m := metrics.NewCollector()
	opts := []ingest.Option{
		ingest.WithLogger(logger),
		ingest.WithRecorder(m),
	}

	if cfg.MQTTBroker != "" {
		client, err := mqtt.NewClient(cfg, logger)
		if err != nil {
			return err
		}
		defer client.Disconnect()

		connectCtx, cancel := context.WithTimeout(ctx, mqttConnectTimeout)
		err = client.Connect(connectCtx)
		cancel()
		if err != nil {
			logger.Warn("mqtt connection failed (continuing, paho keeps retrying)", "error", err)
		}
		opts = append(opts, ingest.WithPublisher(client))
	}

	mux := httpapi.NewMux(dbConn, m.Handler(), logger)
	ingest.RegisterFeature(mux, dbConn, cfg.APIKey, opts...)

	srv := httpapi.NewServer(cfg.HTTPAddr, mux, logger)
	errCh := listen(srv, logger)

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	if err := shutdown(srv, errCh, logger); err != nil {
		return err
	}
	return ctx.Err()
}
