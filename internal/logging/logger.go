package logging

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/HusainCode/pico-firmware/internal/config"
)

// New builds the process logger. Dev builds get colored tint output, everything
// else JSON. When cfg.LogFile is set every line is also written to a rotated file;
// the returned closer flushes it and is a no-op otherwise.
func New(cfg config.Common, version string, appName string) (*slog.Logger, io.Closer) {
	return newLogger(os.Stdout, cfg, version, appName)
}

func newLogger(stdout io.Writer, cfg config.Common, version string, appName string) (*slog.Logger, io.Closer) {
	var (
		w      io.Writer = stdout
		closer io.Closer = nopCloser{}
	)
	if cfg.LogFile != "" {
		file := &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    10, // MB
			MaxBackups: 5,
			MaxAge:     28, // days
			Compress:   true,
		}
		w = io.MultiWriter(stdout, file)
		closer = file
	}

	if version == "dev" {
		h := tint.NewHandler(w, &tint.Options{
			Level:      cfg.LogLevel,
			AddSource:  true,
			TimeFormat: time.Kitchen,
			NoColor:    cfg.LogFile != "",
		})
		return slog.New(h).With("app", appName), closer
	}

	h := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	})
	return slog.New(h).With(
		"app", appName,
		"version", version,
		"env", cfg.AppEnv,
	), closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
