package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/HusainCode/pico-firmware/internal/config"
)

func TestNew_ProdWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, closer := newLogger(&buf, config.Common{AppEnv: "prod", LogLevel: slog.LevelInfo}, "1.2.0", "pico-agent")
	defer closer.Close()

	logger.Debug("hidden")
	logger.Info("cycle complete", "sequence", 7)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("lines = %d, want 1 (debug filtered): %q", len(lines), buf.String())
	}

	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("line is not JSON: %v", err)
	}
	for k, want := range map[string]any{
		"msg":      "cycle complete",
		"app":      "pico-agent",
		"version":  "1.2.0",
		"env":      "prod",
		"sequence": float64(7),
	} {
		if rec[k] != want {
			t.Errorf("%s = %v, want %v", k, rec[k], want)
		}
	}
}

func TestNew_DevUsesTint(t *testing.T) {
	var buf bytes.Buffer
	logger, _ := newLogger(&buf, config.Common{AppEnv: "dev", LogLevel: slog.LevelDebug}, "dev", "pico-agent")

	logger.Debug("polled", "sensor", "climate")

	out := buf.String()
	if strings.HasPrefix(out, "{") {
		t.Fatalf("dev output looks like JSON: %q", out)
	}
	if !strings.Contains(out, "polled") || !strings.Contains(out, "climate") {
		t.Errorf("output = %q, want message and attrs", out)
	}
}

func TestNew_LogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.log")
	var buf bytes.Buffer
	logger, closer := newLogger(&buf, config.Common{AppEnv: "prod", LogLevel: slog.LevelInfo, LogFile: path}, "1.2.0", "pico-agent")

	logger.Info("delivered", "status", 201)
	if err := closer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !bytes.Equal(got, buf.Bytes()) {
		t.Errorf("file = %q, stdout = %q, want identical", got, buf.Bytes())
	}
}
