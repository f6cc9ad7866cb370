package mqtt

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/HusainCode/pico-firmware/internal/config"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func newTestClient(t *testing.T, prefix string) *Client {
	t.Helper()
	c, err := NewClient(config.Collector{
		MQTTBroker:      "127.0.0.1",
		MQTTPort:        1,
		MQTTClientID:    "test",
		MQTTTopicPrefix: prefix,
	}, quiet)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	t.Cleanup(c.Disconnect)
	return c
}

func TestNewClient_RequiresBroker(t *testing.T) {
	if _, err := NewClient(config.Collector{}, quiet); err == nil {
		t.Fatal("NewClient without broker: error = nil")
	}
}

func TestTopic(t *testing.T) {
	tests := []struct {
		prefix string
		want   string
	}{
		{"stations", "stations/kitchen/telemetry"},
		{"/home/stations/", "home/stations/kitchen/telemetry"},
		{"", "kitchen/telemetry"},
	}
	for _, tt := range tests {
		if got := newTestClient(t, tt.prefix).Topic("kitchen"); got != tt.want {
			t.Errorf("Topic with prefix %q = %q, want %q", tt.prefix, got, tt.want)
		}
	}
}

func TestPublishReading_NotConnected(t *testing.T) {
	c := newTestClient(t, "stations")
	err := c.PublishReading(context.Background(), "kitchen", []byte(`{}`))
	if !errors.Is(err, ErrNotConnected) {
		t.Fatalf("PublishReading = %v, want ErrNotConnected", err)
	}
}

func TestConnect_RespectsContext(t *testing.T) {
	c := newTestClient(t, "stations")

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	if err := c.Connect(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Connect to closed port = %v, want deadline exceeded", err)
	}
}

func TestConnect_AfterDisconnect(t *testing.T) {
	c := newTestClient(t, "stations")
	c.Disconnect()
	c.Disconnect()

	if err := c.Connect(context.Background()); !errors.Is(err, ErrStopped) {
		t.Fatalf("Connect after Disconnect = %v, want ErrStopped", err)
	}
}
