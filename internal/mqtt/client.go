// Package mqtt republishes readings accepted by the collector to an MQTT broker.
package mqtt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/HusainCode/pico-firmware/internal/config"
)

var (
	ErrNotConnected = errors.New("mqtt client not connected")
	ErrStopped      = errors.New("mqtt client stopped")
)

type Client struct {
	client paho.Client
	prefix string
	logger *slog.Logger

	mu        sync.RWMutex
	connected bool

	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewClient(cfg config.Collector, logger *slog.Logger) (*Client, error) {
	if cfg.MQTTBroker == "" {
		return nil, errors.New("mqtt broker is not configured")
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		prefix: strings.Trim(cfg.MQTTTopicPrefix, "/"),
		logger: logger.With("component", "mqtt"),
		stopCh: make(chan struct{}),
	}

	opts := paho.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.MQTTBroker, cfg.MQTTPort))
	opts.SetClientID(cfg.MQTTClientID)
	opts.SetCleanSession(true)

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)

	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	opts.SetOnConnectHandler(func(_ paho.Client) {
		c.setConnected(true)
		c.logger.Info("mqtt connected", "broker", cfg.MQTTBroker, "port", cfg.MQTTPort)
	})
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		c.setConnected(false)
		c.logger.Warn("mqtt connection lost", "error", err)
	})

	c.client = paho.NewClient(opts)
	return c, nil
}

// Connect waits for the initial broker connection. It returns early on ctx
// cancellation or Disconnect; paho keeps retrying in the background either way.
func (c *Client) Connect(ctx context.Context) error {
	select {
	case <-c.stopCh:
		return ErrStopped
	default:
	}

	if c.IsConnected() {
		return nil
	}

	token := c.client.Connect()

	const poll = 200 * time.Millisecond
	for {
		if token.WaitTimeout(poll) {
			if err := token.Error(); err != nil {
				return fmt.Errorf("mqtt connect: %w", err)
			}
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.stopCh:
			return ErrStopped
		default:
		}
	}
}

// Topic returns <prefix>/<station>/telemetry.
func (c *Client) Topic(stationID string) string {
	if c.prefix == "" {
		return stationID + "/telemetry"
	}
	return c.prefix + "/" + stationID + "/telemetry"
}

// PublishReading publishes payload at QoS 1 to the station's telemetry topic.
func (c *Client) PublishReading(ctx context.Context, stationID string, payload []byte) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}
	if stationID == "" || strings.ContainsAny(stationID, "/+#") {
		return fmt.Errorf("invalid station id %q for topic", stationID)
	}

	topic := c.Topic(stationID)
	token := c.client.Publish(topic, 1, false, payload)

	select {
	case <-token.Done():
	case <-ctx.Done():
		return fmt.Errorf("publish %s: %w", topic, ctx.Err())
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}

	c.logger.Debug("published reading", "topic", topic, "bytes", len(payload))
	return nil
}

func (c *Client) IsConnected() bool {
	c.mu.RLock()
	connected := c.connected
	c.mu.RUnlock()
	return connected && c.client.IsConnected()
}

// Disconnect stops the client. Safe to call more than once; Connect returns
// ErrStopped afterwards.
func (c *Client) Disconnect() {
	c.stopOnce.Do(func() { close(c.stopCh) })

	if c.client != nil {
		c.client.Disconnect(250)
	}
	c.setConnected(false)
	c.logger.Info("mqtt disconnected")
}

func (c *Client) setConnected(v bool) {
	c.mu.Lock()
	c.connected = v
	c.mu.Unlock()
}
